package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/srcguard/packages/core/config"
	"github.com/abdul-hamid-achik/srcguard/packages/core/runner"
	"github.com/abdul-hamid-achik/srcguard/packages/history"
	"github.com/abdul-hamid-achik/srcguard/packages/output"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run [file|directory]...",
	Short: "Run guard suites",
	Long: `Run the checks defined in *.guard.yaml suites.

With no arguments the suites listed in the config file are run.

Examples:
  srcguard run guards/
  srcguard run guards/app.guard.yaml --tags smoke
  srcguard run guards/ --name "*selected*" -o junit --output-file report.xml
  srcguard run guards/ --watch
  srcguard run guards/ --repeat 50 --rate 200
  srcguard run guards/ --history sqlite:.srcguard/history.db

Exit status is 0 when every check passed, 1 when a check failed, 4 when a
checked file could not be read and 2 when a suite is invalid.`,
	RunE: runCommand,
}

var (
	rootFlag        string
	nameFlag        string
	tagsFlag        string
	bailFlag        bool
	outputFlag      string
	outputFileFlag  string
	parallelFlag    bool
	concurrencyFlag int
	watchFlag       bool
	historyFlag     string
	repeatFlag      int
	rateFlag        float64
)

func init() {
	// Selection flags
	runCmd.Flags().StringVar(&rootFlag, "root", getEnvString("SRCGUARD_ROOT", ""), "Project root for every suite (env: SRCGUARD_ROOT)")
	runCmd.Flags().StringVarP(&nameFlag, "name", "n", "", "Run only checks matching name pattern")
	runCmd.Flags().StringVarP(&tagsFlag, "tags", "t", getEnvString("SRCGUARD_TAGS", ""), "Run only checks with specified tags (comma-separated) (env: SRCGUARD_TAGS)")

	// Output flags
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("SRCGUARD_OUTPUT", "console"), "Output format: console, json, junit, tap (env: SRCGUARD_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("SRCGUARD_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: SRCGUARD_OUTPUT_FILE)")

	// Execution flags
	runCmd.Flags().BoolVar(&bailFlag, "bail", getEnvBool("SRCGUARD_BAIL", false), "Stop on first failure (env: SRCGUARD_BAIL)")
	runCmd.Flags().BoolVarP(&parallelFlag, "parallel", "p", getEnvBool("SRCGUARD_PARALLEL", false), "Evaluate checks in parallel (env: SRCGUARD_PARALLEL)")
	runCmd.Flags().IntVar(&concurrencyFlag, "concurrency", getEnvInt("SRCGUARD_CONCURRENCY", runner.DefaultConcurrency), "Number of concurrent checks when running in parallel (env: SRCGUARD_CONCURRENCY)")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch suites and checked files and re-run on change")
	runCmd.Flags().StringVar(&historyFlag, "history", getEnvString("SRCGUARD_HISTORY", ""), "Record the run in a SQLite history database (env: SRCGUARD_HISTORY)")

	// Stability flags
	runCmd.Flags().IntVar(&repeatFlag, "repeat", getEnvInt("SRCGUARD_REPEAT", 1), "Evaluate every check N times and report flaky ones (env: SRCGUARD_REPEAT)")
	runCmd.Flags().Float64Var(&rateFlag, "rate", 0, "Evaluations per second with --repeat (0 = unpaced)")
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// explicit reports whether a flag was given on the command line or through
// its environment variable, so it takes precedence over the config file.
func explicit(cmd *cobra.Command, flag, envKey string) bool {
	if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
		return true
	}
	return envKey != "" && os.Getenv(envKey) != ""
}

// Formatter interface for all output formatters
type Formatter interface {
	FormatResult(result *runner.RunResult)
	FormatError(err error)
	FormatHeader(version string)
}

// Flushable interface for formatters that need to flush output
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

// runSettings is the merged view of config file, environment and flags.
type runSettings struct {
	cfg        *config.Config
	root       string
	files      []string
	output     string
	outputFile string
	verbose    bool
	noColor    bool
	history    string
}

func loadSettings(cmd *cobra.Command, args []string) (*runSettings, error) {
	fileConfig, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, configError(err)
	}
	if fileConfig.IsDefault() {
		logger.Debug("no config file, using defaults")
	} else {
		logger.Debug("loaded config", zap.String("path", fileConfig.Path()))
	}

	flagConfig := &config.Config{}
	if explicit(cmd, "output", "SRCGUARD_OUTPUT") {
		flagConfig.Output = strings.ToLower(outputFlag)
	}
	if explicit(cmd, "output-file", "SRCGUARD_OUTPUT_FILE") {
		flagConfig.OutputFile = outputFileFlag
	}
	if explicit(cmd, "concurrency", "SRCGUARD_CONCURRENCY") {
		flagConfig.Concurrency = concurrencyFlag
	}
	if explicit(cmd, "history", "SRCGUARD_HISTORY") {
		flagConfig.History = historyFlag
	}
	if explicit(cmd, "parallel", "SRCGUARD_PARALLEL") {
		flagConfig.Parallel = config.BoolPtr(parallelFlag)
	}
	if explicit(cmd, "bail", "SRCGUARD_BAIL") {
		flagConfig.Bail = config.BoolPtr(bailFlag)
	}
	if verboseFlag > 0 {
		flagConfig.Verbose = config.BoolPtr(true)
	}
	if explicit(cmd, "no-color", "SRCGUARD_NO_COLOR") {
		flagConfig.NoColor = config.BoolPtr(noColorFlag)
	}

	cfg := fileConfig.Merge(flagConfig)
	if err := cfg.Validate(); err != nil {
		return nil, usageError(err)
	}

	s := &runSettings{
		cfg:        cfg,
		output:     cfg.Output,
		outputFile: cfg.OutputFile,
		verbose:    cfg.GetVerbose(),
		noColor:    cfg.GetNoColor() || quietFlag,
		history:    cfg.History,
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if explicit(cmd, "root", "SRCGUARD_ROOT") {
		s.root, err = filepath.Abs(rootFlag)
	} else {
		s.root, err = cfg.ResolveRoot(cwd)
	}
	if err != nil {
		return nil, configError(err)
	}

	targets := args
	if len(targets) == 0 {
		targets = configSuites(cfg)
	}
	if len(targets) == 0 {
		return nil, usageError(fmt.Errorf("no suites given and none configured"))
	}

	s.files, err = collectFiles(targets)
	if err != nil {
		return nil, usageError(err)
	}
	if len(s.files) == 0 {
		return nil, usageError(fmt.Errorf("no *.guard.yaml files found"))
	}

	return s, nil
}

// configSuites resolves the configured suite paths against the config file.
func configSuites(cfg *config.Config) []string {
	base := "."
	if cfg.Path() != "" {
		base = filepath.Dir(cfg.Path())
	}
	suites := make([]string, 0, len(cfg.Suites))
	for _, s := range cfg.Suites {
		if !filepath.IsAbs(s) {
			s = filepath.Join(base, s)
		}
		suites = append(suites, s)
	}
	return suites
}

func (s *runSettings) runnerConfig() *runner.Config {
	return &runner.Config{
		Root:        s.root,
		Markers:     s.cfg.Markers,
		NameFilter:  nameFlag,
		TagsFilter:  splitList(tagsFlag),
		Parallel:    s.cfg.GetParallel(),
		Concurrency: s.cfg.Concurrency,
		Bail:        s.cfg.GetBail(),
		Logger:      logger,
	}
}

func newFormatter(format string, w io.Writer, verbose, noColor bool) Formatter {
	switch format {
	case "json":
		return output.NewJSONFormatter(output.JSONWithWriter(w))
	case "junit":
		return output.NewJUnitFormatter(output.JUnitWithWriter(w))
	case "tap":
		return output.NewTAPFormatter(output.TAPWithWriter(w))
	default: // "console"
		return output.NewConsoleFormatter(
			output.WithWriter(w),
			output.WithVerbose(verbose),
			output.WithNoColor(noColor),
		)
	}
}

func runCommand(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd, args)
	if err != nil {
		return err
	}

	if repeatFlag < 1 {
		return usageError(fmt.Errorf("--repeat must be at least 1, got %d", repeatFlag))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if repeatFlag > 1 {
		return runStability(ctx, cmd, s)
	}

	r := runner.NewRunner(s.runnerConfig())

	outcome, err := runOnce(ctx, cmd, s, r)
	if err != nil {
		return err
	}

	if !watchFlag {
		if ctx.Err() != nil {
			return &ExitError{Code: worse(outcome.code, ExitTestFailure), Err: errors.New("run interrupted")}
		}
		if outcome.code != ExitSuccess {
			return &ExitError{Code: outcome.code}
		}
		return nil
	}

	return watch(ctx, cmd, s, r, outcome.inspected)
}

type runOutcome struct {
	code      int
	inspected []string
}

// runOnce runs every suite once, writes the report and records history.
func runOnce(ctx context.Context, cmd *cobra.Command, s *runSettings, r *runner.Runner) (*runOutcome, error) {
	var w io.Writer = cmd.OutOrStdout()
	if s.outputFile != "" {
		f, err := os.Create(s.outputFile)
		if err != nil {
			return nil, fmt.Errorf("cannot create output file: %w", err)
		}
		defer f.Close()
		w = f
	} else if quietFlag && s.output == "console" {
		w = io.Discard
	}

	formatter := newFormatter(s.output, w, s.verbose, s.noColor)
	formatter.FormatHeader(version)

	startTime := time.Now()
	var results []*runner.RunResult
	var inspected []string
	suiteErrors := 0

	for _, file := range s.files {
		if ctx.Err() != nil {
			break
		}

		result, err := r.RunFile(file)
		if err != nil {
			suiteErrors++
			formatter.FormatError(fmt.Errorf("%s: %w", file, err))
			logger.Debug("suite failed to load", zap.String("file", file), zap.Error(err))
			if s.cfg.GetBail() {
				break
			}
			continue
		}

		formatter.FormatResult(result)
		results = append(results, result)
		inspected = append(inspected, result.Inspected()...)

		if s.cfg.GetBail() && (result.Failed > 0 || result.Errored > 0) {
			break
		}
	}

	totalDuration := time.Since(startTime)

	// Flush output for formatters that accumulate results
	if flushable, ok := formatter.(Flushable); ok {
		if err := flushable.Flush(totalDuration); err != nil {
			return nil, fmt.Errorf("error writing output: %w", err)
		}
	}

	code := resultsExitCode(results, suiteErrors)

	if s.history != "" {
		if err := recordHistory(ctx, s.history, history.NewRun(startTime, totalDuration, code, results...)); err != nil {
			// a broken history store must not change the verdict of the run
			logger.Warn("failed to record run history", zap.String("history", s.history), zap.Error(err))
		}
	}

	return &runOutcome{code: code, inspected: inspected}, nil
}

func recordHistory(ctx context.Context, dsn string, run *history.Run) error {
	store, err := history.Open(dsn)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.RecordRun(ctx, run)
	if err != nil {
		return err
	}
	logger.Debug("recorded run", zap.String("id", id), zap.String("history", store.Path()))
	return nil
}
