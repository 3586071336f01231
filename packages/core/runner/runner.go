package runner

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/srcguard/packages/assertions"
	"github.com/abdul-hamid-achik/srcguard/packages/core/parser"
	"github.com/abdul-hamid-achik/srcguard/packages/guard"
	"go.uber.org/zap"
)

const (
	// DefaultConcurrency is the default number of concurrent checks in parallel mode
	DefaultConcurrency = 5

	// SkipFiltered is the skip reason of cases excluded by filters.
	SkipFiltered = "filtered out"
)

type Runner struct {
	config *Config
	logger *zap.Logger
}

type Config struct {
	// Root overrides every suite's own root when set.
	Root        string
	Markers     []string
	NameFilter  string
	TagsFilter  []string
	Parallel    bool
	Concurrency int
	Bail        bool
	Logger      *zap.Logger
}

func NewRunner(cfg *Config) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{
		config: cfg,
		logger: logger,
	}
}

type RunResult struct {
	File     string
	Suite    string
	Root     string
	Results  []*CaseResult
	Duration time.Duration
	Passed   int
	Failed   int
	Errored  int
	Skipped  int
}

// Inspected returns the absolute paths of the files the suite's cases read.
func (r *RunResult) Inspected() []string {
	seen := make(map[string]bool)
	var paths []string
	for _, c := range r.Results {
		if c.Path != "" && !seen[c.Path] {
			seen[c.Path] = true
			paths = append(paths, c.Path)
		}
	}
	return paths
}

type CaseResult struct {
	Name       string
	File       string
	Path       string
	Kind       string
	Line       int
	Verdict    guard.Verdict
	Passed     bool
	Skipped    bool
	SkipReason string
	Message    string
	Duration   time.Duration
	Assertion  *assertions.Result
	Error      error
}

func (r *Runner) RunFile(path string) (*RunResult, error) {
	suite, err := parser.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parsing file: %w", err)
	}
	return r.RunSuite(suite)
}

func (r *Runner) RunSuite(suite *parser.Suite) (*RunResult, error) {
	root, err := r.ResolveRoot(suite)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}

	r.logger.Debug("running suite",
		zap.String("file", suite.Path),
		zap.String("root", root.String()),
		zap.Int("cases", len(suite.Cases)))

	return r.runCases(suite, root), nil
}

// ResolveRoot picks the project root for a suite: the runner override, then
// the suite's own root relative to the suite file, then the nearest marker
// directory above the suite file, then the suite's directory.
func (r *Runner) ResolveRoot(suite *parser.Suite) (guard.ProjectRoot, error) {
	if r.config.Root != "" {
		return guard.NewProjectRoot(r.config.Root)
	}

	suiteDir := filepath.Dir(suite.Path)
	if suite.Root != "" {
		if filepath.IsAbs(suite.Root) {
			return guard.NewProjectRoot(suite.Root)
		}
		return guard.NewProjectRoot(filepath.Join(suiteDir, suite.Root))
	}

	if root, err := guard.FindProjectRoot(suiteDir, r.config.Markers...); err == nil {
		return root, nil
	}
	return guard.NewProjectRoot(suiteDir)
}

func (r *Runner) runCases(suite *parser.Suite, root guard.ProjectRoot) *RunResult {
	start := time.Now()
	result := &RunResult{
		File:  suite.Path,
		Suite: suite.Name,
		Root:  root.String(),
	}

	hasOnly := suite.HasOnly()

	// Skipped cases are placed now; runnable ones get their slot filled later.
	slots := make([]*CaseResult, len(suite.Cases))
	var runnable []int
	for i, c := range suite.Cases {
		switch {
		case !r.shouldRun(c, hasOnly):
			slots[i] = skipped(c, SkipFiltered)
		case c.Skip != "":
			slots[i] = skipped(c, c.Skip)
		default:
			runnable = append(runnable, i)
		}
	}

	evaluator := assertions.NewEvaluator(root, assertions.WithLogger(r.logger))

	if r.config.Parallel {
		r.runParallel(evaluator, suite.Cases, runnable, slots)
	} else {
		for _, i := range runnable {
			cr := r.runCase(evaluator, suite.Cases[i])
			slots[i] = cr
			if r.config.Bail && !cr.Passed {
				break
			}
		}
	}

	for _, cr := range slots {
		if cr == nil {
			// not reached because of bail
			continue
		}
		result.Results = append(result.Results, cr)
		switch {
		case cr.Skipped:
			result.Skipped++
		case cr.Verdict == guard.Pass:
			result.Passed++
		case cr.Verdict == guard.Fail:
			result.Failed++
		default:
			result.Errored++
		}
	}

	result.Duration = time.Since(start)
	return result
}

func (r *Runner) runParallel(evaluator *assertions.Evaluator, cases []*parser.Case, runnable []int, slots []*CaseResult) {
	concurrency := r.config.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)

	for _, idx := range runnable {
		wg.Add(1)
		sem <- struct{}{} // acquire semaphore

		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }() // release semaphore

			slots[i] = r.runCase(evaluator, cases[i])
		}(idx)
	}

	wg.Wait()
}

func (r *Runner) runCase(evaluator *assertions.Evaluator, c *parser.Case) *CaseResult {
	start := time.Now()
	res := evaluator.Evaluate(c)

	cr := &CaseResult{
		Name:      c.Name,
		File:      c.File,
		Kind:      c.Kind.String(),
		Line:      c.Line,
		Verdict:   res.Verdict,
		Passed:    res.Passed(),
		Message:   res.Message,
		Duration:  time.Since(start),
		Assertion: res,
	}
	if full, err := evaluator.Root().Resolve(c.File); err == nil {
		cr.Path = full
	}
	if res.Verdict == guard.Error {
		cr.Error = res.Err
	}
	return cr
}

func skipped(c *parser.Case, reason string) *CaseResult {
	return &CaseResult{
		Name:       c.Name,
		File:       c.File,
		Kind:       c.Kind.String(),
		Line:       c.Line,
		Verdict:    guard.Skip,
		Skipped:    true,
		SkipReason: reason,
	}
}

// Select returns the cases of suite that would be evaluated: those passing
// the filters and not marked skip, in suite order.
func (r *Runner) Select(suite *parser.Suite) []*parser.Case {
	hasOnly := suite.HasOnly()
	var selected []*parser.Case
	for _, c := range suite.Cases {
		if r.shouldRun(c, hasOnly) && c.Skip == "" {
			selected = append(selected, c)
		}
	}
	return selected
}

func (r *Runner) shouldRun(c *parser.Case, hasOnly bool) bool {
	if hasOnly && !c.Only {
		return false
	}

	if r.config.NameFilter != "" {
		if !matchesPattern(c.Name, r.config.NameFilter) {
			return false
		}
	}

	if len(r.config.TagsFilter) > 0 {
		if !hasAnyTag(c.Tags, r.config.TagsFilter) {
			return false
		}
	}

	return true
}

func matchesPattern(name, pattern string) bool {
	if pattern == "" {
		return true
	}
	if pattern == "*" {
		return true
	}

	if len(pattern) > 1 && pattern[0] == '*' && pattern[len(pattern)-1] == '*' {
		substr := pattern[1 : len(pattern)-1]
		for i := 0; i <= len(name)-len(substr); i++ {
			if name[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	}

	if pattern[0] == '*' {
		suffix := pattern[1:]
		return len(name) >= len(suffix) && name[len(name)-len(suffix):] == suffix
	}

	if pattern[len(pattern)-1] == '*' {
		prefix := pattern[:len(pattern)-1]
		return len(name) >= len(prefix) && name[:len(prefix)] == prefix
	}

	return name == pattern
}

func hasAnyTag(tags []string, filters []string) bool {
	for _, filter := range filters {
		for _, tag := range tags {
			if tag == filter {
				return true
			}
		}
	}
	return false
}
