// Package scaffold implements `srcguard init`: it prints the startup
// banner, runs the configured external scaffolding commands in order and
// writes a starter guard suite with its config file.
package scaffold

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/srcguard/packages/core/config"
	"go.uber.org/zap"
)

// StepError reports an external command that exited non-zero or could not
// be started.
type StepError struct {
	Step     string
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *StepError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("step %q (%s): %v", e.Step, e.Command, e.Err)
	}
	msg := fmt.Sprintf("step %q (%s) exited with code %d", e.Step, e.Command, e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Options controls one bootstrap.
type Options struct {
	// Name is the project name, substituted for {name} in step arguments.
	Name    string
	Version string
	// Banner replaces the default banner line. {name} and {version} are
	// substituted.
	Banner string
	// Dir is the project directory. Relative step dirs resolve against it.
	Dir   string
	Steps []config.Step
	// DryRun prints the commands instead of running them. Starter files are
	// not written either.
	DryRun bool
	// Force overwrites existing starter files.
	Force bool
	// SkipScaffold skips the external steps and only writes starter files.
	SkipScaffold bool
}

// Report lists what a bootstrap did.
type Report struct {
	Steps   []StepReport
	Created []string
	Kept    []string
}

type StepReport struct {
	Name     string
	Command  string
	DryRun   bool
	Duration time.Duration
}

type Bootstrapper struct {
	runner CommandRunner
	out    io.Writer
	logger *zap.Logger
}

type Option func(*Bootstrapper)

func WithRunner(r CommandRunner) Option {
	return func(b *Bootstrapper) {
		b.runner = r
	}
}

func WithOutput(w io.Writer) Option {
	return func(b *Bootstrapper) {
		b.out = w
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(b *Bootstrapper) {
		if l != nil {
			b.logger = l
		}
	}
}

func New(opts ...Option) *Bootstrapper {
	b := &Bootstrapper{
		runner: NewExecRunner(),
		out:    os.Stdout,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run prints the banner, runs every step in order and writes the starter
// files. The first failing step aborts the bootstrap with a *StepError and
// no starter files are written.
func (b *Bootstrapper) Run(ctx context.Context, opts Options) (*Report, error) {
	dir, err := filepath.Abs(opts.Dir)
	if err != nil {
		return nil, err
	}
	name := opts.Name
	if name == "" {
		name = filepath.Base(dir)
	}

	if opts.Banner != "" {
		line := strings.NewReplacer("{name}", name, "{version}", opts.Version).Replace(opts.Banner)
		if _, err := fmt.Fprintln(b.out, strings.TrimRight(line, "\n")); err != nil {
			return nil, err
		}
	} else if err := Banner(b.out, name, opts.Version); err != nil {
		return nil, err
	}

	report := &Report{}

	if !opts.SkipScaffold {
		for i, step := range opts.Steps {
			sr, err := b.runStep(ctx, dir, name, i, step, opts.DryRun)
			if err != nil {
				return report, err
			}
			report.Steps = append(report.Steps, sr)
		}
	}

	if opts.DryRun {
		return report, nil
	}

	if err := b.writeStarter(dir, name, opts, report); err != nil {
		return report, err
	}
	return report, nil
}

func (b *Bootstrapper) runStep(ctx context.Context, dir, name string, i int, step config.Step, dryRun bool) (StepReport, error) {
	stepName := step.Name
	if stepName == "" {
		stepName = fmt.Sprintf("step %d", i+1)
	}

	args := expandArgs(step.Args, name, dir)
	commandLine := strings.Join(append([]string{step.Command}, args...), " ")

	stepDir := dir
	if step.Dir != "" {
		stepDir = step.Dir
		if !filepath.IsAbs(stepDir) {
			stepDir = filepath.Join(dir, stepDir)
		}
	}

	sr := StepReport{Name: stepName, Command: commandLine, DryRun: dryRun}
	if dryRun {
		fmt.Fprintf(b.out, "would run %s: %s (in %s)\n", stepName, commandLine, stepDir)
		return sr, nil
	}

	if err := os.MkdirAll(stepDir, 0755); err != nil {
		return sr, &StepError{Step: stepName, Command: commandLine, Err: err}
	}

	fmt.Fprintf(b.out, "running %s: %s\n", stepName, commandLine)
	b.logger.Debug("running scaffold step",
		zap.String("step", stepName),
		zap.String("command", step.Command),
		zap.Strings("args", args),
		zap.String("dir", stepDir))

	start := time.Now()
	res, err := b.runner.Run(ctx, step.Command, args, RunOpts{Dir: stepDir, Env: step.Env})
	sr.Duration = time.Since(start)
	if err != nil {
		return sr, &StepError{Step: stepName, Command: commandLine, ExitCode: -1, Stderr: res.Stderr, Err: err}
	}
	if res.ExitCode != 0 {
		return sr, &StepError{Step: stepName, Command: commandLine, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}

	b.logger.Debug("scaffold step finished",
		zap.String("step", stepName),
		zap.Duration("duration", sr.Duration))
	return sr, nil
}

func expandArgs(args []string, name, dir string) []string {
	r := strings.NewReplacer("{name}", name, "{dir}", dir)
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = r.Replace(a)
	}
	return out
}

func (b *Bootstrapper) writeStarter(dir, name string, opts Options, report *Report) error {
	configPath := filepath.Join(dir, config.ConfigFilenames[0])
	suitePath := filepath.Join(dir, SuitesDir, name+".guard.yaml")

	if !b.keep(configPath, opts.Force, report) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		if err := starterConfig(opts.Steps).SaveConfig(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		b.created(configPath, report)
	}

	if !b.keep(suitePath, opts.Force, report) {
		if err := os.MkdirAll(filepath.Dir(suitePath), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(suitePath, []byte(starterSuite(name)), 0644); err != nil {
			return fmt.Errorf("failed to create starter suite: %w", err)
		}
		b.created(suitePath, report)
	}

	return nil
}

// keep reports whether path exists and must be left alone.
func (b *Bootstrapper) keep(path string, force bool, report *Report) bool {
	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) || force {
		return false
	}
	fmt.Fprintf(b.out, "Kept:    %s\n", path)
	report.Kept = append(report.Kept, path)
	return true
}

func (b *Bootstrapper) created(path string, report *Report) {
	fmt.Fprintf(b.out, "Created: %s\n", path)
	report.Created = append(report.Created, path)
}
