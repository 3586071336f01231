package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/abdul-hamid-achik/srcguard/packages/core/parser"
	"github.com/abdul-hamid-achik/srcguard/packages/core/runner"
	"github.com/abdul-hamid-achik/srcguard/packages/stability"
	"github.com/spf13/cobra"
)

// runStability evaluates every selected check --repeat times and fails when
// a check is flaky or does not pass consistently.
func runStability(ctx context.Context, cmd *cobra.Command, s *runSettings) error {
	r := runner.NewRunner(s.runnerConfig())

	checker, err := stability.NewChecker(&stability.Config{
		Repeat:      repeatFlag,
		Rate:        rateFlag,
		Concurrency: s.cfg.Concurrency,
		Logger:      logger,
	})
	if err != nil {
		return usageError(err)
	}

	reporter := stability.NewReporter(
		stability.WithWriter(cmd.OutOrStdout()),
		stability.WithNoColor(s.noColor),
		stability.WithVerbose(s.verbose),
	)

	code := ExitSuccess
	for _, file := range s.files {
		suite, err := parser.ParseFile(file)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error in %s: %v\n", file, err)
			code = worse(code, ExitParseError)
			continue
		}

		root, err := r.ResolveRoot(suite)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error in %s: %v\n", file, err)
			code = worse(code, ExitParseError)
			continue
		}

		summary, err := checker.Run(ctx, root, r.Select(suite))
		if s.output == "json" {
			if jerr := reporter.JSONSummary(file, summary); jerr != nil {
				return jerr
			}
		} else {
			reporter.Header(file, checker.Repeat(), rateFlag)
			reporter.Summary(summary)
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return &ExitError{Code: ExitTestFailure, Err: fmt.Errorf("interrupted")}
			}
			return err
		}

		for _, c := range summary.Cases {
			code = worse(code, stabilityExitCode(c))
		}
	}

	if code != ExitSuccess {
		return &ExitError{Code: code}
	}
	return nil
}

// stabilityExitCode maps a repeated case to the exit code a single run of it
// would produce. A flaky case fails.
func stabilityExitCode(c *stability.CaseSummary) int {
	if c.Flaky() {
		return ExitTestFailure
	}
	return caseExitCode(c.Verdict(), c.Err)
}
