package cmd

import (
	"errors"
	"fmt"

	"github.com/abdul-hamid-achik/srcguard/packages/core/runner"
	"github.com/abdul-hamid-achik/srcguard/packages/guard"
	"github.com/spf13/cobra"
)

// Exit codes for srcguard CLI
const (
	// ExitSuccess indicates all checks passed
	ExitSuccess = 0

	// ExitTestFailure indicates one or more checks failed
	ExitTestFailure = 1

	// ExitParseError indicates a suite parsing error or an invalid check
	ExitParseError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitIOError indicates a checked file could not be read
	ExitIOError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// ExitError carries the exit code of a failed command. Err may be nil when
// the failure has already been reported.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func usageError(err error) error {
	return &ExitError{Code: ExitUsageError, Err: err}
}

func configError(err error) error {
	return &ExitError{Code: ExitConfigError, Err: err}
}

// usageArgs turns argument validation failures into usage errors.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

// resultsExitCode picks the exit code of a run. Suite errors win over
// unreadable files, which win over assertion failures.
func resultsExitCode(results []*runner.RunResult, suiteErrors int) int {
	code := ExitSuccess
	if suiteErrors > 0 {
		return ExitParseError
	}
	for _, res := range results {
		for _, cr := range res.Results {
			code = worse(code, caseExitCode(cr.Verdict, cr.Error))
		}
	}
	return code
}

func caseExitCode(v guard.Verdict, err error) int {
	switch v {
	case guard.Fail:
		return ExitTestFailure
	case guard.Error:
		if errors.Is(err, guard.ErrIO) {
			return ExitIOError
		}
		return ExitParseError
	default:
		return ExitSuccess
	}
}

var exitRank = map[int]int{
	ExitSuccess:     0,
	ExitTestFailure: 1,
	ExitIOError:     2,
	ExitParseError:  3,
}

func worse(a, b int) int {
	if exitRank[b] > exitRank[a] {
		return b
	}
	return a
}
