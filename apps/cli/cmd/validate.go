package cmd

import (
	"fmt"

	"github.com/abdul-hamid-achik/srcguard/packages/core/parser"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|directory>...",
	Short: "Validate guard suites without running them",
	Long: `Validate *.guard.yaml suites for syntax errors without executing them.

Examples:
  srcguard validate guards/app.guard.yaml
  srcguard validate guards/`,
	Args: usageArgs(cobra.MinimumNArgs(1)),
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return usageError(err)
	}

	if len(files) == 0 {
		return usageError(fmt.Errorf("no *.guard.yaml files found"))
	}

	hasErrors := false
	for _, file := range files {
		suite, err := parser.ParseFile(file)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error in %s: %v\n", file, err)
			hasErrors = true
			continue
		}
		if !quietFlag {
			fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s (%d checks)\n", file, len(suite.Cases))
		}
	}

	if hasErrors {
		return &ExitError{Code: ExitParseError, Err: fmt.Errorf("validation failed")}
	}

	return nil
}
