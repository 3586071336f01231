package cmd

import (
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/srcguard/packages/core/parser"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list <file|directory>...",
	Short: "List all checks in guard suites",
	Long: `List all checks defined in *.guard.yaml suites.

Examples:
  srcguard list guards/app.guard.yaml
  srcguard list guards/`,
	Args: usageArgs(cobra.MinimumNArgs(1)),
	RunE: listCommand,
}

func listCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return usageError(err)
	}

	if len(files) == 0 {
		return usageError(fmt.Errorf("no *.guard.yaml files found"))
	}

	out := cmd.OutOrStdout()
	parseErrors := 0
	for _, file := range files {
		suite, err := parser.ParseFile(file)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error parsing %s: %v\n", file, err)
			parseErrors++
			continue
		}

		fmt.Fprintf(out, "\n%s:\n", file)
		for _, c := range suite.Cases {
			fmt.Fprintf(out, "  - %s\n", c.Name)
			fmt.Fprintf(out, "    %s %s\n", c.Kind, c.File)
			if len(c.Tags) > 0 {
				fmt.Fprintf(out, "    tags: %s\n", strings.Join(c.Tags, ", "))
			}
			if c.Skip != "" {
				fmt.Fprintf(out, "    skip: %s\n", c.Skip)
			}
			if c.Only {
				fmt.Fprintf(out, "    only\n")
			}
		}
	}

	if parseErrors > 0 {
		return &ExitError{Code: ExitParseError}
	}
	return nil
}
