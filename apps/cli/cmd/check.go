package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/abdul-hamid-achik/srcguard/packages/core/config"
	"github.com/abdul-hamid-achik/srcguard/packages/guard"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <file> <substring>",
	Short: "Check that one file contains a substring",
	Long: `Check that a file, relative to the project root, contains a substring.

The root is --root, the config file's root, or the nearest parent directory
holding go.mod, package.json, .git or .srcguard.yaml.

Examples:
  srcguard check app/index.tsx "selectedPet && ("
  srcguard check src/main.go "zap.NewProduction" -m "logger setup removed"`,
	Args: usageArgs(cobra.ExactArgs(2)),
	RunE: checkCommand,
}

var (
	checkRootFlag    string
	checkMessageFlag string
)

func init() {
	checkCmd.Flags().StringVar(&checkRootFlag, "root", getEnvString("SRCGUARD_ROOT", ""), "Project root (env: SRCGUARD_ROOT)")
	checkCmd.Flags().StringVarP(&checkMessageFlag, "message", "m", "", "Message reported when the substring is missing")
}

func checkCommand(cmd *cobra.Command, args []string) error {
	root, err := checkRoot(cmd)
	if err != nil {
		return err
	}

	if noColorFlag {
		color.NoColor = true
	}

	rel, substr := args[0], args[1]
	err = guard.CheckContains(root, rel, substr, checkMessageFlag)
	if err == nil {
		if !quietFlag {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s contains %q\n", color.GreenString("✓"), rel, substr)
		}
		return nil
	}

	switch {
	case errors.Is(err, guard.ErrAssertion):
		fmt.Fprintf(cmd.OutOrStdout(), "%s %v\n", color.RedString("✗"), err)
		return &ExitError{Code: ExitTestFailure}
	case errors.Is(err, guard.ErrIO):
		fmt.Fprintf(cmd.OutOrStdout(), "%s %v\n", color.MagentaString("!"), err)
		return &ExitError{Code: ExitIOError}
	default:
		return usageError(err)
	}
}

func checkRoot(cmd *cobra.Command) (string, error) {
	if explicit(cmd, "root", "SRCGUARD_ROOT") {
		root, err := guard.NewProjectRoot(checkRootFlag)
		if err != nil {
			return "", usageError(err)
		}
		return root.String(), nil
	}

	cfg, err := config.LoadConfig(configFlag)
	if err != nil {
		return "", configError(err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	configured, err := cfg.ResolveRoot(cwd)
	if err != nil {
		return "", configError(err)
	}
	if configured != "" {
		return configured, nil
	}

	root, err := guard.FindProjectRoot(cwd, cfg.Markers...)
	if err != nil {
		return "", usageError(err)
	}
	return root.String(), nil
}
