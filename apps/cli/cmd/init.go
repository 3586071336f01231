package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/abdul-hamid-achik/srcguard/packages/core/config"
	"github.com/abdul-hamid-achik/srcguard/packages/scaffold"
	"github.com/spf13/cobra"
)

var (
	forceInit        bool
	dryRunInit       bool
	skipScaffoldInit bool
	dirInit          string
)

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Bootstrap a project and its guard suite",
	Long: `Bootstrap a project in the given directory.

init prints a banner, runs the scaffold steps from the config file in order
(for example a project generator followed by a dependency install), then
writes:
  - .srcguard.yaml           - Configuration file
  - guards/<name>.guard.yaml - Starter guard suite

{name} and {dir} in step arguments are replaced with the project name and
directory.

Examples:
  srcguard init
  srcguard init petapp --dir ./petapp
  srcguard init --dry-run
  srcguard init --skip-scaffold --force`,
	Args: usageArgs(cobra.MaximumNArgs(1)),
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
	initCmd.Flags().BoolVar(&dryRunInit, "dry-run", false, "Print the scaffold commands without running them")
	initCmd.Flags().BoolVar(&skipScaffoldInit, "skip-scaffold", false, "Only write the starter files")
	initCmd.Flags().StringVar(&dirInit, "dir", ".", "Project directory")
}

func initCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFlag)
	if err != nil {
		return configError(err)
	}

	dir, err := filepath.Abs(dirInit)
	if err != nil {
		return usageError(err)
	}

	opts := scaffold.Options{
		Version:      version,
		Dir:          dir,
		DryRun:       dryRunInit,
		Force:        forceInit,
		SkipScaffold: skipScaffoldInit,
	}
	if len(args) > 0 {
		opts.Name = args[0]
	}
	if cfg.Scaffold != nil {
		opts.Banner = cfg.Scaffold.Banner
		opts.Steps = cfg.Scaffold.Steps
	}

	b := scaffold.New(
		scaffold.WithOutput(cmd.OutOrStdout()),
		scaffold.WithLogger(logger),
	)

	report, err := b.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}

	if dryRunInit {
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nsrcguard project initialized!\n")
	if len(report.Created) > 0 || len(report.Kept) > 0 {
		fmt.Fprintf(out, "Run 'srcguard run %s' to execute the starter checks.\n", filepath.Join(dirInit, scaffold.SuitesDir))
	}

	return nil
}
