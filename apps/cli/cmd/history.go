package cmd

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/abdul-hamid-achik/srcguard/packages/core/config"
	"github.com/abdul-hamid-achik/srcguard/packages/history"
	"github.com/spf13/cobra"
)

var (
	historyDSNFlag   string
	historyLimitFlag int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs",
	Long: `List runs recorded with 'srcguard run --history'.

Examples:
  srcguard history --history sqlite:.srcguard/history.db
  srcguard history --limit 5
  srcguard history show 3f2a9c1b`,
	Args: usageArgs(cobra.NoArgs),
	RunE: historyCommand,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the checks of one recorded run",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE:  historyShowCommand,
}

func init() {
	historyCmd.PersistentFlags().StringVar(&historyDSNFlag, "history", getEnvString("SRCGUARD_HISTORY", ""), "SQLite history database (env: SRCGUARD_HISTORY)")
	historyCmd.Flags().IntVar(&historyLimitFlag, "limit", history.DefaultListLimit, "Number of runs to show")
	historyCmd.AddCommand(historyShowCmd)
}

func openHistory() (*history.Store, error) {
	dsn := historyDSNFlag
	if dsn == "" {
		cfg, err := config.LoadConfig(configFlag)
		if err != nil {
			return nil, configError(err)
		}
		dsn = cfg.History
	}
	if dsn == "" {
		return nil, usageError(errors.New("no history database configured (use --history or set history in .srcguard.yaml)"))
	}

	store, err := history.Open(dsn)
	if err != nil {
		return nil, configError(err)
	}
	return store, nil
}

func historyCommand(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(cmd.Context(), historyLimitFlag)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tDURATION\tPASSED\tFAILED\tUNREADABLE\tSKIPPED\tEXIT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%dms\t%d\t%d\t%d\t%d\t%d\n",
			shortID(r.ID),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Duration.Milliseconds(),
			r.Passed, r.Failed, r.Errored, r.Skipped, r.ExitCode)
	}
	return tw.Flush()
}

func historyShowCommand(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(cmd.Context(), args[0])
	if err != nil {
		if errors.Is(err, history.ErrNotFound) || errors.Is(err, history.ErrAmbiguous) {
			return usageError(err)
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s\n", run.ID)
	fmt.Fprintf(out, "Started:  %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Duration: %dms\n", run.Duration.Milliseconds())
	fmt.Fprintf(out, "Exit:     %d\n\n", run.ExitCode)

	suite := ""
	for _, c := range run.Cases {
		if c.Suite != suite {
			suite = c.Suite
			fmt.Fprintf(out, "%s:\n", suite)
		}
		fmt.Fprintf(out, "  %-5s %s (%s %s)\n", strings.ToUpper(c.Verdict), c.Name, c.Kind, c.File)
		if c.Message != "" && c.Verdict != "pass" {
			fmt.Fprintf(out, "        %s\n", c.Message)
		}
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
