package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Goraved/aqareport/internal/config"
	"github.com/Goraved/aqareport/internal/history"
	"github.com/Goraved/aqareport/internal/stats"
)

type historyFlags struct {
	path   string
	limit  int
	window int
	json   bool
}

func newHistoryCmd(a *app) *cobra.Command {
	flags := &historyFlags{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the run history database",
	}
	cmd.PersistentFlags().StringVar(&flags.path, "db", "", "History database (default from config)")
	cmd.PersistentFlags().BoolVar(&flags.json, "json", false, "Print JSON instead of a table")

	runs := &cobra.Command{
		Use:   "runs",
		Short: "List the most recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.openHistory(cmd, flags)
			if err != nil {
				return err
			}
			defer h.Close()
			list, err := h.RecentRuns(cmd.Context(), flags.limit)
			if err != nil {
				return err
			}
			if flags.json {
				return a.printJSON(list)
			}
			rows := make([][]string, 0, len(list))
			for _, r := range list {
				rows = append(rows, []string{
					r.ID.String(),
					stats.FormatTimestamp(r.StartedAt),
					fmt.Sprintf("%d", r.Total),
					fmt.Sprintf("%d", r.Failed+r.Errors),
					fmt.Sprintf("%.2f%%", r.SuccessRate),
					r.JobID,
				})
			}
			a.out.Table([]string{"RUN", "STARTED", "TOTAL", "FAILED", "SUCCESS", "JOB"}, rows)
			return nil
		},
	}
	runs.Flags().IntVarP(&flags.limit, "limit", "n", 20, "Number of runs to show")

	flaky := &cobra.Command{
		Use:   "flaky",
		Short: "List tests that both passed and failed in recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.openHistory(cmd, flags)
			if err != nil {
				return err
			}
			defer h.Close()
			window := flags.window
			if window <= 0 && a.cfg.History != nil {
				window = a.cfg.History.FlakyWindow
			}
			list, err := h.Flaky(cmd.Context(), window)
			if err != nil {
				return err
			}
			if flags.json {
				return a.printJSON(list)
			}
			if len(list) == 0 {
				a.out.Info("No flaky tests found.")
				return nil
			}
			rows := make([][]string, 0, len(list))
			for _, f := range list {
				rows = append(rows, []string{
					f.NodeID,
					fmt.Sprintf("%d", f.Runs),
					fmt.Sprintf("%d", f.Passes),
					fmt.Sprintf("%d", f.Failures),
					fmt.Sprintf("%.0f%%", f.FlakeRate*100),
				})
			}
			a.out.Table([]string{"TEST", "RUNS", "PASSES", "FAILURES", "FLAKE RATE"}, rows)
			return nil
		},
	}
	flaky.Flags().IntVarP(&flags.window, "window", "w", 0, fmt.Sprintf("Number of recent runs to look at (default %d)", config.DefaultFlakyWindow))

	cmd.AddCommand(runs, flaky)
	return cmd
}

func (a *app) openHistory(cmd *cobra.Command, flags *historyFlags) (*history.Store, error) {
	path := firstNonEmpty(flags.path, historyPath(a.cfg))
	if path == "" {
		return nil, configError(fmt.Errorf("no history database: pass --db or set %s", config.EnvHistoryPath))
	}
	return history.Open(cmd.Context(), path)
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out.Out())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
