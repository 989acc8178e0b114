package cli

import (
	"github.com/spf13/cobra"

	"github.com/Goraved/aqareport/internal/query"
	"github.com/Goraved/aqareport/internal/store"
)

func newQueryCmd(a *app) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "query <expression>",
		Short: "Run a jq expression over the aggregated results",
		Long: `Evaluates a jq expression with the array of aggregated result records as
input and prints every value it emits, one per line.`,
		Example: `  aqareport query '.[] | select(.outcome == "failed") | .nodeid' -r
  aqareport query 'group_by(.worker_id) | map({(.[0].worker_id): length}) | add'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := store.Aggregate(a.cfg.Results.Dir)
			if err != nil {
				return err
			}
			values, err := query.Run(cmd.Context(), args[0], results)
			if err != nil {
				return err
			}
			return query.Write(a.out.Out(), values, raw)
		},
	}
	cmd.Flags().BoolVarP(&raw, "raw-output", "r", false, "Print strings without JSON quotes")
	return cmd
}
