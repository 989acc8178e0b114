package cli

import (
	"github.com/spf13/cobra"

	"github.com/Goraved/aqareport/internal/store"
)

func newCleanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove the worker result files",
		Long:  `Removes every worker file from the results directory, so that the next run starts from scratch.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := store.Clean(a.cfg.Results.Dir)
			if err != nil {
				return err
			}
			a.out.Success("Removed %d worker files from %s", n, a.cfg.Results.Dir)
			return nil
		},
	}
}
