package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlharvest/internal/cli/config"
	"github.com/leapstack-labs/sqlharvest/internal/report"
	"github.com/leapstack-labs/sqlharvest/internal/state"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [run-id]",
		Short: "Show unit outcomes and failure counts for a run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())

			store, err := state.Open(cfg.StateDSN)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var arg string
			if len(args) > 0 {
				arg = args[0]
			}
			runID, err := resolveRunID(cmd.Context(), store, arg)
			if err != nil {
				return err
			}
			return report.Run(cmd.Context(), store, runID, cmd.OutOrStdout())
		},
	}
}
