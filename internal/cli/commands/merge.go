package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlharvest/internal/cli/config"
	"github.com/leapstack-labs/sqlharvest/internal/state"
)

// NewMergeCommand creates the merge command: it consolidates every
// checkpoint batch of a run into one collection, reporting units that
// appeared in more than one batch.
func NewMergeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "merge [run-id]",
		Short: "Consolidate a run's checkpoint batches",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			logger := config.GetLogger(cmd.Context())

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

			result, err := store.MergeRun(cmd.Context(), runID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "merged run %s: %d units, %d tables, %d queries\n",
				runID, result.Units, result.Tables, result.Queries)
			for _, key := range result.DuplicateUnits {
				logger.Warn("duplicate unit dropped in merge", "unit", key)
			}
			if n := len(result.DuplicateUnits); n > 0 {
				fmt.Fprintf(out, "dropped %d duplicate unit(s)\n", n)
			}
			return nil
		},
	}
}
