package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlharvest/internal/cli/config"
	"github.com/leapstack-labs/sqlharvest/internal/export"
	"github.com/leapstack-labs/sqlharvest/internal/state"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	Out        string
	MinNotNull float64
	MaxNotNull float64
}

// NewExportCommand creates the export command: training-data CSV from
// a run's merged table collection.
func NewExportCommand() *cobra.Command {
	opts := &ExportOptions{}

	cmd := &cobra.Command{
		Use:   "export [run-id]",
		Short: "Export merged tables as training-data CSV",
		Example: `  # everything from the latest merged run
  sqlharvest export

  # only tables where at least 30% of columns are NOT NULL
  sqlharvest export --min-notnull 0.3 --out tables.csv`,
		Args: cobra.MaximumNArgs(1),
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

			outPath := opts.Out
			if outPath == "" {
				if err := os.MkdirAll(cfg.OutputDir, 0750); err != nil {
					return fmt.Errorf("creating output dir: %w", err)
				}
				outPath = filepath.Join(cfg.OutputDir, "tables.csv")
			}
			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("creating export file: %w", err)
			}
			defer f.Close()

			result, err := export.Run(cmd.Context(), store, runID, f, export.Options{
				MinNotNull: opts.MinNotNull,
				MaxNotNull: opts.MaxNotNull,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "exported %d tables to %s (%d duplicates, %d filtered)\n",
				result.Written, outPath, result.Duplicates, result.Filtered)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Out, "out", "", "Output CSV path (default: <output-dir>/tables.csv)")
	cmd.Flags().Float64Var(&opts.MinNotNull, "min-notnull", 0, "Minimum NOT NULL column fraction (0-1)")
	cmd.Flags().Float64Var(&opts.MaxNotNull, "max-notnull", 0, "Maximum NOT NULL column fraction (0 = no bound)")
	return cmd
}
