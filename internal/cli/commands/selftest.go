package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlharvest/internal/cli/config"
	"github.com/leapstack-labs/sqlharvest/internal/corpus"
	"github.com/leapstack-labs/sqlharvest/internal/engine"
)

// NewSelftestCommand creates the selftest command. It runs a built-in
// script through the full pipeline and verifies the results, proving
// the dispatcher wiring without needing a corpus.
func NewSelftestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "selftest",
		Short: "Verify the pipeline against a built-in script",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := config.GetLogger(cmd.Context())

			eng := engine.New(engine.Config{
				Workers: 1,
				Sample:  corpus.Sample{Statement: -1},
				Logger:  logger,
			})
			if err := eng.Selftest(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "selftest ok")
			return nil
		},
	}
}
