// Package cli provides the command-line interface for sqlharvest.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlharvest/internal/cli/commands"
	"github.com/leapstack-labs/sqlharvest/internal/cli/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sqlharvest",
		Short: "SQLHarvest - schema and query mining from raw SQL corpora",
		Long: `SQLHarvest extracts structured schema and query semantics from large
corpora of raw, dialect-mixed SQL files: tables with columns, keys,
foreign keys and indices, plus the join/projection/aggregation/
selection/group-by structure of every query scope.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			var err error
			cfg, err = config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			ctx := context.WithValue(cmd.Context(), config.ConfigKey(), cfg)
			logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			ctx = context.WithValue(ctx, config.LoggerKey(), logger)
			cmd.SetContext(ctx)

			if cfg.Verbose {
				if configFile := config.GetConfigFileUsed(); configFile != "" {
					fmt.Fprintf(os.Stderr, "Using config file: %s\n", configFile)
				}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
SQL corpus mining for training data
`)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./sqlharvest.yaml)")
	rootCmd.PersistentFlags().String("corpus-dir", "", "Path to the SQL corpus directory")
	rootCmd.PersistentFlags().String("unit-mode", "", "Processing unit granularity (repo|file)")
	rootCmd.PersistentFlags().String("sample", "", "Sample spec (all | fraction | repo:<r> | file:<f> | stmt:<f>:<i>)")
	rootCmd.PersistentFlags().Int("workers", 0, "Worker pool size")
	rootCmd.PersistentFlags().Duration("unit-timeout", 0, "Wall-clock timeout per unit")
	rootCmd.PersistentFlags().Duration("statement-timeout", 0, "Guard timeout per statement")
	rootCmd.PersistentFlags().Int("batch-size", 0, "Units per checkpoint batch")
	rootCmd.PersistentFlags().String("state-dsn", "", "Sink DSN (SQLite path or postgres:// URL)")
	rootCmd.PersistentFlags().String("output-dir", "", "Directory for exports and logs")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	_ = rootCmd.RegisterFlagCompletionFunc("unit-mode", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"repo", "file"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewParseCommand())
	rootCmd.AddCommand(commands.NewDebugCommand())
	rootCmd.AddCommand(commands.NewSelftestCommand())
	rootCmd.AddCommand(commands.NewStatsCommand())
	rootCmd.AddCommand(commands.NewExportCommand())
	rootCmd.AddCommand(commands.NewMergeCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for sqlharvest.

To load completions:

Bash:
  $ source <(sqlharvest completion bash)

Zsh:
  $ sqlharvest completion zsh > "${fpath[1]}/_sqlharvest"

Fish:
  $ sqlharvest completion fish | source

PowerShell:
  PS> sqlharvest completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}
	return cmd
}
