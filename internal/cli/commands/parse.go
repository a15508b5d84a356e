package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlharvest/internal/cli/config"
	"github.com/leapstack-labs/sqlharvest/internal/report"
	"github.com/leapstack-labs/sqlharvest/internal/state"
)

// ParseOptions holds flags for the parse command.
type ParseOptions struct {
	Foreground bool
	Watch      bool
}

// NewParseCommand creates the parse command: the full parallel run.
// By default it re-executes itself detached, pointing stdout and
// stderr at a timestamped log file, and returns to the shell at once.
func NewParseCommand() *cobra.Command {
	opts := &ParseOptions{}

	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Harvest the corpus in a detached parallel run",
		Example: `  # detached run over ./corpus with 8 workers
  sqlharvest parse --corpus-dir ./corpus --workers 8

  # stay in the foreground and keep processing files as they appear
  sqlharvest parse --foreground --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())
			if !opts.Foreground {
				return detach(cmd, cfg)
			}
			return runParse(cmd, cfg, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Foreground, "foreground", false, "Run synchronously instead of detaching")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Keep processing files added to the corpus while running")
	return cmd
}

// detach re-executes the current invocation with --foreground, output
// redirected to a timestamped log file, and exits without waiting.
func detach(cmd *cobra.Command, cfg *config.Config) error {
	if err := os.MkdirAll(cfg.OutputDir, 0750); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	logPath := filepath.Join(cfg.OutputDir,
		fmt.Sprintf("sqlharvest_parse_%s.log", time.Now().Format("20060102_150405")))
	logFile, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("creating log file: %w", err)
	}
	defer logFile.Close()

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating executable: %w", err)
	}

	child := exec.Command(exe, append(os.Args[1:], "--foreground")...)
	child.Stdout = logFile
	child.Stderr = logFile
	if err := child.Start(); err != nil {
		return fmt.Errorf("starting detached run: %w", err)
	}
	// Not waited on; the child outlives this process.
	_ = child.Process.Release()

	fmt.Fprintf(cmd.OutOrStdout(), "parse running detached (pid %d), log: %s\n",
		child.Process.Pid, logPath)
	return nil
}

func runParse(cmd *cobra.Command, cfg *config.Config, opts *ParseOptions) error {
	ctx := cmd.Context()
	logger := config.GetLogger(ctx)

	units, sample, err := scanUnits(cfg)
	if err != nil {
		return err
	}

	store, err := state.Open(cfg.StateDSN)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	cfgEcho, _ := json.Marshal(cfg)
	run, err := store.CreateRun(ctx, string(cfgEcho))
	if err != nil {
		return err
	}
	logger.Info("run started", "run", run.ID, "units", len(units), "workers", cfg.Workers)

	eng := newEngine(cfg, sample, logger, store)
	stats, err := eng.Run(ctx, run.ID, units)

	status := state.RunSuccess
	if err != nil {
		status = state.RunFailed
	}
	if cerr := store.CompleteRun(ctx, run.ID, status); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	report.WriteSummary(cmd.OutOrStdout(), report.Summary{
		Units:    stats.Units,
		OK:       stats.UnitsOK,
		Failed:   stats.Failed,
		TimedOut: stats.TimedOut,
		Tables:   stats.Tables,
		Queries:  stats.Queries,
		Batches:  stats.Batches,
		Duration: stats.Duration,
	})
	fmt.Fprintf(cmd.OutOrStdout(), "run id: %s\n", run.ID)

	if opts.Watch {
		return eng.Watch(ctx, run.ID, cfg.CorpusDir)
	}
	return nil
}
