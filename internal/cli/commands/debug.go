package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlharvest/internal/cli/config"
	"github.com/leapstack-labs/sqlharvest/internal/corpus"
	"github.com/leapstack-labs/sqlharvest/internal/engine"
	"github.com/leapstack-labs/sqlharvest/internal/report"
	"github.com/leapstack-labs/sqlharvest/internal/state"
)

// DebugOptions holds flags for the debug command.
type DebugOptions struct {
	REPL bool
	JSON bool
}

// NewDebugCommand creates the debug command: the same pipeline as
// parse, run synchronously in the foreground without a sink, plus an
// interactive statement REPL.
func NewDebugCommand() *cobra.Command {
	opts := &DebugOptions{}

	cmd := &cobra.Command{
		Use:   "debug",
		Short: "Run the pipeline synchronously for debugging",
		Example: `  # parse one file and print what was harvested
  sqlharvest debug --sample file:acme/shop/schema.sql

  # single statement by index
  sqlharvest debug --sample stmt:acme/shop/schema.sql:3

  # interactive statement prompt
  sqlharvest debug --repl`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())
			if opts.REPL {
				return runREPL(cmd, cfg)
			}
			return runDebug(cmd, cfg, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.REPL, "repl", false, "Read statements interactively instead of scanning the corpus")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print harvested entities as JSON")
	return cmd
}

func runDebug(cmd *cobra.Command, cfg *config.Config, opts *DebugOptions) error {
	ctx := cmd.Context()
	logger := config.GetLogger(ctx)

	units, sample, err := scanUnits(cfg)
	if err != nil {
		return err
	}

	// No sink: debug runs leave no state behind.
	eng := newEngine(cfg, sample, logger, nil)
	stats, err := eng.Run(ctx, "", units)
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
		Duration: stats.Duration,
	})

	if opts.JSON {
		return printUnitsJSON(cmd, eng, units)
	}
	return nil
}

// printUnitsJSON reruns each unit through the text pipeline and dumps
// the harvested entities. Debug corpora are small, so the second pass
// is cheaper than threading full results out of the pool.
func printUnitsJSON(cmd *cobra.Command, eng *engine.Engine, units []corpus.Unit) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	for _, u := range units {
		var sb strings.Builder
		for _, f := range u.Files {
			data, err := os.ReadFile(f.Path)
			if err != nil {
				return err
			}
			sb.Write(data)
			sb.WriteString("\n;\n")
		}
		res, err := eng.ProcessText(cmd.Context(), u.Key, sb.String())
		if err != nil {
			return err
		}
		if err := enc.Encode(debugView(res)); err != nil {
			return err
		}
	}
	return nil
}

func debugView(res *engine.UnitResult) map[string]any {
	var tables []json.RawMessage
	for _, t := range res.Catalog.Tables() {
		row, err := state.EncodeTable(res.Unit.Key, t)
		if err != nil {
			continue
		}
		tables = append(tables, json.RawMessage(row.Definition))
	}
	return map[string]any{
		"unit":     res.Unit.Key,
		"tables":   tables,
		"queries":  res.Queries,
		"failures": res.Failures,
	}
}

func runREPL(cmd *cobra.Command, cfg *config.Config) error {
	ctx := cmd.Context()
	logger := config.GetLogger(ctx)
	eng := newEngine(cfg, corpus.Sample{Statement: -1}, logger, nil)

	historyFile := filepath.Join(cfg.OutputDir, "debug_history")
	_ = os.MkdirAll(cfg.OutputDir, 0750)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "sqlharvest> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "SQLHarvest statement REPL")
	fmt.Fprintln(out, "End statements with ; | .quit to exit, .reset to clear the catalog")
	fmt.Fprintln(out)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	var buffer strings.Builder
	session := strings.Builder{}
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buffer.Reset()
			rl.SetPrompt("sqlharvest> ")
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch line {
		case ".quit", ".exit":
			return nil
		case ".reset":
			session.Reset()
			fmt.Fprintln(out, "catalog cleared")
			continue
		}

		buffer.WriteString(line)
		buffer.WriteString("\n")
		if !strings.HasSuffix(line, ";") {
			rl.SetPrompt("       ...> ")
			continue
		}
		rl.SetPrompt("sqlharvest> ")

		// The whole session replays each time so DDL entered earlier
		// stays visible to later queries.
		session.WriteString(buffer.String())
		buffer.Reset()

		res, err := eng.ProcessText(ctx, "repl", session.String())
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		if err := enc.Encode(debugView(res)); err != nil {
			return err
		}
	}
	return nil
}
