// Package report renders run statistics as text tables.
package report

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/sqlharvest/internal/state"
)

// Run prints a run summary: per-unit outcomes, failure counts by
// kind, and missing-table ratios per repository.
func Run(ctx context.Context, store *state.Store, runID string, w io.Writer) error {
	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	units, err := store.ListUnits(ctx, runID)
	if err != nil {
		return err
	}
	failures, err := store.FailureCounts(ctx, runID)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "run %s  status=%s  started=%s\n\n",
		run.ID, run.Status, run.StartedAt.Format("2006-01-02 15:04:05"))

	writeUnitTable(w, units)
	writeFailureTable(w, failures)
	writeMissingTable(w, units)
	return nil
}

func writeUnitTable(w io.Writer, units []state.UnitRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Units")
	t.AppendHeader(table.Row{"Unit", "Repo", "Status", "Tables", "Queries", "Duration (ms)"})
	for _, u := range units {
		t.AppendRow(table.Row{u.Key, u.Repo, u.Status, u.TableCount, u.QueryCount, u.DurationMS})
	}
	t.Render()
	fmt.Fprintln(w)
}

func writeFailureTable(w io.Writer, failures map[string]int) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Failures")
	t.AppendHeader(table.Row{"Kind", "Count"})

	kinds := make([]string, 0, len(failures))
	for k := range failures {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		t.AppendRow(table.Row{k, failures[k]})
	}
	if len(kinds) == 0 {
		t.AppendRow(table.Row{"(none)", 0})
	}
	t.Render()
	fmt.Fprintln(w)
}

// writeMissingTable reports, per repository, how many FROM references
// resolved to no harvested table.
func writeMissingTable(w io.Writer, units []state.UnitRecord) {
	type agg struct {
		missing int
		queries int
	}
	byRepo := make(map[string]*agg)
	for _, u := range units {
		a, ok := byRepo[u.Repo]
		if !ok {
			a = &agg{}
			byRepo[u.Repo] = a
		}
		a.missing += u.MissingRefs
		a.queries += u.QueryCount
	}

	repos := make([]string, 0, len(byRepo))
	for r := range byRepo {
		repos = append(repos, r)
	}
	sort.Strings(repos)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Missing table references")
	t.AppendHeader(table.Row{"Repo", "Missing", "Queries", "Ratio"})
	for _, r := range repos {
		a := byRepo[r]
		ratio := 0.0
		if a.queries > 0 {
			ratio = float64(a.missing) / float64(a.queries)
		}
		t.AppendRow(table.Row{r, a.missing, a.queries, fmt.Sprintf("%.2f", ratio)})
	}
	t.Render()
}

// Summary is an in-memory run result for printing without a store
// round trip.
type Summary struct {
	Units    int
	OK       int
	Failed   int
	TimedOut int
	Tables   int
	Queries  int
	Batches  int
	Duration time.Duration
}

// WriteSummary prints the end-of-run totals.
func WriteSummary(w io.Writer, s Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Run summary")
	t.AppendRows([]table.Row{
		{"units", fmt.Sprintf("%d (%d ok, %d failed, %d timed out)", s.Units, s.OK, s.Failed, s.TimedOut)},
		{"tables", s.Tables},
		{"queries", s.Queries},
		{"batches", s.Batches},
		{"duration", s.Duration.Round(time.Millisecond).String()},
	})
	t.Render()
}
