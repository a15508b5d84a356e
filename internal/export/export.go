// Package export turns a run's merged table collection into
// training-data CSV: one row per distinct table definition.
package export

import (
	"context"
	"crypto/sha1"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/leapstack-labs/sqlharvest/internal/state"
)

// Options filter and shape the export.
type Options struct {
	// MinNotNull and MaxNotNull bound the fraction of NOT NULL columns
	// a table must have, in [0,1]. Zero MaxNotNull means no upper bound.
	MinNotNull float64
	MaxNotNull float64
}

// Result counts what the export wrote and skipped.
type Result struct {
	Written    int
	Duplicates int
	Filtered   int
}

// Run streams the merged tables of runID as CSV rows `hash_id,table_def`.
// Tables deduplicate on (name, sorted column names); the not-null
// fraction filters apply after dedup.
func Run(ctx context.Context, store *state.Store, runID string, w io.Writer, opts Options) (*Result, error) {
	rows, err := store.MergedTables(ctx, runID)
	if err != nil {
		return nil, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"hash_id", "table_def"}); err != nil {
		return nil, fmt.Errorf("writing export header: %w", err)
	}

	res := &Result{}
	seen := make(map[string]bool)
	for _, row := range rows {
		doc, err := state.DecodeTable(row)
		if err != nil {
			return nil, err
		}

		key := dedupKey(doc)
		if seen[key] {
			res.Duplicates++
			continue
		}
		seen[key] = true

		if !passesNotNull(doc, opts) {
			res.Filtered++
			continue
		}

		def := Serialize(doc)
		if err := cw.Write([]string{hashID(def), def}); err != nil {
			return nil, fmt.Errorf("writing export row: %w", err)
		}
		res.Written++
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("flushing export: %w", err)
	}
	return res, nil
}

// Serialize renders a table definition in declaration order, each
// column followed by its markers.
func Serialize(doc *state.TableDoc) string {
	var sb strings.Builder
	sb.WriteString(doc.Name)
	sb.WriteString(" :")

	unique := uniqueColumns(doc)
	for _, c := range doc.Columns {
		sb.WriteByte(' ')
		sb.WriteString(c.Name)
		if c.Category != "" {
			sb.WriteByte(' ')
			sb.WriteString(c.Category)
		}
		if unique[c.Name] {
			sb.WriteString(" [UNIQUE]")
		}
		if c.NotNull {
			sb.WriteString(" [NOTNULL]")
		}
		sb.WriteByte(',')
	}
	return strings.TrimSuffix(sb.String(), ",")
}

// uniqueColumns marks columns that are a single-column primary or
// unique key.
func uniqueColumns(doc *state.TableDoc) map[string]bool {
	out := make(map[string]bool)
	for _, k := range doc.Keys {
		if len(k.Columns) == 1 && (k.Kind == "primary" || k.Kind == "unique") {
			out[k.Columns[0]] = true
		}
	}
	return out
}

func dedupKey(doc *state.TableDoc) string {
	names := make([]string, 0, len(doc.Columns))
	for _, c := range doc.Columns {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return doc.Name + "|" + strings.Join(names, ",")
}

func passesNotNull(doc *state.TableDoc, opts Options) bool {
	if len(doc.Columns) == 0 {
		return false
	}
	notNull := 0
	for _, c := range doc.Columns {
		if c.NotNull {
			notNull++
		}
	}
	frac := float64(notNull) / float64(len(doc.Columns))
	if frac < opts.MinNotNull {
		return false
	}
	if opts.MaxNotNull > 0 && frac > opts.MaxNotNull {
		return false
	}
	return true
}

func hashID(def string) string {
	sum := sha1.Sum([]byte(def))
	return hex.EncodeToString(sum[:])
}
