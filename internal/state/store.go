// Package state persists run results: batched unit checkpoints during
// a run, a consolidated collection after the merge, and failure counts
// for reporting. SQLite is the default backend; a postgres DSN selects
// the pgx driver against the same schema.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// RunStatus tracks a run's lifecycle.
type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
	RunMerged  RunStatus = "merged"
)

// Run is one invocation of the pipeline.
type Run struct {
	ID          string
	Status      RunStatus
	Config      string // echo of the effective configuration, JSON
	StartedAt   time.Time
	CompletedAt *time.Time
}

// Batch is one checkpoint flush. Seq increases monotonically per run;
// the merged collection carries Seq 0.
type Batch struct {
	ID        string
	RunID     string
	Seq       int64
	UnitCount int
	CreatedAt time.Time
}

// UnitStatus is the terminal state of one processing unit.
type UnitStatus string

const (
	UnitOK       UnitStatus = "ok"
	UnitFailed   UnitStatus = "failed"
	UnitTimedOut UnitStatus = "timeout"
)

// Failure kinds counted per unit.
const (
	FailCheckTable  = "check_table"
	FailCheckColumn = "check_column"
	FailCheckQuery  = "check_query"
	FailTokenize    = "tokenize"
	FailTimeout     = "timeout"
)

// UnitRecord is the persisted summary of one processing unit.
type UnitRecord struct {
	Key         string
	Repo        string
	User        string
	Status      UnitStatus
	TableCount  int
	QueryCount  int
	MissingRefs int // FROM names that resolved to no table
	DurationMS  int64
	Failures    map[string]int
}

// TableRow is one harvested table definition.
type TableRow struct {
	UnitKey    string
	Name       string
	Definition string // JSON document, see encode.go
}

// QueryRow is one harvested query scope.
type QueryRow struct {
	UnitKey        string
	StatementIndex int
	ScopeID        int
	Definition     string
}

// UnitPayload bundles everything one unit publishes.
type UnitPayload struct {
	Unit    UnitRecord
	Tables  []TableRow
	Queries []QueryRow
}

// Store wraps the checkpoint database. Appends are serialized by the
// caller (single writer); reads may happen concurrently.
type Store struct {
	db       *sql.DB
	driver   string
	postgres bool
}

// Open connects using the driver the DSN implies: postgres:// and
// pgx: DSNs go through jackc/pgx, anything else is a SQLite path.
func Open(dsn string) (*Store, error) {
	driver := "sqlite"
	postgres := false
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		driver, postgres = "pgx", true
	case strings.HasPrefix(dsn, "pgx:"):
		driver, postgres = "pgx", true
		dsn = strings.TrimPrefix(dsn, "pgx:")
	default:
		if dsn != ":memory:" && !strings.Contains(dsn, "?") {
			dsn = dsn + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging state database: %w", err)
	}

	s := &Store{db: db, driver: driver, postgres: postgres}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenDB wraps an existing connection without migrating. Used by tests
// that drive the SQL surface through a mock.
func OpenDB(db *sql.DB, postgres bool) *Store {
	return &Store{db: db, postgres: postgres}
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *Store) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(query[i])
	}
	return sb.String()
}

func generateID() string {
	return uuid.New().String()
}

// CreateRun starts a run record.
func (s *Store) CreateRun(ctx context.Context, configJSON string) (*Run, error) {
	run := &Run{
		ID:        generateID(),
		Status:    RunRunning,
		Config:    configJSON,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO runs (id, status, config, started_at) VALUES (?, ?, ?, ?)`),
		run.ID, run.Status, run.Config, run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}
	return run, nil
}

// CompleteRun closes a run with its terminal status.
func (s *Store) CompleteRun(ctx context.Context, id string, status RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		s.rebind(`UPDATE runs SET status = ?, completed_at = ? WHERE id = ?`),
		status, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("completing run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// GetRun loads a run by id.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	run := &Run{}
	var completedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT id, status, config, started_at, completed_at FROM runs WHERE id = ?`),
		id,
	).Scan(&run.ID, &run.Status, &run.Config, &run.StartedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading run: %w", err)
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	return run, nil
}

// LatestRun returns the most recently started run, or nil when the
// store is empty.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	run := &Run{}
	var completedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, config, started_at, completed_at FROM runs ORDER BY started_at DESC LIMIT 1`,
	).Scan(&run.ID, &run.Status, &run.Config, &run.StartedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading latest run: %w", err)
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	return run, nil
}
