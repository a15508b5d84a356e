package state

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	pg := &Store{postgres: true}
	assert.Equal(t,
		`UPDATE runs SET status = $1, completed_at = $2 WHERE id = $3`,
		pg.rebind(`UPDATE runs SET status = ?, completed_at = ? WHERE id = ?`),
	)

	lite := &Store{}
	assert.Equal(t,
		`SELECT MAX(seq) FROM batches WHERE run_id = ?`,
		lite.rebind(`SELECT MAX(seq) FROM batches WHERE run_id = ?`),
	)
}

// The postgres path rewrites placeholders before the driver sees the
// statement; a mock connection checks the rewritten text.
func TestPostgresPlaceholderRewrite(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := OpenDB(db, true)

	mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE runs SET status = $1, completed_at = $2 WHERE id = $3`)).
		WithArgs(RunSuccess, sqlmock.AnyArg(), "run-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.CompleteRun(context.Background(), "run-1", RunSuccess))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteRunMissingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := OpenDB(db, false)

	mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE runs SET status = ?, completed_at = ? WHERE id = ?`)).
		WithArgs(RunFailed, sqlmock.AnyArg(), "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = s.CompleteRun(context.Background(), "ghost", RunFailed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}
