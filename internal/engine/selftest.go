package engine

import (
	"context"
	"fmt"
)

// selftestSQL exercises every pipeline stage: table creation,
// alteration, an index, a forward foreign key, and a query with a
// join, aggregation, selection and grouping.
const selftestSQL = `
CREATE TABLE users (
    id INT PRIMARY KEY,
    name VARCHAR(100) NOT NULL,
    team_id INT REFERENCES teams(id)
);
CREATE TABLE teams (id INT PRIMARY KEY, title TEXT);
ALTER TABLE users ADD COLUMN email VARCHAR(255);
CREATE INDEX idx_users_email ON users (email);
SELECT t.title, COUNT(u.id) AS members
FROM users u JOIN teams t ON u.team_id = t.id
WHERE u.email LIKE '%@example.com'
GROUP BY t.title;
`

// Selftest runs the pipeline over a built-in script and verifies the
// dispatcher wiring end to end. It needs no corpus and no sink.
func (e *Engine) Selftest(ctx context.Context) error {
	res, err := e.ProcessText(ctx, "selftest", selftestSQL)
	if err != nil {
		return fmt.Errorf("selftest pipeline: %w", err)
	}

	if got := res.Catalog.NumTables(); got != 2 {
		return fmt.Errorf("selftest: want 2 tables, got %d", got)
	}
	users, ok := res.Catalog.Table("users")
	if !ok {
		return fmt.Errorf("selftest: users table missing")
	}
	if got := users.NumColumns(); got != 4 {
		return fmt.Errorf("selftest: want 4 users columns, got %d", got)
	}
	if len(users.ForeignKeys) != 1 || !users.ForeignKeys[0].Resolved {
		return fmt.Errorf("selftest: forward foreign key not resolved")
	}
	if len(users.Indices) != 1 {
		return fmt.Errorf("selftest: index not recorded")
	}

	if len(res.Queries) != 1 {
		return fmt.Errorf("selftest: want 1 query, got %d", len(res.Queries))
	}
	q := res.Queries[0]
	if len(q.Joins) != 1 || len(q.Aggregations) != 1 || q.Selection == nil || len(q.GroupBy) != 1 {
		return fmt.Errorf("selftest: query extraction incomplete")
	}

	for kind, n := range res.Failures {
		if n > 0 {
			return fmt.Errorf("selftest: unexpected %s failures: %d", kind, n)
		}
	}
	return nil
}
