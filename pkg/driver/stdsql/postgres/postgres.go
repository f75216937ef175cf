// Package postgres registers a PostgreSQL driver (pgx through
// database/sql) with the stdsql registry under the name "postgres".
package postgres

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/leapstack-labs/flowsql/pkg/driver/stdsql"
)

func init() {
	stdsql.Register("postgres", Open)
}

// Open opens a PostgreSQL factory. The dsn is a pgx connection string,
// either key=value or URL form.
//
// pgx does not implement LastInsertId, so generated-key retrieval yields
// no key rows here; use a RETURNING clause and a query instead.
func Open(dsn string, logger *slog.Logger) (*stdsql.Factory, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	return stdsql.NewFactory(db, logger), nil
}
