// Package duckdb registers a DuckDB driver with the stdsql registry
// under the name "duckdb".
package duckdb

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/leapstack-labs/flowsql/pkg/driver/stdsql"
)

func init() {
	stdsql.Register("duckdb", Open)
}

// Open opens a DuckDB factory. An empty dsn means an in-memory database.
func Open(dsn string, logger *slog.Logger) (*stdsql.Factory, error) {
	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening duckdb database: %w", err)
	}
	return stdsql.NewFactory(db, logger), nil
}
