// Package sqlite registers a SQLite driver (modernc.org/sqlite, no cgo)
// with the stdsql registry under the name "sqlite".
package sqlite

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/leapstack-labs/flowsql/pkg/driver/stdsql"
)

func init() {
	stdsql.Register("sqlite", Open)
}

// Open opens a SQLite factory. An empty dsn means an in-memory database.
func Open(dsn string, logger *slog.Logger) (*stdsql.Factory, error) {
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	return stdsql.NewFactory(db, logger), nil
}
