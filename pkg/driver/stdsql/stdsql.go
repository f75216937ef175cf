// Package stdsql adapts any database/sql driver to the flowsql driver
// SPI. Named driver registrations live in subdirectories (sqlite,
// postgres, duckdb); register additional drivers with Register.
package stdsql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/flowsql/pkg/driver"
	"github.com/leapstack-labs/flowsql/pkg/expr"
)

// Factory implements driver.ConnectionFactory over a *sql.DB. The
// sql.DB's own pool supplies the physical connections.
type Factory struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewFactory wraps an existing *sql.DB. If logger is nil, a discard
// logger is used.
func NewFactory(db *sql.DB, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Factory{db: db, logger: logger}
}

// DB returns the wrapped *sql.DB.
func (f *Factory) DB() *sql.DB {
	return f.db
}

// Close closes the underlying pool.
func (f *Factory) Close() error {
	return f.db.Close()
}

// Create checks a connection out of the pool.
func (f *Factory) Create(ctx context.Context) (driver.Connection, error) {
	c, err := f.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	return &connection{conn: c, logger: f.logger}, nil
}

type connection struct {
	conn   *sql.Conn
	tx     *sql.Tx
	logger *slog.Logger
}

// querier is the execution surface shared by *sql.Conn and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (c *connection) querier() querier {
	if c.tx != nil {
		return c.tx
	}
	return c.conn
}

func (c *connection) CreateStatement(sqlText string) (driver.Statement, error) {
	return &statement{conn: c, sql: sqlText}, nil
}

func (c *connection) BeginTransaction(ctx context.Context, level driver.IsolationLevel) error {
	if c.tx != nil {
		return fmt.Errorf("transaction already in progress")
	}
	tx, err := c.conn.BeginTx(ctx, &sql.TxOptions{Isolation: isolationOf(level)})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	c.tx = tx
	return nil
}

func (c *connection) Commit(ctx context.Context) error {
	if c.tx == nil {
		return fmt.Errorf("no transaction in progress")
	}
	err := c.tx.Commit()
	c.tx = nil
	if err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (c *connection) Rollback(ctx context.Context) error {
	if c.tx == nil {
		return fmt.Errorf("no transaction in progress")
	}
	err := c.tx.Rollback()
	c.tx = nil
	if err != nil {
		return fmt.Errorf("rolling back transaction: %w", err)
	}
	return nil
}

func (c *connection) Close(ctx context.Context) error {
	if c.tx != nil {
		// An unresolved transaction rolls back on release.
		if err := c.tx.Rollback(); err != nil {
			c.logger.Error("rollback on connection close failed", "error", err)
		}
		c.tx = nil
	}
	return c.conn.Close()
}

func isolationOf(level driver.IsolationLevel) sql.IsolationLevel {
	switch level {
	case driver.IsolationReadUncommitted:
		return sql.LevelReadUncommitted
	case driver.IsolationReadCommitted:
		return sql.LevelReadCommitted
	case driver.IsolationRepeatableRead:
		return sql.LevelRepeatableRead
	case driver.IsolationSerializable:
		return sql.LevelSerializable
	default:
		return sql.LevelDefault
	}
}

type statement struct {
	conn       *connection
	sql        string
	args       []any
	returnKeys bool
	keyColumns []string
}

func (s *statement) Bind(index int, _ expr.Type, value any) error {
	if index < 0 {
		return fmt.Errorf("parameter index %d out of range", index)
	}
	for len(s.args) <= index {
		s.args = append(s.args, nil)
	}
	s.args[index] = value
	return nil
}

func (s *statement) ReturnGeneratedValues(columns ...string) {
	s.returnKeys = true
	s.keyColumns = columns
}

func (s *statement) Execute(ctx context.Context) (driver.Result, error) {
	if s.returnKeys {
		return s.executeWithKeys(ctx)
	}
	// database/sql splits row-returning and count-returning execution,
	// so the statement runs when the first result accessor is consumed.
	return &lazyResult{stmt: s}, nil
}

// executeWithKeys runs the statement eagerly and synthesizes one
// generated-key row from LastInsertId, under the first requested column
// name (default "ID").
func (s *statement) executeWithKeys(ctx context.Context) (driver.Result, error) {
	res, err := s.conn.querier().ExecContext(ctx, s.sql, s.args...)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("reading affected rows: %w", err)
	}
	keyColumn := "ID"
	if len(s.keyColumns) > 0 {
		keyColumn = s.keyColumns[0]
	}
	var keys []map[string]any
	if id, iderr := res.LastInsertId(); iderr != nil {
		// Some drivers (pgx among them) have no LastInsertId; the key
		// rows are then simply empty.
		s.conn.logger.Debug("generated key unavailable", "error", iderr)
	} else if id != 0 {
		keys = append(keys, map[string]any{keyColumn: id})
	}
	return &keysResult{affected: affected, column: keyColumn, keys: keys}, nil
}

// lazyResult defers execution to the consumed accessor: RowsUpdated runs
// ExecContext, Rows runs QueryContext. Only one may be consumed.
type lazyResult struct {
	stmt *statement
	used bool
}

func (r *lazyResult) RowsUpdated(ctx context.Context) (int64, error) {
	if r.used {
		return 0, fmt.Errorf("result already consumed")
	}
	r.used = true
	res, err := r.stmt.conn.querier().ExecContext(ctx, r.stmt.sql, r.stmt.args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *lazyResult) Rows(ctx context.Context) (driver.RowCursor, error) {
	if r.used {
		return nil, fmt.Errorf("result already consumed")
	}
	r.used = true
	rows, err := r.stmt.conn.querier().QueryContext(ctx, r.stmt.sql, r.stmt.args...)
	if err != nil {
		return nil, err
	}
	return newRowCursor(rows)
}

// keysResult serves a cached affected-row count plus the synthesized
// generated-key rows; both accessors are available.
type keysResult struct {
	affected int64
	column   string
	keys     []map[string]any
}

func (r *keysResult) RowsUpdated(ctx context.Context) (int64, error) {
	return r.affected, nil
}

func (r *keysResult) Rows(ctx context.Context) (driver.RowCursor, error) {
	rows := make([][]any, len(r.keys))
	for i, k := range r.keys {
		rows[i] = []any{k[r.column]}
	}
	return newMemCursor([]string{r.column}, rows), nil
}
