// Package driver defines the service-provider interface between the
// flowsql execution core and a database driver.
//
// The core never talks to a database directly: it acquires connections
// from a ConnectionFactory, creates statements, binds parameters in
// formatter order, and consumes results as a cursor of wire rows. Wire
// rows and their metadata are valid only until the cursor advances or
// the connection is released; pkg/row snapshots them into detached
// values.
//
// Concrete implementations live in subdirectories: stdsql adapts any
// database/sql driver, and drivertest provides a scripted in-memory
// driver for tests.
package driver

import (
	"context"

	"github.com/leapstack-labs/flowsql/pkg/expr"
)

// ConnectionFactory creates connections. Implementations are expected to
// be safe for concurrent use; pooling, if any, is internal to the
// factory.
type ConnectionFactory interface {
	Create(ctx context.Context) (Connection, error)
}

// Connection is a live link to the database. A connection is exclusively
// owned by whichever scope acquired it and must be closed exactly once.
// It must not be shared across concurrent operations.
type Connection interface {
	// CreateStatement prepares a statement for the given SQL text.
	CreateStatement(sql string) (Statement, error)

	// BeginTransaction starts a transaction at the given isolation
	// level, or the driver default for IsolationDefault.
	BeginTransaction(ctx context.Context, level IsolationLevel) error

	// Commit commits the current transaction.
	Commit(ctx context.Context) error

	// Rollback rolls back the current transaction.
	Rollback(ctx context.Context) error

	// Close releases the connection.
	Close(ctx context.Context) error
}

// Statement is a single executable statement. Parameters are bound
// positionally, 0-based, in the order the formatter emitted them.
type Statement interface {
	// Bind binds the parameter at index. The semantic type is a hint;
	// drivers may ignore it.
	Bind(index int, typ expr.Type, value any) error

	// ReturnGeneratedValues requests that generated key columns be
	// returned by Execute. With no arguments the driver chooses its
	// default key column.
	ReturnGeneratedValues(columns ...string)

	// Execute runs the statement.
	Execute(ctx context.Context) (Result, error)
}

// Result is the outcome of executing one statement. A Result is
// single-use: consume either RowsUpdated or Rows, once.
type Result interface {
	// RowsUpdated returns the number of rows affected by the statement.
	RowsUpdated(ctx context.Context) (int64, error)

	// Rows returns a cursor over the result rows.
	Rows(ctx context.Context) (RowCursor, error)
}

// RowCursor is a single-pass cursor over wire rows.
type RowCursor interface {
	// Next advances to the next row. It returns false with a nil error
	// when the stream is exhausted.
	Next(ctx context.Context) (bool, error)

	// Row returns the current wire row and its metadata. The returned
	// values are only valid until the next call to Next or Close.
	Row() (Row, RowMetadata)

	// Close releases the cursor.
	Close() error
}

// Row is a single wire row.
type Row interface {
	// Get returns the driver-native value of the column at index
	// (0-based).
	Get(index int) (any, error)
}

// RowMetadata describes the columns of a result.
type RowMetadata interface {
	Columns() []ColumnMetadata
}

// ColumnMetadata describes one result column.
type ColumnMetadata interface {
	// Name returns the column name or alias as reported by the driver.
	Name() string
	// TypeName returns the driver's name for the column type, for
	// diagnostics only.
	TypeName() string
}

// Lob marks a driver value as a large-object handle. Lob values are
// streamed separately by drivers and are not coercible to other types.
type Lob interface {
	Lob()
}
