package stdsql

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/flowsql/pkg/driver"
)

// sqlRows is the subset of *sql.Rows the cursor consumes, split out so
// tests can fake it.
type sqlRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
	Columns() ([]string, error)
}

// rowCursor adapts *sql.Rows to the driver cursor contract.
type rowCursor struct {
	rows sqlRows
	meta *metadata
	vals []any
}

func newRowCursor(rows sqlRows) (driver.RowCursor, error) {
	cols, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("reading column metadata: %w", err)
	}
	meta := &metadata{cols: make([]driver.ColumnMetadata, len(cols))}
	for i, name := range cols {
		meta.cols[i] = &column{name: name}
	}
	return &rowCursor{rows: rows, meta: meta, vals: make([]any, len(cols))}, nil
}

func (c *rowCursor) Next(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !c.rows.Next() {
		if err := c.rows.Err(); err != nil {
			return false, err
		}
		return false, nil
	}
	dest := make([]any, len(c.vals))
	for i := range dest {
		dest[i] = &c.vals[i]
	}
	if err := c.rows.Scan(dest...); err != nil {
		return false, fmt.Errorf("scanning row: %w", err)
	}
	return true, nil
}

func (c *rowCursor) Row() (driver.Row, driver.RowMetadata) {
	return &wireRow{vals: c.vals}, c.meta
}

func (c *rowCursor) Close() error {
	return c.rows.Close()
}

type wireRow struct {
	vals []any
}

func (r *wireRow) Get(index int) (any, error) {
	if index < 0 || index >= len(r.vals) {
		return nil, fmt.Errorf("column index %d out of range [0, %d)", index, len(r.vals))
	}
	return r.vals[index], nil
}

type metadata struct {
	cols []driver.ColumnMetadata
}

func (m *metadata) Columns() []driver.ColumnMetadata {
	return m.cols
}

type column struct {
	name     string
	typeName string
}

func (c *column) Name() string     { return c.name }
func (c *column) TypeName() string { return c.typeName }

// memCursor serves in-memory rows; used for synthesized generated-key
// results.
type memCursor struct {
	names []string
	rows  [][]any
	pos   int
}

func newMemCursor(names []string, rows [][]any) driver.RowCursor {
	return &memCursor{names: names, rows: rows, pos: -1}
}

func (c *memCursor) Next(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if c.pos+1 >= len(c.rows) {
		return false, nil
	}
	c.pos++
	return true, nil
}

func (c *memCursor) Row() (driver.Row, driver.RowMetadata) {
	meta := &metadata{cols: make([]driver.ColumnMetadata, len(c.names))}
	for i, name := range c.names {
		meta.cols[i] = &column{name: name}
	}
	return &wireRow{vals: c.rows[c.pos]}, meta
}

func (c *memCursor) Close() error {
	return nil
}
