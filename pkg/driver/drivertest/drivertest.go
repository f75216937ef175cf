// Package drivertest provides a scripted in-memory driver for testing
// code built on the flowsql driver SPI. Results are scripted per SQL
// text; every connection records the statements, transaction calls, and
// lifecycle events it saw.
package drivertest

import (
	"context"
	"sync"

	"github.com/leapstack-labs/flowsql/pkg/driver"
	"github.com/leapstack-labs/flowsql/pkg/expr"
)

// Result is one scripted statement outcome.
type Result struct {
	Columns     []string
	Rows        [][]any
	UpdateCount int64
}

// Factory implements driver.ConnectionFactory in memory.
type Factory struct {
	mu        sync.Mutex
	conns     []*Conn
	results   map[string]Result
	CreateErr error
}

// NewFactory creates an empty scripted factory. Unscripted SQL executes
// successfully with an empty result.
func NewFactory() *Factory {
	return &Factory{results: make(map[string]Result)}
}

// Script registers the result served for the given SQL text.
func (f *Factory) Script(sql string, r Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[sql] = r
}

// Conns returns every connection created so far.
func (f *Factory) Conns() []*Conn {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Conn, len(f.conns))
	copy(out, f.conns)
	return out
}

// Create implements driver.ConnectionFactory.
func (f *Factory) Create(ctx context.Context) (driver.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	conn := &Conn{factory: f}
	f.conns = append(f.conns, conn)
	return conn, nil
}

func (f *Factory) lookup(sql string) Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.results[sql]
}

// ExecutedStatement records one Execute call.
type ExecutedStatement struct {
	SQL        string
	Args       []any
	ReturnKeys bool
}

// Conn is a recording in-memory connection.
type Conn struct {
	mu      sync.Mutex
	factory *Factory

	Closed     bool
	CloseCount int
	Began      bool
	Committed  bool
	RolledBack bool
	Isolation  driver.IsolationLevel
	Statements []ExecutedStatement

	BeginErr    error
	CommitErr   error
	RollbackErr error
	CloseErr    error
	ExecuteErr  error
}

func (c *Conn) CreateStatement(sql string) (driver.Statement, error) {
	return &stmt{conn: c, sql: sql}, nil
}

func (c *Conn) BeginTransaction(ctx context.Context, level driver.IsolationLevel) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.BeginErr != nil {
		return c.BeginErr
	}
	c.Began = true
	c.Isolation = level
	return nil
}

func (c *Conn) Commit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.CommitErr != nil {
		return c.CommitErr
	}
	c.Committed = true
	return nil
}

func (c *Conn) Rollback(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.RollbackErr != nil {
		return c.RollbackErr
	}
	c.RolledBack = true
	return nil
}

func (c *Conn) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Closed = true
	c.CloseCount++
	return c.CloseErr
}

type stmt struct {
	conn       *Conn
	sql        string
	args       []any
	returnKeys bool
}

func (s *stmt) Bind(index int, _ expr.Type, value any) error {
	for len(s.args) <= index {
		s.args = append(s.args, nil)
	}
	s.args[index] = value
	return nil
}

func (s *stmt) ReturnGeneratedValues(columns ...string) {
	s.returnKeys = true
}

func (s *stmt) Execute(ctx context.Context) (driver.Result, error) {
	s.conn.mu.Lock()
	s.conn.Statements = append(s.conn.Statements, ExecutedStatement{
		SQL:        s.sql,
		Args:       append([]any(nil), s.args...),
		ReturnKeys: s.returnKeys,
	})
	execErr := s.conn.ExecuteErr
	s.conn.mu.Unlock()
	if execErr != nil {
		return nil, execErr
	}
	return &result{scripted: s.conn.factory.lookup(s.sql)}, nil
}

type result struct {
	scripted Result
}

func (r *result) RowsUpdated(ctx context.Context) (int64, error) {
	return r.scripted.UpdateCount, nil
}

func (r *result) Rows(ctx context.Context) (driver.RowCursor, error) {
	return &cursor{res: r.scripted, pos: -1}, nil
}

type cursor struct {
	res Result
	pos int
}

func (c *cursor) Next(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if c.pos+1 >= len(c.res.Rows) {
		return false, nil
	}
	c.pos++
	return true, nil
}

func (c *cursor) Row() (driver.Row, driver.RowMetadata) {
	return &wireRow{vals: c.res.Rows[c.pos]}, &metadata{names: c.res.Columns}
}

func (c *cursor) Close() error {
	return nil
}

type wireRow struct {
	vals []any
}

func (r *wireRow) Get(index int) (any, error) {
	return r.vals[index], nil
}

type metadata struct {
	names []string
}

func (m *metadata) Columns() []driver.ColumnMetadata {
	cols := make([]driver.ColumnMetadata, len(m.names))
	for i, name := range m.names {
		cols[i] = columnMeta(name)
	}
	return cols
}

type columnMeta string

func (c columnMeta) Name() string     { return string(c) }
func (c columnMeta) TypeName() string { return "" }
