package stdsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/flowsql/pkg/driver"
	"github.com/leapstack-labs/flowsql/pkg/expr"
)

func newMockFactory(t *testing.T) (*Factory, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewFactory(db, nil), mock
}

func TestFactoryQuery(t *testing.T) {
	factory, mock := newMockFactory(t)
	mock.ExpectQuery("SELECT id, name FROM users WHERE id = ?").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "ada"))

	ctx := context.Background()
	conn, err := factory.Create(ctx)
	require.NoError(t, err)
	defer func() { _ = conn.Close(ctx) }()

	stmt, err := conn.CreateStatement("SELECT id, name FROM users WHERE id = ?")
	require.NoError(t, err)
	require.NoError(t, stmt.Bind(0, expr.TypeLong, int64(1)))

	res, err := stmt.Execute(ctx)
	require.NoError(t, err)

	cursor, err := res.Rows(ctx)
	require.NoError(t, err)
	defer func() { _ = cursor.Close() }()

	ok, err := cursor.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	wire, md := cursor.Row()
	cols := md.Columns()
	require.Len(t, cols, 2)
	assert.Equal(t, "id", cols[0].Name())
	assert.Equal(t, "name", cols[1].Name())

	name, err := wire.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "ada", name)

	ok, err = cursor.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFactoryExec(t *testing.T) {
	factory, mock := newMockFactory(t)
	mock.ExpectExec("DELETE FROM users WHERE id = ?").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	ctx := context.Background()
	conn, err := factory.Create(ctx)
	require.NoError(t, err)
	defer func() { _ = conn.Close(ctx) }()

	stmt, err := conn.CreateStatement("DELETE FROM users WHERE id = ?")
	require.NoError(t, err)
	require.NoError(t, stmt.Bind(0, expr.TypeLong, int64(7)))

	res, err := stmt.Execute(ctx)
	require.NoError(t, err)

	count, err := res.RowsUpdated(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLazyResultIsSingleUse(t *testing.T) {
	factory, mock := newMockFactory(t)
	mock.ExpectExec("UPDATE t SET a = 1").WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	conn, err := factory.Create(ctx)
	require.NoError(t, err)
	defer func() { _ = conn.Close(ctx) }()

	stmt, err := conn.CreateStatement("UPDATE t SET a = 1")
	require.NoError(t, err)
	res, err := stmt.Execute(ctx)
	require.NoError(t, err)

	_, err = res.RowsUpdated(ctx)
	require.NoError(t, err)

	_, err = res.Rows(ctx)
	assert.ErrorContains(t, err, "result already consumed")
	_, err = res.RowsUpdated(ctx)
	assert.ErrorContains(t, err, "result already consumed")
}

func TestTransactionCommit(t *testing.T) {
	factory, mock := newMockFactory(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE t SET a = 1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ctx := context.Background()
	conn, err := factory.Create(ctx)
	require.NoError(t, err)
	defer func() { _ = conn.Close(ctx) }()

	require.NoError(t, conn.BeginTransaction(ctx, driver.IsolationDefault))

	stmt, err := conn.CreateStatement("UPDATE t SET a = 1")
	require.NoError(t, err)
	res, err := stmt.Execute(ctx)
	require.NoError(t, err)
	_, err = res.RowsUpdated(ctx)
	require.NoError(t, err)

	require.NoError(t, conn.Commit(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRollback(t *testing.T) {
	factory, mock := newMockFactory(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	ctx := context.Background()
	conn, err := factory.Create(ctx)
	require.NoError(t, err)
	defer func() { _ = conn.Close(ctx) }()

	require.NoError(t, conn.BeginTransaction(ctx, driver.IsolationDefault))
	require.NoError(t, conn.Rollback(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionStateGuards(t *testing.T) {
	factory, mock := newMockFactory(t)
	mock.ExpectBegin()

	ctx := context.Background()
	conn, err := factory.Create(ctx)
	require.NoError(t, err)
	defer func() { _ = conn.Close(ctx) }()

	assert.ErrorContains(t, conn.Commit(ctx), "no transaction in progress")
	assert.ErrorContains(t, conn.Rollback(ctx), "no transaction in progress")

	require.NoError(t, conn.BeginTransaction(ctx, driver.IsolationDefault))
	assert.ErrorContains(t, conn.BeginTransaction(ctx, driver.IsolationDefault), "transaction already in progress")
}

func TestCloseRollsBackUnresolvedTransaction(t *testing.T) {
	factory, mock := newMockFactory(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	ctx := context.Background()
	conn, err := factory.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, conn.BeginTransaction(ctx, driver.IsolationDefault))
	require.NoError(t, conn.Close(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteWithGeneratedKeys(t *testing.T) {
	factory, mock := newMockFactory(t)
	mock.ExpectExec("INSERT INTO users (name) VALUES (?)").
		WithArgs("ada").
		WillReturnResult(sqlmock.NewResult(42, 1))

	ctx := context.Background()
	conn, err := factory.Create(ctx)
	require.NoError(t, err)
	defer func() { _ = conn.Close(ctx) }()

	stmt, err := conn.CreateStatement("INSERT INTO users (name) VALUES (?)")
	require.NoError(t, err)
	require.NoError(t, stmt.Bind(0, expr.TypeVarchar, "ada"))
	stmt.ReturnGeneratedValues("user_id")

	res, err := stmt.Execute(ctx)
	require.NoError(t, err)

	count, err := res.RowsUpdated(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	cursor, err := res.Rows(ctx)
	require.NoError(t, err)
	ok, err := cursor.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	wire, md := cursor.Row()
	require.Len(t, md.Columns(), 1)
	assert.Equal(t, "user_id", md.Columns()[0].Name())
	id, err := wire.Get(0)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	ok, err = cursor.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

// keylessExecResult mimics drivers such as pgx that refuse LastInsertId.
type keylessExecResult struct{ affected int64 }

func (r keylessExecResult) LastInsertId() (int64, error) {
	return 0, errors.New("LastInsertId is not supported by this driver")
}

func (r keylessExecResult) RowsAffected() (int64, error) { return r.affected, nil }

func TestExecuteWithGeneratedKeysWithoutLastInsertId(t *testing.T) {
	factory, mock := newMockFactory(t)
	mock.ExpectExec("INSERT INTO users (name) VALUES ($1)").
		WithArgs("ada").
		WillReturnResult(keylessExecResult{affected: 1})

	ctx := context.Background()
	conn, err := factory.Create(ctx)
	require.NoError(t, err)
	defer func() { _ = conn.Close(ctx) }()

	stmt, err := conn.CreateStatement("INSERT INTO users (name) VALUES ($1)")
	require.NoError(t, err)
	require.NoError(t, stmt.Bind(0, expr.TypeVarchar, "ada"))
	stmt.ReturnGeneratedValues("user_id")

	res, err := stmt.Execute(ctx)
	require.NoError(t, err)

	count, err := res.RowsUpdated(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// No synthesized key row, but the update itself still succeeds.
	cursor, err := res.Rows(ctx)
	require.NoError(t, err)
	ok, err := cursor.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBind(t *testing.T) {
	s := &statement{}
	require.NoError(t, s.Bind(2, expr.TypeVarchar, "c"))
	require.NoError(t, s.Bind(0, expr.TypeVarchar, "a"))
	assert.Equal(t, []any{"a", nil, "c"}, s.args)

	assert.ErrorContains(t, s.Bind(-1, expr.TypeVarchar, "x"), "out of range")
}

func TestIsolationOf(t *testing.T) {
	tests := []struct {
		in   driver.IsolationLevel
		want sql.IsolationLevel
	}{
		{driver.IsolationDefault, sql.LevelDefault},
		{driver.IsolationReadUncommitted, sql.LevelReadUncommitted},
		{driver.IsolationReadCommitted, sql.LevelReadCommitted},
		{driver.IsolationRepeatableRead, sql.LevelRepeatableRead},
		{driver.IsolationSerializable, sql.LevelSerializable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isolationOf(tt.in), tt.in.String())
	}
}

func TestWireRowBounds(t *testing.T) {
	r := &wireRow{vals: []any{int64(1)}}

	v, err := r.Get(0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	_, err = r.Get(1)
	assert.ErrorContains(t, err, "out of range")
	_, err = r.Get(-1)
	assert.ErrorContains(t, err, "out of range")
}

func TestRegistry(t *testing.T) {
	opened := false
	Register("stdsql-test-fake", func(dsn string, _ *slog.Logger) (*Factory, error) {
		opened = true
		if dsn != "dsn-value" {
			return nil, fmt.Errorf("unexpected dsn %q", dsn)
		}
		return nil, errors.New("fake open")
	})

	_, err := Open("stdsql-test-fake", "dsn-value", nil)
	assert.True(t, opened)
	assert.EqualError(t, err, "fake open")

	assert.Contains(t, Drivers(), "stdsql-test-fake")

	_, err = Open("no-such-driver", "", nil)
	assert.ErrorContains(t, err, `unknown driver "no-such-driver"`)
}
