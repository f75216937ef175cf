package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/flowsql/pkg/driver"
	"github.com/leapstack-labs/flowsql/pkg/expr"
	"github.com/leapstack-labs/flowsql/pkg/row"
)

// ExecuteQuery formats e, binds its parameters positionally in formatter
// order, executes it, and returns a lazy stream of row snapshots. Each
// wire row is snapshotted immediately on arrival, so rows remain valid
// after the stream is exhausted or closed.
//
// When no transaction is current the stream owns the connection it runs
// on and releases it when the stream ends or Close is called.
func (d *Database) ExecuteQuery(ctx context.Context, e expr.Expression) (*Rows, error) {
	stmt, err := d.Format(e)
	if err != nil {
		return nil, err
	}
	d.logStatement(ctx, "query", stmt)
	start := time.Now()

	var conn driver.Connection
	owned := false
	if tx, ok := d.txm.Current(ctx); ok {
		conn = tx.Connection()
	} else {
		conn, err = d.factory.Create(ctx)
		if err != nil {
			d.metrics.observeExecution("query", start, err)
			return nil, d.translateErr(fmt.Errorf("acquiring connection: %w", err))
		}
		owned = true
		d.logger.Debug("connection acquired")
	}

	res, err := d.execute(ctx, conn, stmt, false)
	if err != nil {
		d.releaseOwned(ctx, conn, owned)
		d.metrics.observeExecution("query", start, err)
		return nil, d.translateErr(err)
	}
	d.metrics.observeExecution("query", start, nil)
	return d.newRows(ctx, conn, owned, res), nil
}

// ExecuteUpdate formats and executes e, returning the affected row
// count.
func (d *Database) ExecuteUpdate(ctx context.Context, e expr.Expression) (int64, error) {
	stmt, err := d.Format(e)
	if err != nil {
		return 0, err
	}
	d.logStatement(ctx, "update", stmt)
	start := time.Now()

	var count int64
	err = d.WithConnection(ctx, func(ctx context.Context, conn driver.Connection) error {
		res, err := d.execute(ctx, conn, stmt, false)
		if err != nil {
			return err
		}
		count, err = res.RowsUpdated(ctx)
		return err
	})
	d.metrics.observeExecution("update", start, err)
	return count, err
}

// ExecuteBatch formats and executes every expression in submission
// order, returning one affected row count per input, in that order.
//
// All expressions must format to byte-identical SQL text; only their
// parameter values may differ. A mismatch is rejected with a UsageError
// before any statement is issued.
func (d *Database) ExecuteBatch(ctx context.Context, exprs []expr.Expression) ([]int64, error) {
	if len(exprs) == 0 {
		return nil, nil
	}

	stmts := make([]*expr.SQLStatement, len(exprs))
	for i, e := range exprs {
		stmt, err := d.Format(e)
		if err != nil {
			return nil, err
		}
		stmts[i] = stmt
	}
	for i := 1; i < len(stmts); i++ {
		if stmts[i].SQL != stmts[0].SQL {
			return nil, Usagef("non-uniform batch: operation %d formats to %q, expected %q", i, stmts[i].SQL, stmts[0].SQL)
		}
	}
	d.logStatement(ctx, "batch", stmts[0])
	start := time.Now()

	counts := make([]int64, 0, len(stmts))
	err := d.WithConnection(ctx, func(ctx context.Context, conn driver.Connection) error {
		for _, stmt := range stmts {
			res, err := d.execute(ctx, conn, stmt, false)
			if err != nil {
				return err
			}
			n, err := res.RowsUpdated(ctx)
			if err != nil {
				return err
			}
			counts = append(counts, n)
		}
		return nil
	})
	d.metrics.observeExecution("batch", start, err)
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// ExecuteUpdateAndRetrieveKeys formats and executes e, returning the
// affected row count together with the generated-key rows, snapshotted
// so they outlive the connection.
func (d *Database) ExecuteUpdateAndRetrieveKeys(ctx context.Context, e expr.Expression) (int64, []*row.Snapshot, error) {
	stmt, err := d.Format(e)
	if err != nil {
		return 0, nil, err
	}
	d.logStatement(ctx, "update-keys", stmt)
	start := time.Now()

	var count int64
	var keys []*row.Snapshot
	err = d.WithConnection(ctx, func(ctx context.Context, conn driver.Connection) error {
		res, err := d.execute(ctx, conn, stmt, true)
		if err != nil {
			return err
		}
		count, err = res.RowsUpdated(ctx)
		if err != nil {
			return err
		}
		cursor, err := res.Rows(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := cursor.Close(); cerr != nil {
				d.logger.Error("closing key cursor failed", "error", cerr)
			}
		}()
		for {
			ok, err := cursor.Next(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			wr, md := cursor.Row()
			snap, err := row.NewSnapshot(wr, md)
			if err != nil {
				return err
			}
			keys = append(keys, snap)
		}
	})
	d.metrics.observeExecution("update-keys", start, err)
	if err != nil {
		return 0, nil, err
	}
	return count, keys, nil
}

// execute creates a statement on conn, binds every parameter, and runs
// it.
func (d *Database) execute(ctx context.Context, conn driver.Connection, stmt *expr.SQLStatement, returnKeys bool) (driver.Result, error) {
	st, err := conn.CreateStatement(stmt.SQL)
	if err != nil {
		return nil, fmt.Errorf("creating statement: %w", err)
	}
	for i, p := range stmt.Params {
		if err := st.Bind(i, p.Type, p.Value); err != nil {
			return nil, fmt.Errorf("binding parameter %d: %w", i, err)
		}
	}
	if returnKeys {
		st.ReturnGeneratedValues()
	}
	res, err := st.Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("executing statement: %w", err)
	}
	return res, nil
}

// logStatement logs the formatted SQL at Debug and, at Trace, the bound
// parameter values.
func (d *Database) logStatement(ctx context.Context, op string, stmt *expr.SQLStatement) {
	if !d.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	id := uuid.New().String()
	d.logger.Debug("executing statement", "op", op, "execution_id", id, "sql", stmt.SQL)
	if d.logger.Enabled(ctx, LevelTrace) {
		params := make([]string, len(stmt.Params))
		for i, p := range stmt.Params {
			params[i] = fmt.Sprintf("%s=%v", p.Type, p.Value)
		}
		d.logger.Log(ctx, LevelTrace, "bound parameters", "op", op, "execution_id", id, "params", params)
	}
}

// releaseOwned closes conn when this operation acquired it itself.
func (d *Database) releaseOwned(ctx context.Context, conn driver.Connection, owned bool) {
	if !owned {
		return
	}
	if err := conn.Close(context.WithoutCancel(ctx)); err != nil {
		d.logger.Error("connection release failed after earlier error", "error", err)
		return
	}
	d.logger.Debug("connection released")
}
