package engine

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/flowsql/pkg/driver"
)

// TxState is the lifecycle state of a transaction context.
type TxState int

const (
	// TxOpen means the transaction has begun and is not yet resolved.
	TxOpen TxState = iota
	// TxCommitted means the transaction committed.
	TxCommitted
	// TxRolledBack means the transaction rolled back.
	TxRolledBack
)

// String returns the state name used in logs and errors.
func (s TxState) String() string {
	switch s {
	case TxCommitted:
		return "committed"
	case TxRolledBack:
		return "rolled back"
	default:
		return "open"
	}
}

// Transaction is one open, not-yet-resolved transaction: a connection
// bound to an isolation level. The connection is exclusively used by the
// call chain that opened the transaction until it resolves.
type Transaction interface {
	// Connection returns the connection the transaction runs on.
	Connection() driver.Connection
	// Isolation returns the isolation level the transaction began at.
	Isolation() driver.IsolationLevel
	// State returns the current lifecycle state.
	State() TxState
	// Commit commits the transaction. It fails if already resolved.
	Commit(ctx context.Context) error
	// Rollback rolls back the transaction. It fails if already resolved.
	Rollback(ctx context.Context) error
	// Release closes the underlying connection.
	Release(ctx context.Context) error
}

// TransactionManager decides which transaction, if any, is current for a
// call chain, and opens new ones. Implementations must scope the current
// transaction to a single chain; concurrent chains must never observe
// each other's transaction.
type TransactionManager interface {
	// Current returns the transaction attached to ctx, if any.
	Current(ctx context.Context) (Transaction, bool)
	// Begin acquires a connection, begins a transaction on it, and
	// returns a context carrying the new transaction.
	Begin(ctx context.Context, level driver.IsolationLevel) (context.Context, Transaction, error)
}

type txKey struct{}

// contextTransactionManager carries the current transaction as a context
// value. Nested calls in one chain see the same transaction; concurrent
// chains, having separate contexts, never share one.
type contextTransactionManager struct {
	factory driver.ConnectionFactory
}

// NewContextTransactionManager returns the default TransactionManager,
// which threads the current transaction through context values.
func NewContextTransactionManager(factory driver.ConnectionFactory) TransactionManager {
	return &contextTransactionManager{factory: factory}
}

func (m *contextTransactionManager) Current(ctx context.Context) (Transaction, bool) {
	tx, ok := ctx.Value(txKey{}).(Transaction)
	return tx, ok
}

func (m *contextTransactionManager) Begin(ctx context.Context, level driver.IsolationLevel) (context.Context, Transaction, error) {
	conn, err := m.factory.Create(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("acquiring connection: %w", err)
	}
	if err := conn.BeginTransaction(ctx, level); err != nil {
		_ = conn.Close(context.WithoutCancel(ctx))
		return nil, nil, fmt.Errorf("beginning transaction: %w", err)
	}
	tx := &managedTransaction{conn: conn, level: level}
	return context.WithValue(ctx, txKey{}, tx), tx, nil
}

type managedTransaction struct {
	conn  driver.Connection
	level driver.IsolationLevel
	state TxState
}

func (t *managedTransaction) Connection() driver.Connection    { return t.conn }
func (t *managedTransaction) Isolation() driver.IsolationLevel { return t.level }
func (t *managedTransaction) State() TxState                   { return t.state }

func (t *managedTransaction) Commit(ctx context.Context) error {
	if t.state != TxOpen {
		return fmt.Errorf("transaction already %s", t.state)
	}
	if err := t.conn.Commit(ctx); err != nil {
		return err
	}
	t.state = TxCommitted
	return nil
}

func (t *managedTransaction) Rollback(ctx context.Context) error {
	if t.state != TxOpen {
		return fmt.Errorf("transaction already %s", t.state)
	}
	if err := t.conn.Rollback(ctx); err != nil {
		return err
	}
	t.state = TxRolledBack
	return nil
}

func (t *managedTransaction) Release(ctx context.Context) error {
	return t.conn.Close(ctx)
}

// RunInTransaction runs body inside a transaction.
//
// If a transaction is already current on ctx, body joins it: the
// isolation argument is ignored, no second physical transaction opens,
// and commit/rollback remain the outermost call's responsibility.
//
// Otherwise a connection is acquired and a transaction begun at the
// given isolation level (driver default for IsolationDefault). On normal
// completion the transaction commits; on any error from body it rolls
// back and the error propagates. The connection is released exactly
// once, on every exit path, after commit or rollback resolves; a
// commit or rollback failure propagates and the release still occurs.
func (d *Database) RunInTransaction(ctx context.Context, level driver.IsolationLevel, body func(ctx context.Context) error) (err error) {
	if _, ok := d.txm.Current(ctx); ok {
		return body(ctx)
	}

	txCtx, tx, berr := d.txm.Begin(ctx, level)
	if berr != nil {
		return d.translateErr(berr)
	}
	d.logger.Debug("transaction begun", "isolation", level.String())

	defer func() {
		if rerr := tx.Release(context.WithoutCancel(ctx)); rerr != nil {
			if err == nil {
				err = d.translateErr(fmt.Errorf("releasing connection: %w", rerr))
				return
			}
			d.logger.Error("connection release failed after earlier error", "error", rerr)
			return
		}
		d.logger.Debug("transaction connection released")
	}()

	if bodyErr := body(txCtx); bodyErr != nil {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			// The primary error is what the caller observes.
			d.logger.Error("rollback failed", "error", rbErr)
		} else {
			d.logger.Debug("transaction rolled back")
		}
		d.metrics.observeTx(false)
		return bodyErr
	}

	if cerr := tx.Commit(context.WithoutCancel(ctx)); cerr != nil {
		d.metrics.observeTx(false)
		return d.translateErr(fmt.Errorf("committing transaction: %w", cerr))
	}
	d.logger.Debug("transaction committed")
	d.metrics.observeTx(true)
	return nil
}
