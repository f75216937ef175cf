package engine

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/flowsql/pkg/driver"
)

// WithConnection runs body with a connection. If a transaction is
// current on ctx, body runs on the transaction's connection and the
// connection is not released afterward; the transaction owns it.
// Otherwise a fresh connection is acquired from the factory and released
// on every exit path, including error returns and context cancellation.
//
// Driver-level errors pass through the configured translation hook
// before propagating. A release failure never suppresses an error from
// body; it is logged instead.
func (d *Database) WithConnection(ctx context.Context, body func(ctx context.Context, conn driver.Connection) error) (err error) {
	if tx, ok := d.txm.Current(ctx); ok {
		if berr := body(ctx, tx.Connection()); berr != nil {
			return d.translateErr(berr)
		}
		return nil
	}

	conn, cerr := d.factory.Create(ctx)
	if cerr != nil {
		return d.translateErr(fmt.Errorf("acquiring connection: %w", cerr))
	}
	d.logger.Debug("connection acquired")

	defer func() {
		// Release must happen even when ctx is already cancelled.
		if rerr := conn.Close(context.WithoutCancel(ctx)); rerr != nil {
			if err == nil {
				err = d.translateErr(fmt.Errorf("releasing connection: %w", rerr))
				return
			}
			d.logger.Error("connection release failed after earlier error", "error", rerr)
			return
		}
		d.logger.Debug("connection released")
	}()

	if berr := body(ctx, conn); berr != nil {
		return d.translateErr(berr)
	}
	return nil
}
