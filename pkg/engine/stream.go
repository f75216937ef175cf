package engine

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/flowsql/pkg/driver"
	"github.com/leapstack-labs/flowsql/pkg/row"
)

// rowStreamBuffer is how many snapshots the producer may run ahead of
// the consumer.
const rowStreamBuffer = 16

// Rows is a single-pass stream of row snapshots produced by one query
// execution. The stream is not restartable; re-execute the query to
// stream again.
//
// Iterate with Next/Snapshot, check Err after Next returns false, and
// call Close when abandoning the stream early. A fully drained stream
// releases its resources on its own; Close is then a no-op.
type Rows struct {
	ch     chan *row.Snapshot
	eg     *errgroup.Group
	cancel context.CancelFunc
	cur    *row.Snapshot
	err    error
	closed bool
	done   bool
}

// newRows starts the producer goroutine that cursors over res,
// snapshotting each wire row as it arrives. When owned is set the
// producer releases conn once the stream ends, on every exit path
// including cancellation.
func (d *Database) newRows(ctx context.Context, conn driver.Connection, owned bool, res driver.Result) *Rows {
	streamCtx, cancel := context.WithCancel(ctx)
	eg, egctx := errgroup.WithContext(streamCtx)
	r := &Rows{
		ch:     make(chan *row.Snapshot, rowStreamBuffer),
		eg:     eg,
		cancel: cancel,
	}

	eg.Go(func() (err error) {
		defer close(r.ch)
		if owned {
			defer func() {
				if rerr := conn.Close(context.WithoutCancel(egctx)); rerr != nil {
					if err == nil {
						err = d.translateErr(rerr)
						return
					}
					d.logger.Error("connection release failed after earlier error", "error", rerr)
					return
				}
				d.logger.Debug("connection released")
			}()
		}

		cursor, err := res.Rows(egctx)
		if err != nil {
			return d.translateErr(err)
		}
		defer func() {
			if cerr := cursor.Close(); cerr != nil && err == nil {
				err = d.translateErr(cerr)
			}
		}()

		for {
			ok, nerr := cursor.Next(egctx)
			if nerr != nil {
				return d.translateErr(nerr)
			}
			if !ok {
				return nil
			}
			wr, md := cursor.Row()
			snap, serr := row.NewSnapshot(wr, md)
			if serr != nil {
				return serr
			}
			select {
			case r.ch <- snap:
			case <-egctx.Done():
				return egctx.Err()
			}
		}
	})

	return r
}

// Next advances the stream. It returns false when the stream is
// exhausted or failed; check Err to distinguish.
func (r *Rows) Next() bool {
	if r.done {
		return false
	}
	snap, ok := <-r.ch
	if !ok {
		r.finish()
		return false
	}
	r.cur = snap
	return true
}

// Snapshot returns the current row. Only valid after Next returned true.
func (r *Rows) Snapshot() *row.Snapshot {
	return r.cur
}

// Err returns the error that terminated the stream, if any.
func (r *Rows) Err() error {
	return r.err
}

// Close abandons the stream, releasing the cursor and any owned
// connection. It is safe to call multiple times.
func (r *Rows) Close() error {
	if r.done {
		return r.err
	}
	r.closed = true
	r.cancel()
	for range r.ch {
		// Drain so the producer can exit.
	}
	r.finish()
	return r.err
}

func (r *Rows) finish() {
	r.done = true
	if werr := r.eg.Wait(); werr != nil {
		// Cancellation is benign only when Close itself caused it; a
		// cancelled caller context must surface through Err.
		if !r.closed || !errors.Is(werr, context.Canceled) {
			r.err = werr
		}
	}
	r.cancel()
}
