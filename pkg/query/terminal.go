package query

import (
	"context"
	"strings"

	"github.com/leapstack-labs/flowsql/pkg/engine"
	"github.com/leapstack-labs/flowsql/pkg/expr"
	"github.com/leapstack-labs/flowsql/pkg/row"
)

// Rows executes the query and returns its row stream. Every call
// re-executes the query; the returned stream itself is single-pass.
func (q *Query) Rows(ctx context.Context) (*engine.Rows, error) {
	if q.err != nil {
		return nil, q.err
	}
	return q.db.ExecuteQuery(ctx, q.e)
}

// ForEach executes the query and calls fn for every row, in stream
// order. An error from fn stops consumption and is returned.
func (q *Query) ForEach(ctx context.Context, fn func(*row.Snapshot) error) error {
	rows, err := q.Rows(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		if err := fn(rows.Snapshot()); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Map executes q and collects fn's result for every row, in stream
// order.
func Map[T any](ctx context.Context, q *Query, fn func(*row.Snapshot) (T, error)) ([]T, error) {
	var out []T
	err := q.ForEach(ctx, func(s *row.Snapshot) error {
		v, err := fn(s)
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Fold executes q and folds every row into an accumulator, in stream
// order.
func Fold[A any](ctx context.Context, q *Query, init A, fn func(A, *row.Snapshot) (A, error)) (A, error) {
	acc := init
	err := q.ForEach(ctx, func(s *row.Snapshot) error {
		var ferr error
		acc, ferr = fn(acc, s)
		return ferr
	})
	if err != nil {
		var zero A
		return zero, err
	}
	return acc, nil
}

// Associate executes q and builds a map from fn's key/value pairs. A
// later duplicate key overwrites an earlier entry.
func Associate[K comparable, V any](ctx context.Context, q *Query, fn func(*row.Snapshot) (K, V, error)) (map[K]V, error) {
	out := make(map[K]V)
	err := q.ForEach(ctx, func(s *row.Snapshot) error {
		k, v, err := fn(s)
		if err != nil {
			return err
		}
		out[k] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Grouping executes q and groups its rows by fn's key, preserving stream
// order within each group.
func Grouping[K comparable](ctx context.Context, q *Query, fn func(*row.Snapshot) (K, error)) (map[K][]*row.Snapshot, error) {
	out := make(map[K][]*row.Snapshot)
	err := q.ForEach(ctx, func(s *row.Snapshot) error {
		k, err := fn(s)
		if err != nil {
			return err
		}
		out[k] = append(out[k], s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// JoinToString executes q, renders every row with fn, and joins the
// results with sep.
func (q *Query) JoinToString(ctx context.Context, sep string, fn func(*row.Snapshot) (string, error)) (string, error) {
	var b strings.Builder
	first := true
	err := q.ForEach(ctx, func(s *row.Snapshot) error {
		v, err := fn(s)
		if err != nil {
			return err
		}
		if !first {
			b.WriteString(sep)
		}
		first = false
		b.WriteString(v)
		return nil
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// First executes the query and returns its first row, or nil when the
// result is empty. The stream is abandoned after one row.
func (q *Query) First(ctx context.Context) (*row.Snapshot, error) {
	rows, err := q.Rows(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, rows.Err()
	}
	return rows.Snapshot(), nil
}

// Single executes the query and returns its only row. A result with
// zero or more than one row is a usage error naming the actual count.
func (q *Query) Single(ctx context.Context) (*row.Snapshot, error) {
	var single *row.Snapshot
	count := int64(0)
	err := q.ForEach(ctx, func(s *row.Snapshot) error {
		if count == 0 {
			single = s
		}
		count++
		return nil
	})
	if err != nil {
		return nil, err
	}
	if count != 1 {
		return nil, engine.Usagef("expected a single row, got %d", count)
	}
	return single, nil
}

// TotalRecords returns the number of rows the query matches, ignoring
// pagination. With no pagination clauses it streams and counts the
// query's own rows; otherwise it executes a count-only rewrite of the
// descriptor with pagination stripped.
func (q *Query) TotalRecords(ctx context.Context) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	limit, offset := paginationOf(q.e)
	if limit <= 0 && offset <= 0 {
		return Fold(ctx, q, int64(0), func(n int64, _ *row.Snapshot) (int64, error) {
			return n + 1, nil
		})
	}

	counting := New(q.db, countExpression(q.e))
	snap, err := counting.Single(ctx)
	if err != nil {
		return 0, err
	}
	return snap.Int64At(0)
}

// TotalPages returns the number of pages of pageSize needed for the
// query's total records.
func (q *Query) TotalPages(ctx context.Context, pageSize int) (int64, error) {
	if pageSize <= 0 {
		return 0, engine.Usagef("page size must be positive, got %d", pageSize)
	}
	total, err := q.TotalRecords(ctx)
	if err != nil {
		return 0, err
	}
	ps := int64(pageSize)
	return (total + ps - 1) / ps, nil
}

func paginationOf(e expr.QueryExpression) (limit, offset int) {
	switch t := e.(type) {
	case *expr.SelectExpression:
		return t.Limit, t.Offset
	case *expr.UnionExpression:
		return t.Limit, t.Offset
	default:
		return 0, 0
	}
}

// countExpression wraps e, with pagination stripped, in a COUNT(*)
// select.
func countExpression(e expr.QueryExpression) expr.QueryExpression {
	return &expr.SelectExpression{
		Columns: []expr.ColumnDeclaration{
			{Expression: &expr.CountAllExpression{}, Alias: "total"},
		},
		From: &expr.SubqueryExpression{Query: stripPagination(e)},
	}
}

func stripPagination(e expr.QueryExpression) expr.QueryExpression {
	switch t := e.(type) {
	case *expr.SelectExpression:
		s := *t
		s.Limit, s.Offset = 0, 0
		return &s
	case *expr.UnionExpression:
		u := *t
		u.Limit, u.Offset = 0, 0
		return &u
	default:
		return e
	}
}
