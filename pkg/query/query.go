// Package query provides the lazy query pipeline over the flowsql
// engine.
//
// A Query is an immutable descriptor: every transformation returns a new
// Query wrapping a new expression, and the original is never mutated.
// Nothing executes until a terminal operation (ForEach, Map, Fold,
// TotalRecords, ...) consumes the query; each terminal operation
// triggers exactly one execution.
//
// Transformations that are illegal for the descriptor's shape (Where on
// a union, for example) return a Query carrying a UsageError, which
// surfaces at the terminal operation. This keeps call chains fluent
// while failing fast at the first consumption.
package query

import (
	"reflect"

	"github.com/leapstack-labs/flowsql/pkg/engine"
	"github.com/leapstack-labs/flowsql/pkg/expr"
)

// Query is an immutable pair of engine handle and query expression. The
// expression is always one of exactly two shapes: a single select or a
// union of two query expressions.
type Query struct {
	db  *engine.Database
	e   expr.QueryExpression
	err error
}

// New creates a query over the given expression.
func New(db *engine.Database, e expr.QueryExpression) *Query {
	return &Query{db: db, e: e}
}

// Expression returns the underlying query expression.
func (q *Query) Expression() expr.QueryExpression {
	return q.e
}

// Err returns the usage error recorded by an illegal transformation, if
// any. Terminal operations return it without executing anything.
func (q *Query) Err() error {
	return q.err
}

func (q *Query) fail(err error) *Query {
	return &Query{db: q.db, e: q.e, err: err}
}

// withSelect derives a new query by applying f to a copy of the select
// expression. On a union shape it records a usage error instead; the
// receiver is never modified.
func (q *Query) withSelect(clause string, f func(s *expr.SelectExpression)) *Query {
	if q.err != nil {
		return q
	}
	switch e := q.e.(type) {
	case *expr.SelectExpression:
		s := *e
		f(&s)
		return &Query{db: q.db, e: &s}
	case *expr.UnionExpression:
		return q.fail(engine.Usagef("%s is not allowed on a union query", clause))
	default:
		return q.fail(engine.Usagef("unsupported query expression %T", q.e))
	}
}

// Select replaces the declared output columns.
func (q *Query) Select(cols ...expr.ColumnDeclaration) *Query {
	return q.withSelect("select", func(s *expr.SelectExpression) {
		s.Columns = cols
	})
}

// Distinct marks the select as DISTINCT.
func (q *Query) Distinct() *Query {
	return q.withSelect("distinct", func(s *expr.SelectExpression) {
		s.Distinct = true
	})
}

// Where replaces the filter condition.
func (q *Query) Where(cond expr.Expression) *Query {
	return q.withSelect("where", func(s *expr.SelectExpression) {
		s.Where = cond
	})
}

// GroupBy replaces the grouping columns.
func (q *Query) GroupBy(cols ...expr.Expression) *Query {
	return q.withSelect("group by", func(s *expr.SelectExpression) {
		s.GroupBy = cols
	})
}

// Having replaces the group filter condition.
func (q *Query) Having(cond expr.Expression) *Query {
	return q.withSelect("having", func(s *expr.SelectExpression) {
		s.Having = cond
	})
}

// OrderBy replaces the sort keys. On a union shape each sort key is
// rewritten to reference one of the left branch's declared output-column
// aliases; a key that does not resolve to a declared column is a usage
// error.
func (q *Query) OrderBy(orders ...expr.OrderByExpression) *Query {
	if q.err != nil {
		return q
	}
	switch e := q.e.(type) {
	case *expr.SelectExpression:
		s := *e
		s.OrderBy = orders
		return &Query{db: q.db, e: &s}
	case *expr.UnionExpression:
		rewritten, err := rewriteUnionOrders(e, orders)
		if err != nil {
			return q.fail(err)
		}
		u := *e
		u.OrderBy = rewritten
		return &Query{db: q.db, e: &u}
	default:
		return q.fail(engine.Usagef("unsupported query expression %T", q.e))
	}
}

// Limit sets the maximum number of returned rows. Non-positive values
// are ignored, preserving any previously set limit.
func (q *Query) Limit(n int) *Query {
	if q.err != nil || n <= 0 {
		return q
	}
	return q.withPagination(func(limit, offset *int) {
		*limit = n
	})
}

// Offset sets the number of skipped rows. Non-positive values are
// ignored, preserving any previously set offset.
func (q *Query) Offset(n int) *Query {
	if q.err != nil || n <= 0 {
		return q
	}
	return q.withPagination(func(limit, offset *int) {
		*offset = n
	})
}

func (q *Query) withPagination(f func(limit, offset *int)) *Query {
	switch e := q.e.(type) {
	case *expr.SelectExpression:
		s := *e
		f(&s.Limit, &s.Offset)
		return &Query{db: q.db, e: &s}
	case *expr.UnionExpression:
		u := *e
		f(&u.Limit, &u.Offset)
		return &Query{db: q.db, e: &u}
	default:
		return q.fail(engine.Usagef("unsupported query expression %T", q.e))
	}
}

// Union combines this query with another, deduplicating rows.
func (q *Query) Union(other *Query) *Query {
	return q.union(other, false)
}

// UnionAll combines this query with another, keeping duplicates.
func (q *Query) UnionAll(other *Query) *Query {
	return q.union(other, true)
}

func (q *Query) union(other *Query, all bool) *Query {
	if q.err != nil {
		return q
	}
	if other.err != nil {
		return q.fail(other.err)
	}
	return &Query{db: q.db, e: &expr.UnionExpression{Left: q.e, Right: other.e, All: all}}
}

// declaredColumns returns the output columns a query expression
// declares. For a union that is, recursively, the left branch's
// declaration.
func declaredColumns(e expr.QueryExpression) []expr.ColumnDeclaration {
	switch t := e.(type) {
	case *expr.SelectExpression:
		return t.Columns
	case *expr.UnionExpression:
		return declaredColumns(t.Left)
	default:
		return nil
	}
}

func rewriteUnionOrders(u *expr.UnionExpression, orders []expr.OrderByExpression) ([]expr.OrderByExpression, error) {
	decls := declaredColumns(u.Left)
	out := make([]expr.OrderByExpression, len(orders))
	for i, o := range orders {
		alias, ok := resolveDeclaredAlias(o.Expression, decls)
		if !ok {
			return nil, engine.Usagef("order-by target %d does not resolve to a declared column of the union", i)
		}
		out[i] = expr.OrderByExpression{
			Expression: &expr.ColumnReference{Name: alias},
			Descending: o.Descending,
		}
	}
	return out, nil
}

// resolveDeclaredAlias matches an order-by target against the declared
// columns, either by alias (for a ColumnReference) or by structural
// equality with a declared expression.
func resolveDeclaredAlias(target expr.Expression, decls []expr.ColumnDeclaration) (string, bool) {
	if ref, ok := target.(*expr.ColumnReference); ok {
		for _, decl := range decls {
			if decl.Alias == ref.Name {
				return decl.Alias, true
			}
		}
		return "", false
	}
	for _, decl := range decls {
		if decl.Alias != "" && reflect.DeepEqual(decl.Expression, target) {
			return decl.Alias, true
		}
	}
	return "", false
}
