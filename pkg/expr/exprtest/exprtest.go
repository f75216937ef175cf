// Package exprtest provides a deterministic formatter and minimal
// expression nodes for testing the execution core without a real SQL
// DSL or dialect formatter.
package exprtest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/flowsql/pkg/engine"
	"github.com/leapstack-labs/flowsql/pkg/expr"
)

// Table is a named table source.
type Table struct {
	expr.Node
	Name string
}

// Column is a possibly-qualified column.
type Column struct {
	expr.Node
	Table string
	Name  string
}

// Raw is a fragment of SQL text with its bound arguments, standing in
// for conditions built by an external DSL. Placeholders are written as
// "?" in SQL.
type Raw struct {
	expr.Node
	SQL  string
	Args []expr.ArgumentExpression
}

// Select builds a select expression over one table with the given
// declared columns.
func Select(table string, cols ...expr.ColumnDeclaration) *expr.SelectExpression {
	return &expr.SelectExpression{Columns: cols, From: &Table{Name: table}}
}

// Decl declares an output column with an alias.
func Decl(table, name, alias string) expr.ColumnDeclaration {
	return expr.ColumnDeclaration{Expression: &Column{Table: table, Name: name}, Alias: alias}
}

// Formatter renders the expression nodes of this package plus the core
// expr types into single-line SQL. Identical input always renders to
// identical output.
type Formatter struct{}

func (Formatter) Format(e expr.Expression, opts engine.FormatOptions) (*expr.SQLStatement, error) {
	r := &renderer{opts: opts}
	if err := r.render(e); err != nil {
		return nil, err
	}
	return &expr.SQLStatement{SQL: r.b.String(), Params: r.params}, nil
}

type renderer struct {
	b      strings.Builder
	params []expr.ArgumentExpression
	opts   engine.FormatOptions
}

func (r *renderer) ident(name string) string {
	if r.opts.QuoteIdentifiers && r.opts.Dialect != nil {
		return r.opts.Dialect.QuoteIdentifier(name)
	}
	return name
}

func (r *renderer) render(e expr.Expression) error {
	switch t := e.(type) {
	case *expr.SelectExpression:
		return r.renderSelect(t)
	case *expr.UnionExpression:
		return r.renderUnion(t)
	case *expr.ColumnReference:
		r.b.WriteString(r.ident(t.Name))
	case *expr.ArgumentExpression:
		r.b.WriteString("?")
		r.params = append(r.params, *t)
	case *expr.SubqueryExpression:
		r.b.WriteString("(")
		if err := r.render(t.Query); err != nil {
			return err
		}
		r.b.WriteString(")")
	case *expr.CountAllExpression:
		r.b.WriteString("COUNT(*)")
	case *Table:
		r.b.WriteString(r.ident(t.Name))
	case *Column:
		if t.Table != "" {
			r.b.WriteString(r.ident(t.Table))
			r.b.WriteString(".")
		}
		r.b.WriteString(r.ident(t.Name))
	case *Raw:
		r.b.WriteString(t.SQL)
		r.params = append(r.params, t.Args...)
	default:
		return fmt.Errorf("exprtest: unsupported expression %T", e)
	}
	return nil
}

func (r *renderer) renderSelect(s *expr.SelectExpression) error {
	r.b.WriteString("SELECT ")
	if s.Distinct {
		r.b.WriteString("DISTINCT ")
	}
	if len(s.Columns) == 0 {
		r.b.WriteString("*")
	}
	for i, col := range s.Columns {
		if i > 0 {
			r.b.WriteString(", ")
		}
		if err := r.render(col.Expression); err != nil {
			return err
		}
		if col.Alias != "" {
			r.b.WriteString(" AS ")
			r.b.WriteString(r.ident(col.Alias))
		}
	}
	if s.From != nil {
		r.b.WriteString(" FROM ")
		if err := r.render(s.From); err != nil {
			return err
		}
	}
	if s.Where != nil {
		r.b.WriteString(" WHERE ")
		if err := r.render(s.Where); err != nil {
			return err
		}
	}
	if len(s.GroupBy) > 0 {
		r.b.WriteString(" GROUP BY ")
		for i, g := range s.GroupBy {
			if i > 0 {
				r.b.WriteString(", ")
			}
			if err := r.render(g); err != nil {
				return err
			}
		}
	}
	if s.Having != nil {
		r.b.WriteString(" HAVING ")
		if err := r.render(s.Having); err != nil {
			return err
		}
	}
	if err := r.renderOrderBy(s.OrderBy); err != nil {
		return err
	}
	r.renderPagination(s.Limit, s.Offset)
	return nil
}

func (r *renderer) renderUnion(u *expr.UnionExpression) error {
	r.b.WriteString("(")
	if err := r.render(u.Left); err != nil {
		return err
	}
	r.b.WriteString(") UNION ")
	if u.All {
		r.b.WriteString("ALL ")
	}
	r.b.WriteString("(")
	if err := r.render(u.Right); err != nil {
		return err
	}
	r.b.WriteString(")")
	if err := r.renderOrderBy(u.OrderBy); err != nil {
		return err
	}
	r.renderPagination(u.Limit, u.Offset)
	return nil
}

func (r *renderer) renderOrderBy(orders []expr.OrderByExpression) error {
	if len(orders) == 0 {
		return nil
	}
	r.b.WriteString(" ORDER BY ")
	for i, o := range orders {
		if i > 0 {
			r.b.WriteString(", ")
		}
		if err := r.render(o.Expression); err != nil {
			return err
		}
		if o.Descending {
			r.b.WriteString(" DESC")
		}
	}
	return nil
}

func (r *renderer) renderPagination(limit, offset int) {
	if limit > 0 {
		r.b.WriteString(" LIMIT ")
		r.b.WriteString(strconv.Itoa(limit))
	}
	if offset > 0 {
		r.b.WriteString(" OFFSET ")
		r.b.WriteString(strconv.Itoa(offset))
	}
}
