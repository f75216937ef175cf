// Package expr defines the expression-tree boundary of flowsql.
//
// The SQL expression tree itself is built by external condition DSLs and
// rendered by external formatters; this package contains only the node
// types the execution core must inspect structurally: the two query
// shapes (select and union), column declarations, order-by items, bound
// parameters, and the formatted statement a Formatter produces.
package expr

// Expression is the marker interface for SQL expression tree nodes.
// Types defined outside this package participate by embedding Node.
type Expression interface {
	exprNode()
}

// Node is an embeddable marker that makes a struct an Expression.
//
//	type BinaryExpression struct {
//		expr.Node
//		Left, Right expr.Expression
//		Operator    string
//	}
type Node struct{}

func (Node) exprNode() {}

// QueryExpression is the tagged variant over the two query shapes.
// It is sealed: the only implementations are *SelectExpression and
// *UnionExpression, so shape dispatch is an exhaustive type switch.
type QueryExpression interface {
	Expression
	queryNode()
}

// ColumnDeclaration is one declared output column of a query: an
// expression plus its optional alias. The alias is what union order-by
// rewriting resolves against.
type ColumnDeclaration struct {
	Expression Expression
	Alias      string
}

// OrderByExpression is one sort key of an order-by clause.
type OrderByExpression struct {
	Expression Expression
	Descending bool
}

// SelectExpression is the single-select query shape.
type SelectExpression struct {
	Columns  []ColumnDeclaration
	From     Expression
	Where    Expression
	GroupBy  []Expression
	Having   Expression
	Distinct bool
	OrderBy  []OrderByExpression
	Offset   int
	Limit    int
}

func (*SelectExpression) exprNode()  {}
func (*SelectExpression) queryNode() {}

// UnionExpression is the union-of-two-query-expressions shape.
type UnionExpression struct {
	Left    QueryExpression
	Right   QueryExpression
	All     bool
	OrderBy []OrderByExpression
	Offset  int
	Limit   int
}

func (*UnionExpression) exprNode()  {}
func (*UnionExpression) queryNode() {}

// ColumnReference refers to a declared output column by name. It is
// produced when union order-by targets are rewritten to the left
// branch's declared aliases.
type ColumnReference struct {
	Name string
}

func (*ColumnReference) exprNode() {}

// ArgumentExpression is a bound parameter leaf: a value and its semantic
// SQL type. Formatters emit these, in placeholder order, as the
// parameter list of a formatted statement.
type ArgumentExpression struct {
	Value any
	Type  Type
}

func (*ArgumentExpression) exprNode() {}

// SubqueryExpression wraps a query expression for use as a table source.
type SubqueryExpression struct {
	Query QueryExpression
}

func (*SubqueryExpression) exprNode() {}

// CountAllExpression is a COUNT(*) projection. The execution core emits
// it when it rewrites a paginated query into a count-only query.
type CountAllExpression struct{}

func (*CountAllExpression) exprNode() {}

// SQLStatement is the output of a Formatter: the SQL text plus the bound
// parameters in placeholder order.
type SQLStatement struct {
	SQL    string
	Params []ArgumentExpression
}
