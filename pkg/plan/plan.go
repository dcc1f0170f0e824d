package plan

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// Node is a logical plan node.
type Node interface {
	Children() []Node
	WithChildren(children []Node) Node
	// Expressions are the expressions the node evaluates, in output order.
	Expressions() []Expr
	WithExpressions(exprs []Expr) Node
	// Describe is the one-line explain form of the node.
	Describe() string
}

// TableScan reads a registered table. ProjectedSchema carries the table
// schema metadata, including the "geo" entry of geo tables.
type TableScan struct {
	TableName       string
	ProjectedSchema *arrow.Schema
}

func Scan(name string, schema *arrow.Schema) *TableScan {
	return &TableScan{TableName: name, ProjectedSchema: schema}
}

func (s *TableScan) Children() []Node              { return nil }
func (s *TableScan) WithChildren(_ []Node) Node    { return s }
func (s *TableScan) Expressions() []Expr           { return nil }
func (s *TableScan) WithExpressions(_ []Expr) Node { return s }

func (s *TableScan) Describe() string {
	names := make([]string, 0)
	if s.ProjectedSchema != nil {
		for _, f := range s.ProjectedSchema.Fields() {
			names = append(names, f.Name)
		}
	}
	return fmt.Sprintf("TableScan: %s projection=[%s]", s.TableName, strings.Join(names, ", "))
}

// Projection evaluates one output column per expression.
type Projection struct {
	Exprs []Expr
	Input Node
}

func (p *Projection) Children() []Node { return []Node{p.Input} }

func (p *Projection) WithChildren(children []Node) Node {
	return &Projection{Exprs: p.Exprs, Input: children[0]}
}

func (p *Projection) Expressions() []Expr { return p.Exprs }

func (p *Projection) WithExpressions(exprs []Expr) Node {
	return &Projection{Exprs: exprs, Input: p.Input}
}

func (p *Projection) Describe() string {
	return "Projection: " + joinExprs(p.Exprs)
}

// Filter keeps the rows where Predicate is true.
type Filter struct {
	Predicate Expr
	Input     Node
}

func (f *Filter) Children() []Node { return []Node{f.Input} }

func (f *Filter) WithChildren(children []Node) Node {
	return &Filter{Predicate: f.Predicate, Input: children[0]}
}

func (f *Filter) Expressions() []Expr { return []Expr{f.Predicate} }

func (f *Filter) WithExpressions(exprs []Expr) Node {
	return &Filter{Predicate: exprs[0], Input: f.Input}
}

func (f *Filter) Describe() string {
	return "Filter: " + f.Predicate.String()
}

// Aggregate reduces its input to one row per group. Only the global
// group (no GroupBy expressions) is executed.
type Aggregate struct {
	GroupBy []Expr
	Aggs    []Expr
	Input   Node
}

func (a *Aggregate) Children() []Node { return []Node{a.Input} }

func (a *Aggregate) WithChildren(children []Node) Node {
	return &Aggregate{GroupBy: a.GroupBy, Aggs: a.Aggs, Input: children[0]}
}

func (a *Aggregate) Expressions() []Expr {
	out := make([]Expr, 0, len(a.GroupBy)+len(a.Aggs))
	out = append(out, a.GroupBy...)
	return append(out, a.Aggs...)
}

func (a *Aggregate) WithExpressions(exprs []Expr) Node {
	n := len(a.GroupBy)
	return &Aggregate{GroupBy: exprs[:n:n], Aggs: exprs[n:], Input: a.Input}
}

func (a *Aggregate) Describe() string {
	return fmt.Sprintf("Aggregate: groupBy=[%s], aggr=[%s]", joinExprs(a.GroupBy), joinExprs(a.Aggs))
}

// Limit keeps the first N rows.
type Limit struct {
	N     int64
	Input Node
}

func (l *Limit) Children() []Node { return []Node{l.Input} }

func (l *Limit) WithChildren(children []Node) Node {
	return &Limit{N: l.N, Input: children[0]}
}

func (l *Limit) Expressions() []Expr           { return nil }
func (l *Limit) WithExpressions(_ []Expr) Node { return l }

func (l *Limit) Describe() string {
	return fmt.Sprintf("Limit: fetch=%d", l.N)
}

func joinExprs(exprs []Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}
