// Package plan is the logical plan the spatial functions are planned in:
// expressions, plan nodes, bottom-up rewriting and an explain printer.
package plan

import (
	"strconv"
	"strings"
)

// Expr is a logical expression.
type Expr interface {
	// String is the display form, also used as the default output name.
	String() string
	Children() []Expr
	// WithChildren returns a copy of the expression over new children.
	WithChildren(children []Expr) Expr
}

// Column references a field of the input, optionally qualified by the
// table it comes from.
type Column struct {
	Relation string
	Name     string
}

func Col(name string) *Column {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return &Column{Relation: name[:i], Name: name[i+1:]}
	}
	return &Column{Name: name}
}

func (c *Column) String() string {
	if c.Relation == "" {
		return c.Name
	}
	return c.Relation + "." + c.Name
}

func (c *Column) Children() []Expr           { return nil }
func (c *Column) WithChildren(_ []Expr) Expr { return c }

// Literal is a constant Utf8 value.
type Literal struct {
	Value string
}

func Lit(v string) *Literal { return &Literal{Value: v} }

func (l *Literal) String() string             { return "Utf8(" + strconv.Quote(l.Value) + ")" }
func (l *Literal) Children() []Expr           { return nil }
func (l *Literal) WithChildren(_ []Expr) Expr { return l }

// ScalarFunction calls a row-wise function.
type ScalarFunction struct {
	Name string
	Args []Expr
}

func Call(name string, args ...Expr) *ScalarFunction {
	return &ScalarFunction{Name: name, Args: args}
}

func (f *ScalarFunction) String() string   { return callString(f.Name, f.Args) }
func (f *ScalarFunction) Children() []Expr { return f.Args }

func (f *ScalarFunction) WithChildren(children []Expr) Expr {
	return &ScalarFunction{Name: f.Name, Args: children}
}

// AggregateFunction calls a reducer over all input rows.
type AggregateFunction struct {
	Name string
	Args []Expr
}

func Agg(name string, args ...Expr) *AggregateFunction {
	return &AggregateFunction{Name: name, Args: args}
}

func (f *AggregateFunction) String() string   { return callString(f.Name, f.Args) }
func (f *AggregateFunction) Children() []Expr { return f.Args }

func (f *AggregateFunction) WithChildren(children []Expr) Expr {
	return &AggregateFunction{Name: f.Name, Args: children}
}

func callString(name string, args []Expr) string {
	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// Alias renames the output of an expression.
type Alias struct {
	Expr Expr
	Name string
}

func (a *Alias) String() string   { return a.Expr.String() + " AS " + a.Name }
func (a *Alias) Children() []Expr { return []Expr{a.Expr} }

func (a *Alias) WithChildren(children []Expr) Expr {
	return &Alias{Expr: children[0], Name: a.Name}
}

// IsNotNull is true for the valid rows of its input.
type IsNotNull struct {
	Expr Expr
}

func (n *IsNotNull) String() string   { return n.Expr.String() + " IS NOT NULL" }
func (n *IsNotNull) Children() []Expr { return []Expr{n.Expr} }

func (n *IsNotNull) WithChildren(children []Expr) Expr {
	return &IsNotNull{Expr: children[0]}
}

// DisplayName is the output field name of e.
func DisplayName(e Expr) string {
	if a, ok := e.(*Alias); ok {
		return a.Name
	}
	return e.String()
}

// Unalias strips any aliases around e.
func Unalias(e Expr) Expr {
	for {
		a, ok := e.(*Alias)
		if !ok {
			return e
		}
		e = a.Expr
	}
}

// FunctionName returns the name of a scalar or aggregate call.
func FunctionName(e Expr) (string, bool) {
	switch f := e.(type) {
	case *ScalarFunction:
		return f.Name, true
	case *AggregateFunction:
		return f.Name, true
	}
	return "", false
}

// TransformExprUp rewrites e bottom-up: children first, then f on the
// rebuilt node.
func TransformExprUp(e Expr, f func(Expr) (Expr, error)) (Expr, error) {
	children := e.Children()
	if len(children) > 0 {
		out := make([]Expr, len(children))
		changed := false
		for i, c := range children {
			nc, err := TransformExprUp(c, f)
			if err != nil {
				return nil, err
			}
			out[i] = nc
			changed = changed || nc != c
		}
		if changed {
			e = e.WithChildren(out)
		}
	}
	return f(e)
}

// ColumnsOf lists every column referenced by e.
func ColumnsOf(e Expr) []*Column {
	var cols []*Column
	var walk func(Expr)
	walk = func(e Expr) {
		if c, ok := e.(*Column); ok {
			cols = append(cols, c)
		}
		for _, child := range e.Children() {
			walk(child)
		}
	}
	walk(e)
	return cols
}
