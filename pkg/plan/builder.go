package plan

import "arrow-spatial/pkg/errkind"

// Builder assembles a plan on top of a table scan.
type Builder struct {
	node Node
	err  error
}

func From(scan *TableScan) *Builder {
	return &Builder{node: scan}
}

func (b *Builder) Project(exprs ...Expr) *Builder {
	if b.err == nil && len(exprs) == 0 {
		b.err = errkind.New(errkind.Plan, "projection needs at least one expression")
	}
	if b.err == nil {
		b.node = &Projection{Exprs: exprs, Input: b.node}
	}
	return b
}

func (b *Builder) Filter(predicate Expr) *Builder {
	if b.err == nil {
		b.node = &Filter{Predicate: predicate, Input: b.node}
	}
	return b
}

func (b *Builder) Aggregate(groupBy []Expr, aggs ...Expr) *Builder {
	if b.err == nil && len(groupBy) > 0 {
		b.err = errkind.New(errkind.Unimplemented, "grouped aggregation is not supported")
	}
	if b.err == nil {
		b.node = &Aggregate{GroupBy: groupBy, Aggs: aggs, Input: b.node}
	}
	return b
}

func (b *Builder) Limit(n int64) *Builder {
	if b.err == nil && n < 0 {
		b.err = errkind.New(errkind.Plan, "negative limit %d", n)
	}
	if b.err == nil {
		b.node = &Limit{N: n, Input: b.node}
	}
	return b
}

func (b *Builder) Build() (Node, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.node, nil
}
