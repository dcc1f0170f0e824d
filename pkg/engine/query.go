package engine

import (
	"context"

	"arrow-spatial/pkg/errkind"
	"arrow-spatial/pkg/plan"

	"github.com/apache/arrow-go/v18/arrow"
)

// Query is the select form accepted by the command line, the REST API
// and the Flight exchange.
type Query struct {
	Table  string   `json:"table"`
	Select []string `json:"select"`
	Where  string   `json:"where,omitempty"`
	Limit  int64    `json:"limit,omitempty"`
}

// Plan builds the logical plan of q. Function names are resolved to
// their canonical spelling and calls of aggregates become aggregate
// expressions. A select list must be either all aggregates or none.
func (s *Session) Plan(q Query) (plan.Node, error) {
	t, err := s.Table(q.Table)
	if err != nil {
		return nil, err
	}
	if len(q.Select) == 0 {
		return nil, errkind.New(errkind.Plan, "query selects nothing")
	}

	exprs, err := plan.ParseExprs(q.Select)
	if err != nil {
		return nil, err
	}
	aggs := 0
	for i, e := range exprs {
		if exprs[i], err = s.resolve(e); err != nil {
			return nil, err
		}
		if _, ok := plan.Unalias(exprs[i]).(*plan.AggregateFunction); ok {
			aggs++
		}
	}
	if aggs > 0 && aggs != len(exprs) {
		return nil, errkind.New(errkind.Plan, "aggregate and row expressions cannot be mixed without grouping")
	}

	b := plan.From(plan.Scan(q.Table, t.Schema()))
	if q.Where != "" {
		pred, err := plan.ParseExpr(q.Where)
		if err != nil {
			return nil, err
		}
		if pred, err = s.resolve(pred); err != nil {
			return nil, err
		}
		b = b.Filter(pred)
	}
	if aggs > 0 {
		b = b.Aggregate(nil, exprs...)
	} else {
		b = b.Project(exprs...)
	}
	if q.Limit > 0 {
		b = b.Limit(q.Limit)
	}
	return b.Build()
}

func (s *Session) resolve(e plan.Expr) (plan.Expr, error) {
	return plan.TransformExprUp(e, func(e plan.Expr) (plan.Expr, error) {
		f, ok := e.(*plan.ScalarFunction)
		if !ok {
			return e, nil
		}
		if u, ok := s.ScalarFunction(f.Name); ok {
			return &plan.ScalarFunction{Name: u.Name(), Args: f.Args}, nil
		}
		if u, ok := s.AggregateFunction(f.Name); ok {
			return &plan.AggregateFunction{Name: u.Name(), Args: f.Args}, nil
		}
		return nil, errkind.New(errkind.NotFound, "function %s not found", f.Name)
	})
}

// Run plans, analyzes and executes q. The caller releases the batches.
func (s *Session) Run(ctx context.Context, q Query) ([]arrow.RecordBatch, error) {
	n, err := s.Plan(q)
	if err != nil {
		return nil, err
	}
	if n, err = s.Analyze(ctx, n); err != nil {
		return nil, err
	}
	return s.Collect(ctx, n)
}

// Explain returns the analyzed plan of q.
func (s *Session) Explain(ctx context.Context, q Query) (string, error) {
	n, err := s.Plan(q)
	if err != nil {
		return "", err
	}
	if n, err = s.Analyze(ctx, n); err != nil {
		return "", err
	}
	return plan.Explain(n), nil
}
