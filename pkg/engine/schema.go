package engine

import (
	"arrow-spatial/pkg/errkind"
	"arrow-spatial/pkg/plan"

	"github.com/apache/arrow-go/v18/arrow"
)

// Schema derives the output schema of n without executing it.
func (s *Session) Schema(n plan.Node) (*arrow.Schema, error) {
	switch n := n.(type) {
	case *plan.TableScan:
		if n.ProjectedSchema != nil {
			return n.ProjectedSchema, nil
		}
		t, err := s.Table(n.TableName)
		if err != nil {
			return nil, err
		}
		return t.Schema(), nil

	case *plan.Filter:
		return s.Schema(n.Input)

	case *plan.Limit:
		return s.Schema(n.Input)

	case *plan.Projection:
		in, err := s.Schema(n.Input)
		if err != nil {
			return nil, err
		}
		fields := make([]arrow.Field, len(n.Exprs))
		for i, e := range n.Exprs {
			dt, err := s.exprType(e, in)
			if err != nil {
				return nil, err
			}
			fields[i] = arrow.Field{Name: plan.DisplayName(e), Type: dt, Nullable: true}
		}
		return arrow.NewSchema(fields, nil), nil

	case *plan.Aggregate:
		calls, err := s.aggCalls(n)
		if err != nil {
			return nil, err
		}
		fields := make([]arrow.Field, len(calls))
		for i, c := range calls {
			dt, err := c.udaf.ReturnType(c.types)
			if err != nil {
				return nil, err
			}
			fields[i] = arrow.Field{Name: plan.DisplayName(c.expr), Type: dt, Nullable: true}
		}
		return arrow.NewSchema(fields, nil), nil
	}

	return nil, errkind.New(errkind.Unimplemented, "cannot derive the schema of %T", n)
}

func (s *Session) exprType(e plan.Expr, in *arrow.Schema) (arrow.DataType, error) {
	switch e := e.(type) {
	case *plan.Column:
		idx := in.FieldIndices(e.Name)
		if len(idx) == 0 {
			return nil, errkind.New(errkind.NotFound, "column %s not found", e)
		}
		return in.Field(idx[0]).Type, nil

	case *plan.Literal:
		return arrow.BinaryTypes.String, nil

	case *plan.Alias:
		return s.exprType(e.Expr, in)

	case *plan.IsNotNull:
		return arrow.FixedWidthTypes.Boolean, nil

	case *plan.ScalarFunction:
		f, ok := s.ScalarFunction(e.Name)
		if !ok {
			return nil, errkind.New(errkind.NotFound, "function %s not found", e.Name)
		}
		args := make([]arrow.DataType, len(e.Args))
		for i, a := range e.Args {
			dt, err := s.exprType(a, in)
			if err != nil {
				return nil, err
			}
			args[i] = dt
		}
		return f.ReturnType(args)
	}

	return nil, errkind.New(errkind.Plan, "cannot type %s", e)
}
