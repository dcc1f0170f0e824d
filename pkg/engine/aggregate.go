package engine

import (
	"context"

	"arrow-spatial/pkg/errkind"
	"arrow-spatial/pkg/plan"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/scalar"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

type aggCall struct {
	expr  plan.Expr
	call  *plan.AggregateFunction
	udaf  AggregateUDF
	types []arrow.DataType
}

func (s *Session) aggCalls(n *plan.Aggregate) ([]aggCall, error) {
	if len(n.GroupBy) > 0 {
		return nil, errkind.New(errkind.Unimplemented, "grouped aggregation is not supported")
	}
	in, err := s.Schema(n.Input)
	if err != nil {
		return nil, err
	}

	calls := make([]aggCall, len(n.Aggs))
	for i, e := range n.Aggs {
		f, ok := plan.Unalias(e).(*plan.AggregateFunction)
		if !ok {
			return nil, errkind.New(errkind.Plan, "%s is not an aggregate", e)
		}
		u, ok := s.AggregateFunction(f.Name)
		if !ok {
			return nil, errkind.New(errkind.NotFound, "function %s not found", f.Name)
		}
		if !u.Signature().Accepts(len(f.Args)) {
			return nil, errkind.New(errkind.Plan, "function %s called with %d arguments, expected %s", f.Name, len(f.Args), u.Signature())
		}
		types := make([]arrow.DataType, len(f.Args))
		for j, a := range f.Args {
			if types[j], err = s.exprType(a, in); err != nil {
				return nil, err
			}
		}
		calls[i] = aggCall{expr: e, call: f, udaf: u, types: types}
	}
	return calls, nil
}

// aggregate runs one accumulator per call in each partition, then
// merges the partial states into a single-row batch. Batch i belongs to
// partition i mod s.partitions.
func (s *Session) aggregate(ctx context.Context, n *plan.Aggregate, in []arrow.RecordBatch) ([]arrow.RecordBatch, error) {
	calls, err := s.aggCalls(n)
	if err != nil {
		return nil, err
	}

	parts := s.partitions
	states := make([][][]scalar.Scalar, parts)

	g, gctx := errgroup.WithContext(ctx)
	for p := 0; p < parts; p++ {
		g.Go(func() error {
			accs := make([]Accumulator, len(calls))
			for j, c := range calls {
				acc, err := c.udaf.NewAccumulator(AccumulatorArgs{Mem: s.mem, InputTypes: c.types})
				if err != nil {
					return err
				}
				accs[j] = acc
			}

			for i := p; i < len(in); i += parts {
				if err := gctx.Err(); err != nil {
					return err
				}
				for j, c := range calls {
					vals, err := s.evalArgs(gctx, c.call.Args, in[i])
					if err != nil {
						return err
					}
					err = accs[j].UpdateBatch(vals)
					releaseValues(vals)
					if err != nil {
						return errors.WithMessage(err, c.call.Name)
					}
				}
			}

			states[p] = make([][]scalar.Scalar, len(calls))
			for j, acc := range accs {
				st, err := acc.State()
				if err != nil {
					return err
				}
				states[p][j] = st
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fields := make([]arrow.Field, len(calls))
	cols := make([]arrow.Array, 0, len(calls))
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()
	for j, c := range calls {
		arr, err := s.finalize(c, j, states)
		if err != nil {
			return nil, err
		}
		cols = append(cols, arr)
		fields[j] = arrow.Field{Name: plan.DisplayName(c.expr), Type: arr.DataType(), Nullable: true}
	}

	rec := array.NewRecordBatch(arrow.NewSchema(fields, nil), cols, 1)
	return []arrow.RecordBatch{rec}, nil
}

// finalize merges the partial states of call j into a fresh accumulator
// and evaluates it as a one-row array.
func (s *Session) finalize(c aggCall, j int, states [][][]scalar.Scalar) (arrow.Array, error) {
	acc, err := c.udaf.NewAccumulator(AccumulatorArgs{Mem: s.mem, InputTypes: c.types})
	if err != nil {
		return nil, err
	}

	stateFields := c.udaf.StateFields(plan.DisplayName(c.expr))
	merged := make([]arrow.Array, 0, len(stateFields))
	defer func() {
		for _, m := range merged {
			m.Release()
		}
	}()
	for k, f := range stateFields {
		pieces := make([]arrow.Array, 0, len(states))
		for _, part := range states {
			piece, err := scalar.MakeArrayFromScalar(part[j][k], 1, s.mem)
			if err != nil {
				releaseArrays(pieces)
				return nil, errkind.Wrap(errkind.Internal, err, "failed to build state %s", f.Name)
			}
			pieces = append(pieces, piece)
		}
		col, err := array.Concatenate(pieces, s.mem)
		releaseArrays(pieces)
		if err != nil {
			return nil, errkind.Wrap(errkind.Internal, err, "failed to merge state %s", f.Name)
		}
		merged = append(merged, col)
	}

	if err := acc.MergeBatch(merged); err != nil {
		return nil, errors.WithMessage(err, c.call.Name)
	}
	res, err := acc.Evaluate()
	if err != nil {
		return nil, errors.WithMessage(err, c.call.Name)
	}
	return scalar.MakeArrayFromScalar(res, 1, s.mem)
}

func releaseArrays(arrs []arrow.Array) {
	for _, a := range arrs {
		a.Release()
	}
}
