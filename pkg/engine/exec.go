package engine

import (
	"context"

	"arrow-spatial/pkg/errkind"
	"arrow-spatial/pkg/logging"
	"arrow-spatial/pkg/plan"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/compute"
	"github.com/apache/arrow-go/v18/arrow/scalar"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ReleaseBatches releases every non-nil batch of recs.
func ReleaseBatches(recs []arrow.RecordBatch) {
	for _, rec := range recs {
		if rec != nil {
			rec.Release()
		}
	}
}

// Collect executes n and returns its batches in input order. The caller
// releases them.
func (s *Session) Collect(ctx context.Context, n plan.Node) ([]arrow.RecordBatch, error) {
	switch n := n.(type) {
	case *plan.TableScan:
		return s.scan(ctx, n)

	case *plan.Filter:
		in, err := s.Collect(ctx, n.Input)
		if err != nil {
			return nil, err
		}
		defer ReleaseBatches(in)
		return s.mapBatches(ctx, in, func(ctx context.Context, rec arrow.RecordBatch) (arrow.RecordBatch, error) {
			return s.filter(ctx, n.Predicate, rec)
		})

	case *plan.Projection:
		in, err := s.Collect(ctx, n.Input)
		if err != nil {
			return nil, err
		}
		defer ReleaseBatches(in)
		return s.mapBatches(ctx, in, func(ctx context.Context, rec arrow.RecordBatch) (arrow.RecordBatch, error) {
			return s.project(ctx, n.Exprs, rec)
		})

	case *plan.Aggregate:
		in, err := s.Collect(ctx, n.Input)
		if err != nil {
			return nil, err
		}
		defer ReleaseBatches(in)
		return s.aggregate(ctx, n, in)

	case *plan.Limit:
		in, err := s.Collect(ctx, n.Input)
		if err != nil {
			return nil, err
		}
		defer ReleaseBatches(in)
		return limit(in, n.N), nil
	}

	return nil, errkind.New(errkind.Unimplemented, "cannot execute %T", n)
}

func (s *Session) scan(ctx context.Context, n *plan.TableScan) ([]arrow.RecordBatch, error) {
	t, err := s.Table(n.TableName)
	if err != nil {
		return nil, err
	}
	rdr, err := t.Scan(ctx)
	if err != nil {
		return nil, errkind.Wrap(errkind.Internal, err, "failed to scan table %s", n.TableName)
	}
	defer rdr.Release()

	var out []arrow.RecordBatch
	for rdr.Next() {
		if err := ctx.Err(); err != nil {
			ReleaseBatches(out)
			return nil, err
		}
		out = append(out, s.split(rdr.RecordBatch())...)
	}
	if err := rdr.Err(); err != nil {
		ReleaseBatches(out)
		return nil, errkind.Wrap(errkind.Internal, err, "failed to read table %s", n.TableName)
	}

	logging.FromContext(ctx).Debug("table scanned", zap.String("table", n.TableName), zap.Int("batches", len(out)))
	return out, nil
}

// split returns new references to rec cut into batches of at most
// batchSize rows.
func (s *Session) split(rec arrow.RecordBatch) []arrow.RecordBatch {
	rows := rec.NumRows()
	if rows <= s.batchSize {
		rec.Retain()
		return []arrow.RecordBatch{rec}
	}

	out := make([]arrow.RecordBatch, 0, rows/s.batchSize+1)
	for off := int64(0); off < rows; off += s.batchSize {
		out = append(out, rec.NewSlice(off, min(off+s.batchSize, rows)))
	}
	return out
}

// mapBatches runs f over every batch, at most s.partitions at a time.
// Output i corresponds to input i.
func (s *Session) mapBatches(ctx context.Context, in []arrow.RecordBatch, f func(context.Context, arrow.RecordBatch) (arrow.RecordBatch, error)) ([]arrow.RecordBatch, error) {
	out := make([]arrow.RecordBatch, len(in))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.partitions)
	for i, rec := range in {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := f(gctx, rec)
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		ReleaseBatches(out)
		return nil, err
	}
	return out, nil
}

func (s *Session) eval(ctx context.Context, e plan.Expr, rec arrow.RecordBatch) (ColumnarValue, error) {
	switch e := e.(type) {
	case *plan.Column:
		idx := rec.Schema().FieldIndices(e.Name)
		if len(idx) == 0 {
			return ColumnarValue{}, errkind.New(errkind.NotFound, "column %s not found", e)
		}
		col := rec.Column(idx[0])
		col.Retain()
		return ArrayValue(col), nil

	case *plan.Literal:
		return ScalarValue(scalar.NewStringScalar(e.Value)), nil

	case *plan.Alias:
		return s.eval(ctx, e.Expr, rec)

	case *plan.IsNotNull:
		v, err := s.eval(ctx, e.Expr, rec)
		if err != nil {
			return ColumnarValue{}, err
		}
		defer v.Release()
		if v.IsScalar() {
			return ScalarValue(scalar.NewBooleanScalar(v.Scalar().IsValid())), nil
		}

		arr := v.Array()
		b := array.NewBooleanBuilder(s.mem)
		defer b.Release()
		b.Reserve(arr.Len())
		for i := 0; i < arr.Len(); i++ {
			b.UnsafeAppend(arr.IsValid(i))
		}
		return ArrayValue(b.NewArray()), nil

	case *plan.ScalarFunction:
		f, ok := s.ScalarFunction(e.Name)
		if !ok {
			return ColumnarValue{}, errkind.New(errkind.NotFound, "function %s not found", e.Name)
		}
		if !f.Signature().Accepts(len(e.Args)) {
			return ColumnarValue{}, errkind.New(errkind.Plan, "function %s called with %d arguments, expected %s", e.Name, len(e.Args), f.Signature())
		}

		args, err := s.evalArgs(ctx, e.Args, rec)
		if err != nil {
			return ColumnarValue{}, err
		}
		defer releaseValues(args)

		out, err := f.Invoke(ScalarArgs{Ctx: ctx, Mem: s.mem, Args: args, NumRows: int(rec.NumRows())})
		if err != nil {
			return ColumnarValue{}, errors.WithMessage(err, e.Name)
		}
		return out, nil

	case *plan.AggregateFunction:
		return ColumnarValue{}, errkind.New(errkind.Plan, "aggregate %s used outside an aggregation", e.Name)
	}

	return ColumnarValue{}, errkind.New(errkind.Unimplemented, "cannot evaluate %T", e)
}

func (s *Session) evalArgs(ctx context.Context, exprs []plan.Expr, rec arrow.RecordBatch) ([]ColumnarValue, error) {
	args := make([]ColumnarValue, 0, len(exprs))
	for _, a := range exprs {
		v, err := s.eval(ctx, a, rec)
		if err != nil {
			releaseValues(args)
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

func (s *Session) project(ctx context.Context, exprs []plan.Expr, rec arrow.RecordBatch) (arrow.RecordBatch, error) {
	rows := int(rec.NumRows())
	fields := make([]arrow.Field, len(exprs))
	cols := make([]arrow.Array, 0, len(exprs))
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()

	for i, e := range exprs {
		v, err := s.eval(ctx, e, rec)
		if err != nil {
			return nil, err
		}
		arr, err := v.ToArray(s.mem, rows)
		v.Release()
		if err != nil {
			return nil, errkind.Wrap(errkind.Internal, err, "failed to materialize %s", e)
		}
		cols = append(cols, arr)
		if arr.Len() != rows {
			return nil, errkind.New(errkind.Internal, "%s returned %d rows for %d", e, arr.Len(), rows)
		}
		fields[i] = arrow.Field{Name: plan.DisplayName(e), Type: arr.DataType(), Nullable: true}
	}

	return array.NewRecordBatch(arrow.NewSchema(fields, nil), cols, int64(rows)), nil
}

func (s *Session) filter(ctx context.Context, pred plan.Expr, rec arrow.RecordBatch) (arrow.RecordBatch, error) {
	v, err := s.eval(ctx, pred, rec)
	if err != nil {
		return nil, err
	}
	defer v.Release()

	mask, err := v.ToArray(s.mem, int(rec.NumRows()))
	if err != nil {
		return nil, errkind.Wrap(errkind.Internal, err, "failed to materialize %s", pred)
	}
	defer mask.Release()
	if mask.DataType().ID() != arrow.BOOL {
		return nil, errkind.New(errkind.Plan, "filter predicate %s is %s, not boolean", pred, mask.DataType())
	}

	out, err := compute.FilterRecordBatch(ctx, rec, mask, compute.DefaultFilterOptions())
	if err != nil {
		return nil, errkind.Wrap(errkind.Internal, err, "failed to filter batch")
	}
	return out, nil
}

func limit(in []arrow.RecordBatch, n int64) []arrow.RecordBatch {
	var out []arrow.RecordBatch
	for _, rec := range in {
		if n <= 0 {
			break
		}
		if rec.NumRows() <= n {
			rec.Retain()
			out = append(out, rec)
			n -= rec.NumRows()
			continue
		}
		out = append(out, rec.NewSlice(0, n))
		n = 0
	}
	return out
}
