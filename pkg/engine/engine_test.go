package engine

import (
	"context"
	"strings"
	"testing"

	"arrow-spatial/pkg/errkind"
	"arrow-spatial/pkg/plan"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/arrow/scalar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upper struct{}

func (upper) Name() string         { return "upper" }
func (upper) Aliases() []string    { return []string{"UPPER"} }
func (upper) Signature() Signature { return AnyOf(1) }

func (upper) ReturnType(_ []arrow.DataType) (arrow.DataType, error) {
	return arrow.BinaryTypes.String, nil
}

func (upper) Invoke(args ScalarArgs) (ColumnarValue, error) {
	arr, err := args.Args[0].ToArray(args.Mem, args.NumRows)
	if err != nil {
		return ColumnarValue{}, err
	}
	defer arr.Release()

	in := arr.(*array.String)
	b := array.NewStringBuilder(args.Mem)
	defer b.Release()
	for i := 0; i < in.Len(); i++ {
		if in.IsNull(i) {
			b.AppendNull()
			continue
		}
		b.Append(strings.ToUpper(in.Value(i)))
	}
	return ArrayValue(b.NewArray()), nil
}

type countRows struct{}

func (countRows) Name() string         { return "count_rows" }
func (countRows) Aliases() []string    { return nil }
func (countRows) Signature() Signature { return AnyOf(1) }

func (countRows) ReturnType(_ []arrow.DataType) (arrow.DataType, error) {
	return arrow.PrimitiveTypes.Int64, nil
}

func (countRows) StateFields(name string) []arrow.Field {
	return []arrow.Field{{Name: name + "[count]", Type: arrow.PrimitiveTypes.Int64}}
}

func (countRows) NewAccumulator(_ AccumulatorArgs) (Accumulator, error) {
	return &counter{}, nil
}

type counter struct{ n int64 }

func (c *counter) UpdateBatch(values []ColumnarValue) error {
	arr := values[0].Array()
	c.n += int64(arr.Len() - arr.NullN())
	return nil
}

func (c *counter) State() ([]scalar.Scalar, error) {
	return []scalar.Scalar{scalar.NewInt64Scalar(c.n)}, nil
}

func (c *counter) MergeBatch(states []arrow.Array) error {
	for _, v := range states[0].(*array.Int64).Int64Values() {
		c.n += v
	}
	return nil
}

func (c *counter) Evaluate() (scalar.Scalar, error) {
	return scalar.NewInt64Scalar(c.n), nil
}

var peopleSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
}, nil)

func peopleBatch(mem memory.Allocator, ids []int64, names []string, valid []bool) arrow.RecordBatch {
	b := array.NewRecordBuilder(mem, peopleSchema)
	defer b.Release()
	b.Field(0).(*array.Int64Builder).AppendValues(ids, nil)
	b.Field(1).(*array.StringBuilder).AppendValues(names, valid)
	return b.NewRecordBatch()
}

func newTestSession(t *testing.T, mem memory.Allocator, opts ...Option) *Session {
	t.Helper()

	s := NewSession(append([]Option{WithAllocator(mem)}, opts...)...)
	require.NoError(t, s.RegisterUDF(upper{}))
	require.NoError(t, s.RegisterUDAF(countRows{}))

	recs := []arrow.RecordBatch{
		peopleBatch(mem, []int64{1, 2, 3}, []string{"ada", "", "grace"}, []bool{true, false, true}),
		peopleBatch(mem, []int64{4, 5}, []string{"alan", "edsger"}, nil),
	}
	table, err := NewMemTable(peopleSchema, recs)
	require.NoError(t, err)
	for _, rec := range recs {
		rec.Release()
	}
	t.Cleanup(table.Release)
	require.NoError(t, s.RegisterTable("people", table))
	return s
}

func stringColumn(t *testing.T, recs []arrow.RecordBatch, col int) []string {
	t.Helper()
	var out []string
	for _, rec := range recs {
		arr := rec.Column(col).(*array.String)
		for i := 0; i < arr.Len(); i++ {
			if arr.IsNull(i) {
				out = append(out, "<null>")
				continue
			}
			out = append(out, arr.Value(i))
		}
	}
	return out
}

func TestSessionRegistry(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.RegisterUDF(upper{}))
	require.NoError(t, s.RegisterUDAF(countRows{}))

	err := s.RegisterUDF(upper{})
	assert.True(t, errkind.Is(err, errkind.Plan))

	f, ok := s.ScalarFunction("Upper")
	require.True(t, ok)
	assert.Equal(t, "upper", f.Name())
	_, ok = s.AggregateFunction("COUNT_ROWS")
	assert.True(t, ok)

	infos := s.Functions()
	require.Len(t, infos, 2)
	assert.Equal(t, "count_rows", infos[0].Name)
	assert.Equal(t, "aggregate", infos[0].Kind)
	assert.Equal(t, "upper", infos[1].Name)
	assert.Equal(t, "Any(1)", infos[1].Signature)

	_, err = s.Table("missing")
	assert.True(t, errkind.Is(err, errkind.NotFound))
}

func TestRunProjection(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	t.Cleanup(func() { mem.AssertSize(t, 0) })

	s := newTestSession(t, mem, WithBatchSize(2), WithPartitions(3))

	recs, err := s.Run(context.Background(), Query{Table: "people", Select: []string{"upper(name) AS shout", "name"}})
	require.NoError(t, err)
	defer ReleaseBatches(recs)

	// 3 rows split into 2+1, then 2 rows
	require.Len(t, recs, 3)
	assert.Equal(t, "shout", recs[0].Schema().Field(0).Name)
	assert.Equal(t, []string{"ADA", "<null>", "GRACE", "ALAN", "EDSGER"}, stringColumn(t, recs, 0))
	assert.Equal(t, []string{"ada", "<null>", "grace", "alan", "edsger"}, stringColumn(t, recs, 1))
}

func TestRunFilterAndLimit(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	t.Cleanup(func() { mem.AssertSize(t, 0) })

	s := newTestSession(t, mem)

	recs, err := s.Run(context.Background(), Query{
		Table:  "people",
		Select: []string{"UPPER(name)"},
		Where:  "name IS NOT NULL",
		Limit:  3,
	})
	require.NoError(t, err)
	defer ReleaseBatches(recs)

	assert.Equal(t, "upper(name)", recs[0].Schema().Field(0).Name)
	assert.Equal(t, []string{"ADA", "GRACE", "ALAN"}, stringColumn(t, recs, 0))
}

func TestRunAggregatePartitionInvariant(t *testing.T) {
	for _, parts := range []int{1, 2, 3, 8} {
		mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
		s := newTestSession(t, mem, WithPartitions(parts), WithBatchSize(1))

		recs, err := s.Run(context.Background(), Query{Table: "people", Select: []string{"count_rows(name)"}})
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, int64(1), recs[0].NumRows())
		assert.Equal(t, "count_rows(name)", recs[0].Schema().Field(0).Name)
		assert.Equal(t, int64(4), recs[0].Column(0).(*array.Int64).Value(0), "partitions=%d", parts)
		ReleaseBatches(recs)

		s.DeregisterTable("people").(*MemTable).Release()
		mem.AssertSize(t, 0)
	}
}

func TestPlanErrors(t *testing.T) {
	s := newTestSession(t, memory.NewGoAllocator())

	_, err := s.Plan(Query{Table: "people", Select: []string{"lower(name)"}})
	assert.True(t, errkind.Is(err, errkind.NotFound))

	_, err = s.Plan(Query{Table: "people", Select: []string{"count_rows(name)", "name"}})
	assert.True(t, errkind.Is(err, errkind.Plan))

	_, err = s.Plan(Query{Table: "people"})
	assert.True(t, errkind.Is(err, errkind.Plan))

	_, err = s.Run(context.Background(), Query{Table: "people", Select: []string{"upper(name, name)"}})
	assert.True(t, errkind.Is(err, errkind.Plan))

	_, err = s.Run(context.Background(), Query{Table: "people", Select: []string{"upper(missing)"}})
	assert.True(t, errkind.Is(err, errkind.NotFound))
}

func TestExplainAndSchema(t *testing.T) {
	s := newTestSession(t, memory.NewGoAllocator())

	out, err := s.Explain(context.Background(), Query{Table: "people", Select: []string{"count_rows(name)"}})
	require.NoError(t, err)
	assert.Equal(t, "Aggregate: groupBy=[], aggr=[count_rows(name)]\n  TableScan: people projection=[id, name]\n", out)

	n, err := s.Plan(Query{Table: "people", Select: []string{"upper(name) AS shout", "id"}})
	require.NoError(t, err)
	schema, err := s.Schema(n)
	require.NoError(t, err)
	require.Equal(t, 2, schema.NumFields())
	assert.Equal(t, "shout", schema.Field(0).Name)
	assert.True(t, arrow.TypeEqual(arrow.BinaryTypes.String, schema.Field(0).Type))
	assert.True(t, arrow.TypeEqual(arrow.PrimitiveTypes.Int64, schema.Field(1).Type))
}

type rewriteRule struct{ calls int }

func (r *rewriteRule) Name() string { return "rename" }

func (r *rewriteRule) Analyze(_ context.Context, n plan.Node) (plan.Node, error) {
	r.calls++
	out, err := plan.TransformUp(n, func(n plan.Node) (plan.Transformed, error) {
		return plan.MapExpressions(n, func(e plan.Expr) (plan.Expr, error) {
			return plan.TransformExprUp(e, func(e plan.Expr) (plan.Expr, error) {
				if c, ok := e.(*plan.Column); ok && c.Name == "id" {
					return plan.Col("name"), nil
				}
				return e, nil
			})
		})
	})
	return out.Node, err
}

func TestAnalyzerRulesRun(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	t.Cleanup(func() { mem.AssertSize(t, 0) })

	s := newTestSession(t, mem)
	r := &rewriteRule{}
	s.AddAnalyzerRule(r)

	recs, err := s.Run(context.Background(), Query{Table: "people", Select: []string{"upper(id)"}, Limit: 1})
	require.NoError(t, err)
	defer ReleaseBatches(recs)

	assert.Equal(t, 1, r.calls)
	assert.Equal(t, []string{"ADA"}, stringColumn(t, recs, 0))
}

func TestCollectCancelled(t *testing.T) {
	s := newTestSession(t, memory.NewGoAllocator())
	n, err := s.Plan(Query{Table: "people", Select: []string{"name"}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Collect(ctx, n)
	assert.ErrorIs(t, err, context.Canceled)
}
