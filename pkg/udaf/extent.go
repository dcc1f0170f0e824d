// Package udaf holds the spatial aggregate functions.
package udaf

import (
	"fmt"

	"arrow-spatial/pkg/compute"
	"arrow-spatial/pkg/engine"
	"arrow-spatial/pkg/errkind"
	"arrow-spatial/pkg/udf"
	"arrow-spatial/pkg/wkb"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/arrow/scalar"
)

// ExtentType is the result of ST_Extent.
var ExtentType = arrow.StructOf(
	arrow.Field{Name: "xmin", Type: arrow.PrimitiveTypes.Float64},
	arrow.Field{Name: "ymin", Type: arrow.PrimitiveTypes.Float64},
	arrow.Field{Name: "xmax", Type: arrow.PrimitiveTypes.Float64},
	arrow.Field{Name: "ymax", Type: arrow.PrimitiveTypes.Float64},
)

// Extent is ST_Extent: the bounding rectangle of every geometry in the
// group.
type Extent struct{}

func NewExtent() *Extent { return &Extent{} }

func (*Extent) Name() string                { return "ST_Extent" }
func (*Extent) Aliases() []string           { return []string{"st_extent"} }
func (*Extent) Signature() engine.Signature { return udf.Signature }

func (*Extent) ReturnType(_ []arrow.DataType) (arrow.DataType, error) {
	return ExtentType, nil
}

// StateFields are ordered xmin, xmax, ymin, ymax.
func (*Extent) StateFields(name string) []arrow.Field {
	fields := make([]arrow.Field, 0, 4)
	for _, s := range []string{"xmin", "xmax", "ymin", "ymax"} {
		fields = append(fields, arrow.Field{Name: fmt.Sprintf("%s[%s]", name, s), Type: arrow.PrimitiveTypes.Float64})
	}
	return fields
}

func (f *Extent) NewAccumulator(args engine.AccumulatorArgs) (engine.Accumulator, error) {
	mem := args.Mem
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	return &ExtentAccumulator{name: f.Name(), mem: mem, bounds: compute.EmptyBounds()}, nil
}

// ExtentAccumulator folds batches into one Bounds.
type ExtentAccumulator struct {
	name   string
	mem    memory.Allocator
	bounds compute.Bounds
}

func (a *ExtentAccumulator) Bounds() compute.Bounds { return a.bounds }

// UpdateBatch folds the geometry column of one batch. A constant
// geometry is folded once.
func (a *ExtentAccumulator) UpdateBatch(values []engine.ColumnarValue) error {
	in, err := udf.ParseInput(a.name, a.mem, values, 1)
	if err != nil {
		return err
	}
	defer in.Release()

	isWKB, err := in.IsWKB()
	if err != nil {
		return err
	}
	if err := in.CheckExtentTag(isWKB); err != nil {
		return err
	}

	if isWKB {
		vals, err := in.WKBValues()
		if err != nil {
			return err
		}
		for i := 0; i < vals.Len(); i++ {
			if !vals.IsValid(i) {
				continue
			}
			g, err := wkb.Decode(vals.Value(i))
			if err != nil {
				return errkind.Wrap(errkind.WKBParse, err, "row %d", i)
			}
			b, err := compute.GeometryBounds(g)
			if err != nil {
				return err
			}
			a.bounds = a.bounds.Merge(b)
		}
		return nil
	}

	geoms, err := in.Native()
	if err != nil {
		return err
	}
	a.bounds = a.bounds.Merge(compute.ArrayExtent(geoms))
	return nil
}

func (a *ExtentAccumulator) State() ([]scalar.Scalar, error) {
	return []scalar.Scalar{
		scalar.NewFloat64Scalar(a.bounds.MinX),
		scalar.NewFloat64Scalar(a.bounds.MaxX),
		scalar.NewFloat64Scalar(a.bounds.MinY),
		scalar.NewFloat64Scalar(a.bounds.MaxY),
	}, nil
}

// MergeBatch folds partial states: min of the lower bounds, max of the
// upper bounds.
func (a *ExtentAccumulator) MergeBatch(states []arrow.Array) error {
	if len(states) != 4 {
		return errkind.New(errkind.Internal, "%s expects 4 state columns, got %d", a.name, len(states))
	}
	cols := make([]*array.Float64, 4)
	for i, s := range states {
		c, ok := s.(*array.Float64)
		if !ok {
			return errkind.New(errkind.Internal, "%s state column %d is %s, not float64", a.name, i, s.DataType())
		}
		cols[i] = c
	}

	xmin, xmax, ymin, ymax := cols[0], cols[1], cols[2], cols[3]
	for i := 0; i < xmin.Len(); i++ {
		if xmin.IsNull(i) {
			continue
		}
		a.bounds = a.bounds.Merge(compute.Bounds{
			MinX: xmin.Value(i), MinY: ymin.Value(i),
			MaxX: xmax.Value(i), MaxY: ymax.Value(i),
		})
	}
	return nil
}

// Evaluate returns {xmin, ymin, xmax, ymax}. With no input the identity
// bounds are returned.
func (a *ExtentAccumulator) Evaluate() (scalar.Scalar, error) {
	return scalar.NewStructScalar([]scalar.Scalar{
		scalar.NewFloat64Scalar(a.bounds.MinX),
		scalar.NewFloat64Scalar(a.bounds.MinY),
		scalar.NewFloat64Scalar(a.bounds.MaxX),
		scalar.NewFloat64Scalar(a.bounds.MaxY),
	}, ExtentType), nil
}
