package udf

import (
	"arrow-spatial/pkg/engine"
	"arrow-spatial/pkg/errkind"
	"arrow-spatial/pkg/geoarrow"
	"arrow-spatial/pkg/geom"
	"arrow-spatial/pkg/wkb"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/scalar"
)

// GeometryType is ST_GeometryType, e.g. "ST_Polygon" or "ST_PointZ".
type GeometryType struct{}

func NewGeometryType() *GeometryType { return &GeometryType{} }

func (*GeometryType) Name() string                { return "ST_GeometryType" }
func (*GeometryType) Aliases() []string           { return []string{"st_geometrytype"} }
func (*GeometryType) Signature() engine.Signature { return Signature }

func (f *GeometryType) ReturnType(args []arrow.DataType) (arrow.DataType, error) {
	if _, err := geometryArgType(f.Name(), args); err != nil {
		return nil, err
	}
	return arrow.BinaryTypes.String, nil
}

// Invoke reads the type word of each WKB value. A native column has a
// single type, returned as a scalar unless the column has nulls.
func (f *GeometryType) Invoke(args engine.ScalarArgs) (engine.ColumnarValue, error) {
	in, err := ParseInput(f.Name(), args.Mem, args.Args, args.NumRows)
	if err != nil {
		return engine.ColumnarValue{}, err
	}
	defer in.Release()

	isWKB, err := in.IsWKB()
	if err != nil {
		return engine.ColumnarValue{}, err
	}

	b := array.NewStringBuilder(args.Mem)
	defer b.Release()

	if isWKB {
		vals, err := in.WKBValues()
		if err != nil {
			return engine.ColumnarValue{}, err
		}
		b.Reserve(vals.Len())
		for i := 0; i < vals.Len(); i++ {
			if !vals.IsValid(i) {
				b.AppendNull()
				continue
			}
			tag, err := wkb.TypeOf(vals.Value(i))
			if err != nil {
				return engine.ColumnarValue{}, errkind.Wrap(errkind.KindOf(err), err, "row %d", i)
			}
			b.Append(tag.FunctionName())
		}
		return engine.ArrayValue(b.NewArray()), nil
	}

	tag, err := nativeTag(in)
	if err != nil {
		return engine.ColumnarValue{}, err
	}
	name := tag.FunctionName()
	if in.Arr.NullN() == 0 {
		return engine.ScalarValue(scalar.NewStringScalar(name)), nil
	}
	b.Reserve(in.Arr.Len())
	for i := 0; i < in.Arr.Len(); i++ {
		if in.Arr.IsValid(i) {
			b.Append(name)
		} else {
			b.AppendNull()
		}
	}
	return engine.ArrayValue(b.NewArray()), nil
}

// nativeTag is the declared type of a native column. A column declared
// Unknown or Mixed reports the variant of its encoding with the
// dimension of its coordinate leaf.
func nativeTag(in *Input) (geom.Tag, error) {
	if in.Tag.Concrete() {
		return in.Tag, nil
	}
	dim, err := geoarrow.DimensionOf(in.Arr.DataType())
	if err != nil {
		return geom.Tag{}, err
	}
	return geom.Tag{Type: in.Enc.GeometryType(), Dim: dim}, nil
}
