package udf

import (
	"strings"

	"arrow-spatial/pkg/engine"
	"arrow-spatial/pkg/errkind"
	"arrow-spatial/pkg/wkb"
	"arrow-spatial/pkg/wkt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// AsText is ST_AsText: the well-known text of each geometry.
type AsText struct{}

func NewAsText() *AsText { return &AsText{} }

func (*AsText) Name() string                { return "ST_AsText" }
func (*AsText) Aliases() []string           { return []string{"st_astext"} }
func (*AsText) Signature() engine.Signature { return Signature }

// ReturnType is LargeUtf8 for LargeBinary input and Utf8 otherwise.
func (f *AsText) ReturnType(args []arrow.DataType) (arrow.DataType, error) {
	dt, err := geometryArgType(f.Name(), args)
	if err != nil {
		return nil, err
	}
	if dt.ID() == arrow.LARGE_BINARY {
		return arrow.BinaryTypes.LargeString, nil
	}
	return arrow.BinaryTypes.String, nil
}

type textBuilder interface {
	array.Builder
	Append(string)
}

func (f *AsText) Invoke(args engine.ScalarArgs) (engine.ColumnarValue, error) {
	in, err := ParseInput(f.Name(), args.Mem, args.Args, args.NumRows)
	if err != nil {
		return engine.ColumnarValue{}, err
	}
	defer in.Release()

	isWKB, err := in.IsWKB()
	if err != nil {
		return engine.ColumnarValue{}, err
	}

	var b textBuilder
	if in.Arr.DataType().ID() == arrow.LARGE_BINARY {
		b = array.NewLargeStringBuilder(args.Mem)
	} else {
		b = array.NewStringBuilder(args.Mem)
	}
	defer b.Release()
	b.Reserve(in.Arr.Len())

	var sb strings.Builder
	if isWKB {
		vals, err := in.WKBValues()
		if err != nil {
			return engine.ColumnarValue{}, err
		}
		for i := 0; i < vals.Len(); i++ {
			if !vals.IsValid(i) {
				b.AppendNull()
				continue
			}
			g, err := wkb.Decode(vals.Value(i))
			if err != nil {
				return engine.ColumnarValue{}, errkind.Wrap(errkind.WKBParse, err, "row %d", i)
			}
			sb.Reset()
			if err := wkt.Write(&sb, g); err != nil {
				return engine.ColumnarValue{}, err
			}
			b.Append(sb.String())
		}
		return engine.ArrayValue(b.NewArray()), nil
	}

	geoms, err := in.Native()
	if err != nil {
		return engine.ColumnarValue{}, err
	}
	for i := 0; i < geoms.Len(); i++ {
		if !geoms.IsValid(i) {
			b.AppendNull()
			continue
		}
		sb.Reset()
		if err := wkt.Write(&sb, geoms.Value(i)); err != nil {
			return engine.ColumnarValue{}, err
		}
		b.Append(sb.String())
	}
	return engine.ArrayValue(b.NewArray()), nil
}
