package udf

import (
	"arrow-spatial/pkg/compute"
	"arrow-spatial/pkg/engine"
	"arrow-spatial/pkg/errkind"
	"arrow-spatial/pkg/geoarrow"
	"arrow-spatial/pkg/wkb"

	"github.com/apache/arrow-go/v18/arrow"
)

// Envelope is ST_Envelope: the bounding rectangle of each geometry as a
// separated XY polygon. Null, empty and empty-point rows give null.
type Envelope struct{}

func NewEnvelope() *Envelope { return &Envelope{} }

func (*Envelope) Name() string                { return "ST_Envelope" }
func (*Envelope) Aliases() []string           { return []string{"st_envelope"} }
func (*Envelope) Signature() engine.Signature { return Signature }

func (f *Envelope) ReturnType(args []arrow.DataType) (arrow.DataType, error) {
	if _, err := geometryArgType(f.Name(), args); err != nil {
		return nil, err
	}
	return geoarrow.EnvelopeType.DataType(), nil
}

func (f *Envelope) Invoke(args engine.ScalarArgs) (engine.ColumnarValue, error) {
	in, err := ParseInput(f.Name(), args.Mem, args.Args, args.NumRows)
	if err != nil {
		return engine.ColumnarValue{}, err
	}
	defer in.Release()

	isWKB, err := in.IsWKB()
	if err != nil {
		return engine.ColumnarValue{}, err
	}
	if err := in.CheckExtentTag(isWKB); err != nil {
		return engine.ColumnarValue{}, err
	}

	b := geoarrow.NewEnvelopeBuilder(args.Mem)
	defer b.Release()

	appendBounds := func(bounds compute.Bounds) {
		if bounds.IsEmpty() {
			b.AppendNull()
			return
		}
		b.AppendBox(bounds.MinX, bounds.MinY, bounds.MaxX, bounds.MaxY)
	}

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
			bounds, err := compute.GeometryBounds(g)
			if err != nil {
				return engine.ColumnarValue{}, err
			}
			appendBounds(bounds)
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
		appendBounds(compute.RowExtent(geoms, i))
	}
	return engine.ArrayValue(b.NewArray()), nil
}
