package geoarrow

import (
	"math"

	"arrow-spatial/pkg/errkind"
	"arrow-spatial/pkg/geom"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Builder appends geometries to a native column.
type Builder struct {
	native NativeType
	root   array.Builder
	lists  []*array.ListBuilder
	coords coordAppender
}

type coordAppender struct {
	dim  int
	fsl  *array.FixedSizeListBuilder
	vals *array.Float64Builder
	st   *array.StructBuilder
	axes [3]*array.Float64Builder
}

func newCoordAppender(b array.Builder, dim geom.Dimension) coordAppender {
	a := coordAppender{dim: dim.Size()}
	switch cb := b.(type) {
	case *array.FixedSizeListBuilder:
		a.fsl = cb
		a.vals = cb.ValueBuilder().(*array.Float64Builder)
	case *array.StructBuilder:
		a.st = cb
		for i := 0; i < a.dim; i++ {
			a.axes[i] = cb.FieldBuilder(i).(*array.Float64Builder)
		}
	}
	return a
}

func (a *coordAppender) append(c geom.Coords, i int) {
	if a.fsl != nil {
		a.fsl.Append(true)
		for axis := 0; axis < a.dim; axis++ {
			a.vals.Append(c.At(i, axis))
		}
		return
	}
	a.st.Append(true)
	for axis := 0; axis < a.dim; axis++ {
		a.axes[axis].Append(c.At(i, axis))
	}
}

func (a *coordAppender) appendXY(x, y float64) {
	if a.fsl != nil {
		a.fsl.Append(true)
		a.vals.Append(x)
		a.vals.Append(y)
		for axis := 2; axis < a.dim; axis++ {
			a.vals.Append(math.NaN())
		}
		return
	}
	a.st.Append(true)
	a.axes[0].Append(x)
	a.axes[1].Append(y)
	for axis := 2; axis < a.dim; axis++ {
		a.axes[axis].Append(math.NaN())
	}
}

func (a *coordAppender) appendNull() {
	if a.fsl != nil {
		a.fsl.AppendNull()
		return
	}
	a.st.AppendNull()
	for axis := 0; axis < a.dim; axis++ {
		if a.axes[axis].Len() < a.st.Len() {
			a.axes[axis].AppendNull()
		}
	}
}

// NewBuilder returns a builder for the native layout.
func NewBuilder(mem memory.Allocator, native NativeType) *Builder {
	root := array.NewBuilder(mem, native.DataType())
	b := &Builder{native: native, root: root}

	inner := root
	for i := 0; i < native.Depth(); i++ {
		l := inner.(*array.ListBuilder)
		b.lists = append(b.lists, l)
		inner = l.ValueBuilder()
	}
	b.coords = newCoordAppender(inner, native.Dim)
	return b
}

// NewEnvelopeBuilder returns a builder of separated XY polygons.
func NewEnvelopeBuilder(mem memory.Allocator) *Builder {
	return NewBuilder(mem, EnvelopeType)
}

func (b *Builder) NativeType() NativeType { return b.native }
func (b *Builder) Len() int               { return b.root.Len() }

func (b *Builder) AppendNull() {
	if len(b.lists) == 0 {
		b.coords.appendNull()
		return
	}
	b.lists[0].AppendNull()
}

// AppendBox appends the closed ring (xmin ymin, xmax ymin, xmax ymax,
// xmin ymax, xmin ymin) to a polygon builder.
func (b *Builder) AppendBox(xmin, ymin, xmax, ymax float64) {
	b.lists[0].Append(true)
	b.lists[1].Append(true)
	b.coords.appendXY(xmin, ymin)
	b.coords.appendXY(xmax, ymin)
	b.coords.appendXY(xmax, ymax)
	b.coords.appendXY(xmin, ymax)
	b.coords.appendXY(xmin, ymin)
}

func (b *Builder) appendSeq(c geom.Coords) {
	for i := 0; i < c.Len(); i++ {
		b.coords.append(c, i)
	}
}

// Append appends g, which must be of the builder's variant and dimension.
func (b *Builder) Append(g geom.Geometry) error {
	if g == nil {
		b.AppendNull()
		return nil
	}
	if g.GeometryType() != b.native.Type {
		return errkind.New(errkind.UnsupportedGeometry, "cannot append %s to a %s column", g.GeometryType(), b.native.Type)
	}
	if g.Dimension() != b.native.Dim {
		return errkind.New(errkind.UnsupportedGeometry, "cannot append %s geometry to a %s column", g.Dimension(), b.native.Dim)
	}

	var ok bool
	switch b.native.Type {
	case geom.PointType:
		var p geom.Point
		if p, ok = g.(geom.Point); ok {
			if c := p.Coords(); c.Len() > 0 {
				b.coords.append(c, 0)
			} else {
				b.coords.appendXY(math.NaN(), math.NaN())
			}
		}
	case geom.LineStringType:
		var ls geom.LineString
		if ls, ok = g.(geom.LineString); ok {
			b.lists[0].Append(true)
			b.appendSeq(ls.Coords())
		}
	case geom.MultiPointType:
		var mp geom.MultiPoint
		if mp, ok = g.(geom.MultiPoint); ok {
			b.lists[0].Append(true)
			b.appendSeq(mp.Points())
		}
	case geom.PolygonType:
		var p geom.Polygon
		if p, ok = g.(geom.Polygon); ok {
			b.lists[0].Append(true)
			for i := 0; i < p.NumRings(); i++ {
				b.lists[1].Append(true)
				b.appendSeq(p.Ring(i))
			}
		}
	case geom.MultiLineStringType:
		var ml geom.MultiLineString
		if ml, ok = g.(geom.MultiLineString); ok {
			b.lists[0].Append(true)
			for i := 0; i < ml.NumLineStrings(); i++ {
				b.lists[1].Append(true)
				b.appendSeq(ml.LineString(i))
			}
		}
	case geom.MultiPolygonType:
		var mp geom.MultiPolygon
		if mp, ok = g.(geom.MultiPolygon); ok {
			b.lists[0].Append(true)
			for i := 0; i < mp.NumPolygons(); i++ {
				p := mp.Polygon(i)
				b.lists[1].Append(true)
				for r := 0; r < p.NumRings(); r++ {
					b.lists[2].Append(true)
					b.appendSeq(p.Ring(r))
				}
			}
		}
	}

	if !ok {
		return errkind.New(errkind.UnsupportedGeometry, "cannot append %T to a %s column", g, b.native.Type)
	}
	return nil
}

// NewArray finishes the column and resets the builder.
func (b *Builder) NewArray() arrow.Array {
	return b.root.NewArray()
}

func (b *Builder) Release() {
	b.root.Release()
}
