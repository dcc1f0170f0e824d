// Package geoarrowtest builds small native geometry columns for tests
// of the spatial kernels.
package geoarrowtest

import (
	"testing"

	"arrow-spatial/pkg/compute"
	"arrow-spatial/pkg/geoarrow"
	"arrow-spatial/pkg/geom"
	"arrow-spatial/pkg/wkb"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"
	gogeom "github.com/twpayne/go-geom"
)

// Shift is added to both axes of the last row built by Column.
const Shift = 100

// Z is the third coordinate of every XYZ sample.
const Z = 7

// Variant is one native geometry variant with a sample value.
type Variant struct {
	Type geom.GeometryType
	Enc  geom.Encoding
	// Sample builds the sample with x and y moved by d.
	Sample func(l gogeom.Layout, d float64) gogeom.T
	// Bounds is the XY extent of the unmoved sample as minx, miny, maxx, maxy.
	Bounds [4]float64
}

// Tag is the declared type of the variant at dim.
func (v Variant) Tag(dim geom.Dimension) geom.Tag {
	return geom.Tag{Type: v.Type, Dim: dim}
}

// BoundsAt is the extent of Sample(l, d).
func (v Variant) BoundsAt(d float64) compute.Bounds {
	return compute.Bounds{MinX: v.Bounds[0] + d, MinY: v.Bounds[1] + d, MaxX: v.Bounds[2] + d, MaxY: v.Bounds[3] + d}
}

// Layout is the go-geom layout for dim.
func Layout(dim geom.Dimension) gogeom.Layout {
	if dim == geom.XYZ {
		return gogeom.XYZ
	}
	return gogeom.XY
}

type moved struct {
	l gogeom.Layout
	d float64
}

func (m moved) c(x, y float64) gogeom.Coord {
	if m.l == gogeom.XYZ {
		return gogeom.Coord{x + m.d, y + m.d, Z}
	}
	return gogeom.Coord{x + m.d, y + m.d}
}

func (m moved) seq(xy ...float64) []gogeom.Coord {
	out := make([]gogeom.Coord, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		out = append(out, m.c(xy[i], xy[i+1]))
	}
	return out
}

// Variants returns one sample per native variant.
func Variants() []Variant {
	return []Variant{
		{
			Type: geom.PointType, Enc: geom.EncodingPoint,
			Sample: func(l gogeom.Layout, d float64) gogeom.T {
				return gogeom.NewPoint(l).MustSetCoords(moved{l, d}.c(1, 2))
			},
			Bounds: [4]float64{1, 2, 1, 2},
		},
		{
			Type: geom.LineStringType, Enc: geom.EncodingLineString,
			Sample: func(l gogeom.Layout, d float64) gogeom.T {
				return gogeom.NewLineString(l).MustSetCoords(moved{l, d}.seq(0, 0, 4, -2))
			},
			Bounds: [4]float64{0, -2, 4, 0},
		},
		{
			Type: geom.PolygonType, Enc: geom.EncodingPolygon,
			Sample: func(l gogeom.Layout, d float64) gogeom.T {
				m := moved{l, d}
				return gogeom.NewPolygon(l).MustSetCoords([][]gogeom.Coord{m.seq(0, 0, 3, 0, 3, 5, 0, 0)})
			},
			Bounds: [4]float64{0, 0, 3, 5},
		},
		{
			Type: geom.MultiPointType, Enc: geom.EncodingMultiPoint,
			Sample: func(l gogeom.Layout, d float64) gogeom.T {
				return gogeom.NewMultiPoint(l).MustSetCoords(moved{l, d}.seq(1, 1, -1, 6))
			},
			Bounds: [4]float64{-1, 1, 1, 6},
		},
		{
			Type: geom.MultiLineStringType, Enc: geom.EncodingMultiLineString,
			Sample: func(l gogeom.Layout, d float64) gogeom.T {
				m := moved{l, d}
				return gogeom.NewMultiLineString(l).MustSetCoords([][]gogeom.Coord{
					m.seq(0, 0, 1, 1),
					m.seq(5, -3, 2, 2),
				})
			},
			Bounds: [4]float64{0, -3, 5, 2},
		},
		{
			Type: geom.MultiPolygonType, Enc: geom.EncodingMultiPolygon,
			Sample: func(l gogeom.Layout, d float64) gogeom.T {
				m := moved{l, d}
				return gogeom.NewMultiPolygon(l).MustSetCoords([][][]gogeom.Coord{
					{m.seq(0, 0, 2, 0, 0, 2, 0, 0)},
					{m.seq(10, 10, 12, 10, 10, 13, 10, 10)},
				})
			},
			Bounds: [4]float64{0, 0, 12, 13},
		},
	}
}

// Column builds three rows of v: the sample, a null and the sample
// moved by Shift.
func Column(t testing.TB, mem memory.Allocator, v Variant, layout geoarrow.CoordLayout, dim geom.Dimension) arrow.Array {
	t.Helper()
	b := geoarrow.NewBuilder(mem, geoarrow.NativeType{Type: v.Type, Layout: layout, Dim: dim})
	defer b.Release()

	for _, g := range []gogeom.T{v.Sample(Layout(dim), 0), nil, v.Sample(Layout(dim), Shift)} {
		if g == nil {
			b.AppendNull()
			continue
		}
		val, err := wkb.FromGeom(g)
		require.NoError(t, err)
		require.NoError(t, b.Append(val))
	}
	return b.NewArray()
}
