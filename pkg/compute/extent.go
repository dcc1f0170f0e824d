// Package compute holds the coordinate scans shared by the envelope and
// extent kernels.
package compute

import (
	"math"

	"arrow-spatial/pkg/errkind"
	"arrow-spatial/pkg/geoarrow"
	"arrow-spatial/pkg/geom"
)

// Bounds is a 2D bounding rectangle. The zero-contribution value is
// EmptyBounds, whose upper corner lies below its lower corner.
type Bounds struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// EmptyBounds returns the identity of Merge.
func EmptyBounds() Bounds {
	return Bounds{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
}

// IsEmpty reports whether b covers no coordinate.
func (b Bounds) IsEmpty() bool {
	return b.MaxX < b.MinX || b.MaxY < b.MinY
}

// Extend grows b to cover (x, y). NaN never wins a comparison.
func (b *Bounds) Extend(x, y float64) {
	if x < b.MinX {
		b.MinX = x
	}
	if x > b.MaxX {
		b.MaxX = x
	}
	if y < b.MinY {
		b.MinY = y
	}
	if y > b.MaxY {
		b.MaxY = y
	}
}

// Merge returns the union of b and o: min of the lower bounds and max
// of the upper bounds.
func (b Bounds) Merge(o Bounds) Bounds {
	out := b
	if o.MinX < out.MinX {
		out.MinX = o.MinX
	}
	if o.MinY < out.MinY {
		out.MinY = o.MinY
	}
	if o.MaxX > out.MaxX {
		out.MaxX = o.MaxX
	}
	if o.MaxY > out.MaxY {
		out.MaxY = o.MaxY
	}
	return out
}

// Box returns b as a rect geometry.
func (b Bounds) Box() *geom.Box {
	return geom.NewBox(b.MinX, b.MinY, b.MaxX, b.MaxY)
}

// Extent scans axes 0 and 1 of c. Interleaved buffers are folded in
// stride chunks where NaN is never taken. Separated buffers are scanned
// one axis at a time: with skipEmpty NaN values are dropped, without it
// NaN sorts above every number and so ends up as the maximum, and an
// axis holding only NaN has NaN for both its minimum and maximum.
func Extent(c geoarrow.CoordBuffer, skipEmpty bool) Bounds {
	b := EmptyBounds()
	if c.Len() == 0 {
		return b
	}

	if c.Layout() == geoarrow.Interleaved {
		flat := c.Flat()
		stride := c.Dimension().Size()
		for i := 0; i+1 < len(flat); i += stride {
			b.Extend(flat[i], flat[i+1])
		}
		return b
	}

	b.MinX, b.MaxX = axisMinMax(c.Axis(0), skipEmpty)
	b.MinY, b.MaxY = axisMinMax(c.Axis(1), skipEmpty)
	return b
}

func axisMinMax(vals []float64, skipNaN bool) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	numbers := false
	for _, v := range vals {
		if math.IsNaN(v) {
			if !skipNaN {
				hi = v
			}
			continue
		}
		numbers = true
		if v < lo {
			lo = v
		}
		if v > hi && !math.IsNaN(hi) {
			hi = v
		}
	}
	if !numbers && math.IsNaN(hi) {
		lo = hi
	}
	return lo, hi
}

// RowExtent returns the bounds of row i of a native array. Empty points
// never contribute.
func RowExtent(a geoarrow.Array, i int) Bounds {
	return Extent(a.RowCoords(i), a.NativeType().Type == geom.PointType)
}

// ArrayExtent folds every valid row of a. Null rows contribute nothing.
func ArrayExtent(a geoarrow.Array) Bounds {
	b := EmptyBounds()
	for i := 0; i < a.Len(); i++ {
		if a.IsValid(i) {
			b = b.Merge(RowExtent(a, i))
		}
	}
	return b
}

// GeometryBounds walks g through its traits. Empty points are skipped.
func GeometryBounds(g geom.Geometry) (Bounds, error) {
	b := EmptyBounds()
	if err := foldGeometry(&b, g); err != nil {
		return EmptyBounds(), err
	}
	return b, nil
}

func foldCoords(b *Bounds, c geom.Coords) {
	for i := 0; i < c.Len(); i++ {
		if geom.IsEmptyCoord(c, i) {
			continue
		}
		b.Extend(c.At(i, 0), c.At(i, 1))
	}
}

func foldGeometry(b *Bounds, g geom.Geometry) error {
	ok := true
	switch g.GeometryType() {
	case geom.PointType, geom.LineStringType:
		var v interface{ Coords() geom.Coords }
		if v, ok = g.(interface{ Coords() geom.Coords }); ok {
			foldCoords(b, v.Coords())
		}
	case geom.MultiPointType:
		var v geom.MultiPoint
		if v, ok = g.(geom.MultiPoint); ok {
			foldCoords(b, v.Points())
		}
	case geom.PolygonType:
		var v geom.Polygon
		if v, ok = g.(geom.Polygon); ok {
			foldPolygon(b, v)
		}
	case geom.MultiLineStringType:
		var v geom.MultiLineString
		if v, ok = g.(geom.MultiLineString); ok {
			for l := 0; l < v.NumLineStrings(); l++ {
				foldCoords(b, v.LineString(l))
			}
		}
	case geom.MultiPolygonType:
		var v geom.MultiPolygon
		if v, ok = g.(geom.MultiPolygon); ok {
			for p := 0; p < v.NumPolygons(); p++ {
				foldPolygon(b, v.Polygon(p))
			}
		}
	case geom.GeometryCollectionType:
		var v geom.GeometryCollection
		if v, ok = g.(geom.GeometryCollection); ok {
			for j := 0; j < v.NumGeometries(); j++ {
				if err := foldGeometry(b, v.Geometry(j)); err != nil {
					return err
				}
			}
		}
	case geom.RectType:
		var v geom.Rect
		if v, ok = g.(geom.Rect); ok {
			b.Extend(v.Lower(0), v.Lower(1))
			b.Extend(v.Upper(0), v.Upper(1))
		}
	default:
		ok = false
	}

	if !ok {
		return errkind.New(errkind.UnsupportedGeometry, "cannot compute bounds of %s", g.GeometryType())
	}
	return nil
}

func foldPolygon(b *Bounds, p geom.Polygon) {
	for r := 0; r < p.NumRings(); r++ {
		foldCoords(b, p.Ring(r))
	}
}
