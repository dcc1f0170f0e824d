package geom

import "math"

// Coords is a read-only sequence of coordinates.
type Coords interface {
	Len() int
	// At returns the value of axis for coordinate i.
	At(i, axis int) float64
}

// Geometry is the capability shared by every geometry value. Callers
// switch on GeometryType and assert to the matching trait below.
type Geometry interface {
	GeometryType() GeometryType
	Dimension() Dimension
}

// Point holds zero (empty) or one coordinate.
type Point interface {
	Geometry
	Coords() Coords
}

type LineString interface {
	Geometry
	Coords() Coords
}

// Polygon rings are ordered exterior first.
type Polygon interface {
	Geometry
	NumRings() int
	Ring(i int) Coords
}

// MultiPoint exposes its points as one coordinate sequence; an empty
// member point has NaN coordinates.
type MultiPoint interface {
	Geometry
	Points() Coords
}

type MultiLineString interface {
	Geometry
	NumLineStrings() int
	LineString(i int) Coords
}

type MultiPolygon interface {
	Geometry
	NumPolygons() int
	Polygon(i int) Polygon
}

type GeometryCollection interface {
	Geometry
	NumGeometries() int
	Geometry(i int) Geometry
}

// Rect is an axis-aligned box.
type Rect interface {
	Geometry
	Lower(axis int) float64
	Upper(axis int) float64
}

// IsEmptyCoord reports whether coordinate i has NaN x and y, the empty
// point sentinel.
func IsEmptyCoord(c Coords, i int) bool {
	return math.IsNaN(c.At(i, 0)) && math.IsNaN(c.At(i, 1))
}

// Box is a concrete Rect.
type Box struct {
	Dim Dimension
	Min [3]float64
	Max [3]float64
}

// NewBox returns an XY box.
func NewBox(xmin, ymin, xmax, ymax float64) *Box {
	return &Box{Dim: XY, Min: [3]float64{xmin, ymin}, Max: [3]float64{xmax, ymax}}
}

func (b *Box) GeometryType() GeometryType { return RectType }
func (b *Box) Dimension() Dimension       { return b.Dim }
func (b *Box) Lower(axis int) float64     { return b.Min[axis] }
func (b *Box) Upper(axis int) float64     { return b.Max[axis] }
