package geoarrow

import "arrow-spatial/pkg/geom"

// Row views implement the geom traits over slices of the parent column.

type pointRow struct{ c CoordBuffer }

func (r pointRow) GeometryType() geom.GeometryType { return geom.PointType }
func (r pointRow) Dimension() geom.Dimension       { return r.c.Dimension() }
func (r pointRow) Coords() geom.Coords             { return r.c }

type lineStringRow struct{ c CoordBuffer }

func (r lineStringRow) GeometryType() geom.GeometryType { return geom.LineStringType }
func (r lineStringRow) Dimension() geom.Dimension       { return r.c.Dimension() }
func (r lineStringRow) Coords() geom.Coords             { return r.c }

type multiPointRow struct{ c CoordBuffer }

func (r multiPointRow) GeometryType() geom.GeometryType { return geom.MultiPointType }
func (r multiPointRow) Dimension() geom.Dimension       { return r.c.Dimension() }
func (r multiPointRow) Points() geom.Coords             { return r.c }

func ringAt(coords CoordBuffer, offsets []int32, i int) CoordBuffer {
	start, end := offsets[i], offsets[i+1]
	return coords.Slice(int(start), int(end-start))
}

type polygonRow struct {
	coords CoordBuffer
	rings  []int32
}

func (r polygonRow) GeometryType() geom.GeometryType { return geom.PolygonType }
func (r polygonRow) Dimension() geom.Dimension       { return r.coords.Dimension() }
func (r polygonRow) NumRings() int                   { return len(r.rings) - 1 }
func (r polygonRow) Ring(i int) geom.Coords          { return ringAt(r.coords, r.rings, i) }

type multiLineStringRow struct {
	coords CoordBuffer
	lines  []int32
}

func (r multiLineStringRow) GeometryType() geom.GeometryType { return geom.MultiLineStringType }
func (r multiLineStringRow) Dimension() geom.Dimension       { return r.coords.Dimension() }
func (r multiLineStringRow) NumLineStrings() int             { return len(r.lines) - 1 }
func (r multiLineStringRow) LineString(i int) geom.Coords    { return ringAt(r.coords, r.lines, i) }

type multiPolygonRow struct {
	coords   CoordBuffer
	polygons []int32
	rings    []int32
}

func (r multiPolygonRow) GeometryType() geom.GeometryType { return geom.MultiPolygonType }
func (r multiPolygonRow) Dimension() geom.Dimension       { return r.coords.Dimension() }
func (r multiPolygonRow) NumPolygons() int                { return len(r.polygons) - 1 }

func (r multiPolygonRow) Polygon(i int) geom.Polygon {
	return polygonRow{coords: r.coords, rings: r.rings[r.polygons[i] : r.polygons[i+1]+1]}
}

// Value constructors for geometries held outside a column. Offsets are
// in coordinates and carry one more entry than there are parts.

func PointValue(c CoordBuffer) geom.Point           { return pointRow{c} }
func LineStringValue(c CoordBuffer) geom.LineString { return lineStringRow{c} }
func MultiPointValue(c CoordBuffer) geom.MultiPoint { return multiPointRow{c} }

func PolygonValue(c CoordBuffer, rings []int32) geom.Polygon {
	return polygonRow{coords: c, rings: rings}
}

func MultiLineStringValue(c CoordBuffer, lines []int32) geom.MultiLineString {
	return multiLineStringRow{coords: c, lines: lines}
}

// MultiPolygonValue takes polygon offsets into rings and ring offsets
// into c.
func MultiPolygonValue(c CoordBuffer, polygons, rings []int32) geom.MultiPolygon {
	return multiPolygonRow{coords: c, polygons: polygons, rings: rings}
}
