package wkt

import (
	"io"
	"strings"

	"arrow-spatial/pkg/errkind"
	"arrow-spatial/pkg/geom"
)

// Sink is the text destination of the writer. strings.Builder and
// bufio.Writer satisfy it.
type Sink interface {
	io.StringWriter
	io.ByteWriter
}

// Write serializes g as well-known text into s.
func Write(s Sink, g geom.Geometry) error {
	w := writer{sink: s}
	w.geometry(g)
	return w.err
}

// String returns the well-known text of g.
func String(g geom.Geometry) (string, error) {
	var sb strings.Builder
	if err := Write(&sb, g); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// writer keeps the first sink error and turns every later write into a no-op.
type writer struct {
	sink    Sink
	err     error
	scratch []byte
}

func (w *writer) str(s string) {
	if w.err == nil {
		_, w.err = w.sink.WriteString(s)
	}
}

func (w *writer) char(c byte) {
	if w.err == nil {
		w.err = w.sink.WriteByte(c)
	}
}

func (w *writer) float(v float64) {
	w.scratch = AppendFloat(w.scratch[:0], v)
	w.str(string(w.scratch))
}

func (w *writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *writer) geometry(g geom.Geometry) {
	t := g.GeometryType()
	var ok bool

	switch t {
	case geom.PointType:
		var p geom.Point
		if p, ok = g.(geom.Point); ok {
			w.point(p)
		}
	case geom.LineStringType:
		var ls geom.LineString
		if ls, ok = g.(geom.LineString); ok {
			w.lineString(ls)
		}
	case geom.PolygonType:
		var p geom.Polygon
		if p, ok = g.(geom.Polygon); ok {
			w.polygon(p)
		}
	case geom.MultiPointType:
		var mp geom.MultiPoint
		if mp, ok = g.(geom.MultiPoint); ok {
			w.multiPoint(mp)
		}
	case geom.MultiLineStringType:
		var ml geom.MultiLineString
		if ml, ok = g.(geom.MultiLineString); ok {
			w.multiLineString(ml)
		}
	case geom.MultiPolygonType:
		var mp geom.MultiPolygon
		if mp, ok = g.(geom.MultiPolygon); ok {
			w.multiPolygon(mp)
		}
	case geom.GeometryCollectionType:
		var gc geom.GeometryCollection
		if gc, ok = g.(geom.GeometryCollection); ok {
			w.collection(gc)
		}
	case geom.RectType:
		var r geom.Rect
		if r, ok = g.(geom.Rect); ok {
			w.rect(r)
		}
	}

	if !ok {
		w.fail(errkind.New(errkind.UnsupportedGeometry, "cannot write %s as wkt", t))
	}
}

// dimension writes the separator between keyword and body and returns
// the number of axes to print.
func (w *writer) dimension(d geom.Dimension) int {
	if d == geom.XYZ {
		w.str(" Z ")
		return 3
	}
	w.char(' ')
	return 2
}

func (w *writer) coord(c geom.Coords, i, n int) {
	w.float(c.At(i, 0))
	for axis := 1; axis < n; axis++ {
		w.char(' ')
		w.float(c.At(i, axis))
	}
}

func (w *writer) coords(c geom.Coords, n int) {
	if c.Len() == 0 {
		w.str("EMPTY")
		return
	}

	w.char('(')
	w.coord(c, 0, n)
	for i := 1; i < c.Len(); i++ {
		w.char(',')
		w.coord(c, i, n)
	}
	w.char(')')
}

func (w *writer) pointBody(c geom.Coords, i, n int) {
	if geom.IsEmptyCoord(c, i) {
		w.str("EMPTY")
		return
	}
	w.char('(')
	w.coord(c, i, n)
	w.char(')')
}

func (w *writer) point(p geom.Point) {
	w.str("POINT")

	c := p.Coords()
	if c.Len() == 0 || geom.IsEmptyCoord(c, 0) {
		w.str(" EMPTY")
		return
	}

	n := w.dimension(p.Dimension())
	w.pointBody(c, 0, n)
}

func (w *writer) lineString(ls geom.LineString) {
	w.str("LINESTRING")

	c := ls.Coords()
	if c.Len() == 0 {
		w.str(" EMPTY")
		return
	}

	n := w.dimension(ls.Dimension())
	w.coords(c, n)
}

func emptyPolygon(p geom.Polygon) bool {
	return p.NumRings() == 0 || p.Ring(0).Len() == 0
}

func (w *writer) rings(p geom.Polygon, n int) {
	if emptyPolygon(p) {
		w.str("EMPTY")
		return
	}

	w.char('(')
	w.coords(p.Ring(0), n)
	for i := 1; i < p.NumRings(); i++ {
		w.char(',')
		w.coords(p.Ring(i), n)
	}
	w.char(')')
}

func (w *writer) polygon(p geom.Polygon) {
	w.str("POLYGON")

	if emptyPolygon(p) {
		w.str(" EMPTY")
		return
	}

	n := w.dimension(p.Dimension())
	w.rings(p, n)
}

func (w *writer) multiPoint(mp geom.MultiPoint) {
	w.str("MULTIPOINT")

	c := mp.Points()
	if c.Len() == 0 {
		w.str(" EMPTY")
		return
	}

	n := w.dimension(mp.Dimension())
	w.char('(')
	w.pointBody(c, 0, n)
	for i := 1; i < c.Len(); i++ {
		w.char(',')
		w.pointBody(c, i, n)
	}
	w.char(')')
}

func (w *writer) multiLineString(ml geom.MultiLineString) {
	w.str("MULTILINESTRING")

	if ml.NumLineStrings() == 0 {
		w.str(" EMPTY")
		return
	}

	n := w.dimension(ml.Dimension())
	w.char('(')
	w.coords(ml.LineString(0), n)
	for i := 1; i < ml.NumLineStrings(); i++ {
		w.char(',')
		w.coords(ml.LineString(i), n)
	}
	w.char(')')
}

func (w *writer) multiPolygon(mp geom.MultiPolygon) {
	w.str("MULTIPOLYGON")

	if mp.NumPolygons() == 0 {
		w.str(" EMPTY")
		return
	}

	n := w.dimension(mp.Dimension())
	w.char('(')
	w.rings(mp.Polygon(0), n)
	for i := 1; i < mp.NumPolygons(); i++ {
		w.char(',')
		w.rings(mp.Polygon(i), n)
	}
	w.char(')')
}

func (w *writer) collection(gc geom.GeometryCollection) {
	w.str("GEOMETRYCOLLECTION")

	if gc.NumGeometries() == 0 {
		w.str(" EMPTY")
		return
	}

	w.dimension(gc.Dimension())
	w.char('(')
	w.geometry(gc.Geometry(0))
	for i := 1; i < gc.NumGeometries(); i++ {
		w.char(',')
		w.geometry(gc.Geometry(i))
	}
	w.char(')')
}

func (w *writer) rect(r geom.Rect) {
	if r.Dimension() != geom.XY {
		w.fail(errkind.New(errkind.UnsupportedGeometry, "cannot write %s rect as wkt", r.Dimension()))
		return
	}

	xl, yl := r.Lower(0), r.Lower(1)
	xu, yu := r.Upper(0), r.Upper(1)

	w.str("POLYGON (")
	for i, xy := range [5][2]float64{{xl, yl}, {xu, yl}, {xu, yu}, {xl, yu}, {xl, yl}} {
		if i > 0 {
			w.char(',')
		}
		w.float(xy[0])
		w.char(' ')
		w.float(xy[1])
	}
	w.char(')')
}
