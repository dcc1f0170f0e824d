package wkb

import (
	"encoding/binary"
	"math"

	"arrow-spatial/pkg/errkind"
	"arrow-spatial/pkg/geoarrow"
	"arrow-spatial/pkg/geom"

	gogeom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	gowkb "github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geom/encoding/wkbcommon"
)

// EWKB flag bits in the geometry type word.
const (
	ewkbZ    = 0x80000000
	ewkbM    = 0x40000000
	ewkbSRID = 0x20000000
)

var variants = map[uint32]geom.GeometryType{
	1: geom.PointType,
	2: geom.LineStringType,
	3: geom.PolygonType,
	4: geom.MultiPointType,
	5: geom.MultiLineStringType,
	6: geom.MultiPolygonType,
	7: geom.GeometryCollectionType,
}

func header(b []byte) (uint32, error) {
	if len(b) < 5 {
		return 0, errkind.New(errkind.WKBParse, "wkb value too short: %d bytes", len(b))
	}
	switch b[0] {
	case 0:
		return binary.BigEndian.Uint32(b[1:5]), nil
	case 1:
		return binary.LittleEndian.Uint32(b[1:5]), nil
	}
	return 0, errkind.New(errkind.WKBParse, "unknown wkb byte order %d", b[0])
}

// TypeOf reads the type word of a WKB or EWKB value without decoding
// the coordinates.
func TypeOf(b []byte) (geom.Tag, error) {
	code, err := header(b)
	if err != nil {
		return geom.Tag{}, err
	}

	var base uint32
	var z, m bool
	if code&(ewkbZ|ewkbM|ewkbSRID) != 0 {
		base = code & 0x0fffffff
		z, m = code&ewkbZ != 0, code&ewkbM != 0
	} else {
		base = code % 1000
		switch code / 1000 {
		case 0:
		case 1:
			z = true
		case 2:
			m = true
		case 3:
			z, m = true, true
		default:
			return geom.Tag{}, errkind.New(errkind.WKBParse, "unknown wkb geometry type %d", code)
		}
	}

	t, ok := variants[base]
	if !ok {
		return geom.Tag{}, errkind.New(errkind.WKBParse, "unknown wkb geometry type %d", code)
	}
	if m {
		return geom.Tag{}, errkind.New(errkind.UnsupportedGeometry, "measured %s geometries are not supported", t)
	}

	tag := geom.Tag{Type: t, Dim: geom.XY}
	if z {
		tag.Dim = geom.XYZ
	}
	return tag, nil
}

// Unmarshal parses a WKB (ISO or EWKB) value.
func Unmarshal(b []byte) (gogeom.T, error) {
	code, err := header(b)
	if err != nil {
		return nil, err
	}

	var g gogeom.T
	if code&(ewkbZ|ewkbM|ewkbSRID) != 0 {
		g, err = ewkb.Unmarshal(b)
	} else {
		g, err = gowkb.Unmarshal(b, wkbcommon.WKBOptionEmptyPointHandling(wkbcommon.EmptyPointHandlingNaN))
	}
	if err != nil {
		return nil, errkind.Wrap(errkind.WKBParse, err, "failed to decode wkb")
	}
	return g, nil
}

// Decode parses a WKB (ISO or EWKB) value into a geometry trait value.
func Decode(b []byte) (geom.Geometry, error) {
	g, err := Unmarshal(b)
	if err != nil {
		return nil, err
	}
	return FromGeom(g)
}

// Encode writes g as little-endian ISO WKB; empty points become NaN
// coordinates.
func Encode(g gogeom.T) ([]byte, error) {
	return gowkb.Marshal(g, binary.LittleEndian, wkbcommon.WKBOptionEmptyPointHandling(wkbcommon.EmptyPointHandlingNaN))
}

func dimension(layout gogeom.Layout) (geom.Dimension, error) {
	switch layout {
	case gogeom.XY, gogeom.NoLayout:
		return geom.XY, nil
	case gogeom.XYZ:
		return geom.XYZ, nil
	}
	return 0, errkind.New(errkind.UnsupportedGeometry, "%s geometries are not supported", layout)
}

// coordOffsets converts go-geom ends, counted in values, into
// coordinate offsets starting at zero.
func coordOffsets(ends []int, stride int) []int32 {
	out := make([]int32, 0, len(ends)+1)
	out = append(out, 0)
	for _, end := range ends {
		out = append(out, int32(end/stride))
	}
	return out
}

// FromGeom adapts a go-geom geometry. Only XY and XYZ layouts are accepted.
func FromGeom(g gogeom.T) (geom.Geometry, error) {
	dim, err := dimension(g.Layout())
	if err != nil {
		return nil, err
	}
	stride := dim.Size()

	switch t := g.(type) {
	case *gogeom.Point:
		if t.Empty() {
			return geoarrow.PointValue(geoarrow.NewInterleavedCoords(nil, dim)), nil
		}
		return geoarrow.PointValue(geoarrow.NewInterleavedCoords(t.FlatCoords(), dim)), nil

	case *gogeom.LineString:
		return geoarrow.LineStringValue(geoarrow.NewInterleavedCoords(t.FlatCoords(), dim)), nil

	case *gogeom.Polygon:
		coords := geoarrow.NewInterleavedCoords(t.FlatCoords(), dim)
		return geoarrow.PolygonValue(coords, coordOffsets(t.Ends(), stride)), nil

	case *gogeom.MultiPoint:
		flat := make([]float64, 0, t.NumPoints()*stride)
		for i := 0; i < t.NumPoints(); i++ {
			p := t.Point(i)
			if p.Empty() {
				for axis := 0; axis < stride; axis++ {
					flat = append(flat, math.NaN())
				}
				continue
			}
			flat = append(flat, p.FlatCoords()[:stride]...)
		}
		return geoarrow.MultiPointValue(geoarrow.NewInterleavedCoords(flat, dim)), nil

	case *gogeom.MultiLineString:
		coords := geoarrow.NewInterleavedCoords(t.FlatCoords(), dim)
		return geoarrow.MultiLineStringValue(coords, coordOffsets(t.Ends(), stride)), nil

	case *gogeom.MultiPolygon:
		polygons := make([]int32, 0, len(t.Endss())+1)
		rings := []int32{0}
		polygons = append(polygons, 0)
		for _, ends := range t.Endss() {
			for _, end := range ends {
				rings = append(rings, int32(end/stride))
			}
			polygons = append(polygons, int32(len(rings)-1))
		}
		coords := geoarrow.NewInterleavedCoords(t.FlatCoords(), dim)
		return geoarrow.MultiPolygonValue(coords, polygons, rings), nil

	case *gogeom.GeometryCollection:
		c := &collection{dim: dim}
		for _, child := range t.Geoms() {
			v, err := FromGeom(child)
			if err != nil {
				return nil, err
			}
			c.geoms = append(c.geoms, v)
		}
		return c, nil
	}

	return nil, errkind.New(errkind.UnsupportedGeometry, "unsupported geometry %T", g)
}

type collection struct {
	dim   geom.Dimension
	geoms []geom.Geometry
}

func (c *collection) GeometryType() geom.GeometryType { return geom.GeometryCollectionType }
func (c *collection) Dimension() geom.Dimension       { return c.dim }
func (c *collection) NumGeometries() int              { return len(c.geoms) }
func (c *collection) Geometry(i int) geom.Geometry    { return c.geoms[i] }
