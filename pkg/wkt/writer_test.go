package wkt

import (
	"bufio"
	"bytes"
	"testing"

	"arrow-spatial/pkg/errkind"
	"arrow-spatial/pkg/geoarrow"
	"arrow-spatial/pkg/geom"
	"arrow-spatial/pkg/wkb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gogeom "github.com/twpayne/go-geom"
	gowkt "github.com/twpayne/go-geom/encoding/wkt"
)

func toText(t *testing.T, g gogeom.T) string {
	t.Helper()
	v, err := wkb.FromGeom(g)
	require.NoError(t, err)
	s, err := String(v)
	require.NoError(t, err)
	return s
}

func TestWriteVariants(t *testing.T) {
	cases := []struct {
		name string
		g    gogeom.T
		want string
	}{
		{
			"Point",
			gogeom.NewPoint(gogeom.XY).MustSetCoords(gogeom.Coord{1, 2}),
			"POINT (1.0 2.0)",
		},
		{
			"PointZ",
			gogeom.NewPoint(gogeom.XYZ).MustSetCoords(gogeom.Coord{1, 2, 3}),
			"POINT Z (1.0 2.0 3.0)",
		},
		{
			"LineString",
			gogeom.NewLineString(gogeom.XY).MustSetCoords([]gogeom.Coord{{1, 2}, {3, 4}, {5, 6}}),
			"LINESTRING (1.0 2.0,3.0 4.0,5.0 6.0)",
		},
		{
			"Polygon",
			gogeom.NewPolygon(gogeom.XY).MustSetCoords([][]gogeom.Coord{{{0, 0}, {4, 0}, {2, 4}, {0, 0}}}),
			"POLYGON ((0.0 0.0,4.0 0.0,2.0 4.0,0.0 0.0))",
		},
		{
			"MultiPoint",
			gogeom.NewMultiPoint(gogeom.XY).MustSetCoords([]gogeom.Coord{{0, 0}, {4, 0}, {2, 4}}),
			"MULTIPOINT ((0.0 0.0),(4.0 0.0),(2.0 4.0))",
		},
		{
			"MultiLineString",
			gogeom.NewMultiLineString(gogeom.XY).MustSetCoords([][]gogeom.Coord{{{1, 2}, {3, 4}, {5, 6}}, {{7, 8}, {9, 0}}}),
			"MULTILINESTRING ((1.0 2.0,3.0 4.0,5.0 6.0),(7.0 8.0,9.0 0.0))",
		},
		{
			"MultiPolygon",
			gogeom.NewMultiPolygon(gogeom.XY).MustSetCoords([][][]gogeom.Coord{
				{{{0, 0}, {4, 0}, {2, 4}, {0, 0}}},
				{{{4, 4}, {8, 4}, {8, 8}, {4, 8}, {4, 4}}},
			}),
			"MULTIPOLYGON (((0.0 0.0,4.0 0.0,2.0 4.0,0.0 0.0)),((4.0 4.0,8.0 4.0,8.0 8.0,4.0 8.0,4.0 4.0)))",
		},
		{
			"Collection",
			gogeom.NewGeometryCollection().MustPush(
				gogeom.NewPoint(gogeom.XY).MustSetCoords(gogeom.Coord{1, 2}),
				gogeom.NewLineString(gogeom.XY).MustSetCoords([]gogeom.Coord{{0, 0}, {1, 1}}),
			),
			"GEOMETRYCOLLECTION (POINT (1.0 2.0),LINESTRING (0.0 0.0,1.0 1.0))",
		},
		{
			"EmptyPoint",
			gogeom.NewPointEmpty(gogeom.XY),
			"POINT EMPTY",
		},
		{
			"EmptyLineString",
			gogeom.NewLineString(gogeom.XY),
			"LINESTRING EMPTY",
		},
		{
			"EmptyCollection",
			gogeom.NewGeometryCollection(),
			"GEOMETRYCOLLECTION EMPTY",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, toText(t, c.g))
		})
	}
}

func TestWriteRoundTrip(t *testing.T) {
	inputs := []gogeom.T{
		gogeom.NewLineString(gogeom.XYZ).MustSetCoords([]gogeom.Coord{{1.25, -2, 0.5}, {1e-7, 3, 1e20}}),
		gogeom.NewPolygon(gogeom.XY).MustSetCoords([][]gogeom.Coord{
			{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
			{{2, 2}, {3, 2}, {3, 3}, {2, 2}},
		}),
		gogeom.NewMultiPoint(gogeom.XYZ).MustSetCoords([]gogeom.Coord{{0.1, 0.2, 0.3}, {4, 5, 6}}),
	}

	for _, in := range inputs {
		text := toText(t, in)
		out, err := gowkt.Unmarshal(text)
		require.NoError(t, err, text)
		assert.Equal(t, in.Layout(), out.Layout(), text)
		assert.Equal(t, in.FlatCoords(), out.FlatCoords(), text)
	}
}

func TestWriteRect(t *testing.T) {
	s, err := String(geom.NewBox(0, 1, 4, 5))
	require.NoError(t, err)
	assert.Equal(t, "POLYGON (0.0 1.0,4.0 1.0,4.0 5.0,0.0 5.0,0.0 1.0)", s)

	box := geom.NewBox(0, 1, 4, 5)
	box.Dim = geom.XYZ
	_, err = String(box)
	assert.True(t, errkind.Is(err, errkind.UnsupportedGeometry))
}

func TestWriteSeparatedCoords(t *testing.T) {
	c := geoarrow.NewSeparatedCoords([]float64{1, 3}, []float64{2, 4}, nil)
	s, err := String(geoarrow.LineStringValue(c))
	require.NoError(t, err)
	assert.Equal(t, "LINESTRING (1.0 2.0,3.0 4.0)", s)
}

type mismatched struct{}

func (mismatched) GeometryType() geom.GeometryType { return geom.PolygonType }
func (mismatched) Dimension() geom.Dimension       { return geom.XY }

func TestWriteTraitMismatch(t *testing.T) {
	_, err := String(mismatched{})
	assert.True(t, errkind.Is(err, errkind.UnsupportedGeometry))
}

func TestWriteToBufferedSink(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	g, err := wkb.FromGeom(gogeom.NewPoint(gogeom.XY).MustSetCoords(gogeom.Coord{0.5, 1}))
	require.NoError(t, err)

	require.NoError(t, Write(w, g))
	require.NoError(t, w.Flush())
	assert.Equal(t, "POINT (0.5 1.0)", buf.String())
}
