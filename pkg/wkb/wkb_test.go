package wkb

import (
	"encoding/binary"
	"math"
	"testing"

	"arrow-spatial/pkg/errkind"
	"arrow-spatial/pkg/geom"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gogeom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

func mustEncode(t *testing.T, g gogeom.T) []byte {
	t.Helper()
	b, err := Encode(g)
	require.NoError(t, err)
	return b
}

func TestTypeOf(t *testing.T) {
	t.Run("ISO", func(t *testing.T) {
		cases := []struct {
			g    gogeom.T
			want geom.Tag
		}{
			{gogeom.NewPoint(gogeom.XY).MustSetCoords(gogeom.Coord{1, 2}), geom.Tag{Type: geom.PointType, Dim: geom.XY}},
			{gogeom.NewPoint(gogeom.XYZ).MustSetCoords(gogeom.Coord{1, 2, 3}), geom.Tag{Type: geom.PointType, Dim: geom.XYZ}},
			{gogeom.NewLineString(gogeom.XY).MustSetCoords([]gogeom.Coord{{0, 0}, {1, 1}}), geom.Tag{Type: geom.LineStringType, Dim: geom.XY}},
			{gogeom.NewMultiPolygon(gogeom.XYZ), geom.Tag{Type: geom.MultiPolygonType, Dim: geom.XYZ}},
			{gogeom.NewGeometryCollection(), geom.Tag{Type: geom.GeometryCollectionType, Dim: geom.XY}},
		}
		for _, c := range cases {
			tag, err := TypeOf(mustEncode(t, c.g))
			require.NoError(t, err)
			assert.Equal(t, c.want, tag)
		}
	})

	t.Run("EWKB", func(t *testing.T) {
		p := gogeom.NewPoint(gogeom.XYZ).MustSetCoords(gogeom.Coord{1, 2, 3}).SetSRID(4326)
		b, err := ewkb.Marshal(p, binary.BigEndian)
		require.NoError(t, err)

		tag, err := TypeOf(b)
		require.NoError(t, err)
		assert.Equal(t, geom.Tag{Type: geom.PointType, Dim: geom.XYZ}, tag)
	})

	t.Run("Measured", func(t *testing.T) {
		b := mustEncode(t, gogeom.NewPoint(gogeom.XYM).MustSetCoords(gogeom.Coord{1, 2, 3}))
		_, err := TypeOf(b)
		assert.True(t, errkind.Is(err, errkind.UnsupportedGeometry))
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := TypeOf([]byte{1, 2})
		assert.True(t, errkind.Is(err, errkind.WKBParse))

		_, err = TypeOf([]byte{7, 1, 0, 0, 0})
		assert.True(t, errkind.Is(err, errkind.WKBParse))

		_, err = TypeOf([]byte{1, 99, 0, 0, 0})
		assert.True(t, errkind.Is(err, errkind.WKBParse))
	})
}

func TestDecode(t *testing.T) {
	t.Run("Polygon", func(t *testing.T) {
		p := gogeom.NewPolygon(gogeom.XY).MustSetCoords([][]gogeom.Coord{
			{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}},
			{{1, 1}, {2, 1}, {2, 2}, {1, 1}},
		})
		g, err := Decode(mustEncode(t, p))
		require.NoError(t, err)

		poly, ok := g.(geom.Polygon)
		require.True(t, ok)
		require.Equal(t, 2, poly.NumRings())
		assert.Equal(t, 5, poly.Ring(0).Len())
		assert.Equal(t, 4, poly.Ring(1).Len())
		assert.Equal(t, 2.0, poly.Ring(1).At(1, 0))
	})

	t.Run("MultiPolygon", func(t *testing.T) {
		mp := gogeom.NewMultiPolygon(gogeom.XYZ).MustSetCoords([][][]gogeom.Coord{
			{{{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 0, 1}}},
			{{{5, 5, 2}, {6, 5, 2}, {6, 6, 2}, {5, 5, 2}}, {{5.2, 5.1, 2}, {5.5, 5.1, 2}, {5.5, 5.4, 2}, {5.2, 5.1, 2}}},
		})
		g, err := Decode(mustEncode(t, mp))
		require.NoError(t, err)

		m, ok := g.(geom.MultiPolygon)
		require.True(t, ok)
		assert.Equal(t, geom.XYZ, m.Dimension())
		require.Equal(t, 2, m.NumPolygons())
		assert.Equal(t, 1, m.Polygon(0).NumRings())
		require.Equal(t, 2, m.Polygon(1).NumRings())
		assert.Equal(t, 5.5, m.Polygon(1).Ring(1).At(1, 0))
		assert.Equal(t, 2.0, m.Polygon(1).Ring(0).At(0, 2))
	})

	t.Run("MultiPointWithEmpty", func(t *testing.T) {
		mp := gogeom.NewMultiPoint(gogeom.XY)
		require.NoError(t, mp.Push(gogeom.NewPoint(gogeom.XY).MustSetCoords(gogeom.Coord{1, 2})))
		require.NoError(t, mp.Push(gogeom.NewPointEmpty(gogeom.XY)))

		g, err := Decode(mustEncode(t, mp))
		require.NoError(t, err)

		pts := g.(geom.MultiPoint).Points()
		require.Equal(t, 2, pts.Len())
		assert.False(t, geom.IsEmptyCoord(pts, 0))
		assert.True(t, geom.IsEmptyCoord(pts, 1))
	})

	t.Run("EmptyPoint", func(t *testing.T) {
		g, err := Decode(mustEncode(t, gogeom.NewPointEmpty(gogeom.XY)))
		require.NoError(t, err)
		assert.Equal(t, 0, g.(geom.Point).Coords().Len())
	})

	t.Run("Collection", func(t *testing.T) {
		gc := gogeom.NewGeometryCollection().MustPush(
			gogeom.NewPoint(gogeom.XY).MustSetCoords(gogeom.Coord{1, 2}),
			gogeom.NewLineString(gogeom.XY).MustSetCoords([]gogeom.Coord{{0, 0}, {3, 4}}),
		)
		g, err := Decode(mustEncode(t, gc))
		require.NoError(t, err)

		c, ok := g.(geom.GeometryCollection)
		require.True(t, ok)
		require.Equal(t, 2, c.NumGeometries())
		assert.Equal(t, geom.LineStringType, c.Geometry(1).GeometryType())
	})

	t.Run("EWKB", func(t *testing.T) {
		ls := gogeom.NewLineString(gogeom.XY).MustSetCoords([]gogeom.Coord{{0, 0}, {3, 4}}).SetSRID(3857)
		b, err := ewkb.Marshal(ls, binary.LittleEndian)
		require.NoError(t, err)

		g, err := Decode(b)
		require.NoError(t, err)
		c := g.(geom.LineString).Coords()
		assert.Equal(t, 2, c.Len())
		assert.Equal(t, 4.0, c.At(1, 1))
	})

	t.Run("Truncated", func(t *testing.T) {
		b := mustEncode(t, gogeom.NewLineString(gogeom.XY).MustSetCoords([]gogeom.Coord{{0, 0}, {3, 4}}))
		_, err := Decode(b[:len(b)-4])
		assert.True(t, errkind.Is(err, errkind.WKBParse))
	})

	t.Run("Measured", func(t *testing.T) {
		_, err := FromGeom(gogeom.NewLineString(gogeom.XYM).MustSetCoords([]gogeom.Coord{{0, 0, 1}}))
		assert.True(t, errkind.Is(err, errkind.UnsupportedGeometry))
	})
}

func TestEncodeEmptyPoint(t *testing.T) {
	b := mustEncode(t, gogeom.NewPointEmpty(gogeom.XY))
	require.Len(t, b, 21)
	assert.True(t, math.IsNaN(math.Float64frombits(binary.LittleEndian.Uint64(b[5:13]))))
}
