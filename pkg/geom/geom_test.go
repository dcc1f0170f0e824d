package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTag(t *testing.T) {
	cases := []struct {
		in   string
		want Tag
	}{
		{"Point", Tag{PointType, XY}},
		{"Point Z", Tag{PointType, XYZ}},
		{"PointZ", Tag{PointType, XYZ}},
		{"MultiPolygon", Tag{MultiPolygonType, XY}},
		{"MultiLineString Z", Tag{MultiLineStringType, XYZ}},
		{"GeometryCollection", Tag{GeometryCollectionType, XY}},
		{"Mixed", Mixed},
		{"Unknown", Unknown},
	}

	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			got, err := ParseTag(c.in)
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}

	t.Run("invalid", func(t *testing.T) {
		for _, in := range []string{"", "Z", "Circle", "Rect", "Mixed Z"} {
			_, err := ParseTag(in)
			assert.Error(t, err, in)
		}
	})
}

func TestTagNames(t *testing.T) {
	tag := Tag{Type: PolygonType, Dim: XYZ}
	assert.Equal(t, "Polygon Z", tag.String())
	assert.Equal(t, "ST_PolygonZ", tag.FunctionName())
	assert.Equal(t, "ST_Point", Tag{PointType, XY}.FunctionName())
	assert.True(t, tag.Concrete())
	assert.False(t, Mixed.Concrete())
	assert.Equal(t, "MULTILINESTRING", MultiLineStringType.Keyword())
	assert.Equal(t, "POLYGON", RectType.Keyword())
}

func TestParseEncoding(t *testing.T) {
	for i, name := range []string{"WKB", "point", "linestring", "polygon", "multipoint", "multilinestring", "multipolygon"} {
		enc, err := ParseEncoding(name)
		require.NoError(t, err)
		assert.Equal(t, Encoding(i), enc)
		assert.Equal(t, name, enc.String())
	}

	enc, err := ParseEncoding("wkb")
	require.NoError(t, err)
	assert.False(t, enc.Native())

	_, err = ParseEncoding("geojson")
	assert.Error(t, err)

	assert.Equal(t, MultiPolygonType, EncodingMultiPolygon.GeometryType())
	assert.Equal(t, UnknownType, EncodingWKB.GeometryType())
}

type coordSlice [][2]float64

func (c coordSlice) Len() int               { return len(c) }
func (c coordSlice) At(i, axis int) float64 { return c[i][axis] }

func TestIsEmptyCoord(t *testing.T) {
	c := coordSlice{{1, 2}, {math.NaN(), math.NaN()}, {math.NaN(), 3}}
	assert.False(t, IsEmptyCoord(c, 0))
	assert.True(t, IsEmptyCoord(c, 1))
	assert.False(t, IsEmptyCoord(c, 2))
}
