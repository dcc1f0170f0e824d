package geoarrow

import (
	"fmt"

	"arrow-spatial/pkg/errkind"
	"arrow-spatial/pkg/geom"

	"github.com/apache/arrow-go/v18/arrow"
)

// NativeType describes a native GeoArrow layout.
type NativeType struct {
	Type   geom.GeometryType
	Layout CoordLayout
	Dim    geom.Dimension
}

func (n NativeType) String() string {
	return fmt.Sprintf("%s(%s, %s)", n.Type, n.Layout, n.Dim)
}

// Depth is the number of List levels above the coordinate array.
func (n NativeType) Depth() int {
	switch n.Type {
	case geom.LineStringType, geom.MultiPointType:
		return 1
	case geom.PolygonType, geom.MultiLineStringType:
		return 2
	case geom.MultiPolygonType:
		return 3
	default:
		return 0
	}
}

// CoordDataType returns the Arrow type of a coordinate.
func CoordDataType(layout CoordLayout, dim geom.Dimension) arrow.DataType {
	if layout == Interleaved {
		name := "xy"
		if dim == geom.XYZ {
			name = "xyz"
		}
		return arrow.FixedSizeListOfField(int32(dim.Size()), arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Float64})
	}

	fields := []arrow.Field{
		{Name: "x", Type: arrow.PrimitiveTypes.Float64},
		{Name: "y", Type: arrow.PrimitiveTypes.Float64},
	}
	if dim == geom.XYZ {
		fields = append(fields, arrow.Field{Name: "z", Type: arrow.PrimitiveTypes.Float64})
	}
	return arrow.StructOf(fields...)
}

func listOf(name string, dt arrow.DataType) arrow.DataType {
	return arrow.ListOfField(arrow.Field{Name: name, Type: dt})
}

// DataType returns the Arrow type of the layout.
func (n NativeType) DataType() arrow.DataType {
	coord := CoordDataType(n.Layout, n.Dim)

	switch n.Type {
	case geom.LineStringType:
		return listOf("vertices", coord)
	case geom.PolygonType:
		return listOf("rings", listOf("vertices", coord))
	case geom.MultiPointType:
		return listOf("points", coord)
	case geom.MultiLineStringType:
		return listOf("linestrings", listOf("vertices", coord))
	case geom.MultiPolygonType:
		return listOf("polygons", listOf("rings", listOf("vertices", coord)))
	default:
		return coord
	}
}

// EnvelopeType is the layout produced by ST_Envelope.
var EnvelopeType = NativeType{Type: geom.PolygonType, Layout: Separated, Dim: geom.XY}

// leafType peels List levels and returns the coordinate type and the
// number of levels removed.
func leafType(dt arrow.DataType) (arrow.DataType, int) {
	depth := 0
	for {
		l, ok := dt.(*arrow.ListType)
		if !ok {
			return dt, depth
		}
		dt = l.Elem()
		depth++
	}
}

// CoordTypeOf derives the coordinate layout of a native geometry type by
// peeling up to three List levels.
func CoordTypeOf(dt arrow.DataType) (CoordLayout, bool) {
	leaf, depth := leafType(dt)
	if depth > 3 {
		return 0, false
	}
	switch leaf.(type) {
	case *arrow.FixedSizeListType:
		return Interleaved, true
	case *arrow.StructType:
		return Separated, true
	}
	return 0, false
}

// NativeTypeOf combines the declared tag with the layout of dt. The
// layout falls back to separated when dt does not reveal it.
func NativeTypeOf(dt arrow.DataType, tag geom.Tag) NativeType {
	layout, ok := CoordTypeOf(dt)
	if !ok {
		layout = Separated
	}
	return NativeType{Type: tag.Type, Layout: layout, Dim: tag.Dim}
}

// DimensionOf derives the coordinate dimension of a native geometry type
// from its coordinate leaf.
func DimensionOf(dt arrow.DataType) (geom.Dimension, error) {
	leaf, depth := leafType(dt)
	if depth > 3 {
		return 0, errkind.New(errkind.UnsupportedDataType, "data type %s is not a native geometry", dt)
	}
	switch leaf := leaf.(type) {
	case *arrow.FixedSizeListType:
		return dimensionOf(int(leaf.Len()))
	case *arrow.StructType:
		return dimensionOf(leaf.NumFields())
	}
	return 0, errkind.New(errkind.UnsupportedDataType, "data type %s is not a native geometry", dt)
}

// IsWKB reports whether dt can hold WKB values.
func IsWKB(dt arrow.DataType) bool {
	switch dt.ID() {
	case arrow.BINARY, arrow.LARGE_BINARY:
		return true
	}
	return false
}
