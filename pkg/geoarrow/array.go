package geoarrow

import (
	"arrow-spatial/pkg/errkind"
	"arrow-spatial/pkg/geom"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// Array is a read-only view of a native geometry column.
type Array interface {
	Len() int
	IsValid(i int) bool
	NullN() int
	NativeType() NativeType
	// Value returns row i as a geometry trait value. The row must be valid.
	Value(i int) geom.Geometry
	// RowCoords returns every coordinate of row i, walking the offset
	// chain without copying. Empty points yield an empty view.
	RowCoords(i int) CoordBuffer
}

// NewArray builds the view for arr according to native. The nesting of
// arr must match the variant and its coordinates must match the layout.
func NewArray(arr arrow.Array, native NativeType) (Array, error) {
	leaf, depth := leafType(arr.DataType())
	if depth != native.Depth() {
		return nil, errkind.New(errkind.UnsupportedDataType, "data type %s does not hold %s geometries", arr.DataType(), native.Type)
	}
	if layout, ok := CoordTypeOf(arr.DataType()); !ok || layout != native.Layout {
		return nil, errkind.New(errkind.UnsupportedDataType, "data type %s does not hold %s coordinates", leaf, native.Layout)
	}

	switch native.Type {
	case geom.PointType:
		coords, err := CoordsFromArray(arr)
		if err != nil {
			return nil, err
		}
		return &PointArray{base: base{arr: arr, native: native}, coords: coords}, nil

	case geom.LineStringType, geom.MultiPointType:
		geomOffsets, child, err := listOffsets(arr)
		if err != nil {
			return nil, err
		}
		coords, err := CoordsFromArray(child)
		if err != nil {
			return nil, err
		}
		n := nested1{base: base{arr: arr, native: native}, geomOffsets: geomOffsets, coords: coords}
		if native.Type == geom.LineStringType {
			return &LineStringArray{n}, nil
		}
		return &MultiPointArray{n}, nil

	case geom.PolygonType, geom.MultiLineStringType:
		geomOffsets, parts, err := listOffsets(arr)
		if err != nil {
			return nil, err
		}
		partOffsets, child, err := listOffsets(parts)
		if err != nil {
			return nil, err
		}
		coords, err := CoordsFromArray(child)
		if err != nil {
			return nil, err
		}
		n := nested2{base: base{arr: arr, native: native}, geomOffsets: geomOffsets, partOffsets: partOffsets, coords: coords}
		if native.Type == geom.PolygonType {
			return &PolygonArray{n}, nil
		}
		return &MultiLineStringArray{n}, nil

	case geom.MultiPolygonType:
		geomOffsets, polygons, err := listOffsets(arr)
		if err != nil {
			return nil, err
		}
		polygonOffsets, rings, err := listOffsets(polygons)
		if err != nil {
			return nil, err
		}
		ringOffsets, child, err := listOffsets(rings)
		if err != nil {
			return nil, err
		}
		coords, err := CoordsFromArray(child)
		if err != nil {
			return nil, err
		}
		return &MultiPolygonArray{
			base:           base{arr: arr, native: native},
			geomOffsets:    geomOffsets,
			polygonOffsets: polygonOffsets,
			ringOffsets:    ringOffsets,
			coords:         coords,
		}, nil
	}

	return nil, errkind.New(errkind.Unimplemented, "native arrays of %s are not supported", native.Type)
}

// listOffsets returns the offsets of a List array windowed to the array
// (length Len()+1) and its full child array.
func listOffsets(arr arrow.Array) ([]int32, arrow.Array, error) {
	l, ok := arr.(*array.List)
	if !ok {
		return nil, nil, errkind.New(errkind.UnsupportedDataType, "expected a list array, got %s", arr.DataType())
	}
	offsets := l.Offsets()
	if l.Len() == 0 || len(offsets) == 0 {
		return []int32{0}, l.ListValues(), nil
	}
	off := l.Data().Offset()
	return offsets[off : off+l.Len()+1], l.ListValues(), nil
}

type base struct {
	arr    arrow.Array
	native NativeType
}

func (b *base) Len() int               { return b.arr.Len() }
func (b *base) IsValid(i int) bool     { return b.arr.IsValid(i) }
func (b *base) NullN() int             { return b.arr.NullN() }
func (b *base) NativeType() NativeType { return b.native }

// PointArray is a column of points; the coordinate array is the column.
type PointArray struct {
	base
	coords CoordBuffer
}

func (a *PointArray) Coords() CoordBuffer { return a.coords }

func (a *PointArray) RowCoords(i int) CoordBuffer {
	if geom.IsEmptyCoord(a.coords, i) {
		return a.coords.Slice(i, 0)
	}
	return a.coords.Slice(i, 1)
}

func (a *PointArray) Value(i int) geom.Geometry {
	return pointRow{a.RowCoords(i)}
}

// nested1 backs the single-level variants.
type nested1 struct {
	base
	geomOffsets []int32
	coords      CoordBuffer
}

func (a *nested1) Coords() CoordBuffer { return a.coords }

func (a *nested1) RowCoords(i int) CoordBuffer {
	start, end := a.geomOffsets[i], a.geomOffsets[i+1]
	return a.coords.Slice(int(start), int(end-start))
}

type LineStringArray struct{ nested1 }

func (a *LineStringArray) Value(i int) geom.Geometry {
	return lineStringRow{a.RowCoords(i)}
}

type MultiPointArray struct{ nested1 }

func (a *MultiPointArray) Value(i int) geom.Geometry {
	return multiPointRow{a.RowCoords(i)}
}

// nested2 backs the two-level variants, whose parts are rings or lines.
type nested2 struct {
	base
	geomOffsets []int32
	partOffsets []int32
	coords      CoordBuffer
}

func (a *nested2) Coords() CoordBuffer { return a.coords }

// parts returns the part offsets of row i (number of parts + 1 entries).
func (a *nested2) parts(i int) []int32 {
	return a.partOffsets[a.geomOffsets[i] : a.geomOffsets[i+1]+1]
}

func (a *nested2) RowCoords(i int) CoordBuffer {
	parts := a.parts(i)
	start, end := parts[0], parts[len(parts)-1]
	return a.coords.Slice(int(start), int(end-start))
}

type PolygonArray struct{ nested2 }

func (a *PolygonArray) Value(i int) geom.Geometry {
	return polygonRow{coords: a.coords, rings: a.parts(i)}
}

type MultiLineStringArray struct{ nested2 }

func (a *MultiLineStringArray) Value(i int) geom.Geometry {
	return multiLineStringRow{coords: a.coords, lines: a.parts(i)}
}

type MultiPolygonArray struct {
	base
	geomOffsets    []int32
	polygonOffsets []int32
	ringOffsets    []int32
	coords         CoordBuffer
}

func (a *MultiPolygonArray) Coords() CoordBuffer { return a.coords }

func (a *MultiPolygonArray) polygons(i int) []int32 {
	return a.polygonOffsets[a.geomOffsets[i] : a.geomOffsets[i+1]+1]
}

func (a *MultiPolygonArray) RowCoords(i int) CoordBuffer {
	polygons := a.polygons(i)
	start := a.ringOffsets[polygons[0]]
	end := a.ringOffsets[polygons[len(polygons)-1]]
	return a.coords.Slice(int(start), int(end-start))
}

func (a *MultiPolygonArray) Value(i int) geom.Geometry {
	return multiPolygonRow{coords: a.coords, polygons: a.polygons(i), rings: a.ringOffsets}
}
