package geoarrow

import (
	"arrow-spatial/pkg/errkind"
	"arrow-spatial/pkg/geom"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// CoordLayout is the physical layout of a coordinate buffer.
type CoordLayout int

const (
	// Separated stores one Float64 vector per axis (Struct<x, y[, z]>).
	Separated CoordLayout = iota
	// Interleaved stores one vector with stride equal to the dimension
	// (FixedSizeList<Float64>[D]).
	Interleaved
)

func (l CoordLayout) String() string {
	if l == Interleaved {
		return "interleaved"
	}
	return "separated"
}

// CoordBuffer is a zero-copy view over coordinates in either layout.
// Coordinate 0 of the view is the first coordinate of the slice it was
// created from.
type CoordBuffer struct {
	layout CoordLayout
	dim    geom.Dimension
	n      int
	flat   []float64
	axes   [3][]float64
}

// NewInterleavedCoords wraps flat, which holds dim values per coordinate.
func NewInterleavedCoords(flat []float64, dim geom.Dimension) CoordBuffer {
	return CoordBuffer{layout: Interleaved, dim: dim, n: len(flat) / dim.Size(), flat: flat}
}

// NewSeparatedCoords wraps per-axis vectors. z is ignored for XY.
func NewSeparatedCoords(x, y, z []float64) CoordBuffer {
	c := CoordBuffer{layout: Separated, dim: geom.XY, n: len(x)}
	c.axes[0], c.axes[1] = x, y
	if z != nil {
		c.dim = geom.XYZ
		c.axes[2] = z
	}
	return c
}

func (c CoordBuffer) Len() int                  { return c.n }
func (c CoordBuffer) Layout() CoordLayout       { return c.layout }
func (c CoordBuffer) Dimension() geom.Dimension { return c.dim }

func (c CoordBuffer) At(i, axis int) float64 {
	if c.layout == Interleaved {
		return c.flat[i*c.dim.Size()+axis]
	}
	return c.axes[axis][i]
}

func (c CoordBuffer) X(i int) float64 { return c.At(i, 0) }
func (c CoordBuffer) Y(i int) float64 { return c.At(i, 1) }

// Flat returns the interleaved values of the view. It is nil for the
// separated layout.
func (c CoordBuffer) Flat() []float64 { return c.flat }

// Axis returns the values of one axis of a separated view.
func (c CoordBuffer) Axis(axis int) []float64 { return c.axes[axis] }

// Slice returns the view of n coordinates starting at start.
func (c CoordBuffer) Slice(start, n int) CoordBuffer {
	out := c
	out.n = n
	if c.layout == Interleaved {
		d := c.dim.Size()
		out.flat = c.flat[start*d : (start+n)*d]
		return out
	}
	for axis := 0; axis < c.dim.Size(); axis++ {
		out.axes[axis] = c.axes[axis][start : start+n]
	}
	return out
}

// CoordsFromArray builds a view over a coordinate array: a FixedSizeList
// of Float64 or a Struct of Float64 fields.
func CoordsFromArray(arr arrow.Array) (CoordBuffer, error) {
	switch a := arr.(type) {
	case *array.FixedSizeList:
		size := int(a.DataType().(*arrow.FixedSizeListType).Len())
		dim, err := dimensionOf(size)
		if err != nil {
			return CoordBuffer{}, err
		}
		vals, ok := a.ListValues().(*array.Float64)
		if !ok {
			return CoordBuffer{}, errkind.New(errkind.UnsupportedDataType, "interleaved coordinates must be float64, got %s", a.ListValues().DataType())
		}
		off := a.Data().Offset()
		flat := vals.Float64Values()[off*size : (off+a.Len())*size]
		return NewInterleavedCoords(flat, dim), nil

	case *array.Struct:
		dim, err := dimensionOf(a.NumField())
		if err != nil {
			return CoordBuffer{}, err
		}
		var axes [3][]float64
		for i := 0; i < dim.Size(); i++ {
			f, ok := a.Field(i).(*array.Float64)
			if !ok {
				return CoordBuffer{}, errkind.New(errkind.UnsupportedDataType, "separated coordinates must be float64, got %s", a.Field(i).DataType())
			}
			axes[i] = f.Float64Values()
		}
		return NewSeparatedCoords(axes[0], axes[1], axes[2]), nil
	}

	return CoordBuffer{}, errkind.New(errkind.UnsupportedDataType, "unsupported coordinate data type %s", arr.DataType())
}

func dimensionOf(size int) (geom.Dimension, error) {
	switch size {
	case 2:
		return geom.XY, nil
	case 3:
		return geom.XYZ, nil
	}
	return 0, errkind.New(errkind.UnsupportedGeometry, "unsupported coordinate dimension %d", size)
}
