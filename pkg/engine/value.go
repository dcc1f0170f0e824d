package engine

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/arrow/scalar"
)

// ColumnarValue is a function argument or result: either a column with
// one value per row, or a single value standing for every row.
type ColumnarValue struct {
	arr arrow.Array
	sc  scalar.Scalar
}

// ArrayValue wraps arr. The value takes over the caller's reference.
func ArrayValue(arr arrow.Array) ColumnarValue { return ColumnarValue{arr: arr} }

func ScalarValue(sc scalar.Scalar) ColumnarValue { return ColumnarValue{sc: sc} }

func (v ColumnarValue) IsScalar() bool        { return v.arr == nil }
func (v ColumnarValue) Array() arrow.Array    { return v.arr }
func (v ColumnarValue) Scalar() scalar.Scalar { return v.sc }

func (v ColumnarValue) DataType() arrow.DataType {
	if v.arr != nil {
		return v.arr.DataType()
	}
	return v.sc.DataType()
}

// ToArray materializes the value as n rows. The result is a new
// reference owned by the caller.
func (v ColumnarValue) ToArray(mem memory.Allocator, n int) (arrow.Array, error) {
	if v.arr != nil {
		v.arr.Retain()
		return v.arr, nil
	}
	return scalar.MakeArrayFromScalar(v.sc, n, mem)
}

func (v ColumnarValue) Release() {
	if v.arr != nil {
		v.arr.Release()
	}
}

func releaseValues(vals []ColumnarValue) {
	for _, v := range vals {
		v.Release()
	}
}
