package wkt

import (
	"bytes"
	"math"
	"strconv"
)

// AppendFloat appends v in the shortest round-trip form with at least
// one fractional digit ("1.0", "2.5"). Magnitudes below 1e-4 or at or
// above 1e16 switch to exponent form without a plus sign or padding
// ("1e20", "1.5e-7").
func AppendFloat(dst []byte, v float64) []byte {
	switch {
	case math.IsNaN(v):
		return append(dst, "NaN"...)
	case math.IsInf(v, 1):
		return append(dst, "inf"...)
	case math.IsInf(v, -1):
		return append(dst, "-inf"...)
	}

	abs := math.Abs(v)
	if v != 0 && (abs < 1e-4 || abs >= 1e16) {
		var scratch [32]byte
		b := strconv.AppendFloat(scratch[:0], v, 'e', -1, 64)
		i := bytes.IndexByte(b, 'e')
		dst = append(dst, b[:i]...)
		dst = append(dst, 'e')

		exp := b[i+1:]
		if exp[0] == '-' {
			dst = append(dst, '-')
		}
		exp = exp[1:]
		for len(exp) > 1 && exp[0] == '0' {
			exp = exp[1:]
		}
		return append(dst, exp...)
	}

	start := len(dst)
	dst = strconv.AppendFloat(dst, v, 'f', -1, 64)
	if bytes.IndexByte(dst[start:], '.') < 0 {
		dst = append(dst, ".0"...)
	}
	return dst
}

// FormatFloat returns the AppendFloat form of v.
func FormatFloat(v float64) string {
	return string(AppendFloat(make([]byte, 0, 24), v))
}
