package geom

import (
	"fmt"
	"strings"
)

// GeometryType is the OGC geometry variant.
type GeometryType int

const (
	UnknownType GeometryType = iota
	PointType
	LineStringType
	PolygonType
	MultiPointType
	MultiLineStringType
	MultiPolygonType
	GeometryCollectionType
	RectType
	MixedType
)

var typeNames = map[GeometryType]string{
	UnknownType:            "Unknown",
	PointType:              "Point",
	LineStringType:         "LineString",
	PolygonType:            "Polygon",
	MultiPointType:         "MultiPoint",
	MultiLineStringType:    "MultiLineString",
	MultiPolygonType:       "MultiPolygon",
	GeometryCollectionType: "GeometryCollection",
	RectType:               "Rect",
	MixedType:              "Mixed",
}

func (t GeometryType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("GeometryType(%d)", int(t))
}

// Keyword returns the upper-case WKT keyword. Rect is written as a polygon.
func (t GeometryType) Keyword() string {
	if t == RectType {
		return "POLYGON"
	}
	return strings.ToUpper(t.String())
}

// Dimension is the number of coordinate axes. Only XY and XYZ are supported.
type Dimension int

const (
	XY  Dimension = 2
	XYZ Dimension = 3
)

func (d Dimension) String() string {
	switch d {
	case XY:
		return "XY"
	case XYZ:
		return "XYZ"
	default:
		return fmt.Sprintf("Dimension(%d)", int(d))
	}
}

// Size is the number of axes per coordinate.
func (d Dimension) Size() int { return int(d) }

// Tag is a geometry variant together with its dimension, as carried by
// the geometry-type literal.
type Tag struct {
	Type GeometryType
	Dim  Dimension
}

// Unknown and Mixed are the pseudo tags used when a column declares zero
// or several geometry types.
var (
	Unknown = Tag{Type: UnknownType, Dim: XY}
	Mixed   = Tag{Type: MixedType, Dim: XY}
)

// ParseTag parses the GeoParquet spelling of a geometry type: "Point",
// "Point Z" and "PointZ" are accepted.
func ParseTag(s string) (Tag, error) {
	name := strings.TrimSpace(s)
	dim := XY
	if strings.HasSuffix(name, "Z") && !strings.EqualFold(name, "Z") {
		name = strings.TrimSpace(strings.TrimSuffix(name, "Z"))
		dim = XYZ
	}

	for t, n := range typeNames {
		if t == RectType {
			continue
		}
		if n == name {
			if (t == UnknownType || t == MixedType) && dim == XYZ {
				break
			}
			return Tag{Type: t, Dim: dim}, nil
		}
	}

	return Tag{}, fmt.Errorf("unknown geometry type %q", s)
}

// String returns the GeoParquet spelling, e.g. "Polygon Z".
func (t Tag) String() string {
	if t.Dim == XYZ {
		return t.Type.String() + " Z"
	}
	return t.Type.String()
}

// FunctionName returns the ST_GeometryType result for the tag, e.g. "ST_PolygonZ".
func (t Tag) FunctionName() string {
	return "ST_" + strings.ReplaceAll(t.String(), " ", "")
}

// Concrete reports whether the tag names a single real variant.
func (t Tag) Concrete() bool {
	return t.Type != UnknownType && t.Type != MixedType
}

// Encoding is the physical encoding of a geometry column.
type Encoding int

const (
	EncodingWKB Encoding = iota
	EncodingPoint
	EncodingLineString
	EncodingPolygon
	EncodingMultiPoint
	EncodingMultiLineString
	EncodingMultiPolygon
)

var encodingNames = []string{
	EncodingWKB:             "WKB",
	EncodingPoint:           "point",
	EncodingLineString:      "linestring",
	EncodingPolygon:         "polygon",
	EncodingMultiPoint:      "multipoint",
	EncodingMultiLineString: "multilinestring",
	EncodingMultiPolygon:    "multipolygon",
}

func (e Encoding) String() string {
	if int(e) < len(encodingNames) {
		return encodingNames[e]
	}
	return fmt.Sprintf("Encoding(%d)", int(e))
}

// ParseEncoding accepts the GeoParquet encoding names case-insensitively.
func ParseEncoding(s string) (Encoding, error) {
	for i, name := range encodingNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return Encoding(i), nil
		}
	}
	return 0, fmt.Errorf("unsupported geometry column encoding %q", s)
}

// Native reports whether the encoding is a native GeoArrow layout.
func (e Encoding) Native() bool { return e != EncodingWKB }

// GeometryType returns the variant implied by a native encoding.
func (e Encoding) GeometryType() GeometryType {
	switch e {
	case EncodingPoint:
		return PointType
	case EncodingLineString:
		return LineStringType
	case EncodingPolygon:
		return PolygonType
	case EncodingMultiPoint:
		return MultiPointType
	case EncodingMultiLineString:
		return MultiLineStringType
	case EncodingMultiPolygon:
		return MultiPolygonType
	default:
		return UnknownType
	}
}
