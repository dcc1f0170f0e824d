// Package udf holds the spatial scalar functions. After analysis every
// call carries the geometry column followed by the geometry-type and
// encoding literals.
package udf

import (
	"arrow-spatial/pkg/engine"
	"arrow-spatial/pkg/errkind"
	"arrow-spatial/pkg/geoarrow"
	"arrow-spatial/pkg/geom"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Signature is shared by every spatial function: the user-facing
// one-argument form and the three-argument form produced by the analyzer.
var Signature = engine.AnyOf(1, 3)

// ScalarArgAsString returns the text of a constant Utf8 argument.
func ScalarArgAsString(arg engine.ColumnarValue) (string, error) {
	if !arg.IsScalar() {
		return "", errkind.New(errkind.Internal, "expected a constant text argument, got a %s column", arg.DataType())
	}
	sc := arg.Scalar()
	switch sc.DataType().ID() {
	case arrow.STRING, arrow.LARGE_STRING:
	default:
		return "", errkind.New(errkind.Internal, "expected a text argument, got %s", sc.DataType())
	}
	if !sc.IsValid() {
		return "", errkind.New(errkind.Internal, "expected a text argument, got null")
	}
	return sc.String(), nil
}

// GeomTypeTag parses a geometry-type literal such as "Polygon Z".
func GeomTypeTag(arg engine.ColumnarValue) (geom.Tag, error) {
	s, err := ScalarArgAsString(arg)
	if err != nil {
		return geom.Tag{}, err
	}
	tag, err := geom.ParseTag(s)
	if err != nil {
		return geom.Tag{}, errkind.Wrap(errkind.Internal, err, "failed to parse geometry type")
	}
	return tag, nil
}

// EncodingTag parses an encoding literal such as "WKB" or "polygon".
func EncodingTag(arg engine.ColumnarValue) (geom.Encoding, error) {
	s, err := ScalarArgAsString(arg)
	if err != nil {
		return 0, err
	}
	enc, err := geom.ParseEncoding(s)
	if err != nil {
		return 0, errkind.Wrap(errkind.Internal, err, "failed to parse encoding")
	}
	return enc, nil
}

// Input is the geometry argument of one invocation with its tags, which
// are parsed once.
type Input struct {
	Arr arrow.Array
	Tag geom.Tag
	Enc geom.Encoding
}

// ParseInput checks the analyzed form of a call to fn and materializes
// its geometry argument as n rows. The caller releases the input.
func ParseInput(fn string, mem memory.Allocator, args []engine.ColumnarValue, n int) (*Input, error) {
	if len(args) != 3 {
		return nil, errkind.New(errkind.Internal, "%s expects geometry, type and encoding arguments, got %d", fn, len(args))
	}
	tag, err := GeomTypeTag(args[1])
	if err != nil {
		return nil, err
	}
	enc, err := EncodingTag(args[2])
	if err != nil {
		return nil, err
	}
	arr, err := args[0].ToArray(mem, n)
	if err != nil {
		return nil, errkind.Wrap(errkind.Internal, err, "failed to materialize %s argument", fn)
	}
	return &Input{Arr: arr, Tag: tag, Enc: enc}, nil
}

func (in *Input) Release() { in.Arr.Release() }

// IsWKB reports whether the input is dispatched on the WKB path. A WKB
// encoding over a non-binary column fails.
func (in *Input) IsWKB() (bool, error) {
	if in.Enc != geom.EncodingWKB {
		return false, nil
	}
	if !geoarrow.IsWKB(in.Arr.DataType()) {
		return false, errkind.New(errkind.UnsupportedDataType, "data type %s cannot hold WKB", in.Arr.DataType())
	}
	return true, nil
}

// CheckExtentTag rejects the tags envelope and extent cannot compute.
// Unknown is accepted for WKB only.
func (in *Input) CheckExtentTag(wkb bool) error {
	switch in.Tag.Type {
	case geom.MixedType, geom.GeometryCollectionType, geom.RectType:
		return errkind.New(errkind.Unimplemented, "bounds of %s geometries are not implemented", in.Tag.Type)
	case geom.UnknownType:
		if !wkb {
			return errkind.New(errkind.Unimplemented, "native columns of unknown geometry type are not supported")
		}
	}
	return nil
}

// Native returns the view of a native input as declared by its tags.
func (in *Input) Native() (geoarrow.Array, error) {
	if !in.Tag.Concrete() || in.Tag.Type == geom.GeometryCollectionType {
		return nil, errkind.New(errkind.Unimplemented, "native %s columns are not supported", in.Tag.Type)
	}
	if t := in.Enc.GeometryType(); t != in.Tag.Type {
		return nil, errkind.New(errkind.UnsupportedDataType, "encoding %s does not hold %s geometries", in.Enc, in.Tag.Type)
	}
	return geoarrow.NewArray(in.Arr, geoarrow.NativeTypeOf(in.Arr.DataType(), in.Tag))
}

// BinaryValues is the row access shared by Binary and LargeBinary arrays.
type BinaryValues interface {
	Len() int
	IsValid(i int) bool
	Value(i int) []byte
}

// WKBValues returns the rows of a WKB input.
func (in *Input) WKBValues() (BinaryValues, error) {
	switch a := in.Arr.(type) {
	case *array.Binary:
		return a, nil
	case *array.LargeBinary:
		return a, nil
	}
	return nil, errkind.New(errkind.UnsupportedDataType, "data type %s cannot hold WKB", in.Arr.DataType())
}

// geometryArgType validates the Arrow type of a geometry argument.
func geometryArgType(fn string, args []arrow.DataType) (arrow.DataType, error) {
	if len(args) == 0 {
		return nil, errkind.New(errkind.Plan, "%s expects a geometry argument", fn)
	}
	switch args[0].ID() {
	case arrow.BINARY, arrow.LARGE_BINARY, arrow.LIST, arrow.FIXED_SIZE_LIST, arrow.STRUCT:
		return args[0], nil
	}
	return nil, errkind.New(errkind.UnsupportedDataType, "%s does not accept %s", fn, args[0])
}
