// Package geojson renders query results holding a WKB geometry column
// as a GeoJSON FeatureCollection.
package geojson

import (
	"encoding/json"
	"io"

	"arrow-spatial/pkg/errkind"
	"arrow-spatial/pkg/wkb"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	gogeom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// FromRecords builds one feature per row of recs. The WKB column named
// geomCol becomes the feature geometry; every other column becomes a
// property. A NULL geometry gives a feature with a null geometry.
func FromRecords(recs []arrow.RecordBatch, geomCol string) (*geojson.FeatureCollection, error) {
	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}

	for _, batch := range recs {
		schema := batch.Schema()
		indices := schema.FieldIndices(geomCol)
		if len(indices) == 0 {
			return nil, errkind.New(errkind.NotFound, "geometry column %q not found in records", geomCol)
		}
		geomIdx := indices[0]

		numRows := int(batch.NumRows())
		for rowIdx := 0; rowIdx < numRows; rowIdx++ {
			g, err := geometryAt(batch.Column(geomIdx), rowIdx)
			if err != nil {
				return nil, errkind.Wrap(errkind.KindOf(err), err, "row %d", rowIdx)
			}

			properties := make(map[string]interface{})
			for colIdx := 0; colIdx < int(batch.NumCols()); colIdx++ {
				if colIdx == geomIdx {
					continue
				}
				val, err := getColumnValue(batch.Column(colIdx), rowIdx)
				if err == nil && val != nil {
					properties[schema.Field(colIdx).Name] = val
				}
			}

			fc.Features = append(fc.Features, &geojson.Feature{
				Geometry:   g,
				Properties: properties,
			})
		}
	}
	return fc, nil
}

// Write encodes the FeatureCollection of recs to w.
func Write(w io.Writer, recs []arrow.RecordBatch, geomCol string) error {
	fc, err := FromRecords(recs, geomCol)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fc); err != nil {
		return errkind.Wrap(errkind.Internal, err, "failed to encode geojson")
	}
	return nil
}

// geometryAt decodes the WKB value at idx; NULL decodes to nil.
func geometryAt(col arrow.Array, idx int) (gogeom.T, error) {
	if col.IsNull(idx) {
		return nil, nil
	}
	switch c := col.(type) {
	case *array.Binary:
		return wkb.Unmarshal(c.Value(idx))
	case *array.LargeBinary:
		return wkb.Unmarshal(c.Value(idx))
	default:
		return nil, errkind.New(errkind.UnsupportedDataType, "geometry column must hold WKB, got %s", col.DataType())
	}
}

// getColumnValue extracts a value from an Arrow column at a given index
func getColumnValue(col arrow.Array, idx int) (interface{}, error) {
	if col.IsNull(idx) {
		return nil, nil
	}
	switch c := col.(type) {
	case *array.Float64:
		return c.Value(idx), nil
	case *array.Float32:
		return float64(c.Value(idx)), nil
	case *array.Int64:
		return c.Value(idx), nil
	case *array.Int32:
		return int64(c.Value(idx)), nil
	case *array.String:
		return c.Value(idx), nil
	case *array.LargeString:
		return c.Value(idx), nil
	case *array.Boolean:
		return c.Value(idx), nil
	case *array.Binary:
		return string(c.Value(idx)), nil
	case *array.LargeBinary:
		return string(c.Value(idx)), nil
	case *array.Struct:
		return c.GetOneForMarshal(idx), nil
	default:
		return nil, errkind.New(errkind.UnsupportedDataType, "unsupported column type: %s", col.DataType())
	}
}
