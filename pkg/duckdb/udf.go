// Package duckdb exposes the WKB spatial functions to DuckDB and reads
// DuckDB query results as engine tables.
package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"

	"arrow-spatial/pkg/compute"
	"arrow-spatial/pkg/errkind"
	"arrow-spatial/pkg/logging"
	"arrow-spatial/pkg/wkb"
	"arrow-spatial/pkg/wkt"

	"github.com/duckdb/duckdb-go/v2"
	"go.uber.org/zap"
)

// Open returns a connector and database for path; an empty path opens
// an in-memory database.
func Open(path string) (*duckdb.Connector, *sql.DB, error) {
	c, err := duckdb.NewConnector(path, nil)
	if err != nil {
		return nil, nil, errkind.Wrap(errkind.Internal, err, "failed to open duckdb %q", path)
	}
	return c, sql.OpenDB(c), nil
}

type rowFunc struct {
	in     duckdb.TypeInfo
	out    duckdb.TypeInfo
	invoke func(b []byte) (any, error)
}

func (f *rowFunc) Config() duckdb.ScalarFuncConfig {
	return duckdb.ScalarFuncConfig{
		InputTypeInfos: []duckdb.TypeInfo{f.in},
		ResultTypeInfo: f.out,
	}
}

func (f *rowFunc) Executor() duckdb.ScalarFuncExecutor {
	return duckdb.ScalarFuncExecutor{RowExecutor: func(values []driver.Value) (any, error) {
		b, ok := values[0].([]byte)
		if !ok {
			return nil, errkind.New(errkind.UnsupportedDataType, "expected a BLOB, got %T", values[0])
		}
		return f.invoke(b)
	}}
}

func asText(b []byte) (any, error) {
	g, err := wkb.Decode(b)
	if err != nil {
		return nil, err
	}
	return wkt.String(g)
}

func geometryType(b []byte) (any, error) {
	tag, err := wkb.TypeOf(b)
	if err != nil {
		return nil, err
	}
	return tag.FunctionName(), nil
}

// extent returns the bounding box of one value, or NULL when it has no
// coordinates.
func extent(b []byte) (any, error) {
	g, err := wkb.Decode(b)
	if err != nil {
		return nil, err
	}
	bounds, err := compute.GeometryBounds(g)
	if err != nil {
		return nil, err
	}
	if bounds.IsEmpty() {
		return nil, nil
	}
	return map[string]any{
		"xmin": bounds.MinX,
		"ymin": bounds.MinY,
		"xmax": bounds.MaxX,
		"ymax": bounds.MaxY,
	}, nil
}

func extentType(double duckdb.TypeInfo) (duckdb.TypeInfo, error) {
	var entries []duckdb.StructEntry
	for _, name := range []string{"xmin", "ymin", "xmax", "ymax"} {
		e, err := duckdb.NewStructEntry(double, name)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return duckdb.NewStructInfo(entries[0], entries[1:]...)
}

// RegisterUDFs registers st_astext, st_geometrytype and st_extent_wkb
// on conn. All three take WKB BLOBs; NULL in gives NULL out.
func RegisterUDFs(ctx context.Context, conn *sql.Conn) error {
	blob, err := duckdb.NewTypeInfo(duckdb.TYPE_BLOB)
	if err != nil {
		return errkind.Wrap(errkind.Internal, err, "failed to create BLOB type")
	}
	varchar, err := duckdb.NewTypeInfo(duckdb.TYPE_VARCHAR)
	if err != nil {
		return errkind.Wrap(errkind.Internal, err, "failed to create VARCHAR type")
	}
	double, err := duckdb.NewTypeInfo(duckdb.TYPE_DOUBLE)
	if err != nil {
		return errkind.Wrap(errkind.Internal, err, "failed to create DOUBLE type")
	}
	box, err := extentType(double)
	if err != nil {
		return errkind.Wrap(errkind.Internal, err, "failed to create extent type")
	}

	funcs := []struct {
		name string
		f    *rowFunc
	}{
		{"st_astext", &rowFunc{in: blob, out: varchar, invoke: asText}},
		{"st_geometrytype", &rowFunc{in: blob, out: varchar, invoke: geometryType}},
		{"st_extent_wkb", &rowFunc{in: blob, out: box, invoke: extent}},
	}
	for _, fn := range funcs {
		if err := duckdb.RegisterScalarUDF(conn, fn.name, fn.f); err != nil {
			return errkind.Wrap(errkind.Internal, err, "failed to register %s", fn.name)
		}
		logging.FromContext(ctx).Debug("registered duckdb function", zap.String("name", fn.name))
	}
	return nil
}
