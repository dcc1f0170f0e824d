//go:build duckdb_arrow

package duckdb

import (
	"context"

	"arrow-spatial/pkg/engine"
	"arrow-spatial/pkg/errkind"
	"arrow-spatial/pkg/metadata"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/duckdb/duckdb-go/v2"
)

// QueryTable runs query on a fresh connection of c and holds the result
// in memory. A non-nil geo is attached to the table schema so the
// spatial analyzer can see the geometry columns.
func QueryTable(ctx context.Context, c *duckdb.Connector, query string, geo *metadata.GeoMetadata) (*engine.MemTable, error) {
	conn, err := c.Connect(ctx)
	if err != nil {
		return nil, errkind.Wrap(errkind.Internal, err, "failed to connect to duckdb")
	}
	defer conn.Close()

	ar, err := duckdb.NewArrowFromConn(conn)
	if err != nil {
		return nil, errkind.Wrap(errkind.Internal, err, "failed to create arrow from duckdb")
	}

	rr, err := ar.QueryContext(ctx, query)
	if err != nil {
		return nil, errkind.Wrap(errkind.Plan, err, "failed to run duckdb query")
	}
	defer rr.Release()

	var recs []arrow.RecordBatch
	defer func() { engine.ReleaseBatches(recs) }()
	for rr.Next() {
		rec := rr.RecordBatch()
		rec.Retain()
		recs = append(recs, rec)
	}
	if err := rr.Err(); err != nil {
		return nil, errkind.Wrap(errkind.Internal, err, "failed to read duckdb result")
	}

	schema := rr.Schema()
	if geo != nil {
		if schema, err = geo.WithSchema(schema); err != nil {
			return nil, err
		}
	}
	return engine.NewMemTable(schema, recs)
}
