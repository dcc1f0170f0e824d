//go:build !duckdb_arrow

package duckdb

import (
	"context"

	"arrow-spatial/pkg/engine"
	"arrow-spatial/pkg/errkind"
	"arrow-spatial/pkg/metadata"

	"github.com/duckdb/duckdb-go/v2"
)

// QueryTable needs the DuckDB Arrow interface; build with the
// duckdb_arrow tag to enable it.
func QueryTable(_ context.Context, _ *duckdb.Connector, _ string, _ *metadata.GeoMetadata) (*engine.MemTable, error) {
	return nil, errkind.New(errkind.Unsupported, "duckdb arrow queries need the duckdb_arrow build tag")
}
