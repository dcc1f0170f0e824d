package engine

import (
	"context"

	"arrow-spatial/pkg/errkind"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// TableProvider is a source of record batches.
type TableProvider interface {
	Schema() *arrow.Schema
	Scan(ctx context.Context) (array.RecordReader, error)
}

// MemTable serves record batches held in memory.
type MemTable struct {
	schema  *arrow.Schema
	records []arrow.RecordBatch
}

// NewMemTable retains recs, which must all have schema's fields.
// Schema metadata may differ.
func NewMemTable(schema *arrow.Schema, recs []arrow.RecordBatch) (*MemTable, error) {
	for i, rec := range recs {
		if !schema.Equal(rec.Schema()) {
			return nil, errkind.New(errkind.UnsupportedDataType, "record %d schema %s does not match table schema %s", i, rec.Schema(), schema)
		}
	}
	for _, rec := range recs {
		rec.Retain()
	}
	return &MemTable{schema: schema, records: recs}, nil
}

func (t *MemTable) Schema() *arrow.Schema { return t.schema }

func (t *MemTable) Scan(_ context.Context) (array.RecordReader, error) {
	return array.NewRecordReader(t.schema, t.records)
}

func (t *MemTable) Release() {
	for _, rec := range t.records {
		rec.Release()
	}
	t.records = nil
}
