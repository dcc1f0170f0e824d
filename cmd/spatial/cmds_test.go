package main

import (
	"bytes"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textBatch(t *testing.T, vals ...string) arrow.RecordBatch {
	t.Helper()
	schema := arrow.NewSchema([]arrow.Field{{Name: "ST_AsText(geometry)", Type: arrow.BinaryTypes.String, Nullable: true}}, nil)
	b := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer b.Release()
	b.Field(0).(*array.StringBuilder).AppendValues(vals, nil)
	return b.NewRecordBatch()
}

func TestPrintResults(t *testing.T) {
	rec := textBatch(t, "POINT (1.0 2.0)", "POINT (3.0 4.0)")
	defer rec.Release()

	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, []arrow.RecordBatch{rec}))
	assert.Equal(t, "{\"ST_AsText(geometry)\":\"POINT (1.0 2.0)\"}\n{\"ST_AsText(geometry)\":\"POINT (3.0 4.0)\"}\n", buf.String())

	buf.Reset()
	require.NoError(t, printPretty(&buf, []arrow.RecordBatch{rec}))
	assert.Equal(t, "ST_AsText(geometry)\nPOINT (1.0 2.0)\nPOINT (3.0 4.0)\n", buf.String())
}
