// Package geoparquet reads and writes GeoParquet files as engine tables.
package geoparquet

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"arrow-spatial/pkg/errkind"
	"arrow-spatial/pkg/logging"
	"arrow-spatial/pkg/metadata"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Table serves one parquet file or a directory of parquet files that
// share a schema.
type Table struct {
	fs        afero.Fs
	files     []string
	schema    *arrow.Schema
	batchSize int64
	mem       memory.Allocator
}

type Option func(*Table)

// WithBatchSize sets the number of rows per scanned batch.
func WithBatchSize(n int64) Option {
	return func(t *Table) {
		if n > 0 {
			t.batchSize = n
		}
	}
}

func WithAllocator(mem memory.Allocator) Option {
	return func(t *Table) {
		if mem != nil {
			t.mem = mem
		}
	}
}

// OpenTable opens path on fs. A directory contributes every *.parquet
// file directly inside it, in name order.
func OpenTable(fs afero.Fs, path string, opts ...Option) (*Table, error) {
	t := &Table{fs: fs, batchSize: 10000, mem: memory.DefaultAllocator}
	for _, opt := range opts {
		opt(t)
	}

	files, err := parquetFiles(fs, path)
	if err != nil {
		return nil, err
	}

	for _, f := range files {
		schema, err := t.readSchema(f)
		if err != nil {
			return nil, err
		}
		if t.schema == nil {
			t.schema = schema
			continue
		}
		if !t.schema.Equal(schema) {
			return nil, errkind.New(errkind.UnsupportedDataType, "parquet file %s schema %s does not match %s", f, schema, t.schema)
		}
	}
	t.files = files

	logging.L().Debug("opened geoparquet table",
		zap.String("path", path),
		zap.Int("files", len(files)))
	return t, nil
}

func parquetFiles(fs afero.Fs, path string) ([]string, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, errkind.Wrap(errkind.NotFound, err, "failed to stat %s", path)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := afero.ReadDir(fs, path)
	if err != nil {
		return nil, errkind.Wrap(errkind.Internal, err, "failed to list %s", path)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".parquet") {
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, errkind.New(errkind.NotFound, "no parquet files in %s", path)
	}
	sort.Strings(files)
	return files, nil
}

func (t *Table) open(path string) (*file.Reader, *pqarrow.FileReader, error) {
	f, err := t.fs.Open(path)
	if err != nil {
		return nil, nil, errkind.Wrap(errkind.NotFound, err, "failed to open %s", path)
	}
	pf, err := file.NewParquetReader(f)
	if err != nil {
		f.Close()
		return nil, nil, errkind.Wrap(errkind.UnsupportedDataType, err, "failed to read parquet file %s", path)
	}
	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{BatchSize: t.batchSize}, t.mem)
	if err != nil {
		pf.Close()
		return nil, nil, errkind.Wrap(errkind.UnsupportedDataType, err, "failed to create arrow reader for %s", path)
	}
	return pf, fr, nil
}

func (t *Table) readSchema(path string) (*arrow.Schema, error) {
	pf, fr, err := t.open(path)
	if err != nil {
		return nil, err
	}
	defer pf.Close()

	schema, err := fr.Schema()
	if err != nil {
		return nil, errkind.Wrap(errkind.UnsupportedDataType, err, "failed to read arrow schema of %s", path)
	}
	// Validate the geo document up front so a bad file fails on open.
	if _, err := metadata.FromSchema(schema); err != nil {
		return nil, err
	}
	return schema, nil
}

func (t *Table) Schema() *arrow.Schema { return t.schema }

// Files lists the parquet files backing the table.
func (t *Table) Files() []string { return t.files }

// GeoMetadata returns the parsed "geo" document, or nil when the files
// carry none.
func (t *Table) GeoMetadata() (*metadata.GeoMetadata, error) {
	return metadata.FromSchema(t.schema)
}

// Scan reads every file in order.
func (t *Table) Scan(ctx context.Context) (array.RecordReader, error) {
	var recs []arrow.RecordBatch
	defer func() {
		for _, rec := range recs {
			rec.Release()
		}
	}()

	for _, path := range t.files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		read, err := t.readAll(ctx, path)
		if err != nil {
			return nil, err
		}
		recs = append(recs, read...)
	}
	return array.NewRecordReader(t.schema, recs)
}

func (t *Table) readAll(ctx context.Context, path string) ([]arrow.RecordBatch, error) {
	pf, fr, err := t.open(path)
	if err != nil {
		return nil, err
	}
	defer pf.Close()

	rr, err := fr.GetRecordReader(ctx, nil, nil)
	if err != nil {
		return nil, errkind.Wrap(errkind.Internal, err, "failed to create record reader for %s", path)
	}
	defer rr.Release()

	var recs []arrow.RecordBatch
	for rr.Next() {
		rec := rr.RecordBatch()
		rec.Retain()
		recs = append(recs, rec)
	}
	if err := rr.Err(); err != nil {
		for _, rec := range recs {
			rec.Release()
		}
		return nil, errkind.Wrap(errkind.Internal, err, "failed to read %s", path)
	}
	return recs, nil
}
