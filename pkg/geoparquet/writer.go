package geoparquet

import (
	"arrow-spatial/pkg/errkind"
	"arrow-spatial/pkg/metadata"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/spf13/afero"
)

type writeConfig struct {
	geo         *metadata.GeoMetadata
	compression compress.Compression
}

type WriteOption func(*writeConfig)

// WithGeoMetadata replaces the "geo" entry of the written schema.
func WithGeoMetadata(md *metadata.GeoMetadata) WriteOption {
	return func(c *writeConfig) { c.geo = md }
}

func WithCompression(codec compress.Compression) WriteOption {
	return func(c *writeConfig) { c.compression = codec }
}

// Writer streams record batches into one parquet file.
type Writer struct {
	w      *pqarrow.FileWriter
	schema *arrow.Schema
	rows   int64
}

// NewWriter creates path on fs. The arrow schema is stored in the file
// so native geometry columns read back with their original nesting.
func NewWriter(fs afero.Fs, path string, schema *arrow.Schema, opts ...WriteOption) (*Writer, error) {
	cfg := writeConfig{compression: compress.Codecs.Snappy}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.geo != nil {
		var err error
		if schema, err = cfg.geo.WithSchema(schema); err != nil {
			return nil, err
		}
	}

	f, err := fs.Create(path)
	if err != nil {
		return nil, errkind.Wrap(errkind.Internal, err, "failed to create parquet file %s", path)
	}

	w, err := pqarrow.NewFileWriter(
		schema,
		f,
		parquet.NewWriterProperties(parquet.WithCompression(cfg.compression)),
		pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()),
	)
	if err != nil {
		f.Close()
		return nil, errkind.Wrap(errkind.UnsupportedDataType, err, "failed to create parquet writer for %s", path)
	}
	return &Writer{w: w, schema: schema}, nil
}

func (w *Writer) Schema() *arrow.Schema { return w.schema }

// Rows is the number of rows written so far.
func (w *Writer) Rows() int64 { return w.rows }

func (w *Writer) Write(rec arrow.RecordBatch) error {
	if err := w.w.WriteBuffered(rec); err != nil {
		return errkind.Wrap(errkind.Internal, err, "failed to write record batch")
	}
	w.rows += rec.NumRows()
	return nil
}

// Close writes the footer and closes the file.
func (w *Writer) Close() error {
	if err := w.w.Close(); err != nil {
		return errkind.Wrap(errkind.Internal, err, "failed to close parquet writer")
	}
	return nil
}

// WriteFile writes recs to a new GeoParquet file at path.
func WriteFile(fs afero.Fs, path string, schema *arrow.Schema, recs []arrow.RecordBatch, opts ...WriteOption) error {
	w, err := NewWriter(fs, path, schema, opts...)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if err := w.Write(rec); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}
