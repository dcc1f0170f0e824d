package flight

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"arrow-spatial/pkg/errkind"
	"arrow-spatial/pkg/geoparquet"
	"arrow-spatial/pkg/logging"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// ParquetBatchHandler spills exchanged record batches to parquet files
// in a private temporary directory and merges them for reading back.
type ParquetBatchHandler struct {
	fs           afero.Fs
	tempDir      string
	currentFiles []string
	schema       *arrow.Schema
	totalRows    int64
	batchIndex   int
}

// NewParquetBatchHandler creates the temporary directory under dir
// (the default temp directory when empty).
func NewParquetBatchHandler(fs afero.Fs, dir string) (*ParquetBatchHandler, error) {
	tempDir, err := afero.TempDir(fs, dir, "spatial_flight_batch_")
	if err != nil {
		return nil, errkind.Wrap(errkind.Internal, err, "failed to create temporary directory")
	}
	return &ParquetBatchHandler{fs: fs, tempDir: tempDir}, nil
}

func (h *ParquetBatchHandler) TempDir() string { return h.tempDir }

// Files lists the batch files written so far.
func (h *ParquetBatchHandler) Files() []string { return h.currentFiles }

// TotalRows is the number of rows spilled so far.
func (h *ParquetBatchHandler) TotalRows() int64 { return h.totalRows }

// AddRecordBatch writes rec to its own parquet file. The schema,
// including its geo metadata, is taken from the first batch.
func (h *ParquetBatchHandler) AddRecordBatch(rec arrow.RecordBatch) error {
	if h.schema == nil {
		h.schema = rec.Schema()
	}

	h.batchIndex++
	path := filepath.Join(h.tempDir, fmt.Sprintf("batch_%d.parquet", h.batchIndex))
	if err := geoparquet.WriteFile(h.fs, path, h.schema, []arrow.RecordBatch{rec}); err != nil {
		return err
	}

	h.totalRows += rec.NumRows()
	h.currentFiles = append(h.currentFiles, path)
	logging.L().Debug("spilled record batch",
		zap.Int("batch", h.batchIndex),
		zap.Int64("rows", rec.NumRows()),
		zap.String("path", path))
	return nil
}

// MergeParquetFiles merges all batch files into a single parquet file
// and returns its path.
func (h *ParquetBatchHandler) MergeParquetFiles(ctx context.Context) (string, error) {
	if len(h.currentFiles) == 0 {
		return "", errkind.New(errkind.Internal, "no parquet files to merge")
	}

	mergedPath := filepath.Join(h.tempDir, fmt.Sprintf("merged_%d.parquet", time.Now().UnixNano()))
	w, err := geoparquet.NewWriter(h.fs, mergedPath, h.schema)
	if err != nil {
		return "", err
	}

	for _, path := range h.currentFiles {
		if err := h.copyInto(ctx, w, path); err != nil {
			w.Close()
			return "", err
		}
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	logging.L().Info("merged spilled batches",
		zap.Int("files", len(h.currentFiles)),
		zap.Int64("rows", w.Rows()),
		zap.String("path", mergedPath))
	return mergedPath, nil
}

func (h *ParquetBatchHandler) copyInto(ctx context.Context, w *geoparquet.Writer, path string) error {
	t, err := geoparquet.OpenTable(h.fs, path)
	if err != nil {
		return err
	}
	rr, err := t.Scan(ctx)
	if err != nil {
		return err
	}
	defer rr.Release()

	for rr.Next() {
		if err := w.Write(rr.RecordBatch()); err != nil {
			return err
		}
	}
	return rr.Err()
}

// Cleanup removes the temporary directory and all files.
func (h *ParquetBatchHandler) Cleanup() error {
	if h.tempDir != "" {
		return h.fs.RemoveAll(h.tempDir)
	}
	return nil
}
