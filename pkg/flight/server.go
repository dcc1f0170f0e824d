package flight

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"arrow-spatial/pkg/engine"
	"arrow-spatial/pkg/errkind"
	"arrow-spatial/pkg/geoparquet"
	"arrow-spatial/pkg/logging"
	"arrow-spatial/pkg/metadata"
	"arrow-spatial/pkg/plan"
	"arrow-spatial/pkg/spatial"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultTable names the uploaded batches when the action does not.
const DefaultTable = "input"

// Action is the JSON request carried in the first message's AppMetadata
// (or in the descriptor command).
type Action struct {
	Operation string   `json:"operation"`
	Table     string   `json:"table,omitempty"`
	Select    []string `json:"select,omitempty"`
	Where     string   `json:"where,omitempty"`
	Limit     int64    `json:"limit,omitempty"`
	// Geo replaces the "geo" schema metadata of the uploaded batches.
	Geo json.RawMessage `json:"geo,omitempty"`
}

func (a Action) query() engine.Query {
	return engine.Query{Table: a.Table, Select: a.Select, Where: a.Where, Limit: a.Limit}
}

// Options configures the exchange server.
type Options struct {
	// Session options applied to the per-exchange spatial session.
	Session []engine.Option
	Fs      afero.Fs
	// DataDir holds the spill directories.
	DataDir string
	// SpillRows is the number of buffered rows above which uploads are
	// written to parquet.
	SpillRows int64
}

// SpatialFlightServer runs spatial queries over record batches uploaded
// through DoExchange.
type SpatialFlightServer struct {
	flight.BaseFlightServer
	opts Options
}

func NewSpatialFlightServer(opts Options) *SpatialFlightServer {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.SpillRows <= 0 {
		opts.SpillRows = 1000 * 1000
	}
	return &SpatialFlightServer{opts: opts}
}

func parseAction(desc *flight.FlightData) Action {
	var raw []byte
	if len(desc.AppMetadata) > 0 {
		raw = desc.AppMetadata
	} else if desc.FlightDescriptor != nil && len(desc.FlightDescriptor.Cmd) > 0 {
		raw = desc.FlightDescriptor.Cmd
	}

	var action Action
	if err := json.Unmarshal(raw, &action); err != nil || action.Operation == "" {
		// Fallback: treat the payload as the bare operation name.
		action = Action{Operation: strings.TrimSpace(string(raw))}
	}
	if action.Table == "" {
		action.Table = DefaultTable
	}
	return action
}

func (s *SpatialFlightServer) DoExchange(stream flight.FlightService_DoExchangeServer) error {
	desc, err := stream.Recv()
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}

	action := parseAction(desc)
	ctx := logging.WithLogger(stream.Context(), logging.L().With(
		zap.String("operation", action.Operation),
		zap.String("table", action.Table)))
	logging.FromContext(ctx).Info("exchange started")

	switch action.Operation {
	case "query", "explain":
		err = s.handleQuery(ctx, stream, action)
	default:
		err = errkind.New(errkind.Unsupported, "unsupported operation: %q", action.Operation)
	}
	if err != nil {
		logging.FromContext(ctx).Error("exchange failed", zap.Error(err))
		return toStatus(err)
	}
	return nil
}

func (s *SpatialFlightServer) handleQuery(ctx context.Context, stream flight.FlightService_DoExchangeServer, action Action) error {
	sess, err := spatial.NewSession(s.opts.Session...)
	if err != nil {
		return err
	}

	table, release, err := s.receive(ctx, stream, sess.Allocator(), action.Geo)
	if err != nil {
		return err
	}
	defer release()
	if err := sess.RegisterTable(action.Table, table); err != nil {
		return err
	}

	n, err := sess.Plan(action.query())
	if err != nil {
		return err
	}
	if n, err = sess.Analyze(ctx, n); err != nil {
		return err
	}

	if action.Operation == "explain" {
		return writeExplain(stream, sess.Allocator(), plan.Explain(n))
	}

	schema, err := sess.Schema(n)
	if err != nil {
		return err
	}
	recs, err := sess.Collect(ctx, n)
	if err != nil {
		return err
	}
	defer engine.ReleaseBatches(recs)

	writer := flight.NewRecordWriter(stream, ipc.WithSchema(schema))
	defer writer.Close()

	var rows int64
	for _, rec := range recs {
		if err := writer.Write(rec); err != nil {
			return err
		}
		rows += rec.NumRows()
	}
	logging.FromContext(ctx).Info("exchange finished", zap.Int64("rows", rows), zap.Int("batches", len(recs)))
	return nil
}

// receive reads the uploaded batches into a table. Uploads above the
// spill threshold are written to parquet and served from the merged
// file.
func (s *SpatialFlightServer) receive(ctx context.Context, stream flight.FlightService_DoExchangeServer, mem memory.Allocator, geo json.RawMessage) (engine.TableProvider, func(), error) {
	reader, err := flight.NewRecordReader(stream, ipc.WithAllocator(mem))
	if err != nil {
		return nil, nil, errkind.Wrap(errkind.Internal, err, "failed to read record stream")
	}
	defer reader.Release()

	schema := reader.Schema()
	if len(geo) > 0 {
		md, err := metadata.Parse(string(geo))
		if err != nil {
			return nil, nil, err
		}
		if schema, err = md.WithSchema(schema); err != nil {
			return nil, nil, err
		}
	}

	var handler *ParquetBatchHandler
	cleanup := func() {
		if handler != nil {
			if err := handler.Cleanup(); err != nil {
				logging.FromContext(ctx).Warn("failed to remove spill directory", zap.Error(err))
			}
		}
	}

	var records []arrow.RecordBatch
	var buffered int64
	spill := func() error {
		for _, r := range records {
			out := array.NewRecordBatch(schema, r.Columns(), r.NumRows())
			err := handler.AddRecordBatch(out)
			out.Release()
			if err != nil {
				return err
			}
		}
		engine.ReleaseBatches(records)
		records = nil
		buffered = 0
		return nil
	}
	fail := func(err error) (engine.TableProvider, func(), error) {
		engine.ReleaseBatches(records)
		cleanup()
		return nil, nil, err
	}

	for reader.Next() {
		rec := reader.RecordBatch()
		rec.Retain()
		records = append(records, rec)
		buffered += rec.NumRows()
		logging.FromContext(ctx).Debug("received record batch", zap.Int64("rows", rec.NumRows()))

		if buffered >= s.opts.SpillRows {
			if handler == nil {
				if handler, err = NewParquetBatchHandler(s.opts.Fs, s.opts.DataDir); err != nil {
					return fail(err)
				}
			}
			logging.FromContext(ctx).Info("buffered rows exceed threshold, writing to parquet", zap.Int64("rows", buffered))
			if err := spill(); err != nil {
				return fail(err)
			}
		}
	}
	if err := reader.Err(); err != nil {
		return fail(errkind.Wrap(errkind.Internal, err, "failed to read record stream"))
	}

	if handler == nil {
		table, err := engine.NewMemTable(schema, records)
		engine.ReleaseBatches(records)
		if err != nil {
			return nil, nil, err
		}
		return table, table.Release, nil
	}

	if err := spill(); err != nil {
		return fail(err)
	}
	mergedPath, err := handler.MergeParquetFiles(ctx)
	if err != nil {
		return fail(err)
	}
	table, err := geoparquet.OpenTable(s.opts.Fs, mergedPath, geoparquet.WithAllocator(mem))
	if err != nil {
		return fail(err)
	}
	return table, cleanup, nil
}

func writeExplain(stream flight.FlightService_DoExchangeServer, mem memory.Allocator, text string) error {
	schema := arrow.NewSchema([]arrow.Field{{Name: "plan", Type: arrow.BinaryTypes.String}}, nil)
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	b.Field(0).(*array.StringBuilder).Append(text)
	rec := b.NewRecordBatch()
	defer rec.Release()

	writer := flight.NewRecordWriter(stream, ipc.WithSchema(schema))
	defer writer.Close()
	return writer.Write(rec)
}

func toStatus(err error) error {
	code := codes.Internal
	switch errkind.KindOf(err) {
	case errkind.MalformedGeoMetadata, errkind.UnsupportedDataType, errkind.UnsupportedGeometry, errkind.WKBParse, errkind.Plan:
		code = codes.InvalidArgument
	case errkind.Unimplemented, errkind.Unsupported:
		code = codes.Unimplemented
	case errkind.NotFound:
		code = codes.NotFound
	}
	if errors.Is(err, context.Canceled) {
		code = codes.Canceled
	}
	return status.Error(code, err.Error())
}
