package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"arrow-spatial/pkg/engine"
	"arrow-spatial/pkg/errkind"
	"arrow-spatial/pkg/geoparquet"
	"arrow-spatial/pkg/logging"
	"arrow-spatial/pkg/spatial"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// DefaultTable is the name a request's file is registered under when
// the request does not name one.
const DefaultTable = "t"

// APIHandler handles REST API requests for spatial queries over
// GeoParquet files.
type APIHandler struct {
	fs   afero.Fs
	opts []engine.Option
}

// NewAPIHandler serves files of fs. Request paths are resolved against
// the root of fs.
func NewAPIHandler(fs afero.Fs, opts ...engine.Option) *APIHandler {
	return &APIHandler{fs: fs, opts: opts}
}

// QueryRequest selects expressions from a GeoParquet file or directory.
type QueryRequest struct {
	Path   string   `json:"path"`
	Table  string   `json:"table,omitempty"`
	Select []string `json:"select"`
	Where  string   `json:"where,omitempty"`
	Limit  int64    `json:"limit,omitempty"`
}

// QueryResponse carries the result rows as JSON objects keyed by
// column name.
type QueryResponse struct {
	Columns []string          `json:"columns"`
	Rows    []json.RawMessage `json:"rows"`
	NumRows int64             `json:"num_rows"`
}

type ExplainResponse struct {
	Plan string `json:"plan"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (q QueryRequest) query() engine.Query {
	table := q.Table
	if table == "" {
		table = DefaultTable
	}
	return engine.Query{Table: table, Select: q.Select, Where: q.Where, Limit: q.Limit}
}

// session opens the request's file as a table of a fresh spatial
// session.
func (h *APIHandler) session(req QueryRequest) (*engine.Session, error) {
	if req.Path == "" {
		return nil, errkind.New(errkind.Plan, "path is required")
	}
	sess, err := spatial.NewSession(h.opts...)
	if err != nil {
		return nil, err
	}
	table, err := geoparquet.OpenTable(h.fs, req.Path, geoparquet.WithAllocator(sess.Allocator()))
	if err != nil {
		return nil, err
	}
	if err := sess.RegisterTable(req.query().Table, table); err != nil {
		return nil, err
	}
	return sess, nil
}

func (h *APIHandler) decode(w http.ResponseWriter, r *http.Request) (QueryRequest, bool) {
	var req QueryRequest
	if r.Method != http.MethodPost {
		h.sendError(w, http.StatusMethodNotAllowed, "only POST method is allowed", "")
		return req, false
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, fmt.Sprintf("failed to read request body: %v", err), "")
		return req, false
	}
	defer r.Body.Close()

	if err := json.Unmarshal(body, &req); err != nil {
		h.sendError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err), "")
		return req, false
	}
	return req, true
}

// QueryHandler handles POST /api/v1/query.
func (h *APIHandler) QueryHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	sess, err := h.session(req)
	if err != nil {
		h.sendKindError(w, err)
		return
	}
	n, err := sess.Plan(req.query())
	if err == nil {
		n, err = sess.Analyze(ctx, n)
	}
	if err != nil {
		h.sendKindError(w, err)
		return
	}
	schema, err := sess.Schema(n)
	if err != nil {
		h.sendKindError(w, err)
		return
	}
	recs, err := sess.Collect(ctx, n)
	if err != nil {
		h.sendKindError(w, err)
		return
	}
	defer engine.ReleaseBatches(recs)

	resp := QueryResponse{Rows: []json.RawMessage{}}
	for _, f := range schema.Fields() {
		resp.Columns = append(resp.Columns, f.Name)
	}

	var buf bytes.Buffer
	for _, rec := range recs {
		if err := array.RecordToJSON(rec, &buf); err != nil {
			h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("failed to serialize result: %v", err), "")
			return
		}
		resp.NumRows += rec.NumRows()
	}
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var row json.RawMessage
		if err := dec.Decode(&row); err != nil {
			h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("failed to serialize result: %v", err), "")
			return
		}
		resp.Rows = append(resp.Rows, row)
	}

	logging.FromContext(ctx).Info("query served",
		zap.String("path", req.Path),
		zap.Strings("select", req.Select),
		zap.Int64("rows", resp.NumRows))
	h.sendJSON(w, http.StatusOK, resp)
}

// ExplainHandler handles POST /api/v1/explain.
func (h *APIHandler) ExplainHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	sess, err := h.session(req)
	if err != nil {
		h.sendKindError(w, err)
		return
	}
	plan, err := sess.Explain(r.Context(), req.query())
	if err != nil {
		h.sendKindError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, ExplainResponse{Plan: plan})
}

// FunctionsHandler handles GET /api/v1/functions.
func (h *APIHandler) FunctionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.sendError(w, http.StatusMethodNotAllowed, "only GET method is allowed", "")
		return
	}
	sess, err := spatial.NewSession(h.opts...)
	if err != nil {
		h.sendKindError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, sess.Functions())
}

// StatusOf maps an error kind to an HTTP status.
func StatusOf(err error) int {
	switch errkind.KindOf(err) {
	case errkind.MalformedGeoMetadata, errkind.UnsupportedDataType, errkind.UnsupportedGeometry, errkind.WKBParse, errkind.Plan:
		return http.StatusBadRequest
	case errkind.NotFound:
		return http.StatusNotFound
	case errkind.Unimplemented, errkind.Unsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func (h *APIHandler) sendKindError(w http.ResponseWriter, err error) {
	code := StatusOf(err)
	if code == http.StatusInternalServerError {
		logging.L().Error("request failed", zap.Error(err))
	}
	h.sendError(w, code, err.Error(), errkind.KindOf(err).String())
}

func (h *APIHandler) sendJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// sendError sends an error response as JSON
func (h *APIHandler) sendError(w http.ResponseWriter, statusCode int, message, kind string) {
	h.sendJSON(w, statusCode, ErrorResponse{Error: message, Kind: kind})
}
