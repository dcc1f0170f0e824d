package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"arrow-spatial/pkg/engine"
	"arrow-spatial/pkg/geoparquet"
	"arrow-spatial/pkg/metadata"
	"arrow-spatial/pkg/wkb"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gogeom "github.com/twpayne/go-geom"
)

// newTestHandler serves /points.parquet (two WKB points) and
// /mixed.parquet (a point and a line string declared as mixed).
func newTestHandler(t *testing.T) *APIHandler {
	t.Helper()
	fs := afero.NewMemMapFs()
	writeWKB(t, fs, "/points.parquet", []string{"Point"},
		gogeom.NewPoint(gogeom.XY).MustSetCoords(gogeom.Coord{1, 2}),
		gogeom.NewPoint(gogeom.XY).MustSetCoords(gogeom.Coord{3, 4}))
	writeWKB(t, fs, "/mixed.parquet", []string{"Point", "LineString"},
		gogeom.NewPoint(gogeom.XY).MustSetCoords(gogeom.Coord{1, 2}),
		gogeom.NewLineString(gogeom.XY).MustSetCoords([]gogeom.Coord{{0, 0}, {1, 1}}))
	return NewAPIHandler(fs, engine.WithPartitions(2))
}

func writeWKB(t *testing.T, fs afero.Fs, path string, types []string, geoms ...gogeom.T) {
	t.Helper()
	schema := arrow.NewSchema([]arrow.Field{{Name: "geometry", Type: arrow.BinaryTypes.Binary, Nullable: true}}, nil)

	b := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer b.Release()
	for _, g := range geoms {
		buf, err := wkb.Encode(g)
		require.NoError(t, err)
		b.Field(0).(*array.BinaryBuilder).Append(buf)
	}
	rec := b.NewRecordBatch()
	defer rec.Release()

	md := metadata.Build("geometry", map[string]metadata.ColumnMetadata{
		"geometry": {Encoding: "WKB", GeometryTypes: types},
	})
	require.NoError(t, geoparquet.WriteFile(fs, path, schema, []arrow.RecordBatch{rec}, geoparquet.WithGeoMetadata(md)))
}

func post(h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func TestQueryHandler(t *testing.T) {
	handler := newTestHandler(t)

	rr := post(handler.QueryHandler, "/api/v1/query",
		`{"path": "/points.parquet", "select": ["ST_AsText(geometry) AS wkt", "st_geometrytype(geometry)"]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp QueryResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, []string{"wkt", "ST_GeometryType(geometry)"}, resp.Columns)
	assert.Equal(t, int64(2), resp.NumRows)
	require.Len(t, resp.Rows, 2)

	var row map[string]string
	require.NoError(t, json.Unmarshal(resp.Rows[1], &row))
	assert.Equal(t, map[string]string{"wkt": "POINT (3.0 4.0)", "ST_GeometryType(geometry)": "ST_Point"}, row)
}

func TestQueryHandler_Extent(t *testing.T) {
	handler := newTestHandler(t)

	rr := post(handler.QueryHandler, "/api/v1/query",
		`{"path": "/points.parquet", "table": "pts", "select": ["st_extent(geometry) AS bbox"]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp QueryResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Rows, 1)

	var row struct {
		BBox map[string]float64 `json:"bbox"`
	}
	require.NoError(t, json.Unmarshal(resp.Rows[0], &row))
	assert.Equal(t, map[string]float64{"xmin": 1, "ymin": 2, "xmax": 3, "ymax": 4}, row.BBox)
}

func TestExplainHandler(t *testing.T) {
	handler := newTestHandler(t)

	rr := post(handler.ExplainHandler, "/api/v1/explain",
		`{"path": "/mixed.parquet", "select": ["ST_AsText(geometry)"]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp ExplainResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Contains(t, resp.Plan, `ST_AsText(geometry, Utf8("Mixed"), Utf8("WKB"))`)
}

func TestFunctionsHandler(t *testing.T) {
	handler := newTestHandler(t)

	rr := httptest.NewRecorder()
	handler.FunctionsHandler(rr, httptest.NewRequest(http.MethodGet, "/api/v1/functions", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var fns []engine.FunctionInfo
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &fns))
	require.Len(t, fns, 4)
	assert.Equal(t, "ST_AsText", fns[0].Name)
	assert.Equal(t, []string{"st_astext"}, fns[0].Aliases)
	assert.Equal(t, "aggregate", fns[2].Kind)
}

func TestQueryHandler_Errors(t *testing.T) {
	handler := newTestHandler(t)

	cases := []struct {
		name string
		body string
		code int
		kind string
	}{
		{"invalid json", `{"invalid": `, http.StatusBadRequest, ""},
		{"missing path", `{"select": ["ST_AsText(geometry)"]}`, http.StatusBadRequest, "plan"},
		{"missing file", `{"path": "/nope.parquet", "select": ["ST_AsText(geometry)"]}`, http.StatusNotFound, "not found"},
		{"unknown function", `{"path": "/points.parquet", "select": ["ST_Buffer(geometry)"]}`, http.StatusNotFound, "not found"},
		{"mixed envelope", `{"path": "/mixed.parquet", "select": ["ST_Envelope(geometry)"]}`, http.StatusNotImplemented, "unimplemented"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := post(handler.QueryHandler, "/api/v1/query", tc.body)
			assert.Equal(t, tc.code, rr.Code, rr.Body.String())

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, tc.kind, resp.Kind)
		})
	}
}

func TestQueryHandler_InvalidMethod(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/query", nil)
	rr := httptest.NewRecorder()

	handler.QueryHandler(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status %d, got %d", http.StatusMethodNotAllowed, rr.Code)
	}
}

func TestRoutes(t *testing.T) {
	s := &APIServer{handler: newTestHandler(t)}
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	res, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	_, err = uuid.Parse(res.Header.Get("X-Request-Id"))
	assert.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/query",
		bytes.NewBufferString(`{"path": "/points.parquet", "select": ["ST_AsText(geometry)"], "limit": 1}`))
	require.NoError(t, err)
	req.Header.Set("X-Request-Id", "abc")
	res2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res2.Body.Close()
	require.Equal(t, http.StatusOK, res2.StatusCode)

	var resp QueryResponse
	require.NoError(t, json.NewDecoder(res2.Body).Decode(&resp))
	assert.Equal(t, "abc", res2.Header.Get("X-Request-Id"))
	assert.Equal(t, int64(1), resp.NumRows)
}
