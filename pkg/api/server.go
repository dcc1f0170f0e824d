package api

import (
	"context"
	"fmt"
	"net/http"

	"arrow-spatial/pkg/engine"
	"arrow-spatial/pkg/logging"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// APIServer represents the REST API server
type APIServer struct {
	handler *APIHandler
	port    int
	server  *http.Server
}

// NewAPIServer serves the files under dataDir.
func NewAPIServer(dataDir string, port int, opts ...engine.Option) *APIServer {
	fs := afero.NewBasePathFs(afero.NewOsFs(), dataDir)
	return &APIServer{
		handler: NewAPIHandler(afero.NewReadOnlyFs(fs), opts...),
		port:    port,
	}
}

// Routes returns the API mux.
func (s *APIServer) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/query", s.handler.QueryHandler)
	mux.HandleFunc("/api/v1/explain", s.handler.ExplainHandler)
	mux.HandleFunc("/api/v1/functions", s.handler.FunctionsHandler)

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	return withRequestLogger(mux)
}

// withRequestLogger tags the request context and the response with the
// X-Request-Id header, or a fresh uuid.
func withRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		ctx := logging.WithRequestID(r.Context(), id)
		logging.FromContext(ctx).Debug("request", zap.String("remote", r.RemoteAddr))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Start starts the REST API server
func (s *APIServer) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Routes(),
	}

	logging.L().Info("starting REST API server", zap.Int("port", s.port))
	return s.server.ListenAndServe()
}

// Stop stops the REST API server
func (s *APIServer) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
