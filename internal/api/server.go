// Package api wires the HTTP routes: probes, metrics, the embedded frontend
// and the session API used by it.
package api

import (
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/star/assetlist/internal/cache"
	"github.com/star/assetlist/internal/catalog"
	"github.com/star/assetlist/internal/health"
	"github.com/star/assetlist/internal/httputil"
	"github.com/star/assetlist/internal/metrics"
	"github.com/star/assetlist/internal/session"
	"github.com/star/assetlist/internal/stream"
)

// Config holds HTTP server configuration.
type Config struct {
	Addr       string // Listen address (default: ":8080").
	TrustProxy bool   // Read client IPs from X-Forwarded-For / X-Real-IP.
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(
	config Config,
	sessions *session.Manager,
	queryCache *cache.QueryCache,
	store *catalog.Store,
	streamHandler *stream.Handler,
	static fs.FS,
	logger *slog.Logger,
) *Server {
	if config.Addr == "" {
		config.Addr = ":8080"
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(store))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("GET /", http.FileServerFS(static))

	mux.HandleFunc("GET /api/v1/options", optionsHandler)
	mux.HandleFunc("GET /api/v1/cache/stats", cacheStatsHandler(queryCache))
	mux.HandleFunc("DELETE /api/v1/cache", purgeCacheHandler(logger, queryCache))

	mux.HandleFunc("POST /api/v1/sessions", createSessionHandler(logger, sessions))
	mux.HandleFunc("GET /api/v1/sessions/{id}", snapshotHandler(sessions))
	mux.HandleFunc("GET /api/v1/sessions/{id}/rows", rowsHandler(sessions))
	mux.HandleFunc("POST /api/v1/sessions/{id}/search", searchHandler(sessions))
	mux.HandleFunc("POST /api/v1/sessions/{id}/filters", filtersHandler(sessions))
	mux.HandleFunc("POST /api/v1/sessions/{id}/filters/toggle", toggleFilterHandler(sessions))
	mux.HandleFunc("POST /api/v1/sessions/{id}/filters/apply", applyFiltersHandler(sessions))
	mux.HandleFunc("POST /api/v1/sessions/{id}/sort", sortHandler(sessions))
	mux.HandleFunc("POST /api/v1/sessions/{id}/category", categoryHandler(sessions))
	mux.HandleFunc("POST /api/v1/sessions/{id}/reload", reloadHandler(sessions, queryCache))
	mux.HandleFunc("GET /api/v1/sessions/{id}/events", streamHandler.HandleEvents)

	// Build middleware chain: metrics -> logging -> mux.
	var handler http.Handler = mux
	handler = loggingMiddleware(logger, config.TrustProxy)(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              config.Addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.logger.Info("starting server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", httputil.ClientIP(r, trustProxy),
			)
		})
	}
}
