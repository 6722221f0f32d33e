package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetlist_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assetlist_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	upstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetlist_upstream_requests_total",
			Help: "Upstream catalog fetches by outcome.",
		},
		[]string{"outcome"},
	)

	upstreamDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assetlist_upstream_duration_seconds",
			Help:    "Upstream catalog fetch duration in seconds, retries included.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	upstreamRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "assetlist_upstream_records",
			Help: "Number of records in the most recent upstream response.",
		},
	)

	datasetAgeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "assetlist_dataset_age_seconds",
			Help: "Age of the most recently resolved dataset.",
		},
	)

	queryCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "assetlist_query_cache_hits_total",
			Help: "Query cache hits.",
		},
	)

	queryCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "assetlist_query_cache_misses_total",
			Help: "Query cache misses.",
		},
	)

	queryCacheShared = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "assetlist_query_cache_shared_total",
			Help: "Callers that joined an in-flight fetch instead of issuing their own.",
		},
	)

	queryCacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "assetlist_query_cache_entries",
			Help: "Number of cached query results.",
		},
	)

	pipelineDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assetlist_pipeline_duration_seconds",
			Help:    "Time spent in each pipeline recompute stage.",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"stage"},
	)

	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "assetlist_sessions_active",
			Help: "Number of live UI sessions.",
		},
	)

	streamConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetlist_stream_connections_total",
			Help: "SSE connection events.",
		},
		[]string{"event"},
	)

	streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "assetlist_streams_active",
			Help: "Number of open SSE streams.",
		},
	)

	streamMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "assetlist_stream_messages_total",
			Help: "SSE messages sent.",
		},
	)

	streamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetlist_stream_errors_total",
			Help: "SSE errors by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		upstreamRequestsTotal,
		upstreamDurationSeconds,
		upstreamRecords,
		datasetAgeSeconds,
		queryCacheHits,
		queryCacheMisses,
		queryCacheShared,
		queryCacheEntries,
		pipelineDurationSeconds,
		sessionsActive,
		streamConnectionsTotal,
		streamsActive,
		streamMessagesTotal,
		streamErrorsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

func IncUpstreamRequests(outcome string) { upstreamRequestsTotal.WithLabelValues(outcome).Inc() }

func ObserveUpstreamDuration(d time.Duration) { upstreamDurationSeconds.Observe(d.Seconds()) }

func SetUpstreamRecords(n int) { upstreamRecords.Set(float64(n)) }

func SetDatasetAge(seconds float64) { datasetAgeSeconds.Set(seconds) }

func IncQueryCacheHits() { queryCacheHits.Inc() }

func IncQueryCacheMisses() { queryCacheMisses.Inc() }

func IncQueryCacheShared() { queryCacheShared.Inc() }

func SetQueryCacheEntries(n int) { queryCacheEntries.Set(float64(n)) }

// ObservePipeline records how long one pipeline stage took.
func ObservePipeline(stage string, d time.Duration) {
	pipelineDurationSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

func SetSessionsActive(n int) { sessionsActive.Set(float64(n)) }

func IncStreamConnections(event string) { streamConnectionsTotal.WithLabelValues(event).Inc() }

func IncStreamsActive() { streamsActive.Inc() }

func DecStreamsActive() { streamsActive.Dec() }

func IncStreamMessages() { streamMessagesTotal.Inc() }

func IncStreamErrors(reason string) { streamErrorsTotal.WithLabelValues(reason).Inc() }

// knownRoutes are exact paths reported under their own label.
var knownRoutes = map[string]bool{
	"/":                   true,
	"/healthz":            true,
	"/readyz":             true,
	"/metrics":            true,
	"/app.js":             true,
	"/styles.css":         true,
	"/api/v1/options":     true,
	"/api/v1/sessions":    true,
	"/api/v1/cache/stats": true,
	"/api/v1/cache":       true,
}

// sessionActions are the sub-resources under /api/v1/sessions/{id}.
var sessionActions = map[string]bool{
	"rows":     true,
	"search":   true,
	"filters":  true,
	"sort":     true,
	"category": true,
	"events":   true,
	"reload":   true,

	"filters/toggle": true,
	"filters/apply":  true,
}

// normalizeRoute collapses request paths to a bounded label set so that
// session IDs and scanner traffic cannot blow up metric cardinality.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	rest, ok := strings.CutPrefix(path, "/api/v1/sessions/")
	if !ok || rest == "" {
		return "other"
	}
	id, action, hasAction := strings.Cut(rest, "/")
	if id == "" {
		return "other"
	}
	if !hasAction {
		return "/api/v1/sessions/{id}"
	}
	if sessionActions[action] {
		return "/api/v1/sessions/{id}/" + action
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the wrapped writer so SSE keeps working behind the middleware.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
