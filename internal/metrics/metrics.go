package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes switcher metrics that are safe to scrape via Prometheus.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	layerSwitches       *prometheus.CounterVec
	viewportMoves       prometheus.Counter
	sessionsActive      prometheus.Gauge
}

// New creates a fresh Metrics registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "switcher",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "switcher",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	layerSwitches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "switcher",
		Name:      "layer_switches_total",
		Help:      "Base layer switches made by users, by target basemap",
	}, []string{"layer"})

	viewportMoves := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "switcher",
		Name:      "viewport_moves_total",
		Help:      "Primary map moves propagated to minimaps",
	})

	sessionsActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "switcher",
		Name:      "sessions_active",
		Help:      "Widget sessions currently open",
	})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		layerSwitches,
		viewportMoves,
		sessionsActive,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		layerSwitches:       layerSwitches,
		viewportMoves:       viewportMoves,
		sessionsActive:      sessionsActive,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// IncLayerSwitch counts a user switch to layer.
func (m *Metrics) IncLayerSwitch(layer string) {
	if m == nil {
		return
	}
	m.layerSwitches.WithLabelValues(layer).Inc()
}

// IncViewportMove counts a primary map move.
func (m *Metrics) IncViewportMove() {
	if m == nil {
		return
	}
	m.viewportMoves.Inc()
}

// SetSessionsActive sets the open session gauge.
func (m *Metrics) SetSessionsActive(n int) {
	if m == nil {
		return
	}
	m.sessionsActive.Set(float64(n))
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records every request passing through next. Requests routed by
// a ServeMux are labelled with the matched pattern so session IDs do not
// become label values.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		path := r.URL.Path
		if r.Pattern != "" {
			path = r.Pattern
		}
		m.ObserveHTTPRequest(r.Method, path, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streams working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }
