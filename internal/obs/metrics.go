package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP-level metrics shared by every endpoint.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Domain metrics for the account core.
var (
	accountsOpened = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bank_accounts_opened_total",
			Help: "Accounts opened, by variant kind.",
		},
		[]string{"kind"},
	)

	ledgerEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bank_ledger_entries_total",
			Help: "Ledger entries recorded, by entry kind.",
		},
		[]string{"kind"},
	)

	monthEndRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bank_month_end_runs_total",
		Help: "Month-end processing runs.",
	})
)

// Init registers all metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		accountsOpened, ledgerEntries, monthEndRuns,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// AccountOpened records an account creation for the given variant.
func AccountOpened(kind string) {
	accountsOpened.WithLabelValues(kind).Inc()
}

// EntriesRecorded records n new ledger entries of the given kind.
func EntriesRecorded(kind string, n int) {
	if n <= 0 {
		return
	}
	ledgerEntries.WithLabelValues(kind).Add(float64(n))
}

// MonthEndRun records one month-end processing run.
func MonthEndRun() {
	monthEndRuns.Inc()
}

// accountActions are the sub-resources under /v1/accounts/{id} whose
// identifiers must be collapsed to keep metric label cardinality bounded.
var accountActions = map[string]bool{
	"":            true,
	"balance":     true,
	"history":     true,
	"deposits":    true,
	"withdrawals": true,
	"month-end":   true,
}

// CanonicalPath collapses account identifiers in request paths so that every
// account maps to the same metric series.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	const prefix = "/v1/accounts/"
	if !strings.HasPrefix(path, prefix) {
		return path
	}
	rest := strings.TrimSuffix(strings.TrimPrefix(path, prefix), "/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		return path
	}
	if !accountActions[action] {
		return path
	}
	if action == "" {
		return prefix + ":id"
	}
	return prefix + ":id/" + action
}

// Instrument wraps next with RPS, latency and in-flight measurements.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter captures the response code for instrumentation.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE responses streaming through the wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
