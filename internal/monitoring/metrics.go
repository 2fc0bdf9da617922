package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Xprriacst/google-maps-scraper/internal/model"
	"github.com/Xprriacst/google-maps-scraper/internal/source"
)

const namespace = "leadgen"

// Lookup outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

var (
	// LookupsTotal counts source lookups by outcome.
	LookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "lookups_total",
			Help:      "Total number of contact source lookups by outcome",
		},
		[]string{"source", "outcome"},
	)

	// LookupDuration tracks time spent per source lookup.
	LookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "lookup_duration_seconds",
			Help:      "Duration of contact source lookups in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"source"},
	)

	// BusinessesTotal counts scored businesses by category.
	BusinessesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "businesses_total",
			Help:      "Total number of scored businesses by category",
		},
		[]string{"category"},
	)

	// BusinessesSkipped counts businesses dropped before enrichment.
	BusinessesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "businesses_skipped_total",
			Help:      "Total number of businesses skipped before enrichment by reason",
		},
		[]string{"reason"},
	)

	// CacheLookups counts enrichment cache hits and misses.
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Total number of enrichment cache lookups by result",
		},
		[]string{"result"},
	)

	// RunsTotal counts finished runs by status.
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of finished runs by status",
		},
		[]string{"status"},
	)

	// RunsInFlight tracks runs currently executing.
	RunsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_in_flight",
			Help:      "Number of runs currently executing",
		},
	)

	// HTTPRequestsTotal counts API requests.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	// HTTPRequestDuration tracks API latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of API requests in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route"},
	)
)

// ObserveLookup records one source call.
func ObserveLookup(m source.Metrics) {
	if m.Source == "" {
		return
	}
	LookupsTotal.WithLabelValues(m.Source, lookupOutcome(m)).Inc()
	if m.Requests > 0 {
		LookupDuration.WithLabelValues(m.Source).Observe(m.Duration.Seconds())
	}
}

func lookupOutcome(m source.Metrics) string {
	switch {
	case m.Errors > 0:
		return OutcomeError
	case m.Successes > 0:
		return OutcomeSuccess
	case m.Skipped > 0:
		return OutcomeSkipped
	default:
		return OutcomeEmpty
	}
}

// ObserveRecord counts a scored business.
func ObserveRecord(rec model.ScoredRecord) {
	BusinessesTotal.WithLabelValues(string(rec.Category)).Inc()
}

// ObserveSkip counts a business dropped before enrichment.
func ObserveSkip(reason string) {
	BusinessesSkipped.WithLabelValues(reason).Inc()
}

// ObserveCache counts a cache lookup.
func ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(result).Inc()
}

// ObserveRun counts a finished run.
func ObserveRun(status model.RunStatus) {
	RunsTotal.WithLabelValues(string(status)).Inc()
}

// Instrument is chi middleware recording request counts and latency by
// route pattern.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
