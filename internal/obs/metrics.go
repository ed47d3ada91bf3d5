package obs

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sync outcomes recorded by Metrics.Sync.
const (
	SyncOK       = "ok"
	SyncConflict = "conflict"
	SyncError    = "error"
)

// Metrics groups the Prometheus collectors for the HTTP surface and the
// pricing engine. A nil *Metrics records nothing.
type Metrics struct {
	ReqTotal     *prometheus.CounterVec
	ReqDur       *prometheus.HistogramVec
	Computations *prometheus.CounterVec
	Syncs        *prometheus.CounterVec
	GuardHits    prometheus.Counter
	Conflicts    prometheus.Counter
}

// NewMetrics registers and returns the service collectors.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		ReqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests handled by the server.",
		}, []string{"method", "route", "status"}),
		ReqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency distribution in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}, []string{"method", "route"}),
		Computations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_computations_total",
			Help:      "Cost breakdowns computed, by caller.",
		}, []string{"source"}),
		Syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_sheet_syncs_total",
			Help:      "Price sheet item syncs by outcome.",
		}, []string{"result"}),
		GuardHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resync_materials_kept_total",
			Help:      "Syncs that kept the stored materials block because the recomputed one was empty.",
		}),
		Conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_sheet_version_conflicts_total",
			Help:      "Writes rejected because the stored item version moved.",
		}),
	}
	m.ReqTotal = mustRegister(reg, m.ReqTotal)
	m.ReqDur = mustRegister(reg, m.ReqDur)
	m.Computations = mustRegister(reg, m.Computations)
	m.Syncs = mustRegister(reg, m.Syncs)
	m.GuardHits = mustRegister(reg, m.GuardHits)
	m.Conflicts = mustRegister(reg, m.Conflicts)
	return m
}

// Computed counts one breakdown computation.
func (m *Metrics) Computed(source string) {
	if m == nil {
		return
	}
	m.Computations.WithLabelValues(source).Inc()
}

// Sync counts one sync outcome.
func (m *Metrics) Sync(result string, materialsKept bool) {
	if m == nil {
		return
	}
	m.Syncs.WithLabelValues(result).Inc()
	if result == SyncConflict {
		m.Conflicts.Inc()
	}
	if materialsKept {
		m.GuardHits.Inc()
	}
}

// Conflict counts a version conflict outside a sync.
func (m *Metrics) Conflict() {
	if m == nil {
		return
	}
	m.Conflicts.Inc()
}

// Middleware instruments request/response lifecycle with counters and histograms.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := NewStatusRecorder(w)
		start := time.Now()
		next.ServeHTTP(recorder, r)

		route := routePattern(r)
		status := strconv.Itoa(recorder.Status())
		m.ReqTotal.WithLabelValues(r.Method, route, status).Inc()
		m.ReqDur.WithLabelValues(r.Method, route).Observe(DurationMillis(time.Since(start)))
	})
}

// DurationMillis converts a duration to milliseconds for metric observation.
func DurationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func mustRegister[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(fmt.Errorf("register collector: %w", err))
	}
	return c
}
