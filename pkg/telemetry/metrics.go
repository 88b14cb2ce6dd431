package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	statusOK    = "ok"
	statusError = "error"
	kindOther   = "other"
)

var durationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}

// Metrics holds the store collectors on a private registry. A disabled
// Metrics accepts every call and records nothing.
type Metrics struct {
	cfg      MetricsConfig
	registry *prometheus.Registry

	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
	failures *prometheus.CounterVec
	records  prometheus.Gauge
}

func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	m := &Metrics{cfg: cfg}
	if !cfg.Enabled {
		return m, nil
	}

	m.registry = prometheus.NewRegistry()
	f := promauto.With(m.registry)
	ns := cfg.Namespace

	m.ops = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "store_operations_total",
		Help:      "Store operations by name and outcome.",
	}, []string{"operation", "status"})

	m.duration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "store_operation_duration_seconds",
		Help:      "Store operation latency.",
		Buckets:   durationBuckets,
	}, []string{"operation"})

	m.failures = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "store_errors_total",
		Help:      "Failed store operations by error kind.",
	}, []string{"kind"})

	m.records = f.NewGauge(prometheus.GaugeOpts{
		Namespace: ns,
		Name:      "records",
		Help:      "Records returned by the most recent list.",
	})

	return m, nil
}

func (m *Metrics) enabled() bool { return m != nil && m.registry != nil }

// RecordOperation counts one finished operation and observes its latency.
func (m *Metrics) RecordOperation(operation string, d time.Duration, err error) {
	if !m.enabled() {
		return
	}
	status := statusOK
	if err != nil {
		status = statusError
	}
	m.ops.WithLabelValues(operation, status).Inc()
	m.duration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordError counts a failure by kind. An empty kind counts as "other".
func (m *Metrics) RecordError(kind string) {
	if !m.enabled() {
		return
	}
	if kind == "" {
		kind = kindOther
	}
	m.failures.WithLabelValues(kind).Inc()
}

func (m *Metrics) SetRecordCount(n int) {
	if m.enabled() {
		m.records.Set(float64(n))
	}
}

// Registry returns the private registry, nil when disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry, or 404 when disabled.
func (m *Metrics) Handler() http.Handler {
	if !m.enabled() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// StartMetricsServer serves Handler on the configured address until the
// returned stop func is called. A listen failure is sent on errc.
func (m *Metrics) StartMetricsServer(errc chan<- error) (stop func(context.Context) error) {
	if !m.enabled() {
		return func(context.Context) error { return nil }
	}

	path := m.cfg.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	srv := &http.Server{
		Addr:              m.cfg.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) && errc != nil {
			errc <- err
		}
	}()
	return srv.Shutdown
}
