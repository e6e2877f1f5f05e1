package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "netprobe"

// Metrics holds the agent's Prometheus collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	Cycles           prometheus.Counter
	SnapshotErrors   prometheus.Counter
	SnapshotRecords  prometheus.Gauge
	ServingRecords   prometheus.Gauge
	TrackedConns     prometheus.Gauge
	Emits            *prometheus.CounterVec
	CycleDurationSec prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Number of completed tracking cycles.",
		}),
		SnapshotErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_errors_total",
			Help:      "Number of cycles whose socket snapshot failed.",
		}),
		SnapshotRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_records",
			Help:      "Sockets in the last raw snapshot.",
		}),
		ServingRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "serving_records",
			Help:      "Serving sockets in the last snapshot.",
		}),
		TrackedConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_connections",
			Help:      "Serving sockets accumulated since start.",
		}),
		Emits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emit_total",
			Help:      "State emissions by emitter and result.",
		}, []string{"emitter", "result"}),
		CycleDurationSec: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Time spent in snapshot, filter and reconcile.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
	m.Registry.MustRegister(
		m.Cycles,
		m.SnapshotErrors,
		m.SnapshotRecords,
		m.ServingRecords,
		m.TrackedConns,
		m.Emits,
		m.CycleDurationSec,
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveEmit implements output.Recorder.
func (m *Metrics) ObserveEmit(emitter, result string) {
	m.Emits.WithLabelValues(emitter, result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
