// Package metrics exposes client-side Prometheus collectors.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/synheart/wardwatch/internal/models"
)

const namespace = "wardwatch"

var connectionStates = []models.ConnectionState{
	models.StateConnecting,
	models.StateConnected,
	models.StateReconnecting,
	models.StateClosed,
}

// Metrics holds the collectors of one client, registered on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	messages        *prometheus.CounterVec
	dropped         *prometheus.CounterVec
	reconnects      prometheus.Counter
	reconnectDelay  prometheus.Histogram
	connection      *prometheus.GaugeVec
	alerts          *prometheus.CounterVec
	duplicates      prometheus.Counter
	suppressed      prometheus.Counter
	acknowledgments *prometheus.CounterVec
	pollFailures    prometheus.Counter
	unacknowledged  prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		messages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_messages_total",
			Help:      "Decoded stream messages by kind",
		}, []string{"kind"}),
		dropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_messages_dropped_total",
			Help:      "Stream messages dropped before routing",
		}, []string{"reason"}),
		reconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_reconnects_total",
			Help:      "Reconnect attempts scheduled",
		}),
		reconnectDelay: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stream_reconnect_delay_seconds",
			Help:      "Backoff delay of scheduled reconnects",
			Buckets:   []float64{1, 2, 4, 8, 16, 32},
		}),
		connection: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_connection_state",
			Help:      "1 for the current connection state, 0 otherwise",
		}, []string{"state"}),
		alerts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_routed_total",
			Help:      "Alerts shown, by severity and route (modal or toast)",
		}, []string{"severity", "route"}),
		duplicates: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_duplicate_total",
			Help:      "Redelivered alerts ignored",
		}),
		suppressed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_suppressed_total",
			Help:      "Alerts not escalated because of the signed-in role",
		}),
		acknowledgments: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_acknowledgments_total",
			Help:      "Acknowledgment requests by outcome",
		}, []string{"outcome"}),
		pollFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vitals_poll_failures_total",
			Help:      "Failed patient vitals fetches",
		}),
		unacknowledged: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alerts_unacknowledged",
			Help:      "Current value of the alert badge",
		}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) FrameReceived(kind models.Kind) {
	m.messages.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) FrameDropped(reason string) {
	m.dropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) StateChanged(state models.ConnectionState) {
	for _, s := range connectionStates {
		v := 0.0
		if s == state {
			v = 1
		}
		m.connection.WithLabelValues(string(s)).Set(v)
	}
}

func (m *Metrics) ReconnectScheduled(attempt int, delay time.Duration) {
	m.reconnects.Inc()
	m.reconnectDelay.Observe(delay.Seconds())
}

func (m *Metrics) AlertRouted(severity models.Severity, route string) {
	m.alerts.WithLabelValues(string(severity), route).Inc()
}

func (m *Metrics) AlertsDuplicated(n int) {
	m.duplicates.Add(float64(n))
}

func (m *Metrics) AlertsSuppressed(n int) {
	m.suppressed.Add(float64(n))
}

func (m *Metrics) Acknowledged(outcome string) {
	m.acknowledgments.WithLabelValues(outcome).Inc()
}

func (m *Metrics) PollFailed() {
	m.pollFailures.Inc()
}

// CountChanged tracks the alert badge; wire it to the count store.
func (m *Metrics) CountChanged(n int) {
	m.unacknowledged.Set(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
