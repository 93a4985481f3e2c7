package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the controller frame loop.
type Metrics struct {
	config MetricsConfig

	framesSent        prometheus.Counter
	frameErrors       prometheus.Counter
	roundTripDuration prometheus.Histogram
	commandsSent      *prometheus.CounterVec
	payloadsReceived  *prometheus.CounterVec
	payloadBytes      prometheus.Counter
	collisionEvents   *prometheus.CounterVec
	audioCommands     prometheus.Counter
	connected         prometheus.Gauge

	registry *prometheus.Registry
	server   *http.Server
}

// NewMetrics creates a new metrics collector with the given configuration.
// When metrics are disabled every recording method is a no-op.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "simbridge"
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		framesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Total number of frames sent to the build",
		}),
		frameErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_errors_total",
			Help:      "Total number of failed round trips",
		}),
		roundTripDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "round_trip_seconds",
			Help:      "Latency of one command/response round trip",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		commandsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Total commands sent, by command type",
		}, []string{"type"}),
		payloadsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payloads_total",
			Help:      "Total output data payloads received, by payload type id",
		}, []string{"type"}),
		payloadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payload_bytes_total",
			Help:      "Total output data bytes received",
		}),
		collisionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collision_events_total",
			Help:      "Collision events observed, by state",
		}, []string{"state"}),
		audioCommands: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_commands_total",
			Help:      "Synthesized audio playback commands sent",
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected",
			Help:      "1 while the controller is connected to a build",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.framesSent, m.frameErrors, m.roundTripDuration, m.commandsSent,
		m.payloadsReceived, m.payloadBytes, m.collisionEvents, m.audioCommands,
		m.connected,
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	return m, nil
}

// RecordFrame records one completed round trip.
func (m *Metrics) RecordFrame(duration time.Duration, err error) {
	if m.registry == nil {
		return
	}
	m.framesSent.Inc()
	if err != nil {
		m.frameErrors.Inc()
		return
	}
	m.roundTripDuration.Observe(duration.Seconds())
}

// RecordCommand counts one sent command by type.
func (m *Metrics) RecordCommand(commandType string) {
	if m.registry == nil {
		return
	}
	m.commandsSent.WithLabelValues(commandType).Inc()
}

// RecordPayload counts one received payload.
func (m *Metrics) RecordPayload(typeID string, size int) {
	if m.registry == nil {
		return
	}
	m.payloadsReceived.WithLabelValues(typeID).Inc()
	m.payloadBytes.Add(float64(size))
}

// RecordCollision counts one collision event by state.
func (m *Metrics) RecordCollision(state string) {
	if m.registry == nil {
		return
	}
	m.collisionEvents.WithLabelValues(state).Inc()
}

// RecordAudioCommand counts one synthesized playback command.
func (m *Metrics) RecordAudioCommand() {
	if m.registry == nil {
		return
	}
	m.audioCommands.Inc()
}

// SetConnected flips the connection gauge.
func (m *Metrics) SetConnected(connected bool) {
	if m.registry == nil {
		return
	}
	if connected {
		m.connected.Set(1)
	} else {
		m.connected.Set(0)
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// StartMetricsServer serves /metrics on the configured address. No-op when
// metrics are disabled or no address is configured.
func (m *Metrics) StartMetricsServer() error {
	if m.registry == nil || m.config.ListenAddress == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	m.server = &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// The caller cannot act on this; the process keeps running
			// without a metrics endpoint.
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()
	return nil
}

// Timer measures an operation's duration.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
