package wstask

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "wstask").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus collectors.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "wstask",
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the collectors shared by every connection of the services using it.
// A nil *Metrics records nothing.
type Metrics struct {
	framesSent      *prometheus.CounterVec
	framesReceived  *prometheus.CounterVec
	framesMalformed prometheus.Counter
	framesRejected  *prometheus.CounterVec
	framesQueued    prometheus.Gauge
	lifecycleEvents *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors.
//
// Metrics collected:
//   - wstask_frames_sent_total: frames handed to the transport, by kind
//   - wstask_frames_received_total: inbound frames delivered, by kind
//   - wstask_frames_malformed_total: inbound frames rejected by the codec
//   - wstask_frames_rejected_total: submissions refused, by reason
//   - wstask_frames_queued: frames waiting for the connection to open
//   - wstask_lifecycle_events_total: events delivered to handlers, by kind
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		framesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "frames_sent_total",
			Help:        "Total number of frames handed to the transport",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		framesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "frames_received_total",
			Help:        "Total number of inbound frames delivered",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		framesMalformed: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "frames_malformed_total",
			Help:        "Total number of inbound frames rejected by the codec",
			ConstLabels: config.ConstLabels,
		}),

		framesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "frames_rejected_total",
			Help:        "Total number of outbound submissions refused",
			ConstLabels: config.ConstLabels,
		}, []string{"reason"}),

		framesQueued: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "frames_queued",
			Help:        "Number of frames waiting for the connection to open",
			ConstLabels: config.ConstLabels,
		}),

		lifecycleEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "lifecycle_events_total",
			Help:        "Total number of events delivered to handlers",
			ConstLabels: config.ConstLabels,
		}, []string{"event"}),
	}
}

func (m *Metrics) frameSent(kind FrameKind) {
	if m == nil {
		return
	}
	m.framesSent.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) frameReceived(kind FrameKind) {
	if m == nil {
		return
	}
	m.framesReceived.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) frameMalformed() {
	if m == nil {
		return
	}
	m.framesMalformed.Inc()
}

func (m *Metrics) frameRejected(reason string) {
	if m == nil {
		return
	}
	m.framesRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) queued(delta int) {
	if m == nil {
		return
	}
	m.framesQueued.Add(float64(delta))
}

func (m *Metrics) lifecycleEvent(kind EventKind) {
	if m == nil {
		return
	}
	m.lifecycleEvents.WithLabelValues(kind.String()).Inc()
}
