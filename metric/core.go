package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all framework-level metrics (not service-specific)
type Metrics struct {
	// Feature lifecycle metrics
	FeatureState    *prometheus.GaugeVec
	StartupDuration *prometheus.HistogramVec

	// Event bus metrics
	EventsPublished     *prometheus.CounterVec
	EventsReceived      *prometheus.CounterVec
	PublishErrors       *prometheus.CounterVec
	CallbackErrors      *prometheus.CounterVec
	BusConnected        prometheus.Gauge
	BusReconnects       prometheus.Counter
	ActiveSubscriptions prometheus.Gauge

	// Health metrics
	HealthStatus *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance with all framework metrics
func NewMetrics() *Metrics {
	return &Metrics{
		FeatureState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "brewblox",
				Subsystem: "feature",
				Name:      "state",
				Help:      "Feature lifecycle state (0=unstarted, 1=starting, 2=started, 3=stopping, 4=stopped, 5=failed)",
			},
			[]string{"feature"},
		),

		StartupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "brewblox",
				Subsystem: "feature",
				Name:      "startup_duration_seconds",
				Help:      "Feature startup duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"feature"},
		),

		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "brewblox",
				Subsystem: "eventbus",
				Name:      "published_total",
				Help:      "Total number of events published",
			},
			[]string{"topic"},
		),

		EventsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "brewblox",
				Subsystem: "eventbus",
				Name:      "received_total",
				Help:      "Total number of events received",
			},
			[]string{"topic"},
		),

		PublishErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "brewblox",
				Subsystem: "eventbus",
				Name:      "publish_errors_total",
				Help:      "Total number of failed publish attempts",
			},
			[]string{"topic"},
		),

		CallbackErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "brewblox",
				Subsystem: "eventbus",
				Name:      "callback_errors_total",
				Help:      "Total number of listener callback failures",
			},
			[]string{"filter"},
		),

		BusConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "brewblox",
				Subsystem: "eventbus",
				Name:      "connected",
				Help:      "Event bus connection status (0=disconnected, 1=connected)",
			},
		),

		BusReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "brewblox",
				Subsystem: "eventbus",
				Name:      "reconnects_total",
				Help:      "Total number of event bus reconnections",
			},
		),

		ActiveSubscriptions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "brewblox",
				Subsystem: "eventbus",
				Name:      "subscriptions",
				Help:      "Number of active broker subscriptions",
			},
		),

		HealthStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "brewblox",
				Subsystem: "health",
				Name:      "status",
				Help:      "Health check status (0=unhealthy, 1=healthy)",
			},
			[]string{"feature"},
		),
	}
}

// RecordFeatureState updates the feature state metric
func (c *Metrics) RecordFeatureState(feature string, state int) {
	c.FeatureState.WithLabelValues(feature).Set(float64(state))
}

// RecordStartupDuration records how long a feature startup took
func (c *Metrics) RecordStartupDuration(feature string, duration time.Duration) {
	c.StartupDuration.WithLabelValues(feature).Observe(duration.Seconds())
}

// RecordEventPublished increments the published event counter
func (c *Metrics) RecordEventPublished(topic string) {
	c.EventsPublished.WithLabelValues(topic).Inc()
}

// RecordEventReceived increments the received event counter
func (c *Metrics) RecordEventReceived(topic string) {
	c.EventsReceived.WithLabelValues(topic).Inc()
}

// RecordPublishError increments the publish error counter
func (c *Metrics) RecordPublishError(topic string) {
	c.PublishErrors.WithLabelValues(topic).Inc()
}

// RecordCallbackError increments the listener callback failure counter
func (c *Metrics) RecordCallbackError(filter string) {
	c.CallbackErrors.WithLabelValues(filter).Inc()
}

// RecordBusStatus updates the event bus connection status
func (c *Metrics) RecordBusStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.BusConnected.Set(value)
}

// RecordBusReconnect increments the reconnection counter
func (c *Metrics) RecordBusReconnect() {
	c.BusReconnects.Inc()
}

// RecordSubscriptionCount updates the active subscription gauge
func (c *Metrics) RecordSubscriptionCount(count int) {
	c.ActiveSubscriptions.Set(float64(count))
}

// RecordHealthStatus updates the health check status metric
func (c *Metrics) RecordHealthStatus(feature string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	c.HealthStatus.WithLabelValues(feature).Set(value)
}
