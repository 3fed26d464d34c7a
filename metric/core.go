package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains platform-level metrics shared by all components
type Metrics struct {
	ComponentStatus   *prometheus.GaugeVec
	MessagesPublished *prometheus.CounterVec
	MessagesDelivered *prometheus.CounterVec
	DeliveryErrors    *prometheus.CounterVec
	NATSConnected     prometheus.Gauge
	NATSReconnects    prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all platform metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ComponentStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "filestreams",
				Subsystem: "component",
				Name:      "status",
				Help:      "Component status (0=stopped, 1=initialized, 2=running, 3=failed)",
			},
			[]string{"component"},
		),
		MessagesPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "filestreams",
				Subsystem: "bus",
				Name:      "published_total",
				Help:      "Messages published to the bus",
			},
			[]string{"transport", "subject"},
		),
		MessagesDelivered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "filestreams",
				Subsystem: "bus",
				Name:      "delivered_total",
				Help:      "Messages delivered to subscribers",
			},
			[]string{"transport", "subject"},
		),
		DeliveryErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "filestreams",
				Subsystem: "bus",
				Name:      "delivery_errors_total",
				Help:      "Messages whose handler returned an error",
			},
			[]string{"transport", "subject"},
		),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "filestreams",
			Subsystem: "nats",
			Name:      "connected",
			Help:      "NATS connection status (1=connected, 0=disconnected)",
		}),
		NATSReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "filestreams",
			Subsystem: "nats",
			Name:      "reconnects_total",
			Help:      "Total NATS reconnection events",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ComponentStatus,
		m.MessagesPublished,
		m.MessagesDelivered,
		m.DeliveryErrors,
		m.NATSConnected,
		m.NATSReconnects,
	}
}

// RecordComponentStatus records a component state transition
func (m *Metrics) RecordComponentStatus(component string, status int) {
	m.ComponentStatus.WithLabelValues(component).Set(float64(status))
}

// RecordPublished counts a message published on subject
func (m *Metrics) RecordPublished(transport, subject string) {
	m.MessagesPublished.WithLabelValues(transport, subject).Inc()
}

// RecordDelivered counts a message handed to a subscriber, and the handler
// error if there was one
func (m *Metrics) RecordDelivered(transport, subject string, err error) {
	m.MessagesDelivered.WithLabelValues(transport, subject).Inc()
	if err != nil {
		m.DeliveryErrors.WithLabelValues(transport, subject).Inc()
	}
}

// RecordNATSStatus records the NATS connection state
func (m *Metrics) RecordNATSStatus(connected bool) {
	if connected {
		m.NATSConnected.Set(1)
		return
	}
	m.NATSConnected.Set(0)
}

// RecordNATSReconnect counts a NATS reconnection
func (m *Metrics) RecordNATSReconnect() {
	m.NATSReconnects.Inc()
}
