package file

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/filestreams/metric"
)

// Metrics holds Prometheus metrics for the file sink
type Metrics struct {
	messagesWritten  prometheus.Counter
	bytesWritten     prometheus.Counter
	resolutionErrors prometheus.Counter
	writeErrors      prometheus.Counter
	writeDuration    prometheus.Histogram
}

func newMetrics(registry *metric.MetricsRegistry, name string) *Metrics {
	if registry == nil {
		return nil
	}

	labels := prometheus.Labels{"component": name}
	m := &Metrics{
		messagesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "filestreams",
			Subsystem:   "file_sink",
			Name:        "messages_written_total",
			Help:        "Messages written to files",
			ConstLabels: labels,
		}),
		bytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "filestreams",
			Subsystem:   "file_sink",
			Name:        "bytes_written_total",
			Help:        "Bytes written to files",
			ConstLabels: labels,
		}),
		resolutionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "filestreams",
			Subsystem:   "file_sink",
			Name:        "resolution_errors_total",
			Help:        "Messages dropped because no target could be resolved",
			ConstLabels: labels,
		}),
		writeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "filestreams",
			Subsystem:   "file_sink",
			Name:        "write_errors_total",
			Help:        "Messages that could not be written",
			ConstLabels: labels,
		}),
		writeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "filestreams",
			Subsystem:   "file_sink",
			Name:        "write_duration_seconds",
			Help:        "Duration of successful writes including retries",
			Buckets:     []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			ConstLabels: labels,
		}),
	}

	serviceName := "file_sink_" + name
	registry.RegisterCounter(serviceName, "messages_written", m.messagesWritten)
	registry.RegisterCounter(serviceName, "bytes_written", m.bytesWritten)
	registry.RegisterCounter(serviceName, "resolution_errors", m.resolutionErrors)
	registry.RegisterCounter(serviceName, "write_errors", m.writeErrors)
	registry.RegisterHistogram(serviceName, "write_duration", m.writeDuration)

	return m
}
