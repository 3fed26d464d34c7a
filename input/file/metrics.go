package file

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/filestreams/metric"
)

// Metrics holds Prometheus metrics for the file source
type Metrics struct {
	filesDiscovered prometheus.Counter
	messagesEmitted prometheus.Counter
	splitErrors     prometheus.Counter
	discoveryErrors prometheus.Counter
	pollDuration    prometheus.Histogram
}

// newMetrics creates and registers source metrics. A nil registry disables
// metrics.
func newMetrics(registry *metric.MetricsRegistry, name string) *Metrics {
	if registry == nil {
		return nil
	}

	labels := prometheus.Labels{"component": name}
	m := &Metrics{
		filesDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "filestreams",
			Subsystem:   "file_source",
			Name:        "files_discovered_total",
			Help:        "Files discovered by poll cycles",
			ConstLabels: labels,
		}),
		messagesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "filestreams",
			Subsystem:   "file_source",
			Name:        "messages_emitted_total",
			Help:        "Messages published from discovered files",
			ConstLabels: labels,
		}),
		splitErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "filestreams",
			Subsystem:   "file_source",
			Name:        "split_errors_total",
			Help:        "Files that could not be turned into messages",
			ConstLabels: labels,
		}),
		discoveryErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "filestreams",
			Subsystem:   "file_source",
			Name:        "discovery_errors_total",
			Help:        "Poll cycles that could not list the directory",
			ConstLabels: labels,
		}),
		pollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "filestreams",
			Subsystem:   "file_source",
			Name:        "poll_duration_seconds",
			Help:        "Duration of complete poll cycles",
			Buckets:     []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			ConstLabels: labels,
		}),
	}

	serviceName := "file_source_" + name
	registry.RegisterCounter(serviceName, "files_discovered", m.filesDiscovered)
	registry.RegisterCounter(serviceName, "messages_emitted", m.messagesEmitted)
	registry.RegisterCounter(serviceName, "split_errors", m.splitErrors)
	registry.RegisterCounter(serviceName, "discovery_errors", m.discoveryErrors)
	registry.RegisterHistogram(serviceName, "poll_duration", m.pollDuration)

	return m
}
