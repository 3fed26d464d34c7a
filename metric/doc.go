// Package metric provides Prometheus-based metrics collection and an HTTP
// server for filestreams monitoring.
//
// MetricsRegistry wraps a private prometheus.Registry holding the core
// platform metrics (component status, bus traffic, NATS connection state)
// plus Go runtime and process collectors. Components register their own
// collectors under a service name:
//
//	counter := prometheus.NewCounter(prometheus.CounterOpts{
//	    Namespace: "filestreams",
//	    Subsystem: "file_sink",
//	    Name:      "messages_written_total",
//	    Help:      "Messages written to disk",
//	})
//	if err := registry.RegisterCounter("file-sink", "messages_written", counter); err != nil {
//	    return err
//	}
//
// Server exposes the registry at /metrics and an aggregated component
// health document at /health.
package metric
