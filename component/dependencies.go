package component

import (
	"log/slog"

	"github.com/c360/filestreams/bus"
	"github.com/c360/filestreams/metric"
	"github.com/c360/filestreams/natsclient"
	"github.com/c360/filestreams/types"
)

// PlatformMeta provides platform identity to components.
// Type alias to avoid import cycles while maintaining compatibility.
type PlatformMeta = types.PlatformMeta

// Dependencies provides all external dependencies needed by components.
type Dependencies struct {
	Name            string                  // Instance name, set by Registry.CreateComponent
	Bus             bus.Bus                 // Message bus for nats ports (required)
	Stream          bus.Bus                 // JetStream bus for jetstream ports (nil on the memory transport)
	NATSClient      *natsclient.Client      // NATS client for KV access (nil on the memory transport)
	MetricsRegistry *metric.MetricsRegistry // Metrics registry for Prometheus (can be nil)
	Logger          *slog.Logger            // Structured logger (can be nil, defaults to slog.Default())
	Platform        PlatformMeta            // Platform identity
}

// GetLogger returns the configured logger or a default logger if none is provided
func (d *Dependencies) GetLogger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// InstanceName returns Name, or fallback when it is unset
func (d *Dependencies) InstanceName(fallback string) string {
	if d.Name != "" {
		return d.Name
	}
	return fallback
}

// GetLoggerWithComponent returns a logger configured with component context
func (d *Dependencies) GetLoggerWithComponent(componentName string) *slog.Logger {
	return d.GetLogger().With("component", componentName)
}

// BusFor returns the bus serving port. JetStream ports use Stream when it is
// configured and fall back to Bus otherwise.
func (d *Dependencies) BusFor(port Port) bus.Bus {
	if port.Config != nil && port.Config.Type() == PortTypeJetStream && d.Stream != nil {
		return d.Stream
	}
	return d.Bus
}
