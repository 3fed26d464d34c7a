package service

import (
	"log/slog"

	"github.com/c360/filestreams/bus"
	"github.com/c360/filestreams/component"
	"github.com/c360/filestreams/metric"
	"github.com/c360/filestreams/natsclient"
	"github.com/c360/filestreams/types"
)

// Dependencies are the shared resources the ComponentManager hands to every
// component it creates.
type Dependencies struct {
	Bus             bus.Bus                 // required
	Stream          bus.Bus                 // JetStream bus, nil unless enabled
	NATSClient      *natsclient.Client      // nil on the memory transport
	MetricsRegistry *metric.MetricsRegistry // optional
	Logger          *slog.Logger
	Platform        types.PlatformMeta
}

// componentDependencies builds the per-instance dependency set. The
// registry fills in the instance name.
func (d Dependencies) componentDependencies(logger *slog.Logger) component.Dependencies {
	return component.Dependencies{
		Bus:             d.Bus,
		Stream:          d.Stream,
		NATSClient:      d.NATSClient,
		MetricsRegistry: d.MetricsRegistry,
		Logger:          logger,
		Platform:        d.Platform,
	}
}
