package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360/filestreams/bus"
	"github.com/c360/filestreams/component"
	"github.com/c360/filestreams/componentregistry"
	"github.com/c360/filestreams/config"
	"github.com/c360/filestreams/metric"
	"github.com/c360/filestreams/natsclient"
	"github.com/c360/filestreams/service"
	"github.com/c360/filestreams/types"
)

// loadConfig merges path, when set, over the defaults and applies
// FILESTREAMS_* environment overrides
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader.AddLayer(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newComponentRegistry() (*component.Registry, error) {
	registry := component.NewRegistry()
	if err := componentregistry.Register(registry); err != nil {
		return nil, fmt.Errorf("register components: %w", err)
	}
	slog.Debug("Component factories registered", "count", len(registry.ListFactories()))
	return registry, nil
}

// connectTransport builds the buses named by cfg.Platform.Transport. The
// returned close function releases the NATS connection, if any.
func connectTransport(
	ctx context.Context, cfg *config.Config, metricsRegistry *metric.MetricsRegistry, logger *slog.Logger,
) (service.Dependencies, func(context.Context) error, error) {
	deps := service.Dependencies{
		MetricsRegistry: metricsRegistry,
		Logger:          logger,
		Platform: types.PlatformMeta{
			ID:        cfg.Platform.ID,
			Transport: cfg.Platform.Transport,
		},
	}
	core := metricsRegistry.CoreMetrics()

	if cfg.Platform.Transport != config.TransportNATS {
		deps.Bus = bus.NewMemory(bus.WithMemoryLogger(logger), bus.WithMemoryMetrics(core))
		return deps, func(context.Context) error { return nil }, nil
	}

	opts := []natsclient.ClientOption{
		natsclient.WithLogger(logger),
		natsclient.WithName(appName + "-" + cfg.Platform.ID),
		natsclient.WithMaxReconnects(cfg.NATS.MaxReconnects),
		natsclient.WithMetrics(core),
	}
	if cfg.NATS.ReconnectWait > 0 {
		opts = append(opts, natsclient.WithReconnectWait(cfg.NATS.ReconnectWait))
	}
	if cfg.NATS.Username != "" {
		opts = append(opts, natsclient.WithCredentials(cfg.NATS.Username, cfg.NATS.Password))
	}
	if cfg.NATS.Token != "" {
		opts = append(opts, natsclient.WithToken(cfg.NATS.Token))
	}

	client, err := natsclient.NewClient(cfg.NATS.URL(), opts...)
	if err != nil {
		return deps, nil, fmt.Errorf("create NATS client: %w", err)
	}

	slog.Info("Connecting to NATS", "url", cfg.NATS.URL())
	if err := client.Connect(ctx); err != nil {
		return deps, nil, fmt.Errorf("connect to NATS: %w", err)
	}
	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.WaitForConnection(connCtx); err != nil {
		_ = client.Close(context.Background())
		return deps, nil, fmt.Errorf("NATS connection timeout: %w", err)
	}

	deps.NATSClient = client
	deps.Bus = bus.NewNATS(client, bus.WithNATSLogger(logger), bus.WithNATSMetrics(core))

	if cfg.NATS.JetStream.Enabled {
		js := bus.NewJetStream(client, cfg.NATS.JetStream.Stream,
			bus.WithJetStreamLogger(logger), bus.WithJetStreamMetrics(core))
		if err := js.Setup(ctx); err != nil {
			_ = client.Close(context.Background())
			return deps, nil, fmt.Errorf("set up JetStream: %w", err)
		}
		deps.Stream = js
	}

	return deps, client.Close, nil
}
