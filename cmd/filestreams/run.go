package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/c360/filestreams/component/flowgraph"
	"github.com/c360/filestreams/metric"
	"github.com/c360/filestreams/service"
)

func newRunCmd(opts *globalOptions) *cobra.Command {
	var shutdownTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configured components until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runComponents(cmd.Context(), opts.ConfigPath, shutdownTimeout)
		},
	}
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout",
		getEnvDuration("FILESTREAMS_SHUTDOWN_TIMEOUT", 30*time.Second),
		"Graceful shutdown timeout (env: FILESTREAMS_SHUTDOWN_TIMEOUT)")
	return cmd
}

// runComponents starts every enabled component and blocks until ctx is
// cancelled or the metrics server fails
func runComponents(ctx context.Context, configPath string, shutdownTimeout time.Duration) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger := slog.Default()
	logger.Info("Starting filestreams",
		"build_time", BuildTime,
		"platform", cfg.Platform.ID,
		"transport", cfg.Platform.Transport,
		"components", len(cfg.EnabledComponents()))

	registry, err := newComponentRegistry()
	if err != nil {
		return err
	}

	metricsRegistry := metric.NewMetricsRegistry()
	deps, closeTransport, err := connectTransport(ctx, cfg, metricsRegistry, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeTransport(context.Background()); err != nil {
			logger.Warn("Failed to close transport", "error", err)
		}
	}()

	cm, err := service.NewComponentManager(registry, cfg.Components, deps)
	if err != nil {
		return err
	}
	if err := cm.Initialize(); err != nil {
		return err
	}
	logFlowWarnings(logger, cm.ValidateFlowConnectivity())

	// Components outlive the signal context; cm.Stop ends them gracefully.
	if err := cm.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	logger.Info("filestreams started", "order", cm.StartOrder())

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Metrics.Port > 0 {
		server := metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, metricsRegistry, cm.Health)
		cm.RegisterHTTPHandlers("/api", server)

		g.Go(server.Start)
		g.Go(func() error {
			<-gctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Stop(stopCtx)
		})
		logger.Info("Metrics server listening", "address", server.Address())
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	runErr := g.Wait()
	logger.Info("Shutting down", "timeout", shutdownTimeout)

	stopErr := cm.Stop(shutdownTimeout)
	if err := errors.Join(runErr, stopErr); err != nil {
		return err
	}
	logger.Info("filestreams shutdown complete")
	return nil
}

func logFlowWarnings(logger *slog.Logger, result *flowgraph.FlowAnalysisResult) {
	if result.ValidationStatus == flowgraph.StatusHealthy {
		return
	}
	for _, node := range result.DisconnectedNodes {
		logger.Warn("Component is not connected", "component", node.ComponentName, "issue", node.Issue)
	}
	for _, port := range result.OrphanedPorts {
		if port.Required {
			logger.Warn("Required port has no peer",
				"component", port.ComponentName, "port", port.PortName, "subject", port.ConnectionID, "issue", port.Issue)
		}
	}
}
