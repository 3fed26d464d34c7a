// Package service runs the configured filestreams components.
//
// The ComponentManager turns the components section of the application
// config into running instances:
//
//	registry := component.NewRegistry()
//	_ = componentregistry.Register(registry)
//
//	cm, err := service.NewComponentManager(registry, cfg.Components, service.Dependencies{
//	    Bus:             bus.NewMemory(),
//	    MetricsRegistry: metric.NewMetricsRegistry(),
//	    Logger:          logger,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := cm.Initialize(); err != nil {
//	    return err
//	}
//	if err := cm.Start(ctx); err != nil {
//	    return err
//	}
//	defer cm.Stop(10 * time.Second)
//
// Outputs start before inputs so that a sink is subscribed before the
// source feeding it publishes anything. Stop runs in reverse: sources stop
// first and sinks finish the messages already delivered to them.
//
// Health has the metric.HealthFunc signature and RegisterHTTPHandlers
// exposes component status and flow validation next to /metrics.
package service
