package file

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/filestreams/bus"
	"github.com/c360/filestreams/component"
	"github.com/c360/filestreams/errors"
	"github.com/c360/filestreams/message"
	"github.com/c360/filestreams/pkg/retry"
	"github.com/c360/filestreams/pkg/worker"
)

// ComponentName is the factory name of the file sink
const ComponentName = "file-sink"

// Sink writes every message received on its input ports to a file
type Sink struct {
	name   string
	config Config
	deps   component.Dependencies
	logger *slog.Logger

	inputs   []component.Port
	resolver *Resolver
	writer   *Writer
	retry    retry.Config
	metrics  *Metrics

	// Lifecycle management
	mu            sync.Mutex
	initialized   bool
	running       atomic.Bool
	detached      atomic.Bool
	stopped       chan struct{}
	subscriptions []bus.Subscription
	pool          atomic.Pointer[worker.Pool[*message.Message]]
	startTime     time.Time

	// Counters (atomic for thread safety)
	messagesWritten  atomic.Int64
	bytesWritten     atomic.Int64
	resolutionErrors atomic.Int64
	writeErrors      atomic.Int64
	lastActivity     atomic.Value // time.Time
	lastError        atomic.Value // string
}

var _ component.Discoverable = (*Sink)(nil)
var _ component.LifecycleComponent = (*Sink)(nil)

var sinkSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// New creates a file sink from an already validated config
func New(name string, cfg Config, deps component.Dependencies) *Sink {
	if name == "" {
		name = ComponentName
	}

	var inputs []component.Port
	if cfg.Ports != nil {
		for _, def := range cfg.Ports.Inputs {
			inputs = append(inputs, component.BuildPortFromDefinition(def, component.DirectionInput))
		}
	}

	rc := retry.DefaultConfig()
	rc.Retryable = errors.IsTransient

	s := &Sink{
		name:      name,
		config:    cfg,
		deps:      deps,
		logger:    deps.GetLoggerWithComponent(name),
		inputs:    inputs,
		retry:     rc,
		metrics:   newMetrics(deps.MetricsRegistry, name),
		startTime: time.Now(),
	}
	s.lastActivity.Store(time.Time{})
	s.lastError.Store("")
	return s
}

// NewSink is the component factory for "file-sink"
func NewSink(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	cfg := DefaultConfig()
	if err := component.SafeUnmarshal(rawConfig, &cfg); err != nil {
		return nil, errors.Wrap(err, "file-sink-factory", "create", "config parsing")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "file-sink-factory", "create", "config validation")
	}
	return New(deps.InstanceName(ComponentName), cfg, deps), nil
}

// Register registers the file sink with the component registry
func Register(registry *component.Registry) error {
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        ComponentName,
		Factory:     NewSink,
		Schema:      sinkSchema,
		Type:        "output",
		Protocol:    "file",
		Domain:      "storage",
		Description: "Writes each message to a file named statically or by expression",
		Version:     "1.0.0",
	})
}

// Meta returns the component metadata
func (s *Sink) Meta() component.Metadata {
	return component.Metadata{
		Name:        s.name,
		Type:        "output",
		Description: fmt.Sprintf("File sink writing in %s mode", s.config.Mode),
		Version:     "1.0.0",
	}
}

// InputPorts returns the subjects the sink consumes
func (s *Sink) InputPorts() []component.Port {
	return s.inputs
}

// OutputPorts returns the target directory
func (s *Sink) OutputPorts() []component.Port {
	path := s.config.Directory
	if path == "" && s.config.DirectoryExpression == "" {
		path = DefaultDirectory()
	}
	pattern := s.config.Name
	if pattern == "" {
		pattern = s.config.NameExpression
	}
	return []component.Port{
		{
			Name:        "files",
			Direction:   component.DirectionOutput,
			Description: "Files written by the sink",
			Config:      component.FilePort{Path: path, Pattern: pattern},
		},
	}
}

// ConfigSchema returns the configuration schema
func (s *Sink) ConfigSchema() component.ConfigSchema {
	return sinkSchema
}

// Health reports the sink healthy while it is subscribed. Subscriptions
// end with the Start context, so a sink whose context is done is unhealthy
// even before Stop.
func (s *Sink) Health() component.HealthStatus {
	lastError, _ := s.lastError.Load().(string)
	return component.HealthStatus{
		Healthy:    s.running.Load() && !s.detached.Load(),
		LastCheck:  time.Now(),
		ErrorCount: int(s.resolutionErrors.Load() + s.writeErrors.Load()),
		LastError:  lastError,
		Uptime:     time.Since(s.startTime),
	}
}

// DataFlow returns throughput since start
func (s *Sink) DataFlow() component.FlowMetrics {
	written := s.messagesWritten.Load()
	bytes := s.bytesWritten.Load()
	errorCount := s.resolutionErrors.Load() + s.writeErrors.Load()
	lastActivity, _ := s.lastActivity.Load().(time.Time)

	var messagesPerSecond, bytesPerSecond, errorRate float64
	if uptime := time.Since(s.startTime).Seconds(); uptime > 0 {
		messagesPerSecond = float64(written) / uptime
		bytesPerSecond = float64(bytes) / uptime
	}
	if total := written + errorCount; total > 0 {
		errorRate = float64(errorCount) / float64(total)
	}

	return component.FlowMetrics{
		MessagesPerSecond: messagesPerSecond,
		BytesPerSecond:    bytesPerSecond,
		ErrorRate:         errorRate,
		LastActivity:      lastActivity,
	}
}

// Stats returns the number of messages written and dropped so far
func (s *Sink) Stats() (written, resolutionErrors, writeErrors int64) {
	return s.messagesWritten.Load(), s.resolutionErrors.Load(), s.writeErrors.Load()
}

// Initialize validates the configuration and compiles expressions
func (s *Sink) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.config.Validate(); err != nil {
		return errors.Wrap(err, ComponentName, "Initialize", "config validation")
	}
	if len(s.inputs) == 0 {
		return errors.WrapInvalid(fmt.Errorf("no input port configured"),
			ComponentName, "Initialize", "port validation")
	}
	for _, port := range s.inputs {
		if s.deps.BusFor(port) == nil {
			return errors.WrapInvalid(fmt.Errorf("no bus for port %s", port.Name),
				ComponentName, "Initialize", "bus validation")
		}
	}

	resolver, err := NewResolver(s.config, nil)
	if err != nil {
		return errors.Wrap(err, ComponentName, "Initialize", "expression compilation")
	}
	s.resolver = resolver
	s.writer = NewWriter(s.config.Mode, s.config.Binary, s.config.lineSeparator())

	s.initialized = true
	return nil
}

// Start subscribes to every input port
func (s *Sink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return errors.WrapTransient(err, ComponentName, "Start", "context check")
	}
	if !s.initialized {
		return errors.WrapFatal(fmt.Errorf("component not initialized"), ComponentName, "Start", "state check")
	}
	if s.running.Load() {
		if !s.detached.Load() {
			return errors.WrapInvalid(errors.ErrAlreadyStarted, ComponentName, "Start", "state check")
		}
		// previous context ended without Stop
		_ = s.releaseLocked(time.Second)
	}

	handler := s.handle
	if s.config.Workers > 0 {
		pool := worker.NewPool(s.config.Workers, s.config.QueueSize, s.handle,
			worker.WithMetricsRegistry[*message.Message](s.deps.MetricsRegistry, "file_sink_"+strings.ReplaceAll(s.name, "-", "_")+"_pool"),
			worker.WithErrorHandler(func(msg *message.Message, err error) {
				s.logger.Debug("Pooled write failed", "message_id", msg.ID(), "error", err)
			}))
		if err := pool.Start(ctx); err != nil {
			return errors.WrapTransient(err, ComponentName, "Start", "worker pool start")
		}
		s.pool.Store(pool)
		handler = s.submit
	}

	for _, port := range s.inputs {
		sub, err := s.deps.BusFor(port).Subscribe(ctx, port.Subject(), handler, subscribeOptions(s.name, port)...)
		if err != nil {
			s.unsubscribeLocked()
			s.stopPoolLocked(time.Second)
			return errors.WrapTransient(err, ComponentName, "Start", "subscribe to "+port.Subject())
		}
		s.subscriptions = append(s.subscriptions, sub)
	}

	s.startTime = time.Now()
	s.stopped = make(chan struct{})
	s.detached.Store(false)
	s.running.Store(true)
	go s.watchContext(ctx, s.stopped)

	s.logger.Info("File sink started",
		"inputs", len(s.inputs),
		"mode", s.config.Mode,
		"binary", s.config.Binary,
		"workers", s.config.Workers)
	return nil
}

func subscribeOptions(name string, port component.Port) []bus.SubscribeOption {
	switch cfg := port.Config.(type) {
	case component.NATSPort:
		if cfg.Queue != "" {
			return []bus.SubscribeOption{bus.WithQueue(cfg.Queue)}
		}
	case component.JetStreamPort:
		opts := []bus.SubscribeOption{bus.WithDurable(cfg.ConsumerName)}
		if cfg.ConsumerName == "" {
			opts[0] = bus.WithDurable(bus.DurableName(name, port.Subject()))
		}
		if cfg.StreamName != "" {
			opts = append(opts, bus.WithStream(cfg.StreamName))
		}
		return opts
	}
	return nil
}

// Stop unsubscribes and lets pooled writes drain until timeout
func (s *Sink) Stop(timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return nil
	}
	if err := s.releaseLocked(timeout); err != nil {
		return errors.WrapTransient(err, ComponentName, "Stop", "drain worker pool")
	}

	s.logger.Info("File sink stopped")
	return nil
}

// releaseLocked ends the current run: subscriptions, pool and context watch
func (s *Sink) releaseLocked(timeout time.Duration) error {
	s.running.Store(false)
	if s.stopped != nil {
		close(s.stopped)
		s.stopped = nil
	}
	s.unsubscribeLocked()
	return s.stopPoolLocked(timeout)
}

// watchContext marks the sink detached once ctx ends before Stop
func (s *Sink) watchContext(ctx context.Context, stopped chan struct{}) {
	select {
	case <-stopped:
	case <-ctx.Done():
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.stopped != stopped {
			return
		}
		s.detached.Store(true)
		s.logger.Warn("File sink context ended, no longer receiving messages", "error", ctx.Err())
	}
}

func (s *Sink) unsubscribeLocked() {
	for _, sub := range s.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			s.logger.Warn("Failed to unsubscribe", "subject", sub.Subject(), "error", err)
		}
	}
	s.subscriptions = nil
}

func (s *Sink) stopPoolLocked(timeout time.Duration) error {
	pool := s.pool.Swap(nil)
	if pool == nil {
		return nil
	}
	return pool.Stop(timeout)
}

// submit hands msg to the worker pool, blocking while the queue is full
func (s *Sink) submit(ctx context.Context, msg *message.Message) error {
	pool := s.pool.Load()
	if pool == nil {
		return errors.WrapTransient(errors.ErrNotStarted, ComponentName, "submit", "worker pool check")
	}
	if err := pool.SubmitWait(ctx, msg); err != nil {
		return errors.WrapTransient(err, ComponentName, "submit", "queue message")
	}
	return nil
}

// handle resolves and writes one message. Resolution failures drop the
// message; write failures are returned so the transport can redeliver.
func (s *Sink) handle(ctx context.Context, msg *message.Message) error {
	target, err := s.resolver.Resolve(msg)
	if err != nil {
		s.resolutionErrors.Add(1)
		s.lastError.Store(err.Error())
		if s.metrics != nil {
			s.metrics.resolutionErrors.Inc()
		}
		s.logger.Warn("Dropping message with unresolvable target", "message_id", msg.ID(), "error", err)
		return nil
	}

	start := time.Now()
	n, err := retry.DoWithResult(ctx, s.retry, func() (int64, error) {
		return s.writer.Write(target, msg)
	})
	if err != nil {
		s.writeErrors.Add(1)
		s.lastError.Store(err.Error())
		if s.metrics != nil {
			s.metrics.writeErrors.Inc()
		}
		s.logger.Error("Failed to write message", "message_id", msg.ID(), "path", target.Path(), "error", err)
		return err
	}

	s.messagesWritten.Add(1)
	s.bytesWritten.Add(n)
	s.lastActivity.Store(time.Now())
	if s.metrics != nil {
		s.metrics.messagesWritten.Inc()
		s.metrics.bytesWritten.Add(float64(n))
		s.metrics.writeDuration.Observe(time.Since(start).Seconds())
	}
	s.logger.Debug("Wrote message", "message_id", msg.ID(), "path", target.Path(), "bytes", n)
	return nil
}
