package file

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"golang.org/x/time/rate"

	"github.com/c360/filestreams/bus"
	"github.com/c360/filestreams/component"
	"github.com/c360/filestreams/errors"
	"github.com/c360/filestreams/message"
	"github.com/c360/filestreams/pkg/retry"
)

// ComponentName is the factory name of the file source
const ComponentName = "file-source"

// Source polls a directory and publishes messages built from new files
type Source struct {
	name   string
	config Config
	deps   component.Dependencies
	logger *slog.Logger

	outputs  []component.Port
	targets  []target
	splitter *Splitter
	seen     SeenStore
	poller   *Poller
	limiter  *rate.Limiter
	retry    retry.Config
	metrics  *Metrics

	// Lifecycle management
	mu          sync.Mutex
	initialized bool
	running     atomic.Bool
	shutdown    chan struct{}
	done        chan struct{}
	abort       context.CancelFunc
	startTime   time.Time

	// Counters (atomic for thread safety)
	filesEmitted     atomic.Int64
	messagesEmitted  atomic.Int64
	bytesEmitted     atomic.Int64
	errorCount       atomic.Int64
	discoveryFailing atomic.Bool
	lastActivity     atomic.Value // time.Time
	lastError        atomic.Value // string
}

type target struct {
	subject   string
	publisher bus.Publisher
}

var _ component.Discoverable = (*Source)(nil)
var _ component.LifecycleComponent = (*Source)(nil)

// sourceSchema is generated once from the Config struct tags
var sourceSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// New creates a file source from an already validated config
func New(name string, cfg Config, deps component.Dependencies) *Source {
	if name == "" {
		name = ComponentName
	}

	var outputs []component.Port
	if cfg.Ports != nil {
		for _, def := range cfg.Ports.Outputs {
			outputs = append(outputs, component.BuildPortFromDefinition(def, component.DirectionOutput))
		}
	}

	rc := retry.DefaultConfig()
	rc.Retryable = errors.IsTransient

	s := &Source{
		name:      name,
		config:    cfg,
		deps:      deps,
		logger:    deps.GetLoggerWithComponent(name),
		outputs:   outputs,
		retry:     rc,
		metrics:   newMetrics(deps.MetricsRegistry, name),
		startTime: time.Now(),
	}
	s.lastActivity.Store(time.Time{})
	s.lastError.Store("")
	return s
}

// NewSource is the component factory for "file-source"
func NewSource(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	cfg := DefaultConfig()
	if err := component.SafeUnmarshal(rawConfig, &cfg); err != nil {
		return nil, errors.Wrap(err, "file-source-factory", "create", "config parsing")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "file-source-factory", "create", "config validation")
	}
	return New(deps.InstanceName(ComponentName), cfg, deps), nil
}

// Register registers the file source with the component registry
func Register(registry *component.Registry) error {
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        ComponentName,
		Factory:     NewSource,
		Schema:      sourceSchema,
		Type:        "input",
		Protocol:    "file",
		Domain:      "storage",
		Description: "Polls a directory and publishes file contents, references or lines",
		Version:     "1.0.0",
	})
}

// Meta returns the component metadata
func (s *Source) Meta() component.Metadata {
	return component.Metadata{
		Name:        s.name,
		Type:        "input",
		Description: fmt.Sprintf("File source polling %s in %s mode", s.config.Directory, s.config.Consumer.Mode),
		Version:     "1.0.0",
	}
}

// InputPorts returns the watched directory
func (s *Source) InputPorts() []component.Port {
	pattern := s.config.FilenamePattern
	if pattern == "" {
		pattern = s.config.FilenameRegex
	}
	return []component.Port{
		{
			Name:        "directory",
			Direction:   component.DirectionInput,
			Required:    true,
			Description: "Directory polled for new files",
			Config:      component.FilePort{Path: s.config.Directory, Pattern: pattern},
		},
	}
}

// OutputPorts returns the subjects messages are published on
func (s *Source) OutputPorts() []component.Port {
	return s.outputs
}

// ConfigSchema returns the configuration schema
func (s *Source) ConfigSchema() component.ConfigSchema {
	return sourceSchema
}

// Health reports the source healthy while it runs and can list its directory
func (s *Source) Health() component.HealthStatus {
	lastError, _ := s.lastError.Load().(string)
	return component.HealthStatus{
		Healthy:    s.running.Load() && !s.discoveryFailing.Load(),
		LastCheck:  time.Now(),
		ErrorCount: int(s.errorCount.Load()),
		LastError:  lastError,
		Uptime:     time.Since(s.startTime),
	}
}

// DataFlow returns throughput since start
func (s *Source) DataFlow() component.FlowMetrics {
	messages := s.messagesEmitted.Load()
	bytes := s.bytesEmitted.Load()
	errorCount := s.errorCount.Load()
	lastActivity, _ := s.lastActivity.Load().(time.Time)

	var messagesPerSecond, bytesPerSecond, errorRate float64
	if uptime := time.Since(s.startTime).Seconds(); uptime > 0 {
		messagesPerSecond = float64(messages) / uptime
		bytesPerSecond = float64(bytes) / uptime
	}
	if messages > 0 {
		errorRate = float64(errorCount) / float64(messages)
	}

	return component.FlowMetrics{
		MessagesPerSecond: messagesPerSecond,
		BytesPerSecond:    bytesPerSecond,
		ErrorRate:         errorRate,
		LastActivity:      lastActivity,
	}
}

// Stats returns the number of files and messages emitted so far
func (s *Source) Stats() (files, messages int64) {
	return s.filesEmitted.Load(), s.messagesEmitted.Load()
}

// Initialize validates the configuration and resolves output buses. It
// performs no I/O.
func (s *Source) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.config.Validate(); err != nil {
		return errors.Wrap(err, ComponentName, "Initialize", "config validation")
	}
	if len(s.outputs) == 0 {
		return errors.WrapInvalid(fmt.Errorf("no output port configured"),
			ComponentName, "Initialize", "port validation")
	}

	targets := make([]target, 0, len(s.outputs))
	for _, port := range s.outputs {
		b := s.deps.BusFor(port)
		if b == nil {
			return errors.WrapInvalid(fmt.Errorf("no bus for port %s", port.Name),
				ComponentName, "Initialize", "bus validation")
		}
		targets = append(targets, target{subject: port.Subject(), publisher: b})
	}
	s.targets = targets

	s.splitter = NewSplitter(s.config.Consumer, s.name)
	if s.config.MaxMessagesPerSecond > 0 {
		burst := max(1, int(s.config.MaxMessagesPerSecond))
		s.limiter = rate.NewLimiter(rate.Limit(s.config.MaxMessagesPerSecond), burst)
	}
	if s.seen == nil && s.config.SeenStore.Type != SeenStoreKV {
		s.seen = NewMemorySeenStore()
	}

	s.initialized = true
	return nil
}

// Start launches the poll loop
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return errors.WrapTransient(err, ComponentName, "Start", "context check")
	}
	if !s.initialized {
		return errors.WrapFatal(fmt.Errorf("component not initialized"), ComponentName, "Start", "state check")
	}
	if s.done != nil {
		select {
		case <-s.done:
			// previous loop has exited
		default:
			return errors.WrapInvalid(errors.ErrAlreadyStarted, ComponentName, "Start", "state check")
		}
	}

	if s.seen == nil {
		store, err := s.openKVSeenStore(ctx)
		if err != nil {
			return err
		}
		s.seen = store
	}
	if s.poller == nil {
		poller, err := NewPoller(s.config, s.seen, s.logger)
		if err != nil {
			return errors.Wrap(err, ComponentName, "Start", "poller creation")
		}
		s.poller = poller
	}

	var w *watcher
	if s.config.Watch {
		var err error
		w, err = newWatcher(s.poller.Root(), s.config.Recursive, s.logger)
		if err != nil {
			// Polling still works without early wake-ups
			s.logger.Warn("Filesystem watch unavailable", "directory", s.poller.Root(), "error", err)
			w = nil
		}
	}

	// A file whose emission has begun is finished even when ctx ends; only
	// a Stop that runs out of time aborts it.
	emitCtx, abort := context.WithCancel(context.WithoutCancel(ctx))

	s.shutdown = make(chan struct{})
	s.done = make(chan struct{})
	s.abort = abort
	s.startTime = time.Now()
	s.running.Store(true)

	go func(shutdown, done chan struct{}) {
		defer abort()
		s.run(ctx, emitCtx, shutdown, done, w)
	}(s.shutdown, s.done)

	s.logger.Info("File source started",
		"directory", s.poller.Root(),
		"mode", s.config.Consumer.Mode,
		"filter", s.poller.filter.String(),
		"delay", s.config.Trigger.Delay())
	return nil
}

func (s *Source) openKVSeenStore(ctx context.Context) (SeenStore, error) {
	client := s.deps.NATSClient
	if client == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("kv seen store requires a NATS connection"),
			ComponentName, "Start", "seen store")
	}

	bucket, err := retry.DoWithResult(ctx, retry.Quick(), func() (jetstream.KeyValue, error) {
		return client.KeyValueBucket(ctx, jetstream.KeyValueConfig{
			Bucket:      s.config.SeenStore.Bucket,
			Description: "files emitted by file sources",
		})
	})
	if err != nil {
		return nil, errors.WrapTransient(err, ComponentName, "Start", "open seen store bucket")
	}
	root, err := filepath.Abs(s.config.Directory)
	if err != nil {
		return nil, errors.WrapInvalid(err, ComponentName, "Start", "resolve directory")
	}
	return NewKVSeenStore(client.NewKVStore(bucket), root), nil
}

// Stop requests the loop to end after the file in flight and waits up to
// timeout for it. On timeout the in-flight emission is aborted; the loop
// still owns the seen-set until it exits, and Start refuses until then.
func (s *Source) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if s.done == nil {
		s.mu.Unlock()
		return nil
	}
	if s.shutdown != nil {
		close(s.shutdown)
		s.shutdown = nil
	}
	done, abort := s.done, s.abort
	s.mu.Unlock()

	select {
	case <-done:
		abort()
		s.logger.Info("File source stopped")
		return nil
	case <-time.After(timeout):
		abort()
		return errors.WrapTransient(fmt.Errorf("stop timeout after %v", timeout),
			ComponentName, "Stop", "graceful shutdown")
	}
}

// run drives fixed-delay poll cycles. Cycles never overlap. The loop ends
// at a file boundary when ctx ends or Stop is called.
func (s *Source) run(ctx, emitCtx context.Context, shutdown, done chan struct{}, w *watcher) {
	defer close(done)
	defer func() {
		s.running.Store(false)
		if ctx.Err() != nil {
			s.logger.Warn("File source context ended, poll loop stopped", "directory", s.poller.Root())
		}
	}()

	var wake <-chan struct{}
	if w != nil {
		watchCtx, cancel := context.WithCancel(ctx)
		watchDone := make(chan struct{})
		go func() {
			defer close(watchDone)
			w.run(watchCtx)
		}()
		defer func() {
			cancel()
			_ = w.close()
			<-watchDone
		}()
		wake = w.wake
	}

	if d := s.config.Trigger.Initial(); d > 0 && !s.wait(ctx, shutdown, nil, d) {
		return
	}
	for {
		s.cycle(ctx, emitCtx, shutdown)
		if !s.wait(ctx, shutdown, wake, s.config.Trigger.Delay()) {
			return
		}
	}
}

func (s *Source) wait(ctx context.Context, shutdown chan struct{}, wake <-chan struct{}, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-shutdown:
		return false
	case <-timer.C:
		return true
	case <-wake:
		return true
	}
}

// cycle polls once and emits every new file. Each file is emitted under
// emitCtx so that its sequence is never cut short by ctx.
func (s *Source) cycle(ctx, emitCtx context.Context, shutdown chan struct{}) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.pollDuration.Observe(time.Since(start).Seconds())
		}
	}()

	files, err := s.poller.Poll(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.discoveryFailing.Store(true)
		s.recordError(err)
		if s.metrics != nil {
			s.metrics.discoveryErrors.Inc()
		}
		s.logger.Warn("Poll failed", "directory", s.poller.Root(), "error", err)
		return
	}
	s.discoveryFailing.Store(false)

	if s.metrics != nil {
		s.metrics.filesDiscovered.Add(float64(len(files)))
	}

	for _, f := range files {
		select {
		case <-shutdown:
			return
		case <-ctx.Done():
			return
		default:
		}
		s.emit(emitCtx, f)
	}
}

// emit builds and publishes every message for f. The file is marked seen on
// success, and on failure unless failed files are retried.
func (s *Source) emit(ctx context.Context, f DiscoveredFile) {
	msgs, err := s.splitter.Build(f)
	if err != nil {
		s.recordError(err)
		if s.metrics != nil {
			s.metrics.splitErrors.Inc()
		}
		s.logger.Warn("Failed to split file", "path", f.Path, "error", err, "retry", s.config.RetryFailed)
		if !s.config.RetryFailed {
			s.markSeen(ctx, f)
		}
		return
	}

	for _, msg := range msgs {
		if err := s.publish(ctx, msg); err != nil {
			s.recordError(err)
			s.logger.Warn("Failed to publish file message", "path", f.Path, "error", err, "retry", s.config.RetryFailed)
			if !s.config.RetryFailed {
				s.markSeen(ctx, f)
			}
			return
		}
	}

	s.markSeen(ctx, f)
	s.filesEmitted.Add(1)
	s.logger.Debug("Emitted file", "path", f.Path, "messages", len(msgs))
}

func (s *Source) publish(ctx context.Context, msg *message.Message) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return errors.WrapTransient(err, ComponentName, "publish", "rate limit wait")
		}
	}

	for _, t := range s.targets {
		err := retry.Do(ctx, s.retry, func() error {
			return t.publisher.Publish(ctx, t.subject, msg)
		})
		if err != nil {
			return errors.Wrap(err, ComponentName, "publish", "publish to "+t.subject)
		}
	}

	s.messagesEmitted.Add(1)
	s.bytesEmitted.Add(int64(len(msg.Payload())))
	s.lastActivity.Store(time.Now())
	if s.metrics != nil {
		s.metrics.messagesEmitted.Inc()
	}
	return nil
}

func (s *Source) markSeen(ctx context.Context, f DiscoveredFile) {
	if err := s.poller.MarkSeen(ctx, f); err != nil {
		s.recordError(err)
		s.logger.Warn("Failed to mark file seen", "path", f.Path, "error", err)
	}
}

func (s *Source) recordError(err error) {
	s.errorCount.Add(1)
	s.lastError.Store(err.Error())
}
