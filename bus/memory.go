package bus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/c360/filestreams/errors"
	"github.com/c360/filestreams/message"
	"github.com/c360/filestreams/metric"
)

// DefaultCapacity is the per-subscription queue size of the memory bus
const DefaultCapacity = 1024

// Memory is an in-process bus. Every subscription owns a bounded queue that
// is drained by one goroutine, so a handler sees messages in publish order.
// Publish blocks while any matching queue is full.
type Memory struct {
	capacity int
	logger   *slog.Logger
	metrics  *metric.Metrics

	mu     sync.RWMutex
	subs   map[uint64]*memorySubscription
	nextID uint64
	closed bool
}

// MemoryOption configures a Memory bus
type MemoryOption func(*Memory)

// WithMemoryCapacity sets the default queue capacity
func WithMemoryCapacity(n int) MemoryOption {
	return func(m *Memory) {
		if n > 0 {
			m.capacity = n
		}
	}
}

// WithMemoryLogger sets the logger
func WithMemoryLogger(logger *slog.Logger) MemoryOption {
	return func(m *Memory) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMemoryMetrics records publish and delivery counts
func WithMemoryMetrics(metrics *metric.Metrics) MemoryOption {
	return func(m *Memory) { m.metrics = metrics }
}

// NewMemory creates an in-process bus
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		capacity: DefaultCapacity,
		logger:   slog.Default(),
		subs:     make(map[uint64]*memorySubscription),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "bus", "transport", TransportMemory)
	return m
}

// Transport implements Bus
func (m *Memory) Transport() string { return TransportMemory }

// Publish enqueues msg on every subscription matching subject. It returns
// the context error if a queue stays full until ctx is done; subscriptions
// enqueued before that keep the message.
func (m *Memory) Publish(ctx context.Context, subject string, msg *message.Message) error {
	if !ValidSubject(subject) {
		return errors.WrapInvalid(errors.ErrInvalidData, "Memory", "Publish", "validate subject "+subject)
	}

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return errors.WrapFatal(errors.ErrBusClosed, "Memory", "Publish", "publish to "+subject)
	}
	targets := make([]*memorySubscription, 0, len(m.subs))
	for _, sub := range m.subs {
		if MatchSubject(sub.pattern, subject) {
			targets = append(targets, sub)
		}
	}
	m.mu.RUnlock()

	for _, sub := range targets {
		select {
		case sub.queue <- msg:
		case <-sub.done:
		case <-ctx.Done():
			return errors.WrapTransient(ctx.Err(), "Memory", "Publish", "enqueue on "+subject)
		}
	}

	if m.metrics != nil {
		m.metrics.RecordPublished(TransportMemory, subject)
	}
	return nil
}

// Subscribe starts delivering messages matching subject to handler. The
// subscription ends on Unsubscribe, on Close, or when ctx is done.
func (m *Memory) Subscribe(
	ctx context.Context, subject string, handler Handler, opts ...SubscribeOption,
) (Subscription, error) {
	if subject == "" || handler == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Memory", "Subscribe", "validate subscription")
	}
	o := applyOptions(opts)
	capacity := m.capacity
	if o.Capacity > 0 {
		capacity = o.Capacity
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errors.WrapFatal(errors.ErrBusClosed, "Memory", "Subscribe", "subscribe to "+subject)
	}

	subCtx, cancel := context.WithCancel(ctx)
	m.nextID++
	sub := &memorySubscription{
		id:      m.nextID,
		pattern: subject,
		queue:   make(chan *message.Message, capacity),
		done:    make(chan struct{}),
		exited:  make(chan struct{}),
		cancel:  cancel,
		bus:     m,
	}
	m.subs[sub.id] = sub

	go sub.run(subCtx, handler)
	return sub, nil
}

// Close ends every subscription and rejects further publishes
func (m *Memory) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	subs := make([]*memorySubscription, 0, len(m.subs))
	for _, sub := range m.subs {
		subs = append(subs, sub)
	}
	m.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Unsubscribe()
	}
	return nil
}

func (m *Memory) remove(id uint64) {
	m.mu.Lock()
	delete(m.subs, id)
	m.mu.Unlock()
}

type memorySubscription struct {
	id      uint64
	pattern string
	queue   chan *message.Message
	done    chan struct{}
	exited  chan struct{}
	cancel  context.CancelFunc
	once    sync.Once
	bus     *Memory
}

func (s *memorySubscription) Subject() string { return s.pattern }

// Unsubscribe stops delivery and waits for the in-flight handler call.
// Queued messages that were not yet delivered are dropped.
func (s *memorySubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.bus.remove(s.id)
		close(s.done)
		s.cancel()
	})
	<-s.exited
	return nil
}

func (s *memorySubscription) run(ctx context.Context, handler Handler) {
	defer close(s.exited)

	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			s.once.Do(func() {
				s.bus.remove(s.id)
				close(s.done)
			})
			return
		case msg := <-s.queue:
			err := handler(ctx, msg)
			if err != nil {
				s.bus.logger.Debug("handler returned error",
					"subject", s.pattern, "message_id", msg.ID(), "error", err)
			}
			if s.bus.metrics != nil {
				s.bus.metrics.RecordDelivered(TransportMemory, s.pattern, err)
			}
		}
	}
}
