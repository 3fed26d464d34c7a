package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/c360/filestreams/bus"
	"github.com/c360/filestreams/message"
)

// RecordingPublisher is a bus.Publisher that stores every published message
// per subject. Thread-safe for concurrent use.
type RecordingPublisher struct {
	mu       sync.RWMutex
	messages map[string][]*message.Message
	err      error
}

var _ bus.Publisher = (*RecordingPublisher)(nil)

// NewRecordingPublisher creates an empty recording publisher
func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{messages: make(map[string][]*message.Message)}
}

// Publish records msg, or returns the injected error
func (p *RecordingPublisher) Publish(_ context.Context, subject string, msg *message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.messages[subject] = append(p.messages[subject], msg)
	return nil
}

// FailWith makes every following Publish return err. nil restores success.
func (p *RecordingPublisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Messages returns a copy of the messages recorded on subject
func (p *RecordingPublisher) Messages(subject string) []*message.Message {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]*message.Message(nil), p.messages[subject]...)
}

// Count returns the number of messages recorded on subject
func (p *RecordingPublisher) Count(subject string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.messages[subject])
}

// Collector gathers messages delivered by a bus subscription
type Collector struct {
	mu       sync.Mutex
	messages []*message.Message
}

// Handle implements bus.Handler
func (c *Collector) Handle(_ context.Context, msg *message.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	return nil
}

// Messages returns a copy of the collected messages
func (c *Collector) Messages() []*message.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*message.Message(nil), c.messages...)
}

// Count returns the number of collected messages
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// Subscribe attaches a new collector to subject on b. The subscription is
// removed when the test ends.
func Subscribe(t testing.TB, b bus.Subscriber, subject string) *Collector {
	t.Helper()

	c := &Collector{}
	sub, err := b.Subscribe(context.Background(), subject, c.Handle)
	if err != nil {
		t.Fatalf("subscribe %s: %v", subject, err)
	}
	t.Cleanup(func() { _ = sub.Unsubscribe() })
	return c
}

// WaitForCount polls count every 10ms until it reaches n or timeout passes
func WaitForCount(t testing.TB, count func() int, n int, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		got := count()
		if got >= n {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %d messages (got %d)", n, got)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// WaitForMessages waits until c holds at least n messages and returns them
func WaitForMessages(t testing.TB, c *Collector, n int, timeout time.Duration) []*message.Message {
	t.Helper()
	WaitForCount(t, c.Count, n, timeout)
	return c.Messages()
}

// AssertNoMessages waits for quiet and fails if c received anything
func AssertNoMessages(t testing.TB, c *Collector, quiet time.Duration) {
	t.Helper()
	time.Sleep(quiet)
	if n := c.Count(); n > 0 {
		t.Fatalf("expected no messages, got %d", n)
	}
}
