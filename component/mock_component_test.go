package component

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/c360/filestreams/errors"
)

// mockComponent is a minimal LifecycleComponent used by registry and
// lifecycle tests.
type mockComponent struct {
	name  string
	ports []Port

	mu          sync.Mutex
	initialized bool
	running     bool
	cancel      context.CancelFunc
	done        chan struct{}
}

func newMockComponent(name string, ports ...Port) *mockComponent {
	return &mockComponent{name: name, ports: ports}
}

func mockFactory(rawConfig json.RawMessage, _ Dependencies) (Discoverable, error) {
	var cfg struct {
		Name string `json:"name"`
	}
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &cfg); err != nil {
			return nil, errors.WrapInvalid(err, "mock", "factory", "parse config")
		}
	}
	if cfg.Name == "" {
		cfg.Name = "mock"
	}
	return newMockComponent(cfg.Name), nil
}

func (m *mockComponent) Meta() Metadata {
	return Metadata{Name: m.name, Type: "input", Description: "mock", Version: "0.0.1"}
}

func (m *mockComponent) InputPorts() []Port         { return m.ports }
func (m *mockComponent) OutputPorts() []Port        { return nil }
func (m *mockComponent) ConfigSchema() ConfigSchema { return ConfigSchema{} }
func (m *mockComponent) DataFlow() FlowMetrics      { return FlowMetrics{} }

func (m *mockComponent) Health() HealthStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return HealthStatus{Healthy: m.running, LastCheck: time.Now()}
}

func (m *mockComponent) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialized = true
	return nil
}

func (m *mockComponent) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.WrapTransient(err, "mock", "Start", "context check")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return errors.WrapFatal(fmt.Errorf("component not initialized"), "mock", "Start", "state check")
	}
	if m.running {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "mock", "Start", "state check")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running = true

	go func(done chan struct{}) {
		defer close(done)
		<-runCtx.Done()
	}(m.done)

	return nil
}

func (m *mockComponent) Stop(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}
	m.cancel()
	select {
	case <-m.done:
	case <-time.After(timeout):
		return errors.WrapTransient(context.DeadlineExceeded, "mock", "Stop", "wait for goroutine")
	}
	m.running = false
	return nil
}

// exclusivePort is a Portable that only one instance may claim.
type exclusivePort struct{ id string }

func (p exclusivePort) ResourceID() string { return "exclusive:" + p.id }
func (p exclusivePort) IsExclusive() bool  { return true }
func (p exclusivePort) Type() string       { return "exclusive" }
