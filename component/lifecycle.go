package component

import (
	"context"
	"time"
)

// State is where a managed component is in its lifecycle
type State int

// Lifecycle states. A component moves created → initialized → started →
// stopped, and may be restarted from stopped. Any failed transition leaves
// it in StateFailed.
const (
	StateCreated State = iota
	StateInitialized
	StateStarted
	StateStopped
	StateFailed
)

var stateNames = [...]string{
	StateCreated:     "created",
	StateInitialized: "initialized",
	StateStarted:     "started",
	StateStopped:     "stopped",
	StateFailed:      "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// LifecycleComponent is a component the service can run.
//
// Initialize validates and allocates without touching the bus or the file
// system. Start subscribes or begins polling and must return once the
// component is running; work continues on goroutines bound to ctx. Stop
// drains in-flight work within timeout and may be followed by another
// Start.
type LifecycleComponent interface {
	Discoverable
	Initialize() error
	Start(ctx context.Context) error
	Stop(timeout time.Duration) error
}

// ManagedComponent is the manager's record of one running instance
type ManagedComponent struct {
	Component Discoverable
	State     State

	// Context is the child context handed to Start. Cancel ends it after
	// Stop returns.
	Context context.Context
	Cancel  context.CancelFunc

	// StartOrder is the position in the start sequence; stop runs in reverse
	StartOrder int

	LastError error
}

// IsLifecycleComponent reports whether comp can be run by the service
func IsLifecycleComponent(comp Discoverable) bool {
	_, ok := comp.(LifecycleComponent)
	return ok
}

// AsLifecycleComponent returns comp as a LifecycleComponent when it is one
func AsLifecycleComponent(comp Discoverable) (LifecycleComponent, bool) {
	lc, ok := comp.(LifecycleComponent)
	return lc, ok
}
