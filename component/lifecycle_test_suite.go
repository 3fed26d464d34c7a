package component

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// LifecycleFactory creates a new instance of a LifecycleComponent for testing
type LifecycleFactory func() LifecycleComponent

// StandardLifecycleTests runs the shared lifecycle checks against any
// LifecycleComponent. Components are expected to reject Start before
// Initialize with a "not initialized" error, reject an already-done context,
// and treat Stop as idempotent.
func StandardLifecycleTests(t *testing.T, factory LifecycleFactory) {
	t.Run("Compliance", func(t *testing.T) {
		testLifecycleCompliance(t, factory)
	})
	t.Run("ErrorPaths", func(t *testing.T) {
		testErrorPaths(t, factory)
	})
	t.Run("Concurrent", func(t *testing.T) {
		testConcurrentStartStop(t, factory)
	})
	t.Run("NoLeaks", func(t *testing.T) {
		testNoResourceLeaks(t, factory)
	})
}

func testLifecycleCompliance(t *testing.T, factory LifecycleFactory) {
	tests := []struct {
		name string
		test func(t *testing.T, comp LifecycleComponent)
	}{
		{"Initialize", testInitialize},
		{"StartStop", testStartStop},
		{"DoubleStop", testDoubleStop},
		{"StopWithoutStart", testStopWithoutStart},
		{"RestartAfterStop", testRestartAfterStop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comp := factory()
			require.NotNil(t, comp, "Component factory returned nil")
			tt.test(t, comp)
		})
	}
}

func testInitialize(t *testing.T, comp LifecycleComponent) {
	assert.NoError(t, comp.Initialize(), "Initialize should succeed on fresh component")
}

func startFor(t *testing.T, comp LifecycleComponent) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	require.NoError(t, comp.Start(ctx), "Start should succeed after Initialize")
	return cancel
}

func testStartStop(t *testing.T, comp LifecycleComponent) {
	require.NoError(t, comp.Initialize())
	cancel := startFor(t, comp)
	defer cancel()

	assert.NoError(t, comp.Stop(5*time.Second), "Stop should succeed after Start")
}

func testDoubleStop(t *testing.T, comp LifecycleComponent) {
	require.NoError(t, comp.Initialize())
	cancel := startFor(t, comp)
	defer cancel()

	assert.NoError(t, comp.Stop(5*time.Second), "First Stop should succeed")
	assert.NoError(t, comp.Stop(5*time.Second), "Second Stop should be idempotent")
}

func testStopWithoutStart(t *testing.T, comp LifecycleComponent) {
	assert.NoError(t, comp.Stop(5*time.Second), "Stop should be safe to call without Start")
}

func testRestartAfterStop(t *testing.T, comp LifecycleComponent) {
	require.NoError(t, comp.Initialize())
	cancel := startFor(t, comp)
	require.NoError(t, comp.Stop(5*time.Second))
	cancel()

	ctx, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()

	if err := comp.Start(ctx); err != nil {
		require.NoError(t, comp.Initialize(), "Re-initialize should succeed if Start fails after Stop")
		require.NoError(t, comp.Start(ctx), "Start should succeed after re-initialization")
	}
	assert.NoError(t, comp.Stop(5*time.Second), "Final Stop should succeed")
}

func testErrorPaths(t *testing.T, factory LifecycleFactory) {
	tests := []struct {
		name      string
		init      bool
		ctx       func() (context.Context, context.CancelFunc)
		errSubstr []string
	}{
		{
			name: "cancelled_context_on_start",
			init: true,
			ctx: func() (context.Context, context.CancelFunc) {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx, cancel
			},
			errSubstr: []string{"context", "cancel"},
		},
		{
			name: "start_without_initialize",
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), time.Second)
			},
			errSubstr: []string{"not initialized"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comp := factory()
			require.NotNil(t, comp, "Component factory returned nil")
			if tt.init {
				require.NoError(t, comp.Initialize())
			}

			ctx, cancel := tt.ctx()
			defer cancel()

			err := comp.Start(ctx)
			require.Error(t, err, "Start should fail")
			matched := false
			for _, s := range tt.errSubstr {
				matched = matched || strings.Contains(err.Error(), s)
			}
			assert.True(t, matched, "unexpected error: %v", err)

			assert.NoError(t, comp.Stop(5*time.Second), "Component should be stoppable after error")
		})
	}
}

func testConcurrentStartStop(t *testing.T, factory LifecycleFactory) {
	comp := factory()
	require.NotNil(t, comp, "Component factory returned nil")
	require.NoError(t, comp.Initialize())

	var wg sync.WaitGroup
	errs := make([]error, 40)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			errs[idx] = comp.Start(ctx)
		}(i)
	}
	for i := 20; i < 40; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			time.Sleep(10 * time.Millisecond)
			errs[idx] = comp.Stop(5 * time.Second)
		}(i)
	}
	wg.Wait()

	starts, stops := 0, 0
	for i, err := range errs {
		if err != nil {
			continue
		}
		if i < 20 {
			starts++
		} else {
			stops++
		}
	}
	assert.GreaterOrEqual(t, starts, 1, "At least one Start should succeed")
	assert.GreaterOrEqual(t, stops, 1, "At least one Stop should succeed")

	_ = comp.Stop(5 * time.Second)
}

func testNoResourceLeaks(t *testing.T, factory LifecycleFactory) {
	if testing.Short() {
		t.Skip("Skipping resource leak test in short mode")
	}

	runtime.GC()
	time.Sleep(100 * time.Millisecond)
	initialGoroutines := runtime.NumGoroutine()

	const iterations = 100
	for i := 0; i < iterations; i++ {
		comp := factory()
		require.NotNil(t, comp, "Component factory returned nil")

		if err := comp.Initialize(); err != nil {
			t.Logf("Initialize failed on iteration %d: %v", i, err)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		if err := comp.Start(ctx); err != nil {
			t.Logf("Start failed on iteration %d: %v", i, err)
		}
		if err := comp.Stop(5 * time.Second); err != nil {
			t.Logf("Stop failed on iteration %d: %v", i, err)
		}
		cancel()
	}

	runtime.GC()
	time.Sleep(200 * time.Millisecond)

	growth := runtime.NumGoroutine() - initialGoroutines
	assert.LessOrEqual(t, growth, 5, "goroutine count grew by %d", growth)
}

// ErrorInjectingComponent wraps a component to inject errors for testing
type ErrorInjectingComponent struct {
	LifecycleComponent
	InitError  error
	StartError error
	StopError  error
}

// NewErrorInjectingComponent creates a component wrapper that can inject errors for testing
func NewErrorInjectingComponent(comp LifecycleComponent) *ErrorInjectingComponent {
	return &ErrorInjectingComponent{LifecycleComponent: comp}
}

// Initialize returns InitError when set
func (e *ErrorInjectingComponent) Initialize() error {
	if e.InitError != nil {
		return e.InitError
	}
	return e.LifecycleComponent.Initialize()
}

// Start returns StartError when set
func (e *ErrorInjectingComponent) Start(ctx context.Context) error {
	if e.StartError != nil {
		return e.StartError
	}
	return e.LifecycleComponent.Start(ctx)
}

// Stop returns StopError when set
func (e *ErrorInjectingComponent) Stop(timeout time.Duration) error {
	if e.StopError != nil {
		return e.StopError
	}
	return e.LifecycleComponent.Stop(timeout)
}
