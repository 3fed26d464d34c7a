package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/filestreams/bus"
	"github.com/c360/filestreams/component"
	"github.com/c360/filestreams/component/flowgraph"
	"github.com/c360/filestreams/config"
	"github.com/c360/filestreams/errors"
	"github.com/c360/filestreams/health"
	"github.com/c360/filestreams/metric"
	"github.com/c360/filestreams/types"
)

// recorder keeps the lifecycle calls of every fake component in order
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fakeConfig struct {
	FailInit  bool `json:"fail_init"`
	FailStart bool `json:"fail_start"`
	FailStop  bool `json:"fail_stop"`
}

type fakeComponent struct {
	name    string
	kind    string
	cfg     fakeConfig
	rec     *recorder
	running atomic.Bool
}

func (f *fakeComponent) Meta() component.Metadata {
	return component.Metadata{Name: f.name, Type: f.kind}
}
func (f *fakeComponent) InputPorts() []component.Port         { return nil }
func (f *fakeComponent) OutputPorts() []component.Port        { return nil }
func (f *fakeComponent) ConfigSchema() component.ConfigSchema { return component.ConfigSchema{} }
func (f *fakeComponent) DataFlow() component.FlowMetrics      { return component.FlowMetrics{} }

func (f *fakeComponent) Health() component.HealthStatus {
	return component.HealthStatus{Healthy: f.running.Load()}
}

func (f *fakeComponent) Initialize() error {
	f.rec.add("init " + f.name)
	if f.cfg.FailInit {
		return errors.WrapInvalid(fmt.Errorf("init failed"), f.name, "Initialize", "test")
	}
	return nil
}

func (f *fakeComponent) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.rec.add("start " + f.name)
	if f.cfg.FailStart {
		return errors.WrapTransient(fmt.Errorf("start failed"), f.name, "Start", "test")
	}
	f.running.Store(true)
	return nil
}

func (f *fakeComponent) Stop(_ time.Duration) error {
	f.rec.add("stop " + f.name)
	f.running.Store(false)
	if f.cfg.FailStop {
		return errors.WrapTransient(fmt.Errorf("stop failed"), f.name, "Stop", "test")
	}
	return nil
}

// fakeRegistry registers fake-input, fake-processor and fake-output
// factories whose instances report to rec
func fakeRegistry(t *testing.T, rec *recorder) *component.Registry {
	t.Helper()

	registry := component.NewRegistry()
	for _, kind := range []string{"input", "processor", "output"} {
		kind := kind
		require.NoError(t, registry.RegisterWithConfig(component.RegistrationConfig{
			Name: "fake-" + kind,
			Type: kind,
			Factory: func(raw json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
				var cfg fakeConfig
				if err := component.SafeUnmarshal(raw, &cfg); err != nil {
					return nil, err
				}
				return &fakeComponent{name: deps.InstanceName("fake"), kind: kind, cfg: cfg, rec: rec}, nil
			},
		}))
	}
	return registry
}

func fakeEntry(kind types.ComponentType, cfg fakeConfig) types.ComponentConfig {
	raw, _ := json.Marshal(cfg)
	return types.ComponentConfig{Type: kind, Name: "fake-" + string(kind), Enabled: true, Config: raw}
}

func newManager(t *testing.T, registry *component.Registry, configs config.ComponentConfigs) *ComponentManager {
	t.Helper()
	cm, err := NewComponentManager(registry, configs, Dependencies{Bus: bus.NewMemory()})
	require.NoError(t, err)
	return cm
}

func TestNewComponentManager_Validation(t *testing.T) {
	_, err := NewComponentManager(nil, nil, Dependencies{Bus: bus.NewMemory()})
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))

	_, err = NewComponentManager(component.NewRegistry(), nil, Dependencies{})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestComponentManager_Initialize(t *testing.T) {
	rec := &recorder{}
	registry := fakeRegistry(t, rec)

	disabled := fakeEntry(types.ComponentTypeInput, fakeConfig{})
	disabled.Enabled = false

	cm := newManager(t, registry, config.ComponentConfigs{
		"reader": fakeEntry(types.ComponentTypeInput, fakeConfig{}),
		"writer": fakeEntry(types.ComponentTypeOutput, fakeConfig{}),
		"idle":   disabled,
	})
	require.NoError(t, cm.Initialize())

	assert.Len(t, cm.ListComponents(), 2)
	assert.NotNil(t, cm.Component("reader"))
	assert.Nil(t, cm.Component("idle"))
	assert.ElementsMatch(t, []string{"init reader", "init writer"}, rec.list())

	status := cm.GetComponentStatus()
	assert.Equal(t, "initialized", status["reader"].State)
	assert.Equal(t, "input", status["reader"].Type)

	// Second call is a no-op
	require.NoError(t, cm.Initialize())
	assert.Len(t, rec.list(), 2)
}

func TestComponentManager_InitializeFailures(t *testing.T) {
	tests := []struct {
		name    string
		configs config.ComponentConfigs
	}{
		{
			name: "unknown factory",
			configs: config.ComponentConfigs{
				"ok":      fakeEntry(types.ComponentTypeOutput, fakeConfig{}),
				"missing": {Type: types.ComponentTypeOutput, Name: "no-such-factory", Enabled: true, Config: []byte(`{}`)},
			},
		},
		{
			name: "type mismatch",
			configs: config.ComponentConfigs{
				"ok":    fakeEntry(types.ComponentTypeOutput, fakeConfig{}),
				"wrong": {Type: types.ComponentTypeInput, Name: "fake-output", Enabled: true, Config: []byte(`{}`)},
			},
		},
		{
			name: "initialize error",
			configs: config.ComponentConfigs{
				"ok":     fakeEntry(types.ComponentTypeOutput, fakeConfig{}),
				"broken": fakeEntry(types.ComponentTypeInput, fakeConfig{FailInit: true}),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := fakeRegistry(t, &recorder{})
			cm := newManager(t, registry, tt.configs)

			err := cm.Initialize()
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
			assert.Empty(t, cm.ListComponents())
			assert.Empty(t, registry.ListComponents(), "created instances are released")

			err = cm.Start(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), "not initialized")
		})
	}
}

func TestComponentManager_StartStopOrder(t *testing.T) {
	rec := &recorder{}
	cm := newManager(t, fakeRegistry(t, rec), config.ComponentConfigs{
		"a-source": fakeEntry(types.ComponentTypeInput, fakeConfig{}),
		"b-middle": fakeEntry(types.ComponentTypeProcessor, fakeConfig{}),
		"c-sink":   fakeEntry(types.ComponentTypeOutput, fakeConfig{}),
		"d-sink":   fakeEntry(types.ComponentTypeOutput, fakeConfig{}),
	})
	require.NoError(t, cm.Initialize())
	require.NoError(t, cm.Start(context.Background()))

	assert.True(t, cm.IsStarted())
	assert.Equal(t, []string{"c-sink", "d-sink", "b-middle", "a-source"}, cm.StartOrder())

	healthy, _ := cm.Health()
	assert.True(t, healthy)

	require.NoError(t, cm.Stop(time.Second))
	assert.False(t, cm.IsStarted())

	assert.Equal(t, []string{
		"start c-sink", "start d-sink", "start b-middle", "start a-source",
		"stop a-source", "stop b-middle", "stop d-sink", "stop c-sink",
	}, rec.list()[4:])

	for name, status := range cm.GetComponentStatus() {
		assert.Equal(t, "stopped", status.State, name)
	}

	// Stop is idempotent
	require.NoError(t, cm.Stop(time.Second))
	assert.Len(t, rec.list(), 12)
}

func TestComponentManager_Restart(t *testing.T) {
	rec := &recorder{}
	cm := newManager(t, fakeRegistry(t, rec), config.ComponentConfigs{
		"src": fakeEntry(types.ComponentTypeInput, fakeConfig{}),
	})
	require.NoError(t, cm.Initialize())

	require.NoError(t, cm.Start(context.Background()))
	err := cm.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrAlreadyStarted))

	require.NoError(t, cm.Stop(time.Second))
	require.NoError(t, cm.Start(context.Background()))
	require.NoError(t, cm.Stop(time.Second))

	assert.Equal(t, []string{"init src", "start src", "stop src", "start src", "stop src"}, rec.list())
}

func TestComponentManager_StartCancelledContext(t *testing.T) {
	cm := newManager(t, fakeRegistry(t, &recorder{}), config.ComponentConfigs{
		"src": fakeEntry(types.ComponentTypeInput, fakeConfig{}),
	})
	require.NoError(t, cm.Initialize())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := cm.Start(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.False(t, cm.IsStarted())
}

func TestComponentManager_StartFailureRollsBack(t *testing.T) {
	rec := &recorder{}
	cm := newManager(t, fakeRegistry(t, rec), config.ComponentConfigs{
		"sink":   fakeEntry(types.ComponentTypeOutput, fakeConfig{}),
		"source": fakeEntry(types.ComponentTypeInput, fakeConfig{FailStart: true}),
	})
	require.NoError(t, cm.Initialize())

	err := cm.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.Contains(t, err.Error(), "start source")
	assert.False(t, cm.IsStarted())

	assert.Equal(t, []string{"start sink", "start source", "stop sink"}, rec.list()[2:])

	status := cm.GetComponentStatus()
	assert.Equal(t, "failed", status["source"].State)
	assert.Contains(t, status["source"].LastError, "start failed")
	assert.Equal(t, "stopped", status["sink"].State)
}

func TestComponentManager_StopCollectsErrors(t *testing.T) {
	rec := &recorder{}
	cm := newManager(t, fakeRegistry(t, rec), config.ComponentConfigs{
		"sink-a": fakeEntry(types.ComponentTypeOutput, fakeConfig{FailStop: true}),
		"sink-b": fakeEntry(types.ComponentTypeOutput, fakeConfig{FailStop: true}),
		"source": fakeEntry(types.ComponentTypeInput, fakeConfig{}),
	})
	require.NoError(t, cm.Initialize())
	require.NoError(t, cm.Start(context.Background()))

	err := cm.Stop(time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink-a")
	assert.Contains(t, err.Error(), "sink-b")

	// Every component was asked to stop despite the failures
	assert.Equal(t, []string{"stop source", "stop sink-b", "stop sink-a"}, rec.list()[6:])
	assert.Equal(t, "failed", cm.GetComponentStatus()["sink-a"].State)
	assert.Equal(t, "stopped", cm.GetComponentStatus()["source"].State)
}

func TestComponentManager_Health(t *testing.T) {
	cm := newManager(t, fakeRegistry(t, &recorder{}), config.ComponentConfigs{
		"src": fakeEntry(types.ComponentTypeInput, fakeConfig{}),
	})
	require.NoError(t, cm.Initialize())

	healthy, detail := cm.Health()
	assert.False(t, healthy, "not started")
	agg, ok := detail.(health.Status)
	require.True(t, ok)
	assert.Equal(t, health.StatusUnhealthy, agg.Status)
	require.Len(t, agg.SubStatuses, 1)
	assert.Equal(t, "src", agg.SubStatuses[0].Component)
	assert.Equal(t, "Component initialized", agg.SubStatuses[0].Message)

	require.NoError(t, cm.Start(context.Background()))
	healthy, detail = cm.Health()
	assert.True(t, healthy)
	assert.True(t, detail.(health.Status).IsHealthy())

	// A component reporting unhealthy makes the whole manager unhealthy
	cm.Component("src").(*fakeComponent).running.Store(false)
	healthy, _ = cm.Health()
	assert.False(t, healthy)

	require.NoError(t, cm.Stop(time.Second))
}

func TestComponentManager_StatusMetric(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	cm, err := NewComponentManager(fakeRegistry(t, &recorder{}), config.ComponentConfigs{
		"src": fakeEntry(types.ComponentTypeInput, fakeConfig{}),
	}, Dependencies{Bus: bus.NewMemory(), MetricsRegistry: registry})
	require.NoError(t, err)

	gauge := registry.CoreMetrics().ComponentStatus.WithLabelValues("src")

	require.NoError(t, cm.Initialize())
	assert.Equal(t, float64(statusInitialized), testutil.ToFloat64(gauge))

	require.NoError(t, cm.Start(context.Background()))
	assert.Equal(t, float64(statusRunning), testutil.ToFloat64(gauge))

	require.NoError(t, cm.Stop(time.Second))
	assert.Equal(t, float64(statusStopped), testutil.ToFloat64(gauge))
}

func TestComponentManager_FlowGraphWithoutPorts(t *testing.T) {
	cm := newManager(t, fakeRegistry(t, &recorder{}), config.ComponentConfigs{
		"src": fakeEntry(types.ComponentTypeInput, fakeConfig{}),
	})
	require.NoError(t, cm.Initialize())

	result := cm.ValidateFlowConnectivity()
	assert.Equal(t, flowgraph.StatusWarnings, result.ValidationStatus)
	require.Len(t, result.DisconnectedNodes, 1)
	assert.Equal(t, "src", result.DisconnectedNodes[0].ComponentName)
}
