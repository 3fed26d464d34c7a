package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/filestreams/component"
	"github.com/c360/filestreams/component/flowgraph"
	"github.com/c360/filestreams/config"
	"github.com/c360/filestreams/errors"
	"github.com/c360/filestreams/health"
	"github.com/c360/filestreams/metric"
	"github.com/c360/filestreams/types"
)

// DefaultStopTimeout bounds a component's Stop when the caller's budget
// leaves nothing over
const DefaultStopTimeout = 5 * time.Second

// Values recorded in the filestreams_component_status gauge
const (
	statusStopped     = 0
	statusInitialized = 1
	statusRunning     = 2
	statusFailed      = 3
)

// ComponentManager handles the lifecycle of every configured component.
//
// ComponentManager follows lifecycle:
//
//	Initialize() - Create components from config and initialize them
//	Start(ctx)   - Start outputs first, inputs last
//	Stop()       - Stop components in reverse start order
type ComponentManager struct {
	registry *component.Registry
	configs  config.ComponentConfigs
	deps     Dependencies
	logger   *slog.Logger
	metrics  *metric.Metrics

	mu         sync.RWMutex
	components map[string]*component.ManagedComponent
	startOrder []string

	lifecycleMu sync.Mutex
	initialized atomic.Bool
	started     atomic.Bool
}

// NewComponentManager creates a manager for the enabled entries of configs.
// Factories must already be registered with registry.
func NewComponentManager(
	registry *component.Registry, configs config.ComponentConfigs, deps Dependencies,
) (*ComponentManager, error) {
	if registry == nil {
		return nil, errors.WrapFatal(fmt.Errorf("registry cannot be nil"),
			"ComponentManager", "NewComponentManager", "registry validation")
	}
	if deps.Bus == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig,
			"ComponentManager", "NewComponentManager", "bus validation")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var core *metric.Metrics
	if deps.MetricsRegistry != nil {
		core = deps.MetricsRegistry.CoreMetrics()
	}

	return &ComponentManager{
		registry:   registry,
		configs:    configs,
		deps:       deps,
		logger:     logger.With("service", "component-manager"),
		metrics:    core,
		components: make(map[string]*component.ManagedComponent),
	}, nil
}

// Initialize creates and initializes every enabled component. Any failure
// aborts initialization: created instances are released and every error is
// returned together.
func (cm *ComponentManager) Initialize() error {
	cm.lifecycleMu.Lock()
	defer cm.lifecycleMu.Unlock()

	if cm.initialized.Load() {
		return nil
	}

	enabled := make(config.ComponentConfigs)
	for name, cc := range cm.configs {
		if !cc.Enabled {
			cm.logger.Debug("Skipping disabled component", "instance", name)
			continue
		}
		enabled[name] = cc
	}

	created := make(map[string]*component.ManagedComponent, len(enabled))
	var errs []error
	for _, name := range sortedNames(enabled) {
		cc := enabled[name]
		deps := cm.deps.componentDependencies(cm.logger.With("component", name))

		comp, err := cm.registry.CreateComponent(name, cc, deps)
		if err != nil {
			cm.logger.Error("Failed to create component",
				"instance", name, "factory", cc.Name, "type", cc.Type, "error", err)
			errs = append(errs, fmt.Errorf("component %s: %w", name, err))
			continue
		}

		mc := &component.ManagedComponent{Component: comp, State: component.StateCreated}
		created[name] = mc

		if lc, ok := component.AsLifecycleComponent(comp); ok {
			if err := lc.Initialize(); err != nil {
				mc.State = component.StateFailed
				mc.LastError = err
				errs = append(errs, fmt.Errorf("component %s: %w", name, err))
				continue
			}
		}
		mc.State = component.StateInitialized

		cm.logger.Info("Component created",
			"instance", name, "factory", cc.Name, "type", cc.Type)
	}

	if len(errs) > 0 {
		for name := range created {
			cm.registry.UnregisterInstance(name)
		}
		return errors.WrapInvalid(stderrors.Join(errs...),
			"ComponentManager", "Initialize", "create components")
	}

	cm.mu.Lock()
	cm.components = created
	cm.mu.Unlock()
	for name := range created {
		cm.recordStatus(name, statusInitialized)
	}

	cm.initialized.Store(true)
	return nil
}

// Start starts outputs, then processors, then inputs, each with a child of
// ctx. If one fails, the components already started are stopped again.
func (cm *ComponentManager) Start(ctx context.Context) error {
	cm.lifecycleMu.Lock()
	defer cm.lifecycleMu.Unlock()

	if err := ctx.Err(); err != nil {
		return errors.WrapTransient(err, "ComponentManager", "Start", "context check")
	}
	if !cm.initialized.Load() {
		return errors.WrapFatal(fmt.Errorf("component manager not initialized"),
			"ComponentManager", "Start", "state check")
	}
	if cm.started.Load() {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "ComponentManager", "Start", "state check")
	}

	cm.mu.Lock()
	order := cm.startSequence()
	cm.startOrder = make([]string, 0, len(order))
	cm.mu.Unlock()

	for _, name := range order {
		cm.mu.RLock()
		mc := cm.components[name]
		cm.mu.RUnlock()

		lc, ok := component.AsLifecycleComponent(mc.Component)
		if !ok {
			continue
		}

		childCtx, cancel := context.WithCancel(ctx)
		cm.logger.Info("Starting component", "name", name, "type", mc.Component.Meta().Type)

		if err := lc.Start(childCtx); err != nil {
			cancel()
			cm.updateComponentState(name, component.StateFailed, err)
			cm.logger.Error("Component failed to start", "name", name, "error", err)

			if stopErr := cm.stopAll(DefaultStopTimeout); stopErr != nil {
				cm.logger.Warn("Failed to stop components after start failure", "error", stopErr)
			}
			return errors.Wrap(err, "ComponentManager", "Start", fmt.Sprintf("start %s", name))
		}

		cm.mu.Lock()
		mc.Context = childCtx
		mc.Cancel = cancel
		mc.StartOrder = len(cm.startOrder)
		mc.State = component.StateStarted
		mc.LastError = nil
		cm.startOrder = append(cm.startOrder, name)
		cm.mu.Unlock()
		cm.recordStatus(name, statusRunning)
	}

	cm.started.Store(true)
	cm.logger.Info("Components started", "count", len(order))
	return nil
}

// Stop stops started components in reverse start order, so inputs stop
// before the outputs they feed. timeout is shared by all components. Every
// failure is reported; Stop on a stopped manager is a no-op.
func (cm *ComponentManager) Stop(timeout time.Duration) error {
	cm.lifecycleMu.Lock()
	defer cm.lifecycleMu.Unlock()

	if !cm.started.Load() {
		return nil
	}
	err := cm.stopAll(timeout)
	cm.started.Store(false)
	return err
}

// stopAll stops everything in startOrder. Callers hold lifecycleMu.
func (cm *ComponentManager) stopAll(timeout time.Duration) error {
	cm.mu.Lock()
	stopOrder := make([]string, len(cm.startOrder))
	copy(stopOrder, cm.startOrder)
	cm.startOrder = nil
	cm.mu.Unlock()

	deadline := time.Now().Add(timeout)
	var errs []error
	for i := len(stopOrder) - 1; i >= 0; i-- {
		name := stopOrder[i]

		cm.mu.RLock()
		mc := cm.components[name]
		cm.mu.RUnlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			remaining = DefaultStopTimeout
		}

		lc, _ := component.AsLifecycleComponent(mc.Component)
		err := lc.Stop(remaining)
		cm.cancelComponentContext(mc)
		if err != nil {
			cm.updateComponentState(name, component.StateFailed, err)
			cm.recordStatus(name, statusFailed)
			cm.logger.Error("Component failed to stop", "name", name, "error", err)
			errs = append(errs, fmt.Errorf("component %s: %w", name, err))
			continue
		}

		cm.updateComponentState(name, component.StateStopped, nil)
		cm.recordStatus(name, statusStopped)
		cm.logger.Info("Component stopped", "name", name)
	}

	if len(errs) > 0 {
		return errors.Wrap(stderrors.Join(errs...), "ComponentManager", "Stop",
			fmt.Sprintf("stop %d components", len(errs)))
	}
	return nil
}

// startSequence orders components outputs first, then by name. Callers
// hold mu.
func (cm *ComponentManager) startSequence() []string {
	names := make([]string, 0, len(cm.components))
	for name := range cm.components {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ri := startRank(cm.components[names[i]].Component.Meta().Type)
		rj := startRank(cm.components[names[j]].Component.Meta().Type)
		if ri != rj {
			return ri < rj
		}
		return names[i] < names[j]
	})
	return names
}

func startRank(kind string) int {
	switch types.ComponentType(kind) {
	case types.ComponentTypeOutput:
		return 0
	case types.ComponentTypeProcessor:
		return 1
	default:
		return 2
	}
}

func (cm *ComponentManager) cancelComponentContext(mc *component.ManagedComponent) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if mc.Cancel != nil {
		mc.Cancel()
		mc.Cancel = nil
		mc.Context = nil
	}
}

// updateComponentState safely updates component state with proper locking
func (cm *ComponentManager) updateComponentState(name string, state component.State, err error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if mc, exists := cm.components[name]; exists {
		mc.State = state
		mc.LastError = err
	}
}

func (cm *ComponentManager) recordStatus(name string, status int) {
	if cm.metrics != nil {
		cm.metrics.RecordComponentStatus(name, status)
	}
}

// Component retrieves a specific component instance by name
func (cm *ComponentManager) Component(name string) component.Discoverable {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if mc, ok := cm.components[name]; ok {
		return mc.Component
	}
	return nil
}

// ListComponents returns every managed component by instance name
func (cm *ComponentManager) ListComponents() map[string]component.Discoverable {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	result := make(map[string]component.Discoverable, len(cm.components))
	for name, mc := range cm.components {
		result[name] = mc.Component
	}
	return result
}

// StartOrder returns the instance names in the order they were started
func (cm *ComponentManager) StartOrder() []string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return append([]string(nil), cm.startOrder...)
}

// IsStarted reports whether Start has succeeded and Stop has not run since
func (cm *ComponentManager) IsStarted() bool {
	return cm.started.Load()
}

// ComponentStatus combines lifecycle state with the component's own health
type ComponentStatus struct {
	Name      string                 `json:"name"`
	Type      string                 `json:"type"`
	State     string                 `json:"state"`
	LastError string                 `json:"last_error,omitempty"`
	Health    component.HealthStatus `json:"health"`
	DataFlow  component.FlowMetrics  `json:"data_flow"`
}

// GetComponentStatus returns the status of every managed component
func (cm *ComponentManager) GetComponentStatus() map[string]ComponentStatus {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	result := make(map[string]ComponentStatus, len(cm.components))
	for name, mc := range cm.components {
		status := ComponentStatus{
			Name:     name,
			Type:     mc.Component.Meta().Type,
			State:    mc.State.String(),
			Health:   mc.Component.Health(),
			DataFlow: mc.Component.DataFlow(),
		}
		if mc.LastError != nil {
			status.LastError = mc.LastError.Error()
		}
		result[name] = status
	}
	return result
}

// Health reports whether the manager is running with no unhealthy
// component. Degraded components still count as serving. The detail is the
// aggregated health.Status tree. Its signature matches metric.HealthFunc.
func (cm *ComponentManager) Health() (bool, any) {
	cm.mu.RLock()
	subs := make([]health.Status, 0, len(cm.components))
	for _, name := range sortedNames(cm.components) {
		mc := cm.components[name]
		subs = append(subs, health.FromComponent(name, mc.State, mc.Component.Health(), mc.Component.DataFlow()))
	}
	cm.mu.RUnlock()

	agg := health.Aggregate("filestreams", subs)
	return cm.started.Load() && !agg.IsUnhealthy(), agg
}

// FlowGraph builds the connectivity graph of the managed components
func (cm *ComponentManager) FlowGraph() *flowgraph.FlowGraph {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	graph := flowgraph.NewFlowGraph()
	for _, name := range sortedNames(cm.components) {
		if err := graph.AddComponentNode(name, cm.components[name].Component); err != nil {
			cm.logger.Warn("Failed to add component to FlowGraph", "component", name, "error", err)
		}
	}
	if err := graph.ConnectComponentsByPatterns(); err != nil {
		cm.logger.Error("Failed to connect components in FlowGraph", "error", err)
	}
	return graph
}

// ValidateFlowConnectivity analyzes the flow graph for disconnected
// components and unconsumed ports
func (cm *ComponentManager) ValidateFlowConnectivity() *flowgraph.FlowAnalysisResult {
	return cm.FlowGraph().AnalyzeConnectivity()
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
