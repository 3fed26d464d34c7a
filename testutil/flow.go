package testutil

import (
	"encoding/json"
	"testing"

	"github.com/c360/filestreams/config"
	"github.com/c360/filestreams/types"
)

// FlowBuilder assembles the components section of an application config
type FlowBuilder struct {
	t          testing.TB
	components config.ComponentConfigs
}

// NewFlowBuilder creates an empty builder
func NewFlowBuilder(t testing.TB) *FlowBuilder {
	return &FlowBuilder{t: t, components: make(config.ComponentConfigs)}
}

// AddInput adds an enabled input instance
func (fb *FlowBuilder) AddInput(instance, factory string, cfg map[string]any) *FlowBuilder {
	return fb.add(instance, types.ComponentTypeInput, factory, cfg)
}

// AddOutput adds an enabled output instance
func (fb *FlowBuilder) AddOutput(instance, factory string, cfg map[string]any) *FlowBuilder {
	return fb.add(instance, types.ComponentTypeOutput, factory, cfg)
}

func (fb *FlowBuilder) add(instance string, kind types.ComponentType, factory string, cfg map[string]any) *FlowBuilder {
	fb.t.Helper()

	raw, err := json.Marshal(cfg)
	if err != nil {
		fb.t.Fatalf("marshal config for %s: %v", instance, err)
	}
	fb.components[instance] = types.ComponentConfig{
		Type:    kind,
		Name:    factory,
		Enabled: true,
		Config:  raw,
	}
	return fb
}

// Build returns the component configs
func (fb *FlowBuilder) Build() config.ComponentConfigs {
	return fb.components
}

// Config returns the memory-transport defaults with the built components
func (fb *FlowBuilder) Config() *config.Config {
	cfg := config.Defaults()
	cfg.Components = fb.components
	return cfg
}
