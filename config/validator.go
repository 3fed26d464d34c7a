package config

import (
	"github.com/c360/filestreams/component"
)

// ComponentRegistry defines the interface needed for schema validation
type ComponentRegistry interface {
	GetComponentSchema(componentType string) (component.ConfigSchema, error)
}

// ValidateComponents checks every enabled component config against the
// schema of its factory. The result maps instance names to their
// violations; unknown factories are reported as a single "factory" error.
func ValidateComponents(cfg *Config, registry ComponentRegistry) map[string][]component.ValidationError {
	result := make(map[string][]component.ValidationError)

	for name, cc := range cfg.EnabledComponents() {
		schema, err := registry.GetComponentSchema(cc.Name)
		if err != nil {
			result[name] = []component.ValidationError{{
				Field:   "name",
				Message: "unknown component factory " + cc.Name,
				Code:    "factory",
			}}
			continue
		}
		if len(schema.Properties) == 0 {
			continue
		}
		if verrs := component.ValidateConfig(cc.Config, schema); len(verrs) > 0 {
			result[name] = verrs
		}
	}

	return result
}
