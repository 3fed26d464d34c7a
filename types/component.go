// Package types contains shared types used across filestreams packages
package types

import (
	"encoding/json"
	"fmt"

	"github.com/c360/filestreams/errors"
)

// ComponentType represents the category of a component
type ComponentType string

// Component type constants
const (
	ComponentTypeInput     ComponentType = "input"
	ComponentTypeProcessor ComponentType = "processor"
	ComponentTypeOutput    ComponentType = "output"
)

// String implements fmt.Stringer for ComponentType
func (ct ComponentType) String() string {
	return string(ct)
}

// ComponentConfig provides configuration for creating a component instance.
// The instance name is the key in the components map of the application config.
type ComponentConfig struct {
	Type    ComponentType   `json:"type"`    // input, processor or output
	Name    string          `json:"name"`    // factory name, e.g. "file-source"
	Enabled bool            `json:"enabled"` // disabled components are skipped
	Config  json.RawMessage `json:"config"`  // component-specific configuration
}

// Validate ensures the component configuration is valid
func (c ComponentConfig) Validate() error {
	if c.Type == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "ComponentConfig", "Validate",
			"component type cannot be empty")
	}
	if c.Name == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "ComponentConfig", "Validate",
			"component factory name cannot be empty")
	}

	switch c.Type {
	case ComponentTypeInput, ComponentTypeProcessor, ComponentTypeOutput:
		return nil
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "ComponentConfig", "Validate",
			fmt.Sprintf("invalid component type: %s", c.Type))
	}
}

// PlatformMeta provides platform identity to components without importing
// the config package.
type PlatformMeta struct {
	ID        string // platform identifier, used in durable consumer names
	Transport string // "memory" or "nats"
}
