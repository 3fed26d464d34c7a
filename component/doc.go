// Package component provides the component infrastructure for filestreams:
// discovery, registration, lifecycle management and instance creation.
//
// # Overview
//
// Components are self-describing units that move data between the file
// system and the bus. Inputs (file-source) bring files onto the bus and
// outputs (file-sink) take messages off it. Each component reports its
// metadata, ports, configuration schema, health and data flow through the
// Discoverable interface.
//
// The Registry holds factories by name and the instances created from them.
//
// # Component Registration Pattern
//
// Registration is explicit rather than done from init():
//
//  1. Each component package exports a Register(*Registry) error function
//  2. componentregistry.RegisterAll() calls them in turn
//  3. main creates a Registry and calls RegisterAll()
//
// Example:
//
//	func Register(registry *component.Registry) error {
//		return registry.RegisterWithConfig(component.RegistrationConfig{
//			Name:        "file-sink",
//			Factory:     NewSink,
//			Schema:      sinkSchema,
//			Type:        "output",
//			Protocol:    "file",
//			Domain:      "storage",
//			Description: "Writes bus messages to files",
//			Version:     "1.0.0",
//		})
//	}
//
// # Creating Components
//
//	registry := component.NewRegistry()
//	if err := componentregistry.RegisterAll(registry); err != nil {
//		return err
//	}
//
//	comp, err := registry.CreateComponent("writer", types.ComponentConfig{
//		Type:    types.ComponentTypeOutput,
//		Name:    "file-sink",
//		Enabled: true,
//		Config:  json.RawMessage(`{"directory":"/data/out","name":"headers.filename"}`),
//	}, component.Dependencies{Bus: bus.NewMemory(), Logger: logger})
//
// CreateComponent checks the raw configuration for size, depth and control
// characters, validates it against the factory schema, and only then calls
// the factory. Factories parse configuration and must not perform I/O.
//
// # Lifecycle
//
// Components that implement LifecycleComponent are driven by the service
// layer:
//
//	Initialize() error                 // validate, allocate, no I/O
//	Start(ctx context.Context) error   // subscribe, open files, spawn goroutines
//	Stop(timeout time.Duration) error  // drain and release, idempotent
//
// Start before Initialize fails with a "not initialized" error. A second
// Start fails with errors.ErrAlreadyStarted. Stop may be called at any time.
// StandardLifecycleTests checks these rules for any implementation.
//
// # Ports
//
// Ports describe where a component reads and writes:
//
//   - NATSPort: a subject on the core bus (memory or NATS)
//   - JetStreamPort: a subject on a JetStream stream, at-least-once
//   - FilePort: a directory on the local file system
//
// Port subjects can be overridden from configuration with PortConfig;
// MergePortConfigs combines the defaults with the overrides.
// Dependencies.BusFor selects the bus a port should use.
//
// # Schemas
//
// Configuration schemas are generated from struct tags with
// GenerateConfigSchema and enforced with ValidateConfig, which renders the
// schema as JSON Schema.
//
// # Thread Safety
//
// Registry methods are safe for concurrent use. Components guard their own
// state; Health and DataFlow may be called while the component runs.
package component
