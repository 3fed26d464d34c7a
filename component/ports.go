package component

// PortDefinition represents a port configuration from JSON
type PortDefinition struct {
	Name        string `json:"name"                    schema:"readonly,type:string,description:Port identifier"`
	Type        string `json:"type,omitempty"          schema:"editable,type:string,description:Port type (nats or jetstream)"`
	Subject     string `json:"subject,omitempty"       schema:"editable,type:string,description:Bus subject"`
	Queue       string `json:"queue,omitempty"         schema:"editable,type:string,description:NATS queue group for inputs"`
	Interface   string `json:"interface,omitempty"     schema:"readonly,type:string,description:Interface contract type"`
	Required    bool   `json:"required,omitempty"      schema:"readonly,type:bool,description:Whether port connection is required"`
	Description string `json:"description,omitempty"   schema:"readonly,type:string,description:Human-readable port description"`
	StreamName  string `json:"stream_name,omitempty"   schema:"editable,type:string,description:JetStream stream name"`
	Consumer    string `json:"consumer_name,omitempty" schema:"editable,type:string,description:JetStream durable consumer name"`
}

// PortConfig represents port configuration in component config
type PortConfig struct {
	Inputs  []PortDefinition `json:"inputs,omitempty"`
	Outputs []PortDefinition `json:"outputs,omitempty"`
}

// MergePortConfigs merges default ports with configured overrides
func MergePortConfigs(defaults []Port, overrides []PortDefinition, direction Direction) []Port {
	result := make([]Port, 0, len(defaults)+len(overrides))
	overrideMap := make(map[string]PortDefinition)
	var extra []PortDefinition

	for _, override := range overrides {
		overrideMap[override.Name] = override
	}

	for _, defaultPort := range defaults {
		if override, found := overrideMap[defaultPort.Name]; found {
			result = append(result, BuildPortFromDefinition(override, direction))
			delete(overrideMap, defaultPort.Name)
		} else {
			result = append(result, defaultPort)
		}
	}

	// Keep configuration order for additional ports
	for _, override := range overrides {
		if _, pending := overrideMap[override.Name]; pending {
			extra = append(extra, override)
			delete(overrideMap, override.Name)
		}
	}
	for _, def := range extra {
		result = append(result, BuildPortFromDefinition(def, direction))
	}

	return result
}

// BuildPortFromDefinition creates a Port from a PortDefinition
func BuildPortFromDefinition(def PortDefinition, direction Direction) Port {
	port := Port{
		Name:        def.Name,
		Direction:   direction,
		Required:    def.Required,
		Description: def.Description,
	}

	var iface *InterfaceContract
	if def.Interface != "" {
		iface = &InterfaceContract{Type: def.Interface, Version: "v1"}
	}

	switch def.Type {
	case PortTypeJetStream:
		port.Config = JetStreamPort{
			StreamName:   def.StreamName,
			Subjects:     []string{def.Subject},
			ConsumerName: def.Consumer,
			Interface:    iface,
		}
	default: // Default to NATS pub/sub
		port.Config = NATSPort{
			Subject:   def.Subject,
			Queue:     def.Queue,
			Interface: iface,
		}
	}

	return port
}
