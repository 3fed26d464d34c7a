package component

import (
	"encoding/json"
	"fmt"

	"github.com/c360/filestreams/errors"
)

// Direction for data flow
type Direction string

// Direction constants for port data flow
const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
)

// Port type identifiers
const (
	PortTypeNATS      = "nats"
	PortTypeJetStream = "jetstream"
	PortTypeFile      = "file"
)

// Port describes any I/O interface
type Port struct {
	Name        string    `json:"name"`
	Direction   Direction `json:"direction"`
	Required    bool      `json:"required"`
	Description string    `json:"description"`
	Config      Portable  `json:"config"`
}

// Portable interface - minimal, no Get prefix (Go idiomatic)
type Portable interface {
	ResourceID() string // Unique identifier for conflict detection
	IsExclusive() bool  // Whether multiple components can share
	Type() string       // Port type identifier
}

// InterfaceContract defines expected message interface
type InterfaceContract struct {
	Type       string   `json:"type"`                 // e.g., "message.FileReference"
	Version    string   `json:"version,omitempty"`    // e.g., "v1"
	Compatible []string `json:"compatible,omitempty"` // Also accepts these
}

// Subject returns the bus subject of a NATS or JetStream port, or "" for
// ports that are not on the bus.
func (p Port) Subject() string {
	switch cfg := p.Config.(type) {
	case NATSPort:
		return cfg.Subject
	case JetStreamPort:
		if len(cfg.Subjects) > 0 {
			return cfg.Subjects[0]
		}
	}
	return ""
}

// MarshalJSON wraps Config with its type so it can be decoded again
func (p Port) MarshalJSON() ([]byte, error) {
	type PortAlias Port

	wrapper := struct {
		PortAlias
		Config json.RawMessage `json:"config"`
	}{
		PortAlias: (PortAlias)(p),
	}

	if p.Config != nil {
		configWithType := struct {
			Type string `json:"type"`
			Data any    `json:"data"`
		}{
			Type: p.Config.Type(),
			Data: p.Config,
		}

		configBytes, err := json.Marshal(configWithType)
		if err != nil {
			return nil, errors.Wrap(err, "Port", "MarshalJSON", "config marshaling")
		}
		wrapper.Config = configBytes
	}

	return json.Marshal(wrapper)
}

// UnmarshalJSON reconstructs the Portable config from its type tag
func (p *Port) UnmarshalJSON(data []byte) error {
	type PortAlias Port

	temp := struct {
		*PortAlias
		Config json.RawMessage `json:"config"`
	}{
		PortAlias: (*PortAlias)(p),
	}

	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}

	if len(temp.Config) == 0 || string(temp.Config) == "null" {
		p.Config = nil
		return nil
	}

	var configWrapper struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(temp.Config, &configWrapper); err != nil {
		return errors.Wrap(err, "Port", "UnmarshalJSON", "config wrapper unmarshaling")
	}

	switch configWrapper.Type {
	case PortTypeNATS:
		var natsConfig NATSPort
		if err := json.Unmarshal(configWrapper.Data, &natsConfig); err != nil {
			return errors.Wrap(err, "Port", "UnmarshalJSON", "nats config unmarshaling")
		}
		p.Config = natsConfig
	case PortTypeJetStream:
		var jsConfig JetStreamPort
		if err := json.Unmarshal(configWrapper.Data, &jsConfig); err != nil {
			return errors.Wrap(err, "Port", "UnmarshalJSON", "jetstream config unmarshaling")
		}
		p.Config = jsConfig
	case PortTypeFile:
		var fileConfig FilePort
		if err := json.Unmarshal(configWrapper.Data, &fileConfig); err != nil {
			return errors.Wrap(err, "Port", "UnmarshalJSON", "file config unmarshaling")
		}
		p.Config = fileConfig
	default:
		return errors.WrapInvalid(
			fmt.Errorf("unknown config type: %s", configWrapper.Type),
			"Port",
			"UnmarshalJSON",
			"config type validation",
		)
	}

	return nil
}
