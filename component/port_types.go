package component

import "strings"

// NATSPort is a core NATS subject, or an in-process subject on the memory
// transport. Inputs sharing a Queue split the messages between them.
type NATSPort struct {
	Subject   string             `json:"subject"`
	Queue     string             `json:"queue,omitempty"`
	Interface *InterfaceContract `json:"interface,omitempty"`
}

// JetStreamPort is a subject bound to a JetStream stream. Inputs consume
// through the durable ConsumerName.
type JetStreamPort struct {
	StreamName   string             `json:"stream_name,omitempty"`
	Subjects     []string           `json:"subjects"`
	ConsumerName string             `json:"consumer_name,omitempty"`
	Interface    *InterfaceContract `json:"interface,omitempty"`
}

// FilePort is the directory a file source reads or a file sink writes. It
// never takes part in subject matching.
type FilePort struct {
	Path    string `json:"path"`
	Pattern string `json:"pattern,omitempty"`
}

func (n NATSPort) ResourceID() string { return "nats:" + n.Subject }
func (n NATSPort) IsExclusive() bool  { return false }
func (n NATSPort) Type() string       { return PortTypeNATS }

// ResourceID prefers the stream name so that ports on one stream share a
// resource
func (j JetStreamPort) ResourceID() string {
	switch {
	case j.StreamName != "":
		return "jetstream:" + j.StreamName
	case len(j.Subjects) > 0:
		return "jetstream:" + strings.Join(j.Subjects, ",")
	default:
		return "jetstream:unknown"
	}
}
func (j JetStreamPort) IsExclusive() bool { return false }
func (j JetStreamPort) Type() string      { return PortTypeJetStream }

func (f FilePort) ResourceID() string { return "file:" + f.Path }

// IsExclusive is false: several sinks may write into one directory
func (f FilePort) IsExclusive() bool { return false }
func (f FilePort) Type() string      { return PortTypeFile }
