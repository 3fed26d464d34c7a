// Package bus moves messages between components over an in-process queue,
// NATS core or NATS JetStream.
package bus

import (
	"context"
	"strings"

	"github.com/c360/filestreams/message"
)

// Transport names, also used as metric labels
const (
	TransportMemory    = "memory"
	TransportNATS      = "nats"
	TransportJetStream = "jetstream"
)

// Handler processes a delivered message. On JetStream a nil return acks the
// message, an invalid-class error terminates it and any other error requests
// redelivery.
type Handler func(ctx context.Context, msg *message.Message) error

// Publisher sends messages to a subject
type Publisher interface {
	Publish(ctx context.Context, subject string, msg *message.Message) error
}

// Subscriber delivers messages published on subjects matching a pattern
type Subscriber interface {
	Subscribe(ctx context.Context, subject string, handler Handler, opts ...SubscribeOption) (Subscription, error)
}

// Subscription is an active subscription
type Subscription interface {
	Subject() string
	// Unsubscribe stops delivery. It must not be called from inside the
	// subscription's own handler.
	Unsubscribe() error
}

// Bus is a transport that both publishes and subscribes
type Bus interface {
	Publisher
	Subscriber
	Transport() string
	Close() error
}

// SubscribeOptions holds per-subscription settings. Each transport uses the
// fields that apply to it.
type SubscribeOptions struct {
	Queue    string // NATS queue group
	Durable  string // JetStream durable consumer name
	Stream   string // JetStream stream, defaults to the bus stream
	Capacity int    // memory queue capacity
}

// SubscribeOption configures a subscription
type SubscribeOption func(*SubscribeOptions)

// WithQueue joins a NATS queue group
func WithQueue(queue string) SubscribeOption {
	return func(o *SubscribeOptions) { o.Queue = queue }
}

// WithDurable names the JetStream durable consumer
func WithDurable(name string) SubscribeOption {
	return func(o *SubscribeOptions) { o.Durable = name }
}

// WithStream consumes from a specific JetStream stream
func WithStream(name string) SubscribeOption {
	return func(o *SubscribeOptions) { o.Stream = name }
}

// WithCapacity sets the memory queue capacity for this subscription
func WithCapacity(n int) SubscribeOption {
	return func(o *SubscribeOptions) { o.Capacity = n }
}

func applyOptions(opts []SubscribeOption) SubscribeOptions {
	var o SubscribeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// MatchSubject reports whether subject matches pattern using NATS wildcard
// rules: "*" matches exactly one token and a trailing ">" matches one or more.
func MatchSubject(pattern, subject string) bool {
	if pattern == subject {
		return true
	}

	pTokens := strings.Split(pattern, ".")
	sTokens := strings.Split(subject, ".")

	for i, p := range pTokens {
		if p == ">" {
			return i == len(pTokens)-1 && len(sTokens) > i
		}
		if i >= len(sTokens) {
			return false
		}
		if p != "*" && p != sTokens[i] {
			return false
		}
	}
	return len(pTokens) == len(sTokens)
}

// ValidSubject reports whether s is usable as a publish subject: non-empty
// tokens and no wildcards.
func ValidSubject(s string) bool {
	if s == "" {
		return false
	}
	for _, tok := range strings.Split(s, ".") {
		if tok == "" || tok == "*" || tok == ">" || strings.ContainsAny(tok, " \t\r\n") {
			return false
		}
	}
	return true
}

// DurableName derives a JetStream consumer name from a prefix and subject.
func DurableName(prefix, subject string) string {
	r := strings.NewReplacer(".", "_", "*", "any", ">", "all", " ", "_")
	name := r.Replace(subject)
	if prefix != "" {
		name = prefix + "_" + name
	}
	return name
}
