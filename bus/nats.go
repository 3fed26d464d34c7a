package bus

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/c360/filestreams/errors"
	"github.com/c360/filestreams/message"
	"github.com/c360/filestreams/metric"
	"github.com/c360/filestreams/natsclient"
)

// NATS is a bus over core NATS pub/sub. Delivery is at-most-once and handler
// errors are only logged and counted.
type NATS struct {
	client  *natsclient.Client
	logger  *slog.Logger
	metrics *metric.Metrics
}

// NATSOption configures a NATS bus
type NATSOption func(*NATS)

// WithNATSLogger sets the logger
func WithNATSLogger(logger *slog.Logger) NATSOption {
	return func(n *NATS) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithNATSMetrics records publish and delivery counts
func WithNATSMetrics(metrics *metric.Metrics) NATSOption {
	return func(n *NATS) { n.metrics = metrics }
}

// NewNATS creates a bus on an existing client. The client is owned by the
// caller and is not closed by Close.
func NewNATS(client *natsclient.Client, opts ...NATSOption) *NATS {
	n := &NATS{client: client, logger: slog.Default()}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = n.logger.With("component", "bus", "transport", TransportNATS)
	return n
}

// Transport implements Bus
func (n *NATS) Transport() string { return TransportNATS }

// Publish encodes msg and publishes it on subject
func (n *NATS) Publish(ctx context.Context, subject string, msg *message.Message) error {
	if !ValidSubject(subject) {
		return errors.WrapInvalid(errors.ErrInvalidData, "NATS", "Publish", "validate subject "+subject)
	}
	data, err := message.Encode(msg)
	if err != nil {
		return errors.WrapInvalid(err, "NATS", "Publish", "encode message")
	}
	if err := n.client.Publish(ctx, subject, data); err != nil {
		return errors.WrapTransient(err, "NATS", "Publish", "publish to "+subject)
	}
	if n.metrics != nil {
		n.metrics.RecordPublished(TransportNATS, subject)
	}
	return nil
}

// Subscribe registers handler on subject. WithQueue joins a queue group.
func (n *NATS) Subscribe(
	ctx context.Context, subject string, handler Handler, opts ...SubscribeOption,
) (Subscription, error) {
	if subject == "" || handler == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "NATS", "Subscribe", "validate subscription")
	}
	o := applyOptions(opts)

	sub, err := n.client.Subscribe(subject, o.Queue, func(m *nats.Msg) {
		msg, err := message.Decode(m.Data)
		if err != nil {
			n.logger.Warn("dropping undecodable message", "subject", m.Subject, "error", err)
			if n.metrics != nil {
				n.metrics.RecordDelivered(TransportNATS, subject, err)
			}
			return
		}
		err = handler(ctx, msg)
		if err != nil {
			n.logger.Debug("handler returned error",
				"subject", m.Subject, "message_id", msg.ID(), "error", err)
		}
		if n.metrics != nil {
			n.metrics.RecordDelivered(TransportNATS, subject, err)
		}
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "NATS", "Subscribe", "subscribe to "+subject)
	}
	return &natsSubscription{subject: subject, sub: sub}, nil
}

// Close is a no-op; the client is closed by its owner.
func (n *NATS) Close() error { return nil }

type natsSubscription struct {
	subject string
	sub     *nats.Subscription
}

func (s *natsSubscription) Subject() string { return s.subject }

// Unsubscribe drains pending messages before removing interest.
func (s *natsSubscription) Unsubscribe() error {
	if err := s.sub.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) &&
		!errors.Is(err, nats.ErrBadSubscription) {
		return errors.WrapTransient(err, "NATS", "Unsubscribe", "drain "+s.subject)
	}
	return nil
}
