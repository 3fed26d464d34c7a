package bus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/filestreams/errors"
	"github.com/c360/filestreams/message"
	"github.com/c360/filestreams/metric"
	"github.com/c360/filestreams/natsclient"
)

// StreamConfig describes the JetStream stream that captures bus subjects
type StreamConfig struct {
	Name       string        `json:"name"`
	Subjects   []string      `json:"subjects"`
	MaxAge     time.Duration `json:"max_age"`
	Storage    string        `json:"storage"` // file or memory
	Replicas   int           `json:"replicas"`
	AckWait    time.Duration `json:"ack_wait"`
	MaxDeliver int           `json:"max_deliver"`
}

// DefaultStreamConfig captures every file.> subject
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Name:       "FILESTREAMS",
		Subjects:   []string{"file.>"},
		MaxAge:     24 * time.Hour,
		Storage:    "file",
		Replicas:   1,
		AckWait:    30 * time.Second,
		MaxDeliver: 5,
	}
}

func (c StreamConfig) toJetStream() jetstream.StreamConfig {
	storage := jetstream.FileStorage
	if c.Storage == "memory" {
		storage = jetstream.MemoryStorage
	}
	replicas := c.Replicas
	if replicas <= 0 {
		replicas = 1
	}
	return jetstream.StreamConfig{
		Name:      c.Name,
		Subjects:  c.Subjects,
		MaxAge:    c.MaxAge,
		Storage:   storage,
		Replicas:  replicas,
		Retention: jetstream.LimitsPolicy,
	}
}

// JetStream is a bus over a JetStream stream. Publishes wait for the server
// ack and every subscription is a durable consumer with explicit acks.
type JetStream struct {
	client  *natsclient.Client
	stream  StreamConfig
	logger  *slog.Logger
	metrics *metric.Metrics

	mu    sync.Mutex
	ready bool
}

// JetStreamOption configures a JetStream bus
type JetStreamOption func(*JetStream)

// WithJetStreamLogger sets the logger
func WithJetStreamLogger(logger *slog.Logger) JetStreamOption {
	return func(j *JetStream) {
		if logger != nil {
			j.logger = logger
		}
	}
}

// WithJetStreamMetrics records publish and delivery counts
func WithJetStreamMetrics(metrics *metric.Metrics) JetStreamOption {
	return func(j *JetStream) { j.metrics = metrics }
}

// NewJetStream creates a JetStream bus. Call Setup before use.
func NewJetStream(client *natsclient.Client, stream StreamConfig, opts ...JetStreamOption) *JetStream {
	j := &JetStream{client: client, stream: stream, logger: slog.Default()}
	for _, opt := range opts {
		opt(j)
	}
	j.logger = j.logger.With("component", "bus", "transport", TransportJetStream, "stream", stream.Name)
	return j
}

// Transport implements Bus
func (j *JetStream) Transport() string { return TransportJetStream }

// Setup creates or updates the stream
func (j *JetStream) Setup(ctx context.Context) error {
	if j.stream.Name == "" || len(j.stream.Subjects) == 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "JetStream", "Setup", "validate stream config")
	}
	if _, err := j.client.EnsureStream(ctx, j.stream.toJetStream()); err != nil {
		return errors.WrapTransient(err, "JetStream", "Setup", "ensure stream "+j.stream.Name)
	}

	j.mu.Lock()
	j.ready = true
	j.mu.Unlock()

	j.logger.Info("stream ready", "subjects", j.stream.Subjects)
	return nil
}

func (j *JetStream) isReady() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.ready
}

// Publish encodes msg and publishes it into the stream
func (j *JetStream) Publish(ctx context.Context, subject string, msg *message.Message) error {
	if !j.isReady() {
		return errors.WrapFatal(errors.ErrNotStarted, "JetStream", "Publish", "check setup")
	}
	if !ValidSubject(subject) {
		return errors.WrapInvalid(errors.ErrInvalidData, "JetStream", "Publish", "validate subject "+subject)
	}
	data, err := message.Encode(msg)
	if err != nil {
		return errors.WrapInvalid(err, "JetStream", "Publish", "encode message")
	}
	if err := j.client.PublishToStream(ctx, subject, data); err != nil {
		return errors.WrapTransient(err, "JetStream", "Publish", "publish to "+subject)
	}
	if j.metrics != nil {
		j.metrics.RecordPublished(TransportJetStream, subject)
	}
	return nil
}

// Subscribe creates or resumes a durable consumer filtered on subject. The
// consumer name comes from WithDurable, or is derived from the subject.
func (j *JetStream) Subscribe(
	ctx context.Context, subject string, handler Handler, opts ...SubscribeOption,
) (Subscription, error) {
	if !j.isReady() {
		return nil, errors.WrapFatal(errors.ErrNotStarted, "JetStream", "Subscribe", "check setup")
	}
	if subject == "" || handler == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "JetStream", "Subscribe", "validate subscription")
	}
	o := applyOptions(opts)
	streamName := j.stream.Name
	if o.Stream != "" {
		streamName = o.Stream
	}
	durable := o.Durable
	if durable == "" {
		durable = DurableName("filestreams", subject)
	}

	js, err := j.client.JetStream()
	if err != nil {
		return nil, err
	}
	stream, err := js.Stream(ctx, streamName)
	if err != nil {
		return nil, errors.WrapTransient(err, "JetStream", "Subscribe", "get stream "+streamName)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       durable,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       j.stream.AckWait,
		MaxDeliver:    j.stream.MaxDeliver,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "JetStream", "Subscribe", "create consumer "+durable)
	}

	cc, err := consumer.Consume(func(m jetstream.Msg) {
		j.deliver(ctx, subject, m, handler)
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "JetStream", "Subscribe", "consume "+durable)
	}

	j.logger.Info("consumer started", "subject", subject, "durable", durable)
	return &jetStreamSubscription{subject: subject, cc: cc}, nil
}

// deliver maps the handler result onto the ack protocol.
func (j *JetStream) deliver(ctx context.Context, subject string, m jetstream.Msg, handler Handler) {
	msg, err := message.Decode(m.Data())
	if err != nil {
		j.logger.Warn("terminating undecodable message", "subject", m.Subject(), "error", err)
		_ = m.Term()
		if j.metrics != nil {
			j.metrics.RecordDelivered(TransportJetStream, subject, err)
		}
		return
	}

	err = handler(ctx, msg)
	switch {
	case err == nil:
		if ackErr := m.Ack(); ackErr != nil {
			j.logger.Warn("ack failed", "message_id", msg.ID(), "error", ackErr)
		}
	case errors.IsInvalid(err):
		j.logger.Debug("terminating message", "message_id", msg.ID(), "error", err)
		_ = m.Term()
	default:
		j.logger.Debug("requesting redelivery", "message_id", msg.ID(), "error", err)
		_ = m.Nak()
	}
	if j.metrics != nil {
		j.metrics.RecordDelivered(TransportJetStream, subject, err)
	}
}

// Close is a no-op; consumers are stopped through their subscriptions and
// the client is closed by its owner.
func (j *JetStream) Close() error { return nil }

type jetStreamSubscription struct {
	subject string
	cc      jetstream.ConsumeContext
	once    sync.Once
}

func (s *jetStreamSubscription) Subject() string { return s.subject }

// Unsubscribe stops pulling and waits for buffered messages to be handled.
// The durable consumer stays on the server so a later Subscribe resumes it.
func (s *jetStreamSubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.cc.Drain()
		select {
		case <-s.cc.Closed():
		case <-time.After(10 * time.Second):
			s.cc.Stop()
		}
	})
	return nil
}
