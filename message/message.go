package message

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/c360/filestreams/errors"
)

// Kind identifies how a message payload should be interpreted.
type Kind string

const (
	// KindBytes is an opaque binary payload.
	KindBytes Kind = "bytes"
	// KindText is a UTF-8 text payload.
	KindText Kind = "text"
	// KindReference is a JSON encoded FileReference.
	KindReference Kind = "reference"
	// KindMarker is a JSON encoded FileMarker.
	KindMarker Kind = "marker"
)

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindBytes, KindText, KindReference, KindMarker:
		return true
	}
	return false
}

// Well-known header names.
const (
	HeaderFilename     = "filename"
	HeaderRelativePath = "relativePath"
	HeaderOriginalFile = "originalFileRef"
	HeaderContentType  = "contentType"
	HeaderLineNumber   = "lineNumber"
)

// Content types used by the file pipelines.
const (
	ContentTypeJSON        = "application/json"
	ContentTypeText        = "text/plain"
	ContentTypeOctetStream = "application/octet-stream"
)

// Headers is a set of message headers.
type Headers map[string]string

// Get returns the value of key, or "" when absent.
func (h Headers) Get(key string) string {
	return h[key]
}

// Clone returns an independent copy.
func (h Headers) Clone() Headers {
	if h == nil {
		return Headers{}
	}
	return maps.Clone(h)
}

// Message is an immutable unit of data moving between components. All
// fields are set at construction.
type Message struct {
	id        string
	kind      Kind
	payload   []byte
	headers   Headers
	createdAt time.Time
	source    string
}

// Option configures a Message at construction.
type Option func(*Message)

// WithHeaders merges headers into the message headers.
func WithHeaders(h Headers) Option {
	return func(m *Message) {
		for k, v := range h {
			m.headers[k] = v
		}
	}
}

// WithHeader sets a single header.
func WithHeader(key, value string) Option {
	return func(m *Message) {
		m.headers[key] = value
	}
}

// WithTime sets the creation timestamp instead of time.Now().
func WithTime(createdAt time.Time) Option {
	return func(m *Message) {
		m.createdAt = createdAt
	}
}

// WithSource records the component that created the message.
func WithSource(source string) Option {
	return func(m *Message) {
		m.source = source
	}
}

// New creates a message of the given kind. The payload slice is owned by the
// message afterwards and must not be modified by the caller.
func New(kind Kind, payload []byte, opts ...Option) *Message {
	m := &Message{
		id:        uuid.New().String(),
		kind:      kind,
		payload:   payload,
		headers:   Headers{},
		createdAt: time.Now(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewText creates a text message with a text/plain content type unless the
// options set another one.
func NewText(text string, opts ...Option) *Message {
	opts = append([]Option{WithHeader(HeaderContentType, ContentTypeText)}, opts...)
	return New(KindText, []byte(text), opts...)
}

// NewBytes creates a binary message.
func NewBytes(data []byte, opts ...Option) *Message {
	opts = append([]Option{WithHeader(HeaderContentType, ContentTypeOctetStream)}, opts...)
	return New(KindBytes, data, opts...)
}

// NewReference creates a message carrying a JSON FileReference.
func NewReference(ref FileReference, opts ...Option) (*Message, error) {
	data, err := json.Marshal(ref)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Message", "NewReference", "marshal file reference")
	}
	opts = append([]Option{WithHeader(HeaderContentType, ContentTypeJSON)}, opts...)
	return New(KindReference, data, opts...), nil
}

// NewMarker creates a message carrying a JSON FileMarker.
func NewMarker(marker FileMarker, opts ...Option) (*Message, error) {
	data, err := json.Marshal(marker)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Message", "NewMarker", "marshal file marker")
	}
	opts = append([]Option{WithHeader(HeaderContentType, ContentTypeJSON)}, opts...)
	return New(KindMarker, data, opts...), nil
}

// ID returns the unique message identifier.
func (m *Message) ID() string { return m.id }

// Kind returns the payload kind.
func (m *Message) Kind() Kind { return m.kind }

// Payload returns the raw payload. Callers must not modify it.
func (m *Message) Payload() []byte { return m.payload }

// Text returns the payload as a string.
func (m *Message) Text() string { return string(m.payload) }

// Headers returns a copy of the message headers.
func (m *Message) Headers() Headers { return m.headers.Clone() }

// Header returns a single header value.
func (m *Message) Header(key string) string { return m.headers.Get(key) }

// ContentType returns the contentType header.
func (m *Message) ContentType() string { return m.headers.Get(HeaderContentType) }

// CreatedAt returns the creation time.
func (m *Message) CreatedAt() time.Time { return m.createdAt }

// Source returns the creating component, if recorded.
func (m *Message) Source() string { return m.source }

// Reference decodes a reference payload.
func (m *Message) Reference() (FileReference, error) {
	var ref FileReference
	if m.kind != KindReference {
		return ref, errors.WrapInvalid(fmt.Errorf("message kind is %s", m.kind),
			"Message", "Reference", "kind check")
	}
	if err := json.Unmarshal(m.payload, &ref); err != nil {
		return ref, errors.WrapInvalid(err, "Message", "Reference", "decode file reference")
	}
	return ref, nil
}

// Marker decodes a marker payload.
func (m *Message) Marker() (FileMarker, error) {
	var marker FileMarker
	if m.kind != KindMarker {
		return marker, errors.WrapInvalid(fmt.Errorf("message kind is %s", m.kind),
			"Message", "Marker", "kind check")
	}
	if err := json.Unmarshal(m.payload, &marker); err != nil {
		return marker, errors.WrapInvalid(err, "Message", "Marker", "decode file marker")
	}
	return marker, nil
}

// Validate checks the message is well formed.
func (m *Message) Validate() error {
	if m.id == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "Message", "Validate", "empty id")
	}
	if !m.kind.IsValid() {
		return errors.WrapInvalid(errors.ErrInvalidData, "Message", "Validate",
			fmt.Sprintf("unknown kind %q", m.kind))
	}
	if m.kind == KindReference || m.kind == KindMarker {
		if !json.Valid(m.payload) {
			return errors.WrapInvalid(errors.ErrInvalidData, "Message", "Validate",
				fmt.Sprintf("%s payload is not JSON", m.kind))
		}
	}
	return nil
}

// wireFormat is the JSON representation used on network transports.
type wireFormat struct {
	ID      string         `json:"id"`
	Kind    Kind           `json:"kind"`
	Payload []byte         `json:"payload"`
	Headers Headers        `json:"headers,omitempty"`
	Meta    map[string]any `json:"meta"`
}

// MarshalJSON implements json.Marshaler.
func (m *Message) MarshalJSON() ([]byte, error) {
	meta := map[string]any{
		"created_at": m.createdAt.UnixMilli(),
	}
	if m.source != "" {
		meta["source"] = m.source
	}
	return json.Marshal(wireFormat{
		ID:      m.id,
		Kind:    m.kind,
		Payload: m.payload,
		Headers: m.headers,
		Meta:    meta,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Message) UnmarshalJSON(data []byte) error {
	var wire wireFormat
	if err := json.Unmarshal(data, &wire); err != nil {
		return errors.WrapInvalid(err, "Message", "UnmarshalJSON", "failed to unmarshal wire format")
	}

	m.id = wire.ID
	m.kind = wire.Kind
	m.payload = wire.Payload
	m.headers = wire.Headers
	if m.headers == nil {
		m.headers = Headers{}
	}
	m.createdAt = time.Time{}
	m.source = ""

	switch v := wire.Meta["created_at"].(type) {
	case float64:
		m.createdAt = time.UnixMilli(int64(v))
	case string:
		if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
			m.createdAt = ts
		}
	}
	if source, ok := wire.Meta["source"].(string); ok {
		m.source = source
	}

	return m.Validate()
}

// Encode serializes a message for a network transport.
func Encode(m *Message) ([]byte, error) {
	return json.Marshal(m)
}

// Decode parses a message produced by Encode.
func Decode(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		if errors.IsInvalid(err) {
			return nil, err
		}
		return nil, errors.WrapInvalid(err, "Message", "Decode", "unmarshal message")
	}
	return &m, nil
}
