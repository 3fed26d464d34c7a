package message

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/filestreams/errors"
)

func TestNewText(t *testing.T) {
	msg := NewText("this is a test",
		WithHeader(HeaderFilename, "test.txt"),
		WithSource("file-source"))

	assert.NotEmpty(t, msg.ID())
	assert.Equal(t, KindText, msg.Kind())
	assert.Equal(t, "this is a test", msg.Text())
	assert.Equal(t, ContentTypeText, msg.ContentType())
	assert.Equal(t, "test.txt", msg.Header(HeaderFilename))
	assert.Equal(t, "file-source", msg.Source())
	assert.False(t, msg.CreatedAt().IsZero())
	require.NoError(t, msg.Validate())
}

func TestContentTypeOverride(t *testing.T) {
	msg := NewText("x", WithHeader(HeaderContentType, "text/csv"))
	assert.Equal(t, "text/csv", msg.ContentType())

	bin := NewBytes([]byte{102, 111, 111})
	assert.Equal(t, ContentTypeOctetStream, bin.ContentType())
	assert.Equal(t, KindBytes, bin.Kind())
}

func TestHeadersAreCopied(t *testing.T) {
	msg := NewText("x", WithHeaders(Headers{"dir": "expression"}))

	h := msg.Headers()
	h["dir"] = "changed"

	assert.Equal(t, "expression", msg.Header("dir"))
	assert.Equal(t, Headers{"dir": "expression", HeaderContentType: ContentTypeText}, msg.Headers())
}

func TestReference(t *testing.T) {
	mod := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ref := FileReference{Path: "/in/test.txt", Name: "test.txt", Size: 21, ModTime: mod}

	msg, err := NewReference(ref)
	require.NoError(t, err)
	assert.Equal(t, KindReference, msg.Kind())
	assert.Equal(t, ContentTypeJSON, msg.ContentType())

	got, err := msg.Reference()
	require.NoError(t, err)
	if diff := cmp.Diff(ref, got); diff != "" {
		t.Errorf("reference mismatch (-want +got):\n%s", diff)
	}

	_, err = NewText("x").Reference()
	assert.True(t, errors.IsInvalid(err))
}

func TestMarkerJSON(t *testing.T) {
	start, err := json.Marshal(StartMarker("/in/test.txt"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"mark":"START","filePath":"/in/test.txt"}`, string(start))

	end, err := json.Marshal(EndMarker("/in/test.txt", 2))
	require.NoError(t, err)
	assert.JSONEq(t, `{"mark":"END","filePath":"/in/test.txt","lineCount":2}`, string(end))

	_, err = json.Marshal(FileMarker{Mark: "MIDDLE"})
	assert.Error(t, err)
}

func TestMarkerMessage(t *testing.T) {
	msg, err := NewMarker(EndMarker("/in/test.txt", 2))
	require.NoError(t, err)

	marker, err := msg.Marker()
	require.NoError(t, err)
	assert.Equal(t, MarkEnd, marker.Mark)
	assert.Equal(t, 2, marker.LineCount)

	_, err = msg.Reference()
	assert.Error(t, err)
}

func TestEncodeDecode(t *testing.T) {
	created := time.UnixMilli(1700000000123)
	orig := NewBytes([]byte{0, 1, 2, 255},
		WithHeaders(Headers{HeaderFilename: "a.bin", HeaderRelativePath: "sub/a.bin"}),
		WithTime(created),
		WithSource("file-source"))

	data, err := Encode(orig)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, orig.ID(), got.ID())
	assert.Equal(t, orig.Kind(), got.Kind())
	assert.Equal(t, orig.Payload(), got.Payload())
	assert.Equal(t, "file-source", got.Source())
	assert.True(t, created.Equal(got.CreatedAt()))
	if diff := cmp.Diff(orig.Headers(), got.Headers()); diff != "" {
		t.Errorf("headers mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"missing id", `{"kind":"text","payload":"eA=="}`},
		{"unknown kind", `{"id":"1","kind":"video","payload":"eA=="}`},
		{"reference not json", `{"id":"1","kind":"reference","payload":"eA=="}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}
