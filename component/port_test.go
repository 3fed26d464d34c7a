package component

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/filestreams/errors"
)

func TestPortTypes(t *testing.T) {
	tests := []struct {
		name       string
		port       Portable
		wantType   string
		resourceID string
	}{
		{"nats", NATSPort{Subject: "file.source"}, PortTypeNATS, "nats:file.source"},
		{"jetstream with stream", JetStreamPort{StreamName: "FILES", Subjects: []string{"file.>"}}, PortTypeJetStream, "jetstream:FILES"},
		{"jetstream subject only", JetStreamPort{Subjects: []string{"file.sink"}}, PortTypeJetStream, "jetstream:file.sink"},
		{"jetstream empty", JetStreamPort{}, PortTypeJetStream, "jetstream:unknown"},
		{"file", FilePort{Path: "/data/in", Pattern: "*.txt"}, PortTypeFile, "file:/data/in"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.port.Type())
			assert.Equal(t, tt.resourceID, tt.port.ResourceID())
			assert.False(t, tt.port.IsExclusive())
		})
	}
}

func TestPort_JSONRoundTrip(t *testing.T) {
	ports := []Port{
		{
			Name:      "output",
			Direction: DirectionOutput,
			Required:  true,
			Config: NATSPort{
				Subject:   "file.source",
				Interface: &InterfaceContract{Type: "message.FileReference", Version: "v1"},
			},
		},
		{
			Name:      "input",
			Direction: DirectionInput,
			Config:    JetStreamPort{StreamName: "FILES", Subjects: []string{"file.sink"}, ConsumerName: "sink"},
		},
		{
			Name:      "directory",
			Direction: DirectionInput,
			Config:    FilePort{Path: "/data/in", Pattern: "*.csv"},
		},
		{Name: "bare", Direction: DirectionOutput},
	}

	for _, p := range ports {
		t.Run(p.Name, func(t *testing.T) {
			data, err := json.Marshal(p)
			require.NoError(t, err)

			var got Port
			require.NoError(t, json.Unmarshal(data, &got))
			assert.Equal(t, p, got)
		})
	}
}

func TestPort_UnmarshalUnknownType(t *testing.T) {
	var p Port
	err := json.Unmarshal([]byte(`{"name":"x","config":{"type":"udp","data":{}}}`), &p)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestPort_Subject(t *testing.T) {
	assert.Equal(t, "file.source", Port{Config: NATSPort{Subject: "file.source"}}.Subject())
	assert.Equal(t, "file.sink", Port{Config: JetStreamPort{Subjects: []string{"file.sink", "x"}}}.Subject())
	assert.Equal(t, "", Port{Config: JetStreamPort{}}.Subject())
	assert.Equal(t, "", Port{Config: FilePort{Path: "/tmp"}}.Subject())
	assert.Equal(t, "", Port{}.Subject())
}

func TestBuildPortFromDefinition(t *testing.T) {
	nats := BuildPortFromDefinition(PortDefinition{
		Name: "in", Subject: "file.sink", Queue: "writers", Interface: "message.Message",
	}, DirectionInput)
	assert.Equal(t, DirectionInput, nats.Direction)
	assert.Equal(t, NATSPort{
		Subject:   "file.sink",
		Queue:     "writers",
		Interface: &InterfaceContract{Type: "message.Message", Version: "v1"},
	}, nats.Config)

	js := BuildPortFromDefinition(PortDefinition{
		Name: "in", Type: "jetstream", Subject: "file.sink", StreamName: "FILES", Consumer: "sink-a",
	}, DirectionInput)
	assert.Equal(t, JetStreamPort{StreamName: "FILES", Subjects: []string{"file.sink"}, ConsumerName: "sink-a"}, js.Config)
}

func TestMergePortConfigs(t *testing.T) {
	defaults := []Port{
		{Name: "output", Direction: DirectionOutput, Config: NATSPort{Subject: "file.source"}},
		{Name: "audit", Direction: DirectionOutput, Config: NATSPort{Subject: "file.audit"}},
	}
	overrides := []PortDefinition{
		{Name: "extra-b", Subject: "file.b"},
		{Name: "output", Type: "jetstream", Subject: "file.custom"},
		{Name: "extra-a", Subject: "file.a"},
	}

	merged := MergePortConfigs(defaults, overrides, DirectionOutput)
	require.Len(t, merged, 4)
	assert.Equal(t, "file.custom", merged[0].Subject())
	assert.Equal(t, PortTypeJetStream, merged[0].Config.Type())
	assert.Equal(t, "file.audit", merged[1].Subject())
	assert.Equal(t, "extra-b", merged[2].Name)
	assert.Equal(t, "extra-a", merged[3].Name)

	assert.Equal(t, defaults, MergePortConfigs(defaults, nil, DirectionOutput))
}
