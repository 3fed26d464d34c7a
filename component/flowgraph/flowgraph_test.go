package flowgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/filestreams/component"
)

type stubComponent struct {
	inputs  []component.Port
	outputs []component.Port
}

func (s *stubComponent) Meta() component.Metadata             { return component.Metadata{} }
func (s *stubComponent) InputPorts() []component.Port         { return s.inputs }
func (s *stubComponent) OutputPorts() []component.Port        { return s.outputs }
func (s *stubComponent) ConfigSchema() component.ConfigSchema { return component.ConfigSchema{} }
func (s *stubComponent) Health() component.HealthStatus       { return component.HealthStatus{} }
func (s *stubComponent) DataFlow() component.FlowMetrics      { return component.FlowMetrics{} }

func natsPort(name string, dir component.Direction, subject, iface string, required bool) component.Port {
	cfg := component.NATSPort{Subject: subject}
	if iface != "" {
		cfg.Interface = &component.InterfaceContract{Type: iface}
	}
	return component.Port{Name: name, Direction: dir, Required: required, Config: cfg}
}

func filePort(name string, dir component.Direction, path string) component.Port {
	return component.Port{Name: name, Direction: dir, Config: component.FilePort{Path: path}}
}

func source(subject string) *stubComponent {
	return &stubComponent{
		inputs:  []component.Port{filePort("directory", component.DirectionInput, "/data/in")},
		outputs: []component.Port{natsPort("output", component.DirectionOutput, subject, "message.Message", true)},
	}
}

func sink(subject string) *stubComponent {
	return &stubComponent{
		inputs:  []component.Port{natsPort("input", component.DirectionInput, subject, "message.Message", true)},
		outputs: []component.Port{filePort("directory", component.DirectionOutput, "/data/out")},
	}
}

func build(t *testing.T, comps map[string]component.Discoverable) (*FlowGraph, error) {
	t.Helper()
	g := NewFlowGraph()
	for name, c := range comps {
		require.NoError(t, g.AddComponentNode(name, c))
	}
	return g, g.ConnectComponentsByPatterns()
}

func TestSourceToSink(t *testing.T) {
	g, err := build(t, map[string]component.Discoverable{
		"reader": source("file.lines"),
		"writer": sink("file.lines"),
	})
	require.NoError(t, err)

	edges := g.GetEdges()
	require.Len(t, edges, 1)
	assert.Equal(t, "reader.output", edges[0].From.String())
	assert.Equal(t, "writer.input", edges[0].To.String())
	assert.Equal(t, "file.lines", edges[0].ConnectionID)
	assert.Equal(t, "message.Message", edges[0].Interface)

	result := g.AnalyzeConnectivity()
	assert.Equal(t, StatusHealthy, result.ValidationStatus)
	assert.Equal(t, [][]string{{"reader", "writer"}}, result.ConnectedComponents)
	assert.Empty(t, result.OrphanedPorts)
	assert.Empty(t, result.DisconnectedNodes)
}

func TestWildcardSubscriber(t *testing.T) {
	g, err := build(t, map[string]component.Discoverable{
		"csv":    source("file.csv.lines"),
		"json":   source("file.json.lines"),
		"writer": sink("file.*.lines"),
		"audit":  sink("file.>"),
	})
	require.NoError(t, err)

	assert.Len(t, g.GetEdges(), 4)
	result := g.AnalyzeConnectivity()
	assert.Equal(t, StatusHealthy, result.ValidationStatus)
	assert.Len(t, result.ConnectedComponents, 1)
}

func TestOrphanedRequiredPort(t *testing.T) {
	g, err := build(t, map[string]component.Discoverable{
		"reader": source("file.a"),
		"writer": sink("file.b"),
	})
	require.NoError(t, err)
	assert.Empty(t, g.GetEdges())

	result := g.AnalyzeConnectivity()
	assert.Equal(t, StatusWarnings, result.ValidationStatus)
	require.Len(t, result.OrphanedPorts, 2)
	assert.Equal(t, "no_subscribers", result.OrphanedPorts[0].Issue)
	assert.Equal(t, "reader", result.OrphanedPorts[0].ComponentName)
	assert.Equal(t, "no_publishers", result.OrphanedPorts[1].Issue)
	assert.Equal(t, [][]string{{"reader"}, {"writer"}}, result.ConnectedComponents)

	// Both have a directory port, so neither counts as disconnected.
	assert.Empty(t, result.DisconnectedNodes)
}

func TestDisconnectedNode(t *testing.T) {
	lonely := &stubComponent{
		outputs: []component.Port{natsPort("out", component.DirectionOutput, "nowhere", "", false)},
	}
	g, err := build(t, map[string]component.Discoverable{"lonely": lonely})
	require.NoError(t, err)

	result := g.AnalyzeConnectivity()
	assert.Equal(t, StatusWarnings, result.ValidationStatus)
	require.Len(t, result.DisconnectedNodes, 1)
	assert.Equal(t, "lonely", result.DisconnectedNodes[0].ComponentName)
	require.Len(t, result.OrphanedPorts, 1)
	assert.False(t, result.OrphanedPorts[0].Required)
}

func TestInterfaceMismatch(t *testing.T) {
	src := source("file.refs")
	src.outputs[0] = natsPort("output", component.DirectionOutput, "file.refs", "message.FileReference", true)

	g, err := build(t, map[string]component.Discoverable{
		"reader": src,
		"writer": sink("file.refs"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reader.output")
	assert.Len(t, g.GetEdges(), 1)
}

func TestInterfaceCompatibleList(t *testing.T) {
	out := &component.InterfaceContract{Type: "message.FileReference"}
	in := &component.InterfaceContract{Type: "message.Message", Compatible: []string{"message.FileReference"}}

	assert.True(t, compatible(out, in))
	assert.True(t, compatible(nil, in))
	assert.False(t, compatible(&component.InterfaceContract{Type: "x"}, in))
}

func TestJetStreamPortsMatchBySubject(t *testing.T) {
	producer := &stubComponent{outputs: []component.Port{{
		Name: "output", Direction: component.DirectionOutput,
		Config: component.JetStreamPort{StreamName: "FILESTREAMS", Subjects: []string{"file.lines"}},
	}}}
	consumer := &stubComponent{inputs: []component.Port{{
		Name: "input", Direction: component.DirectionInput,
		Config: component.JetStreamPort{StreamName: "FILESTREAMS", Subjects: []string{"file.>"}},
	}}}

	g, err := build(t, map[string]component.Discoverable{"p": producer, "c": consumer})
	require.NoError(t, err)
	require.Len(t, g.GetEdges(), 1)
	assert.Equal(t, "file.lines", g.GetEdges()[0].ConnectionID)
}

func TestAddComponentNode_Errors(t *testing.T) {
	g := NewFlowGraph()
	assert.Error(t, g.AddComponentNode("", source("a")))
	assert.Error(t, g.AddComponentNode("a", nil))
	require.NoError(t, g.AddComponentNode("a", source("a")))
	assert.Error(t, g.AddComponentNode("a", source("a")))

	nodes := g.GetNodes()
	require.Contains(t, nodes, "a")
	nodes["a"].OutputPorts[0].ConnectionID = "mutated"
	assert.Equal(t, "a", g.GetNodes()["a"].OutputPorts[0].ConnectionID)
}
