package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/filestreams/bus"
	"github.com/c360/filestreams/component"
	"github.com/c360/filestreams/component/flowgraph"
	"github.com/c360/filestreams/componentregistry"
	"github.com/c360/filestreams/config"
	"github.com/c360/filestreams/health"
	"github.com/c360/filestreams/metric"
	"github.com/c360/filestreams/testutil"
)

// linesPipeline wires a lines-mode file source to an appending file sink
// over subject. Each source file becomes a file of the same name in outDir.
func linesPipeline(t *testing.T, inDir, outDir, subject string, port map[string]any) config.ComponentConfigs {
	t.Helper()

	out := map[string]any{"name": "output", "subject": subject, "interface": "message.Message", "required": true}
	in := map[string]any{"name": "input", "subject": subject, "interface": "message.Message", "required": true}
	for k, v := range port {
		out[k] = v
		in[k] = v
	}

	return testutil.NewFlowBuilder(t).
		AddInput("reader", "file-source", map[string]any{
			"directory": inDir,
			"consumer":  map[string]any{"mode": "lines", "max_line_bytes": 1024},
			"trigger":   map[string]any{"fixed_delay": 20, "time_unit": "milliseconds"},
			"ports":     map[string]any{"outputs": []any{out}},
		}).
		AddOutput("writer", "file-sink", map[string]any{
			"directory":       outDir,
			"name_expression": "headers.filename",
			"mode":            "append",
			"ports":           map[string]any{"inputs": []any{in}},
		}).
		Build()
}

func startPipeline(t *testing.T, configs config.ComponentConfigs, deps Dependencies) *ComponentManager {
	t.Helper()

	registry := component.NewRegistry()
	require.NoError(t, componentregistry.Register(registry))

	cm, err := NewComponentManager(registry, configs, deps)
	require.NoError(t, err)
	require.NoError(t, cm.Initialize())
	require.NoError(t, cm.Start(context.Background()))
	t.Cleanup(func() { _ = cm.Stop(5 * time.Second) })
	return cm
}

func waitForContent(t *testing.T, path, want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(path)
		return err == nil && string(data) == want
	}, 5*time.Second, 20*time.Millisecond, "waiting for %s", path)
}

func TestPipeline_MemoryBus(t *testing.T) {
	inDir, outDir := t.TempDir(), t.TempDir()
	testutil.WriteFile(t, inDir, "first.txt", []byte("one\ntwo\n"))

	cm := startPipeline(t, linesPipeline(t, inDir, outDir, "file.lines", nil), Dependencies{
		Bus:             bus.NewMemory(),
		MetricsRegistry: metric.NewMetricsRegistry(),
	})

	assert.Equal(t, []string{"writer", "reader"}, cm.StartOrder())
	waitForContent(t, filepath.Join(outDir, "first.txt"), "one\ntwo\n")

	// Files arriving later flow through as well
	testutil.WriteFileAtomic(t, inDir, "second.txt", []byte("three\r\nfour"))
	waitForContent(t, filepath.Join(outDir, "second.txt"), "three\nfour\n")

	healthy, _ := cm.Health()
	assert.True(t, healthy)

	result := cm.ValidateFlowConnectivity()
	assert.Equal(t, flowgraph.StatusHealthy, result.ValidationStatus)
	require.Len(t, result.ConnectedEdges, 1)
	assert.Equal(t, "reader", result.ConnectedEdges[0].From.ComponentName)
	assert.Equal(t, "writer", result.ConnectedEdges[0].To.ComponentName)

	require.NoError(t, cm.Stop(5*time.Second))
	healthy, _ = cm.Health()
	assert.False(t, healthy)
}

func TestPipeline_DisconnectedSubjects(t *testing.T) {
	configs := linesPipeline(t, t.TempDir(), t.TempDir(), "file.lines", nil)

	// Point the sink somewhere the source never publishes
	var sink map[string]any
	require.NoError(t, json.Unmarshal(configs["writer"].Config, &sink))
	sink["ports"] = map[string]any{"inputs": []any{map[string]any{"name": "input", "subject": "file.other", "required": true}}}
	raw, err := json.Marshal(sink)
	require.NoError(t, err)
	writer := configs["writer"]
	writer.Config = raw
	configs["writer"] = writer

	registry := component.NewRegistry()
	require.NoError(t, componentregistry.Register(registry))
	cm, err := NewComponentManager(registry, configs, Dependencies{Bus: bus.NewMemory()})
	require.NoError(t, err)
	require.NoError(t, cm.Initialize())

	result := cm.ValidateFlowConnectivity()
	assert.Equal(t, flowgraph.StatusWarnings, result.ValidationStatus)
	assert.Empty(t, result.ConnectedEdges)

	orphaned := make(map[string]string)
	for _, p := range result.OrphanedPorts {
		orphaned[p.ComponentName+"."+p.PortName] = p.Issue
	}
	assert.Equal(t, "no_subscribers", orphaned["reader.output"])
	assert.Equal(t, "no_publishers", orphaned["writer.input"])
}

func TestPipeline_HTTPHandlers(t *testing.T) {
	inDir, outDir := t.TempDir(), t.TempDir()
	cm := startPipeline(t, linesPipeline(t, inDir, outDir, "file.lines", nil), Dependencies{Bus: bus.NewMemory()})

	server := metric.NewServer(0, "", metric.NewMetricsRegistry(), cm.Health)
	cm.RegisterHTTPHandlers("/api", server)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	t.Run("list", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/components")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var list []ComponentStatus
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
		require.Len(t, list, 2)
		assert.Equal(t, "reader", list[0].Name)
		assert.Equal(t, "started", list[0].State)
		assert.Equal(t, "writer", list[1].Name)
		assert.Equal(t, "output", list[1].Type)
	})

	t.Run("single", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/components/writer")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var status ComponentStatus
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
		assert.True(t, status.Health.Healthy)
	})

	t.Run("unknown", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/components/nope")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("flow validation", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/flow/validation")
		require.NoError(t, err)
		defer resp.Body.Close()

		var result flowgraph.FlowAnalysisResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Equal(t, flowgraph.StatusHealthy, result.ValidationStatus)
	})

	t.Run("health", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Healthy    bool          `json:"healthy"`
			Components health.Status `json:"components"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.True(t, body.Healthy)
		assert.Len(t, body.Components.SubStatuses, 2)
	})
}

func TestIntegration_PipelineNATS(t *testing.T) {
	client := getSharedClient(t)

	inDir, outDir := t.TempDir(), t.TempDir()
	testutil.WriteFile(t, inDir, "nats.txt", []byte("alpha\nbeta\n"))

	subject := "itest.lines." + uuid.NewString()[:8]
	startPipeline(t, linesPipeline(t, inDir, outDir, subject, map[string]any{"type": "nats"}), Dependencies{
		Bus:        bus.NewNATS(client),
		NATSClient: client,
	})

	waitForContent(t, filepath.Join(outDir, "nats.txt"), "alpha\nbeta\n")
}

func TestIntegration_PipelineJetStream(t *testing.T) {
	client := getSharedClient(t)

	id := uuid.NewString()[:8]
	stream := bus.DefaultStreamConfig()
	stream.Name = "ITEST_" + id
	stream.Subjects = []string{"itest.js." + id + ".>"}
	stream.Storage = "memory"

	js := bus.NewJetStream(client, stream)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, js.Setup(ctx))

	inDir, outDir := t.TempDir(), t.TempDir()
	testutil.WriteFile(t, inDir, "durable.txt", []byte("x\ny\nz\n"))

	port := map[string]any{"type": "jetstream", "stream_name": stream.Name}
	startPipeline(t, linesPipeline(t, inDir, outDir, "itest.js."+id+".lines", port), Dependencies{
		Bus:        bus.NewNATS(client),
		Stream:     js,
		NATSClient: client,
	})

	waitForContent(t, filepath.Join(outDir, "durable.txt"), "x\ny\nz\n")
}
