package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	prometheustestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/filestreams/bus"
	"github.com/c360/filestreams/component"
	"github.com/c360/filestreams/errors"
	"github.com/c360/filestreams/message"
	"github.com/c360/filestreams/metric"
	"github.com/c360/filestreams/testutil"
)

const subject = "file.source"

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Directory = t.TempDir()
	cfg.Trigger = TriggerConfig{FixedDelay: 20, TimeUnit: UnitMilliseconds}
	return cfg
}

// startSource initializes and starts a source and stops it when the test ends
func startSource(t *testing.T, cfg Config, deps component.Dependencies) *Source {
	t.Helper()
	src := New("test-source", cfg, deps)
	require.NoError(t, src.Initialize())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, src.Start(ctx))
	t.Cleanup(func() {
		assert.NoError(t, src.Stop(5*time.Second))
		cancel()
	})
	return src
}

// failingBus rejects publishes while fail is set
type failingBus struct {
	bus.Bus
	fail atomic.Bool
}

func (b *failingBus) Publish(ctx context.Context, subject string, msg *message.Message) error {
	if b.fail.Load() {
		return errors.WrapInvalid(fmt.Errorf("rejected"), "failingBus", "Publish", "publish")
	}
	return b.Bus.Publish(ctx, subject, msg)
}

func TestSource_Lifecycle(t *testing.T) {
	component.StandardLifecycleTests(t, func() component.LifecycleComponent {
		return New("test-source", testConfig(t), component.Dependencies{Bus: bus.NewMemory()})
	})
}

func TestSource_StartErrors(t *testing.T) {
	src := New("test-source", testConfig(t), component.Dependencies{Bus: bus.NewMemory()})

	err := src.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")

	require.NoError(t, src.Initialize())
	require.NoError(t, src.Start(context.Background()))
	defer src.Stop(time.Second)

	err = src.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAlreadyStarted)
}

func TestSource_InitializeRequiresOutput(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ports = &component.PortConfig{}

	src := New("test-source", cfg, component.Dependencies{Bus: bus.NewMemory()})
	assert.Error(t, src.Initialize())

	cfg = testConfig(t)
	src = New("test-source", cfg, component.Dependencies{})
	assert.Error(t, src.Initialize(), "a bus is required")
}

func TestSource_EmitsContents(t *testing.T) {
	mem := bus.NewMemory()
	defer mem.Close()
	out := testutil.Subscribe(t, mem, subject)

	cfg := testConfig(t)
	testutil.WriteFile(t, cfg.Directory, "b.txt", []byte("bravo"))
	testutil.WriteFile(t, cfg.Directory, "a.txt", []byte("alpha"))

	src := startSource(t, cfg, component.Dependencies{Bus: mem})

	msgs := testutil.WaitForMessages(t, out, 2, 2*time.Second)
	assert.Equal(t, "alpha", string(msgs[0].Payload()), "files are emitted in path order")
	assert.Equal(t, "bravo", string(msgs[1].Payload()))
	assert.Equal(t, "a.txt", msgs[0].Header(message.HeaderFilename))
	assert.Equal(t, "test-source", msgs[0].Source())

	// Later files are picked up, earlier ones are not repeated
	testutil.WriteFileAtomic(t, cfg.Directory, "c.txt", []byte("charlie"))
	msgs = testutil.WaitForMessages(t, out, 3, 2*time.Second)
	assert.Equal(t, "charlie", string(msgs[2].Payload()))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 3, out.Count())

	files, messages := src.Stats()
	assert.Equal(t, int64(3), files)
	assert.Equal(t, int64(3), messages)
	assert.True(t, src.Health().Healthy)
}

func TestSource_LinesWithMarkers(t *testing.T) {
	mem := bus.NewMemory()
	defer mem.Close()
	out := testutil.Subscribe(t, mem, subject)

	cfg := testConfig(t)
	cfg.Consumer.Mode = ModeLines
	cfg.Consumer.WithMarkers = true
	testutil.WriteFile(t, cfg.Directory, "a.txt", []byte("foo\nbar\n"))

	startSource(t, cfg, component.Dependencies{Bus: mem})

	msgs := testutil.WaitForMessages(t, out, 4, 2*time.Second)
	require.Len(t, msgs, 4)
	assert.Equal(t, message.KindMarker, msgs[0].Kind())
	assert.Equal(t, "foo", msgs[1].Text())
	assert.Equal(t, "bar", msgs[2].Text())

	end, err := msgs[3].Marker()
	require.NoError(t, err)
	assert.Equal(t, message.MarkEnd, end.Mark)
	assert.Equal(t, 2, end.LineCount)
}

func TestSource_InProgressFile(t *testing.T) {
	mem := bus.NewMemory()
	defer mem.Close()
	out := testutil.Subscribe(t, mem, subject)

	cfg := testConfig(t)
	startSource(t, cfg, component.Dependencies{Bus: mem})

	testutil.WriteFile(t, cfg.Directory, "a.txt.tmp", []byte("partial"))
	testutil.AssertNoMessages(t, out, 100*time.Millisecond)

	require.NoError(t, os.Rename(filepath.Join(cfg.Directory, "a.txt.tmp"), filepath.Join(cfg.Directory, "a.txt")))
	msgs := testutil.WaitForMessages(t, out, 1, 2*time.Second)
	assert.Equal(t, "a.txt", msgs[0].Header(message.HeaderFilename))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, out.Count(), "renamed file is emitted once")
}

func TestSource_RecreatedFile(t *testing.T) {
	mem := bus.NewMemory()
	defer mem.Close()
	out := testutil.Subscribe(t, mem, subject)

	cfg := testConfig(t)
	path := testutil.WriteFile(t, cfg.Directory, "a.txt", []byte("one"))
	startSource(t, cfg, component.Dependencies{Bus: mem})
	testutil.WaitForMessages(t, out, 1, 2*time.Second)

	require.NoError(t, os.Remove(path))
	time.Sleep(100 * time.Millisecond)
	testutil.WriteFileAtomic(t, cfg.Directory, "a.txt", []byte("two"))

	msgs := testutil.WaitForMessages(t, out, 2, 2*time.Second)
	assert.Equal(t, "two", string(msgs[1].Payload()))
}

func TestSource_RetryFailed(t *testing.T) {
	mem := bus.NewMemory()
	defer mem.Close()
	out := testutil.Subscribe(t, mem, subject)
	failing := &failingBus{Bus: mem}
	failing.fail.Store(true)

	cfg := testConfig(t)
	testutil.WriteFile(t, cfg.Directory, "a.txt", []byte("data"))
	src := startSource(t, cfg, component.Dependencies{Bus: failing})

	testutil.WaitForCount(t, func() int { return src.Health().ErrorCount }, 2, 2*time.Second)
	assert.Equal(t, 0, out.Count())

	failing.fail.Store(false)
	msgs := testutil.WaitForMessages(t, out, 1, 2*time.Second)
	assert.Equal(t, "data", string(msgs[0].Payload()))
}

func TestSource_NoRetryFailed(t *testing.T) {
	mem := bus.NewMemory()
	defer mem.Close()
	out := testutil.Subscribe(t, mem, subject)
	failing := &failingBus{Bus: mem}
	failing.fail.Store(true)

	cfg := testConfig(t)
	cfg.RetryFailed = false
	testutil.WriteFile(t, cfg.Directory, "a.txt", []byte("data"))
	src := startSource(t, cfg, component.Dependencies{Bus: failing})

	testutil.WaitForCount(t, func() int { return src.Health().ErrorCount }, 1, 2*time.Second)
	failing.fail.Store(false)

	testutil.AssertNoMessages(t, out, 150*time.Millisecond)
	assert.Equal(t, 1, src.Health().ErrorCount, "failed file is not retried")
}

func TestSource_SplitFailureSkipsFile(t *testing.T) {
	mem := bus.NewMemory()
	defer mem.Close()
	out := testutil.Subscribe(t, mem, subject)

	cfg := testConfig(t)
	cfg.RetryFailed = false
	cfg.Consumer.Mode = ModeLines
	cfg.Consumer.MaxLineBytes = 8
	testutil.WriteFile(t, cfg.Directory, "a.txt", []byte("this line is far too long\n"))
	testutil.WriteFile(t, cfg.Directory, "b.txt", []byte("ok\n"))

	src := startSource(t, cfg, component.Dependencies{Bus: mem})

	msgs := testutil.WaitForMessages(t, out, 1, 2*time.Second)
	assert.Equal(t, "ok", msgs[0].Text())
	assert.Equal(t, "b.txt", msgs[0].Header(message.HeaderFilename))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, out.Count(), "no partial sequence for the failed file")
	assert.Equal(t, 1, src.Health().ErrorCount)
	assert.Contains(t, src.Health().LastError, "a.txt")
}

func TestSource_DiscoveryFailure(t *testing.T) {
	mem := bus.NewMemory()
	defer mem.Close()
	out := testutil.Subscribe(t, mem, subject)

	cfg := testConfig(t)
	cfg.Directory = filepath.Join(t.TempDir(), "later")
	src := startSource(t, cfg, component.Dependencies{Bus: mem})

	testutil.WaitForCount(t, func() int { return src.Health().ErrorCount }, 1, 2*time.Second)
	assert.False(t, src.Health().Healthy)

	testutil.WriteFileAtomic(t, cfg.Directory, "a.txt", []byte("late"))
	testutil.WaitForMessages(t, out, 1, 2*time.Second)
	assert.True(t, src.Health().Healthy, "source recovers once the directory appears")
}

func TestSource_Watch(t *testing.T) {
	mem := bus.NewMemory()
	defer mem.Close()
	out := testutil.Subscribe(t, mem, subject)

	cfg := testConfig(t)
	cfg.Trigger = TriggerConfig{FixedDelay: 1, TimeUnit: UnitMinutes}
	cfg.Watch = true
	startSource(t, cfg, component.Dependencies{Bus: mem})

	// Let the first cycle finish before the file appears
	time.Sleep(100 * time.Millisecond)
	testutil.WriteFileAtomic(t, cfg.Directory, "a.txt", []byte("now"))

	msgs := testutil.WaitForMessages(t, out, 1, 2*time.Second)
	assert.Equal(t, "now", string(msgs[0].Payload()))
}

func TestSource_InitialDelay(t *testing.T) {
	mem := bus.NewMemory()
	defer mem.Close()
	out := testutil.Subscribe(t, mem, subject)

	cfg := testConfig(t)
	cfg.Trigger.InitialDelay = 300
	testutil.WriteFile(t, cfg.Directory, "a.txt", []byte("x"))
	startSource(t, cfg, component.Dependencies{Bus: mem})

	testutil.AssertNoMessages(t, out, 100*time.Millisecond)
	testutil.WaitForMessages(t, out, 1, 2*time.Second)
}

func TestSource_RateLimit(t *testing.T) {
	mem := bus.NewMemory()
	defer mem.Close()
	out := testutil.Subscribe(t, mem, subject)

	cfg := testConfig(t)
	cfg.Consumer.Mode = ModeLines
	cfg.MaxMessagesPerSecond = 5
	testutil.WriteFile(t, cfg.Directory, "a.txt", []byte("1\n2\n3\n4\n5\n6\n7\n"))

	start := time.Now()
	startSource(t, cfg, component.Dependencies{Bus: mem})
	testutil.WaitForMessages(t, out, 7, 5*time.Second)

	// Burst of 5, then one message per 200ms
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)
}

func TestSource_MultipleOutputs(t *testing.T) {
	mem := bus.NewMemory()
	defer mem.Close()
	first := testutil.Subscribe(t, mem, "files.a")
	second := testutil.Subscribe(t, mem, "files.b")

	cfg := testConfig(t)
	cfg.Ports = &component.PortConfig{Outputs: []component.PortDefinition{
		{Name: "a", Type: "nats", Subject: "files.a"},
		{Name: "b", Type: "nats", Subject: "files.b"},
	}}
	testutil.WriteFile(t, cfg.Directory, "a.txt", []byte("x"))
	startSource(t, cfg, component.Dependencies{Bus: mem})

	testutil.WaitForMessages(t, first, 1, 2*time.Second)
	testutil.WaitForMessages(t, second, 1, 2*time.Second)
}

func TestSource_Metrics(t *testing.T) {
	mem := bus.NewMemory()
	defer mem.Close()
	out := testutil.Subscribe(t, mem, subject)
	registry := metric.NewMetricsRegistry()

	cfg := testConfig(t)
	cfg.Consumer.Mode = ModeLines
	testutil.WriteFile(t, cfg.Directory, "a.txt", []byte("1\n2\n3\n"))
	src := startSource(t, cfg, component.Dependencies{Bus: mem, MetricsRegistry: registry})

	testutil.WaitForMessages(t, out, 3, 2*time.Second)
	testutil.WaitForCount(t, func() int {
		return int(prometheustestutil.ToFloat64(src.metrics.messagesEmitted))
	}, 3, time.Second)

	assert.Equal(t, float64(1), prometheustestutil.ToFloat64(src.metrics.filesDiscovered))
	assert.Equal(t, float64(0), prometheustestutil.ToFloat64(src.metrics.splitErrors))
	assert.Positive(t, prometheustestutil.CollectAndCount(src.metrics.pollDuration))
}

func TestRegister(t *testing.T) {
	registry := component.NewRegistry()
	require.NoError(t, Register(registry))

	factories := registry.ListFactories()
	require.Contains(t, factories, ComponentName)
	assert.Equal(t, "input", factories[ComponentName].Type)
	assert.Equal(t, "file", factories[ComponentName].Protocol)
}

func TestSource_ContextEndFinishesFileInFlight(t *testing.T) {
	mem := bus.NewMemory()
	defer mem.Close()
	out := testutil.Subscribe(t, mem, subject)

	cfg := testConfig(t)
	cfg.Consumer.Mode = ModeLines
	cfg.Consumer.WithMarkers = true
	cfg.MaxMessagesPerSecond = 4
	testutil.WriteFile(t, cfg.Directory, "a.txt", []byte("1\n2\n3\n4\n5\n6\n7\n8\n"))

	src := New("test-source", cfg, component.Dependencies{Bus: mem})
	require.NoError(t, src.Initialize())
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, src.Start(ctx))

	// Cancel while the rate limiter holds the file mid-sequence
	testutil.WaitForMessages(t, out, 5, 2*time.Second)
	cancel()

	msgs := testutil.WaitForMessages(t, out, 10, 5*time.Second)
	require.Len(t, msgs, 10)
	start, err := msgs[0].Marker()
	require.NoError(t, err)
	assert.Equal(t, message.MarkStart, start.Mark)
	for i := 1; i <= 8; i++ {
		assert.Equal(t, fmt.Sprint(i), msgs[i].Text())
	}
	end, err := msgs[9].Marker()
	require.NoError(t, err)
	assert.Equal(t, message.MarkEnd, end.Mark)
	assert.Equal(t, 8, end.LineCount)

	// The loop ends at the file boundary and health follows it
	assert.Eventually(t, func() bool { return !src.Health().Healthy }, 2*time.Second, 10*time.Millisecond)
	assert.NoError(t, src.Stop(time.Second))

	restartCtx, restartCancel := context.WithCancel(context.Background())
	defer restartCancel()
	require.NoError(t, src.Start(restartCtx), "a source whose context ended can be started again")
	assert.True(t, src.Health().Healthy)
	assert.NoError(t, src.Stop(5*time.Second))
}

// blockingBus holds every publish until release is closed, ignoring ctx
type blockingBus struct {
	bus.Bus
	entered atomic.Int32
	release chan struct{}
}

func (b *blockingBus) Publish(ctx context.Context, subject string, msg *message.Message) error {
	b.entered.Add(1)
	<-b.release
	return b.Bus.Publish(ctx, subject, msg)
}

func TestSource_StopTimeoutRefusesRestart(t *testing.T) {
	mem := bus.NewMemory()
	defer mem.Close()
	blocking := &blockingBus{Bus: mem, release: make(chan struct{})}

	cfg := testConfig(t)
	testutil.WriteFile(t, cfg.Directory, "a.txt", []byte("alpha"))

	src := New("test-source", cfg, component.Dependencies{Bus: blocking})
	require.NoError(t, src.Initialize())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, src.Start(ctx))

	require.Eventually(t, func() bool { return blocking.entered.Load() > 0 }, 2*time.Second, 5*time.Millisecond)

	err := src.Stop(50 * time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))

	// The first loop still owns the directory
	err = src.Start(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAlreadyStarted)

	close(blocking.release)
	require.Eventually(t, func() bool { return !src.Health().Healthy }, 2*time.Second, 5*time.Millisecond)
	assert.NoError(t, src.Stop(time.Second), "stopping an exited loop succeeds")

	require.NoError(t, src.Start(ctx))
	assert.NoError(t, src.Stop(5*time.Second))
}
