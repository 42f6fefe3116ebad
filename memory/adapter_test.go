package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/BaSui01/agentmemory/index"
	"github.com/BaSui01/agentmemory/internal/metrics"
	"github.com/BaSui01/agentmemory/store"
	"github.com/BaSui01/agentmemory/testutil/fixtures"
	"github.com/BaSui01/agentmemory/testutil/mocks"
	"github.com/BaSui01/agentmemory/types"
)

const testDim = 4

// fakeClock 可手动推进的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	adapter *Adapter
	store   store.CollectionStore
	index   *index.HNSWIndex
	clock   *fakeClock
}

// testingT 同时满足 *testing.T 与 *rapid.T
type testingT interface {
	require.TestingT
	Helper()
}

func newTestEnv(t testingT, s store.CollectionStore, opts Options, options ...Option) *testEnv {
	t.Helper()
	if s == nil {
		s = store.NewMemoryStore(zap.NewNop())
	}
	if opts.EmbeddingDimension == 0 {
		opts.EmbeddingDimension = testDim
	}
	idx := index.NewHNSWIndex(index.DefaultHNSWConfig(), zap.NewNop(), index.WithSeed(1))
	clock := newFakeClock()

	all := append([]Option{WithLogger(zap.NewNop()), WithClock(clock.Now)}, options...)
	a, err := NewAdapter(s, idx, opts, all...)
	require.NoError(t, err)
	return &testEnv{adapter: a, store: s, index: idx, clock: clock}
}

func TestNewAdapter_Validation(t *testing.T) {
	idx := index.NewHNSWIndex(index.DefaultHNSWConfig(), nil)
	_, err := NewAdapter(nil, idx, DefaultOptions())
	assert.Error(t, err)
	_, err = NewAdapter(store.NewMemoryStore(nil), nil, DefaultOptions())
	assert.Error(t, err)
}

func TestNewAdapter_DefaultsAndIndexInit(t *testing.T) {
	idx := index.NewHNSWIndex(index.DefaultHNSWConfig(), nil)
	a, err := NewAdapter(store.NewMemoryStore(nil), idx, Options{})
	require.NoError(t, err)

	assert.Equal(t, DefaultOptions(), a.Options())
	assert.Equal(t, 384, idx.Dimension())
}

func TestNewAdapter_KeepsPopulatedIndex(t *testing.T) {
	idx := index.NewHNSWIndex(index.DefaultHNSWConfig(), nil, index.WithDimension(2))
	require.NoError(t, idx.Add("a", []float32{1, 0}))

	core, logs := observer.New(zapcore.WarnLevel)
	_, err := NewAdapter(store.NewMemoryStore(nil), idx, Options{EmbeddingDimension: 8}, WithLogger(zap.New(core)))
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Dimension())
	assert.True(t, idx.Contains("a"))

	warned := logs.FilterMessageSnippet("dimension differs").All()
	require.Len(t, warned, 1)
	fields := warned[0].ContextMap()
	assert.EqualValues(t, 2, fields["index_dimension"])
	assert.EqualValues(t, 8, fields["configured_dimension"])
}

func TestNewAdapter_MatchThresholdDefaults(t *testing.T) {
	idx := index.NewHNSWIndex(index.DefaultHNSWConfig(), nil)

	a, err := NewAdapter(store.NewMemoryStore(nil), idx, Options{})
	require.NoError(t, err)
	require.NotNil(t, a.Options().MatchThreshold)
	assert.Equal(t, 0.5, *a.Options().MatchThreshold)

	a, err = NewAdapter(store.NewMemoryStore(nil), idx, Options{MatchThreshold: Threshold(0)})
	require.NoError(t, err)
	require.NotNil(t, a.Options().MatchThreshold)
	assert.Equal(t, 0.0, *a.Options().MatchThreshold)
}

func TestAdapter_RecordsMetricsAndSpans(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector("test", reg, nil)
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	env := newTestEnv(t, nil, Options{}, WithMetrics(collector), WithTracer(tp.Tracer("test")))
	ctx := context.Background()

	_, err := env.adapter.CreateMemory(ctx, fixtures.EmbeddedMemory("hi", []float32{1, 0, 0, 0}), types.TableMessages, false)
	require.NoError(t, err)
	_, err = env.adapter.GetMemories(ctx, GetMemoriesParams{})
	require.Error(t, err)

	count, err := promtestutil.GatherAndCount(reg, "test_memory_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	size, err := promtestutil.GatherAndCount(reg, "test_index_vectors")
	require.NoError(t, err)
	assert.Equal(t, 1, size)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "memory.create_memory", spans[0].Name())
	assert.Equal(t, "memory.get_memories", spans[1].Name())
	assert.NotEmpty(t, spans[1].Events(), "error should be recorded on the span")
}

func TestAdapter_StoreErrorsAreWrapped(t *testing.T) {
	boom := errors.New("backend unavailable")
	ctx := context.Background()

	tests := []struct {
		name   string
		inject func(*mocks.MockStore)
		call   func(*Adapter) error
	}{
		{
			name:   "create agent",
			inject: func(m *mocks.MockStore) { m.WithSetError(boom) },
			call: func(a *Adapter) error {
				_, err := a.CreateAgent(ctx, fixtures.Agent("x"))
				return err
			},
		},
		{
			name:   "get world",
			inject: func(m *mocks.MockStore) { m.WithGetError(boom) },
			call: func(a *Adapter) error {
				_, err := a.GetWorld(ctx, "w")
				return err
			},
		},
		{
			name:   "get memories",
			inject: func(m *mocks.MockStore) { m.WithGetWhereError(boom) },
			call: func(a *Adapter) error {
				_, err := a.GetMemories(ctx, GetMemoriesParams{TableName: types.TableMessages})
				return err
			},
		},
		{
			name:   "search hydration",
			inject: func(m *mocks.MockStore) { m.WithGetError(boom) },
			call: func(a *Adapter) error {
				_, err := a.SearchMemories(ctx, SearchMemoriesParams{
					TableName: types.TableFacts,
					Embedding: []float32{1, 0, 0, 0},
				})
				return err
			},
		},
		{
			name:   "set cache",
			inject: func(m *mocks.MockStore) { m.WithSetError(boom) },
			call:   func(a *Adapter) error { return a.SetCache(ctx, "k", 1) },
		},
		{
			name:   "get participants",
			inject: func(m *mocks.MockStore) { m.WithGetWhereError(boom) },
			call: func(a *Adapter) error {
				_, err := a.GetParticipantsForRoom(ctx, "r")
				return err
			},
		},
		{
			name:   "rebuild index",
			inject: func(m *mocks.MockStore) { m.WithGetWhereError(boom) },
			call: func(a *Adapter) error {
				_, err := a.RebuildIndex(ctx)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := mocks.NewMockStore()
			env := newTestEnv(t, ms, Options{})
			_, err := env.adapter.CreateMemory(ctx, &types.Memory{ID: "seed", Embedding: []float32{1, 0, 0, 0}}, types.TableFacts, false)
			require.NoError(t, err)

			tt.inject(ms)
			err = tt.call(env.adapter)
			require.Error(t, err)
			assert.ErrorIs(t, err, boom)
		})
	}
}

func TestMergeMaps(t *testing.T) {
	dst := map[string]any{
		"name":     "old",
		"settings": map[string]any{"a": 1.0, "nested": map[string]any{"x": 1.0}},
		"bio":      []any{"one"},
	}
	src := map[string]any{
		"settings": map[string]any{"b": 2.0, "nested": map[string]any{"y": 2.0}},
		"bio":      []any{"two"},
	}

	got := mergeMaps(dst, src)
	assert.Equal(t, "old", got["name"])
	assert.Equal(t, []any{"two"}, got["bio"])
	assert.Equal(t, map[string]any{
		"a":      1.0,
		"b":      2.0,
		"nested": map[string]any{"x": 1.0, "y": 2.0},
	}, got["settings"])
}
