package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/agentmemory/index"
	"github.com/BaSui01/agentmemory/internal/metrics"
	"github.com/BaSui01/agentmemory/store"
)

const tracerName = "github.com/BaSui01/agentmemory/memory"

// VectorIndex 适配器依赖的向量索引能力，*index.HNSWIndex 满足该接口
type VectorIndex interface {
	Init(dimension int)
	Dimension() int
	Size() int
	Add(id string, vector []float32) error
	Remove(id string) bool
	Search(query []float32, k int, threshold float64) ([]index.SearchResult, error)
}

// Options 适配器配置
type Options struct {
	// AgentID 记录未指定 agentId 时的默认值
	AgentID string
	// EmbeddingDimension 嵌入维度，默认 384
	EmbeddingDimension int
	// MatchThreshold 搜索默认相似度阈值，nil 时取 0.5；显式 0 表示不过滤
	MatchThreshold *float64
	// DefaultCount 搜索默认返回条数，默认 10
	DefaultCount int
	// StrictConsistency 串行化多步写操作
	StrictConsistency bool
	// HydrationConcurrency 搜索回填并发度，默认 8
	HydrationConcurrency int
}

// DefaultOptions 返回默认配置
func DefaultOptions() Options {
	return Options{
		EmbeddingDimension:   384,
		MatchThreshold:       Threshold(0.5),
		DefaultCount:         10,
		HydrationConcurrency: 8,
	}
}

// Threshold 返回阈值指针，便于设置 Options.MatchThreshold 与 SearchMemoriesParams.MatchThreshold
func Threshold(v float64) *float64 {
	return &v
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.EmbeddingDimension <= 0 {
		o.EmbeddingDimension = d.EmbeddingDimension
	}
	if o.MatchThreshold == nil {
		o.MatchThreshold = d.MatchThreshold
	}
	if o.DefaultCount <= 0 {
		o.DefaultCount = d.DefaultCount
	}
	if o.HydrationConcurrency <= 0 {
		o.HydrationConcurrency = d.HydrationConcurrency
	}
	return o
}

// Option 函数式选项
type Option func(*Adapter)

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetrics 设置指标收集器
func WithMetrics(c *metrics.Collector) Option {
	return func(a *Adapter) { a.metrics = c }
}

// WithTracer 设置 tracer，默认取全局 provider
func WithTracer(t trace.Tracer) Option {
	return func(a *Adapter) {
		if t != nil {
			a.tracer = t
		}
	}
}

// WithClock 设置时钟，用于 createdAt 与缓存过期判断
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) {
		if now != nil {
			a.now = now
		}
	}
}

// WithIDGenerator 设置 ID 生成器，默认 UUID v4
func WithIDGenerator(gen func() string) Option {
	return func(a *Adapter) {
		if gen != nil {
			a.newID = gen
		}
	}
}

// =============================================================================
// 🧠 Adapter
// =============================================================================

// Adapter 记忆适配器
type Adapter struct {
	store   store.CollectionStore
	index   VectorIndex
	opts    Options
	logger  *zap.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
	now     func() time.Time
	newID   func() string

	// strict 仅在 StrictConsistency 时使用
	strict sync.Mutex
}

// NewAdapter 创建适配器。索引为空且维度与配置不同时按配置初始化；
// 已有向量的索引保持原维度，并记录告警。
func NewAdapter(s store.CollectionStore, idx VectorIndex, opts Options, options ...Option) (*Adapter, error) {
	if s == nil {
		return nil, errors.New("memory: collection store is required")
	}
	if idx == nil {
		return nil, errors.New("memory: vector index is required")
	}

	a := &Adapter{
		store:  s,
		index:  idx,
		opts:   opts.withDefaults(),
		logger: zap.NewNop(),
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, o := range options {
		o(a)
	}
	a.logger = a.logger.With(zap.String("component", "memory_adapter"))

	if dim := idx.Dimension(); dim != a.opts.EmbeddingDimension {
		if size := idx.Size(); size == 0 {
			idx.Init(a.opts.EmbeddingDimension)
		} else {
			a.logger.Warn("populated index dimension differs from configured dimension, keeping index",
				zap.Int("index_dimension", dim),
				zap.Int("configured_dimension", a.opts.EmbeddingDimension),
				zap.Int("vectors", size))
		}
	}
	a.metrics.SetIndexSize(idx.Size())

	a.logger.Info("memory adapter initialized",
		zap.String("agent_id", a.opts.AgentID),
		zap.Int("dimension", idx.Dimension()),
		zap.Bool("strict_consistency", a.opts.StrictConsistency),
	)
	return a, nil
}

// Options 返回生效的配置
func (a *Adapter) Options() Options {
	return a.opts
}

// begin 开启 span 并在结束时记录指标
func (a *Adapter) begin(ctx context.Context, op string) (context.Context, func(*error)) {
	ctx, span := a.tracer.Start(ctx, "memory."+op)
	start := time.Now()
	return ctx, func(errp *error) {
		var err error
		if errp != nil {
			err = *errp
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		a.metrics.RecordOperation(op, time.Since(start), err)
	}
}

// serialize 开启严格一致性时串行执行多步操作
func (a *Adapter) serialize() func() {
	if !a.opts.StrictConsistency {
		return func() {}
	}
	a.strict.Lock()
	return a.strict.Unlock
}

func (a *Adapter) nowMillis() int64 {
	return a.now().UnixMilli()
}

// =============================================================================
// 🔧 集合读写
// =============================================================================

// getRecord 读取并解码，不存在时返回 false
func (a *Adapter) getRecord(ctx context.Context, collection, id string, dst any) (bool, error) {
	raw, ok, err := a.store.Get(ctx, collection, id)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return true, nil
}

func (a *Adapter) putRecord(ctx context.Context, collection, id string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	return a.store.Set(ctx, collection, id, raw)
}

// mergeRecord 将 patch 中非空字段合并进已有记录；记录不存在时返回 false
func (a *Adapter) mergeRecord(ctx context.Context, collection, id string, patch any) (bool, error) {
	raw, ok, err := a.store.Get(ctx, collection, id)
	if err != nil || !ok {
		return false, err
	}

	var current map[string]any
	if err := json.Unmarshal(raw, &current); err != nil {
		return false, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	patchRaw, err := json.Marshal(patch)
	if err != nil {
		return false, fmt.Errorf("encode patch %s/%s: %w", collection, id, err)
	}
	var changes map[string]any
	if err := json.Unmarshal(patchRaw, &changes); err != nil {
		return false, fmt.Errorf("decode patch %s/%s: %w", collection, id, err)
	}

	merged := mergeMaps(current, changes)
	merged["id"] = id
	return true, a.putRecord(ctx, collection, id, merged)
}

// mergeMaps 递归合并：两侧都是对象时逐键合并，否则 src 覆盖 dst
func mergeMaps(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		if sv, ok := v.(map[string]any); ok {
			if dv, ok := dst[k].(map[string]any); ok {
				dst[k] = mergeMaps(dv, sv)
				continue
			}
		}
		dst[k] = v
	}
	return dst
}

// decodeAll 解码集合条目
func decodeAll[T any](collection string, entries []store.Entry) ([]*T, error) {
	out := make([]*T, 0, len(entries))
	for _, e := range entries {
		v := new(T)
		if err := json.Unmarshal(e.Value, v); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, e.Key, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// fieldEquals 返回按单个字符串字段匹配的谓词
func fieldEquals(field, want string) store.Predicate {
	return func(e store.Entry) bool {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(e.Value, &probe); err != nil {
			return false
		}
		raw, ok := probe[field]
		if !ok {
			return false
		}
		var got string
		return json.Unmarshal(raw, &got) == nil && got == want
	}
}
