package memory

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/agentmemory/types"
)

// SearchMemoriesParams 相似度搜索参数
type SearchMemoriesParams struct {
	TableName string
	Embedding []float32
	// MatchThreshold 为 nil 时使用适配器默认阈值
	MatchThreshold *float64
	// Count 为 0 时使用适配器默认条数
	Count    int
	RoomID   string
	WorldID  string
	EntityID string
	Unique   *bool
}

// oversample 为过滤预留的候选倍数
const oversample = 2

// SearchMemories 按嵌入相似度搜索记忆，结果按相似度降序并附带 Similarity。
// 没有嵌入的记忆永远不会出现在结果中。
func (a *Adapter) SearchMemories(ctx context.Context, params SearchMemoriesParams) (memories []*types.Memory, err error) {
	ctx, done := a.begin(ctx, "search_memories")
	defer done(&err)

	if params.TableName == "" {
		return nil, types.NewInvalidRequestError("table name is required")
	}
	if len(params.Embedding) == 0 {
		return nil, types.NewInvalidRequestError("embedding is required")
	}
	k := params.Count
	if k <= 0 {
		k = a.opts.DefaultCount
	}
	threshold := *a.opts.MatchThreshold
	if params.MatchThreshold != nil {
		threshold = *params.MatchThreshold
	}

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("memory.table", params.TableName),
		attribute.Int("memory.k", k),
		attribute.Float64("memory.threshold", threshold),
	)

	start := time.Now()
	hits, err := a.index.Search(params.Embedding, k*oversample, threshold)
	if err != nil {
		return nil, dimensionError(err)
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	hydrated, err := a.hydrate(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("memory: search memories: %w", err)
	}

	filter := memoryFilter{
		TableName: params.TableName,
		RoomID:    params.RoomID,
		WorldID:   params.WorldID,
		EntityID:  params.EntityID,
		Unique:    params.Unique,
	}
	memories = make([]*types.Memory, 0, k)
	for i, m := range hydrated {
		if m == nil {
			a.logger.Debug("indexed vector has no memory record", zap.String("memory_id", ids[i]))
			continue
		}
		if !filter.matchMemory(m) {
			continue
		}
		sim := hits[i].Similarity
		m.Similarity = &sim
		memories = append(memories, m)
		if len(memories) == k {
			break
		}
	}

	a.metrics.RecordSearch(time.Since(start), len(memories))
	span.SetAttributes(attribute.Int("memory.hits", len(hits)), attribute.Int("memory.results", len(memories)))
	return memories, nil
}

// hydrate 并发读取记录，结果与 ids 同序，不存在的位置为 nil
func (a *Adapter) hydrate(ctx context.Context, ids []string) ([]*types.Memory, error) {
	out := make([]*types.Memory, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.HydrationConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			var rec types.Memory
			ok, err := a.getRecord(gctx, types.CollectionMemories, id, &rec)
			if err != nil {
				return err
			}
			if ok {
				out[i] = &rec
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
