package memory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/agentmemory/types"
)

// EnsureEmbeddingDimension 维度不同时重新初始化索引并返回 true。
// 这是破坏性操作：已有向量全部丢弃，不会迁移；需要时调用 RebuildIndex。
func (a *Adapter) EnsureEmbeddingDimension(ctx context.Context, dimension int) (changed bool, err error) {
	_, done := a.begin(ctx, "ensure_embedding_dimension")
	defer done(&err)

	if dimension <= 0 {
		return false, types.NewInvalidRequestError("embedding dimension must be positive, got %d", dimension)
	}
	current := a.index.Dimension()
	if current == dimension {
		return false, nil
	}

	defer a.serialize()()
	discarded := a.index.Size()
	a.index.Init(dimension)
	a.metrics.SetIndexSize(0)

	a.logger.Warn("embedding dimension changed, index reset",
		zap.Int("from", current),
		zap.Int("to", dimension),
		zap.Int("discarded_vectors", discarded),
	)
	return true, nil
}

// RebuildIndex 把存储中所有维度匹配的嵌入重新写入索引，返回写入条数。
// 维度不匹配的记录被跳过并记录日志。
func (a *Adapter) RebuildIndex(ctx context.Context) (added int, err error) {
	ctx, done := a.begin(ctx, "rebuild_index")
	defer done(&err)

	entries, err := a.store.GetAll(ctx, types.CollectionMemories)
	if err != nil {
		return 0, fmt.Errorf("memory: rebuild index: %w", err)
	}
	memories, err := decodeAll[types.Memory](types.CollectionMemories, entries)
	if err != nil {
		return 0, fmt.Errorf("memory: rebuild index: %w", err)
	}

	defer a.serialize()()
	dim := a.index.Dimension()
	skipped := 0
	for _, m := range memories {
		if !m.HasEmbedding() {
			continue
		}
		if len(m.Embedding) != dim {
			skipped++
			continue
		}
		if err := a.index.Add(m.ID, m.Embedding); err != nil {
			return added, dimensionError(err)
		}
		added++
	}
	a.metrics.SetIndexSize(a.index.Size())

	a.logger.Info("index rebuilt",
		zap.Int("added", added),
		zap.Int("skipped", skipped),
		zap.Int("dimension", dim),
	)
	return added, nil
}
