package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/BaSui01/agentmemory/index"
	"github.com/BaSui01/agentmemory/store"
	"github.com/BaSui01/agentmemory/types"
)

// GetMemoriesParams 记忆查询条件，空字段表示不过滤
type GetMemoriesParams struct {
	TableName string
	EntityID  string
	AgentID   string
	RoomID    string
	WorldID   string
	// Unique 非 nil 时只保留 unique 与之相等的记录
	Unique *bool
	// Count 为 0 表示不限
	Count  int
	Offset int
}

// memoryProbe 谓词只解码过滤所需字段
type memoryProbe struct {
	AgentID  string `json:"agentId"`
	EntityID string `json:"entityId"`
	RoomID   string `json:"roomId"`
	WorldID  string `json:"worldId"`
	Unique   bool   `json:"unique"`
	Metadata struct {
		Type string `json:"type"`
	} `json:"metadata"`
}

type memoryFilter struct {
	TableName string
	EntityID  string
	AgentID   string
	RoomID    string
	WorldID   string
	Unique    *bool
}

func (f memoryFilter) match(p *memoryProbe) bool {
	switch {
	case f.TableName != "" && p.Metadata.Type != f.TableName:
		return false
	case f.EntityID != "" && p.EntityID != f.EntityID:
		return false
	case f.AgentID != "" && p.AgentID != f.AgentID:
		return false
	case f.RoomID != "" && p.RoomID != f.RoomID:
		return false
	case f.WorldID != "" && p.WorldID != f.WorldID:
		return false
	case f.Unique != nil && p.Unique != *f.Unique:
		return false
	}
	return true
}

func (f memoryFilter) matchMemory(m *types.Memory) bool {
	p := memoryProbe{
		AgentID:  m.AgentID,
		EntityID: m.EntityID,
		RoomID:   m.RoomID,
		WorldID:  m.WorldID,
		Unique:   m.Unique,
	}
	p.Metadata.Type = m.TableName()
	return f.match(&p)
}

func (f memoryFilter) predicate() store.Predicate {
	return func(e store.Entry) bool {
		var p memoryProbe
		if err := json.Unmarshal(e.Value, &p); err != nil {
			return false
		}
		return f.match(&p)
	}
}

// CreateMemory 写入记忆并在嵌入非空时加入向量索引，返回 ID。
//
// 缺省值：ID 生成 UUID，agentId 取适配器配置，createdAt 取当前毫秒时间。
// metadata.type 总是被设置为 tableName，unique 取 unique || memory.Unique。
// 嵌入维度与索引不一致时不写入任何内容。
func (a *Adapter) CreateMemory(ctx context.Context, memory *types.Memory, tableName string, unique bool) (id string, err error) {
	ctx, done := a.begin(ctx, "create_memory")
	defer done(&err)

	if memory == nil {
		return "", types.NewInvalidRequestError("memory is required")
	}
	if tableName == "" {
		return "", types.NewInvalidRequestError("table name is required")
	}

	rec := *memory
	if rec.ID == "" {
		rec.ID = a.newID()
	}
	if rec.AgentID == "" {
		rec.AgentID = a.opts.AgentID
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = a.nowMillis()
	}
	rec.Unique = unique || rec.Unique
	rec.Similarity = nil
	metadata := make(map[string]any, len(rec.Metadata)+1)
	for k, v := range rec.Metadata {
		metadata[k] = v
	}
	metadata[types.MetadataTypeKey] = tableName
	rec.Metadata = metadata

	if rec.HasEmbedding() {
		if dim := a.index.Dimension(); len(rec.Embedding) != dim {
			return "", dimensionError(&index.DimensionMismatchError{Expected: dim, Actual: len(rec.Embedding)})
		}
	}

	defer a.serialize()()

	if err := a.putRecord(ctx, types.CollectionMemories, rec.ID, &rec); err != nil {
		return "", fmt.Errorf("memory: create memory: %w", err)
	}

	if rec.HasEmbedding() {
		if err := a.index.Add(rec.ID, rec.Embedding); err != nil {
			// 索引在校验后被重新初始化，撤销记录以免留下无向量的孤儿
			if derr := a.store.Delete(ctx, types.CollectionMemories, rec.ID); derr != nil {
				a.logger.Error("rollback memory record failed", zap.String("memory_id", rec.ID), zap.Error(derr))
			}
			return "", dimensionError(err)
		}
		a.metrics.RecordIndexAdd(a.index.Size())
	}

	a.logger.Debug("memory created",
		zap.String("memory_id", rec.ID),
		zap.String("table", tableName),
		zap.Bool("embedded", rec.HasEmbedding()),
	)
	return rec.ID, nil
}

func dimensionError(err error) error {
	if errors.Is(err, index.ErrDimensionMismatch) {
		return types.NewError(types.ErrDimensionMismatch, "embedding dimension mismatch").WithCause(err)
	}
	return fmt.Errorf("memory: index: %w", err)
}

// GetMemories 扫描 memories 集合，按 createdAt 降序返回满足全部条件的记录
func (a *Adapter) GetMemories(ctx context.Context, params GetMemoriesParams) (memories []*types.Memory, err error) {
	ctx, done := a.begin(ctx, "get_memories")
	defer done(&err)

	if params.TableName == "" {
		return nil, types.NewInvalidRequestError("table name is required")
	}
	if params.Count < 0 || params.Offset < 0 {
		return nil, types.NewInvalidRequestError("count and offset must not be negative")
	}

	filter := memoryFilter{
		TableName: params.TableName,
		EntityID:  params.EntityID,
		AgentID:   params.AgentID,
		RoomID:    params.RoomID,
		WorldID:   params.WorldID,
		Unique:    params.Unique,
	}
	entries, err := a.store.GetWhere(ctx, types.CollectionMemories, filter.predicate())
	if err != nil {
		return nil, fmt.Errorf("memory: get memories: %w", err)
	}
	memories, err = decodeAll[types.Memory](types.CollectionMemories, entries)
	if err != nil {
		return nil, fmt.Errorf("memory: get memories: %w", err)
	}

	sort.SliceStable(memories, func(i, j int) bool {
		if memories[i].CreatedAt != memories[j].CreatedAt {
			return memories[i].CreatedAt > memories[j].CreatedAt
		}
		return memories[i].ID < memories[j].ID
	})

	if params.Offset >= len(memories) {
		return []*types.Memory{}, nil
	}
	memories = memories[params.Offset:]
	if params.Count > 0 && params.Count < len(memories) {
		memories = memories[:params.Count]
	}
	return memories, nil
}

// GetMemoryByID 读取单条记忆，不存在时返回 nil
func (a *Adapter) GetMemoryByID(ctx context.Context, id string) (memory *types.Memory, err error) {
	ctx, done := a.begin(ctx, "get_memory_by_id")
	defer done(&err)

	var rec types.Memory
	ok, err := a.getRecord(ctx, types.CollectionMemories, id, &rec)
	if err != nil {
		return nil, fmt.Errorf("memory: get memory: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// GetMemoriesByIDs 按输入顺序返回存在的记忆
func (a *Adapter) GetMemoriesByIDs(ctx context.Context, ids []string) (memories []*types.Memory, err error) {
	ctx, done := a.begin(ctx, "get_memories_by_ids")
	defer done(&err)

	hydrated, err := a.hydrate(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("memory: get memories by ids: %w", err)
	}
	memories = make([]*types.Memory, 0, len(hydrated))
	for _, m := range hydrated {
		if m != nil {
			memories = append(memories, m)
		}
	}
	return memories, nil
}

// CountMemories 统计记忆条数；roomID 或 tableName 为空时不按其过滤，
// unique 为 true 时只统计 unique 记录
func (a *Adapter) CountMemories(ctx context.Context, roomID, tableName string, unique bool) (n int, err error) {
	ctx, done := a.begin(ctx, "count_memories")
	defer done(&err)

	filter := memoryFilter{RoomID: roomID, TableName: tableName}
	if unique {
		filter.Unique = &unique
	}
	entries, err := a.store.GetWhere(ctx, types.CollectionMemories, filter.predicate())
	if err != nil {
		return 0, fmt.Errorf("memory: count memories: %w", err)
	}
	return len(entries), nil
}

// DeleteMemory 删除记录后移除向量。向量移除总会执行，即使记录删除失败。
func (a *Adapter) DeleteMemory(ctx context.Context, id string) (err error) {
	ctx, done := a.begin(ctx, "delete_memory")
	defer done(&err)

	if id == "" {
		return types.NewInvalidRequestError("memory id is required")
	}
	defer a.serialize()()

	storeErr := a.store.Delete(ctx, types.CollectionMemories, id)
	if a.index.Remove(id) {
		a.metrics.RecordIndexRemove(a.index.Size())
	}
	if storeErr != nil {
		return fmt.Errorf("memory: delete memory: %w", storeErr)
	}
	return nil
}

// DeleteAllMemories 删除房间内某张表的全部记忆及其向量，返回删除条数
func (a *Adapter) DeleteAllMemories(ctx context.Context, roomID, tableName string) (n int, err error) {
	ctx, done := a.begin(ctx, "delete_all_memories")
	defer done(&err)

	if roomID == "" || tableName == "" {
		return 0, types.NewInvalidRequestError("room id and table name are required")
	}
	defer a.serialize()()

	n, err = a.deleteMemoriesWhere(ctx, memoryFilter{RoomID: roomID, TableName: tableName})
	if err != nil {
		return n, fmt.Errorf("memory: delete all memories: %w", err)
	}
	return n, nil
}

// deleteMemoriesWhere 删除匹配的记录，并移除所有匹配记录的向量。
// 调用方负责 serialize。
func (a *Adapter) deleteMemoriesWhere(ctx context.Context, filter memoryFilter) (int, error) {
	matched, err := a.store.GetWhere(ctx, types.CollectionMemories, filter.predicate())
	if err != nil {
		return 0, err
	}
	if len(matched) == 0 {
		return 0, nil
	}

	keys := make(map[string]struct{}, len(matched))
	for _, e := range matched {
		keys[e.Key] = struct{}{}
	}
	n, storeErr := a.store.DeleteWhere(ctx, types.CollectionMemories, func(e store.Entry) bool {
		_, ok := keys[e.Key]
		return ok
	})

	removed := 0
	for id := range keys {
		if a.index.Remove(id) {
			removed++
		}
	}
	if removed > 0 {
		a.metrics.SetIndexSize(a.index.Size())
	}
	return n, storeErr
}
