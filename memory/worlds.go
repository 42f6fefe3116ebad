package memory

import (
	"context"
	"fmt"

	"github.com/BaSui01/agentmemory/types"
)

// CreateWorld 写入世界，返回 ID
func (a *Adapter) CreateWorld(ctx context.Context, world *types.World) (id string, err error) {
	ctx, done := a.begin(ctx, "create_world")
	defer done(&err)

	if world == nil {
		return "", types.NewInvalidRequestError("world is required")
	}
	rec := *world
	if rec.ID == "" {
		rec.ID = a.newID()
	}
	if rec.AgentID == "" {
		rec.AgentID = a.opts.AgentID
	}
	if err := a.putRecord(ctx, types.CollectionWorlds, rec.ID, &rec); err != nil {
		return "", fmt.Errorf("memory: create world: %w", err)
	}
	return rec.ID, nil
}

// GetWorld 读取世界，不存在时返回 nil
func (a *Adapter) GetWorld(ctx context.Context, id string) (world *types.World, err error) {
	ctx, done := a.begin(ctx, "get_world")
	defer done(&err)

	var rec types.World
	ok, err := a.getRecord(ctx, types.CollectionWorlds, id, &rec)
	if err != nil {
		return nil, fmt.Errorf("memory: get world: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// GetAllWorlds 列出全部世界
func (a *Adapter) GetAllWorlds(ctx context.Context) (worlds []*types.World, err error) {
	ctx, done := a.begin(ctx, "get_all_worlds")
	defer done(&err)

	entries, err := a.store.GetAll(ctx, types.CollectionWorlds)
	if err != nil {
		return nil, fmt.Errorf("memory: get all worlds: %w", err)
	}
	worlds, err = decodeAll[types.World](types.CollectionWorlds, entries)
	if err != nil {
		return nil, fmt.Errorf("memory: get all worlds: %w", err)
	}
	return worlds, nil
}

// UpdateWorld 合并更新，world.ID 必填；记录不存在时返回 false
func (a *Adapter) UpdateWorld(ctx context.Context, world *types.World) (updated bool, err error) {
	ctx, done := a.begin(ctx, "update_world")
	defer done(&err)

	if world == nil || world.ID == "" {
		return false, types.NewInvalidRequestError("world id is required")
	}
	updated, err = a.mergeRecord(ctx, types.CollectionWorlds, world.ID, world)
	if err != nil {
		return false, fmt.Errorf("memory: update world: %w", err)
	}
	return updated, nil
}

// RemoveWorld 删除世界记录，不级联房间
func (a *Adapter) RemoveWorld(ctx context.Context, id string) (err error) {
	ctx, done := a.begin(ctx, "remove_world")
	defer done(&err)

	if err := a.store.Delete(ctx, types.CollectionWorlds, id); err != nil {
		return fmt.Errorf("memory: remove world: %w", err)
	}
	return nil
}
