package memory

import (
	"context"
	"fmt"

	"github.com/BaSui01/agentmemory/types"
)

// CreateEntities 批量写入实体，返回与输入同序的 ID
func (a *Adapter) CreateEntities(ctx context.Context, entities []*types.Entity) (ids []string, err error) {
	ctx, done := a.begin(ctx, "create_entities")
	defer done(&err)

	ids = make([]string, 0, len(entities))
	for _, entity := range entities {
		if entity == nil {
			return ids, types.NewInvalidRequestError("entity is required")
		}
		rec := *entity
		if rec.ID == "" {
			rec.ID = a.newID()
		}
		if rec.AgentID == "" {
			rec.AgentID = a.opts.AgentID
		}
		if err := a.putRecord(ctx, types.CollectionEntities, rec.ID, &rec); err != nil {
			return ids, fmt.Errorf("memory: create entities: %w", err)
		}
		ids = append(ids, rec.ID)
	}
	return ids, nil
}

// GetEntitiesByIDs 按输入顺序返回存在的实体
func (a *Adapter) GetEntitiesByIDs(ctx context.Context, ids []string) (entities []*types.Entity, err error) {
	ctx, done := a.begin(ctx, "get_entities_by_ids")
	defer done(&err)

	entities = make([]*types.Entity, 0, len(ids))
	for _, id := range ids {
		var rec types.Entity
		ok, err := a.getRecord(ctx, types.CollectionEntities, id, &rec)
		if err != nil {
			return nil, fmt.Errorf("memory: get entities: %w", err)
		}
		if ok {
			entities = append(entities, &rec)
		}
	}
	return entities, nil
}

// UpdateEntity 合并更新，entity.ID 必填；names 整体替换，metadata 逐键合并
func (a *Adapter) UpdateEntity(ctx context.Context, entity *types.Entity) (updated bool, err error) {
	ctx, done := a.begin(ctx, "update_entity")
	defer done(&err)

	if entity == nil || entity.ID == "" {
		return false, types.NewInvalidRequestError("entity id is required")
	}
	updated, err = a.mergeRecord(ctx, types.CollectionEntities, entity.ID, entity)
	if err != nil {
		return false, fmt.Errorf("memory: update entity: %w", err)
	}
	return updated, nil
}

// DeleteEntity 删除实体及其所有参与关系
func (a *Adapter) DeleteEntity(ctx context.Context, id string) (err error) {
	ctx, done := a.begin(ctx, "delete_entity")
	defer done(&err)

	if err := a.store.Delete(ctx, types.CollectionEntities, id); err != nil {
		return fmt.Errorf("memory: delete entity: %w", err)
	}
	if _, err := a.store.DeleteWhere(ctx, types.CollectionParticipants, fieldEquals("entityId", id)); err != nil {
		return fmt.Errorf("memory: delete entity participants: %w", err)
	}
	return nil
}
