package memory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/agentmemory/types"
)

// CreateRooms 批量写入房间，返回与输入同序的 ID
func (a *Adapter) CreateRooms(ctx context.Context, rooms []*types.Room) (ids []string, err error) {
	ctx, done := a.begin(ctx, "create_rooms")
	defer done(&err)

	ids = make([]string, 0, len(rooms))
	for _, room := range rooms {
		if room == nil {
			return ids, types.NewInvalidRequestError("room is required")
		}
		rec := *room
		if rec.ID == "" {
			rec.ID = a.newID()
		}
		if rec.AgentID == "" {
			rec.AgentID = a.opts.AgentID
		}
		if err := a.putRecord(ctx, types.CollectionRooms, rec.ID, &rec); err != nil {
			return ids, fmt.Errorf("memory: create rooms: %w", err)
		}
		ids = append(ids, rec.ID)
	}
	return ids, nil
}

// GetRoomsByIDs 按输入顺序返回存在的房间
func (a *Adapter) GetRoomsByIDs(ctx context.Context, ids []string) (rooms []*types.Room, err error) {
	ctx, done := a.begin(ctx, "get_rooms_by_ids")
	defer done(&err)

	rooms = make([]*types.Room, 0, len(ids))
	for _, id := range ids {
		var rec types.Room
		ok, err := a.getRecord(ctx, types.CollectionRooms, id, &rec)
		if err != nil {
			return nil, fmt.Errorf("memory: get rooms: %w", err)
		}
		if ok {
			rooms = append(rooms, &rec)
		}
	}
	return rooms, nil
}

// GetRoomsByWorld 列出某个世界下的房间
func (a *Adapter) GetRoomsByWorld(ctx context.Context, worldID string) (rooms []*types.Room, err error) {
	ctx, done := a.begin(ctx, "get_rooms_by_world")
	defer done(&err)

	entries, err := a.store.GetWhere(ctx, types.CollectionRooms, fieldEquals("worldId", worldID))
	if err != nil {
		return nil, fmt.Errorf("memory: get rooms by world: %w", err)
	}
	rooms, err = decodeAll[types.Room](types.CollectionRooms, entries)
	if err != nil {
		return nil, fmt.Errorf("memory: get rooms by world: %w", err)
	}
	return rooms, nil
}

// UpdateRoom 合并更新，room.ID 必填；记录不存在时返回 false
func (a *Adapter) UpdateRoom(ctx context.Context, room *types.Room) (updated bool, err error) {
	ctx, done := a.begin(ctx, "update_room")
	defer done(&err)

	if room == nil || room.ID == "" {
		return false, types.NewInvalidRequestError("room id is required")
	}
	updated, err = a.mergeRecord(ctx, types.CollectionRooms, room.ID, room)
	if err != nil {
		return false, fmt.Errorf("memory: update room: %w", err)
	}
	return updated, nil
}

// DeleteRoom 依次删除房间、房间参与者、房间记忆（含向量）。
// 三步之间没有事务，中途失败时已完成的步骤不会回滚。
func (a *Adapter) DeleteRoom(ctx context.Context, roomID string) (err error) {
	ctx, done := a.begin(ctx, "delete_room")
	defer done(&err)

	if roomID == "" {
		return types.NewInvalidRequestError("room id is required")
	}
	defer a.serialize()()

	if err := a.store.Delete(ctx, types.CollectionRooms, roomID); err != nil {
		a.logger.Error("delete room failed", zap.String("room_id", roomID), zap.String("step", "room"), zap.Error(err))
		return fmt.Errorf("memory: delete room: %w", err)
	}

	participants, err := a.store.DeleteWhere(ctx, types.CollectionParticipants, fieldEquals("roomId", roomID))
	if err != nil {
		a.logger.Error("delete room failed", zap.String("room_id", roomID), zap.String("step", "participants"), zap.Error(err))
		return fmt.Errorf("memory: delete room participants: %w", err)
	}

	memories, err := a.deleteMemoriesWhere(ctx, memoryFilter{RoomID: roomID})
	if err != nil {
		a.logger.Error("delete room failed", zap.String("room_id", roomID), zap.String("step", "memories"), zap.Error(err))
		return fmt.Errorf("memory: delete room memories: %w", err)
	}

	a.logger.Debug("room deleted",
		zap.String("room_id", roomID),
		zap.Int("participants", participants),
		zap.Int("memories", memories),
	)
	return nil
}
