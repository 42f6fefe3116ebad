package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/BaSui01/agentmemory/types"
)

// participantKey 同一 (room, entity) 始终映射到同一个 UUID v5，重复添加天然幂等
func participantKey(roomID, entityID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(roomID+"\x00"+entityID)).String()
}

// AddParticipant 将实体加入房间，已存在时返回 false
func (a *Adapter) AddParticipant(ctx context.Context, entityID, roomID string) (added bool, err error) {
	ctx, done := a.begin(ctx, "add_participant")
	defer done(&err)

	if entityID == "" || roomID == "" {
		return false, types.NewInvalidRequestError("entity id and room id are required")
	}
	key := participantKey(roomID, entityID)
	_, exists, err := a.store.Get(ctx, types.CollectionParticipants, key)
	if err != nil {
		return false, fmt.Errorf("memory: add participant: %w", err)
	}
	if exists {
		return false, nil
	}

	rec := types.Participant{
		ID:       key,
		EntityID: entityID,
		RoomID:   roomID,
		AgentID:  a.opts.AgentID,
	}
	if err := a.putRecord(ctx, types.CollectionParticipants, key, &rec); err != nil {
		return false, fmt.Errorf("memory: add participant: %w", err)
	}
	return true, nil
}

// RemoveParticipant 将实体移出房间，不存在时返回 false
func (a *Adapter) RemoveParticipant(ctx context.Context, entityID, roomID string) (removed bool, err error) {
	ctx, done := a.begin(ctx, "remove_participant")
	defer done(&err)

	key := participantKey(roomID, entityID)
	_, exists, err := a.store.Get(ctx, types.CollectionParticipants, key)
	if err != nil {
		return false, fmt.Errorf("memory: remove participant: %w", err)
	}
	if !exists {
		return false, nil
	}
	if err := a.store.Delete(ctx, types.CollectionParticipants, key); err != nil {
		return false, fmt.Errorf("memory: remove participant: %w", err)
	}
	return true, nil
}

// GetParticipantsForRoom 列出房间内的参与者
func (a *Adapter) GetParticipantsForRoom(ctx context.Context, roomID string) (participants []*types.Participant, err error) {
	ctx, done := a.begin(ctx, "get_participants_for_room")
	defer done(&err)

	entries, err := a.store.GetWhere(ctx, types.CollectionParticipants, fieldEquals("roomId", roomID))
	if err != nil {
		return nil, fmt.Errorf("memory: get participants: %w", err)
	}
	participants, err = decodeAll[types.Participant](types.CollectionParticipants, entries)
	if err != nil {
		return nil, fmt.Errorf("memory: get participants: %w", err)
	}
	return participants, nil
}

// GetRoomsForParticipant 返回实体参与的房间 ID
func (a *Adapter) GetRoomsForParticipant(ctx context.Context, entityID string) (roomIDs []string, err error) {
	ctx, done := a.begin(ctx, "get_rooms_for_participant")
	defer done(&err)

	entries, err := a.store.GetWhere(ctx, types.CollectionParticipants, fieldEquals("entityId", entityID))
	if err != nil {
		return nil, fmt.Errorf("memory: get rooms for participant: %w", err)
	}
	participants, err := decodeAll[types.Participant](types.CollectionParticipants, entries)
	if err != nil {
		return nil, fmt.Errorf("memory: get rooms for participant: %w", err)
	}
	roomIDs = make([]string, 0, len(participants))
	for _, p := range participants {
		roomIDs = append(roomIDs, p.RoomID)
	}
	return roomIDs, nil
}

// GetParticipantUserState 读取关注状态，参与关系不存在或未设置时返回空串
func (a *Adapter) GetParticipantUserState(ctx context.Context, roomID, entityID string) (state types.ParticipantState, err error) {
	ctx, done := a.begin(ctx, "get_participant_user_state")
	defer done(&err)

	var rec types.Participant
	ok, err := a.getRecord(ctx, types.CollectionParticipants, participantKey(roomID, entityID), &rec)
	if err != nil {
		return "", fmt.Errorf("memory: get participant state: %w", err)
	}
	if !ok {
		return "", nil
	}
	return rec.UserState, nil
}

// SetParticipantUserState 设置关注状态，state 为空串时清除；参与关系不存在时返回 false
func (a *Adapter) SetParticipantUserState(ctx context.Context, roomID, entityID string, state types.ParticipantState) (updated bool, err error) {
	ctx, done := a.begin(ctx, "set_participant_user_state")
	defer done(&err)

	switch state {
	case "", types.ParticipantFollowed, types.ParticipantMuted:
	default:
		return false, types.NewInvalidRequestError("unknown participant state %q", state)
	}

	key := participantKey(roomID, entityID)
	var rec types.Participant
	ok, err := a.getRecord(ctx, types.CollectionParticipants, key, &rec)
	if err != nil {
		return false, fmt.Errorf("memory: set participant state: %w", err)
	}
	if !ok {
		return false, nil
	}
	rec.UserState = state
	if err := a.putRecord(ctx, types.CollectionParticipants, key, &rec); err != nil {
		return false, fmt.Errorf("memory: set participant state: %w", err)
	}
	return true, nil
}
