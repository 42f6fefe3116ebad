// =============================================================================
// 📦 测试数据工厂
// =============================================================================
// 提供预置的记忆、智能体、房间与实体，字段均可在返回后修改
// =============================================================================
package fixtures

import (
	"github.com/BaSui01/agentmemory/types"
)

// Fixed IDs shared across tests.
const (
	AgentID  = "00000000-0000-4000-8000-000000000001"
	WorldID  = "00000000-0000-4000-8000-000000000002"
	RoomID   = "00000000-0000-4000-8000-000000000003"
	EntityID = "00000000-0000-4000-8000-000000000004"
)

// TextMemory 返回只含文本、无嵌入的记忆
func TextMemory(text string) *types.Memory {
	return &types.Memory{
		Content: map[string]any{"text": text},
	}
}

// EmbeddedMemory 返回带嵌入并归属于默认房间的记忆
func EmbeddedMemory(text string, embedding []float32) *types.Memory {
	return &types.Memory{
		EntityID:  EntityID,
		RoomID:    RoomID,
		WorldID:   WorldID,
		Content:   map[string]any{"text": text},
		Embedding: embedding,
	}
}

// Agent 返回启用状态的测试智能体
func Agent(name string) *types.Agent {
	enabled := true
	return &types.Agent{
		Name:     name,
		Username: name,
		Enabled:  &enabled,
		Bio:      []string{"test agent"},
		Settings: map[string]any{"model": "small", "secrets": map[string]any{"token": "x"}},
	}
}

// Room 返回归属于默认世界的群组房间
func Room(name string) *types.Room {
	return &types.Room{
		Name:    name,
		Source:  "test",
		Type:    types.RoomTypeGroup,
		WorldID: WorldID,
	}
}

// Entity 返回指定名字的实体
func Entity(names ...string) *types.Entity {
	return &types.Entity{
		Names:    names,
		Metadata: map[string]any{"source": "test"},
	}
}
