package memory

import (
	"context"
	"fmt"

	"github.com/BaSui01/agentmemory/types"
)

// CreateAgent 写入智能体，未指定 ID 时生成 UUID，返回 ID
func (a *Adapter) CreateAgent(ctx context.Context, agent *types.Agent) (id string, err error) {
	ctx, done := a.begin(ctx, "create_agent")
	defer done(&err)

	if agent == nil {
		return "", types.NewInvalidRequestError("agent is required")
	}
	rec := *agent
	if rec.ID == "" {
		rec.ID = a.newID()
	}
	now := a.nowMillis()
	if rec.CreatedAt == 0 {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	if err := a.putRecord(ctx, types.CollectionAgents, rec.ID, &rec); err != nil {
		return "", fmt.Errorf("memory: create agent: %w", err)
	}
	return rec.ID, nil
}

// GetAgent 读取智能体，不存在时返回 nil
func (a *Adapter) GetAgent(ctx context.Context, id string) (agent *types.Agent, err error) {
	ctx, done := a.begin(ctx, "get_agent")
	defer done(&err)

	var rec types.Agent
	ok, err := a.getRecord(ctx, types.CollectionAgents, id, &rec)
	if err != nil {
		return nil, fmt.Errorf("memory: get agent: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// GetAgents 列出全部智能体（按 ID 排序）
func (a *Adapter) GetAgents(ctx context.Context) (agents []*types.Agent, err error) {
	ctx, done := a.begin(ctx, "get_agents")
	defer done(&err)

	entries, err := a.store.GetAll(ctx, types.CollectionAgents)
	if err != nil {
		return nil, fmt.Errorf("memory: get agents: %w", err)
	}
	agents, err = decodeAll[types.Agent](types.CollectionAgents, entries)
	if err != nil {
		return nil, fmt.Errorf("memory: get agents: %w", err)
	}
	return agents, nil
}

// UpdateAgent 将 patch 中的非空字段合并进已有记录，settings 逐键合并。
// 记录不存在时返回 false。
func (a *Adapter) UpdateAgent(ctx context.Context, id string, patch *types.Agent) (updated bool, err error) {
	ctx, done := a.begin(ctx, "update_agent")
	defer done(&err)

	if id == "" || patch == nil {
		return false, types.NewInvalidRequestError("agent id and patch are required")
	}
	p := *patch
	p.ID = id
	p.CreatedAt = 0
	p.UpdatedAt = a.nowMillis()

	updated, err = a.mergeRecord(ctx, types.CollectionAgents, id, &p)
	if err != nil {
		return false, fmt.Errorf("memory: update agent: %w", err)
	}
	return updated, nil
}

// DeleteAgent 删除智能体，不存在时不报错
func (a *Adapter) DeleteAgent(ctx context.Context, id string) (err error) {
	ctx, done := a.begin(ctx, "delete_agent")
	defer done(&err)

	if err := a.store.Delete(ctx, types.CollectionAgents, id); err != nil {
		return fmt.Errorf("memory: delete agent: %w", err)
	}
	return nil
}
