// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 memory 实现记忆适配器（Adapter），把智能体运行时的领域操作翻译为
CollectionStore 与 HNSW 向量索引上的调用。适配器本身不持有任何存储。

# 集合

  - agents / entities / worlds / rooms / participants：结构化记录
  - memories：记忆记录，metadata.type 记录逻辑表名（messages、facts 等）
  - cache：带可选过期时间的缓存条目

# 记忆生命周期

CreateMemory 先写入 memories 集合，嵌入非空时再写入向量索引；
DeleteMemory 先删除记录，再无条件移除向量。适配器从不计算嵌入。

SearchMemories 以 2 倍 k 过采样查询索引，并发回填记录（保持索引顺序），
再按表名与房间、世界、实体、唯一性过滤，附上相似度后截断到 k。

# 一致性

多步操作（写记录加写向量、DeleteRoom 的三步级联）默认不具备原子性，
中途失败不会回滚。Options.StrictConsistency 打开后，这些操作在适配器内
串行执行。

# 缓存

SetCache 默认不设置过期时间，只有显式传入 WithTTL 或 WithExpiresAt
时条目才会过期。GetCache 读到过期条目时删除并返回不存在。
*/
package memory
