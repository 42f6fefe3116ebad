// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 index 提供进程内的 HNSW（Hierarchical Navigable Small World）近似
最近邻向量索引。

# 概述

HNSWIndex 维护固定维度 float32 向量上的多层邻近图。节点以字符串 ID
存放在一张 map 中，邻居关系同样以 ID 集合表示，节点之间不持有指针。

# 核心操作

  - Init：设置工作维度，并清空已有节点（破坏性重置）
  - Add：插入或原地替换向量；维度不符时返回 *DimensionMismatchError
  - Remove：删除节点并从所有邻居集合中摘除其 ID，不补边
  - Search：自顶层贪心下降，在第 0 层以 max(k, EfSearch) 宽度搜索，
    按余弦相似度阈值过滤后截断到 k
  - Snapshot / Restore / WriteTo / ReadFrom：整图状态快照

# 并发

读写锁保护节点表、入口点与最大层数。Search 持读锁，Add / Remove /
Init / Restore 持写锁，锁在单次调用内全程持有，因此新节点的正向边与
反向边对并发搜索同时可见。

# 层数分配

层数由可注入的 LevelGenerator 产生（默认基于带种子的 math/rand），
测试可替换为固定序列以得到确定的图结构。
*/
package index
