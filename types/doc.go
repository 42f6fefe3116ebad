// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供记忆存储组件的共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 index、store、memory
等上层模块提供统一的记录结构与错误码。

# 核心类型

  - Memory            — 记忆记录（content + 可选 embedding + metadata.type 表标签）
  - Agent / Entity    — 智能体与实体
  - World / Room      — 世界与房间
  - Participant       — 房间参与者
  - CacheEntry        — 带可选过期时间的缓存条目
  - Error / ErrorCode — 结构化错误体系

# 约定

缺失（记录不存在）以 nil 或空切片表示，而不是错误；调用方据此决定
创建或更新。
*/
package types
