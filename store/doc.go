// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 store 定义通用的命名集合键值存储（CollectionStore）及其后端实现。

# 概述

CollectionStore 以集合名划分互相独立的键值命名空间，值为不透明的
JSON 字节。上层 memory 适配器负责编解码，本包不理解记录结构。

# 接口

  - Get / Set / Delete：单键读写删除，缺失返回 (nil, false, nil)
  - GetAll：读取集合全部条目（按键排序）
  - GetWhere / DeleteWhere：按谓词筛选，谓词在客户端执行

# 后端实现

  - MemoryStore：进程内 map，每个集合独立读写锁
  - RedisStore：每个集合一个 Redis Hash，基于 go-redis
  - GormStore：单表 collection_entries，支持 postgres / mysql / sqlite
  - MongoStore：每个集合一个 MongoDB collection

Open 根据配置中的 store.driver 选择后端。所有 I/O 错误以 %w 包装后返回。
*/
package store
