// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 agentmemory 宿主进程入口。

# 概述

cmd/agentmemory 按配置装配集合存储（memory/redis/gorm/mongo）、
HNSW 向量索引与记忆适配器，并在单一端口上暴露健康检查与
Prometheus 指标。持久化后端启动时会把已有嵌入重建进索引。

# 核心类型

  - Host        — 装配好的组件集合，负责 HTTP 路由与关闭顺序
  - Middleware  — HTTP 中间件函数签名 func(http.Handler) http.Handler

# 主要能力

  - 子命令：serve（启动服务）、version、health
  - 端点：/health、/healthz、/version、/metrics
  - 中间件链：Recovery、RequestID、Tracing、RequestLogger
  - 优雅关闭：SIGINT/SIGTERM → 关闭 HTTP → 关闭存储 → 刷新遥测
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
