// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的记忆存储指标采集。

# 概述

Collector 通过 promauto.With 在调用方给定的 Registerer 上注册指标，
便于测试使用独立 Registry。所有指标按 namespace 隔离。

# 指标

  - memory_operations_total / memory_operation_duration_seconds：适配器操作
  - index_vectors / index_operations_total：HNSW 索引规模与变更
  - index_search_duration_seconds / search_results：近邻搜索
  - cache_hits_total / cache_misses_total / cache_expired_total：缓存命中

nil *Collector 可直接调用，所有记录方法为空操作。
*/
package metrics
