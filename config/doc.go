// Package config 提供记忆存储组件的配置加载。
//
// 配置优先级：默认值 → YAML 文件 → 环境变量（前缀 AGENTMEMORY）。
// 涵盖 HNSW 索引参数、适配器默认值、集合存储后端、日志与遥测。
package config
