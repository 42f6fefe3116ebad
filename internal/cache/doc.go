// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 管理 Redis 集合存储后端所用的 go-redis 客户端。

# 核心类型

  - Manager：持有 Redis 客户端，负责连接、健康检查与关闭。
  - Config：地址、密码、库编号、连接池与健康检查间隔。

# 主要能力

  - 连接校验：NewManager 初始化时 Ping，失败即返回错误。
  - 健康检查：后台定时 Ping，异常时通过 zap 日志告警，Close 后退出。
  - 关闭语义：Close 可重复调用；关闭后 Client 返回 ErrClosed。
*/
package cache
