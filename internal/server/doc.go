// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 管理宿主进程的 HTTP 服务生命周期，供 agentmemory serve
暴露健康检查与 Prometheus 指标端点。

# 核心类型

  - Manager：封装 net/http.Server 与 net.Listener，提供
    Start/Run/Shutdown 生命周期方法与异步错误通道。
  - Config：监听地址、读写与空闲超时、最大请求头大小、优雅关闭超时。

# 主要能力

  - 非阻塞启动：Start 在后台 goroutine 中服务。
  - 上下文驱动：Run 阻塞到 ctx 取消或服务异常退出，然后优雅关闭，
    便于挂在 errgroup 下与其它组件一起退出。
  - 随机端口：Addr 在启动后返回实际监听地址，测试中可使用 ":0"。
*/
package server
