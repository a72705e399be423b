// 版权所有 2026 SwarmFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供 swarmd HTTP 服务器的生命周期管理，支持非阻塞启动、
阻塞运行与优雅关闭。

# 核心类型

  - Manager：持有 http.Server、net.Listener 与异步错误通道，
    提供 Start/Run/Shutdown 等生命周期方法。
  - Config：监听地址、读写超时、空闲超时、最大请求头大小与优雅关闭超时。

# 主要能力

  - Run：阻塞到 ctx 取消或服务异常退出，适合放进 errgroup。
    API 服务器和 metrics 服务器各用一个 Manager。
  - 优雅关闭：Shutdown 在配置的超时内排空请求，可重复调用。
  - RegisterOnShutdown：通知 WebSocket 等长连接在关闭时退出。
*/
package server
