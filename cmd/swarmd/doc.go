// 版权所有 2026 SwarmFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package main 提供 swarmd 服务端程序入口。

# 概述

cmd/swarmd 在进程内运行一个 swarm 协调器，并对外提供只读运维接口：
健康检查、统计快照、agent 与任务列表、WebSocket 事件流，以及独立端口上的
Prometheus 指标。协调器的写操作（添加 agent、分配任务、投票等）由集成方
以 Go API 调用，不经 HTTP 暴露。

# 核心类型

  - Server：组装事件总线、指标收集器、Redis 发布器、协调器与两个 HTTP 管理器
  - Middleware：HTTP 中间件函数签名 func(http.Handler) http.Handler

# 主要能力

  - 子命令：serve（启动服务）、version、health（--ready 查询就绪探针）
  - 中间件链：Recovery、RequestID、SecurityHeaders、OTelTracing、
    RequestLogger（同时记录 HTTP 指标）、RateLimiter（基于 IP）
  - 启动预置 agent：bootstrap_agents 以 errgroup 并发创建，任一失败即退出
  - 配置热重载：日志级别即时生效，其余变更记录为需要重启
  - 优雅关闭：信号 → 关闭 HTTP（断开事件流）→ 关闭协调器 → 关闭 Redis → 刷新遥测
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
