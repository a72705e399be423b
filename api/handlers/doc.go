// 版权所有 2026 SwarmFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package handlers 提供 swarmd 运维 HTTP API 的请求处理器实现。

# 概述

handlers 包实现了 swarmd 所有只读端点的处理逻辑：健康与就绪检查、
swarm 统计快照、agent 与任务查询，以及通过 WebSocket 推送的事件流。
所有 Handler 均遵循标准 net/http 接口，路径参数通过 r.PathValue 读取。

# 核心类型

  - HealthHandler：服务健康检查（/health, /healthz, /ready, /version）
  - SwarmHandler：统计、agent 与任务的只读视图
  - EventStreamHandler：/v1/events WebSocket 事件流，支持 ?kind= 过滤
  - Response：统一 JSON 响应结构（success + data + error + timestamp）
  - ErrorInfo：结构化错误信息，含 code、message、retryable 标记
  - ResponseWriter：包装 http.ResponseWriter 以捕获状态码，支持 Hijack
  - HealthCheck：可插拔健康检查接口（Swarm、Redis 等）

# 主要能力

  - 统一响应格式：WriteSuccess / WriteError / WriteJSON 辅助函数
  - types.ErrorCode → HTTP 状态码自动映射（4xx/5xx）
  - 事件流背压：每个连接有独立缓冲，写满丢弃并补发 stream.dropped 通知
  - 可扩展健康检查：RegisterCheck 注册自定义 HealthCheck 实现
*/
package handlers
