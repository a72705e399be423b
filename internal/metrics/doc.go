// 版权所有 2026 SwarmFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的 swarm 指标采集能力。

# 概述

Collector 通过 promauto.With 注册到调用方提供的 Registry，
既是事件总线的订阅者（events.Handler），也接收协调器的统计快照。

# 主要能力

  - HTTP 指标：请求总数、请求耗时、响应体大小，状态码归类为 2xx/3xx/4xx/5xx。
  - 事件计数：会话、agent 增删与超时、任务分配与结束、共识提案/投票/结果、消息。
  - 统计快照：按状态的 agent 与任务数量、平均负载、待回复请求、
    丢弃消息、未决提案，由 RunSampler 周期性刷新。
*/
package metrics
