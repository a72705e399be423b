// 版权所有 2026 SwarmFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package swarm 提供 swarm 协调核心：agent 注册表、任务分配、共识与健康检查。

# 概述

Coordinator 是应用代码使用的门面。它通过 runtime.Client 生成 agent，
在 fabric 中为每个 agent 注册邮箱，通过 consensus.Engine 运行提案投票，
并以固定间隔把长时间未活跃的 agent 标记为 offline。

# 生命周期

	UNINITIALIZED → INITIALIZED → SHUT_DOWN

任何变更操作在未初始化时都会先自动调用 Initialize。Shutdown 之后可以重新初始化。

# 任务分配

候选 agent 需同时满足：非 offline、负载低于 MaxAgentLoad、能力集合覆盖任务所需能力。
分配策略支持 round-robin（每次从头选取）、least-loaded、capability-based
以及带跨调用游标的 rotating。每次分配负载 +20（上限 100），完成或失败时 -20（下限 0），
负载归零时状态恢复为 idle。

# 事件

所有状态变化以 events 包中的类型化事件发布，订阅方通过 Subscribe 注册 events.Handler。
*/
package swarm
