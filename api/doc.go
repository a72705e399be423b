// Package api 定义 swarmd 运维 HTTP 接口的响应类型。
//
// 接口是只读的，供运维与仪表盘使用：
//
//	GET /health, /healthz   活跃度探针
//	GET /ready              就绪检查（协调器状态、Redis）
//	GET /version            版本信息
//	GET /v1/stats           swarm 统计快照
//	GET /v1/agents[/{id}]   agent 注册表
//	GET /v1/tasks[/{id}]    任务注册表，支持 ?status= 过滤
//	GET /v1/events          WebSocket 事件流，可用 ?kind= 过滤
//
// 成功响应统一为 {"success":true,"data":...,"timestamp":...}；
// 错误响应的 error.code 与 types.ErrorCode 一致。事件流中每条消息是
// events.Envelope 的 JSON 形式 {"kind","timestamp","data"}。
//
// 处理器实现位于 api/handlers。
package api
