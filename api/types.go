package api

import (
	"time"

	"github.com/BaSui01/swarmflow/swarm"
)

// =============================================================================
// 健康检查类型
// =============================================================================

// HealthStatus 健康状态响应
type HealthStatus struct {
	Status    string                 `json:"status"` // "healthy", "unhealthy"
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult 单个检查结果
type CheckResult struct {
	Status  string `json:"status"` // "pass", "fail"
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// =============================================================================
// Swarm 查询类型
// =============================================================================

// AgentList 是 GET /v1/agents 的数据部分
type AgentList struct {
	Agents []swarm.Agent `json:"agents"`
	Total  int           `json:"total"`
}

// TaskList 是 GET /v1/tasks 的数据部分
type TaskList struct {
	Tasks []swarm.Task `json:"tasks"`
	Total int          `json:"total"`
}

// =============================================================================
// 事件流类型
// =============================================================================

// StreamDropped 在客户端落后导致事件被丢弃后发送，随后恢复正常推送
type StreamDropped struct {
	Kind    string `json:"kind"` // 固定为 "stream.dropped"
	Dropped int64  `json:"dropped"`
}

// StreamDroppedKind 是 StreamDropped 的 kind 值
const StreamDroppedKind = "stream.dropped"
