// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/BaSui01/swarmflow/swarm"
	"github.com/BaSui01/swarmflow/swarm/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器。它同时是 events.Handler：订阅到协调器的事件总线后，
// 按事件累加计数器；周期性采样的统计快照写入 Gauge。
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// 事件计数
	swarmLifecycleTotal *prometheus.CounterVec
	agentEventsTotal    *prometheus.CounterVec
	tasksAssignedTotal  prometheus.Counter
	tasksFinishedTotal  *prometheus.CounterVec
	proposalsTotal      prometheus.Counter
	votesTotal          *prometheus.CounterVec
	consensusTotal      *prometheus.CounterVec
	messagesTotal       *prometheus.CounterVec

	// 统计快照
	agents            *prometheus.GaugeVec
	tasks             *prometheus.GaugeVec
	averageLoad       prometheus.Gauge
	pendingRequests   prometheus.Gauge
	droppedMessages   prometheus.Gauge
	openProposals     prometheus.Gauge
	initializedGauge  prometheus.Gauge

	logger *zap.Logger
}

// NewCollector 创建指标收集器并注册到 reg，reg 为 nil 时使用默认注册表
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// HTTP 指标
	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.httpResponseSize = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// 事件计数
	c.swarmLifecycleTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swarm_lifecycle_total",
			Help:      "Total number of swarm session transitions",
		},
		[]string{"event"}, // initialized, shutdown
	)

	c.agentEventsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_events_total",
			Help:      "Total number of agent registry events",
		},
		[]string{"event"}, // added, removed, timeout
	)

	c.tasksAssignedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_assigned_total",
			Help:      "Total number of tasks assigned",
		},
	)

	c.tasksFinishedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_finished_total",
			Help:      "Total number of tasks finished",
		},
		[]string{"status"},
	)

	c.proposalsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consensus_proposals_total",
			Help:      "Total number of consensus proposals opened",
		},
	)

	c.votesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consensus_votes_total",
			Help:      "Total number of accepted consensus votes",
		},
		[]string{"approve"},
	)

	c.consensusTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consensus_results_total",
			Help:      "Total number of resolved proposals",
		},
		[]string{"outcome", "reason"},
	)

	c.messagesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fabric_messages_total",
			Help:      "Total number of messages observed on the communication fabric",
		},
		[]string{"kind"},
	)

	// 统计快照
	c.agents = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "agents",
			Help:      "Number of registered agents by status",
		},
		[]string{"status"},
	)

	c.tasks = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks",
			Help:      "Number of tracked tasks by status",
		},
		[]string{"status"},
	)

	c.averageLoad = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "agent_average_load",
		Help:      "Average load of agents that are not offline",
	})

	c.pendingRequests = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "fabric_pending_requests",
		Help:      "Requests awaiting a reply",
	})

	c.droppedMessages = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "fabric_dropped_messages",
		Help:      "Messages dropped on full mailboxes in the current session",
	})

	c.openProposals = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "consensus_open_proposals",
		Help:      "Proposals still open for voting",
	})

	c.initializedGauge = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "swarm_initialized",
		Help:      "1 while a swarm session is open",
	})

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, responseSize int64) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	c.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// =============================================================================
// 🐝 Swarm 事件
// =============================================================================

func (c *Collector) OnSwarmInitialized(events.SwarmInitialized) {
	c.swarmLifecycleTotal.WithLabelValues("initialized").Inc()
	c.initializedGauge.Set(1)
}

func (c *Collector) OnSwarmShutdown(events.SwarmShutdown) {
	c.swarmLifecycleTotal.WithLabelValues("shutdown").Inc()
	c.initializedGauge.Set(0)
}

func (c *Collector) OnAgentAdded(events.AgentAdded) {
	c.agentEventsTotal.WithLabelValues("added").Inc()
}

func (c *Collector) OnAgentRemoved(events.AgentRemoved) {
	c.agentEventsTotal.WithLabelValues("removed").Inc()
}

func (c *Collector) OnAgentTimeout(events.AgentTimeout) {
	c.agentEventsTotal.WithLabelValues("timeout").Inc()
}

func (c *Collector) OnTaskAssigned(events.TaskAssigned) {
	c.tasksAssignedTotal.Inc()
}

func (c *Collector) OnTaskCompleted(e events.TaskCompleted) {
	c.tasksFinishedTotal.WithLabelValues(e.Status).Inc()
}

func (c *Collector) OnConsensusProposal(events.ConsensusProposal) {
	c.proposalsTotal.Inc()
}

func (c *Collector) OnConsensusVote(e events.ConsensusVote) {
	c.votesTotal.WithLabelValues(strconv.FormatBool(e.Approve)).Inc()
}

func (c *Collector) OnConsensusResult(e events.ConsensusResult) {
	outcome := "rejected"
	if e.Approved {
		outcome = "approved"
	}
	c.consensusTotal.WithLabelValues(outcome, e.Reason).Inc()
}

func (c *Collector) OnAgentMessage(e events.AgentMessage) {
	c.messagesTotal.WithLabelValues(e.MessageKind).Inc()
}

// =============================================================================
// 📈 统计快照
// =============================================================================

// ObserveStatistics 将协调器统计快照写入 Gauge
func (c *Collector) ObserveStatistics(stats swarm.Statistics) {
	c.agents.WithLabelValues(string(swarm.AgentIdle)).Set(float64(stats.Agents.Idle))
	c.agents.WithLabelValues(string(swarm.AgentBusy)).Set(float64(stats.Agents.Busy))
	c.agents.WithLabelValues(string(swarm.AgentOffline)).Set(float64(stats.Agents.Offline))

	c.tasks.WithLabelValues(string(swarm.TaskPending)).Set(float64(stats.Tasks.Pending))
	c.tasks.WithLabelValues(string(swarm.TaskAssigned)).Set(float64(stats.Tasks.Assigned))
	c.tasks.WithLabelValues(string(swarm.TaskInProgress)).Set(float64(stats.Tasks.InProgress))
	c.tasks.WithLabelValues(string(swarm.TaskCompleted)).Set(float64(stats.Tasks.Completed))
	c.tasks.WithLabelValues(string(swarm.TaskFailed)).Set(float64(stats.Tasks.Failed))

	c.averageLoad.Set(stats.AverageLoad)
	c.pendingRequests.Set(float64(stats.Fabric.PendingRequests))
	c.droppedMessages.Set(float64(stats.Fabric.Dropped))
	c.openProposals.Set(float64(stats.Consensus.Open))
}

// RunSampler 每隔 interval 采样一次 source，直到 ctx 结束
func (c *Collector) RunSampler(ctx context.Context, interval time.Duration, source func() swarm.Statistics) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.ObserveStatistics(source())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.ObserveStatistics(source())
		}
	}
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// statusCode 将 HTTP 状态码转换为字符串
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

var _ events.Handler = (*Collector)(nil)
