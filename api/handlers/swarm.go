package handlers

import (
	"net/http"
	"strings"

	"github.com/BaSui01/swarmflow/api"
	"github.com/BaSui01/swarmflow/swarm"
	"github.com/BaSui01/swarmflow/types"
	"go.uber.org/zap"
)

// =============================================================================
// 🐝 Swarm 查询 Handler
// =============================================================================

// SwarmReader 是 handler 需要的协调器只读视图，*swarm.Coordinator 实现了它
type SwarmReader interface {
	Statistics() swarm.Statistics
	Agents() []swarm.Agent
	Agent(agentID string) (swarm.Agent, error)
	Tasks() []swarm.Task
	Task(taskID string) (swarm.Task, error)
}

// SwarmHandler 暴露统计、agent 与任务查询
type SwarmHandler struct {
	swarm  SwarmReader
	logger *zap.Logger
}

// NewSwarmHandler 创建 swarm 查询处理器
func NewSwarmHandler(reader SwarmReader, logger *zap.Logger) *SwarmHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SwarmHandler{
		swarm:  reader,
		logger: logger.With(zap.String("component", "swarm_handler")),
	}
}

// HandleStats 处理 GET /v1/stats
func (h *SwarmHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, h.swarm.Statistics())
}

// HandleListAgents 处理 GET /v1/agents，可用 ?status= 过滤
func (h *SwarmHandler) HandleListAgents(w http.ResponseWriter, r *http.Request) {
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if status != "" && !validAgentStatus(swarm.AgentStatus(status)) {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "unknown agent status: "+status, h.logger)
		return
	}

	agents := make([]swarm.Agent, 0)
	for _, a := range h.swarm.Agents() {
		if status == "" || a.Status == swarm.AgentStatus(status) {
			agents = append(agents, a)
		}
	}
	WriteSuccess(w, api.AgentList{Agents: agents, Total: len(agents)})
}

// HandleGetAgent 处理 GET /v1/agents/{id}
func (h *SwarmHandler) HandleGetAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := h.swarm.Agent(r.PathValue("id"))
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, agent)
}

// HandleListTasks 处理 GET /v1/tasks，可用 ?status= 过滤
func (h *SwarmHandler) HandleListTasks(w http.ResponseWriter, r *http.Request) {
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if status != "" && !validTaskStatus(swarm.TaskStatus(status)) {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "unknown task status: "+status, h.logger)
		return
	}

	tasks := make([]swarm.Task, 0)
	for _, t := range h.swarm.Tasks() {
		if status == "" || t.Status == swarm.TaskStatus(status) {
			tasks = append(tasks, t)
		}
	}
	WriteSuccess(w, api.TaskList{Tasks: tasks, Total: len(tasks)})
}

// HandleGetTask 处理 GET /v1/tasks/{id}
func (h *SwarmHandler) HandleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.swarm.Task(r.PathValue("id"))
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, task)
}

func validAgentStatus(s swarm.AgentStatus) bool {
	switch s {
	case swarm.AgentIdle, swarm.AgentBusy, swarm.AgentOffline:
		return true
	}
	return false
}

func validTaskStatus(s swarm.TaskStatus) bool {
	switch s {
	case swarm.TaskPending, swarm.TaskAssigned, swarm.TaskInProgress, swarm.TaskCompleted, swarm.TaskFailed:
		return true
	}
	return false
}
