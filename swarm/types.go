package swarm

import (
	"time"

	"github.com/BaSui01/swarmflow/swarm/consensus"
	"github.com/BaSui01/swarmflow/swarm/fabric"
)

// CoordinatorID is the fabric sender id used for messages the coordinator
// originates, such as task assignments.
const CoordinatorID = "coordinator"

// Load accounting.
const (
	LoadStep = 20
	MaxLoad  = 100
)

// State is the coordinator lifecycle state.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitialized   State = "initialized"
	StateShutDown      State = "shut_down"
)

// AgentStatus 表示 agent 当前状态
type AgentStatus string

const (
	AgentIdle    AgentStatus = "idle"
	AgentBusy    AgentStatus = "busy"
	AgentOffline AgentStatus = "offline"
)

// TaskStatus 表示任务状态
type TaskStatus string

// AssignTask creates tasks directly as assigned; pending and in-progress
// are reserved for integrators that stage or track execution themselves.
const (
	TaskPending    TaskStatus = "pending"
	TaskAssigned   TaskStatus = "assigned"
	TaskInProgress TaskStatus = "in-progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// IsFinished reports whether the task reached a terminal status.
func (s TaskStatus) IsFinished() bool {
	return s == TaskCompleted || s == TaskFailed
}

// AgentConfig describes an agent to add to the swarm.
type AgentConfig struct {
	Name         string            `json:"name" yaml:"name"`
	Type         string            `json:"type" yaml:"type"`
	Capabilities []string          `json:"capabilities" yaml:"capabilities"`
	Metadata     map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Agent is a snapshot of a swarm member. Snapshots are copies; mutating one
// does not affect the registry.
type Agent struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Type         string            `json:"type"`
	Capabilities CapabilitySet     `json:"capabilities"`
	Status       AgentStatus       `json:"status"`
	Load         int               `json:"load"`
	LastActive   time.Time         `json:"last_active"`
	AddedAt      time.Time         `json:"added_at"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

func (a *Agent) clone() Agent {
	out := *a
	out.Capabilities = a.Capabilities.Clone()
	if a.Metadata != nil {
		out.Metadata = make(map[string]string, len(a.Metadata))
		for k, v := range a.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// TaskSpec describes work to assign. An empty ID is generated.
type TaskSpec struct {
	ID                   string   `json:"id,omitempty"`
	Description          string   `json:"description"`
	RequiredCapabilities []string `json:"required_capabilities"`
	Priority             int      `json:"priority"`
	Payload              any      `json:"payload,omitempty"`
}

// Task is a snapshot of an assigned unit of work.
type Task struct {
	ID                   string        `json:"id"`
	Description          string        `json:"description"`
	RequiredCapabilities CapabilitySet `json:"required_capabilities"`
	Priority             int           `json:"priority"`
	Payload              any           `json:"payload,omitempty"`
	AssignedAgents       []string      `json:"assigned_agents"`
	Status               TaskStatus    `json:"status"`
	Result               any           `json:"result,omitempty"`
	Error                string        `json:"error,omitempty"`
	StartTime            time.Time     `json:"start_time"`
	EndTime              time.Time     `json:"end_time,omitempty"`
}

func (t *Task) clone() Task {
	out := *t
	out.RequiredCapabilities = t.RequiredCapabilities.Clone()
	out.AssignedAgents = append([]string(nil), t.AssignedAgents...)
	return out
}

// TaskAssignment is the payload of the fabric message sent to each assigned
// agent.
type TaskAssignment struct {
	TaskID               string   `json:"task_id"`
	Description          string   `json:"description"`
	RequiredCapabilities []string `json:"required_capabilities"`
	Priority             int      `json:"priority"`
	Payload              any      `json:"payload,omitempty"`
}

// AgentCounts counts agents by status.
type AgentCounts struct {
	Total   int `json:"total"`
	Idle    int `json:"idle"`
	Busy    int `json:"busy"`
	Offline int `json:"offline"`
}

// TaskCounts counts tasks by status.
type TaskCounts struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Assigned   int `json:"assigned"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// Statistics is a point-in-time view of the swarm. AverageLoad is averaged
// over agents that are not offline.
type Statistics struct {
	State       State                `json:"state"`
	SessionID   string               `json:"session_id,omitempty"`
	Agents      AgentCounts          `json:"agents"`
	Tasks       TaskCounts           `json:"tasks"`
	AverageLoad float64              `json:"average_load"`
	Fabric      fabric.Statistics    `json:"fabric"`
	Consensus   consensus.Statistics `json:"consensus"`
}

// HealthReport summarizes one health pass. Failed lists agents whose check
// panicked; the pass continues past them.
type HealthReport struct {
	CheckedAt time.Time `json:"checked_at"`
	Checked   int       `json:"checked"`
	TimedOut  []string  `json:"timed_out,omitempty"`
	Failed    []string  `json:"failed,omitempty"`
}
