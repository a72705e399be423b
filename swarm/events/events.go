package events

import "time"

// Kind names an event variant on the wire.
type Kind string

const (
	KindSwarmInitialized  Kind = "swarm.initialized"
	KindSwarmShutdown     Kind = "swarm.shutdown"
	KindAgentAdded        Kind = "agent.added"
	KindAgentRemoved      Kind = "agent.removed"
	KindAgentTimeout      Kind = "agent.timeout"
	KindTaskAssigned      Kind = "task.assigned"
	KindTaskCompleted     Kind = "task.completed"
	KindConsensusProposal Kind = "consensus.proposal"
	KindConsensusVote     Kind = "consensus.vote"
	KindConsensusResult   Kind = "consensus.result"
	KindAgentMessage      Kind = "agent.message"
)

var allKinds = []Kind{
	KindSwarmInitialized,
	KindSwarmShutdown,
	KindAgentAdded,
	KindAgentRemoved,
	KindAgentTimeout,
	KindTaskAssigned,
	KindTaskCompleted,
	KindConsensusProposal,
	KindConsensusVote,
	KindConsensusResult,
	KindAgentMessage,
}

// Kinds lists every event kind in declaration order.
func Kinds() []Kind {
	return append([]Kind(nil), allKinds...)
}

// Valid reports whether k names a declared variant.
func (k Kind) Valid() bool {
	for _, known := range allKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Event is one of the closed set of swarm event variants declared in this
// file. The unexported dispatch method keeps the set closed: every variant
// routes itself to exactly one Handler method.
type Event interface {
	Kind() Kind
	OccurredAt() time.Time
	dispatch(h Handler)
}

// SwarmInitialized is emitted once a coordinator session is established.
type SwarmInitialized struct {
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}

// SwarmShutdown is emitted after the coordinator tore its session down.
type SwarmShutdown struct {
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}

// AgentAdded is emitted after a spawned agent joined the registry.
type AgentAdded struct {
	AgentID      string    `json:"agent_id"`
	AgentType    string    `json:"agent_type"`
	Capabilities []string  `json:"capabilities"`
	Timestamp    time.Time `json:"timestamp"`
}

// AgentRemoved is emitted after an agent left the registry.
type AgentRemoved struct {
	AgentID   string    `json:"agent_id"`
	Timestamp time.Time `json:"timestamp"`
}

// AgentTimeout is emitted when the health check marks an agent offline.
type AgentTimeout struct {
	AgentID    string    `json:"agent_id"`
	LastActive time.Time `json:"last_active"`
	Timestamp  time.Time `json:"timestamp"`
}

// TaskAssigned is emitted after a task was created and its agents loaded.
type TaskAssigned struct {
	TaskID               string    `json:"task_id"`
	AgentIDs             []string  `json:"agent_ids"`
	RequiredCapabilities []string  `json:"required_capabilities"`
	Timestamp            time.Time `json:"timestamp"`
}

// TaskCompleted is emitted when a task reaches completed or failed.
type TaskCompleted struct {
	TaskID    string    `json:"task_id"`
	Status    string    `json:"status"`
	AgentIDs  []string  `json:"agent_ids"`
	Timestamp time.Time `json:"timestamp"`
}

// ConsensusProposal is emitted after a proposal opened for voting.
type ConsensusProposal struct {
	ProposalID  string    `json:"proposal_id"`
	ProposerID  string    `json:"proposer_id"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// ConsensusVote is emitted for every accepted vote.
type ConsensusVote struct {
	ProposalID string    `json:"proposal_id"`
	VoterID    string    `json:"voter_id"`
	Approve    bool      `json:"approve"`
	Timestamp  time.Time `json:"timestamp"`
}

// ConsensusResult is emitted exactly once per resolved proposal.
type ConsensusResult struct {
	ProposalID   string    `json:"proposal_id"`
	Approved     bool      `json:"approved"`
	ApproveCount int       `json:"approve_count"`
	RejectCount  int       `json:"reject_count"`
	Expected     int       `json:"expected"`
	Reason       string    `json:"reason"`
	Timestamp    time.Time `json:"timestamp"`
}

// AgentMessage wraps a delivery observed on the communication fabric.
type AgentMessage struct {
	MessageID     string    `json:"message_id"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	MessageKind   string    `json:"message_kind"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e SwarmInitialized) Kind() Kind  { return KindSwarmInitialized }
func (e SwarmShutdown) Kind() Kind     { return KindSwarmShutdown }
func (e AgentAdded) Kind() Kind        { return KindAgentAdded }
func (e AgentRemoved) Kind() Kind      { return KindAgentRemoved }
func (e AgentTimeout) Kind() Kind      { return KindAgentTimeout }
func (e TaskAssigned) Kind() Kind      { return KindTaskAssigned }
func (e TaskCompleted) Kind() Kind     { return KindTaskCompleted }
func (e ConsensusProposal) Kind() Kind { return KindConsensusProposal }
func (e ConsensusVote) Kind() Kind     { return KindConsensusVote }
func (e ConsensusResult) Kind() Kind   { return KindConsensusResult }
func (e AgentMessage) Kind() Kind      { return KindAgentMessage }

func (e SwarmInitialized) OccurredAt() time.Time  { return e.Timestamp }
func (e SwarmShutdown) OccurredAt() time.Time     { return e.Timestamp }
func (e AgentAdded) OccurredAt() time.Time        { return e.Timestamp }
func (e AgentRemoved) OccurredAt() time.Time      { return e.Timestamp }
func (e AgentTimeout) OccurredAt() time.Time      { return e.Timestamp }
func (e TaskAssigned) OccurredAt() time.Time      { return e.Timestamp }
func (e TaskCompleted) OccurredAt() time.Time     { return e.Timestamp }
func (e ConsensusProposal) OccurredAt() time.Time { return e.Timestamp }
func (e ConsensusVote) OccurredAt() time.Time     { return e.Timestamp }
func (e ConsensusResult) OccurredAt() time.Time   { return e.Timestamp }
func (e AgentMessage) OccurredAt() time.Time      { return e.Timestamp }

func (e SwarmInitialized) dispatch(h Handler)  { h.OnSwarmInitialized(e) }
func (e SwarmShutdown) dispatch(h Handler)     { h.OnSwarmShutdown(e) }
func (e AgentAdded) dispatch(h Handler)        { h.OnAgentAdded(e) }
func (e AgentRemoved) dispatch(h Handler)      { h.OnAgentRemoved(e) }
func (e AgentTimeout) dispatch(h Handler)      { h.OnAgentTimeout(e) }
func (e TaskAssigned) dispatch(h Handler)      { h.OnTaskAssigned(e) }
func (e TaskCompleted) dispatch(h Handler)     { h.OnTaskCompleted(e) }
func (e ConsensusProposal) dispatch(h Handler) { h.OnConsensusProposal(e) }
func (e ConsensusVote) dispatch(h Handler)     { h.OnConsensusVote(e) }
func (e ConsensusResult) dispatch(h Handler)   { h.OnConsensusResult(e) }
func (e AgentMessage) dispatch(h Handler)      { h.OnAgentMessage(e) }

// Dispatch routes e to the matching method of h.
func Dispatch(e Event, h Handler) {
	e.dispatch(h)
}
