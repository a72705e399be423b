package fabric

import "time"

// BroadcastRecipient is the recipient marker carried by broadcast messages.
const BroadcastRecipient = "*"

// MessageKind tags the purpose of a message.
type MessageKind string

const (
	KindDirect            MessageKind = "direct"
	KindBroadcast         MessageKind = "broadcast"
	KindRequest           MessageKind = "request"
	KindResponse          MessageKind = "response"
	KindTaskAssignment    MessageKind = "task.assignment"
	KindConsensusProposal MessageKind = "consensus.proposal"
	KindHeartbeat         MessageKind = "heartbeat"
)

// Message is a transient envelope moving between agents. Messages are never
// persisted; request/response pairs share a CorrelationID.
type Message struct {
	ID            string      `json:"id"`
	From          string      `json:"from"`
	To            string      `json:"to"`
	Kind          MessageKind `json:"kind"`
	Payload       any         `json:"payload,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Timestamp     time.Time   `json:"timestamp"`
}

// IsBroadcast reports whether the message was addressed to every agent.
func (m *Message) IsBroadcast() bool {
	return m.To == BroadcastRecipient
}

// Statistics reports fabric counters. Reading them has no side effects.
type Statistics struct {
	RegisteredAgents int   `json:"registered_agents"`
	MessagesSent     int64 `json:"messages_sent"`
	BroadcastsIssued int64 `json:"broadcasts_issued"`
	Delivered        int64 `json:"delivered"`
	Dropped          int64 `json:"dropped"`
	PendingRequests  int   `json:"pending_requests"`
	RequestTimeouts  int64 `json:"request_timeouts"`
	LateReplies      int64 `json:"late_replies"`
}
