package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope is the wire form of an event for out-of-process observers.
type Envelope struct {
	Kind      Kind      `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	Data      Event     `json:"data"`
}

// NewEnvelope wraps e.
func NewEnvelope(e Event) Envelope {
	return Envelope{Kind: e.Kind(), Timestamp: e.OccurredAt(), Data: e}
}

// Marshal encodes e as a JSON envelope.
func Marshal(e Event) ([]byte, error) {
	return json.Marshal(NewEnvelope(e))
}

// Decode parses a JSON envelope back into its typed event.
func Decode(data []byte) (Event, error) {
	var raw struct {
		Kind Kind            `json:"kind"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch raw.Kind {
	case KindSwarmInitialized:
		return decodeAs[SwarmInitialized](raw.Kind, raw.Data)
	case KindSwarmShutdown:
		return decodeAs[SwarmShutdown](raw.Kind, raw.Data)
	case KindAgentAdded:
		return decodeAs[AgentAdded](raw.Kind, raw.Data)
	case KindAgentRemoved:
		return decodeAs[AgentRemoved](raw.Kind, raw.Data)
	case KindAgentTimeout:
		return decodeAs[AgentTimeout](raw.Kind, raw.Data)
	case KindTaskAssigned:
		return decodeAs[TaskAssigned](raw.Kind, raw.Data)
	case KindTaskCompleted:
		return decodeAs[TaskCompleted](raw.Kind, raw.Data)
	case KindConsensusProposal:
		return decodeAs[ConsensusProposal](raw.Kind, raw.Data)
	case KindConsensusVote:
		return decodeAs[ConsensusVote](raw.Kind, raw.Data)
	case KindConsensusResult:
		return decodeAs[ConsensusResult](raw.Kind, raw.Data)
	case KindAgentMessage:
		return decodeAs[AgentMessage](raw.Kind, raw.Data)
	default:
		return nil, fmt.Errorf("unknown event kind %q", raw.Kind)
	}
}

func decodeAs[T Event](kind Kind, data json.RawMessage) (Event, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return v, nil
}
