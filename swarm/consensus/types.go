package consensus

import (
	"time"
)

// Algorithm names a resolution strategy.
type Algorithm string

const (
	// AlgorithmMajorityVote resolves on a quorum percentage of cast votes.
	AlgorithmMajorityVote Algorithm = "MAJORITY_VOTE"
)

// State is the lifecycle state of a proposal.
type State string

const (
	StateOpen     State = "open"
	StateApproved State = "approved"
	StateRejected State = "rejected"
)

// IsResolved reports whether the state is terminal.
func (s State) IsResolved() bool {
	return s == StateApproved || s == StateRejected
}

// Reason explains why a proposal resolved.
type Reason string

const (
	ReasonQuorumReached     Reason = "quorum_reached"
	ReasonQuorumUnreachable Reason = "quorum_unreachable"
	ReasonTimeout           Reason = "timeout"
	ReasonEngineClosed      Reason = "engine_closed"
)

// Proposal is a decision submitted for voting.
type Proposal struct {
	ID          string `json:"id"`
	ProposerID  string `json:"proposer_id"`
	Description string `json:"description"`
	Value       any    `json:"value,omitempty"`
	// ExpectedVoters is the electorate size known at proposal time. Zero
	// means unknown, in which case MinParticipants bounds the electorate.
	ExpectedVoters int       `json:"expected_voters"`
	CreatedAt      time.Time `json:"created_at"`
}

// Vote is a single ballot.
type Vote struct {
	ProposalID string    `json:"proposal_id"`
	VoterID    string    `json:"voter_id"`
	Approve    bool      `json:"approve"`
	Reasoning  string    `json:"reasoning,omitempty"`
	CastAt     time.Time `json:"cast_at"`
}

// Tally counts the ballots of one proposal.
type Tally struct {
	Approve  int `json:"approve"`
	Reject   int `json:"reject"`
	Expected int `json:"expected"`
}

// Cast returns the number of ballots recorded.
func (t Tally) Cast() int {
	return t.Approve + t.Reject
}

// Result is the final outcome of a proposal. Value is nil when rejected.
type Result struct {
	ProposalID string    `json:"proposal_id"`
	Approved   bool      `json:"approved"`
	Value      any       `json:"value,omitempty"`
	Tally      Tally     `json:"tally"`
	Reason     Reason    `json:"reason"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// Config configures the engine.
type Config struct {
	Algorithm Algorithm `yaml:"algorithm" env:"ALGORITHM"`
	// MinParticipants is the number of ballots required before evaluation.
	MinParticipants int `yaml:"min_participants" env:"MIN_PARTICIPANTS"`
	// Quorum is the approval percentage (0, 100] needed to approve.
	Quorum float64 `yaml:"quorum" env:"QUORUM"`
	// Timeout auto-rejects proposals still open after this long; 0 disables.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Algorithm:       AlgorithmMajorityVote,
		MinParticipants: 3,
		Quorum:          51,
		Timeout:         30 * time.Second,
	}
}

// Statistics summarizes engine activity.
type Statistics struct {
	Open          int   `json:"open"`
	Approved      int   `json:"approved"`
	Rejected      int   `json:"rejected"`
	VotesRecorded int64 `json:"votes_recorded"`
}
