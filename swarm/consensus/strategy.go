package consensus

import (
	"github.com/BaSui01/swarmflow/types"
)

// Decision is the outcome of evaluating a tally.
type Decision int

const (
	DecisionPending Decision = iota
	DecisionApprove
	DecisionReject
)

// Strategy decides whether a tally resolves a proposal. Implementations must
// be pure; the engine serializes calls per proposal.
type Strategy interface {
	Name() Algorithm
	Evaluate(t Tally) (Decision, Reason)
}

// MajorityVote approves once the approval share of cast ballots reaches
// Quorum, and rejects as soon as the remaining electorate can no longer lift
// approval to Quorum. Nothing resolves before MinParticipants ballots.
type MajorityVote struct {
	MinParticipants int
	Quorum          float64
}

// Name implements Strategy.
func (MajorityVote) Name() Algorithm { return AlgorithmMajorityVote }

// Evaluate implements Strategy.
func (m MajorityVote) Evaluate(t Tally) (Decision, Reason) {
	cast := t.Cast()
	if cast == 0 || cast < m.MinParticipants {
		return DecisionPending, ""
	}

	if percent(t.Approve, cast) >= m.Quorum {
		return DecisionApprove, ReasonQuorumReached
	}

	electorate := max(t.Expected, m.MinParticipants)
	remaining := max(electorate-cast, 0)
	if percent(t.Approve+remaining, cast+remaining) < m.Quorum {
		return DecisionReject, ReasonQuorumUnreachable
	}
	return DecisionPending, ""
}

func percent(part, total int) float64 {
	return float64(part) / float64(total) * 100
}

// NewStrategy builds the strategy named by cfg.Algorithm.
func NewStrategy(cfg Config) (Strategy, error) {
	switch cfg.Algorithm {
	case "", AlgorithmMajorityVote:
		return MajorityVote{MinParticipants: cfg.MinParticipants, Quorum: cfg.Quorum}, nil
	default:
		return nil, types.Errorf(types.ErrUnsupportedAlgorithm, "consensus algorithm %q is not supported", cfg.Algorithm)
	}
}
