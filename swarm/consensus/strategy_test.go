package consensus

import (
	"testing"

	"github.com/BaSui01/swarmflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMajorityVote_Evaluate(t *testing.T) {
	t.Parallel()
	mv := MajorityVote{MinParticipants: 3, Quorum: 51}

	tests := []struct {
		name     string
		tally    Tally
		decision Decision
		reason   Reason
	}{
		{"no votes", Tally{}, DecisionPending, ""},
		{"below minimum", Tally{Approve: 2, Expected: 5}, DecisionPending, ""},
		{"two of three approve", Tally{Approve: 2, Reject: 1, Expected: 3}, DecisionApprove, ReasonQuorumReached},
		{"one of three approve", Tally{Approve: 1, Reject: 2, Expected: 3}, DecisionReject, ReasonQuorumUnreachable},
		{"unknown electorate uses minimum", Tally{Approve: 1, Reject: 2}, DecisionReject, ReasonQuorumUnreachable},
		{"stragglers can still approve", Tally{Approve: 1, Reject: 2, Expected: 6}, DecisionPending, ""},
		{"unanimous", Tally{Approve: 3, Expected: 10}, DecisionApprove, ReasonQuorumReached},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, reason := mv.Evaluate(tt.tally)
			assert.Equal(t, tt.decision, decision)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestMajorityVote_ExactQuorumApproves(t *testing.T) {
	t.Parallel()
	mv := MajorityVote{MinParticipants: 2, Quorum: 50}

	decision, _ := mv.Evaluate(Tally{Approve: 1, Reject: 1, Expected: 2})
	assert.Equal(t, DecisionApprove, decision)
}

func TestNewStrategy(t *testing.T) {
	t.Parallel()

	s, err := NewStrategy(Config{MinParticipants: 3, Quorum: 51})
	require.NoError(t, err)
	assert.Equal(t, AlgorithmMajorityVote, s.Name())

	_, err = NewStrategy(Config{Algorithm: "RAFT"})
	assert.True(t, types.IsErrorCode(err, types.ErrUnsupportedAlgorithm))
}

// 属性：决议结果与法定比例的算术一致，且未达最小参与数时永不决议
func TestMajorityVote_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		mv := MajorityVote{
			MinParticipants: rapid.IntRange(1, 10).Draw(t, "min"),
			Quorum:          float64(rapid.IntRange(1, 100).Draw(t, "quorum")),
		}
		tally := Tally{
			Approve:  rapid.IntRange(0, 20).Draw(t, "approve"),
			Reject:   rapid.IntRange(0, 20).Draw(t, "reject"),
			Expected: rapid.IntRange(0, 40).Draw(t, "expected"),
		}

		decision, _ := mv.Evaluate(tally)
		cast := tally.Cast()

		if cast < mv.MinParticipants || cast == 0 {
			if decision != DecisionPending {
				t.Fatalf("resolved with %d of %d required ballots", cast, mv.MinParticipants)
			}
			return
		}

		pct := percent(tally.Approve, cast)
		switch decision {
		case DecisionApprove:
			if pct < mv.Quorum {
				t.Fatalf("approved at %.2f%% below quorum %.0f", pct, mv.Quorum)
			}
		case DecisionReject:
			if pct >= mv.Quorum {
				t.Fatalf("rejected at %.2f%% meeting quorum %.0f", pct, mv.Quorum)
			}
		case DecisionPending:
			if pct >= mv.Quorum {
				t.Fatalf("pending at %.2f%% meeting quorum %.0f", pct, mv.Quorum)
			}
		}
	})
}
