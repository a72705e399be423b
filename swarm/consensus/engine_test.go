package consensus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BaSui01/swarmflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEngine(t *testing.T, cfg Config, opts ...Option) *Engine {
	t.Helper()
	e, err := New(cfg, zap.NewNop(), opts...)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func propose(t *testing.T, e *Engine, id string, expected int) Proposal {
	t.Helper()
	p, err := e.Propose(context.Background(), Proposal{
		ID:             id,
		ProposerID:     "proposer",
		Description:    "deploy v2",
		Value:          "v2",
		ExpectedVoters: expected,
	})
	require.NoError(t, err)
	return p
}

func vote(e *Engine, proposalID, voter string, approve bool) (*Result, error) {
	return e.Vote(context.Background(), Vote{ProposalID: proposalID, VoterID: voter, Approve: approve})
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Quorum: 0}, nil)
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))

	_, err = New(Config{Quorum: 51, Algorithm: "PBFT"}, nil)
	assert.True(t, types.IsErrorCode(err, types.ErrUnsupportedAlgorithm))

	e, err := New(DefaultConfig(), nil)
	require.NoError(t, err)
	defer e.Close()
	assert.Equal(t, AlgorithmMajorityVote, e.Algorithm())
}

// ---------------------------------------------------------------------------
// Voting
// ---------------------------------------------------------------------------

func TestEngine_QuorumOutcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		ballots  []bool
		approved bool
		value    any
	}{
		{"approve approve reject", []bool{true, true, false}, true, "v2"},
		{"reject reject approve", []bool{false, false, true}, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, DefaultConfig())
			p := propose(t, e, "p1", 3)

			var result *Result
			for i, approve := range tt.ballots {
				r, err := vote(e, p.ID, fmt.Sprintf("agent-%d", i), approve)
				require.NoError(t, err)
				if i < len(tt.ballots)-1 {
					assert.Nil(t, r, "resolved before the minimum was met")
				}
				result = r
			}

			require.NotNil(t, result)
			assert.Equal(t, tt.approved, result.Approved)
			assert.Equal(t, tt.value, result.Value)
			assert.Equal(t, 3, result.Tally.Cast())

			state, err := e.State(p.ID)
			require.NoError(t, err)
			assert.True(t, state.IsResolved())
		})
	}
}

func TestEngine_VoteErrors(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, DefaultConfig())
	p := propose(t, e, "p1", 3)

	_, err := vote(e, "missing", "a1", true)
	assert.True(t, types.IsErrorCode(err, types.ErrProposalNotFound))

	_, err = vote(e, p.ID, "", true)
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))

	_, err = vote(e, p.ID, "a1", true)
	require.NoError(t, err)
	_, err = vote(e, p.ID, "a1", false)
	assert.True(t, types.IsErrorCode(err, types.ErrDuplicateVote))

	// 重复投票不计入票数
	_, votes, ok := e.Proposal(p.ID)
	require.True(t, ok)
	assert.Len(t, votes, 1)

	_, err = vote(e, p.ID, "a2", true)
	require.NoError(t, err)
	r, err := vote(e, p.ID, "a3", true)
	require.NoError(t, err)
	require.NotNil(t, r)

	_, err = vote(e, p.ID, "a4", true)
	assert.True(t, types.IsErrorCode(err, types.ErrProposalNotOpen))
}

func TestEngine_DuplicateProposal(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, DefaultConfig())
	propose(t, e, "p1", 3)

	_, err := e.Propose(context.Background(), Proposal{ID: "p1"})
	assert.True(t, types.IsErrorCode(err, types.ErrDuplicateProposal))

	p, err := e.Propose(context.Background(), Proposal{Description: "auto id"})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
}

func TestEngine_ResolvesOnceUnderConcurrentVotes(t *testing.T) {
	t.Parallel()
	var resolutions atomic.Int32
	e := newTestEngine(t, Config{MinParticipants: 1, Quorum: 51}, WithHooks(Hooks{
		OnResolved: func(Result) { resolutions.Add(1) },
	}))
	p := propose(t, e, "p1", 0)

	const voters = 32
	var wg sync.WaitGroup
	var winners atomic.Int32
	start := make(chan struct{})
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			r, err := vote(e, p.ID, fmt.Sprintf("agent-%d", i), true)
			if err == nil && r != nil {
				winners.Add(1)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), resolutions.Load())
	assert.Equal(t, int32(1), winners.Load())

	r, ok := e.Result(p.ID)
	require.True(t, ok)
	assert.True(t, r.Approved)
	assert.Equal(t, 1, r.Tally.Cast())
}

// ---------------------------------------------------------------------------
// Waiting and deadlines
// ---------------------------------------------------------------------------

func TestEngine_WaitForResultTimesOutBelowMinimum(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, DefaultConfig())
	p := propose(t, e, "p1", 5)

	for _, voter := range []string{"a1", "a2"} {
		_, err := vote(e, p.ID, voter, true)
		require.NoError(t, err)
	}

	start := time.Now()
	_, err := e.WaitForResult(context.Background(), p.ID, 200*time.Millisecond)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrConsensusTimeout))
	assert.True(t, types.IsRetryable(err))
	assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)

	// 等待超时不影响提案本身
	state, err := e.State(p.ID)
	require.NoError(t, err)
	assert.Equal(t, StateOpen, state)
}

func TestEngine_WaitForResultWakesOnVote(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, DefaultConfig())
	p := propose(t, e, "p1", 3)

	resultCh := make(chan *Result, 1)
	go func() {
		r, err := e.WaitForResult(context.Background(), p.ID, 5*time.Second)
		if err == nil {
			resultCh <- r
		}
		close(resultCh)
	}()

	for _, voter := range []string{"a1", "a2", "a3"} {
		_, err := vote(e, p.ID, voter, true)
		require.NoError(t, err)
	}

	select {
	case r := <-resultCh:
		require.NotNil(t, r)
		assert.True(t, r.Approved)
		assert.Equal(t, "v2", r.Value)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was not woken by the resolving vote")
	}

	// 已决议的提案立即返回
	r, err := e.WaitForResult(context.Background(), p.ID, time.Millisecond)
	require.NoError(t, err)
	assert.True(t, r.Approved)
}

func TestEngine_ProposalDeadlineRejects(t *testing.T) {
	t.Parallel()
	resolved := make(chan Result, 1)
	e := newTestEngine(t, Config{MinParticipants: 3, Quorum: 51, Timeout: 50 * time.Millisecond},
		WithHooks(Hooks{OnResolved: func(r Result) { resolved <- r }}))
	p := propose(t, e, "p1", 3)

	r, err := e.WaitForResult(context.Background(), p.ID, time.Second)
	require.NoError(t, err)
	assert.False(t, r.Approved)
	assert.Nil(t, r.Value)
	assert.Equal(t, ReasonTimeout, r.Reason)

	select {
	case got := <-resolved:
		assert.Equal(t, ReasonTimeout, got.Reason)
	case <-time.After(time.Second):
		t.Fatal("resolution hook not called")
	}

	_, err = vote(e, p.ID, "late", true)
	assert.True(t, types.IsErrorCode(err, types.ErrProposalNotOpen))
}

func TestEngine_WaitForResultContextCancel(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, DefaultConfig())
	p := propose(t, e, "p1", 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.WaitForResult(ctx, p.ID, time.Second)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = e.WaitForResult(context.Background(), "missing", time.Second)
	assert.True(t, types.IsErrorCode(err, types.ErrProposalNotFound))
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func TestEngine_CloseRejectsOpenProposals(t *testing.T) {
	t.Parallel()
	e, err := New(DefaultConfig(), zap.NewNop())
	require.NoError(t, err)
	p := propose(t, e, "p1", 3)

	e.Close()
	e.Close()

	r, ok := e.Result(p.ID)
	require.True(t, ok)
	assert.Equal(t, ReasonEngineClosed, r.Reason)

	_, err = e.Propose(context.Background(), Proposal{ID: "p2"})
	assert.True(t, types.IsErrorCode(err, types.ErrEngineClosed))
}

func TestEngine_Statistics(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, Config{MinParticipants: 1, Quorum: 51})
	propose(t, e, "open", 3)
	approved := propose(t, e, "approved", 1)
	rejected := propose(t, e, "rejected", 1)

	_, err := vote(e, approved.ID, "a1", true)
	require.NoError(t, err)
	_, err = vote(e, rejected.ID, "a1", false)
	require.NoError(t, err)

	stats := e.Statistics()
	assert.Equal(t, Statistics{Open: 1, Approved: 1, Rejected: 1, VotesRecorded: 2}, stats)
}
