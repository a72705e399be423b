package consensus

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/swarmflow/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Hooks observe engine transitions. They run after the engine lock is
// released, on the goroutine that caused the transition.
type Hooks struct {
	OnProposal func(p Proposal)
	OnVote     func(v Vote)
	// OnResolved fires exactly once per proposal.
	OnResolved func(r Result)
}

// Option customizes an Engine.
type Option func(*Engine)

// WithHooks installs transition hooks.
func WithHooks(h Hooks) Option {
	return func(e *Engine) { e.hooks = h }
}

// WithStrategy overrides the strategy derived from Config.Algorithm.
func WithStrategy(s Strategy) Option {
	return func(e *Engine) { e.strategy = s }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

type proposalEntry struct {
	proposal Proposal
	voters   map[string]struct{}
	votes    []Vote
	tally    Tally
	state    State
	result   *Result
	done     chan struct{}
	timer    *time.Timer
}

// Engine runs the proposal lifecycle: OPEN until a vote or the proposal
// deadline resolves it to APPROVED or REJECTED. Resolution is evaluated
// synchronously inside the call that records the deciding vote.
type Engine struct {
	config   Config
	strategy Strategy
	hooks    Hooks
	logger   *zap.Logger
	now      func() time.Time

	mu            sync.Mutex
	proposals     map[string]*proposalEntry
	votesRecorded int64
	closed        bool
}

// New creates an Engine.
func New(config Config, logger *zap.Logger, opts ...Option) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MinParticipants <= 0 {
		config.MinParticipants = 1
	}
	if config.Quorum <= 0 || config.Quorum > 100 {
		return nil, types.Errorf(types.ErrInvalidRequest, "quorum must be in (0, 100], got %v", config.Quorum)
	}

	e := &Engine{
		config:    config,
		logger:    logger.With(zap.String("component", "consensus")),
		now:       time.Now,
		proposals: make(map[string]*proposalEntry),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.strategy == nil {
		s, err := NewStrategy(config)
		if err != nil {
			return nil, err
		}
		e.strategy = s
	}
	return e, nil
}

// Algorithm returns the active strategy name.
func (e *Engine) Algorithm() Algorithm {
	return e.strategy.Name()
}

// Propose opens a proposal. An empty ID is assigned a fresh one.
func (e *Engine) Propose(ctx context.Context, p Proposal) (Proposal, error) {
	if err := ctx.Err(); err != nil {
		return Proposal{}, err
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedAt = e.now()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return Proposal{}, types.NewError(types.ErrEngineClosed, "consensus engine is closed")
	}
	if _, exists := e.proposals[p.ID]; exists {
		e.mu.Unlock()
		return Proposal{}, types.Errorf(types.ErrDuplicateProposal, "proposal %s already exists", p.ID)
	}

	entry := &proposalEntry{
		proposal: p,
		voters:   make(map[string]struct{}),
		tally:    Tally{Expected: p.ExpectedVoters},
		state:    StateOpen,
		done:     make(chan struct{}),
	}
	if e.config.Timeout > 0 {
		id := p.ID
		entry.timer = time.AfterFunc(e.config.Timeout, func() { e.expire(id) })
	}
	e.proposals[p.ID] = entry
	e.mu.Unlock()

	e.logger.Debug("proposal opened",
		zap.String("proposal_id", p.ID),
		zap.String("proposer_id", p.ProposerID),
		zap.Int("expected_voters", p.ExpectedVoters),
	)

	if e.hooks.OnProposal != nil {
		e.hooks.OnProposal(p)
	}
	return p, nil
}

// Vote records a ballot and evaluates the proposal. It returns the result
// when this ballot resolved the proposal, nil otherwise. A voter may vote
// once per proposal.
func (e *Engine) Vote(ctx context.Context, v Vote) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if v.VoterID == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "voter id is required")
	}
	v.CastAt = e.now()

	e.mu.Lock()
	entry, ok := e.proposals[v.ProposalID]
	if !ok {
		e.mu.Unlock()
		return nil, types.Errorf(types.ErrProposalNotFound, "proposal %s not found", v.ProposalID)
	}
	if entry.state != StateOpen {
		state := entry.state
		e.mu.Unlock()
		return nil, types.Errorf(types.ErrProposalNotOpen, "proposal %s is %s", v.ProposalID, state)
	}
	if _, voted := entry.voters[v.VoterID]; voted {
		e.mu.Unlock()
		return nil, types.Errorf(types.ErrDuplicateVote, "voter %s already voted on proposal %s", v.VoterID, v.ProposalID)
	}

	entry.voters[v.VoterID] = struct{}{}
	entry.votes = append(entry.votes, v)
	if v.Approve {
		entry.tally.Approve++
	} else {
		entry.tally.Reject++
	}
	e.votesRecorded++

	var resolved *Result
	switch decision, reason := e.strategy.Evaluate(entry.tally); decision {
	case DecisionApprove:
		resolved = e.resolveLocked(entry, true, reason)
	case DecisionReject:
		resolved = e.resolveLocked(entry, false, reason)
	}
	e.mu.Unlock()

	if e.hooks.OnVote != nil {
		e.hooks.OnVote(v)
	}
	if resolved != nil {
		e.announce(*resolved)
		out := *resolved
		return &out, nil
	}
	return nil, nil
}

// WaitForResult blocks until the proposal resolves, timeout elapses or ctx
// is done. A timeout only abandons this wait; the proposal stays open. A
// non-positive timeout uses the engine's proposal timeout.
func (e *Engine) WaitForResult(ctx context.Context, proposalID string, timeout time.Duration) (*Result, error) {
	e.mu.Lock()
	entry, ok := e.proposals[proposalID]
	if !ok {
		e.mu.Unlock()
		return nil, types.Errorf(types.ErrProposalNotFound, "proposal %s not found", proposalID)
	}
	if entry.result != nil {
		out := *entry.result
		e.mu.Unlock()
		return &out, nil
	}
	done := entry.done
	e.mu.Unlock()

	if timeout <= 0 {
		timeout = e.config.Timeout
	}
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case <-done:
		e.mu.Lock()
		out := *entry.result
		e.mu.Unlock()
		return &out, nil
	case <-deadline:
		return nil, types.Errorf(types.ErrConsensusTimeout, "proposal %s unresolved after %s", proposalID, timeout).
			WithRetryable(true)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the stored result of a resolved proposal.
func (e *Engine) Result(proposalID string) (*Result, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.proposals[proposalID]
	if !ok || entry.result == nil {
		return nil, false
	}
	out := *entry.result
	return &out, true
}

// State returns the lifecycle state of a proposal.
func (e *Engine) State(proposalID string) (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.proposals[proposalID]
	if !ok {
		return "", types.Errorf(types.ErrProposalNotFound, "proposal %s not found", proposalID)
	}
	return entry.state, nil
}

// Proposal returns a proposal and the ballots recorded so far.
func (e *Engine) Proposal(proposalID string) (Proposal, []Vote, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.proposals[proposalID]
	if !ok {
		return Proposal{}, nil, false
	}
	votes := make([]Vote, len(entry.votes))
	copy(votes, entry.votes)
	return entry.proposal, votes, true
}

// Statistics counts proposals by state.
func (e *Engine) Statistics() Statistics {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := Statistics{VotesRecorded: e.votesRecorded}
	for _, entry := range e.proposals {
		switch entry.state {
		case StateOpen:
			stats.Open++
		case StateApproved:
			stats.Approved++
		case StateRejected:
			stats.Rejected++
		}
	}
	return stats
}

// Close rejects every open proposal and refuses new ones.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	var resolved []Result
	for _, entry := range e.proposals {
		if entry.state == StateOpen {
			resolved = append(resolved, *e.resolveLocked(entry, false, ReasonEngineClosed))
		}
	}
	e.mu.Unlock()

	for _, r := range resolved {
		e.announce(r)
	}
	e.logger.Info("consensus engine closed", zap.Int("aborted_proposals", len(resolved)))
}

// expire rejects a proposal whose deadline passed while still open.
func (e *Engine) expire(proposalID string) {
	e.mu.Lock()
	entry, ok := e.proposals[proposalID]
	if !ok || entry.state != StateOpen {
		e.mu.Unlock()
		return
	}
	r := e.resolveLocked(entry, false, ReasonTimeout)
	e.mu.Unlock()

	e.announce(*r)
}

// resolveLocked moves an open entry to its terminal state. Callers hold e.mu
// and have checked that the entry is open, so each entry resolves once.
func (e *Engine) resolveLocked(entry *proposalEntry, approved bool, reason Reason) *Result {
	r := &Result{
		ProposalID: entry.proposal.ID,
		Approved:   approved,
		Tally:      entry.tally,
		Reason:     reason,
		ResolvedAt: e.now(),
	}
	if approved {
		r.Value = entry.proposal.Value
		entry.state = StateApproved
	} else {
		entry.state = StateRejected
	}
	entry.result = r
	if entry.timer != nil {
		entry.timer.Stop()
	}
	close(entry.done)
	return r
}

func (e *Engine) announce(r Result) {
	e.logger.Info("proposal resolved",
		zap.String("proposal_id", r.ProposalID),
		zap.Bool("approved", r.Approved),
		zap.String("reason", string(r.Reason)),
		zap.Int("approve", r.Tally.Approve),
		zap.Int("reject", r.Tally.Reject),
	)
	if e.hooks.OnResolved != nil {
		e.hooks.OnResolved(r)
	}
}
