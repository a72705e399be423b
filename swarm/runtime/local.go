package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/swarmflow/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LocalClient is an in-process runtime. It hands out ids and tracks sessions
// without executing anything, which is enough for a coordinator whose agents
// run elsewhere and only report through the fabric.
type LocalClient struct {
	logger *zap.Logger

	mu          sync.Mutex
	initialized bool
	sessions    map[string]*localSession
	current     string
}

type localSession struct {
	config SwarmConfig
	agents map[string]AgentConfig
}

// NewLocalClient creates a LocalClient.
func NewLocalClient(logger *zap.Logger) *LocalClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalClient{
		logger:   logger.With(zap.String("component", "runtime_local")),
		sessions: make(map[string]*localSession),
	}
}

// Initialize implements Client.
func (c *LocalClient) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initialized = true
	return nil
}

// IsInitialized implements Client.
func (c *LocalClient) IsInitialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// InitializeSwarm implements Client.
func (c *LocalClient) InitializeSwarm(ctx context.Context, cfg SwarmConfig) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return nil, types.NewError(types.ErrRuntimeFailure, "runtime is not initialized")
	}

	id := uuid.New().String()
	c.sessions[id] = &localSession{config: cfg, agents: make(map[string]AgentConfig)}
	c.current = id
	c.logger.Info("swarm session created",
		zap.String("session_id", id),
		zap.String("topology", cfg.Topology),
	)
	return &Session{SessionID: id, CreatedAt: time.Now()}, nil
}

// SpawnAgent implements Client. Agents belong to the most recent session;
// the session's MaxAgents, when positive, caps how many may be spawned.
func (c *LocalClient) SpawnAgent(ctx context.Context, cfg AgentConfig) (*SpawnedAgent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	session, ok := c.sessions[c.current]
	if !ok {
		return nil, types.NewError(types.ErrRuntimeFailure, "no active swarm session")
	}
	if limit := session.config.MaxAgents; limit > 0 && len(session.agents) >= limit {
		return nil, types.Errorf(types.ErrRuntimeFailure, "swarm is full (%d agents)", limit)
	}

	id := uuid.New().String()
	session.agents[id] = cfg
	c.logger.Debug("agent spawned", zap.String("agent_id", id), zap.String("type", cfg.Type))
	return &SpawnedAgent{AgentID: id}, nil
}

// ShutdownSwarm implements Client.
func (c *LocalClient) ShutdownSwarm(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	session, ok := c.sessions[sessionID]
	if !ok {
		return types.Errorf(types.ErrRuntimeFailure, "session %s not found", sessionID)
	}
	delete(c.sessions, sessionID)
	if c.current == sessionID {
		c.current = ""
	}
	c.logger.Info("swarm session closed",
		zap.String("session_id", sessionID),
		zap.Int("agents", len(session.agents)),
	)
	return nil
}

// Sessions returns the number of live sessions.
func (c *LocalClient) Sessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

var _ Client = (*LocalClient)(nil)
