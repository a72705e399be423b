// Package runtime defines the contract between the swarm coordinator and the
// agent runtime that actually spawns and executes agent processes.
package runtime

import (
	"context"
	"time"
)

// SwarmConfig describes the swarm session requested from the runtime.
type SwarmConfig struct {
	Name      string `json:"name"`
	Topology  string `json:"topology"`
	MaxAgents int    `json:"max_agents"`
}

// Session identifies an established swarm session.
type Session struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

// AgentConfig describes an agent to spawn.
type AgentConfig struct {
	Name         string            `json:"name"`
	Type         string            `json:"type"`
	Capabilities []string          `json:"capabilities"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// SpawnedAgent is the runtime's handle for a spawned agent.
type SpawnedAgent struct {
	AgentID string `json:"agent_id"`
}

// Client is implemented by agent runtimes. Errors are returned to the
// coordinator's caller unchanged; the coordinator never retries them.
type Client interface {
	Initialize(ctx context.Context) error
	IsInitialized() bool
	InitializeSwarm(ctx context.Context, cfg SwarmConfig) (*Session, error)
	SpawnAgent(ctx context.Context, cfg AgentConfig) (*SpawnedAgent, error)
	ShutdownSwarm(ctx context.Context, sessionID string) error
}
