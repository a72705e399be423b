package runtime

import (
	"context"
	"testing"

	"github.com/BaSui01/swarmflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalClient_Lifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewLocalClient(zap.NewNop())

	_, err := c.InitializeSwarm(ctx, SwarmConfig{Name: "s"})
	assert.True(t, types.IsErrorCode(err, types.ErrRuntimeFailure))

	require.NoError(t, c.Initialize(ctx))
	assert.True(t, c.IsInitialized())

	_, err = c.SpawnAgent(ctx, AgentConfig{Name: "a"})
	assert.True(t, types.IsErrorCode(err, types.ErrRuntimeFailure), "spawn without a session")

	session, err := c.InitializeSwarm(ctx, SwarmConfig{Name: "s", Topology: "mesh", MaxAgents: 2})
	require.NoError(t, err)
	assert.NotEmpty(t, session.SessionID)

	a1, err := c.SpawnAgent(ctx, AgentConfig{Name: "a1"})
	require.NoError(t, err)
	a2, err := c.SpawnAgent(ctx, AgentConfig{Name: "a2"})
	require.NoError(t, err)
	assert.NotEqual(t, a1.AgentID, a2.AgentID)

	_, err = c.SpawnAgent(ctx, AgentConfig{Name: "a3"})
	assert.True(t, types.IsErrorCode(err, types.ErrRuntimeFailure), "max agents enforced")

	require.NoError(t, c.ShutdownSwarm(ctx, session.SessionID))
	assert.Zero(t, c.Sessions())
	assert.Error(t, c.ShutdownSwarm(ctx, session.SessionID))
}

func TestLocalClient_CancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewLocalClient(nil)
	assert.ErrorIs(t, c.Initialize(ctx), context.Canceled)
}
