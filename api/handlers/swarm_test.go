package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BaSui01/swarmflow/api"
	"github.com/BaSui01/swarmflow/swarm"
	"github.com/BaSui01/swarmflow/testutil"
	"github.com/BaSui01/swarmflow/testutil/fixtures"
	"github.com/BaSui01/swarmflow/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 测试辅助
// =============================================================================

func newCoordinator(t *testing.T) *swarm.Coordinator {
	t.Helper()
	cfg := swarm.DefaultConfig()
	cfg.HealthCheckInterval = time.Hour
	c, err := swarm.New(cfg, mocks.NewMockRuntime(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Shutdown(testutil.TestContext(t)) })
	return c
}

// decodeData 解码统一响应并把 data 部分解到 T
func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var resp struct {
		Success bool `json:"success"`
		Data    T    `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.True(t, resp.Success)
	return resp.Data
}

func serve(h http.HandlerFunc, target string, pathValues ...string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(pathValues); i += 2 {
		r.SetPathValue(pathValues[i], pathValues[i+1])
	}
	w := httptest.NewRecorder()
	h(w, r)
	return w
}

// =============================================================================
// 🧪 SwarmHandler 测试
// =============================================================================

func TestSwarmHandler_Stats(t *testing.T) {
	t.Parallel()
	c := newCoordinator(t)
	ctx := testutil.TestContext(t)
	_, err := c.AddAgent(ctx, fixtures.AnalysisAgent("a1"))
	require.NoError(t, err)
	_, err = c.AddAgent(ctx, fixtures.GPUAgent("g1"))
	require.NoError(t, err)
	_, err = c.AssignTask(ctx, fixtures.GPUTask("train"))
	require.NoError(t, err)

	h := NewSwarmHandler(c, zap.NewNop())
	w := serve(h.HandleStats, "/v1/stats")

	assert.Equal(t, http.StatusOK, w.Code)
	stats := decodeData[swarm.Statistics](t, w)
	assert.Equal(t, swarm.StateInitialized, stats.State)
	assert.Equal(t, 2, stats.Agents.Total)
	assert.Equal(t, 1, stats.Agents.Busy)
	assert.Equal(t, 1, stats.Tasks.Assigned)
	assert.InDelta(t, 10.0, stats.AverageLoad, 0.001)
}

func TestSwarmHandler_ListAgents(t *testing.T) {
	t.Parallel()
	c := newCoordinator(t)
	ctx := testutil.TestContext(t)
	for _, cfg := range []swarm.AgentConfig{fixtures.AnalysisAgent("a1"), fixtures.GPUAgent("g1"), fixtures.GeneralistAgent("x1")} {
		_, err := c.AddAgent(ctx, cfg)
		require.NoError(t, err)
	}
	_, err := c.AssignTask(ctx, fixtures.GPUTask("render"))
	require.NoError(t, err)

	h := NewSwarmHandler(c, nil)

	all := decodeData[api.AgentList](t, serve(h.HandleListAgents, "/v1/agents"))
	assert.Equal(t, 3, all.Total)
	assert.Len(t, all.Agents, 3)

	busy := decodeData[api.AgentList](t, serve(h.HandleListAgents, "/v1/agents?status=busy"))
	require.Equal(t, 1, busy.Total)
	assert.Equal(t, swarm.AgentBusy, busy.Agents[0].Status)
	assert.True(t, busy.Agents[0].Capabilities.Has("gpu"))

	offline := decodeData[api.AgentList](t, serve(h.HandleListAgents, "/v1/agents?status=offline"))
	assert.Zero(t, offline.Total)
	assert.NotNil(t, offline.Agents)

	w := serve(h.HandleListAgents, "/v1/agents?status=sleepy")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeResponse(t, w).Error.Code)
}

func TestSwarmHandler_GetAgent(t *testing.T) {
	t.Parallel()
	c := newCoordinator(t)
	added, err := c.AddAgent(testutil.TestContext(t), fixtures.GeneralistAgent("senior"))
	require.NoError(t, err)

	h := NewSwarmHandler(c, zap.NewNop())

	got := decodeData[swarm.Agent](t, serve(h.HandleGetAgent, "/v1/agents/"+added.ID, "id", added.ID))
	assert.Equal(t, added.ID, got.ID)
	assert.Equal(t, "senior", got.Name)
	assert.Equal(t, "senior", got.Metadata["tier"])
	assert.Equal(t, 4, got.Capabilities.Len())

	w := serve(h.HandleGetAgent, "/v1/agents/ghost", "id", "ghost")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "AGENT_NOT_FOUND", decodeResponse(t, w).Error.Code)
}

func TestSwarmHandler_Tasks(t *testing.T) {
	t.Parallel()
	c := newCoordinator(t)
	ctx := testutil.TestContext(t)
	_, err := c.AddAgent(ctx, fixtures.AnalysisAgent("a1"))
	require.NoError(t, err)

	first, err := c.AssignTask(ctx, fixtures.AnalysisTask("summarize"))
	require.NoError(t, err)
	second, err := c.AssignTask(ctx, fixtures.AnalysisTask("classify"))
	require.NoError(t, err)
	_, err = c.CompleteTask(ctx, first.ID, "done")
	require.NoError(t, err)

	h := NewSwarmHandler(c, zap.NewNop())

	all := decodeData[api.TaskList](t, serve(h.HandleListTasks, "/v1/tasks"))
	assert.Equal(t, 2, all.Total)

	completed := decodeData[api.TaskList](t, serve(h.HandleListTasks, "/v1/tasks?status=completed"))
	require.Equal(t, 1, completed.Total)
	assert.Equal(t, first.ID, completed.Tasks[0].ID)
	assert.Equal(t, "done", completed.Tasks[0].Result)

	got := decodeData[swarm.Task](t, serve(h.HandleGetTask, "/v1/tasks/"+second.ID, "id", second.ID))
	assert.Equal(t, swarm.TaskAssigned, got.Status)
	assert.Equal(t, "classify", got.Description)
	assert.Len(t, got.AssignedAgents, 1)

	w := serve(h.HandleGetTask, "/v1/tasks/nope", "id", "nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "TASK_NOT_FOUND", decodeResponse(t, w).Error.Code)

	pending := decodeData[api.TaskList](t, serve(h.HandleListTasks, "/v1/tasks?status=pending"))
	assert.Zero(t, pending.Total, "assignment never leaves tasks pending")

	w = serve(h.HandleListTasks, "/v1/tasks?status=stalled")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
