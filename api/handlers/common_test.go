package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BaSui01/swarmflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

// =============================================================================
// 🧪 响应辅助函数测试
// =============================================================================

func TestWriteJSON(t *testing.T) {
	t.Parallel()
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusCreated, map[string]int{"n": 1})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.JSONEq(t, `{"n":1}`, w.Body.String())
}

func TestWriteSuccess(t *testing.T) {
	t.Parallel()
	w := httptest.NewRecorder()
	WriteSuccess(w, "hello")

	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, "hello", resp.Data)
	assert.Nil(t, resp.Error)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestWriteError_MapsCodes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"agent not found", types.NewError(types.ErrAgentNotFound, "agent a1 not found"), http.StatusNotFound, "AGENT_NOT_FOUND"},
		{"task not found", types.NewError(types.ErrTaskNotFound, "gone"), http.StatusNotFound, "TASK_NOT_FOUND"},
		{"invalid request", types.NewError(types.ErrInvalidRequest, "bad"), http.StatusBadRequest, "INVALID_REQUEST"},
		{"duplicate vote", types.NewError(types.ErrDuplicateVote, "again"), http.StatusConflict, "DUPLICATE_VOTE"},
		{"rate limited", types.NewError(types.ErrRateLimited, "slow down"), http.StatusTooManyRequests, "RATE_LIMITED"},
		{"consensus timeout", types.NewError(types.ErrConsensusTimeout, "late"), http.StatusGatewayTimeout, "CONSENSUS_TIMEOUT"},
		{"no suitable agents", types.NewError(types.ErrNoSuitableAgents, "none"), http.StatusServiceUnavailable, "NO_SUITABLE_AGENTS"},
		{"runtime failure", types.NewError(types.ErrRuntimeFailure, "spawn"), http.StatusBadGateway, "RUNTIME_FAILURE"},
		{"explicit status wins", types.NewError(types.ErrAgentNotFound, "x").WithHTTPStatus(http.StatusGone), http.StatusGone, "AGENT_NOT_FOUND"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err, zap.NewNop())

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestWriteError_Retryable(t *testing.T) {
	t.Parallel()
	w := httptest.NewRecorder()
	WriteError(w, types.NewError(types.ErrRequestTimeout, "no reply").WithRetryable(true), nil)

	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.True(t, resp.Error.Retryable)
	assert.Equal(t, "no reply", resp.Error.Message)
}

func TestWriteErrorMessage(t *testing.T) {
	t.Parallel()
	w := httptest.NewRecorder()
	WriteErrorMessage(w, http.StatusTeapot, types.ErrInvalidRequest, "short and stout", nil)

	assert.Equal(t, http.StatusTeapot, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, "INVALID_REQUEST", resp.Error.Code)
}

// =============================================================================
// 🧪 ResponseWriter 测试
// =============================================================================

func TestResponseWriter_CapturesStatusAndSize(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()
	rw := NewResponseWriter(rec)

	rw.WriteHeader(http.StatusAccepted)
	rw.WriteHeader(http.StatusInternalServerError) // 第二次被忽略
	n, err := rw.Write([]byte("abcd"))
	require.NoError(t, err)

	assert.Equal(t, 4, n)
	assert.Equal(t, http.StatusAccepted, rw.StatusCode)
	assert.Equal(t, int64(4), rw.BytesWritten)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Same(t, rec, rw.Unwrap())
}

func TestResponseWriter_ImplicitOK(t *testing.T) {
	t.Parallel()
	rw := NewResponseWriter(httptest.NewRecorder())
	_, _ = rw.Write([]byte("x"))
	assert.True(t, rw.Written)
	assert.Equal(t, http.StatusOK, rw.StatusCode)
}

func TestResponseWriter_HijackUnsupported(t *testing.T) {
	t.Parallel()
	rw := NewResponseWriter(httptest.NewRecorder())
	_, _, err := rw.Hijack()
	assert.Error(t, err)
}
