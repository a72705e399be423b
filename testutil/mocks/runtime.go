// =============================================================================
// 🧩 MockRuntime - agent 运行时模拟实现
// =============================================================================
// 用于测试的运行时模拟，支持错误注入与调用记录
//
// 使用方法:
//
//	rt := mocks.NewMockRuntime().WithSpawnError(errors.New("boom"))
//	coordinator, _ := swarm.New(cfg, rt, logger)
// =============================================================================
package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/BaSui01/swarmflow/swarm/runtime"
)

// MockRuntime 是 runtime.Client 的模拟实现
type MockRuntime struct {
	mu sync.Mutex

	initialized bool
	nextSession int
	nextAgent   int

	// 错误注入
	initErr     error
	swarmErr    error
	spawnErr    error
	shutdownErr error
	spawnHook   func(ctx context.Context)

	// 调用记录
	initCalls     int
	swarmCalls    int
	spawnCalls    int
	shutdownCalls int
	spawned       []runtime.AgentConfig
	closed        []string
}

// NewMockRuntime 创建新的 MockRuntime
func NewMockRuntime() *MockRuntime {
	return &MockRuntime{}
}

// WithInitError 设置 Initialize 返回的错误
func (m *MockRuntime) WithInitError(err error) *MockRuntime {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initErr = err
	return m
}

// WithSwarmError 设置 InitializeSwarm 返回的错误
func (m *MockRuntime) WithSwarmError(err error) *MockRuntime {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.swarmErr = err
	return m
}

// WithSpawnError 设置 SpawnAgent 返回的错误
func (m *MockRuntime) WithSpawnError(err error) *MockRuntime {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spawnErr = err
	return m
}

// WithSpawnHook 设置 SpawnAgent 返回前调用的钩子（在锁外执行）
func (m *MockRuntime) WithSpawnHook(hook func(ctx context.Context)) *MockRuntime {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spawnHook = hook
	return m
}

// WithShutdownError 设置 ShutdownSwarm 返回的错误
func (m *MockRuntime) WithShutdownError(err error) *MockRuntime {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownErr = err
	return m
}

// Initialize implements runtime.Client.
func (m *MockRuntime) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initCalls++
	if m.initErr != nil {
		return m.initErr
	}
	m.initialized = true
	return nil
}

// IsInitialized implements runtime.Client.
func (m *MockRuntime) IsInitialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

// InitializeSwarm implements runtime.Client.
func (m *MockRuntime) InitializeSwarm(ctx context.Context, cfg runtime.SwarmConfig) (*runtime.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.swarmCalls++
	if m.swarmErr != nil {
		return nil, m.swarmErr
	}
	m.nextSession++
	return &runtime.Session{SessionID: fmt.Sprintf("session-%d", m.nextSession)}, nil
}

// SpawnAgent implements runtime.Client. Agent ids are agent-1, agent-2, ...
func (m *MockRuntime) SpawnAgent(ctx context.Context, cfg runtime.AgentConfig) (*runtime.SpawnedAgent, error) {
	m.mu.Lock()
	m.spawnCalls++
	if m.spawnErr != nil {
		err := m.spawnErr
		m.mu.Unlock()
		return nil, err
	}
	m.nextAgent++
	m.spawned = append(m.spawned, cfg)
	id := fmt.Sprintf("agent-%d", m.nextAgent)
	hook := m.spawnHook
	m.mu.Unlock()

	if hook != nil {
		hook(ctx)
	}
	return &runtime.SpawnedAgent{AgentID: id}, nil
}

// ShutdownSwarm implements runtime.Client.
func (m *MockRuntime) ShutdownSwarm(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownCalls++
	if m.shutdownErr != nil {
		return m.shutdownErr
	}
	m.closed = append(m.closed, sessionID)
	return nil
}

// =============================================================================
// 📊 调用记录
// =============================================================================

// InitCalls 返回 Initialize 调用次数
func (m *MockRuntime) InitCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initCalls
}

// SwarmCalls 返回 InitializeSwarm 调用次数
func (m *MockRuntime) SwarmCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.swarmCalls
}

// SpawnCalls 返回 SpawnAgent 调用次数
func (m *MockRuntime) SpawnCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.spawnCalls
}

// ShutdownCalls 返回 ShutdownSwarm 调用次数
func (m *MockRuntime) ShutdownCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdownCalls
}

// Spawned 返回已生成 agent 的配置
func (m *MockRuntime) Spawned() []runtime.AgentConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]runtime.AgentConfig(nil), m.spawned...)
}

// ClosedSessions 返回已关闭的会话
func (m *MockRuntime) ClosedSessions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.closed...)
}

var _ runtime.Client = (*MockRuntime)(nil)
