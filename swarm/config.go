package swarm

import (
	"time"

	"github.com/BaSui01/swarmflow/swarm/consensus"
	"github.com/BaSui01/swarmflow/swarm/fabric"
	"github.com/BaSui01/swarmflow/types"
)

// LoadBalancing names an agent selection policy.
type LoadBalancing string

const (
	// RoundRobin takes candidates in registry order, restarting from the
	// front on every call.
	RoundRobin LoadBalancing = "round-robin"
	// LeastLoaded prefers the lowest load.
	LeastLoaded LoadBalancing = "least-loaded"
	// CapabilityBased prefers agents with the most capabilities.
	CapabilityBased LoadBalancing = "capability-based"
	// Rotating keeps a cursor across calls so consecutive assignments
	// rotate through the candidates.
	Rotating LoadBalancing = "rotating"
)

// Config 协调器配置
type Config struct {
	// 集群名称
	Name string `yaml:"name" env:"NAME"`
	// 拓扑: mesh, hierarchical, star
	Topology string `yaml:"topology" env:"TOPOLOGY"`
	// 最大 agent 数，0 表示由运行时决定
	MaxAgents int `yaml:"max_agents" env:"MAX_AGENTS"`
	// 是否启用 agent 间通信
	EnableCommunication bool `yaml:"enable_communication" env:"ENABLE_COMMUNICATION"`
	// 负载均衡策略
	LoadBalancing LoadBalancing `yaml:"load_balancing" env:"LOAD_BALANCING"`
	// 健康检查间隔
	HealthCheckInterval time.Duration `yaml:"health_check_interval" env:"HEALTH_CHECK_INTERVAL"`
	// 超过该时长未活跃的 agent 标记为 offline
	AgentStaleTimeout time.Duration `yaml:"agent_stale_timeout" env:"AGENT_STALE_TIMEOUT"`
	// 可接收新任务的最大负载
	MaxAgentLoad int `yaml:"max_agent_load" env:"MAX_AGENT_LOAD"`
	// 共识配置
	Consensus consensus.Config `yaml:"consensus" env:"CONSENSUS"`
	// 消息通道配置
	Fabric fabric.Config `yaml:"fabric" env:"FABRIC"`
}

// DefaultConfig returns the default coordinator configuration.
func DefaultConfig() Config {
	return Config{
		Name:                "swarm",
		Topology:            "mesh",
		EnableCommunication: true,
		LoadBalancing:       LeastLoaded,
		HealthCheckInterval: 30 * time.Second,
		AgentStaleTimeout:   60 * time.Second,
		MaxAgentLoad:        80,
		Consensus:           consensus.DefaultConfig(),
		Fabric:              fabric.DefaultConfig(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.LoadBalancing {
	case RoundRobin, LeastLoaded, CapabilityBased, Rotating:
	default:
		return types.Errorf(types.ErrInvalidRequest, "unknown load balancing policy %q", c.LoadBalancing)
	}
	if c.HealthCheckInterval <= 0 {
		return types.NewError(types.ErrInvalidRequest, "health_check_interval must be positive")
	}
	if c.AgentStaleTimeout <= 0 {
		return types.NewError(types.ErrInvalidRequest, "agent_stale_timeout must be positive")
	}
	if c.MaxAgentLoad < 0 || c.MaxAgentLoad > MaxLoad {
		return types.Errorf(types.ErrInvalidRequest, "max_agent_load must be within [0, %d]", MaxLoad)
	}
	if c.MaxAgents < 0 {
		return types.NewError(types.ErrInvalidRequest, "max_agents must not be negative")
	}
	if c.Consensus.MinParticipants < 1 {
		return types.NewError(types.ErrInvalidRequest, "consensus.min_participants must be at least 1")
	}
	if c.Consensus.Quorum <= 0 || c.Consensus.Quorum > 100 {
		return types.NewError(types.ErrInvalidRequest, "consensus.quorum must be within (0, 100]")
	}
	if _, err := consensus.NewStrategy(c.Consensus); err != nil {
		return err
	}
	return nil
}
