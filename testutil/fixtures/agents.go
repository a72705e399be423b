// =============================================================================
// 📦 测试数据工厂 - Agent 与任务样例
// =============================================================================
package fixtures

import (
	"github.com/BaSui01/swarmflow/swarm"
)

// AnalysisAgent 返回具备 analysis 能力的 agent 配置
func AnalysisAgent(name string) swarm.AgentConfig {
	return swarm.AgentConfig{
		Name:         name,
		Type:         "analyst",
		Capabilities: []string{"analysis"},
	}
}

// GPUAgent 返回具备 gpu 与 analysis 能力的 agent 配置
func GPUAgent(name string) swarm.AgentConfig {
	return swarm.AgentConfig{
		Name:         name,
		Type:         "trainer",
		Capabilities: []string{"gpu", "analysis"},
	}
}

// GeneralistAgent 返回能力最全的 agent 配置
func GeneralistAgent(name string) swarm.AgentConfig {
	return swarm.AgentConfig{
		Name:         name,
		Type:         "generalist",
		Capabilities: []string{"analysis", "coding", "review", "gpu"},
		Metadata:     map[string]string{"tier": "senior"},
	}
}

// AgentWith 返回具备指定能力的 agent 配置
func AgentWith(name string, capabilities ...string) swarm.AgentConfig {
	return swarm.AgentConfig{
		Name:         name,
		Type:         "worker",
		Capabilities: capabilities,
	}
}

// AnalysisTask 返回需要 analysis 能力的任务
func AnalysisTask(description string) swarm.TaskSpec {
	return swarm.TaskSpec{
		Description:          description,
		RequiredCapabilities: []string{"analysis"},
		Priority:             1,
	}
}

// GPUTask 返回需要 gpu 能力的任务
func GPUTask(description string) swarm.TaskSpec {
	return swarm.TaskSpec{
		Description:          description,
		RequiredCapabilities: []string{"gpu"},
		Priority:             2,
	}
}
