package swarm

import (
	"sort"
	"sync"

	"github.com/BaSui01/swarmflow/types"
)

// Balancer picks up to n agents from candidates. Candidates arrive in
// registry order and are already filtered for eligibility; ties must keep
// that order so selection is deterministic.
type Balancer interface {
	Policy() LoadBalancing
	Select(candidates []Agent, n int) []Agent
}

// NewBalancer returns the balancer for policy.
func NewBalancer(policy LoadBalancing) (Balancer, error) {
	switch policy {
	case RoundRobin:
		return roundRobinBalancer{}, nil
	case LeastLoaded, "":
		return leastLoadedBalancer{}, nil
	case CapabilityBased:
		return capabilityBalancer{}, nil
	case Rotating:
		return &rotatingBalancer{}, nil
	default:
		return nil, types.Errorf(types.ErrInvalidRequest, "unknown load balancing policy %q", policy)
	}
}

// roundRobinBalancer 每次从候选列表头部开始选取，不保留游标
type roundRobinBalancer struct{}

func (roundRobinBalancer) Policy() LoadBalancing { return RoundRobin }

func (roundRobinBalancer) Select(candidates []Agent, n int) []Agent {
	return head(candidates, n)
}

// leastLoadedBalancer 最少负载策略
type leastLoadedBalancer struct{}

func (leastLoadedBalancer) Policy() LoadBalancing { return LeastLoaded }

func (leastLoadedBalancer) Select(candidates []Agent, n int) []Agent {
	sorted := append([]Agent(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Load < sorted[j].Load
	})
	return head(sorted, n)
}

// capabilityBalancer 优先选择能力最多的通用 agent
type capabilityBalancer struct{}

func (capabilityBalancer) Policy() LoadBalancing { return CapabilityBased }

func (capabilityBalancer) Select(candidates []Agent, n int) []Agent {
	sorted := append([]Agent(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Capabilities.Len() > sorted[j].Capabilities.Len()
	})
	return head(sorted, n)
}

// rotatingBalancer 轮询策略，游标跨调用保留
type rotatingBalancer struct {
	mu     sync.Mutex
	cursor int
}

func (*rotatingBalancer) Policy() LoadBalancing { return Rotating }

func (b *rotatingBalancer) Select(candidates []Agent, n int) []Agent {
	if len(candidates) == 0 || n <= 0 {
		return nil
	}
	n = min(n, len(candidates))

	b.mu.Lock()
	defer b.mu.Unlock()

	start := b.cursor % len(candidates)
	out := make([]Agent, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, candidates[(start+i)%len(candidates)])
	}
	b.cursor = (start + n) % len(candidates)
	return out
}

func head(agents []Agent, n int) []Agent {
	if n <= 0 {
		return nil
	}
	if n > len(agents) {
		n = len(agents)
	}
	return agents[:n:n]
}
