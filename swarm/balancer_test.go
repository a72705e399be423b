package swarm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(id string, load int, caps ...string) Agent {
	set, _ := NewCapabilitySet(caps...)
	return Agent{ID: id, Load: load, Capabilities: set, Status: statusForLoad(load)}
}

func ids(agents []Agent) []string {
	out := make([]string, 0, len(agents))
	for _, a := range agents {
		out = append(out, a.ID)
	}
	return out
}

func TestBalancers(t *testing.T) {
	t.Parallel()

	candidates := []Agent{
		candidate("a", 40, "x"),
		candidate("b", 20, "x", "y", "z"),
		candidate("c", 20, "x", "y"),
		candidate("d", 60, "x", "y", "z"),
	}

	tests := []struct {
		policy LoadBalancing
		n      int
		want   []string
	}{
		{RoundRobin, 1, []string{"a"}},
		{RoundRobin, 2, []string{"a", "b"}},
		{LeastLoaded, 1, []string{"b"}},
		{LeastLoaded, 3, []string{"b", "c", "a"}},
		{CapabilityBased, 1, []string{"b"}},
		{CapabilityBased, 2, []string{"b", "d"}},
		{LeastLoaded, 10, []string{"b", "c", "a", "d"}},
		{RoundRobin, 0, []string{}},
	}

	for _, tt := range tests {
		b, err := NewBalancer(tt.policy)
		require.NoError(t, err)
		assert.Equal(t, tt.policy, b.Policy())
		assert.Equal(t, tt.want, ids(b.Select(candidates, tt.n)), "%s n=%d", tt.policy, tt.n)
	}

	// 不修改调用方的候选列表
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(candidates))
}

func TestRoundRobin_RestartsFromFront(t *testing.T) {
	t.Parallel()
	b, err := NewBalancer(RoundRobin)
	require.NoError(t, err)
	candidates := []Agent{candidate("a", 0), candidate("b", 0), candidate("c", 0)}

	for i := 0; i < 3; i++ {
		assert.Equal(t, []string{"a"}, ids(b.Select(candidates, 1)))
	}
}

func TestRotating_AdvancesAcrossCalls(t *testing.T) {
	t.Parallel()
	b, err := NewBalancer(Rotating)
	require.NoError(t, err)
	candidates := []Agent{candidate("a", 0), candidate("b", 0), candidate("c", 0)}

	var picked []string
	for i := 0; i < 4; i++ {
		picked = append(picked, ids(b.Select(candidates, 1))...)
	}
	assert.Equal(t, []string{"a", "b", "c", "a"}, picked)

	assert.Equal(t, []string{"b", "c"}, ids(b.Select(candidates, 2)))
	assert.Empty(t, b.Select(nil, 1))
}

func TestNewBalancer_Unknown(t *testing.T) {
	t.Parallel()
	_, err := NewBalancer("random")
	assert.Error(t, err)
}
