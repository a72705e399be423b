package swarm

import (
	"encoding/json"
	"testing"

	"github.com/BaSui01/swarmflow/types"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCapability(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    Capability
		wantErr bool
	}{
		{"plain", "gpu", "gpu", false},
		{"trimmed", "  analysis ", "analysis", false},
		{"case preserved", "GPU", "GPU", false},
		{"namespaced", "lang:go", "lang:go", false},
		{"empty", "", "", true},
		{"blank", "   ", "", true},
		{"inner space", "machine learning", "", true},
		{"control", "gpu\x00", "", true},
		{"too long", string(make([]byte, maxCapabilityLen+1)), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCapability(tt.raw)
			if tt.wantErr {
				assert.True(t, types.IsErrorCode(err, types.ErrInvalidCapability), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCapabilitySet(t *testing.T) {
	t.Parallel()

	set, err := NewCapabilitySet("gpu", "analysis", "gpu")
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Has("gpu"))
	assert.Equal(t, []string{"analysis", "gpu"}, set.Strings())

	_, err = NewCapabilitySet("ok", "not ok")
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidCapability))

	empty, err := NewCapabilitySet()
	require.NoError(t, err)
	assert.True(t, set.Contains(empty))
	assert.False(t, empty.Contains(set))

	clone := set.Clone()
	delete(clone, "gpu")
	assert.True(t, set.Has("gpu"))
}

func TestCapabilitySet_JSON(t *testing.T) {
	t.Parallel()

	set, err := NewCapabilitySet("b", "a")
	require.NoError(t, err)
	data, err := json.Marshal(set)
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(data))

	var decoded CapabilitySet
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, set, decoded)

	assert.Error(t, json.Unmarshal([]byte(`["bad tag"]`), &decoded))
}

// 属性：并集包含两个原集合，且 Contains 与逐元素成员检查一致
func TestProperty_CapabilitySuperset(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)
	tags := []string{"gpu", "analysis", "coding", "review", "search", "vision"}
	pick := func(idx []int) []string {
		out := make([]string, 0, len(idx))
		for _, i := range idx {
			out = append(out, tags[i])
		}
		return out
	}
	indexes := gen.SliceOf(gen.IntRange(0, len(tags)-1))

	properties.Property("union contains both operands", prop.ForAll(
		func(ia, ib []int) bool {
			a, b := pick(ia), pick(ib)
			sa, _ := NewCapabilitySet(a...)
			sb, _ := NewCapabilitySet(b...)
			union, _ := NewCapabilitySet(append(append([]string{}, a...), b...)...)
			return union.Contains(sa) && union.Contains(sb)
		},
		indexes, indexes,
	))

	properties.Property("contains matches member-wise check", prop.ForAll(
		func(ia, ib []int) bool {
			sa, _ := NewCapabilitySet(pick(ia)...)
			sb, _ := NewCapabilitySet(pick(ib)...)
			want := true
			for c := range sb {
				if !sa.Has(c) {
					want = false
				}
			}
			return sa.Contains(sb) == want
		},
		indexes, indexes,
	))

	properties.TestingRun(t)
}
