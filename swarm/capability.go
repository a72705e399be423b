package swarm

import (
	"encoding/json"
	"sort"
	"strings"
	"unicode"

	"github.com/BaSui01/swarmflow/types"
)

// maxCapabilityLen bounds a single capability tag.
const maxCapabilityLen = 64

// Capability is an opaque skill or resource tag. Values are only created
// through ParseCapability, so a Capability is always non-empty and free of
// whitespace.
type Capability string

// ParseCapability validates raw and returns it as a Capability. Surrounding
// whitespace is trimmed; case is preserved.
func ParseCapability(raw string) (Capability, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", types.NewError(types.ErrInvalidCapability, "capability must not be empty")
	}
	if len(s) > maxCapabilityLen {
		return "", types.Errorf(types.ErrInvalidCapability, "capability %q exceeds %d bytes", s, maxCapabilityLen)
	}
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return "", types.Errorf(types.ErrInvalidCapability, "capability %q contains whitespace or control characters", s)
		}
	}
	return Capability(s), nil
}

// MustCapability is ParseCapability that panics on invalid input. Intended
// for constants and tests.
func MustCapability(raw string) Capability {
	c, err := ParseCapability(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// String implements fmt.Stringer.
func (c Capability) String() string { return string(c) }

// CapabilitySet is a set of capabilities.
type CapabilitySet map[Capability]struct{}

// NewCapabilitySet parses every raw tag. Duplicates collapse; the first
// invalid tag fails the whole set.
func NewCapabilitySet(raw ...string) (CapabilitySet, error) {
	set := make(CapabilitySet, len(raw))
	for _, r := range raw {
		c, err := ParseCapability(r)
		if err != nil {
			return nil, err
		}
		set[c] = struct{}{}
	}
	return set, nil
}

// Has reports whether c is in the set.
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// Len returns the number of capabilities.
func (s CapabilitySet) Len() int { return len(s) }

// Contains reports whether s is a superset of other. Every set contains the
// empty set.
func (s CapabilitySet) Contains(other CapabilitySet) bool {
	if len(other) > len(s) {
		return false
	}
	for c := range other {
		if _, ok := s[c]; !ok {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (s CapabilitySet) Clone() CapabilitySet {
	out := make(CapabilitySet, len(s))
	for c := range s {
		out[c] = struct{}{}
	}
	return out
}

// Strings returns the tags in sorted order.
func (s CapabilitySet) Strings() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, string(c))
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a sorted string array.
func (s CapabilitySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// UnmarshalJSON decodes and validates a string array.
func (s *CapabilitySet) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	set, err := NewCapabilitySet(raw...)
	if err != nil {
		return err
	}
	*s = set
	return nil
}
