package depgraph

import "sort"

// SatisfactionSet is the immutable set of node ids currently marked as
// received/fulfilled. The zero value is an empty set.
type SatisfactionSet struct {
	ids map[string]struct{}
}

// NewSatisfactionSet creates a set from the given node ids
func NewSatisfactionSet(ids ...string) SatisfactionSet {
	set := SatisfactionSet{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		set.ids[id] = struct{}{}
	}
	return set
}

// Contains reports whether the node id is satisfied
func (s SatisfactionSet) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of satisfied ids
func (s SatisfactionSet) Len() int {
	return len(s.ids)
}

// IDs returns the satisfied ids in sorted order
func (s SatisfactionSet) IDs() []string {
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Equal reports whether both sets hold the same ids
func (s SatisfactionSet) Equal(other SatisfactionSet) bool {
	if len(s.ids) != len(other.ids) {
		return false
	}
	for id := range s.ids {
		if _, ok := other.ids[id]; !ok {
			return false
		}
	}
	return true
}
