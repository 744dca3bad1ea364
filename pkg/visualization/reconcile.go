package visualization

import (
	"github.com/dd0wney/cluso-depgraph/pkg/depgraph"
)

// HighlightedNode is a positioned node with its live satisfaction flag.
// SatisfiedMembers counts satisfied nodes hidden inside a collapsed group.
type HighlightedNode struct {
	PositionedNode
	IsSelected       bool `json:"is_selected"`
	SatisfiedMembers int  `json:"satisfied_members,omitempty"`
}

// HighlightedGraph is a PositionedGraph merged with a SatisfactionSet.
// Positioned is shared with the layout cache and must not be modified.
type HighlightedGraph struct {
	Positioned    *PositionedGraph  `json:"-"`
	Nodes         []HighlightedNode `json:"nodes"`
	SelectedCount int               `json:"selected_count"`
}

// Reconcile merges the satisfaction set into a positioned graph in O(V).
//
// Coordinates are copied, never recomputed. A node is selected when its id is
// satisfied. A collapsed group reports progress through SatisfiedMembers and is
// selected only by its own id.
func Reconcile(pg *PositionedGraph, satisfied depgraph.SatisfactionSet) *HighlightedGraph {
	if pg == nil {
		return nil
	}

	hg := &HighlightedGraph{
		Positioned: pg,
		Nodes:      make([]HighlightedNode, len(pg.Nodes)),
	}

	for i, n := range pg.Nodes {
		hn := HighlightedNode{PositionedNode: n}
		for _, member := range n.Members {
			if satisfied.Contains(member) {
				hn.SatisfiedMembers++
			}
		}
		hn.IsSelected = satisfied.Contains(n.ID)
		if hn.IsSelected {
			hg.SelectedCount++
		}
		hg.Nodes[i] = hn
	}

	return hg
}

// Node returns the highlighted node with the given id
func (hg *HighlightedGraph) Node(id string) (HighlightedNode, bool) {
	for _, n := range hg.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return HighlightedNode{}, false
}

// Edges returns the positioned edges
func (hg *HighlightedGraph) Edges() []PositionedEdge {
	return hg.Positioned.Edges
}
