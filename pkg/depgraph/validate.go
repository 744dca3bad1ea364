package depgraph

import "github.com/dd0wney/cluso-depgraph/pkg/validation"

// Validate checks the structural invariants of the graph.
//
// It rejects empty or duplicate node ids, duplicate edge ids, dangling edge
// endpoints, self-loops, parent references that are not groups, and cycles in
// the parent-group chain. Edge acyclicity is assumed, not checked.
func (g *Graph) Validate() error {
	if g == nil {
		return NewError("validate").Entity("graph").Context("nil graph").Err()
	}

	nodes := make(map[string]NodeKind, len(g.Nodes))
	for i, n := range g.Nodes {
		if err := validation.ValidateNodeID(n.ID); err != nil {
			return NewError("validate").Entity("node").Context("index %d: %v", i, err).Err()
		}
		if _, dup := nodes[n.ID]; dup {
			return NewError("validate").Node(n.ID).Context("duplicate id").Err()
		}
		nodes[n.ID] = n.Kind
	}

	parents := make(map[string]string, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ParentGroupID == "" {
			continue
		}
		kind, ok := nodes[n.ParentGroupID]
		if !ok {
			return NewError("validate").Node(n.ID).Context("parent group %q does not exist", n.ParentGroupID).Err()
		}
		if kind != KindGroup {
			return NewError("validate").Node(n.ID).Context("parent %q is a %s, not a group", n.ParentGroupID, kind).Err()
		}
		parents[n.ID] = n.ParentGroupID
	}

	// Parent chains must terminate. Each node is walked at most once thanks to
	// the settled set, so this stays linear.
	settled := make(map[string]bool, len(parents))
	for _, n := range g.Nodes {
		onPath := make(map[string]bool)
		for cur := n.ID; cur != "" && !settled[cur]; cur = parents[cur] {
			if onPath[cur] {
				return NewError("validate").Group(cur).Context("group nesting cycle").Err()
			}
			onPath[cur] = true
		}
		for cur := range onPath {
			settled[cur] = true
		}
	}

	edges := make(map[string]bool, len(g.Edges))
	for _, e := range g.Edges {
		if e.ID == "" {
			return NewError("validate").Edge(EdgeIDFor(e.SourceID, e.TargetID)).Context("empty id").Err()
		}
		if edges[e.ID] {
			return NewError("validate").Edge(e.ID).Context("duplicate id").Err()
		}
		edges[e.ID] = true

		if _, ok := nodes[e.SourceID]; !ok {
			return NewError("validate").Edge(e.ID).Context("source %q does not exist", e.SourceID).Err()
		}
		if _, ok := nodes[e.TargetID]; !ok {
			return NewError("validate").Edge(e.ID).Context("target %q does not exist", e.TargetID).Err()
		}
		if e.SourceID == e.TargetID {
			return NewError("validate").Edge(e.ID).Context("self-loop on %q", e.SourceID).Err()
		}
	}

	return nil
}
