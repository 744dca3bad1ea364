package depgraph

// Index provides O(1) lookups over a validated graph.
// It is built once and never mutated.
type Index struct {
	graph    *Graph
	byID     map[string]int
	children map[string][]string
}

// Index validates the graph and builds a lookup index over it.
func (g *Graph) Index() (*Index, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return newIndex(g), nil
}

func newIndex(g *Graph) *Index {
	idx := &Index{
		graph:    g,
		byID:     make(map[string]int, len(g.Nodes)),
		children: make(map[string][]string),
	}
	for i, n := range g.Nodes {
		idx.byID[n.ID] = i
		if n.ParentGroupID != "" {
			idx.children[n.ParentGroupID] = append(idx.children[n.ParentGroupID], n.ID)
		}
	}
	return idx
}

// Graph returns the indexed graph
func (idx *Index) Graph() *Graph {
	return idx.graph
}

// Node returns the node with the given id
func (idx *Index) Node(id string) (Node, bool) {
	i, ok := idx.byID[id]
	if !ok {
		return Node{}, false
	}
	return idx.graph.Nodes[i], true
}

// Position returns the input position of a node, used for tie-breaking.
func (idx *Index) Position(id string) int {
	if i, ok := idx.byID[id]; ok {
		return i
	}
	return -1
}

// Children returns the direct members of a group in input order
func (idx *Index) Children(groupID string) []string {
	return idx.children[groupID]
}

// Ancestors returns the group chain of a node, innermost first.
func (idx *Index) Ancestors(id string) []string {
	var chain []string
	n, ok := idx.Node(id)
	for ok && n.ParentGroupID != "" {
		chain = append(chain, n.ParentGroupID)
		n, ok = idx.Node(n.ParentGroupID)
	}
	return chain
}

// Groups returns the ids of all group nodes in input order
func (idx *Index) Groups() []string {
	var groups []string
	for _, n := range idx.graph.Nodes {
		if n.Kind == KindGroup {
			groups = append(groups, n.ID)
		}
	}
	return groups
}
