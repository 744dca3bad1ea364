package visualization

import (
	"sort"

	"github.com/dd0wney/cluso-depgraph/pkg/depgraph"
)

// visibleEdge is an edge between two visible nodes after collapse redirection
type visibleEdge struct {
	depgraph.Edge
	redirected bool
}

// visibleGraph is the node/edge set that actually gets ranked
type visibleGraph struct {
	index   *depgraph.Index
	nodes   []depgraph.Node     // visible nodes, input order
	edges   []visibleEdge       // de-duplicated by (source, target), input order
	members map[string][]string // collapsed group -> hidden descendants
	frames  []string            // expanded groups drawn as frames, sorted
	rep     map[string]string   // node id -> visible representative ("" for frames)
}

// materialize collapses every node inside a collapsed group into the
// outermost collapsed ancestor and redirects edges accordingly.
func materialize(idx *depgraph.Index, expanded ExpandedGroups) *visibleGraph {
	g := idx.Graph()
	vg := &visibleGraph{
		index:   idx,
		members: make(map[string][]string),
		rep:     make(map[string]string, len(g.Nodes)),
	}

	for _, n := range g.Nodes {
		rep := n.ID
		// Ancestors are innermost first, so the last collapsed one wins.
		for _, anc := range idx.Ancestors(n.ID) {
			if !expanded.Contains(anc) {
				rep = anc
			}
		}

		switch {
		case rep != n.ID:
			vg.members[rep] = append(vg.members[rep], n.ID)
		case n.Kind == depgraph.KindGroup && expanded.Contains(n.ID):
			rep = ""
			vg.frames = append(vg.frames, n.ID)
		default:
			vg.nodes = append(vg.nodes, n)
		}
		vg.rep[n.ID] = rep
	}

	for _, ids := range vg.members {
		sort.Strings(ids)
	}
	sort.Strings(vg.frames)

	seen := make(map[[2]string]bool, len(g.Edges))
	for _, e := range g.Edges {
		src, tgt := vg.rep[e.SourceID], vg.rep[e.TargetID]
		if src == "" || tgt == "" {
			// Edges attached to an expanded group's frame are not ranked.
			continue
		}
		if src == tgt {
			continue
		}
		key := [2]string{src, tgt}
		if seen[key] {
			continue
		}
		seen[key] = true

		vg.edges = append(vg.edges, visibleEdge{
			Edge:       depgraph.Edge{ID: e.ID, SourceID: src, TargetID: tgt},
			redirected: src != e.SourceID || tgt != e.TargetID,
		})
	}

	return vg
}

// adjacency returns sorted successor and predecessor lists for visible nodes
func (vg *visibleGraph) adjacency() (succ, pred map[string][]string) {
	succ = make(map[string][]string, len(vg.nodes))
	pred = make(map[string][]string, len(vg.nodes))
	for _, e := range vg.edges {
		succ[e.SourceID] = append(succ[e.SourceID], e.TargetID)
		pred[e.TargetID] = append(pred[e.TargetID], e.SourceID)
	}
	for _, ids := range succ {
		sort.Strings(ids)
	}
	for _, ids := range pred {
		sort.Strings(ids)
	}
	return succ, pred
}

// sortedIDs returns the visible node ids in id order
func (vg *visibleGraph) sortedIDs() []string {
	ids := make([]string, len(vg.nodes))
	for i, n := range vg.nodes {
		ids[i] = n.ID
	}
	sort.Strings(ids)
	return ids
}
