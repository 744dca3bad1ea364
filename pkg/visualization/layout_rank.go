package visualization

// ranking is the result of rank assignment over the visible graph
type ranking struct {
	rank     map[string]int
	maxRank  int
	backEdge map[[2]string]bool // edges ignored to break cycles
	succ     map[string][]string
	pred     map[string][]string
}

// dfsFrame is one level of the explicit DFS stack
type dfsFrame struct {
	id   string
	next int
}

const (
	unvisited = iota
	onStack
	done
)

// assignRanks computes rank(n) = 1 + max(rank(pred)), 0 for sources.
//
// Cycles are broken by a depth-first search that starts from nodes in id
// order and visits successors in id order; an edge into a node still on the
// DFS stack is a back-edge and is ignored. Runs in O(V+E).
func assignRanks(vg *visibleGraph) *ranking {
	succ, pred := vg.adjacency()
	r := &ranking{
		rank:     make(map[string]int, len(vg.nodes)),
		backEdge: make(map[[2]string]bool),
	}

	ids := vg.sortedIDs()
	state := make(map[string]int, len(ids))
	postorder := make([]string, 0, len(ids))

	for _, root := range ids {
		if state[root] != unvisited {
			continue
		}
		stack := []dfsFrame{{id: root}}
		state[root] = onStack

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			children := succ[top.id]
			if top.next == len(children) {
				state[top.id] = done
				postorder = append(postorder, top.id)
				stack = stack[:len(stack)-1]
				continue
			}

			child := children[top.next]
			top.next++
			switch state[child] {
			case unvisited:
				state[child] = onStack
				stack = append(stack, dfsFrame{id: child})
			case onStack:
				r.backEdge[[2]string{top.id, child}] = true
			}
		}
	}

	// Reverse postorder is a topological order of the graph without back-edges.
	for i := len(postorder) - 1; i >= 0; i-- {
		u := postorder[i]
		for _, v := range succ[u] {
			if r.backEdge[[2]string{u, v}] {
				continue
			}
			if r.rank[u]+1 > r.rank[v] {
				r.rank[v] = r.rank[u] + 1
			}
		}
		if r.rank[u] > r.maxRank {
			r.maxRank = r.rank[u]
		}
	}

	// Keep only forward adjacency for ordering.
	r.succ = make(map[string][]string, len(succ))
	r.pred = make(map[string][]string, len(pred))
	for _, u := range ids {
		for _, v := range succ[u] {
			if r.backEdge[[2]string{u, v}] {
				continue
			}
			r.succ[u] = append(r.succ[u], v)
			r.pred[v] = append(r.pred[v], u)
		}
	}

	return r
}
