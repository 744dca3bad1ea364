package visualization

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/dd0wney/cluso-depgraph/pkg/depgraph"
)

const maxPropertyNodes = 12

// dagFromCodes builds a DAG of n tasks. Each code selects a pair (i, j) and
// adds i -> j when i < j, so ids in index order are a topological order.
func dagFromCodes(n int, codes []int) *depgraph.Graph {
	g := &depgraph.Graph{}
	for i := 0; i < n; i++ {
		g.Nodes = append(g.Nodes, task(fmt.Sprintf("n%02d", i), ""))
	}
	seen := make(map[[2]int]bool)
	for _, code := range codes {
		i, j := code/maxPropertyNodes, code%maxPropertyNodes
		if i >= j || j >= n || seen[[2]int{i, j}] {
			continue
		}
		seen[[2]int{i, j}] = true
		g.Edges = append(g.Edges, edge(g.Nodes[i].ID, g.Nodes[j].ID))
	}
	return g
}

// rankOrder maps each node id to its rank and position within the rank
func rankOrder(pg *PositionedGraph) map[string][2]int {
	out := make(map[string][2]int, len(pg.Nodes))
	for _, n := range pg.Nodes {
		out[n.ID] = [2]int{n.Rank, n.Order}
	}
	return out
}

// TestLayoutProperties verifies layout invariants over random graphs
func TestLayoutProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)
	layout := NewLayeredLayout(nil)
	codes := gen.SliceOf(gen.IntRange(0, maxPropertyNodes*maxPropertyNodes-1))

	properties.Property("layout is deterministic", prop.ForAll(
		func(n int, codes []int, dir int) bool {
			g := dagFromCodes(n, codes)
			a, errA := layout.ComputeLayout(g, Direction(dir), NewExpandedGroups())
			b, errB := layout.ComputeLayout(g, Direction(dir), NewExpandedGroups())
			return errA == nil && errB == nil && reflect.DeepEqual(a, b)
		},
		gen.IntRange(1, maxPropertyNodes),
		codes,
		gen.IntRange(0, 3),
	))

	properties.Property("edges of a DAG point to a higher rank", prop.ForAll(
		func(n int, codes []int) bool {
			pg, err := layout.ComputeLayout(dagFromCodes(n, codes), LeftToRight, NewExpandedGroups())
			if err != nil {
				return false
			}
			for _, e := range pg.Edges {
				src, _ := pg.Node(e.SourceID)
				tgt, _ := pg.Node(e.TargetID)
				if tgt.Rank <= src.Rank || e.Target.X <= e.Source.X {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, maxPropertyNodes),
		codes,
	))

	properties.Property("no two nodes share a position", prop.ForAll(
		func(n int, codes []int) bool {
			pg, err := layout.ComputeLayout(dagFromCodes(n, codes), TopToBottom, NewExpandedGroups())
			if err != nil || len(pg.Nodes) != n {
				return false
			}
			seen := make(map[Position]bool, len(pg.Nodes))
			for _, node := range pg.Nodes {
				if seen[node.Position] {
					return false
				}
				seen[node.Position] = true
			}
			return true
		},
		gen.IntRange(1, maxPropertyNodes),
		codes,
	))

	properties.Property("node input order does not move nodes", prop.ForAll(
		func(n int, codes []int) bool {
			g := dagFromCodes(n, codes)
			reversed := &depgraph.Graph{Edges: g.Edges}
			for i := len(g.Nodes) - 1; i >= 0; i-- {
				reversed.Nodes = append(reversed.Nodes, g.Nodes[i])
			}

			a, errA := layout.ComputeLayout(g, LeftToRight, NewExpandedGroups())
			b, errB := layout.ComputeLayout(reversed, LeftToRight, NewExpandedGroups())
			if errA != nil || errB != nil {
				return false
			}
			return reflect.DeepEqual(a.Nodes, b.Nodes)
		},
		gen.IntRange(1, maxPropertyNodes),
		codes,
	))

	properties.Property("collapsing a group hides exactly its members and re-expanding restores the layout", prop.ForAll(
		func(n int, codes []int, split int) bool {
			g := dagFromCodes(n, codes)
			if split > n {
				split = n
			}
			// Nodes below split move into a collapsed group.
			grouped := &depgraph.Graph{Edges: g.Edges}
			grouped.Nodes = append(grouped.Nodes, group("grp", ""))
			for i, node := range g.Nodes {
				if i < split {
					node.ParentGroupID = "grp"
				}
				grouped.Nodes = append(grouped.Nodes, node)
			}

			pg, err := layout.ComputeLayout(grouped, LeftToRight, NewExpandedGroups())
			if err != nil || len(pg.Nodes) != n-split+1 {
				return false
			}
			grp, ok := pg.Node("grp")
			if !ok || len(grp.Members) != split {
				return false
			}
			for _, e := range pg.Edges {
				if e.SourceID == e.TargetID {
					return false
				}
			}

			// Expanding, collapsing and expanding again restores the first layout.
			expanded := NewExpandedGroups("grp")
			before, err := layout.ComputeLayout(grouped, LeftToRight, expanded)
			if err != nil {
				return false
			}
			collapsed := expanded.Toggle("grp")
			if _, err := layout.ComputeLayout(grouped, LeftToRight, collapsed); err != nil {
				return false
			}
			after, err := layout.ComputeLayout(grouped, LeftToRight, collapsed.Toggle("grp"))
			if err != nil {
				return false
			}
			return reflect.DeepEqual(rankOrder(before), rankOrder(after)) && reflect.DeepEqual(before, after)
		},
		gen.IntRange(1, maxPropertyNodes),
		codes,
		gen.IntRange(0, maxPropertyNodes),
	))

	properties.TestingRun(t)
}
