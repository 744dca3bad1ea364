package visualization

import (
	"math"

	"github.com/dd0wney/cluso-depgraph/pkg/depgraph"
)

// LayeredLayout arranges a dependency graph in ranks (Sugiyama style).
// It holds only configuration and is safe for concurrent use.
type LayeredLayout struct {
	config LayoutConfig
}

// NewLayeredLayout creates a new layered layout. Zero fields take defaults.
func NewLayeredLayout(config *LayoutConfig) *LayeredLayout {
	defaults := DefaultLayoutConfig()
	cfg := defaults
	if config != nil {
		cfg = *config
	}
	if cfg.RankSpacing == 0 {
		cfg.RankSpacing = defaults.RankSpacing
	}
	if cfg.NodeSpacing == 0 {
		cfg.NodeSpacing = defaults.NodeSpacing
	}
	if cfg.NodeWidth == 0 {
		cfg.NodeWidth = defaults.NodeWidth
	}
	if cfg.NodeHeight == 0 {
		cfg.NodeHeight = defaults.NodeHeight
	}
	if cfg.Padding == 0 {
		cfg.Padding = defaults.Padding
	}
	if cfg.Sweeps == 0 {
		cfg.Sweeps = defaults.Sweeps
	}
	return &LayeredLayout{config: cfg}
}

// Config returns the effective configuration
func (l *LayeredLayout) Config() LayoutConfig {
	return l.config
}

// ComputeLayout positions the visible nodes of g.
//
// The result is a pure function of its inputs. A structurally invalid graph
// (dangling edge, self-loop, bad group reference) fails with
// depgraph.ErrInvalidGraph and no partial layout is returned.
func (l *LayeredLayout) ComputeLayout(g *depgraph.Graph, dir Direction, expanded ExpandedGroups) (*PositionedGraph, error) {
	idx, err := g.Index()
	if err != nil {
		return nil, err
	}

	vg := materialize(idx, expanded)
	r := assignRanks(vg)
	layers := orderLayers(vg, r, l.config.Sweeps)

	return l.place(vg, r, layers, dir), nil
}

// place converts rank and in-rank order into coordinates
func (l *LayeredLayout) place(vg *visibleGraph, r *ranking, layers [][]string, dir Direction) *PositionedGraph {
	cfg := l.config
	pg := &PositionedGraph{
		Direction: dir,
		Nodes:     make([]PositionedNode, 0, len(vg.nodes)),
		Edges:     make([]PositionedEdge, 0, len(vg.edges)),
		Ranks:     len(layers),
	}

	maxWidth := 0
	for _, layer := range layers {
		if len(layer) > maxWidth {
			maxWidth = len(layer)
		}
	}

	// Node extent along each axis depends on the direction.
	primaryExtent, crossExtent := cfg.NodeWidth, cfg.NodeHeight
	if !dir.Horizontal() {
		primaryExtent, crossExtent = cfg.NodeHeight, cfg.NodeWidth
	}

	positions := make(map[string]Position, len(vg.nodes))
	for rank, layer := range layers {
		step := rank
		if dir.Reversed() {
			step = r.maxRank - rank
		}
		primary := cfg.Padding + primaryExtent/2 + float64(step)*cfg.RankSpacing
		offset := float64(maxWidth-len(layer)) / 2

		for order, id := range layer {
			cross := cfg.Padding + crossExtent/2 + (offset+float64(order))*cfg.NodeSpacing

			p := Position{X: primary, Y: cross}
			if !dir.Horizontal() {
				p = Position{X: cross, Y: primary}
			}
			positions[id] = p

			node, _ := vg.index.Node(id)
			pg.Nodes = append(pg.Nodes, PositionedNode{
				Node:     node,
				Position: p,
				Rank:     rank,
				Order:    order,
				Members:  vg.members[id],
			})
		}
	}

	for _, e := range vg.edges {
		pg.Edges = append(pg.Edges, PositionedEdge{
			Edge:       e.Edge,
			Source:     positions[e.SourceID],
			Target:     positions[e.TargetID],
			Redirected: e.redirected,
		})
	}

	pg.Groups = l.frames(vg, positions)
	pg.Bounds = computeBounds(pg.Nodes, cfg.NodeWidth, cfg.NodeHeight, cfg.Padding)

	return pg
}

// frames computes the bounding box of every expanded group from the visible
// nodes nested inside it. Expanded groups with no visible content are omitted.
func (l *LayeredLayout) frames(vg *visibleGraph, positions map[string]Position) []GroupFrame {
	if len(vg.frames) == 0 {
		return nil
	}

	type box struct {
		min, max Position
		set      bool
	}
	boxes := make(map[string]*box, len(vg.frames))
	for _, id := range vg.frames {
		boxes[id] = &box{}
	}

	halfW, halfH := l.config.NodeWidth/2, l.config.NodeHeight/2
	margin := l.config.Padding / 2

	for _, n := range vg.nodes {
		p := positions[n.ID]
		for _, anc := range vg.index.Ancestors(n.ID) {
			b, ok := boxes[anc]
			if !ok {
				continue
			}
			lo := Position{X: p.X - halfW - margin, Y: p.Y - halfH - margin}
			hi := Position{X: p.X + halfW + margin, Y: p.Y + halfH + margin}
			if !b.set {
				b.min, b.max, b.set = lo, hi, true
				continue
			}
			b.min = Position{X: math.Min(b.min.X, lo.X), Y: math.Min(b.min.Y, lo.Y)}
			b.max = Position{X: math.Max(b.max.X, hi.X), Y: math.Max(b.max.Y, hi.Y)}
		}
	}

	frames := make([]GroupFrame, 0, len(vg.frames))
	for _, id := range vg.frames {
		b := boxes[id]
		if !b.set {
			continue
		}
		node, _ := vg.index.Node(id)
		frames = append(frames, GroupFrame{
			ID:            id,
			Label:         node.Label,
			ParentGroupID: node.ParentGroupID,
			Min:           b.min,
			Max:           b.max,
		})
	}
	return frames
}
