package visualization

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dd0wney/cluso-depgraph/pkg/depgraph"
)

// Position represents a 2D coordinate. Node positions are node centers.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Direction controls the axis along which ranks are laid out
type Direction int

const (
	// LeftToRight places rank 0 on the left
	LeftToRight Direction = iota
	// RightToLeft places rank 0 on the right
	RightToLeft
	// TopToBottom places rank 0 at the top
	TopToBottom
	// BottomToTop places rank 0 at the bottom
	BottomToTop
)

// String returns the short form of the direction
func (d Direction) String() string {
	switch d {
	case LeftToRight:
		return "LR"
	case RightToLeft:
		return "RL"
	case TopToBottom:
		return "TB"
	case BottomToTop:
		return "BT"
	default:
		return "UNKNOWN"
	}
}

// ParseDirection converts a string to a Direction. Besides the short forms it
// accepts the compass names used by the web UI ("RIGHT" means ranks flow
// rightwards, i.e. LeftToRight).
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lr", "left_to_right", "lefttoright", "right":
		return LeftToRight, nil
	case "rl", "right_to_left", "righttoleft", "left":
		return RightToLeft, nil
	case "tb", "top_to_bottom", "toptobottom", "down":
		return TopToBottom, nil
	case "bt", "bottom_to_top", "bottomtotop", "up":
		return BottomToTop, nil
	default:
		return LeftToRight, fmt.Errorf("unknown layout direction %q", s)
	}
}

// Horizontal reports whether ranks advance along the X axis
func (d Direction) Horizontal() bool {
	return d == LeftToRight || d == RightToLeft
}

// Reversed reports whether rank 0 sits at the far end of the primary axis
func (d Direction) Reversed() bool {
	return d == RightToLeft || d == BottomToTop
}

// Next cycles through the four directions
func (d Direction) Next() Direction {
	return (d + 1) % 4
}

// MarshalText implements encoding.TextMarshaler
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ExpandedGroups is an immutable set of group ids that are currently expanded.
// Groups not in the set are collapsed.
type ExpandedGroups struct {
	ids map[string]struct{}
}

// NewExpandedGroups creates a set from the given group ids
func NewExpandedGroups(ids ...string) ExpandedGroups {
	eg := ExpandedGroups{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		eg.ids[id] = struct{}{}
	}
	return eg
}

// Contains reports whether the group is expanded
func (eg ExpandedGroups) Contains(id string) bool {
	_, ok := eg.ids[id]
	return ok
}

// Len returns the number of expanded groups
func (eg ExpandedGroups) Len() int {
	return len(eg.ids)
}

// IDs returns the expanded group ids in sorted order
func (eg ExpandedGroups) IDs() []string {
	ids := make([]string, 0, len(eg.ids))
	for id := range eg.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Toggle returns a new set with the group's membership flipped
func (eg ExpandedGroups) Toggle(id string) ExpandedGroups {
	ids := make([]string, 0, len(eg.ids)+1)
	for existing := range eg.ids {
		if existing != id {
			ids = append(ids, existing)
		}
	}
	if !eg.Contains(id) {
		ids = append(ids, id)
	}
	return NewExpandedGroups(ids...)
}

// LayoutConfig configures layout parameters. Spacing is fixed configuration,
// never derived from the graph.
type LayoutConfig struct {
	RankSpacing float64 `yaml:"rank_spacing" validate:"gte=0"` // Distance between ranks along the primary axis
	NodeSpacing float64 `yaml:"node_spacing" validate:"gte=0"` // Distance between neighbours within a rank
	NodeWidth   float64 `yaml:"node_width" validate:"gte=0"`
	NodeHeight  float64 `yaml:"node_height" validate:"gte=0"`
	Padding     float64 `yaml:"padding" validate:"gte=0"` // Padding from the canvas origin
	Sweeps      int     `yaml:"sweeps" validate:"gte=0"`  // Number of crossing-reduction sweeps
}

// DefaultLayoutConfig returns the spacing used when none is configured
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		RankSpacing: 240,
		NodeSpacing: 80,
		NodeWidth:   180,
		NodeHeight:  48,
		Padding:     50,
		Sweeps:      4,
	}
}

// Layout computes positions for a dependency graph
type Layout interface {
	ComputeLayout(g *depgraph.Graph, dir Direction, expanded ExpandedGroups) (*PositionedGraph, error)
}

// PositionedNode is a visible node with its center coordinate.
// Members lists the ids hidden inside a collapsed group, sorted.
type PositionedNode struct {
	depgraph.Node
	Position
	Rank    int      `json:"rank"`
	Order   int      `json:"order"`
	Members []string `json:"members,omitempty"`
}

// PositionedEdge is a straight segment between two node centers
type PositionedEdge struct {
	depgraph.Edge
	Source     Position `json:"source"`
	Target     Position `json:"target"`
	Redirected bool     `json:"redirected,omitempty"`
}

// GroupFrame is the bounding box drawn around an expanded group
type GroupFrame struct {
	ID            string   `json:"id"`
	Label         string   `json:"label"`
	ParentGroupID string   `json:"parent_group_id,omitempty"`
	Min           Position `json:"min"`
	Max           Position `json:"max"`
}

// Bounds is the canvas extent of a layout
type Bounds struct {
	Min Position `json:"min"`
	Max Position `json:"max"`
}

// Width returns the horizontal extent
func (b Bounds) Width() float64 {
	return b.Max.X - b.Min.X
}

// Height returns the vertical extent
func (b Bounds) Height() float64 {
	return b.Max.Y - b.Min.Y
}

// PositionedGraph is the output of a layout. It is shared read-only and is
// never mutated after creation.
type PositionedGraph struct {
	Direction Direction        `json:"direction"`
	Nodes     []PositionedNode `json:"nodes"`
	Edges     []PositionedEdge `json:"edges"`
	Groups    []GroupFrame     `json:"groups,omitempty"`
	Bounds    Bounds           `json:"bounds"`
	Ranks     int              `json:"ranks"`
}

// Node returns the positioned node with the given id
func (pg *PositionedGraph) Node(id string) (PositionedNode, bool) {
	for _, n := range pg.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return PositionedNode{}, false
}

// Layers returns node ids grouped by rank, each rank in layout order
func (pg *PositionedGraph) Layers() [][]string {
	layers := make([][]string, pg.Ranks)
	for _, n := range pg.Nodes {
		layers[n.Rank] = append(layers[n.Rank], n.ID)
	}
	return layers
}
