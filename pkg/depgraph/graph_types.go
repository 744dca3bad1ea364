package depgraph

import (
	"fmt"
	"strings"
)

// NodeKind classifies a node in a dependency graph
type NodeKind int

const (
	// KindTask is a unit of work (task, DAG, trigger)
	KindTask NodeKind = iota
	// KindAsset is a data asset that feeds or is produced by work
	KindAsset
	// KindGroup is a composite node that can be expanded or collapsed
	KindGroup
)

// String returns the string representation of a node kind
func (k NodeKind) String() string {
	switch k {
	case KindTask:
		return "task"
	case KindAsset:
		return "asset"
	case KindGroup:
		return "group"
	default:
		return "unknown"
	}
}

// ParseNodeKind converts a string to a NodeKind
func ParseNodeKind(s string) (NodeKind, error) {
	switch strings.ToLower(s) {
	case "task":
		return KindTask, nil
	case "asset":
		return KindAsset, nil
	case "group":
		return KindGroup, nil
	default:
		return KindTask, fmt.Errorf("unknown node kind %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler
func (k NodeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *NodeKind) UnmarshalText(text []byte) error {
	parsed, err := ParseNodeKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Node is a vertex of a dependency graph.
// ParentGroupID is empty for top-level nodes.
type Node struct {
	ID            string   `json:"id" yaml:"id"`
	Kind          NodeKind `json:"kind" yaml:"kind"`
	ParentGroupID string   `json:"parent_group_id,omitempty" yaml:"parent_group_id,omitempty"`
	Label         string   `json:"label" yaml:"label"`
}

// Edge is a directed dependency from SourceID to TargetID
type Edge struct {
	ID       string `json:"id" yaml:"id"`
	SourceID string `json:"source_id" yaml:"source_id"`
	TargetID string `json:"target_id" yaml:"target_id"`
}

// Graph is an immutable dependency graph as delivered by the data layer.
// Node order carries no meaning for layout beyond deterministic tie-breaking.
type Graph struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// Stats holds summary counts.
type Stats struct {
	Nodes  int
	Edges  int
	Groups int
	Assets int
}

// Stats returns summary counts for the graph
func (g *Graph) Stats() Stats {
	s := Stats{Nodes: len(g.Nodes), Edges: len(g.Edges)}
	for _, n := range g.Nodes {
		switch n.Kind {
		case KindGroup:
			s.Groups++
		case KindAsset:
			s.Assets++
		}
	}
	return s
}

// Node id prefixes used by the data layer
const (
	AssetPrefix = "asset:"
	DagPrefix   = "dag:"
	TaskPrefix  = "task:"
)

// AssetNodeID returns the node id of an asset
func AssetNodeID(assetID int64) string {
	return fmt.Sprintf("%s%d", AssetPrefix, assetID)
}

// DagNodeID returns the node id of a DAG
func DagNodeID(dagID string) string {
	return DagPrefix + dagID
}

// TaskNodeID returns the node id of a task
func TaskNodeID(taskID string) string {
	return TaskPrefix + taskID
}

// EdgeIDFor derives an edge id for transports that do not carry one
func EdgeIDFor(sourceID, targetID string) string {
	return sourceID + "->" + targetID
}
