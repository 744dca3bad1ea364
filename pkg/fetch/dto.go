package fetch

import (
	"strings"
	"time"

	"github.com/dd0wney/cluso-depgraph/pkg/depgraph"
)

// GraphResponse is the body of GET /ui/dependencies
type GraphResponse struct {
	Nodes []NodeResponse `json:"nodes" validate:"dive"`
	Edges []EdgeResponse `json:"edges" validate:"dive"`
}

// NodeResponse is a dependency graph node. Children make it a group.
type NodeResponse struct {
	ID       string         `json:"id" validate:"required,max=512"`
	Label    string         `json:"label"`
	Type     string         `json:"type" validate:"required"`
	Children []NodeResponse `json:"children,omitempty" validate:"omitempty,dive"`
}

// EdgeResponse is a dependency graph edge
type EdgeResponse struct {
	SourceID string `json:"source_id" validate:"required"`
	TargetID string `json:"target_id" validate:"required"`
}

// PartitionedRunResponse is the body of GET /ui/partitioned_dag_runs/{dag}/{partition}
type PartitionedRunResponse struct {
	ID              int64           `json:"id" validate:"gte=0"`
	DagID           string          `json:"dag_id" validate:"required"`
	PartitionKey    string          `json:"partition_key" validate:"required"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       *time.Time      `json:"updated_at"`
	CreatedDagRunID *string         `json:"created_dag_run_id"`
	TotalRequired   int             `json:"total_required" validate:"gte=0"`
	TotalReceived   int             `json:"total_received" validate:"gte=0,ltefield=TotalRequired"`
	Assets          []AssetResponse `json:"assets" validate:"dive"`
}

// AssetResponse is one asset a partitioned run waits for
type AssetResponse struct {
	AssetID   int64  `json:"asset_id" validate:"gt=0"`
	AssetName string `json:"asset_name"`
	AssetURI  string `json:"asset_uri"`
	Received  bool   `json:"received"`
}

// nodeKind maps an API node type to a NodeKind
func nodeKind(n NodeResponse) depgraph.NodeKind {
	switch {
	case n.Children != nil:
		return depgraph.KindGroup
	case strings.HasPrefix(n.Type, "asset"):
		return depgraph.KindAsset
	default:
		return depgraph.KindTask
	}
}

// ToGraph flattens nested children into ParentGroupID references. Edge ids
// are derived from their endpoints; repeated pairs keep the first occurrence.
// The result is not validated.
func (r *GraphResponse) ToGraph() *depgraph.Graph {
	g := &depgraph.Graph{
		Nodes: make([]depgraph.Node, 0, len(r.Nodes)),
		Edges: make([]depgraph.Edge, 0, len(r.Edges)),
	}

	var walk func(nodes []NodeResponse, parent string)
	walk = func(nodes []NodeResponse, parent string) {
		for _, n := range nodes {
			label := n.Label
			if label == "" {
				label = n.ID
			}
			g.Nodes = append(g.Nodes, depgraph.Node{
				ID:            n.ID,
				Kind:          nodeKind(n),
				ParentGroupID: parent,
				Label:         label,
			})
			walk(n.Children, n.ID)
		}
	}
	walk(r.Nodes, "")

	seen := make(map[string]bool, len(r.Edges))
	for _, e := range r.Edges {
		id := depgraph.EdgeIDFor(e.SourceID, e.TargetID)
		if seen[id] {
			continue
		}
		seen[id] = true
		g.Edges = append(g.Edges, depgraph.Edge{ID: id, SourceID: e.SourceID, TargetID: e.TargetID})
	}

	return g
}

// Satisfied returns the node ids of received assets
func (r *PartitionedRunResponse) Satisfied() depgraph.SatisfactionSet {
	ids := make([]string, 0, len(r.Assets))
	for _, a := range r.Assets {
		if a.Received {
			ids = append(ids, depgraph.AssetNodeID(a.AssetID))
		}
	}
	return depgraph.NewSatisfactionSet(ids...)
}

// RunState is the lifecycle of a partitioned run
type RunState string

const (
	// RunPending means the run is still waiting for assets
	RunPending RunState = "pending"
	// RunFulfilled means a DAG run has been created for the partition
	RunFulfilled RunState = "fulfilled"
)

// RunSummary is the header information for a partitioned run
type RunSummary struct {
	Subject         depgraph.SubjectKey `json:"subject"`
	State           RunState            `json:"state"`
	TotalRequired   int                 `json:"total_required"`
	TotalReceived   int                 `json:"total_received"`
	CreatedDagRunID string              `json:"created_dag_run_id,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       *time.Time          `json:"updated_at,omitempty"`
}

// Summary derives the run summary
func (r *PartitionedRunResponse) Summary() RunSummary {
	s := RunSummary{
		Subject:       depgraph.SubjectKey{DagID: r.DagID, PartitionKey: r.PartitionKey},
		State:         RunPending,
		TotalRequired: r.TotalRequired,
		TotalReceived: r.TotalReceived,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.CreatedDagRunID != nil {
		s.State = RunFulfilled
		s.CreatedDagRunID = *r.CreatedDagRunID
	}
	return s
}
