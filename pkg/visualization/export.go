package visualization

import (
	"encoding/json"
)

// Visualization is a highlighted layout ready to hand to a renderer
type Visualization struct {
	Graph *HighlightedGraph
}

// ExportJSON exports the visualization to JSON
func (v *Visualization) ExportJSON() ([]byte, error) {
	type NodeViz struct {
		ID               string   `json:"id"`
		Kind             string   `json:"kind"`
		Label            string   `json:"label"`
		ParentGroupID    string   `json:"parent_group_id,omitempty"`
		X                float64  `json:"x"`
		Y                float64  `json:"y"`
		Rank             int      `json:"rank"`
		Selected         bool     `json:"selected"`
		Members          []string `json:"members,omitempty"`
		SatisfiedMembers int      `json:"satisfied_members,omitempty"`
	}

	type EdgeViz struct {
		ID         string     `json:"id"`
		FromNodeID string     `json:"from"`
		ToNodeID   string     `json:"to"`
		Points     []Position `json:"points"`
		Redirected bool       `json:"redirected,omitempty"`
	}

	type VizData struct {
		Direction     string       `json:"direction"`
		Nodes         []NodeViz    `json:"nodes"`
		Edges         []EdgeViz    `json:"edges"`
		Groups        []GroupFrame `json:"groups"`
		Bounds        Bounds       `json:"bounds"`
		SelectedCount int          `json:"selected_count"`
	}

	data := VizData{
		Nodes:  []NodeViz{},
		Edges:  []EdgeViz{},
		Groups: []GroupFrame{},
	}
	if v.Graph == nil || v.Graph.Positioned == nil {
		return json.Marshal(data)
	}

	pg := v.Graph.Positioned
	data.Direction = pg.Direction.String()
	data.Bounds = pg.Bounds
	data.SelectedCount = v.Graph.SelectedCount
	if len(pg.Groups) > 0 {
		data.Groups = pg.Groups
	}

	// Convert nodes
	for _, n := range v.Graph.Nodes {
		data.Nodes = append(data.Nodes, NodeViz{
			ID:               n.ID,
			Kind:             n.Kind.String(),
			Label:            n.Label,
			ParentGroupID:    n.ParentGroupID,
			X:                n.X,
			Y:                n.Y,
			Rank:             n.Rank,
			Selected:         n.IsSelected,
			Members:          n.Members,
			SatisfiedMembers: n.SatisfiedMembers,
		})
	}

	// Convert edges
	for _, e := range pg.Edges {
		data.Edges = append(data.Edges, EdgeViz{
			ID:         e.ID,
			FromNodeID: e.SourceID,
			ToNodeID:   e.TargetID,
			Points:     []Position{e.Source, e.Target},
			Redirected: e.Redirected,
		})
	}

	return json.MarshalIndent(data, "", "  ")
}
