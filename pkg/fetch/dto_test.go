package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-depgraph/pkg/depgraph"
)

func TestNodeKind(t *testing.T) {
	assert.Equal(t, depgraph.KindAsset, nodeKind(NodeResponse{Type: "asset"}))
	assert.Equal(t, depgraph.KindAsset, nodeKind(NodeResponse{Type: "asset-alias"}))
	assert.Equal(t, depgraph.KindTask, nodeKind(NodeResponse{Type: "dag"}))
	assert.Equal(t, depgraph.KindTask, nodeKind(NodeResponse{Type: "trigger"}))
	assert.Equal(t, depgraph.KindGroup, nodeKind(NodeResponse{Type: "task_group", Children: []NodeResponse{}}))
}

func TestToGraphNestedGroups(t *testing.T) {
	resp := GraphResponse{
		Nodes: []NodeResponse{
			{ID: "outer", Type: "task_group", Children: []NodeResponse{
				{ID: "inner", Type: "task_group", Children: []NodeResponse{
					{ID: "leaf", Type: "task"},
				}},
			}},
		},
	}

	g := resp.ToGraph()
	require.NoError(t, g.Validate())
	require.Len(t, g.Nodes, 3)

	assert.Equal(t, "", g.Nodes[0].ParentGroupID)
	assert.Equal(t, "outer", g.Nodes[1].ParentGroupID)
	assert.Equal(t, "inner", g.Nodes[2].ParentGroupID)
	// Missing labels fall back to the id.
	assert.Equal(t, "leaf", g.Nodes[2].Label)
}

func TestSummaryCopiesTimestamps(t *testing.T) {
	runID := "manual__1"
	resp := PartitionedRunResponse{DagID: "d", PartitionKey: "p", CreatedDagRunID: &runID}

	s := resp.Summary()
	assert.Equal(t, RunFulfilled, s.State)
	assert.Nil(t, s.UpdatedAt)
}
