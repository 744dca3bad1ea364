package fetch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-depgraph/pkg/depgraph"
)

const fixtureYAML = `
subjects:
  - dag_id: etl_daily
    partition_key: "2024-01-01"
    graph:
      nodes:
        - {id: "asset:1", kind: asset, label: raw}
        - {id: grp, kind: group, label: extract}
        - {id: "task:a", kind: task, label: a, parent_group_id: grp}
        - {id: "dag:etl_daily", kind: task, label: etl_daily}
      edges:
        - {source_id: "asset:1", target_id: "task:a"}
        - {id: custom, source_id: "task:a", target_id: "dag:etl_daily"}
    satisfied: ["asset:1"]
`

func TestParseFixture(t *testing.T) {
	f, err := ParseFixture([]byte(fixtureYAML))
	require.NoError(t, err)

	g, err := f.FetchDependencyGraph(context.Background(), testKey)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 4)
	assert.Equal(t, depgraph.KindGroup, g.Nodes[1].Kind)
	assert.Equal(t, "grp", g.Nodes[2].ParentGroupID)
	assert.Equal(t, "asset:1->task:a", g.Edges[0].ID)
	assert.Equal(t, "custom", g.Edges[1].ID)

	set, err := f.FetchSatisfactionSet(context.Background(), testKey)
	require.NoError(t, err)
	assert.True(t, set.Contains("asset:1"))
	assert.Equal(t, []depgraph.SubjectKey{testKey}, f.Subjects())
}

func TestParseFixtureErrors(t *testing.T) {
	_, err := ParseFixture([]byte("subjects: [ {"))
	assert.Error(t, err)

	_, err = ParseFixture([]byte("subjects:\n  - dag_id: \"bad id!\"\n    partition_key: p\n"))
	assert.Error(t, err)
}

func TestLoadFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixtureYAML), 0o600))

	f, err := LoadFixture(path)
	require.NoError(t, err)
	assert.Len(t, f.Subjects(), 1)

	_, err = LoadFixture(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFixtureUnknownSubject(t *testing.T) {
	f := NewFixtureFetcher()
	key := depgraph.SubjectKey{DagID: "nope", PartitionKey: "p"}

	_, err := f.FetchDependencyGraph(context.Background(), key)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, IsRetryable(err))

	assert.Error(t, f.SetGraph(key, &depgraph.Graph{}))
	assert.Error(t, f.SetSatisfied(key, "x"))
	assert.Error(t, f.SetError(key, ErrNetwork))
}

func TestFixtureMutation(t *testing.T) {
	f := NewFixtureFetcher()
	f.Set(testKey, &depgraph.Graph{Nodes: []depgraph.Node{{ID: "a"}}})
	ctx := context.Background()

	require.NoError(t, f.SetSatisfied(testKey, "a"))
	set, err := f.FetchSatisfactionSet(ctx, testKey)
	require.NoError(t, err)
	assert.True(t, set.Contains("a"))

	require.NoError(t, f.SetError(testKey, &FetchError{Op: "fetch graph", Kind: ErrNetwork}))
	_, err = f.FetchDependencyGraph(ctx, testKey)
	assert.ErrorIs(t, err, ErrNetwork)
	require.NoError(t, f.SetError(testKey, nil))

	// Invalid graphs are rejected like the HTTP fetcher rejects them.
	bad := &depgraph.Graph{
		Nodes: []depgraph.Node{{ID: "a"}},
		Edges: []depgraph.Edge{{ID: "e", SourceID: "a", TargetID: "ghost"}},
	}
	require.NoError(t, f.SetGraph(testKey, bad))
	_, err = f.FetchDependencyGraph(ctx, testKey)
	assert.ErrorIs(t, err, depgraph.ErrInvalidGraph)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = f.FetchDependencyGraph(cancelled, testKey)
	assert.ErrorIs(t, err, context.Canceled)
}
