package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-depgraph/pkg/depgraph"
)

var testKey = depgraph.SubjectKey{DagID: "etl_daily", PartitionKey: "2024-01-01"}

const graphBody = `{
  "nodes": [
    {"id": "dag:etl_daily", "label": "etl_daily", "type": "dag"},
    {"id": "asset:1", "label": "raw", "type": "asset"},
    {"id": "grp", "label": "extract", "type": "task_group", "children": [
      {"id": "task:a", "label": "a", "type": "task"}
    ]}
  ],
  "edges": [
    {"source_id": "asset:1", "target_id": "dag:etl_daily"},
    {"source_id": "asset:1", "target_id": "dag:etl_daily"},
    {"source_id": "task:a", "target_id": "dag:etl_daily"}
  ]
}`

const runBody = `{
  "id": 7,
  "dag_id": "etl_daily",
  "partition_key": "2024-01-01",
  "created_at": "2024-01-01T00:00:00Z",
  "updated_at": null,
  "created_dag_run_id": null,
  "total_required": 2,
  "total_received": 1,
  "assets": [
    {"asset_id": 1, "asset_name": "raw", "asset_uri": "s3://raw", "received": true},
    {"asset_id": 2, "asset_name": "ref", "asset_uri": "s3://ref", "received": false}
  ]
}`

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *HTTPFetcher) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	f, err := NewHTTPFetcher(srv.URL, WithTimeout(2*time.Second))
	require.NoError(t, err)
	return srv, f
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "viewer",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestNewHTTPFetcherRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "not a url", "/relative/path"} {
		_, err := NewHTTPFetcher(raw)
		assert.Error(t, err, raw)
	}
}

func TestFetchDependencyGraph(t *testing.T) {
	_, f := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ui/dependencies", r.URL.Path)
		assert.Equal(t, "dag:etl_daily", r.URL.Query().Get("node_id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(graphBody))
	})

	g, err := f.FetchDependencyGraph(context.Background(), testKey)
	require.NoError(t, err)

	require.Len(t, g.Nodes, 4)
	idx, err := g.Index()
	require.NoError(t, err)

	grp, ok := idx.Node("grp")
	require.True(t, ok)
	assert.Equal(t, depgraph.KindGroup, grp.Kind)

	a, ok := idx.Node("task:a")
	require.True(t, ok)
	assert.Equal(t, "grp", a.ParentGroupID)
	assert.Equal(t, depgraph.KindTask, a.Kind)

	asset, _ := idx.Node("asset:1")
	assert.Equal(t, depgraph.KindAsset, asset.Kind)

	// The repeated asset edge collapses into one.
	require.Len(t, g.Edges, 2)
	assert.Equal(t, "asset:1->dag:etl_daily", g.Edges[0].ID)
}

func TestFetchSendsBearerToken(t *testing.T) {
	token := signedToken(t, time.Now().Add(time.Hour))

	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(runBody))
	}))
	defer srv.Close()

	f, err := NewHTTPFetcher(srv.URL, WithToken(token))
	require.NoError(t, err)

	_, err = f.FetchSatisfactionSet(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, "Bearer "+token, got.Load())
}

func TestExpiredTokenFailsWithoutRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	f, err := NewHTTPFetcher(srv.URL,
		WithToken(signedToken(t, now.Add(-time.Minute))),
		WithClock(func() time.Time { return now }),
	)
	require.NoError(t, err)

	_, err = f.FetchDependencyGraph(context.Background(), testKey)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, calls.Load())
}

func TestOpaqueTokenIsNotChecked(t *testing.T) {
	assert.NoError(t, checkToken("opaque-api-key", time.Now()))
	assert.NoError(t, checkToken("", time.Now()))
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status    int
		want      error
		retryable bool
	}{
		{http.StatusNotFound, ErrNotFound, false},
		{http.StatusUnauthorized, ErrUnauthorized, true},
		{http.StatusForbidden, ErrUnauthorized, true},
		{http.StatusInternalServerError, ErrNetwork, true},
		{http.StatusBadGateway, ErrNetwork, true},
		{http.StatusTeapot, ErrNetwork, true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			_, f := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			_, err := f.FetchDependencyGraph(context.Background(), testKey)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.retryable, IsRetryable(err))

			var fe *FetchError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.status, fe.StatusCode)
			assert.Equal(t, testKey.String(), fe.Subject)
		})
	}
}

func TestTransportErrorIsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	f, err := NewHTTPFetcher(srv.URL)
	require.NoError(t, err)
	srv.Close()

	_, err = f.FetchSatisfactionSet(context.Background(), testKey)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.True(t, IsRetryable(err))
}

func TestMalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>oops</html>`},
		{"missing node id", `{"nodes":[{"label":"x","type":"task"}],"edges":[]}`},
		{"dangling edge", `{"nodes":[{"id":"a","type":"task"}],"edges":[{"source_id":"a","target_id":"b"}]}`},
		{"self loop", `{"nodes":[{"id":"a","type":"task"}],"edges":[{"source_id":"a","target_id":"a"}]}`},
		{"duplicate node", `{"nodes":[{"id":"a","type":"task"},{"id":"a","type":"task"}],"edges":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, f := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := f.FetchDependencyGraph(context.Background(), testKey)
			require.Error(t, err)
			assert.ErrorIs(t, err, depgraph.ErrInvalidGraph)
			assert.True(t, IsRetryable(err))
		})
	}
}

func TestInvalidRunCounts(t *testing.T) {
	_, f := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"dag_id":"etl_daily","partition_key":"p","total_required":1,"total_received":3,"assets":[]}`))
	})

	_, err := f.GetPartitionedRun(context.Background(), testKey)
	assert.ErrorIs(t, err, depgraph.ErrInvalidGraph)
}

func TestFetchSatisfactionSet(t *testing.T) {
	_, f := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ui/partitioned_dag_runs/etl_daily/2024-01-01", r.URL.Path)
		_, _ = w.Write([]byte(runBody))
	})

	set, err := f.FetchSatisfactionSet(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"asset:1"}, set.IDs())
	assert.False(t, set.Contains("asset:2"))
}

func TestRunSummary(t *testing.T) {
	t.Run("pending", func(t *testing.T) {
		_, f := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(runBody))
		})

		s, err := f.RunSummary(context.Background(), testKey)
		require.NoError(t, err)
		assert.Equal(t, RunPending, s.State)
		assert.Equal(t, 2, s.TotalRequired)
		assert.Equal(t, 1, s.TotalReceived)
		assert.Empty(t, s.CreatedDagRunID)
		assert.Equal(t, testKey, s.Subject)
	})

	t.Run("fulfilled", func(t *testing.T) {
		_, f := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"dag_id":"etl_daily","partition_key":"2024-01-01","created_dag_run_id":"run_42",
				"total_required":1,"total_received":1,"assets":[{"asset_id":1,"received":true}]}`))
		})

		s, err := f.RunSummary(context.Background(), testKey)
		require.NoError(t, err)
		assert.Equal(t, RunFulfilled, s.State)
		assert.Equal(t, "run_42", s.CreatedDagRunID)
	})
}

func TestPartitionKeyIsPathEscaped(t *testing.T) {
	key := depgraph.SubjectKey{DagID: "etl", PartitionKey: "region=eu west"}
	_, f := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ui/partitioned_dag_runs/etl/region=eu%20west", r.URL.EscapedPath())
		_, _ = w.Write([]byte(runBody))
	})

	_, err := f.GetPartitionedRun(context.Background(), key)
	require.NoError(t, err)
}

func TestContextCancellation(t *testing.T) {
	release := make(chan struct{})
	_, f := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := f.FetchDependencyGraph(ctx, testKey)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestPing(t *testing.T) {
	healthy := atomic.Bool{}
	healthy.Store(true)
	_, f := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/monitor/health", r.URL.Path)
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})

	assert.NoError(t, f.Ping(context.Background()))
	healthy.Store(false)
	assert.ErrorIs(t, f.Ping(context.Background()), ErrNetwork)
}
