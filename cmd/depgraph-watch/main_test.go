package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-depgraph/pkg/config"
	"github.com/dd0wney/cluso-depgraph/pkg/fetch"
	"github.com/dd0wney/cluso-depgraph/pkg/logging"
	"github.com/dd0wney/cluso-depgraph/pkg/metrics"
	"github.com/dd0wney/cluso-depgraph/pkg/polling"
)

const fixture = `
subjects:
  - dag_id: etl_daily
    partition_key: "2024-01-01"
    graph:
      nodes:
        - {id: T1, kind: task, label: T1}
        - {id: T2, kind: task, label: T2}
        - {id: A1, kind: asset, label: A1}
      edges:
        - {source_id: T1, target_id: A1}
        - {source_id: T2, target_id: A1}
    satisfied: [A1]
`

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o600))
	return path
}

func baseOptions(t *testing.T) options {
	return options{
		fixture:       writeFixture(t),
		dagID:         "etl_daily",
		partition:     "2024-01-01",
		direction:     "LR",
		interval:      time.Second,
		graphInterval: -1,
		logLevel:      "error",
		once:          true,
	}
}

func TestRunPrintsReadyUpdate(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(baseOptions(t), &out))

	scanner := bufio.NewScanner(&out)
	require.True(t, scanner.Scan())

	var line struct {
		Subject string `json:"subject"`
		State   string `json:"state"`
		Seq     uint64 `json:"seq"`
		Graph   struct {
			Direction     string `json:"direction"`
			SelectedCount int    `json:"selected_count"`
			Nodes         []struct {
				ID       string `json:"id"`
				Rank     int    `json:"rank"`
				Selected bool   `json:"selected"`
			} `json:"nodes"`
		} `json:"graph"`
	}
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))

	assert.Equal(t, "etl_daily/2024-01-01", line.Subject)
	assert.Equal(t, "ready", line.State)
	assert.Equal(t, uint64(1), line.Seq)
	assert.Equal(t, 1, line.Graph.SelectedCount)
	require.Len(t, line.Graph.Nodes, 3)
	for _, n := range line.Graph.Nodes {
		assert.Equal(t, n.ID == "A1", n.Selected, n.ID)
	}
}

func TestRunStopsOnUnknownSubject(t *testing.T) {
	opts := baseOptions(t)
	opts.partition = "2099-01-01"
	opts.once = false

	var out bytes.Buffer
	require.NoError(t, run(opts, &out))
	assert.Contains(t, out.String(), `"state":"terminated"`)
	assert.Contains(t, out.String(), "not found")
}

func TestRunRejectsBadInput(t *testing.T) {
	opts := baseOptions(t)
	opts.direction = "sideways"
	assert.Error(t, run(opts, &bytes.Buffer{}))

	opts = baseOptions(t)
	opts.dagID = ""
	assert.Error(t, run(opts, &bytes.Buffer{}))

	opts = baseOptions(t)
	opts.fixture = ""
	t.Setenv("DEPGRAPH_API_URL", "")
	assert.Error(t, run(opts, &bytes.Buffer{}))
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b,"))
}

func TestOpsServerRoutes(t *testing.T) {
	cfg := config.Default()
	reg := metrics.NewRegistry()
	fetcher := fetch.NewFixtureFetcher()
	coord := polling.NewCoordinator(fetcher, cfg.CoordinatorOptions(logging.NewNopLogger(), reg)...)
	defer coord.Close()

	srv := httptest.NewServer(newOpsServer(cfg, coord, fetcher, reg).Handler)
	defer srv.Close()

	tests := []struct {
		path string
		code int
	}{
		{"/metrics", http.StatusOK},
		{"/health/live", http.StatusOK},
		// nothing has been fetched yet, so freshness is degraded
		{"/health/ready", http.StatusServiceUnavailable},
		{"/views", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.code, resp.StatusCode)
		})
	}
}
