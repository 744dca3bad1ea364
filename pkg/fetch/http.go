package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dd0wney/cluso-depgraph/pkg/depgraph"
	"github.com/dd0wney/cluso-depgraph/pkg/logging"
	"github.com/dd0wney/cluso-depgraph/pkg/validation"
)

const (
	// DefaultTimeout bounds a single request
	DefaultTimeout = 10 * time.Second

	// maxBodyBytes caps response bodies read from the API
	maxBodyBytes = 32 << 20
)

// HTTPFetcher reads dependency graphs and partitioned runs from the
// Airflow UI API.
type HTTPFetcher struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     logging.Logger
	now        func() time.Time
}

// Option configures an HTTPFetcher
type Option func(*HTTPFetcher)

// WithToken sets the bearer token sent with every request
func WithToken(token string) Option {
	return func(f *HTTPFetcher) {
		f.token = token
	}
}

// WithHTTPClient replaces the default client
func WithHTTPClient(c *http.Client) Option {
	return func(f *HTTPFetcher) {
		f.httpClient = c
	}
}

// WithTimeout sets the per-request timeout of the default client
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(l logging.Logger) Option {
	return func(f *HTTPFetcher) {
		f.logger = l
	}
}

// WithClock overrides the clock used for token expiry checks
func WithClock(now func() time.Time) Option {
	return func(f *HTTPFetcher) {
		f.now = now
	}
}

// NewHTTPFetcher creates a fetcher for the API rooted at baseURL
func NewHTTPFetcher(baseURL string, opts ...Option) (*HTTPFetcher, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q", baseURL)
	}

	f := &HTTPFetcher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logging.NewNopLogger(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With(logging.Component("fetch"))
	return f, nil
}

// FetchDependencyGraph returns the validated dependency graph of the subject's DAG
func (f *HTTPFetcher) FetchDependencyGraph(ctx context.Context, key depgraph.SubjectKey) (*depgraph.Graph, error) {
	const op = "fetch graph"

	endpoint := f.baseURL + "/ui/dependencies?node_id=" + url.QueryEscape(key.GraphNodeID())

	var resp GraphResponse
	if err := f.getJSON(ctx, op, key, endpoint, &resp); err != nil {
		return nil, err
	}

	g := resp.ToGraph()
	if err := g.Validate(); err != nil {
		return nil, &FetchError{Op: op, Subject: key.String(), Kind: depgraph.ErrInvalidGraph, Cause: err}
	}
	return g, nil
}

// FetchSatisfactionSet returns the node ids of the assets received so far
func (f *HTTPFetcher) FetchSatisfactionSet(ctx context.Context, key depgraph.SubjectKey) (depgraph.SatisfactionSet, error) {
	run, err := f.GetPartitionedRun(ctx, key)
	if err != nil {
		return depgraph.SatisfactionSet{}, err
	}
	return run.Satisfied(), nil
}

// GetPartitionedRun returns the full partitioned run record
func (f *HTTPFetcher) GetPartitionedRun(ctx context.Context, key depgraph.SubjectKey) (*PartitionedRunResponse, error) {
	const op = "fetch run"

	endpoint := fmt.Sprintf("%s/ui/partitioned_dag_runs/%s/%s",
		f.baseURL, url.PathEscape(key.DagID), url.PathEscape(key.PartitionKey))

	var resp PartitionedRunResponse
	if err := f.getJSON(ctx, op, key, endpoint, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RunSummary returns the pending/fulfilled summary of a partitioned run
func (f *HTTPFetcher) RunSummary(ctx context.Context, key depgraph.SubjectKey) (RunSummary, error) {
	run, err := f.GetPartitionedRun(ctx, key)
	if err != nil {
		return RunSummary{}, err
	}
	return run.Summary(), nil
}

// Ping checks that the API answers at all
func (f *HTTPFetcher) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/api/v2/monitor/health", nil)
	if err != nil {
		return err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return &FetchError{Op: "ping", Kind: ErrNetwork, Cause: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	if resp.StatusCode >= http.StatusBadRequest {
		return &FetchError{Op: "ping", StatusCode: resp.StatusCode, Kind: kindForStatus(resp.StatusCode)}
	}
	return nil
}

// getJSON performs an authenticated GET and decodes and validates the body into out
func (f *HTTPFetcher) getJSON(ctx context.Context, op string, key depgraph.SubjectKey, endpoint string, out any) error {
	subject := key.String()

	if err := checkToken(f.token, f.now()); err != nil {
		return &FetchError{Op: op, Subject: subject, Kind: ErrUnauthorized, Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &FetchError{Op: op, Subject: subject, Kind: ErrNetwork, Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	timer := logging.StartTimer(f.logger, "api request", logging.Operation(op), logging.Subject(key))
	resp, err := f.httpClient.Do(req)
	if err != nil {
		timer.Stop(logging.DebugLevel, logging.Error(err))
		return &FetchError{Op: op, Subject: subject, Kind: ErrNetwork, Cause: err}
	}
	defer resp.Body.Close()
	timer.Stop(logging.DebugLevel, logging.Int("status", resp.StatusCode))

	body := io.LimitReader(resp.Body, maxBodyBytes)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, body)
		return &FetchError{Op: op, Subject: subject, StatusCode: resp.StatusCode, Kind: kindForStatus(resp.StatusCode)}
	}

	if err := json.NewDecoder(body).Decode(out); err != nil {
		return &FetchError{Op: op, Subject: subject, Kind: depgraph.ErrInvalidGraph, Cause: fmt.Errorf("decode response: %w", err)}
	}
	if err := validation.Struct(out); err != nil {
		return &FetchError{Op: op, Subject: subject, Kind: depgraph.ErrInvalidGraph, Cause: err}
	}
	return nil
}
