package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func fixed(status Status) CheckFunc {
	return func(ctx context.Context) Check {
		return Check{Status: status}
	}
}

func TestRunAggregatesWorstStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"none", nil, StatusHealthy},
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"one degraded", []Status{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"unhealthy wins", []Status{StatusDegraded, StatusUnhealthy, StatusHealthy}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for i, s := range tt.statuses {
				c.Register(Health, string(rune('a'+i)), fixed(s))
			}
			resp := c.Run(context.Background(), Health)
			if resp.Status != tt.want {
				t.Errorf("status = %s, want %s", resp.Status, tt.want)
			}
			if len(resp.Checks) != len(tt.statuses) {
				t.Errorf("got %d checks, want %d", len(resp.Checks), len(tt.statuses))
			}
		})
	}
}

func TestProbesAreSeparate(t *testing.T) {
	c := NewChecker()
	var readyCalls atomic.Int32
	c.Register(Readiness, "ready", func(ctx context.Context) Check {
		readyCalls.Add(1)
		return Check{Status: StatusHealthy}
	})

	c.Run(context.Background(), Health)
	c.Run(context.Background(), Liveness)
	if readyCalls.Load() != 0 {
		t.Error("readiness check ran for another probe")
	}
	resp := c.Run(context.Background(), Readiness)
	if readyCalls.Load() != 1 || resp.Checks["ready"].Name != "ready" {
		t.Errorf("readiness response = %+v", resp)
	}
}

func TestRunFillsDefaults(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewChecker(WithClock(func() time.Time { return now }))
	c.Register(Health, "silent", func(ctx context.Context) Check { return Check{} })

	now = now.Add(90 * time.Second)
	resp := c.Run(context.Background(), Health)

	check := resp.Checks["silent"]
	if check.Name != "silent" {
		t.Errorf("name = %q", check.Name)
	}
	if check.Status != StatusUnhealthy {
		t.Errorf("a check without status should be unhealthy, got %s", check.Status)
	}
	if !check.LastChecked.Equal(now) || !resp.Timestamp.Equal(now) {
		t.Errorf("timestamps = %v / %v", check.LastChecked, resp.Timestamp)
	}
	if resp.UptimeSeconds != 90 {
		t.Errorf("uptime = %v", resp.UptimeSeconds)
	}
}

func TestCheckTimeout(t *testing.T) {
	c := NewChecker(WithTimeout(20 * time.Millisecond))
	c.Register(Readiness, "upstream", UpstreamCheck(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	start := time.Now()
	resp := c.Run(context.Background(), Readiness)
	if time.Since(start) > time.Second {
		t.Fatal("timeout not applied")
	}
	if resp.Status != StatusUnhealthy {
		t.Errorf("status = %s", resp.Status)
	}
	if resp.Checks["upstream"].Message != context.DeadlineExceeded.Error() {
		t.Errorf("message = %q", resp.Checks["upstream"].Message)
	}
}

func TestUpstreamCheck(t *testing.T) {
	ok := UpstreamCheck(func(ctx context.Context) error { return nil })(context.Background())
	if ok.Status != StatusHealthy {
		t.Errorf("status = %s", ok.Status)
	}
	bad := UpstreamCheck(func(ctx context.Context) error { return errors.New("connection refused") })(context.Background())
	if bad.Status != StatusUnhealthy || bad.Message != "connection refused" {
		t.Errorf("check = %+v", bad)
	}
}

func TestViewsCheck(t *testing.T) {
	tests := []struct {
		name   string
		counts ViewCounts
		want   Status
	}{
		{"no views", ViewCounts{}, StatusHealthy},
		{"only terminated", ViewCounts{Total: 2, Terminated: 2}, StatusHealthy},
		{"all ready", ViewCounts{Total: 3}, StatusHealthy},
		{"some errored", ViewCounts{Total: 3, Errored: 1}, StatusDegraded},
		{"all active errored", ViewCounts{Total: 3, Errored: 2, Terminated: 1}, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := ViewsCheck(func() ViewCounts { return tt.counts })(context.Background())
			if check.Status != tt.want {
				t.Errorf("status = %s, want %s (%s)", check.Status, tt.want, check.Message)
			}
			if check.Details["total"] != tt.counts.Total {
				t.Errorf("details = %v", check.Details)
			}
		})
	}
}

func TestStalenessCheck(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	var last time.Time
	check := StalenessCheck(func() time.Time { return last }, time.Minute, clock)

	if got := check(context.Background()); got.Status != StatusDegraded {
		t.Errorf("no fetch yet: %s", got.Status)
	}
	last = now.Add(-30 * time.Second)
	if got := check(context.Background()); got.Status != StatusHealthy {
		t.Errorf("fresh: %s", got.Status)
	}
	last = now.Add(-2 * time.Minute)
	got := check(context.Background())
	if got.Status != StatusDegraded || got.Details["age_seconds"] != float64(120) {
		t.Errorf("stale: %+v", got)
	}
}

func TestMemoryCheck(t *testing.T) {
	tests := []struct {
		alloc, sys uint64
		want       Status
	}{
		{100, 1000, StatusHealthy},
		{950, 1000, StatusDegraded},
		{0, 0, StatusHealthy},
	}
	for _, tt := range tests {
		got := MemoryCheck(func() (uint64, uint64) { return tt.alloc, tt.sys })(context.Background())
		if got.Status != tt.want {
			t.Errorf("MemoryCheck(%d/%d) = %s, want %s", tt.alloc, tt.sys, got.Status, tt.want)
		}
	}
}

func TestHandlerStatusCodes(t *testing.T) {
	tests := []struct {
		probe  Probe
		status Status
		want   int
	}{
		{Health, StatusHealthy, http.StatusOK},
		{Health, StatusDegraded, http.StatusOK},
		{Health, StatusUnhealthy, http.StatusServiceUnavailable},
		{Readiness, StatusDegraded, http.StatusServiceUnavailable},
		{Liveness, StatusHealthy, http.StatusOK},
	}
	for _, tt := range tests {
		c := NewChecker()
		c.Register(tt.probe, "x", fixed(tt.status))

		rec := httptest.NewRecorder()
		c.Handler(tt.probe)(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if rec.Code != tt.want {
			t.Errorf("probe %d with %s: code = %d, want %d", tt.probe, tt.status, rec.Code, tt.want)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		var resp Response
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Status != tt.status {
			t.Errorf("body status = %s", resp.Status)
		}
	}
}

func TestMount(t *testing.T) {
	c := NewChecker()
	c.Register(Readiness, "freshness", fixed(StatusDegraded))
	mux := http.NewServeMux()
	c.Mount(mux)

	for path, want := range map[string]int{
		"/health":       http.StatusOK,
		"/health/ready": http.StatusServiceUnavailable,
		"/health/live":  http.StatusOK,
	} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != want {
			t.Errorf("%s = %d, want %d", path, rec.Code, want)
		}
	}
}

func TestConcurrentRegisterAndRun(t *testing.T) {
	c := NewChecker()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			c.Register(Health, string(rune('a'+i%26)), fixed(StatusHealthy))
		}
	}()
	for i := 0; i < 50; i++ {
		c.Run(context.Background(), Health)
	}
	<-done
	if resp := c.Run(context.Background(), Health); len(resp.Checks) != 26 {
		t.Errorf("got %d checks, want 26", len(resp.Checks))
	}
}
