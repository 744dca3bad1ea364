package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status represents the health status of a component
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// severity orders statuses so the worst one wins
func (s Status) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Check is the result of one named probe
type Check struct {
	Name        string         `json:"name"`
	Status      Status         `json:"status"`
	Message     string         `json:"message,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	LastChecked time.Time      `json:"last_checked"`
	DurationMS  float64        `json:"duration_ms"`
}

// CheckFunc performs a probe. It must return promptly once ctx is done.
type CheckFunc func(ctx context.Context) Check

// Probe selects which endpoint a check belongs to
type Probe int

const (
	// Health checks are reported on /health
	Health Probe = iota
	// Readiness checks gate /health/ready
	Readiness
	// Liveness checks gate /health/live
	Liveness
)

// Response is the aggregated result of one probe
type Response struct {
	Status        Status           `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`
	Checks        map[string]Check `json:"checks"`
	UptimeSeconds float64          `json:"uptime_seconds"`
}

// Checker runs named checks per probe
type Checker struct {
	mu      sync.RWMutex
	checks  map[Probe]map[string]CheckFunc
	timeout time.Duration
	started time.Time
	now     func() time.Time
}

// Option configures a Checker
type Option func(*Checker)

// WithTimeout bounds each individual check. Defaults to 2s.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithClock sets the time source used for timestamps and uptime
func WithClock(now func() time.Time) Option {
	return func(c *Checker) {
		c.now = now
	}
}

// NewChecker creates a checker with no registered checks
func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		checks:  make(map[Probe]map[string]CheckFunc),
		timeout: 2 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.started = c.now()
	return c
}

// Register adds or replaces the named check of a probe
func (c *Checker) Register(probe Probe, name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.checks[probe] == nil {
		c.checks[probe] = make(map[string]CheckFunc)
	}
	c.checks[probe][name] = check
}

// Run executes every check of a probe concurrently, each under its own
// timeout, and aggregates them worst-status-wins. A probe without checks is
// healthy.
func (c *Checker) Run(ctx context.Context, probe Probe) Response {
	c.mu.RLock()
	funcs := make(map[string]CheckFunc, len(c.checks[probe]))
	for name, fn := range c.checks[probe] {
		funcs[name] = fn
	}
	c.mu.RUnlock()

	now := c.now()
	resp := Response{
		Status:        StatusHealthy,
		Timestamp:     now,
		Checks:        make(map[string]Check, len(funcs)),
		UptimeSeconds: now.Sub(c.started).Round(time.Second).Seconds(),
	}

	var mu sync.Mutex
	var g errgroup.Group
	for name, fn := range funcs {
		g.Go(func() error {
			check := c.runOne(ctx, name, fn)
			mu.Lock()
			resp.Checks[name] = check
			if check.Status.severity() > resp.Status.severity() {
				resp.Status = check.Status
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return resp
}

func (c *Checker) runOne(ctx context.Context, name string, fn CheckFunc) Check {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	check := fn(ctx)
	check.DurationMS = float64(time.Since(start).Microseconds()) / 1000
	check.LastChecked = c.now()
	if check.Name == "" {
		check.Name = name
	}
	if check.Status == "" {
		check.Status = StatusUnhealthy
		check.Message = "check reported no status"
	}
	return check
}
