package health

import (
	"context"
	"time"
)

// UpstreamCheck reports the data API unhealthy when ping fails
func UpstreamCheck(ping func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) Check {
		if err := ping(ctx); err != nil {
			return Check{Name: "upstream", Status: StatusUnhealthy, Message: err.Error()}
		}
		return Check{Name: "upstream", Status: StatusHealthy, Message: "reachable"}
	}
}

// ViewCounts summarizes the polled views by state
type ViewCounts struct {
	Total      int
	Errored    int
	Terminated int
}

// ViewsCheck is degraded while some active views are in Error and unhealthy
// when all of them are. Terminated views (subject not found) are counted but
// never make the check unhealthy.
func ViewsCheck(counts func() ViewCounts) CheckFunc {
	return func(ctx context.Context) Check {
		vc := counts()
		active := vc.Total - vc.Terminated
		check := Check{
			Name: "views",
			Details: map[string]any{
				"total":      vc.Total,
				"errored":    vc.Errored,
				"terminated": vc.Terminated,
			},
		}

		switch {
		case active == 0:
			check.Status, check.Message = StatusHealthy, "no active views"
		case vc.Errored >= active:
			check.Status, check.Message = StatusUnhealthy, "all views failing"
		case vc.Errored > 0:
			check.Status, check.Message = StatusDegraded, "some views failing"
		default:
			check.Status, check.Message = StatusHealthy, "views healthy"
		}
		return check
	}
}

// StalenessCheck degrades when the newest successful fetch is older than
// maxAge, or when nothing has been fetched yet
func StalenessCheck(last func() time.Time, maxAge time.Duration, now func() time.Time) CheckFunc {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context) Check {
		check := Check{Name: "freshness"}
		t := last()
		if t.IsZero() {
			check.Status, check.Message = StatusDegraded, "no successful fetch yet"
			return check
		}

		age := now().Sub(t)
		check.Details = map[string]any{"age_seconds": age.Seconds()}
		if age > maxAge {
			check.Status, check.Message = StatusDegraded, "updates are stale"
		} else {
			check.Status, check.Message = StatusHealthy, "updates are fresh"
		}
		return check
	}
}

// MemoryCheck degrades when allocated heap exceeds 90% of memory obtained
// from the OS
func MemoryCheck(usage func() (alloc, sys uint64)) CheckFunc {
	return func(ctx context.Context) Check {
		alloc, sys := usage()
		check := Check{
			Name:    "memory",
			Status:  StatusHealthy,
			Message: "memory usage normal",
			Details: map[string]any{"alloc_bytes": alloc, "sys_bytes": sys},
		}
		if sys > 0 && float64(alloc)/float64(sys) > 0.9 {
			check.Status, check.Message = StatusDegraded, "high memory usage"
		}
		return check
	}
}
