package polling

import (
	"context"
	"errors"
	"time"

	"github.com/dd0wney/cluso-depgraph/pkg/depgraph"
	"github.com/dd0wney/cluso-depgraph/pkg/fetch"
	"github.com/dd0wney/cluso-depgraph/pkg/visualization"
)

// SubjectKey identifies one watched partitioned run
type SubjectKey = depgraph.SubjectKey

// Fetcher is the data layer a coordinator polls.
// Errors are classified with the sentinels below.
type Fetcher interface {
	FetchDependencyGraph(ctx context.Context, key SubjectKey) (*depgraph.Graph, error)
	FetchSatisfactionSet(ctx context.Context, key SubjectKey) (depgraph.SatisfactionSet, error)
}

// Error classes the state machine acts on
var (
	ErrNetwork      = fetch.ErrNetwork
	ErrNotFound     = fetch.ErrNotFound
	ErrUnauthorized = fetch.ErrUnauthorized
	ErrInvalidGraph = depgraph.ErrInvalidGraph
)

var (
	// ErrUnknownSubject is returned for a key nobody is subscribed to
	ErrUnknownSubject = errors.New("polling: no view for subject")
	// ErrClosed is returned after Close
	ErrClosed = errors.New("polling: coordinator closed")
)

// State is the lifecycle state of a view
type State int

const (
	Idle State = iota
	Loading
	Ready
	Refreshing
	Error
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Refreshing:
		return "refreshing"
	case Error:
		return "error"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Update is one published view of a subject. Graph is the last good
// highlighted graph and may be set alongside Err. Published values are never
// modified afterwards.
type Update struct {
	Key   SubjectKey
	State State
	Graph *visualization.HighlightedGraph
	Err   error
	Seq   uint64
	At    time.Time
}

// ViewStatus is a point-in-time summary of one view
type ViewStatus struct {
	Key           SubjectKey               `json:"key"`
	State         State                    `json:"state"`
	Direction     visualization.Direction  `json:"direction"`
	Subscribers   int                      `json:"subscribers"`
	LastError     string                   `json:"last_error,omitempty"`
	LastUpdate    time.Time                `json:"last_update"`
	LastSuccess   time.Time                `json:"last_success"`
	Cache         visualization.CacheStats `json:"cache"`
	StaleDiscards uint64                   `json:"stale_discards"`
}

// fetch kinds; also used as metric label values
const (
	kindGraph        = "graph"
	kindSatisfaction = "satisfaction"
)
