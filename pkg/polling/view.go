package polling

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-depgraph/pkg/depgraph"
	"github.com/dd0wney/cluso-depgraph/pkg/logging"
	"github.com/dd0wney/cluso-depgraph/pkg/metrics"
	"github.com/dd0wney/cluso-depgraph/pkg/visualization"
)

type fetchResult struct {
	kind    string
	seq     uint64
	setSeq  uint64 // satisfaction sequence a graph fetch was issued under
	graph   *depgraph.Graph
	set     depgraph.SatisfactionSet
	err     error
	elapsed time.Duration
}

// view polls one subject key. All fields below the channels are owned by the
// run goroutine; commands from the coordinator are funcs executed there.
type view struct {
	key    SubjectKey
	topic  string
	coord  *Coordinator
	logger logging.Logger
	cache  *visualization.LayoutCache

	ctx      context.Context
	cancel   context.CancelFunc
	cmds     chan func()
	results  chan fetchResult
	done     chan struct{}
	stopOnce sync.Once

	refs int // guarded by coord.mu

	state       State
	dir         visualization.Direction
	expanded    visualization.ExpandedGroups
	graph       *depgraph.Graph
	satisfied   depgraph.SatisfactionSet
	positioned  *visualization.PositionedGraph
	highlighted *visualization.HighlightedGraph
	shown       depgraph.SatisfactionSet // satisfaction behind highlighted
	lastErr     error
	seq         map[string]uint64
	inflight    map[string]context.CancelFunc
	pubSeq      uint64
	halted      bool

	mu   sync.Mutex
	snap ViewStatus
}

func newView(c *Coordinator, key SubjectKey, dir visualization.Direction, expanded visualization.ExpandedGroups) *view {
	ctx, cancel := context.WithCancel(context.Background())

	var cacheOpts []visualization.CacheOption
	if c.metrics != nil {
		cacheOpts = append(cacheOpts, visualization.WithMetrics(c.metrics))
	}

	return &view{
		key: key,
		// Each view gets its own topic so a replacement view for the same key
		// never sees a retained update from its predecessor.
		topic:    key.String() + "#" + uuid.NewString(),
		coord:    c,
		logger:   c.logger.With(logging.Subject(key)),
		cache:    visualization.NewLayoutCache(c.layout, cacheOpts...),
		ctx:      ctx,
		cancel:   cancel,
		cmds:     make(chan func()),
		results:  make(chan fetchResult, 4),
		done:     make(chan struct{}),
		dir:      dir,
		expanded: expanded,
		seq:      make(map[string]uint64, 2),
		inflight: make(map[string]context.CancelFunc, 2),
		snap:     ViewStatus{Key: key, State: Idle, Direction: dir},
	}
}

func (v *view) run() {
	defer close(v.done)
	defer v.cancelInflight()

	v.setState(Loading)
	v.issue(kindGraph)

	ticker := time.NewTicker(v.coord.interval)
	defer ticker.Stop()

	var graphTick <-chan time.Time
	if v.coord.graphInterval > 0 {
		graphTicker := time.NewTicker(v.coord.graphInterval)
		defer graphTicker.Stop()
		graphTick = graphTicker.C
	}

	for {
		select {
		case <-v.ctx.Done():
			return
		case cmd := <-v.cmds:
			cmd()
		case r := <-v.results:
			v.apply(r)
		case <-ticker.C:
			v.tick(kindSatisfaction)
		case <-graphTick:
			v.tick(kindGraph)
		}
	}
}

// send runs cmd on the view goroutine. It is dropped once the view stopped.
func (v *view) send(cmd func()) {
	select {
	case v.cmds <- cmd:
	case <-v.done:
	}
}

// stop cancels the view and waits for its goroutine to exit
func (v *view) stop() {
	v.stopOnce.Do(func() {
		v.cancel()
		<-v.done
		v.setState(Terminated)
	})
}

func (v *view) tick(kind string) {
	if v.halted {
		return
	}
	if v.graph == nil {
		kind = kindGraph
	}
	// A graph fetch carries the satisfaction set too.
	if v.inflight[kind] != nil || v.inflight[kindGraph] != nil {
		v.logger.Debug("refresh skipped, fetch in flight", logging.FetchKind(kind))
		return
	}
	v.issue(kind)
}

func (v *view) invalidate(structural bool) {
	if v.halted {
		v.logger.Debug("invalidation ignored, view is terminated")
		return
	}
	kind := kindSatisfaction
	if structural || v.graph == nil {
		kind = kindGraph
	}
	v.issue(kind)
}

// issue starts a fetch of kind, superseding any fetch of that kind in flight
func (v *view) issue(kind string) {
	v.seq[kind]++
	seq := v.seq[kind]
	v.abort(kind)

	var setSeq uint64
	if kind == kindGraph {
		v.seq[kindSatisfaction]++
		setSeq = v.seq[kindSatisfaction]
		v.abort(kindSatisfaction)
	}

	ctx, cancel := context.WithCancel(v.ctx)
	v.inflight[kind] = cancel

	if v.state == Ready {
		v.setState(Refreshing)
	}
	v.logger.Debug("fetch issued", logging.FetchKind(kind), logging.Seq(seq))

	go v.fetch(ctx, kind, seq, setSeq)
}

func (v *view) abort(kind string) {
	if cancel := v.inflight[kind]; cancel != nil {
		cancel()
		v.inflight[kind] = nil
	}
}

func (v *view) cancelInflight() {
	for kind := range v.inflight {
		v.abort(kind)
	}
}

// fetch runs off the view goroutine and hands its result back
func (v *view) fetch(ctx context.Context, kind string, seq, setSeq uint64) {
	f := v.coord.fetcher
	r := fetchResult{kind: kind, seq: seq, setSeq: setSeq}
	start := time.Now()

	if kind == kindGraph {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			graph, err := f.FetchDependencyGraph(gctx, v.key)
			r.graph = graph
			return err
		})
		g.Go(func() error {
			set, err := f.FetchSatisfactionSet(gctx, v.key)
			r.set = set
			return err
		})
		r.err = g.Wait()
	} else {
		r.set, r.err = f.FetchSatisfactionSet(ctx, v.key)
	}
	r.elapsed = time.Since(start)

	select {
	case v.results <- r:
	case <-v.ctx.Done():
	}
}

func (v *view) apply(r fetchResult) {
	// A terminated view only drains results aborted by the halt.
	if v.halted || r.seq != v.seq[r.kind] {
		v.discard(r)
		return
	}
	v.abort(r.kind)

	if m := v.coord.metrics; m != nil {
		status := metrics.StatusSuccess
		if r.err != nil {
			status = metrics.StatusError
		}
		m.RecordFetch(r.kind, status, r.elapsed)
	}

	if r.err != nil {
		v.fail(r.err)
		return
	}

	graph := v.graph
	switch r.kind {
	case kindGraph:
		graph = r.graph
		if r.setSeq == v.seq[kindSatisfaction] {
			v.satisfied = r.set
		}
	case kindSatisfaction:
		v.satisfied = r.set
	}
	if graph == nil {
		return
	}

	v.rebuild(graph, Ready, true)
}

// rebuild lays out g, reconciles the satisfaction set and publishes the
// result in state next. g only replaces the held graph once it has been laid
// out, so an invalid graph never displaces the last good one. With reuse set,
// a refresh that changed nothing republishes the held highlighted graph.
func (v *view) rebuild(g *depgraph.Graph, next State, reuse bool) {
	pg, err := v.cache.GetOrCompute(g, v.dir, v.expanded)
	if err != nil {
		v.fail(err)
		return
	}
	v.graph = g

	now := time.Now()
	if next == Ready {
		v.lastErr = nil
	}
	if !reuse || v.highlighted == nil || pg != v.positioned || !v.shown.Equal(v.satisfied) {
		v.positioned = pg
		v.highlighted = visualization.Reconcile(pg, v.satisfied)
		v.shown = v.satisfied
	}
	v.setState(next)
	if next == Ready {
		v.markSuccess(now)
	}
	v.publish(v.lastErr)
}

// setParams applies new view parameters. The held graph is laid out again
// without refetching; before the first graph arrives they are only stored.
func (v *view) setParams(dir visualization.Direction, expanded visualization.ExpandedGroups) {
	if dir == v.dir && sameGroups(expanded, v.expanded) {
		return
	}
	v.dir, v.expanded = dir, expanded

	v.mu.Lock()
	v.snap.Direction = dir
	v.mu.Unlock()

	v.logger.Debug("view parameters changed",
		logging.Direction(dir),
		logging.Count(expanded.Len()),
	)

	if v.graph == nil {
		return
	}
	next := v.state
	if next == Refreshing {
		next = Ready
	}
	v.rebuild(v.graph, next, false)
}

func (v *view) fail(err error) {
	v.lastErr = err

	if errors.Is(err, ErrNotFound) {
		v.halted = true
		v.cancelInflight()
		v.setState(Terminated)
		v.logger.Warn("subject not found, polling stopped", logging.Error(err))
		v.publish(err)
		return
	}

	v.setState(Error)
	v.logger.Warn("refresh failed",
		logging.Error(err),
		logging.Bool("has_graph", v.highlighted != nil),
	)
	v.publish(err)
}

func (v *view) discard(r fetchResult) {
	v.mu.Lock()
	v.snap.StaleDiscards++
	v.mu.Unlock()

	if m := v.coord.metrics; m != nil {
		m.RecordStaleDiscard(r.kind)
	}
	v.logger.Debug("stale result discarded",
		logging.FetchKind(r.kind),
		logging.Seq(r.seq),
		logging.Uint64("current_seq", v.seq[r.kind]),
	)
}

func (v *view) publish(err error) {
	if v.ctx.Err() != nil {
		return
	}
	v.pubSeq++
	u := Update{
		Key:   v.key,
		State: v.state,
		Graph: v.highlighted,
		Err:   err,
		Seq:   v.pubSeq,
		At:    time.Now(),
	}
	v.coord.broker.Publish(v.topic, u)

	v.mu.Lock()
	v.snap.LastUpdate = u.At
	v.mu.Unlock()

	if m := v.coord.metrics; m != nil {
		m.RecordUpdate(u.State.String())
	}
	v.logger.Debug("update published", logging.State(u.State), logging.Seq(u.Seq))
}

func (v *view) setState(s State) {
	v.state = s
	v.mu.Lock()
	v.snap.State = s
	if v.lastErr != nil {
		v.snap.LastError = v.lastErr.Error()
	} else {
		v.snap.LastError = ""
	}
	v.mu.Unlock()
}

func (v *view) markSuccess(at time.Time) {
	v.mu.Lock()
	v.snap.LastSuccess = at
	v.mu.Unlock()
}

func (v *view) status() ViewStatus {
	v.mu.Lock()
	st := v.snap
	v.mu.Unlock()
	st.Cache = v.cache.Stats()
	st.Subscribers = v.coord.broker.SubscriberCount(v.topic)
	return st
}

func sameGroups(a, b visualization.ExpandedGroups) bool {
	if a.Len() != b.Len() {
		return false
	}
	for _, id := range a.IDs() {
		if !b.Contains(id) {
			return false
		}
	}
	return true
}
