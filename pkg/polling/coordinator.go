package polling

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-depgraph/pkg/health"
	"github.com/dd0wney/cluso-depgraph/pkg/logging"
	"github.com/dd0wney/cluso-depgraph/pkg/metrics"
	"github.com/dd0wney/cluso-depgraph/pkg/pubsub"
	"github.com/dd0wney/cluso-depgraph/pkg/visualization"
)

// Default refresh cadence
const (
	DefaultInterval      = 5 * time.Second
	DefaultGraphInterval = time.Minute
)

// Coordinator keeps one polling view per subject key and fans its updates
// out to subscribers.
type Coordinator struct {
	fetcher       Fetcher
	layout        visualization.Layout
	logger        logging.Logger
	metrics       *metrics.Registry
	interval      time.Duration
	graphInterval time.Duration
	bufferSize    int

	broker *pubsub.Broker[Update]

	mu     sync.Mutex
	views  map[SubjectKey]*view
	closed bool
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithLogger sets the logger
func WithLogger(l logging.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

// WithMetrics records fetches, updates and layout cache activity
func WithMetrics(r *metrics.Registry) Option {
	return func(c *Coordinator) {
		c.metrics = r
	}
}

// WithInterval sets the satisfaction refresh interval
func WithInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithGraphInterval sets the graph refresh interval. Zero refetches the graph
// only on structural invalidation.
func WithGraphInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d >= 0 {
			c.graphInterval = d
		}
	}
}

// WithLayout replaces the layout engine
func WithLayout(l visualization.Layout) Option {
	return func(c *Coordinator) {
		c.layout = l
	}
}

// WithBufferSize sets how many updates a slow subscriber may lag behind
// before older ones are dropped
func WithBufferSize(n int) Option {
	return func(c *Coordinator) {
		c.bufferSize = n
	}
}

// NewCoordinator creates a coordinator polling fetcher
func NewCoordinator(fetcher Fetcher, opts ...Option) *Coordinator {
	c := &Coordinator{
		fetcher:       fetcher,
		logger:        logging.NewNopLogger(),
		interval:      DefaultInterval,
		graphInterval: DefaultGraphInterval,
		bufferSize:    16,
		views:         make(map[SubjectKey]*view),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.layout == nil {
		c.layout = visualization.NewLayeredLayout(nil)
	}
	c.logger = c.logger.With(logging.Component("polling"))
	c.broker = pubsub.NewBroker[Update](pubsub.WithBufferSize(c.bufferSize))
	return c
}

// Subscription is one consumer of a view
type Subscription struct {
	id    string
	key   SubjectKey
	coord *Coordinator
	view  *view
	sub   *pubsub.Subscription[Update]

	closed    atomic.Bool
	once      sync.Once
	done      chan struct{}
	delivered chan struct{}
}

// ID returns the subscription id
func (s *Subscription) ID() string {
	return s.id
}

// Key returns the subscribed subject
func (s *Subscription) Key() SubjectKey {
	return s.key
}

// Subscribe starts watching key and calls onUpdate for every published
// update, one at a time, from a goroutine owned by the subscription.
//
// Subscribing to a key that is already watched shares its view; the given
// direction and expanded groups replace the view's current ones. A view that
// already has an update delivers it immediately.
func (c *Coordinator) Subscribe(ctx context.Context, key SubjectKey, dir visualization.Direction,
	expanded visualization.ExpandedGroups, onUpdate func(Update)) (*Subscription, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	v, exists := c.views[key]
	if !exists {
		v = newView(c, key, dir, expanded)
		c.views[key] = v
		go v.run()
	}
	v.refs++
	active := len(c.views)
	c.mu.Unlock()

	sub, err := c.broker.Subscribe(ctx, v.topic)
	if err != nil {
		c.release(v)
		return nil, ErrClosed
	}

	s := &Subscription{
		id:        uuid.NewString(),
		key:       key,
		coord:     c,
		view:      v,
		sub:       sub,
		done:      make(chan struct{}),
		delivered: make(chan struct{}),
	}
	go s.deliver(onUpdate)

	if exists {
		v.send(func() { v.setParams(dir, expanded) })
	}
	if c.metrics != nil {
		c.metrics.AddSubscriptions(1)
		if !exists {
			c.metrics.SetActiveViews(active)
		}
	}

	c.logger.Debug("subscribed",
		logging.Subject(key),
		logging.String("subscription_id", s.id),
		logging.Bool("new_view", !exists),
	)

	// Cancelling ctx ends this subscription like Unsubscribe.
	go func() {
		select {
		case <-ctx.Done():
		case <-s.done:
			return
		case <-s.delivered:
		}
		if ctx.Err() != nil {
			s.Unsubscribe()
		}
	}()

	return s, nil
}

func (s *Subscription) deliver(onUpdate func(Update)) {
	defer close(s.delivered)
	for u := range s.sub.Channel() {
		if s.closed.Load() {
			return
		}
		if onUpdate != nil {
			onUpdate(u)
		}
	}
}

// Unsubscribe stops callbacks. The last subscription of a key terminates its
// view and cancels any fetch in flight. Safe to call more than once and from
// inside the callback.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.done)
		s.sub.Unsubscribe()
		if m := s.coord.metrics; m != nil {
			m.AddSubscriptions(-1)
		}
		s.coord.release(s.view)
	})
}

// release drops one reference to v and stops it when none are left
func (c *Coordinator) release(v *view) {
	c.mu.Lock()
	v.refs--
	if v.refs > 0 {
		c.mu.Unlock()
		return
	}
	if c.views[v.key] == v {
		delete(c.views, v.key)
	}
	active := len(c.views)
	c.mu.Unlock()

	v.stop()
	c.broker.Forget(v.topic)
	if c.metrics != nil {
		c.metrics.SetActiveViews(active)
	}
	c.logger.Debug("view terminated", logging.Subject(v.key))
}

func (c *Coordinator) lookup(key SubjectKey) (*view, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	v, ok := c.views[key]
	if !ok {
		return nil, ErrUnknownSubject
	}
	return v, nil
}

// SetExpandedGroups changes which groups of key's view are expanded and
// recomputes its layout from the graph already held
func (c *Coordinator) SetExpandedGroups(key SubjectKey, expanded visualization.ExpandedGroups) error {
	v, err := c.lookup(key)
	if err != nil {
		return err
	}
	v.send(func() { v.setParams(v.dir, expanded) })
	return nil
}

// SetDirection changes the layout direction of key's view
func (c *Coordinator) SetDirection(key SubjectKey, dir visualization.Direction) error {
	v, err := c.lookup(key)
	if err != nil {
		return err
	}
	v.send(func() { v.setParams(dir, v.expanded) })
	return nil
}

// Invalidate refreshes key's view now, superseding any fetch of the same
// kind in flight. Structural invalidation refetches the graph as well.
func (c *Coordinator) Invalidate(key SubjectKey, structural bool) error {
	v, err := c.lookup(key)
	if err != nil {
		return err
	}
	v.send(func() { v.invalidate(structural) })
	return nil
}

// State returns the current state of key's view
func (c *Coordinator) State(key SubjectKey) (State, bool) {
	v, err := c.lookup(key)
	if err != nil {
		return Idle, false
	}
	return v.status().State, true
}

// Views returns the status of every view, ordered by key
func (c *Coordinator) Views() []ViewStatus {
	c.mu.Lock()
	views := make([]*view, 0, len(c.views))
	for _, v := range c.views {
		views = append(views, v)
	}
	c.mu.Unlock()

	out := make([]ViewStatus, 0, len(views))
	for _, v := range views {
		out = append(out, v.status())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key.String() < out[j].Key.String()
	})
	return out
}

// ViewCounts summarizes views for the health checker
func (c *Coordinator) ViewCounts() health.ViewCounts {
	var counts health.ViewCounts
	for _, st := range c.Views() {
		counts.Total++
		switch st.State {
		case Error:
			counts.Errored++
		case Terminated:
			counts.Terminated++
		}
	}
	return counts
}

// LastSuccess returns the newest successful update time across views
func (c *Coordinator) LastSuccess() time.Time {
	var last time.Time
	for _, st := range c.Views() {
		if st.LastSuccess.After(last) {
			last = st.LastSuccess
		}
	}
	return last
}

// Close terminates every view and subscription. Subsequent calls return
// ErrClosed from every method that takes a key.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	views := make([]*view, 0, len(c.views))
	for k, v := range c.views {
		views = append(views, v)
		delete(c.views, k)
	}
	c.mu.Unlock()

	for _, v := range views {
		v.stop()
	}
	c.broker.Shutdown()
	if c.metrics != nil {
		c.metrics.SetActiveViews(0)
	}
	c.logger.Info("coordinator closed", logging.Count(len(views)))
}
