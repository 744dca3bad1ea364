package pubsub

import (
	"context"
	"errors"
	"sync"
)

// ErrShutdown is returned when subscribing to a broker that has shut down
var ErrShutdown = errors.New("pubsub: broker is shut down")

const defaultBufferSize = 100

// Broker provides publish/subscribe for typed, topic-keyed updates.
//
// Delivery is conflating: when a subscriber's buffer is full the oldest
// pending message is dropped so the newest always lands. Each topic retains
// its last message, which is delivered to new subscribers immediately.
// Messages for one topic are delivered in publish order when that topic is
// published from a single goroutine.
type Broker[T any] struct {
	subscribers map[string]map[*Subscription[T]]bool
	retained    map[string]T
	bufferSize  int
	mu          sync.RWMutex
	shutdown    chan struct{}
	shutdownMu  sync.Mutex
	isShutdown  bool
}

// Option configures a Broker
type Option func(*options)

type options struct {
	bufferSize int
}

// WithBufferSize sets the per-subscription buffer. Values below 1 are ignored.
func WithBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}

// Subscription represents a subscription to a topic
type Subscription[T any] struct {
	topic   string
	channel chan T
	broker  *Broker[T]
	ctx     context.Context
	cancel  context.CancelFunc

	// sendMu serializes sends with close so a publish never hits a closed channel
	sendMu  sync.Mutex
	closed  bool
	dropped uint64
}

// NewBroker creates a new Broker instance
func NewBroker[T any](opts ...Option) *Broker[T] {
	o := options{bufferSize: defaultBufferSize}
	for _, opt := range opts {
		opt(&o)
	}
	return &Broker[T]{
		subscribers: make(map[string]map[*Subscription[T]]bool),
		retained:    make(map[string]T),
		bufferSize:  o.bufferSize,
		shutdown:    make(chan struct{}),
	}
}

// Subscribe creates a new subscription to a topic. If the topic has a
// retained message it is already waiting on the channel.
func (b *Broker[T]) Subscribe(ctx context.Context, topic string) (*Subscription[T], error) {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return nil, ErrShutdown
	}
	b.shutdownMu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription[T]{
		topic:   topic,
		channel: make(chan T, b.bufferSize),
		broker:  b,
		ctx:     subCtx,
		cancel:  cancel,
	}

	// Registration and retained delivery happen under the write lock so a
	// concurrent Publish is seen either entirely before or entirely after.
	b.mu.Lock()
	if b.subscribers[topic] == nil {
		b.subscribers[topic] = make(map[*Subscription[T]]bool)
	}
	b.subscribers[topic][sub] = true
	if msg, ok := b.retained[topic]; ok {
		sub.deliver(msg)
	}
	b.mu.Unlock()

	// Monitor context cancellation
	go func() {
		select {
		case <-subCtx.Done():
			sub.Unsubscribe()
		case <-b.shutdown:
			sub.close()
		}
	}()

	return sub, nil
}

// Publish retains message as the topic's latest value and sends it to every
// subscriber of the topic without blocking.
func (b *Broker[T]) Publish(topic string, message T) {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return
	}
	b.shutdownMu.Unlock()

	// Snapshot subscribers under lock; concurrent Unsubscribe may modify the map.
	b.mu.Lock()
	b.retained[topic] = message
	topicSubs := b.subscribers[topic]
	subs := make([]*Subscription[T], 0, len(topicSubs))
	for sub := range topicSubs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(message)
	}
}

// Retained returns the last message published to topic
func (b *Broker[T]) Retained(topic string) (T, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	msg, ok := b.retained[topic]
	return msg, ok
}

// Forget drops the retained message of a topic
func (b *Broker[T]) Forget(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.retained, topic)
}

// SubscriberCount returns the number of subscribers for a topic
func (b *Broker[T]) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[topic])
}

// Shutdown closes all subscriptions and shuts down the Broker
func (b *Broker[T]) Shutdown() {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return
	}
	b.isShutdown = true
	b.shutdownMu.Unlock()

	close(b.shutdown)

	// Close all subscription channels
	b.mu.Lock()
	for topic := range b.subscribers {
		for sub := range b.subscribers[topic] {
			sub.close()
		}
		delete(b.subscribers, topic)
	}
	b.retained = make(map[string]T)
	b.mu.Unlock()
}

// Channel returns the subscription's message channel. It is closed on
// Unsubscribe, context cancellation or broker shutdown.
func (s *Subscription[T]) Channel() <-chan T {
	return s.channel
}

// Topic returns the subscribed topic
func (s *Subscription[T]) Topic() string {
	return s.topic
}

// Dropped returns how many messages were discarded to make room for newer ones
func (s *Subscription[T]) Dropped() uint64 {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.dropped
}

// Unsubscribe removes the subscription
func (s *Subscription[T]) Unsubscribe() {
	s.cancel()

	s.broker.mu.Lock()
	if s.broker.subscribers[s.topic] != nil {
		delete(s.broker.subscribers[s.topic], s)
		if len(s.broker.subscribers[s.topic]) == 0 {
			delete(s.broker.subscribers, s.topic)
		}
	}
	s.broker.mu.Unlock()

	s.close()
}

// deliver sends without blocking, evicting the oldest pending message if needed
func (s *Subscription[T]) deliver(message T) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.closed {
		return
	}
	for {
		select {
		case s.channel <- message:
			return
		default:
		}
		select {
		case <-s.channel:
			s.dropped++
		default:
		}
	}
}

// close closes the subscription channel safely (idempotent)
func (s *Subscription[T]) close() {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.channel)
}
