// Package bridge turns the pull-based status tracker into a push stream.
//
// Every handle with at least one observer gets its own poll loop. The loop
// asks the tracker for the run's status, pushes the answer to every current
// observer of that handle, sleeps for the poll interval, and repeats until
// it has pushed a SUCCESS or FAILURE record. Observers are then closed and
// the loop exits. When the last observer of a handle leaves early, its loop
// is cancelled.
//
// Pushes run outside the topic lock, so a stalled observer delays only its
// own handle's loop. Each observer has its own lock held around every push;
// unsubscribing takes it too, so once the function returned by Subscribe has
// returned the observer is never pushed to again.
package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/vk/blockflow/internal/ctxlog"
	"github.com/vk/blockflow/internal/metrics"
	"github.com/vk/blockflow/internal/tracker"
)

// Defaults applied by New.
const (
	DefaultPollInterval = time.Second
	DefaultPushTimeout  = 10 * time.Second
)

// StatusSource answers status queries. *tracker.Tracker implements it.
type StatusSource interface {
	GetStatus(ctx context.Context, handle string) tracker.Status
}

// Observer receives status pushes for one handle. Push must not call back
// into the Bridge. A Push error drops the observer as if it had
// unsubscribed. Close is called once when the stream ends.
type Observer interface {
	Push(ctx context.Context, status tracker.Status) error
	Close()
}

// Bridge fans status records out to observers.
type Bridge struct {
	source      StatusSource
	interval    time.Duration
	pushTimeout time.Duration
	clock       clock.Clock
	metrics     *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	topics map[string]*topic
}

type topic struct {
	handle string
	cancel context.CancelFunc

	mu        sync.Mutex
	observers map[uint64]*subscription
	nextID    uint64
}

// subscription guards one observer. gone is set under mu once the observer
// has been removed; no push starts after that.
type subscription struct {
	obs Observer

	mu   sync.Mutex
	gone bool
}

// push delivers status unless the subscription is gone.
func (s *subscription) push(ctx context.Context, status tracker.Status) (pushed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gone {
		return false, nil
	}
	if err := s.obs.Push(ctx, status); err != nil {
		s.gone = true
		return false, err
	}
	return true, nil
}

// retire marks the subscription gone, waiting for an in-flight push.
func (s *subscription) retire() {
	s.mu.Lock()
	s.gone = true
	s.mu.Unlock()
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithPollInterval sets the delay between two polls of one handle.
func WithPollInterval(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.interval = d
		}
	}
}

// WithPushTimeout bounds a single Push call.
func WithPushTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.pushTimeout = d
		}
	}
}

// WithClock replaces the wall clock, for tests.
func WithClock(c clock.Clock) Option {
	return func(b *Bridge) {
		b.clock = c
	}
}

// WithMetrics enables Prometheus reporting.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bridge) {
		b.metrics = m
	}
}

// New creates a Bridge. Poll loops run until ctx is cancelled or Close is
// called; the logger in ctx is used for all of them.
func New(ctx context.Context, source StatusSource, opts ...Option) *Bridge {
	ctx, cancel := context.WithCancel(ctx)
	b := &Bridge{
		source:      source,
		interval:    DefaultPollInterval,
		pushTimeout: DefaultPushTimeout,
		clock:       clock.New(),
		ctx:         ctx,
		cancel:      cancel,
		topics:      make(map[string]*topic),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe adds obs to the observers of handle, starting a poll loop for the
// handle if none is running. The returned function removes obs; it is safe to
// call more than once and after the stream has ended.
func (b *Bridge) Subscribe(handle string, obs Observer) (unsubscribe func()) {
	b.mu.Lock()
	t, ok := b.topics[handle]
	if !ok {
		ctx, cancel := context.WithCancel(b.ctx)
		t = &topic{handle: handle, cancel: cancel, observers: make(map[uint64]*subscription)}
		b.topics[handle] = t
		b.wg.Add(1)
		go b.poll(ctx, t)
	}
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	sub := &subscription{obs: obs}
	t.observers[id] = sub
	t.mu.Unlock()
	b.mu.Unlock()

	b.metrics.SubscriberAdded()
	ctxlog.FromContext(b.ctx).Debug("Observer subscribed.", "handle", handle, "new_loop", !ok)

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(t, id, sub) })
	}
}

func (b *Bridge) unsubscribe(t *topic, id uint64, sub *subscription) {
	b.mu.Lock()
	t.mu.Lock()
	_, ok := t.observers[id]
	delete(t.observers, id)
	if ok && len(t.observers) == 0 && b.topics[t.handle] == t {
		delete(b.topics, t.handle)
		t.cancel()
	}
	t.mu.Unlock()
	b.mu.Unlock()

	// Only this observer's own in-flight push can delay the return.
	sub.retire()

	if ok {
		b.metrics.SubscriberRemoved()
		ctxlog.FromContext(b.ctx).Debug("Observer unsubscribed.", "handle", t.handle)
	}
}

// Subscribers returns the number of observers currently attached to handle.
func (b *Bridge) Subscribers(handle string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.topics[handle]
	if !ok {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.observers)
}

// Close stops every poll loop, closes the remaining observers and waits for
// the loops to exit.
func (b *Bridge) Close() {
	b.cancel()
	b.wg.Wait()
}

func (b *Bridge) poll(ctx context.Context, t *topic) {
	defer b.wg.Done()
	logger := ctxlog.FromContext(ctx).With("handle", t.handle)
	logger.Debug("Poll loop started.")

	for {
		status := b.source.GetStatus(ctx, t.handle)
		if ctx.Err() != nil {
			break
		}
		if status.Terminal() {
			// Detach first so a subscriber arriving from now on starts a
			// fresh loop instead of joining one that is about to end.
			b.detach(t)
			b.broadcast(ctx, t, status)
			logger.Debug("Poll loop reached a terminal state.", "state", status.State)
			break
		}
		b.broadcast(ctx, t, status)

		timer := b.clock.Timer(b.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
		if ctx.Err() != nil {
			break
		}
	}

	b.detach(t)
	t.mu.Lock()
	remaining := t.observers
	t.observers = nil
	t.mu.Unlock()
	for range remaining {
		b.metrics.SubscriberRemoved()
	}
	for _, sub := range remaining {
		sub.retire()
		sub.obs.Close()
	}
	t.cancel()
	logger.Debug("Poll loop stopped.", "closed_observers", len(remaining))
}

func (b *Bridge) detach(t *topic) {
	b.mu.Lock()
	if b.topics[t.handle] == t {
		delete(b.topics, t.handle)
	}
	b.mu.Unlock()
}

func (b *Bridge) broadcast(ctx context.Context, t *topic, status tracker.Status) {
	t.mu.Lock()
	targets := make(map[uint64]*subscription, len(t.observers))
	for id, sub := range t.observers {
		targets[id] = sub
	}
	t.mu.Unlock()

	var dropped []*subscription
	for id, sub := range targets {
		pctx, cancel := context.WithTimeout(ctx, b.pushTimeout)
		pushed, err := sub.push(pctx, status)
		cancel()
		if err != nil {
			ctxlog.FromContext(ctx).Debug("Dropping observer after failed push.", "handle", t.handle, "error", err)
			t.mu.Lock()
			_, present := t.observers[id]
			delete(t.observers, id)
			t.mu.Unlock()
			if present {
				dropped = append(dropped, sub)
			}
			continue
		}
		if pushed {
			b.metrics.Pushed()
		}
	}

	for _, sub := range dropped {
		b.metrics.SubscriberRemoved()
		sub.obs.Close()
	}
}
