// Package fetch is the keyed polling layer between the price/news sources and the
// dashboard. Each key owns one query: it is fetched when first observed, refreshed
// on an interval while observed, retried with backoff on failure and cancelled
// when its last observer goes away. Of overlapping requests for one key, the most
// recently initiated always decides what is shown.
package fetch

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Func loads the data for one key. It should honour ctx cancellation.
type Func[K comparable, T any] func(ctx context.Context, key K) (T, error)

// Options configures a Client.
type Options struct {
	Interval  time.Duration // refresh period while observed, 0 disables
	Retry     int           // extra attempts after the first failure
	RetryBase time.Duration // first backoff delay
	RetryMax  time.Duration // backoff cap
	Timeout   time.Duration // per attempt, 0 means none
	CacheTTL  time.Duration // unobserved entries older than this are dropped, 0 keeps them
}

// Client holds the cache entries for one kind of data.
type Client[K comparable, T any] struct {
	name  string
	fn    Func[K, T]
	opts  Options
	sched *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	entries map[K]*entry[T]
	gcID    cron.EntryID
	closed  bool
}

type entry[T any] struct {
	state    State[T]
	seq      uint64 // sequence of the latest initiated request
	cancel   context.CancelFunc
	subs     map[int]func(State[T])
	nextSub  int
	timer    cron.EntryID
	hasTimer bool
	lastUsed time.Time
}

// NewClient creates a Client. Refresh schedules and cache GC run on sched; a nil
// sched disables both.
func NewClient[K comparable, T any](name string, fn Func[K, T], opts Options, sched *cron.Cron) *Client[K, T] {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client[K, T]{
		name:    name,
		fn:      fn,
		opts:    opts,
		sched:   sched,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[K]*entry[T]),
	}
	if sched != nil && opts.CacheTTL > 0 {
		c.gcID = sched.Schedule(cron.Every(opts.CacheTTL), cron.FuncJob(func() { c.GC() }))
	}
	return c
}

// Name is the label used in logs.
func (c *Client[K, T]) Name() string { return c.name }

// Get returns the current state of key without mounting it.
func (c *Client[K, T]) Get(key K) State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.state
	}
	return State[T]{}
}

// Subscription is one mounted observer of a key.
type Subscription struct {
	once  sync.Once
	close func()
}

// Close unmounts the observer. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(s.close)
}

// Subscribe mounts fn on key. fn receives the current state immediately and every
// later change. The first observer of a key starts its refresh schedule. Every
// mount starts a fetch unless one is already in flight; cached data stays shown
// while it runs.
func (c *Client[K, T]) Subscribe(key K, fn func(State[T])) *Subscription {
	c.mu.Lock()
	e := c.entryLocked(key)
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn

	if len(e.subs) == 1 && c.sched != nil && c.opts.Interval > 0 && !c.closed {
		e.timer = c.sched.Schedule(cron.Every(c.opts.Interval), cron.FuncJob(func() { c.Refetch(key) }))
		e.hasTimer = true
	}

	var (
		snap State[T]
		subs []func(State[T])
	)
	needFetch := e.cancel == nil
	if needFetch && !c.closed {
		snap, subs = c.startLocked(key, e)
	} else {
		snap, subs = e.state, []func(State[T]){fn}
	}
	c.mu.Unlock()
	deliver(subs, snap)

	return &Subscription{close: func() { c.unsubscribe(key, id) }}
}

// Refetch starts a new request for key, superseding any request in flight.
func (c *Client[K, T]) Refetch(key K) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	snap, subs := c.startLocked(key, c.entryLocked(key))
	c.mu.Unlock()
	deliver(subs, snap)
}

// GC drops unobserved, idle entries older than CacheTTL and returns how many went.
func (c *Client[K, T]) GC() int {
	if c.opts.CacheTTL <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if len(e.subs) == 0 && e.cancel == nil && time.Since(e.lastUsed) > c.opts.CacheTTL {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Close cancels every request and removes all schedules.
func (c *Client[K, T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	for _, e := range c.entries {
		if e.hasTimer {
			c.sched.Remove(e.timer)
			e.hasTimer = false
		}
		if e.cancel != nil {
			e.cancel()
			e.cancel = nil
		}
		e.seq++
	}
	if c.sched != nil && c.gcID != 0 {
		c.sched.Remove(c.gcID)
	}
}

func (c *Client[K, T]) entryLocked(key K) *entry[T] {
	e, ok := c.entries[key]
	if !ok {
		e = &entry[T]{subs: make(map[int]func(State[T])), lastUsed: time.Now()}
		c.entries[key] = e
	}
	return e
}

// startLocked initiates a request for key and returns the state to publish.
func (c *Client[K, T]) startLocked(key K, e *entry[T]) (State[T], []func(State[T])) {
	if e.cancel != nil {
		e.cancel()
	}
	e.seq++
	ctx, cancel := context.WithCancel(c.ctx)
	e.cancel = cancel

	if e.state.HasData {
		e.state.Refreshing = true
	} else {
		e.state.Status = StatusLoading
	}
	e.state.Version++

	go c.run(ctx, key, e.seq)
	return e.state, subscribers(e)
}

func (c *Client[K, T]) run(ctx context.Context, key K, seq uint64) {
	data, attempts, err := c.load(ctx, key)

	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || e.seq != seq {
		// Superseded by a newer request or unmounted.
		c.mu.Unlock()
		return
	}
	e.cancel()
	e.cancel = nil
	e.state.Refreshing = false
	e.state.Attempts = attempts
	if err != nil {
		e.state.Status = StatusError
		e.state.Err = err
	} else {
		e.state.Status = StatusSuccess
		e.state.Data = data
		e.state.HasData = true
		e.state.Err = nil
		e.state.UpdatedAt = time.Now()
	}
	e.state.Version++
	snap, subs := e.state, subscribers(e)
	c.mu.Unlock()

	deliver(subs, snap)
}

// load runs up to Retry+1 attempts with exponential backoff in between.
func (c *Client[K, T]) load(ctx context.Context, key K) (T, int, error) {
	var zero T
	var lastErr error
	attempts := 0
	for i := 0; i <= c.opts.Retry; i++ {
		if i > 0 {
			wait := Backoff(c.opts.RetryBase, c.opts.RetryMax, i-1)
			log.Printf("[WARN] %s fetch %v failed (attempt %d/%d): %v, retrying in %v",
				c.name, key, i, c.opts.Retry+1, lastErr, wait)
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return zero, attempts, ctx.Err()
			case <-t.C:
			}
		}
		attempts++
		data, err := c.attempt(ctx, key)
		if err == nil {
			return data, attempts, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return zero, attempts, ctx.Err()
		}
	}
	log.Printf("[ERROR] %s fetch %v: all %d attempts failed: %v", c.name, key, attempts, lastErr)
	return zero, attempts, fmt.Errorf("%s: all %d attempts failed: %w", c.name, attempts, lastErr)
}

// attempt bounds a single call by Timeout, even if fn ignores its context.
func (c *Client[K, T]) attempt(ctx context.Context, key K) (T, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	type result struct {
		data T
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		data, err := c.fn(ctx, key)
		ch <- result{data, err}
	}()

	select {
	case r := <-ch:
		return r.data, r.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("request aborted: %w", ctx.Err())
	}
}

func (c *Client[K, T]) unsubscribe(key K, id int) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(e.subs, id)
	if len(e.subs) > 0 {
		c.mu.Unlock()
		return
	}

	e.lastUsed = time.Now()
	if e.hasTimer {
		c.sched.Remove(e.timer)
		e.hasTimer = false
	}
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
		e.seq++ // whatever is in flight now lands on a stale sequence
		e.state.Refreshing = false
		if !e.state.HasData {
			e.state.Status = StatusIdle
		}
		e.state.Version++
	}
	c.mu.Unlock()
}

func subscribers[T any](e *entry[T]) []func(State[T]) {
	subs := make([]func(State[T]), 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	return subs
}

func deliver[T any](subs []func(State[T]), s State[T]) {
	for _, fn := range subs {
		fn(s)
	}
}
