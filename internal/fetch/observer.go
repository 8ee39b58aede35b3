package fetch

import "sync"

// Observer is a mounted view bound to one key at a time. Rebinding to another key
// unmounts the old one and mounts the new one, which fetches immediately.
type Observer[K comparable, T any] struct {
	client   *Client[K, T]
	onChange func(K, State[T])

	mu      sync.Mutex
	key     K
	mounted bool
	sub     *Subscription
	gen     uint64
	last    State[T]
}

// NewObserver creates an unmounted observer. onChange may be nil.
func NewObserver[K comparable, T any](client *Client[K, T], onChange func(K, State[T])) *Observer[K, T] {
	return &Observer[K, T]{client: client, onChange: onChange}
}

// SetKey mounts the observer on key. Setting the current key again is a no-op.
func (o *Observer[K, T]) SetKey(key K) {
	o.mu.Lock()
	if o.mounted && o.key == key {
		o.mu.Unlock()
		return
	}
	old := o.sub
	o.gen++
	gen := o.gen
	o.key = key
	o.mounted = true
	o.sub = nil
	o.last = State[T]{}
	o.mu.Unlock()

	if old != nil {
		old.Close()
	}
	sub := o.client.Subscribe(key, func(s State[T]) { o.deliver(gen, key, s) })

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gen != gen {
		// Rebound or closed while subscribing.
		sub.Close()
		return
	}
	o.sub = sub
}

// Key returns the mounted key.
func (o *Observer[K, T]) Key() (K, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.key, o.mounted
}

// State returns the latest state seen for the mounted key.
func (o *Observer[K, T]) State() State[T] {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

// Refetch forces a new request for the mounted key.
func (o *Observer[K, T]) Refetch() {
	key, ok := o.Key()
	if ok {
		o.client.Refetch(key)
	}
}

// Close unmounts the observer: the in-flight request for its key is cancelled and
// the refresh schedule stops once no other observer holds the key.
func (o *Observer[K, T]) Close() {
	o.mu.Lock()
	sub := o.sub
	o.sub = nil
	o.gen++
	o.mounted = false
	o.mu.Unlock()
	if sub != nil {
		sub.Close()
	}
}

func (o *Observer[K, T]) deliver(gen uint64, key K, s State[T]) {
	o.mu.Lock()
	if gen != o.gen || s.Version < o.last.Version {
		o.mu.Unlock()
		return
	}
	o.last = s
	fn := o.onChange
	o.mu.Unlock()
	if fn != nil {
		fn(key, s)
	}
}
