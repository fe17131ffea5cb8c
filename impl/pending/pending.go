// Package pending is the in-flight request registry. It maps a key to the waiters for
// that key so that any number of concurrent requests for one key share one producer.
// The first Add for a key creates the entry and tells the caller to start the
// producer. Later Adds only append a waiter. Complete removes the entry and then
// delivers the one outcome to every waiter that is still attached.
package pending

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/aceeric/imgcache/impl/bitmap"
	"github.com/aceeric/imgcache/impl/metrics"

	log "github.com/sirupsen/logrus"
)

// Sink receives the outcome for a waiter
type Sink func(bitmap.Info, error)

// Waiter is one party waiting on a key. The registry holds the Waiter, the Waiter
// holds the Sink, and the Sink is the only path back to the caller's result.
type Waiter struct {
	key      string
	sink     Sink
	detached atomic.Bool
}

// Key returns the key the waiter waits on
func (w *Waiter) Key() string {
	return w.key
}

// deliver calls the sink unless the waiter detached
func (w *Waiter) deliver(info bitmap.Info, err error) bool {
	if w.detached.Load() {
		return false
	}
	w.sink(info, err)
	return true
}

type entry struct {
	waiters []*Waiter
	started time.Time
}

type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New returns an empty registry
func New() *Registry {
	return &Registry{entries: map[string]*entry{}}
}

// Contains is true if there is an in-flight producer for the key
func (r *Registry) Contains(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.entries[key]
	return exists
}

// Add adds a waiter for the key. The bool return is true if this call created the
// entry, in which case the caller must start exactly one producer for the key, which
// must eventually call Complete.
func (r *Registry) Add(key string, sink Sink) (*Waiter, bool) {
	w := &Waiter{key: key, sink: sink}
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, exists := r.entries[key]; exists {
		e.waiters = append(e.waiters, w)
		metrics.IncDedupJoins()
		return w, false
	}
	r.entries[key] = &entry{waiters: []*Waiter{w}, started: time.Now()}
	metrics.DeltaPendingKeys(1)
	return w, true
}

// Complete removes the entry for the key and delivers the passed outcome to each
// waiter that has not detached. Returns the number of waiters notified. Delivery
// happens after the entry is removed so a sink that issues a new request for the
// same key starts a new producer rather than joining a finished one.
func (r *Registry) Complete(key string, info bitmap.Info, err error) int {
	r.mu.Lock()
	e, exists := r.entries[key]
	if exists {
		delete(r.entries, key)
		metrics.DeltaPendingKeys(-1)
	}
	r.mu.Unlock()
	if !exists {
		return 0
	}
	log.Debugf("completing key %s after %s for %d waiter(s)", shortKey(key), time.Since(e.started), len(e.waiters))
	cnt := 0
	for _, w := range e.waiters {
		if w.deliver(info, err) {
			cnt++
		}
	}
	return cnt
}

// Detach removes the waiter from its key. The producer is unaffected, and other
// waiters still receive the outcome. Detaching twice, or after completion, is a no-op.
func (r *Registry) Detach(w *Waiter) {
	if w == nil {
		return
	}
	w.detached.Store(true)
	r.mu.Lock()
	defer r.mu.Unlock()
	e, exists := r.entries[w.key]
	if !exists {
		return
	}
	for i, other := range e.waiters {
		if other == w {
			e.waiters = append(e.waiters[:i], e.waiters[i+1:]...)
			return
		}
	}
}

// AbandonIfIdle removes the entry for the key if no waiter is attached, and returns
// true if it did. A producer calls it at a cancellation checkpoint. Once it returns
// true the producer's later Complete is a no-op and a new Add for the key starts a
// new producer. If it returns false a waiter is attached and the producer continues.
func (r *Registry) AbandonIfIdle(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, exists := r.entries[key]
	if !exists || len(e.waiters) != 0 {
		return false
	}
	delete(r.entries, key)
	metrics.DeltaPendingKeys(-1)
	return true
}

// Waiting returns the number of attached waiters for the key
func (r *Registry) Waiting(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, exists := r.entries[key]; exists {
		return len(e.waiters)
	}
	return 0
}

// Len returns the number of keys with an in-flight producer
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Keys returns the keys with an in-flight producer
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	return keys
}

func shortKey(key string) string {
	if len(key) > 10 {
		return key[:10]
	}
	return key
}
