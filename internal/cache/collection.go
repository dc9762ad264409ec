// Package cache holds in-process mirrors of document store collections.
package cache

import (
	"sort"
	"sync"
	"sync/atomic"
)

type snapshot[T any] struct {
	version uint64
	items   []T
	index   map[string]int
}

// Collection mirrors one collection; it changes only through Replace.
type Collection[T any] struct {
	keyFn   func(T) string
	cloneFn func(T) T

	current atomic.Value // snapshot[T]
	ready   atomic.Bool

	// replaceMu orders Replace calls and listener fan-out.
	replaceMu sync.Mutex

	listenersMu sync.Mutex
	listeners   map[uint64]func()
	nextID      uint64
}

// NewCollection constructs an empty collection keyed by keyFn; cloneFn may be nil.
func NewCollection[T any](keyFn func(T) string, cloneFn func(T) T) *Collection[T] {
	c := &Collection[T]{
		keyFn:     keyFn,
		cloneFn:   cloneFn,
		listeners: make(map[uint64]func()),
	}
	c.current.Store(snapshot[T]{index: map[string]int{}})
	return c
}

// Replace installs a new snapshot and notifies subscribers.
func (c *Collection[T]) Replace(items []T) {
	c.replaceMu.Lock()
	defer c.replaceMu.Unlock()

	prev := c.load()
	next := snapshot[T]{
		version: prev.version + 1,
		items:   make([]T, 0, len(items)),
		index:   make(map[string]int, len(items)),
	}
	for _, item := range items {
		key := c.keyFn(item)
		if key == "" {
			continue
		}
		if pos, dup := next.index[key]; dup {
			next.items[pos] = item
			continue
		}
		next.index[key] = len(next.items)
		next.items = append(next.items, item)
	}
	c.current.Store(next)
	c.ready.Store(true)

	for _, fn := range c.listenerFuncs() {
		fn()
	}
}

// Snapshot returns a copy of the current items.
func (c *Collection[T]) Snapshot() []T {
	snap := c.load()
	out := make([]T, len(snap.items))
	for i, item := range snap.items {
		out[i] = c.clone(item)
	}
	return out
}

// Get returns the item stored under key.
func (c *Collection[T]) Get(key string) (T, bool) {
	snap := c.load()
	pos, ok := snap.index[key]
	if !ok {
		var zero T
		return zero, false
	}
	return c.clone(snap.items[pos]), true
}

// Find returns the first item matching fn.
func (c *Collection[T]) Find(fn func(T) bool) (T, bool) {
	for _, item := range c.load().items {
		if fn(item) {
			return c.clone(item), true
		}
	}
	var zero T
	return zero, false
}

// Filter returns copies of the items matching fn.
func (c *Collection[T]) Filter(fn func(T) bool) []T {
	snap := c.load()
	out := make([]T, 0)
	for _, item := range snap.items {
		if fn(item) {
			out = append(out, c.clone(item))
		}
	}
	return out
}

// Len returns the number of cached items.
func (c *Collection[T]) Len() int { return len(c.load().items) }

// Version increases by one on every Replace.
func (c *Collection[T]) Version() uint64 { return c.load().version }

// Ready reports whether at least one snapshot was installed.
func (c *Collection[T]) Ready() bool { return c.ready.Load() }

// Subscribe registers fn to run after every Replace and returns its cancel func.
func (c *Collection[T]) Subscribe(fn func()) func() {
	if fn == nil {
		return func() {}
	}
	c.listenersMu.Lock()
	c.nextID++
	id := c.nextID
	c.listeners[id] = fn
	c.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.listenersMu.Lock()
			delete(c.listeners, id)
			c.listenersMu.Unlock()
		})
	}
}

func (c *Collection[T]) listenerFuncs() []func() {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	ids := make([]uint64, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]func(), 0, len(ids))
	for _, id := range ids {
		out = append(out, c.listeners[id])
	}
	return out
}

func (c *Collection[T]) load() snapshot[T] {
	return c.current.Load().(snapshot[T])
}

func (c *Collection[T]) clone(item T) T {
	if c.cloneFn == nil {
		return item
	}
	return c.cloneFn(item)
}
