package cache

import "sync"

// versioned is the part of Collection a View depends on.
type versioned interface {
	Version() uint64
}

// View memoizes a value derived from a collection until the collection changes.
type View[V any] struct {
	src     versioned
	compute func() V

	mu      sync.Mutex
	valid   bool
	version uint64
	value   V
}

// NewView derives a memoized value from c using compute over its snapshot.
func NewView[T, V any](c *Collection[T], compute func([]T) V) *View[V] {
	return &View[V]{
		src:     c,
		compute: func() V { return compute(c.Snapshot()) },
	}
}

// Get returns the memoized value, recomputing it after a collection change.
func (v *View[V]) Get() V {
	version := v.src.Version()
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.valid && v.version == version {
		return v.value
	}
	v.value = v.compute()
	v.version = version
	v.valid = true
	return v.value
}

// Invalidate forces the next Get to recompute.
func (v *View[V]) Invalidate() {
	v.mu.Lock()
	v.valid = false
	v.mu.Unlock()
}
