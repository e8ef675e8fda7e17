// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present log-bouncer contributors.

// Package watch provides a single-slot, coalescing value broadcast: the Go
// analogue of Rust's tokio::sync::watch channel. A single writer publishes
// successive values; any number of readers can observe "the latest value",
// but a reader that is not actively waiting will miss intermediate values
// that were superseded before it looked.
package watch

import "sync"

// Value holds the latest published value of type T along with a version
// counter, so readers can distinguish "nothing new since I last looked" from
// "a new value arrived".
type Value[T any] struct {
	mu      sync.Mutex
	cond    *sync.Cond
	value   T
	version uint64
	closed  bool
}

// NewValue constructs a Value seeded with the given initial value.
func NewValue[T any](initial T) *Value[T] {
	v := &Value[T]{value: initial}
	v.cond = sync.NewCond(&v.mu)
	return v
}

// Set publishes a new value, overwriting any value not yet observed.
func (v *Value[T]) Set(newValue T) {
	v.mu.Lock()
	v.value = newValue
	v.version++
	v.mu.Unlock()
	v.cond.Broadcast()
}

// Get returns the latest published value without blocking.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value
}

// Changed blocks until the version differs from lastSeen, then returns the
// current value and version. If the Value has been closed and no new value
// arrived, ok is false.
func (v *Value[T]) Changed(lastSeen uint64) (value T, version uint64, ok bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for v.version == lastSeen && !v.closed {
		v.cond.Wait()
	}
	if v.version == lastSeen && v.closed {
		return v.value, v.version, false
	}
	return v.value, v.version, true
}

// Close unblocks any goroutine waiting in Changed. Subsequent Set calls after
// Close are still observed by callers of Get, but Changed will no longer
// block once the last published version has been observed.
func (v *Value[T]) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
	v.cond.Broadcast()
}
