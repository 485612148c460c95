// Package audit keeps a bounded in-memory log of security events.
package audit

import "sync"

// RingBuffer holds at most capacity items; pushing into a full buffer evicts the oldest.
type RingBuffer[T any] struct {
	mu    sync.RWMutex
	items []T
	start int
	size  int
}

func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer[T]{items: make([]T, capacity)}
}

// Push appends an item and reports whether an older one was evicted.
func (r *RingBuffer[T]) Push(item T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	capacity := len(r.items)
	if r.size < capacity {
		r.items[(r.start+r.size)%capacity] = item
		r.size++
		return false
	}
	r.items[r.start] = item
	r.start = (r.start + 1) % capacity
	return true
}

// Snapshot returns the buffered items oldest first.
func (r *RingBuffer[T]) Snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.items[(r.start+i)%len(r.items)]
	}
	return out
}

func (r *RingBuffer[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

func (r *RingBuffer[T]) Cap() int {
	return len(r.items)
}
