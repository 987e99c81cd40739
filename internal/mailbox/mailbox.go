// Package mailbox provides a single-slot, overwrite-on-publish value buffer.
//
// A producer publishes as often as it likes without blocking; a consumer
// drains whatever is newest at the moment it looks. Intermediate values that
// were never drained are dropped.
package mailbox

import "sync"

// Latest holds at most one value of T.
type Latest[T any] struct {
	mu        sync.Mutex
	value     T
	full      bool
	published uint64
	dropped   uint64
}

// New returns an empty mailbox.
func New[T any]() *Latest[T] {
	return &Latest[T]{}
}

// Publish stores v, replacing any value not yet drained.
func (m *Latest[T]) Publish(v T) {
	m.mu.Lock()
	if m.full {
		m.dropped++
	}
	m.value = v
	m.full = true
	m.published++
	m.mu.Unlock()
}

// DrainLatest returns the newest value and empties the slot.
// ok is false when nothing was published since the last drain.
func (m *Latest[T]) DrainLatest() (v T, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.full {
		return v, false
	}
	v = m.value
	var zero T
	m.value = zero
	m.full = false
	return v, true
}

// Peek returns the newest value without draining it.
func (m *Latest[T]) Peek() (v T, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value, m.full
}

// Stats returns how many values were published and how many were
// overwritten before being drained.
func (m *Latest[T]) Stats() (published, dropped uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.published, m.dropped
}
