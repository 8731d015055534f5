// Package queue provides the ephemeral in-session play queue.
package queue

import (
	"sync"

	"github.com/yukimura/utabako/internal/domain/performance"
)

// Manager owns the live play queue: the ordered list of upcoming
// performances, consumed front-to-back. The queue is process-local and
// never persisted; it is distinct from any playlist, although playlist
// contents can be bulk-loaded into it.
//
// The queue never filters for playability. That check belongs to the
// player, which consults the resolver at consumption time, so an entry
// added while valid can still be found invalid later.
type Manager struct {
	mu      sync.Mutex
	entries []performance.Reference
}

// NewManager creates an empty queue.
func NewManager() *Manager {
	return &Manager{entries: make([]performance.Reference, 0)}
}

// Enqueue appends a reference to the end of the queue. Duplicates are
// permitted: the same performance may be queued twice.
func (m *Manager) Enqueue(ref performance.Reference) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, ref)
}

// EnqueueAll appends multiple references to the end of the queue.
func (m *Manager) EnqueueAll(refs []performance.Reference) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, refs...)
}

// PushFront inserts a reference at the front of the queue. Used when
// "previous" re-queues the track being left.
func (m *Manager) PushFront(ref performance.Reference) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append([]performance.Reference{ref}, m.entries...)
}

// DequeueNext removes and returns the front entry.
func (m *Manager) DequeueNext() (performance.Reference, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.entries) == 0 {
		return performance.Reference{}, false
	}
	ref := m.entries[0]
	m.entries = m.entries[1:]
	return ref, true
}

// DequeueAt removes and returns the entry at index. Used by shuffle,
// which consumes from a random position instead of the front.
func (m *Manager) DequeueAt(index int) (performance.Reference, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if index < 0 || index >= len(m.entries) {
		return performance.Reference{}, false
	}
	ref := m.entries[index]
	m.entries = append(m.entries[:index], m.entries[index+1:]...)
	return ref, true
}

// RemoveAt removes the entry at index. Out-of-range indices are a no-op.
func (m *Manager) RemoveAt(index int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if index < 0 || index >= len(m.entries) {
		return
	}
	m.entries = append(m.entries[:index], m.entries[index+1:]...)
}

// Reorder moves the entry at fromIndex to toIndex with stable move
// semantics: the entry is removed first, then reinserted at toIndex in
// the already-shortened sequence. Out-of-range indices are clamped,
// never an error.
func (m *Manager) Reorder(fromIndex, toIndex int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = performance.MoveReference(m.entries, fromIndex, toIndex)
}

// Clear removes all entries.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = m.entries[:0]
}

// LoadBulk appends refs to the queue. With replace=true any existing
// queue is discarded first ("play all" on a playlist).
func (m *Manager) LoadBulk(refs []performance.Reference, replace bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if replace {
		m.entries = m.entries[:0]
	}
	m.entries = append(m.entries, refs...)
}

// Len returns the number of queued entries.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// References returns a copy of the queued entries in order.
func (m *Manager) References() []performance.Reference {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]performance.Reference, len(m.entries))
	copy(result, m.entries)
	return result
}
