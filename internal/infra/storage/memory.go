package storage

import (
	"strings"
	"sync"
)

// Memory is an in-memory KV implementation. A non-zero capacity limits
// the total stored bytes so quota exhaustion can be exercised in tests.
type Memory struct {
	mu       sync.RWMutex
	data     map[string][]byte
	capacity int // total value bytes, 0 = unlimited
}

// NewMemory creates an unbounded in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// NewMemoryWithCapacity creates an in-memory store limited to capacity
// total value bytes.
func NewMemoryWithCapacity(capacity int) *Memory {
	return &Memory{data: make(map[string][]byte), capacity: capacity}
}

// Get returns the value stored under key.
func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

// Set stores value under key.
func (m *Memory) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.capacity > 0 {
		total := len(value)
		for k, v := range m.data {
			if k == key {
				continue
			}
			total += len(v)
		}
		if total > m.capacity {
			return ErrFull
		}
	}

	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[key] = cp
	return nil
}

// Remove deletes the key.
func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

// Keys returns all keys with the given prefix.
func (m *Memory) Keys(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}
