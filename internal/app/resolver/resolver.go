// Package resolver provides the catalog reference resolver.
package resolver

import (
	"sync"

	"github.com/yukimura/utabako/internal/domain/performance"
)

// Resolver answers whether a performance still exists in the most
// recently loaded catalog snapshot. It holds no state beyond that
// snapshot; catalog edits become visible on the next Rebuild, not
// instantly.
type Resolver struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// New creates a resolver with an empty snapshot.
func New() *Resolver {
	return &Resolver{ids: make(map[string]struct{})}
}

// Rebuild replaces the snapshot with the given catalog performances.
func (r *Resolver) Rebuild(perfs []performance.Performance) {
	ids := make(map[string]struct{}, len(perfs))
	for _, p := range perfs {
		ids[p.ID] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = ids
}

// Exists reports whether the performance is present in the current
// snapshot.
func (r *Resolver) Exists(performanceID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.ids[performanceID]
	return ok
}

// Size returns the number of performances in the current snapshot.
func (r *Resolver) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ids)
}
