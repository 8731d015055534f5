// Package playlist provides the Playlist domain entity.
package playlist

import (
	"time"

	"github.com/yukimura/utabako/internal/domain/performance"
)

// Playlist represents a user-named, ordered, persisted collection of
// performance references. The reference order is user-controlled and
// meaningful; UpdatedAt is monotonically non-decreasing per writer.
type Playlist struct {
	ID         string                  `json:"id"`
	Name       string                  `json:"name"`
	References []performance.Reference `json:"references"`
	CreatedAt  time.Time               `json:"createdAt"`
	UpdatedAt  time.Time               `json:"updatedAt"`
}

// Contains reports whether the playlist already holds a reference to the
// given performance.
func (p *Playlist) Contains(performanceID string) bool {
	for _, ref := range p.References {
		if ref.PerformanceID == performanceID {
			return true
		}
	}
	return false
}

// PerformanceIDs returns all referenced performance IDs in order.
func (p *Playlist) PerformanceIDs() []string {
	ids := make([]string, len(p.References))
	for i, ref := range p.References {
		ids[i] = ref.PerformanceID
	}
	return ids
}

// Clone returns a deep copy of the playlist.
func (p *Playlist) Clone() Playlist {
	cp := *p
	cp.References = make([]performance.Reference, len(p.References))
	copy(cp.References, p.References)
	return cp
}
