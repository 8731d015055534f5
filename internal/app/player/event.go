package player

import "github.com/yukimura/utabako/internal/domain/performance"

// EventType represents a player event type.
type EventType int

const (
	EventTrackStarted      EventType = iota // A track became current (or restarted at offset 0)
	EventStateChanged                       // Pause/resume/stop
	EventSkippedUnplayable                  // One or more unplayable entries were skipped over
	EventIdle                               // Nothing playable remains; UI hides the active player
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackStarted:
		return "track_started"
	case EventStateChanged:
		return "state_changed"
	case EventSkippedUnplayable:
		return "skipped_unplayable"
	case EventIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// Event represents a player event.
type Event struct {
	Type         EventType
	Track        *performance.Reference // Current track (nil for some events)
	State        State                  // Player state after the event
	SkippedCount int                    // For EventSkippedUnplayable
}
