// Package player provides the "now playing" state machine.
package player

// State represents the player state. Advancing between tracks is a
// transient computation inside the engine, never a visible state.
type State int

const (
	StateIdle    State = iota // No current track
	StatePlaying              // Track is playing
	StatePaused               // Track is paused
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// RepeatMode defines the repeat behavior at end of queue and track.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatAll             // Refill the queue from history when it runs out
	RepeatOne             // Restart the current track on natural end
)

// String returns the string representation of the repeat mode.
func (m RepeatMode) String() string {
	switch m {
	case RepeatOff:
		return "off"
	case RepeatAll:
		return "all"
	case RepeatOne:
		return "one"
	default:
		return "unknown"
	}
}
