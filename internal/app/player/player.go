package player

import (
	"math/rand"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/yukimura/utabako/internal/app/queue"
	"github.com/yukimura/utabako/internal/domain/performance"
)

// previousThreshold is how much of the current track may have elapsed
// before "previous" restarts it instead of going back through history.
// A quick mis-tap below the threshold doesn't lose the current song.
const previousThreshold = 3 * time.Second

// Resolver reports whether a performance still exists in the current
// catalog snapshot.
type Resolver interface {
	Exists(performanceID string) bool
}

// Engine owns the "now playing" state: current track, playback
// position, shuffle/repeat mode, history, and the set of references
// known to be unplayable. It consumes candidates from the queue at
// transition time, skipping entries the resolver no longer confirms.
// The engine never writes back to playlists.
type Engine struct {
	mu sync.Mutex

	queue    *queue.Manager
	resolver Resolver

	current    *performance.Reference
	history    []performance.Reference
	state      State
	shuffle    bool
	repeat     RepeatMode
	unplayable map[string]bool

	startedAt     time.Time
	pausedAt      *time.Time
	pausedElapsed time.Duration

	rng *rand.Rand
	now func() time.Time

	eventCh chan Event
}

// NewEngine creates an idle engine consuming from q.
func NewEngine(q *queue.Manager, r Resolver) *Engine {
	return &Engine{
		queue:      q,
		resolver:   r,
		state:      StateIdle,
		unplayable: make(map[string]bool),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		now:        time.Now,
		eventCh:    make(chan Event, 16),
	}
}

// Events returns the event channel.
func (e *Engine) Events() <-chan Event {
	return e.eventCh
}

// State returns the current player state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Current returns the current track, if any.
func (e *Engine) Current() (performance.Reference, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return performance.Reference{}, false
	}
	return *e.current, true
}

// History returns a copy of the playback history, oldest first.
func (e *Engine) History() []performance.Reference {
	e.mu.Lock()
	defer e.mu.Unlock()

	result := make([]performance.Reference, len(e.history))
	copy(result, e.history)
	return result
}

// ShuffleOn returns whether shuffle is active.
func (e *Engine) ShuffleOn() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shuffle
}

// SetShuffle toggles shuffle. With shuffle on, each advance draws a
// uniformly random entry from the remaining queue, so the effective
// order is a fresh permutation from the moment of the toggle.
func (e *Engine) SetShuffle(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shuffle = on
}

// Repeat returns the current repeat mode.
func (e *Engine) Repeat() RepeatMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.repeat
}

// SetRepeat sets the repeat mode.
func (e *Engine) SetRepeat(m RepeatMode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.repeat = m
}

// Elapsed returns how much of the current track has played.
func (e *Engine) Elapsed() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.elapsedLocked()
}

func (e *Engine) elapsedLocked() time.Duration {
	if e.current == nil {
		return 0
	}
	elapsed := e.now().Sub(e.startedAt) - e.pausedElapsed
	if e.pausedAt != nil {
		elapsed -= e.now().Sub(*e.pausedAt)
	}
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// PlayAll replaces the queue with the playlist's references and starts
// on the first playable one. Unplayable leading entries are skipped
// silently: the skip notification is reserved for in-session skips,
// not initial load. With nothing playable the engine stays idle and
// takes no action.
func (e *Engine) PlayAll(refs []performance.Reference) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, ref := range refs {
		if !e.playableLocked(ref) {
			continue
		}
		e.queue.LoadBulk(refs[i+1:], true)
		e.setCurrentLocked(ref, true, 0)
		return
	}

	zlog.Debug().Int("count", len(refs)).Msg("player: play all found nothing playable")
}

// Next is an explicit skip to the next playable queue entry.
func (e *Engine) Next() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.advanceLocked()
}

// OnTrackEnd handles the embed widget's natural end-of-track signal.
func (e *Engine) OnTrackEnd() {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Repeat-one restarts on natural end only, and never restarts a
	// track that has since failed to play.
	if e.repeat == RepeatOne && e.current != nil && e.playableLocked(*e.current) {
		e.restartLocked()
		return
	}
	e.advanceLocked()
}

// Previous goes back through history when the current track has barely
// started; after the threshold (or with no history) it restarts the
// current track at offset 0.
func (e *Engine) Previous() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.elapsedLocked() < previousThreshold && len(e.history) > 0 {
		// Walk history newest-first for a still-playable entry.
		for i := len(e.history) - 1; i >= 0; i-- {
			ref := e.history[i]
			if !e.playableLocked(ref) {
				continue
			}
			e.history = e.history[:i]
			// The just-left track goes to the queue front, not the bin.
			if e.current != nil {
				e.queue.PushFront(*e.current)
			}
			e.setCurrentLocked(ref, false, 0)
			return
		}
		// Entire history is unplayable; fall through to a restart.
		e.history = e.history[:0]
	}

	if e.current != nil {
		e.restartLocked()
	}
}

// MarkUnplayable records a failure signal from the embed widget
// (video removed, private, restricted, or catalog entry gone). If the
// failed reference is the current track, the engine advances
// immediately as if the track had ended.
func (e *Engine) MarkUnplayable(performanceID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.unplayable[performanceID] = true
	zlog.Debug().Str("performance", performanceID).Msg("player: marked unplayable")

	if e.current != nil && e.current.PerformanceID == performanceID {
		e.advanceLocked()
	}
}

// Pause pauses playback.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StatePlaying {
		return
	}
	now := e.now()
	e.pausedAt = &now
	e.state = StatePaused
	e.sendEventLocked(Event{Type: EventStateChanged, Track: e.current, State: e.state})
}

// Resume resumes paused playback.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StatePaused {
		return
	}
	if e.pausedAt != nil {
		e.pausedElapsed += e.now().Sub(*e.pausedAt)
		e.pausedAt = nil
	}
	e.state = StatePlaying
	e.sendEventLocked(Event{Type: EventStateChanged, Track: e.current, State: e.state})
}

// Stop clears the current track and returns to idle. History, modes
// and the unplayable set survive a stop.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.toIdleLocked()
}

// Close releases the event channel.
func (e *Engine) Close() {
	close(e.eventCh)
}

// advanceLocked implements the forward-advance algorithm: pop
// candidates (front, or a random remaining entry under shuffle) until
// one passes the resolver and the unplayable set, discarding and
// counting the rest. When the queue runs dry under repeat-all, the
// history refills it oldest-first and the scan retries once.
func (e *Engine) advanceLocked() {
	skipped := 0
	retried := false

	for {
		ref, ok := e.popCandidateLocked()
		if !ok {
			if e.repeat == RepeatAll && !retried && len(e.history) > 0 {
				e.queue.LoadBulk(e.history, false)
				e.history = e.history[:0]
				retried = true
				continue
			}
			break
		}
		if !e.playableLocked(ref) {
			skipped++
			continue
		}
		e.setCurrentLocked(ref, true, skipped)
		return
	}

	// Nothing playable remains. The UI just hides the active player;
	// it is told nothing about the discarded entries.
	e.toIdleLocked()
}

func (e *Engine) popCandidateLocked() (performance.Reference, bool) {
	if e.shuffle {
		if n := e.queue.Len(); n > 0 {
			return e.queue.DequeueAt(e.rng.Intn(n))
		}
		return performance.Reference{}, false
	}
	return e.queue.DequeueNext()
}

// setCurrentLocked makes ref current and reports how many unplayable
// candidates were skipped on the way (zero for silent transitions).
// With pushHistory the previous current track lands on the history
// stack; "previous" passes false because it re-queues instead.
func (e *Engine) setCurrentLocked(ref performance.Reference, pushHistory bool, skipped int) {
	if pushHistory && e.current != nil {
		e.history = append(e.history, *e.current)
	}
	e.current = &ref
	e.state = StatePlaying
	e.startedAt = e.now()
	e.pausedAt = nil
	e.pausedElapsed = 0

	if skipped > 0 {
		e.sendEventLocked(Event{Type: EventSkippedUnplayable, State: e.state, SkippedCount: skipped})
	}
	e.sendEventLocked(Event{Type: EventTrackStarted, Track: e.current, State: e.state})
}

// restartLocked restarts the current track at offset 0 without touching
// history or the queue.
func (e *Engine) restartLocked() {
	e.state = StatePlaying
	e.startedAt = e.now()
	e.pausedAt = nil
	e.pausedElapsed = 0
	e.sendEventLocked(Event{Type: EventTrackStarted, Track: e.current, State: e.state})
}

func (e *Engine) toIdleLocked() {
	e.current = nil
	e.state = StateIdle
	e.pausedAt = nil
	e.pausedElapsed = 0
	e.sendEventLocked(Event{Type: EventIdle, State: e.state})
}

func (e *Engine) playableLocked(ref performance.Reference) bool {
	return !e.unplayable[ref.PerformanceID] && e.resolver.Exists(ref.PerformanceID)
}

// sendEventLocked sends an event without blocking.
func (e *Engine) sendEventLocked(ev Event) {
	select {
	case e.eventCh <- ev:
	default:
		// Channel full, drop the event.
	}
}
