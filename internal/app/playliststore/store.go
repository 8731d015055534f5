// Package playliststore owns the persisted playlist set: local cache,
// cloud mirror, and conflict resolution between the two.
package playliststore

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/yukimura/utabako/internal/domain/performance"
	"github.com/yukimura/utabako/internal/domain/playlist"
	"github.com/yukimura/utabako/internal/infra/storage"
)

// Errors
var (
	ErrEmptyName       = errors.New("playlist name is empty")
	ErrNotFound        = errors.New("playlist not found")
	ErrDuplicate       = errors.New("performance already in playlist")
	ErrPersistenceFull = errors.New("local persistence is full")
	ErrInvalidFormat   = errors.New("invalid playlist snapshot format")
)

const keyPrefix = "playlist:"

// Store is the exclusive owner of the persisted playlist set. All
// mutations are applied to the in-memory copy synchronously and are
// visible to the next read; the cloud mirror trails behind and never
// blocks a local mutation.
type Store struct {
	mu sync.RWMutex

	kv     storage.KV
	remote RemoteClient

	playlists      map[string]*playlist.Playlist
	dirty          map[string]bool // local changes not yet pushed
	syncStates     map[string]playlist.SyncState
	pendingDeletes map[string]bool // deleted locally, cloud copy not yet removed

	now   func() time.Time
	newID func() string
}

// New creates a store backed by kv and mirrored through remote, loading
// any previously persisted playlists.
func New(kv storage.KV, remote RemoteClient) (*Store, error) {
	s := &Store{
		kv:             kv,
		remote:         remote,
		playlists:      make(map[string]*playlist.Playlist),
		dirty:          make(map[string]bool),
		syncStates:     make(map[string]playlist.SyncState),
		pendingDeletes: make(map[string]bool),
		now:            time.Now,
		newID:          func() string { return uuid.New().String() },
	}

	keys, err := kv.Keys(keyPrefix)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list persisted playlists")
	}
	for _, key := range keys {
		data, err := kv.Get(key)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", key)
		}
		var p playlist.Playlist
		if err := json.Unmarshal(data, &p); err != nil {
			// A corrupt record shouldn't take the whole set down.
			zlog.Warn().Str("key", key).Err(err).Msg("playliststore: skipping corrupt record")
			continue
		}
		s.playlists[p.ID] = &p
		// Loaded playlists may predate the cloud copy or postdate it;
		// flagging them dirty lets the next sync settle the question.
		// A playlist created while the cloud was unreachable would
		// otherwise never be pushed after a restart.
		s.dirty[p.ID] = true
		s.syncStates[p.ID] = playlist.SyncStateUnsynced
	}

	return s, nil
}

// Create creates a new playlist with the given name. Blank and
// whitespace-only names are rejected with ErrEmptyName.
//
// On ErrPersistenceFull the playlist is still created in memory and
// flagged unsynced; the caller surfaces a retry affordance.
func (s *Store) Create(name string) (playlist.Playlist, error) {
	if strings.TrimSpace(name) == "" {
		return playlist.Playlist{}, ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	p := &playlist.Playlist{
		ID:         s.newID(),
		Name:       name,
		References: make([]performance.Reference, 0),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.playlists[p.ID] = p
	s.dirty[p.ID] = true
	s.syncStates[p.ID] = playlist.SyncStateUnsynced

	return p.Clone(), s.persistLocked(p)
}

// Rename changes the playlist name.
func (s *Store) Rename(id, name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.playlists[id]
	if !ok {
		return ErrNotFound
	}

	p.Name = name
	s.touchLocked(p)
	return s.persistLocked(p)
}

// Delete removes the playlist. Deleting a missing id is a no-op so
// racing deletes stay quiet. The cloud copy is removed on next sync.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.playlists[id]; !ok {
		return nil
	}

	delete(s.playlists, id)
	delete(s.dirty, id)
	delete(s.syncStates, id)
	s.pendingDeletes[id] = true

	if err := s.kv.Remove(keyPrefix + id); err != nil {
		return errors.WithSecondaryError(ErrPersistenceFull, err)
	}
	return nil
}

// AddReference appends a reference to the playlist. A reference to a
// performance already present in that playlist is rejected with
// ErrDuplicate; the same performance in different playlists is fine.
func (s *Store) AddReference(id string, ref performance.Reference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.playlists[id]
	if !ok {
		return ErrNotFound
	}
	if p.Contains(ref.PerformanceID) {
		return ErrDuplicate
	}

	p.References = append(p.References, ref)
	s.touchLocked(p)
	return s.persistLocked(p)
}

// RemoveReference removes the reference to performanceID from the
// playlist. Missing playlist or reference is a no-op.
func (s *Store) RemoveReference(id, performanceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.playlists[id]
	if !ok {
		return nil
	}

	for i, ref := range p.References {
		if ref.PerformanceID == performanceID {
			p.References = append(p.References[:i], p.References[i+1:]...)
			s.touchLocked(p)
			return s.persistLocked(p)
		}
	}
	return nil
}

// Reorder moves the reference at fromIndex to toIndex with clamped
// move semantics. A missing playlist is a no-op.
func (s *Store) Reorder(id string, fromIndex, toIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.playlists[id]
	if !ok {
		return nil
	}

	p.References = performance.MoveReference(p.References, fromIndex, toIndex)
	s.touchLocked(p)
	return s.persistLocked(p)
}

// Get returns a copy of the playlist.
func (s *Store) Get(id string) (playlist.Playlist, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.playlists[id]
	if !ok {
		return playlist.Playlist{}, false
	}
	return p.Clone(), true
}

// List returns copies of all playlists ordered by creation time.
func (s *Store) List() []playlist.Playlist {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked()
}

func (s *Store) listLocked() []playlist.Playlist {
	result := make([]playlist.Playlist, 0, len(s.playlists))
	for _, p := range s.playlists {
		result = append(result, p.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// SyncStateOf returns the sync state of the playlist.
func (s *Store) SyncStateOf(id string) playlist.SyncState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.syncStates[id]
}

// touchLocked bumps UpdatedAt, keeping it monotonically non-decreasing
// even if the wall clock steps backwards.
func (s *Store) touchLocked(p *playlist.Playlist) {
	now := s.now()
	if now.After(p.UpdatedAt) {
		p.UpdatedAt = now
	} else {
		p.UpdatedAt = p.UpdatedAt.Add(time.Millisecond)
	}
	s.dirty[p.ID] = true
	s.syncStates[p.ID] = playlist.SyncStateUnsynced
}

// persistLocked writes the playlist through the KV layer. Any write
// failure is reported as ErrPersistenceFull: the in-memory copy keeps
// the change and stays flagged for a later push.
func (s *Store) persistLocked(p *playlist.Playlist) error {
	data, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "failed to encode playlist")
	}
	if err := s.kv.Set(keyPrefix+p.ID, data); err != nil {
		zlog.Warn().Str("playlist", p.ID).Err(err).Msg("playliststore: persist failed, keeping in-memory copy")
		// ErrPersistenceFull heads the chain so callers can match it
		// with plain errors.Is; the storage error rides along.
		return errors.WithSecondaryError(ErrPersistenceFull, err)
	}
	return nil
}
