package playliststore

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/yukimura/utabako/internal/domain/playlist"
)

// RemoteClient is the cloud playlist collaborator.
type RemoteClient interface {
	// FetchPlaylists returns all cloud playlists for the current user.
	FetchPlaylists(ctx context.Context) ([]playlist.Playlist, error)
	// PushPlaylist uploads one playlist; the server applies the same
	// last-write-wins rule and reports which side it kept.
	PushPlaylist(ctx context.Context, p playlist.Playlist) (PushResult, error)
	// ReplaceAll replaces the whole cloud set with the given playlists.
	ReplaceAll(ctx context.Context, pls []playlist.Playlist) error
	// DeletePlaylist removes one cloud playlist.
	DeletePlaylist(ctx context.Context, id string) error
}

// PushResult is the server's answer to a playlist push.
type PushResult struct {
	Playlist    playlist.Playlist
	Conflict    bool
	KeptVersion string // "local" or "cloud"
}

// SyncResult reports the outcome of a sync for one playlist id so the
// UI can tell the user which side won.
type SyncResult struct {
	PlaylistID  string
	State       playlist.SyncState
	Conflict    bool
	KeptVersion string // "local" or "cloud", empty when nothing diverged
}

// Sync reconciles the local playlist set with the cloud copy.
//
// For each cloud id unknown locally, the playlist is inserted as-is.
// For each id present on both sides, the full version with the greater
// UpdatedAt wins; ties keep the already-applied local copy so nothing
// is redundantly rewritten. Local-only and locally-newer playlists are
// pushed. The merge never mixes reference lists from both sides.
//
// A sync is fire-and-forget relative to local mutation: a mutation made
// while the sync is in flight simply leaves the playlist newer than the
// fetched copy, and the merge rule discards the stale cloud version.
func (s *Store) Sync(ctx context.Context) ([]SyncResult, error) {
	if s.remote == nil {
		return nil, errors.New("no remote collaborator configured")
	}

	s.mu.Lock()
	for id := range s.playlists {
		s.syncStates[id] = playlist.SyncStateSyncing
	}
	pendingDeletes := make([]string, 0, len(s.pendingDeletes))
	for id := range s.pendingDeletes {
		pendingDeletes = append(pendingDeletes, id)
	}
	s.mu.Unlock()

	remote, err := s.remote.FetchPlaylists(ctx)
	if err != nil {
		s.markAllFailed()
		return nil, errors.Wrap(err, "failed to fetch cloud playlists")
	}

	// Propagate local deletes before merging so a deleted playlist is
	// not resurrected by its surviving cloud copy.
	for _, id := range pendingDeletes {
		if err := s.remote.DeletePlaylist(ctx, id); err != nil {
			zlog.Warn().Str("playlist", id).Err(err).Msg("playliststore: cloud delete failed, will retry next sync")
			continue
		}
		s.mu.Lock()
		delete(s.pendingDeletes, id)
		s.mu.Unlock()
	}

	// Skip every id deleted locally, even if the cloud delete above
	// failed: the fetched snapshot predates the delete either way.
	deleted := make(map[string]bool, len(pendingDeletes))
	for _, id := range pendingDeletes {
		deleted[id] = true
	}

	results := s.merge(remote, deleted)

	// Push everything the merge left on the local side.
	results = s.pushDirty(ctx, results)

	return results, nil
}

// merge applies the fetched cloud playlists to local state and returns
// per-playlist outcomes for the pull half of the sync.
func (s *Store) merge(remote []playlist.Playlist, deleted map[string]bool) []SyncResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var results []SyncResult
	for _, rp := range remote {
		rp := rp
		if deleted[rp.ID] || s.pendingDeletes[rp.ID] {
			// Deleted locally; the cloud copy is on its way out.
			continue
		}

		local, ok := s.playlists[rp.ID]
		if !ok {
			// Implicitly created by the merge.
			cp := rp.Clone()
			s.playlists[rp.ID] = &cp
			s.syncStates[rp.ID] = playlist.SyncStateSynced
			if err := s.persistLocked(&cp); err != nil {
				s.syncStates[rp.ID] = playlist.SyncStateUnsynced
			}
			results = append(results, SyncResult{
				PlaylistID:  rp.ID,
				State:       s.syncStates[rp.ID],
				KeptVersion: "cloud",
			})
			continue
		}

		diverged := s.dirty[rp.ID] || !local.UpdatedAt.Equal(rp.UpdatedAt)
		if rp.UpdatedAt.After(local.UpdatedAt) {
			cp := rp.Clone()
			s.playlists[rp.ID] = &cp
			s.dirty[rp.ID] = false
			s.syncStates[rp.ID] = playlist.SyncStateConflictResolved
			if err := s.persistLocked(&cp); err != nil {
				s.syncStates[rp.ID] = playlist.SyncStateUnsynced
			}
			results = append(results, SyncResult{
				PlaylistID:  rp.ID,
				State:       s.syncStates[rp.ID],
				Conflict:    diverged,
				KeptVersion: "cloud",
			})
			continue
		}

		// Local copy is newer or the same; ties keep local.
		if !diverged {
			s.dirty[rp.ID] = false
			s.syncStates[rp.ID] = playlist.SyncStateSynced
			results = append(results, SyncResult{
				PlaylistID: rp.ID,
				State:      playlist.SyncStateSynced,
			})
			continue
		}
		// Diverged with local winning. A clean local copy can still land
		// here when the remote regresses, so force the dirty flag rather
		// than assume a mutation already set it.
		s.dirty[rp.ID] = true
	}

	return results
}

// pushDirty uploads every playlist still flagged dirty and records the
// outcome reported by the server.
func (s *Store) pushDirty(ctx context.Context, results []SyncResult) []SyncResult {
	s.mu.RLock()
	toPush := make([]playlist.Playlist, 0, len(s.dirty))
	for id, d := range s.dirty {
		if !d {
			continue
		}
		if p, ok := s.playlists[id]; ok {
			toPush = append(toPush, p.Clone())
		}
	}
	s.mu.RUnlock()

	for _, p := range toPush {
		res, err := s.remote.PushPlaylist(ctx, p)
		s.mu.Lock()
		current, ok := s.playlists[p.ID]
		if !ok {
			// Deleted while the push was in flight.
			s.mu.Unlock()
			continue
		}
		if err != nil {
			s.syncStates[p.ID] = playlist.SyncStateSyncFailed
			s.mu.Unlock()
			zlog.Warn().Str("playlist", p.ID).Err(err).Msg("playliststore: push failed")
			results = append(results, SyncResult{
				PlaylistID: p.ID,
				State:      playlist.SyncStateSyncFailed,
			})
			continue
		}

		state := playlist.SyncStateSynced
		if res.Conflict {
			state = playlist.SyncStateConflictResolved
		}
		if res.KeptVersion == "cloud" && res.Playlist.UpdatedAt.After(current.UpdatedAt) {
			// Server kept its copy and it is still newer than ours;
			// adopt it. If a local mutation won the race, the cloud
			// result is stale and dropped here.
			cp := res.Playlist.Clone()
			s.playlists[p.ID] = &cp
			s.dirty[p.ID] = false
			s.syncStates[p.ID] = state
			_ = s.persistLocked(&cp)
		} else if current.UpdatedAt.Equal(p.UpdatedAt) {
			// Nothing changed locally since the push; we're in sync.
			s.dirty[p.ID] = false
			s.syncStates[p.ID] = state
		}
		s.mu.Unlock()

		results = append(results, SyncResult{
			PlaylistID:  p.ID,
			State:       state,
			Conflict:    res.Conflict,
			KeptVersion: res.KeptVersion,
		})
	}

	return results
}

// PushAll replaces the entire cloud set with the local one. Used after
// a bulk import, where per-id pushes would be needless chatter.
func (s *Store) PushAll(ctx context.Context) error {
	if s.remote == nil {
		return errors.New("no remote collaborator configured")
	}

	s.mu.Lock()
	pls := s.listLocked()
	s.mu.Unlock()

	if err := s.remote.ReplaceAll(ctx, pls); err != nil {
		s.markAllFailed()
		return errors.Wrap(err, "failed to replace cloud playlists")
	}

	s.mu.Lock()
	for id := range s.playlists {
		s.dirty[id] = false
		s.syncStates[id] = playlist.SyncStateSynced
	}
	s.mu.Unlock()
	return nil
}

func (s *Store) markAllFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.playlists {
		s.syncStates[id] = playlist.SyncStateSyncFailed
	}
}
