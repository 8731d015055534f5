package playliststore

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"

	"github.com/yukimura/utabako/internal/domain/playlist"
)

// ExportAll serializes every playlist as a JSON array for download.
func (s *Store) ExportAll() ([]byte, error) {
	pls := s.List()
	data, err := json.MarshalIndent(pls, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode playlists")
	}
	return data, nil
}

// ExportSingle serializes one playlist as a one-element JSON array, so
// a single-playlist file round-trips through Import unchanged.
func (s *Store) ExportSingle(id string) ([]byte, error) {
	p, ok := s.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	data, err := json.MarshalIndent([]playlist.Playlist{p}, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode playlist")
	}
	return data, nil
}

// Import merges a serialized playlist snapshot into the store and
// returns how many records were applied.
//
// The file must be a JSON array of objects each carrying at least a
// non-empty id and name; anything else is rejected with
// ErrInvalidFormat before any state is touched. Records merge by id
// under the sync last-write-wins rule, except that a timestamp tie goes
// to the imported copy (an import is an explicit overwrite request).
func (s *Store) Import(data []byte) (int, error) {
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, errors.WithSecondaryError(ErrInvalidFormat, err)
	}

	// Validate the whole snapshot before applying any of it.
	incoming := make([]playlist.Playlist, 0, len(raw))
	for _, obj := range raw {
		if !hasStringField(obj, "id") || !hasStringField(obj, "name") {
			return 0, errors.Wrap(ErrInvalidFormat, "record missing id or name")
		}
		p, err := decodeRecord(obj)
		if err != nil {
			return 0, errors.WithSecondaryError(ErrInvalidFormat, err)
		}
		incoming = append(incoming, p)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	applied := 0
	for _, p := range incoming {
		p := p
		if local, ok := s.playlists[p.ID]; ok && local.UpdatedAt.After(p.UpdatedAt) {
			// Local copy is strictly newer; the imported record loses.
			continue
		}
		s.playlists[p.ID] = &p
		s.dirty[p.ID] = true
		s.syncStates[p.ID] = playlist.SyncStateUnsynced
		delete(s.pendingDeletes, p.ID)
		if err := s.persistLocked(&p); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

// decodeRecord converts one duck-typed snapshot object into a typed
// playlist, rejecting fields of the wrong shape instead of coercing.
func decodeRecord(obj map[string]any) (playlist.Playlist, error) {
	var p playlist.Playlist
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Result:     &p,
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
	})
	if err != nil {
		return playlist.Playlist{}, err
	}
	if err := dec.Decode(obj); err != nil {
		return playlist.Playlist{}, err
	}
	return p, nil
}

func hasStringField(obj map[string]any, field string) bool {
	v, ok := obj[field]
	if !ok {
		return false
	}
	str, ok := v.(string)
	return ok && strings.TrimSpace(str) != ""
}
