package playliststore

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yukimura/utabako/internal/domain/playlist"
	"github.com/yukimura/utabako/internal/infra/storage"
)

func TestExportImportRoundTrip(t *testing.T) {
	s := newTestStore(t)
	p, err := s.Create("favorites")
	require.NoError(t, err)
	require.NoError(t, s.AddReference(p.ID, ref("perf1")))
	require.NoError(t, s.AddReference(p.ID, ref("perf2")))

	data, err := s.ExportAll()
	require.NoError(t, err)

	// Import into a fresh store.
	s2, err := New(storage.NewMemory(), nil)
	require.NoError(t, err)
	count, err := s2.Import(data)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, ok := s2.Get(p.ID)
	require.True(t, ok)
	assert.Equal(t, "favorites", got.Name)
	assert.Equal(t, []string{"perf1", "perf2"}, got.PerformanceIDs())
}

func TestExportSingle(t *testing.T) {
	s := newTestStore(t)
	p, err := s.Create("solo")
	require.NoError(t, err)

	data, err := s.ExportSingle(p.ID)
	require.NoError(t, err)

	var arr []playlist.Playlist
	require.NoError(t, json.Unmarshal(data, &arr))
	require.Len(t, arr, 1)
	assert.Equal(t, p.ID, arr[0].ID)

	_, err = s.ExportSingle("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestImportRejectsInvalidFormat(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		name string
		data string
	}{
		{"not json", "not json at all"},
		{"top-level object", `{"id":"x","name":"y"}`},
		{"array of scalars", `[1, 2, 3]`},
		{"record missing name", `[{"id":"x"}]`},
		{"record missing id", `[{"name":"y"}]`},
		{"blank id", `[{"id":"  ","name":"y"}]`},
		{"id of wrong type", `[{"id":42,"name":"y"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, err := s.Import([]byte(tt.data))
			assert.ErrorIs(t, err, ErrInvalidFormat)
			assert.Zero(t, count)
		})
	}

	// Nothing was applied by the rejected imports.
	assert.Empty(t, s.List())
}

func TestImportValidatesWholeFileBeforeApplying(t *testing.T) {
	s := newTestStore(t)

	// Second record is malformed; the valid first record must not land.
	data := `[{"id":"ok","name":"fine"},{"id":"bad"}]`
	count, err := s.Import([]byte(data))
	assert.ErrorIs(t, err, ErrInvalidFormat)
	assert.Zero(t, count)
	_, ok := s.Get("ok")
	assert.False(t, ok)
}

func TestImportOverwritesByID(t *testing.T) {
	s := newTestStore(t)
	p, err := s.Create("original")
	require.NoError(t, err)

	// Imported copy carries a newer timestamp and wins.
	newer := time.Now().Add(time.Hour).UTC().Format(time.RFC3339Nano)
	data := `[{"id":"` + p.ID + `","name":"imported","references":[],"createdAt":"` + newer + `","updatedAt":"` + newer + `"}]`
	count, err := s.Import([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, _ := s.Get(p.ID)
	assert.Equal(t, "imported", got.Name)
}

func TestImportKeepsStrictlyNewerLocal(t *testing.T) {
	s := newTestStore(t)
	p, err := s.Create("local")
	require.NoError(t, err)

	older := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339Nano)
	data := `[{"id":"` + p.ID + `","name":"stale import","updatedAt":"` + older + `"}]`
	count, err := s.Import([]byte(data))
	require.NoError(t, err)
	assert.Zero(t, count)

	got, _ := s.Get(p.ID)
	assert.Equal(t, "local", got.Name)
}

func TestImportNewPlaylistCounts(t *testing.T) {
	s := newTestStore(t)

	data := `[
		{"id":"imp1","name":"一","references":[{"performanceId":"a","songTitle":"A","videoId":"v1","startOffsetSeconds":10}]},
		{"id":"imp2","name":"二","references":[]}
	]`
	count, err := s.Import([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got, ok := s.Get("imp1")
	require.True(t, ok)
	require.Len(t, got.References, 1)
	assert.Equal(t, "a", got.References[0].PerformanceID)
	assert.Equal(t, 10, got.References[0].StartOffsetSec)
}
