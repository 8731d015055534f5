package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yukimura/utabako/internal/app/player"
	"github.com/yukimura/utabako/internal/app/playliststore"
	"github.com/yukimura/utabako/internal/app/queue"
	"github.com/yukimura/utabako/internal/app/resolver"
	"github.com/yukimura/utabako/internal/domain/performance"
	"github.com/yukimura/utabako/internal/infra/storage"
)

type testEnv struct {
	server *Server
	store  *playliststore.Store
	router http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := playliststore.New(storage.NewMemory(), nil)
	require.NoError(t, err)

	res := resolver.New()
	res.Rebuild([]performance.Performance{
		{ID: "perf-1", SongTitle: "夜に駆ける", VideoID: "v1"},
		{ID: "perf-2", SongTitle: "残酷な天使のテーゼ", VideoID: "v2"},
		{ID: "perf-3", SongTitle: "アイドル", VideoID: "v3"},
	})

	q := queue.NewManager()
	eng := player.NewEngine(q, res)
	t.Cleanup(eng.Close)

	srv := NewServer(store, q, eng, res)
	return &testEnv{server: srv, store: store, router: srv.Router()}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func (e *testEnv) createPlaylist(t *testing.T, name string) playlistView {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/playlists", map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, rec.Code)
	return decodeBody[playlistView](t, rec)
}

func ref(id string) performance.Reference {
	return performance.Reference{PerformanceID: id, SongTitle: "t-" + id, VideoID: "v-" + id}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(3), body["catalog"])
}

func TestCreatePlaylist(t *testing.T) {
	env := newTestEnv(t)

	created := env.createPlaylist(t, "我的最愛")
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "我的最愛", created.Name)
	assert.Equal(t, "unsynced", created.SyncState)
}

func TestCreatePlaylist_EmptyName(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/playlists", map[string]string{"name": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRenamePlaylist(t *testing.T) {
	env := newTestEnv(t)
	created := env.createPlaylist(t, "old")

	rec := env.do(t, http.MethodPatch, "/playlists/"+created.ID, map[string]string{"name": "測試"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "測試", decodeBody[playlistView](t, rec).Name)

	rec = env.do(t, http.MethodPatch, "/playlists/nope", map[string]string{"name": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeletePlaylist(t *testing.T) {
	env := newTestEnv(t)
	created := env.createPlaylist(t, "to delete")

	rec := env.do(t, http.MethodDelete, "/playlists/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/playlists/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddTrack(t *testing.T) {
	env := newTestEnv(t)
	created := env.createPlaylist(t, "mix")

	rec := env.do(t, http.MethodPost, "/playlists/"+created.ID+"/tracks", ref("perf-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[playlistView](t, rec).References, 1)

	// Same performance again is a conflict.
	rec = env.do(t, http.MethodPost, "/playlists/"+created.ID+"/tracks", ref("perf-1"))
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Unknown performances never enter a playlist.
	rec = env.do(t, http.MethodPost, "/playlists/"+created.ID+"/tracks", ref("ghost"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRemoveTrack(t *testing.T) {
	env := newTestEnv(t)
	created := env.createPlaylist(t, "mix")
	env.do(t, http.MethodPost, "/playlists/"+created.ID+"/tracks", ref("perf-1"))

	rec := env.do(t, http.MethodDelete, "/playlists/"+created.ID+"/tracks/perf-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[playlistView](t, rec).References)
}

func TestReorderPlaylist(t *testing.T) {
	env := newTestEnv(t)
	created := env.createPlaylist(t, "mix")
	for _, id := range []string{"perf-1", "perf-2", "perf-3"} {
		env.do(t, http.MethodPost, "/playlists/"+created.ID+"/tracks", ref(id))
	}

	rec := env.do(t, http.MethodPost, "/playlists/"+created.ID+"/reorder", map[string]int{"from": 0, "to": 2})
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeBody[playlistView](t, rec)
	require.Len(t, got.References, 3)
	assert.Equal(t, "perf-2", got.References[0].PerformanceID)
	assert.Equal(t, "perf-1", got.References[2].PerformanceID)
}

func TestExportImportRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	created := env.createPlaylist(t, "backup me")
	env.do(t, http.MethodPost, "/playlists/"+created.ID+"/tracks", ref("perf-1"))

	rec := env.do(t, http.MethodGet, "/playlists/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	exported := rec.Body.Bytes()

	// Import into a fresh instance.
	other := newTestEnv(t)
	rec = other.do(t, http.MethodPost, "/playlists/import", exported)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeBody[map[string]int](t, rec)["imported"])

	restored, ok := other.store.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, "backup me", restored.Name)
}

func TestImport_RejectsMalformedFile(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/playlists/import", []byte(`{"oops": true}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSync_NoRemoteConfigured(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/playlists/sync", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestQueueLifecycle(t *testing.T) {
	env := newTestEnv(t)

	for _, id := range []string{"perf-1", "perf-2", "perf-3"} {
		rec := env.do(t, http.MethodPost, "/queue", ref(id))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/queue", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), decodeBody[map[string]any](t, rec)["length"])

	rec = env.do(t, http.MethodPost, "/queue/reorder", map[string]int{"from": 2, "to": 0})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/queue/0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decodeBody[map[string]int](t, rec)["length"])

	rec = env.do(t, http.MethodDelete, "/queue", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestQueue_DefersPlayabilityToConsumption(t *testing.T) {
	env := newTestEnv(t)

	// An unknown reference is accepted at enqueue time; the player
	// skips it when its turn comes.
	rec := env.do(t, http.MethodPost, "/queue", ref("ghost"))
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = env.do(t, http.MethodPost, "/queue", ref("perf-2"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/player/next", nil)
	state := decodeBody[playerStateView](t, rec)
	require.NotNil(t, state.Current)
	assert.Equal(t, "perf-2", state.Current.PerformanceID)
	assert.Equal(t, 0, state.QueueLength)
}

func TestPlayPlaylistAndControls(t *testing.T) {
	env := newTestEnv(t)
	created := env.createPlaylist(t, "party")
	for _, id := range []string{"perf-1", "perf-2"} {
		env.do(t, http.MethodPost, "/playlists/"+created.ID+"/tracks", ref(id))
	}

	rec := env.do(t, http.MethodPost, "/playlists/"+created.ID+"/play", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	state := decodeBody[playerStateView](t, rec)
	assert.Equal(t, "playing", state.State)
	require.NotNil(t, state.Current)
	assert.Equal(t, "perf-1", state.Current.PerformanceID)
	assert.Equal(t, 1, state.QueueLength)

	rec = env.do(t, http.MethodPost, "/player/pause", nil)
	assert.Equal(t, "paused", decodeBody[playerStateView](t, rec).State)

	rec = env.do(t, http.MethodPost, "/player/next", nil)
	state = decodeBody[playerStateView](t, rec)
	assert.Equal(t, "playing", state.State)
	assert.Equal(t, "perf-2", state.Current.PerformanceID)

	rec = env.do(t, http.MethodPost, "/player/stop", nil)
	assert.Equal(t, "idle", decodeBody[playerStateView](t, rec).State)
}

func TestSetRepeat(t *testing.T) {
	env := newTestEnv(t)

	for _, mode := range []string{"off", "all", "one"} {
		rec := env.do(t, http.MethodPut, "/player/repeat", map[string]string{"mode": mode})
		require.Equal(t, http.StatusOK, rec.Code, fmt.Sprintf("mode %s", mode))
		assert.Equal(t, mode, decodeBody[playerStateView](t, rec).Repeat)
	}

	rec := env.do(t, http.MethodPut, "/player/repeat", map[string]string{"mode": "forever"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetShuffle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/player/shuffle", map[string]bool{"enabled": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[playerStateView](t, rec).Shuffle)
}

func TestMarkUnplayable(t *testing.T) {
	env := newTestEnv(t)
	created := env.createPlaylist(t, "fragile")
	for _, id := range []string{"perf-1", "perf-2"} {
		env.do(t, http.MethodPost, "/playlists/"+created.ID+"/tracks", ref(id))
	}
	env.do(t, http.MethodPost, "/playlists/"+created.ID+"/play", nil)

	// Marking the current track advances past it.
	rec := env.do(t, http.MethodPost, "/player/unplayable", map[string]string{"performanceId": "perf-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	state := decodeBody[playerStateView](t, rec)
	require.NotNil(t, state.Current)
	assert.Equal(t, "perf-2", state.Current.PerformanceID)
}
