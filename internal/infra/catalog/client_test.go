package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/performances", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"performanceId":"perf1","songTitle":"夜に駆ける","originalArtist":"YOASOBI","videoId":"v1","startOffsetSeconds":120,"endOffsetSeconds":360},
			{"performanceId":"perf2","songTitle":"アイドル","originalArtist":"YOASOBI","videoId":"v2","startOffsetSeconds":0}
		]`))
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	perfs, err := c.FetchSnapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, perfs, 2)
	assert.Equal(t, "perf1", perfs[0].ID)
	assert.Equal(t, "夜に駆ける", perfs[0].SongTitle)
	assert.Equal(t, 120, perfs[0].StartOffsetSec)
	assert.Equal(t, 360, perfs[0].EndOffsetSec)
	assert.Equal(t, 0, perfs[1].EndOffsetSec)
}

func TestFetchSnapshotServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.FetchSnapshot(context.Background())
	assert.Error(t, err)
}

func TestFetchPerformance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/performances/perf1" {
			w.Write([]byte(`{"performanceId":"perf1","songTitle":"Song","videoId":"v1"}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	p, err := c.FetchPerformance(context.Background(), "perf1")
	require.NoError(t, err)
	assert.Equal(t, "perf1", p.ID)

	_, err = c.FetchPerformance(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
