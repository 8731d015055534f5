// Package syncapi provides the client for the cloud playlist
// collaborator, the remote half of playlist synchronization.
package syncapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/yukimura/utabako/internal/app/playliststore"
	"github.com/yukimura/utabako/internal/domain/playlist"
)

// Client is the cloud playlist API client. It implements
// playliststore.RemoteClient.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Config represents sync client configuration.
type Config struct {
	BaseURL         string
	UserToken       string
	RateLimitPerSec float64
	Timeout         time.Duration
}

// New creates a new sync client authenticating with the user token.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("sync base URL is required")
	}
	if cfg.UserToken == "" {
		return nil, errors.New("sync user token is required")
	}

	limit := cfg.RateLimitPerSec
	if limit <= 0 {
		limit = 5
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.UserToken})
	httpClient := oauth2.NewClient(ctx, src)
	httpClient.Timeout = timeout

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(limit), 1),
	}, nil
}

// pushResponse is the server's wire shape for a playlist push.
type pushResponse struct {
	Playlist    *playlist.Playlist `json:"playlist"`
	Conflict    bool               `json:"conflict"`
	KeptVersion string             `json:"keptVersion"`
}

// FetchPlaylists retrieves all cloud playlists for the current user.
func (c *Client) FetchPlaylists(ctx context.Context) ([]playlist.Playlist, error) {
	resp, err := c.do(ctx, http.MethodGet, "/playlists", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var pls []playlist.Playlist
	if err := json.NewDecoder(resp.Body).Decode(&pls); err != nil {
		return nil, errors.Wrap(err, "failed to decode playlists")
	}
	zlog.Debug().Int("count", len(pls)).Msg("syncapi: fetched cloud playlists")
	return pls, nil
}

// PushPlaylist uploads one playlist and reports which side the server
// kept under its last-write-wins rule.
func (c *Client) PushPlaylist(ctx context.Context, p playlist.Playlist) (playliststore.PushResult, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return playliststore.PushResult{}, errors.Wrap(err, "failed to encode playlist")
	}

	resp, err := c.do(ctx, http.MethodPut, "/playlists/"+p.ID, body)
	if err != nil {
		return playliststore.PushResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return playliststore.PushResult{}, statusError(resp)
	}

	var pr pushResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return playliststore.PushResult{}, errors.Wrap(err, "failed to decode push response")
	}
	// Reject malformed payloads instead of coercing them.
	if pr.Playlist == nil || (pr.KeptVersion != "local" && pr.KeptVersion != "cloud") {
		return playliststore.PushResult{}, errors.Newf("malformed push response: keptVersion=%q", pr.KeptVersion)
	}

	return playliststore.PushResult{
		Playlist:    *pr.Playlist,
		Conflict:    pr.Conflict,
		KeptVersion: pr.KeptVersion,
	}, nil
}

// ReplaceAll replaces the whole cloud set in one request.
func (c *Client) ReplaceAll(ctx context.Context, pls []playlist.Playlist) error {
	body, err := json.Marshal(map[string]any{"playlists": pls})
	if err != nil {
		return errors.Wrap(err, "failed to encode playlists")
	}

	resp, err := c.do(ctx, http.MethodPost, "/playlists", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return statusError(resp)
	}
	return nil
}

// DeletePlaylist removes one cloud playlist.
func (c *Client) DeletePlaylist(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/playlists/"+id, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// A playlist already gone on the cloud side is success.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return statusError(resp)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limiter interrupted")
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s failed", method, path)
	}
	return resp, nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return errors.Newf("sync server returned %d: %s", resp.StatusCode, string(body))
}

var _ playliststore.RemoteClient = (*Client)(nil)
