// Package catalog provides a client for the song-archive catalog
// service, the read-only source of performance records.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/yukimura/utabako/internal/domain/performance"
)

// ErrNotFound is returned when a performance id is unknown to the
// catalog.
var ErrNotFound = errors.New("performance not found")

// Client is a catalog API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Config represents catalog client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// New creates a new catalog client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("catalog base URL is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// performanceRecord is the catalog's wire shape for one performance.
type performanceRecord struct {
	PerformanceID      string `json:"performanceId"`
	SongTitle          string `json:"songTitle"`
	OriginalArtist     string `json:"originalArtist"`
	VideoID            string `json:"videoId"`
	StartOffsetSeconds int    `json:"startOffsetSeconds"`
	EndOffsetSeconds   int    `json:"endOffsetSeconds"`
	SungAt             string `json:"sungAt"`
}

func (r performanceRecord) toDomain() performance.Performance {
	return performance.Performance{
		ID:             r.PerformanceID,
		SongTitle:      r.SongTitle,
		OriginalArtist: r.OriginalArtist,
		VideoID:        r.VideoID,
		StartOffsetSec: r.StartOffsetSeconds,
		EndOffsetSec:   r.EndOffsetSeconds,
		SungAt:         r.SungAt,
	}
}

// FetchSnapshot retrieves the full catalog, used to rebuild the
// resolver's snapshot.
func (c *Client) FetchSnapshot(ctx context.Context) ([]performance.Performance, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/performances", nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "catalog request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.Newf("catalog returned %d: %s", resp.StatusCode, string(body))
	}

	var records []performanceRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, errors.Wrap(err, "failed to decode catalog snapshot")
	}

	perfs := make([]performance.Performance, len(records))
	for i, r := range records {
		perfs[i] = r.toDomain()
	}
	zlog.Debug().Int("count", len(perfs)).Msg("catalog: snapshot fetched")
	return perfs, nil
}

// FetchPerformance retrieves one performance by id.
func (c *Client) FetchPerformance(ctx context.Context, id string) (*performance.Performance, error) {
	url := fmt.Sprintf("%s/performances/%s", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "catalog request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("catalog returned %d", resp.StatusCode)
	}

	var record performanceRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, errors.Wrap(err, "failed to decode performance")
	}
	p := record.toDomain()
	return &p, nil
}
