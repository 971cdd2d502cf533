package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fetcharr/fetcharr/internal/data"
	"github.com/fetcharr/fetcharr/internal/release"
)

// EZTV queries the eztv JSON API. It carries TV episodes only and supplies
// ready-made magnet links, so no synthesis is needed; results whose title
// does not contain the query are filtered out client-side because the API
// matches loosely.
type EZTV struct {
	baseURL string
	client  *http.Client
	log     *slog.Logger
	enabled bool
}

type eztvResponse struct {
	Torrents []struct {
		ID        int    `json:"id"`
		Title     string `json:"title"`
		MagnetURL string `json:"magnet_url"`
		Seeds     int    `json:"seeds"`
		Peers     int    `json:"peers"`
		SizeBytes string `json:"size_bytes"`
		DateUnix  int64  `json:"date_released_unix"`
	} `json:"torrents"`
}

func NewEZTV(log *slog.Logger, baseURL string, enabled bool) *EZTV {
	if baseURL == "" {
		baseURL = "https://eztvx.to/api/get-torrents"
	}
	return &EZTV{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		log:     log,
		enabled: enabled,
	}
}

func (e *EZTV) Name() string  { return "eztv" }
func (e *EZTV) Enabled() bool { return e.enabled }

func (e *EZTV) Search(ctx context.Context, q Query) ([]data.TorrentResult, error) {
	if q.MediaType == "movie" {
		return nil, nil
	}
	searchURL := fmt.Sprintf("%s?limit=%d&page=1&query=%s", e.baseURL, maxResults, url.QueryEscape(q.Title))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("eztv http %d", resp.StatusCode)
	}

	var api eztvResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return nil, fmt.Errorf("decode eztv response: %w", err)
	}

	needle := strings.ToLower(q.Title)
	results := make([]data.TorrentResult, 0, len(api.Torrents))
	for _, t := range api.Torrents {
		if !strings.Contains(strings.ToLower(t.Title), needle) {
			continue
		}
		if t.MagnetURL == "" {
			continue
		}
		sizeBytes, _ := strconv.ParseInt(t.SizeBytes, 10, 64)
		if sizeBytes < 0 {
			sizeBytes = 0
		}
		var uploadDate string
		if t.DateUnix > 0 {
			uploadDate = time.Unix(t.DateUnix, 0).UTC().Format(time.RFC3339)
		}
		results = append(results, data.TorrentResult{
			ID:         "eztv-" + strconv.Itoa(t.ID),
			Name:       t.Title,
			MagnetLink: t.MagnetURL,
			Size:       release.FormatSize(sizeBytes),
			SizeBytes:  sizeBytes,
			Seeds:      max(t.Seeds, 0),
			Peers:      max(t.Peers, 0),
			Quality:    release.ParseQuality(t.Title),
			Codec:      release.ParseCodec(t.Title),
			Source:     e.Name(),
			UploadDate: uploadDate,
		})
		if len(results) >= maxResults {
			break
		}
	}
	return results, nil
}
