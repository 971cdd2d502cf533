package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/fetcharr/fetcharr/internal/data"
	"github.com/fetcharr/fetcharr/internal/release"
)

// defaultTrackers are appended to magnets synthesized from a bare info
// hash so the download client can bootstrap the swarm.
var defaultTrackers = []string{
	"udp://tracker.opentrackr.org:1337/announce",
	"udp://open.demonii.com:1337/announce",
	"udp://tracker.coppersurfer.tk:6969/announce",
	"udp://exodus.desync.com:6969/announce",
}

// YTS queries the yts.mx JSON API. It only carries movies; the backend
// returns bare info hashes, so magnets are synthesized locally.
type YTS struct {
	baseURL string
	client  *http.Client
	log     *slog.Logger
	enabled bool
}

type ytsResponse struct {
	Status        string `json:"status"`
	StatusMessage string `json:"status_message"`
	Data          struct {
		Movies []struct {
			ID        int    `json:"id"`
			TitleLong string `json:"title_long"`
			Torrents  []struct {
				Hash             string `json:"hash"`
				Quality          string `json:"quality"`
				Type             string `json:"type"`
				Seeds            int    `json:"seeds"`
				Peers            int    `json:"peers"`
				SizeBytes        int64  `json:"size_bytes"`
				DateUploaded     string `json:"date_uploaded"`
				VideoCodec       string `json:"video_codec"`
			} `json:"torrents"`
		} `json:"movies"`
	} `json:"data"`
}

func NewYTS(log *slog.Logger, baseURL string, enabled bool) *YTS {
	if baseURL == "" {
		baseURL = "https://yts.mx/api/v2/list_movies.json"
	}
	return &YTS{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		log:     log,
		enabled: enabled,
	}
}

func (y *YTS) Name() string  { return "yts" }
func (y *YTS) Enabled() bool { return y.enabled }

func (y *YTS) Search(ctx context.Context, q Query) ([]data.TorrentResult, error) {
	if q.MediaType == "episode" {
		return nil, nil
	}
	term := q.Title
	if q.Year > 0 {
		term = fmt.Sprintf("%s %d", q.Title, q.Year)
	}
	searchURL := fmt.Sprintf("%s?query_term=%s&limit=%d&sort_by=seeds",
		y.baseURL, url.QueryEscape(term), maxResults)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := y.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yts http %d", resp.StatusCode)
	}

	var api ytsResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return nil, fmt.Errorf("decode yts response: %w", err)
	}
	if api.Status != "ok" {
		return nil, fmt.Errorf("yts api: %s", api.StatusMessage)
	}

	results := make([]data.TorrentResult, 0)
	for _, movie := range api.Data.Movies {
		for _, t := range movie.Torrents {
			name := fmt.Sprintf("%s [%s] [%s] [YTS]", movie.TitleLong, t.Quality, t.Type)
			magnet, err := release.BuildMagnet(t.Hash, name, defaultTrackers)
			if err != nil {
				y.log.Warn("skipping torrent with bad hash", "provider", y.Name(), "hash", t.Hash, "err", err)
				continue
			}
			quality := release.ParseQuality(t.Quality)
			if quality == "" {
				quality = release.ParseQuality(name)
			}
			codec := release.ParseCodec(t.VideoCodec)
			if codec == "" {
				codec = release.ParseCodec(name)
			}
			results = append(results, data.TorrentResult{
				ID:         fmt.Sprintf("yts-%d-%s", movie.ID, t.Quality),
				Name:       name,
				MagnetLink: magnet,
				Size:       release.FormatSize(t.SizeBytes),
				SizeBytes:  t.SizeBytes,
				Seeds:      t.Seeds,
				Peers:      t.Peers,
				Quality:    quality,
				Codec:      codec,
				Source:     y.Name(),
				UploadDate: t.DateUploaded,
			})
			if len(results) >= maxResults {
				return results, nil
			}
		}
	}
	return results, nil
}
