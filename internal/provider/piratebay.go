package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/fetcharr/fetcharr/internal/data"
	"github.com/fetcharr/fetcharr/internal/release"
)

// PirateBay queries the apibay JSON mirror of The Pirate Bay. The API
// returns hex info hashes and byte counts as strings; seeders and
// leechers likewise arrive as strings.
type PirateBay struct {
	baseURL string
	client  *http.Client
	log     *slog.Logger
	enabled bool
}

type pirateBayEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	InfoHash string `json:"info_hash"`
	Seeders  string `json:"seeders"`
	Leechers string `json:"leechers"`
	Size     string `json:"size"`
	Added    string `json:"added"`
}

func NewPirateBay(log *slog.Logger, baseURL string, enabled bool) *PirateBay {
	if baseURL == "" {
		baseURL = "https://apibay.org/q.php"
	}
	return &PirateBay{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		log:     log,
		enabled: enabled,
	}
}

func (p *PirateBay) Name() string  { return "piratebay" }
func (p *PirateBay) Enabled() bool { return p.enabled }

func (p *PirateBay) Search(ctx context.Context, q Query) ([]data.TorrentResult, error) {
	term := q.Title
	if q.Year > 0 {
		term = fmt.Sprintf("%s %d", q.Title, q.Year)
	}
	searchURL := fmt.Sprintf("%s?q=%s", p.baseURL, url.QueryEscape(term))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("piratebay http %d", resp.StatusCode)
	}

	var entries []pirateBayEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode piratebay response: %w", err)
	}

	results := make([]data.TorrentResult, 0, len(entries))
	for _, e := range entries {
		// apibay signals "no results" with a single placeholder row
		if e.ID == "0" || e.Name == "No results returned" {
			continue
		}
		magnet, err := release.BuildMagnet(e.InfoHash, e.Name, defaultTrackers)
		if err != nil {
			p.log.Warn("skipping torrent with bad hash", "provider", p.Name(), "hash", e.InfoHash, "err", err)
			continue
		}
		sizeBytes, _ := strconv.ParseInt(e.Size, 10, 64)
		if sizeBytes < 0 {
			sizeBytes = 0
		}
		seeds, _ := strconv.Atoi(e.Seeders)
		peers, _ := strconv.Atoi(e.Leechers)
		var uploadDate string
		if unix, err := strconv.ParseInt(e.Added, 10, 64); err == nil && unix > 0 {
			uploadDate = time.Unix(unix, 0).UTC().Format(time.RFC3339)
		}
		results = append(results, data.TorrentResult{
			ID:         "piratebay-" + e.ID,
			Name:       e.Name,
			MagnetLink: magnet,
			Size:       release.FormatSize(sizeBytes),
			SizeBytes:  sizeBytes,
			Seeds:      max(seeds, 0),
			Peers:      max(peers, 0),
			Quality:    release.ParseQuality(e.Name),
			Codec:      release.ParseCodec(e.Name),
			Source:     p.Name(),
			UploadDate: uploadDate,
		})
		if len(results) >= maxResults {
			break
		}
	}
	return results, nil
}
