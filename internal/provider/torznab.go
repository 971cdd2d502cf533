package provider

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/fetcharr/fetcharr/internal/data"
	"github.com/fetcharr/fetcharr/internal/release"
)

// Torznab queries any Torznab-compatible indexer proxy (Jackett, Prowlarr).
// It is disabled until an API key is configured. Items may carry a magnet,
// a bare info hash, or only a .torrent download link; the link is still a
// valid submission target, so hashless items are kept.
type Torznab struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     *slog.Logger
}

type torznabFeed struct {
	Channel struct {
		Items []torznabItem `xml:"item"`
	} `xml:"channel"`
}

type torznabItem struct {
	Title   string        `xml:"title"`
	GUID    string        `xml:"guid"`
	Link    string        `xml:"link"`
	Size    int64         `xml:"size"`
	PubDate string        `xml:"pubDate"`
	Attrs   []torznabAttr `xml:"attr"`
}

type torznabAttr struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

func (it torznabItem) attr(name string) string {
	for _, a := range it.Attrs {
		if a.Name == name {
			return a.Value
		}
	}
	return ""
}

func NewTorznab(log *slog.Logger, baseURL, apiKey string) *Torznab {
	return &Torznab{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 20 * time.Second},
		log:     log,
	}
}

func (t *Torznab) Name() string { return "torznab" }

// Enabled requires both an endpoint and an API key; without credentials
// the adapter short-circuits before any network call.
func (t *Torznab) Enabled() bool { return t.baseURL != "" && t.apiKey != "" }

func (t *Torznab) Search(ctx context.Context, q Query) ([]data.TorrentResult, error) {
	params := url.Values{}
	params.Set("apikey", t.apiKey)
	params.Set("t", "search")
	params.Set("q", q.Title)
	if q.Year > 0 {
		params.Set("q", fmt.Sprintf("%s %d", q.Title, q.Year))
	}
	params.Set("limit", fmt.Sprintf("%d", maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("torznab http %d", resp.StatusCode)
	}

	var feed torznabFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode torznab feed: %w", err)
	}

	results := make([]data.TorrentResult, 0, len(feed.Channel.Items))
	for _, it := range feed.Channel.Items {
		target := it.attr("magneturl")
		if target == "" {
			if hash := it.attr("infohash"); hash != "" {
				if m, err := release.BuildMagnet(hash, it.Title, nil); err == nil {
					target = m
				}
			}
		}
		if target == "" {
			// no magnet and no hash: the .torrent link still works as a
			// submission target, the hash resolves during reconciliation
			target = it.Link
		}
		if target == "" {
			continue
		}
		seeds := atoiOrZero(it.attr("seeders"))
		peers := atoiOrZero(it.attr("peers"))
		size := max(it.Size, 0)
		results = append(results, data.TorrentResult{
			ID:         "torznab-" + it.GUID,
			Name:       it.Title,
			MagnetLink: target,
			Size:       release.FormatSize(size),
			SizeBytes:  size,
			Seeds:      seeds,
			Peers:      peers,
			Quality:    release.ParseQuality(it.Title),
			Codec:      release.ParseCodec(it.Title),
			Source:     t.Name(),
			UploadDate: it.PubDate,
		})
		if len(results) >= maxResults {
			break
		}
	}
	return results, nil
}

func atoiOrZero(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}
