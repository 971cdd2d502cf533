// Package qbit implements the download client capability against the
// qBittorrent WebUI API.
package qbit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/fetcharr/fetcharr/internal/metrics"
)

// Torrent is one live entry from the client's transfer list.
type Torrent struct {
	Hash       string  `json:"hash"`
	Name       string  `json:"name"`
	State      string  `json:"state"`
	Progress   float64 `json:"progress"` // 0.0 .. 1.0
	Dlspeed    int64   `json:"dlspeed"`
	Upspeed    int64   `json:"upspeed"`
	Downloaded int64   `json:"downloaded"`
	Size       int64   `json:"size"`
	ETA        int64   `json:"eta"` // seconds; 8640000 means unknown
}

// AddOptions carries routing hints for a new transfer.
type AddOptions struct {
	Category string
	SavePath string
}

// Client talks to one qBittorrent instance. Sessions are cookie-based; an
// expired session is re-established transparently with a short backoff.
type Client struct {
	baseURL  string
	username string
	password string
	enabled  bool
	http     *http.Client
}

type Config struct {
	URL      string
	Username string
	Password string
	Enabled  bool
	Timeout  time.Duration
}

func New(cfg Config) *Client {
	jar, _ := cookiejar.New(nil)
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		enabled:  cfg.Enabled,
		http:     &http.Client{Timeout: timeout, Jar: jar},
	}
}

// Enabled reports whether the client is configured for use. Submissions
// against a disabled client fail fast without a network call.
func (c *Client) Enabled() bool { return c.enabled && c.baseURL != "" }

func (c *Client) login(ctx context.Context) error {
	form := url.Values{}
	form.Set("username", c.username)
	form.Set("password", c.password)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v2/auth/login",
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != "Ok." {
		return fmt.Errorf("qbittorrent login failed: http %d %q", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// do issues one API call, re-authenticating once (with backoff) when the
// session cookie has expired.
func (c *Client) do(ctx context.Context, method, path string, form url.Values) ([]byte, error) {
	started := time.Now()
	defer func() {
		metrics.ClientCallLatency.WithLabelValues(path).Observe(time.Since(started).Seconds())
	}()

	call := func() (*http.Response, error) {
		var req *http.Request
		var err error
		if method == http.MethodPost {
			req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, strings.NewReader(form.Encode()))
			if err == nil {
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			}
		} else {
			u := c.baseURL + path
			if len(form) > 0 {
				u += "?" + form.Encode()
			}
			req, err = http.NewRequestWithContext(ctx, method, u, nil)
		}
		if err != nil {
			return nil, err
		}
		return c.http.Do(req)
	}

	resp, err := call()
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
		_ = resp.Body.Close()
		bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
		if err := backoff.Retry(func() error { return c.login(ctx) }, bo); err != nil {
			return nil, fmt.Errorf("re-authenticate: %w", err)
		}
		resp, err = call()
		if err != nil {
			return nil, err
		}
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("qbittorrent %s: http %d %q", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// List returns the client's live transfer list.
func (c *Client) List(ctx context.Context) ([]Torrent, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v2/torrents/info", nil)
	if err != nil {
		return nil, err
	}
	var torrents []Torrent
	if err := json.Unmarshal(body, &torrents); err != nil {
		return nil, fmt.Errorf("decode torrent list: %w", err)
	}
	for i := range torrents {
		torrents[i].Hash = strings.ToLower(torrents[i].Hash)
	}
	return torrents, nil
}

// Add submits a magnet link or download URL.
func (c *Client) Add(ctx context.Context, magnetOrURL string, opts AddOptions) error {
	form := url.Values{}
	form.Set("urls", magnetOrURL)
	if opts.Category != "" {
		form.Set("category", opts.Category)
	}
	if opts.SavePath != "" {
		form.Set("savepath", opts.SavePath)
	}
	_, err := c.do(ctx, http.MethodPost, "/api/v2/torrents/add", form)
	return err
}

// Pause pauses the transfer for hash. Pausing an already-paused transfer
// is a no-op on the client side.
func (c *Client) Pause(ctx context.Context, hash string) error {
	form := url.Values{}
	form.Set("hashes", strings.ToLower(hash))
	_, err := c.do(ctx, http.MethodPost, "/api/v2/torrents/pause", form)
	return err
}

// Resume resumes the transfer for hash.
func (c *Client) Resume(ctx context.Context, hash string) error {
	form := url.Values{}
	form.Set("hashes", strings.ToLower(hash))
	_, err := c.do(ctx, http.MethodPost, "/api/v2/torrents/resume", form)
	return err
}

// Delete removes the transfer, optionally deleting its data on disk.
func (c *Client) Delete(ctx context.Context, hash string, deleteFiles bool) error {
	form := url.Values{}
	form.Set("hashes", strings.ToLower(hash))
	form.Set("deleteFiles", fmt.Sprintf("%t", deleteFiles))
	_, err := c.do(ctx, http.MethodPost, "/api/v2/torrents/delete", form)
	return err
}

// TestConnection verifies the WebUI is reachable and the credentials work.
func (c *Client) TestConnection(ctx context.Context) error {
	if !c.Enabled() {
		return fmt.Errorf("qbittorrent is not enabled")
	}
	_, err := c.do(ctx, http.MethodGet, "/api/v2/app/version", nil)
	return err
}
