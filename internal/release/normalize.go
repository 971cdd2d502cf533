// Package release holds pure helpers that turn provider-specific release
// records into the canonical TorrentResult shape: quality and codec
// extraction, size formatting and info-hash handling.
package release

import (
	"encoding/base32"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	ErrBadInfoHash = errors.New("invalid info hash")
	ErrNoInfoHash  = errors.New("magnet has no info hash")
)

var hexHashRe = regexp.MustCompile(`^[0-9a-fA-F]{40}$`)

// ParseQuality infers the resolution tier from a release name. First match
// wins, checked highest first so "2160p" in a name that also says "1080p
// upscale" resolves to 2160p. Returns "" when nothing matches.
func ParseQuality(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "2160p"), strings.Contains(lower, "4k"), strings.Contains(lower, "uhd"):
		return "2160p"
	case strings.Contains(lower, "1080p"):
		return "1080p"
	case strings.Contains(lower, "720p"):
		return "720p"
	case strings.Contains(lower, "480p"):
		return "480p"
	}
	return ""
}

// ParseCodec extracts a best-effort codec token from a release name.
func ParseCodec(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "x265"), strings.Contains(lower, "h265"),
		strings.Contains(lower, "h.265"), strings.Contains(lower, "hevc"):
		return "x265"
	case strings.Contains(lower, "x264"), strings.Contains(lower, "h264"),
		strings.Contains(lower, "h.264"), strings.Contains(lower, "avc"):
		return "x264"
	case strings.Contains(lower, "av1"):
		return "av1"
	case strings.Contains(lower, "xvid"):
		return "xvid"
	}
	return ""
}

// FormatSize renders a byte count as "X.XX GB" / "X.XX MB" / "X.XX KB"
// with two-decimal precision. Unit steps at 1024.
func FormatSize(bytes int64) string {
	const (
		kb = 1 << 10
		mb = 1 << 20
		gb = 1 << 30
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// NormalizeInfoHash converts an info hash in either 40-char hex or 32-char
// base32 form into canonical lower-case hex. Download clients expect hex;
// base32 hashes must never be passed through as-is.
func NormalizeInfoHash(s string) (string, error) {
	s = strings.TrimSpace(s)
	if hexHashRe.MatchString(s) {
		return strings.ToLower(s), nil
	}
	if len(s) == 32 {
		raw, err := base32.StdEncoding.DecodeString(strings.ToUpper(s))
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrBadInfoHash, s)
		}
		if len(raw) != 20 {
			return "", fmt.Errorf("%w: decoded to %d bytes", ErrBadInfoHash, len(raw))
		}
		return hex.EncodeToString(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrBadInfoHash, s)
}

// InfoHashFromMagnet extracts and normalizes the btih hash from a magnet
// URI. Returns ErrNoInfoHash for non-magnet sources such as plain
// download URLs.
func InfoHashFromMagnet(magnet string) (string, error) {
	if !strings.HasPrefix(magnet, "magnet:") {
		return "", ErrNoInfoHash
	}
	u, err := url.Parse(magnet)
	if err != nil {
		return "", fmt.Errorf("parse magnet: %w", err)
	}
	for _, xt := range u.Query()["xt"] {
		if h, ok := strings.CutPrefix(xt, "urn:btih:"); ok {
			return NormalizeInfoHash(h)
		}
	}
	return "", ErrNoInfoHash
}

// BuildMagnet synthesizes a magnet URI from an info hash for backends that
// return only a hash. The hash may be hex or base32; it is normalized to
// hex first. Trackers are optional.
func BuildMagnet(infoHash, name string, trackers []string) (string, error) {
	h, err := NormalizeInfoHash(infoHash)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("magnet:?xt=urn:btih:")
	b.WriteString(h)
	b.WriteString("&dn=")
	b.WriteString(url.QueryEscape(name))
	for _, tr := range trackers {
		b.WriteString("&tr=")
		b.WriteString(url.QueryEscape(tr))
	}
	return b.String(), nil
}
