package release

import (
	"errors"
	"strings"
	"testing"
)

func TestParseQuality(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"Movie.2023.2160p.WEB-DL.x265", "2160p"},
		{"Movie 2023 4K HDR", "2160p"},
		{"Movie.2023.UHD.BluRay", "2160p"},
		{"Movie.2023.1080p.BluRay.x264", "1080p"},
		{"Show.S01E01.720p.HDTV", "720p"},
		{"Old.Movie.480p.DVDRip", "480p"},
		{"Movie.2023.DVDRip.XviD", ""},
		{"movie.2160P.remux", "2160p"},
	}
	for _, tc := range cases {
		if got := ParseQuality(tc.name); got != tc.want {
			t.Errorf("ParseQuality(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestParseCodec(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"Movie.1080p.x265-GRP", "x265"},
		{"Movie.1080p.HEVC.10bit", "x265"},
		{"Movie.1080p.H.264-GRP", "x264"},
		{"Movie.720p.XviD", "xvid"},
		{"Movie.2160p.AV1.Opus", "av1"},
		{"Movie.1080p.WEB-DL", ""},
	}
	for _, tc := range cases {
		if got := ParseCodec(tc.name); got != tc.want {
			t.Errorf("ParseCodec(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestFormatSize(t *testing.T) {
	cases := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1 << 20, "1.00 MB"},
		{1073741824, "1.00 GB"},
		// one byte below the GB threshold still formats as MB
		{1073741823, "1024.00 MB"},
		{5368709120, "5.00 GB"},
	}
	for _, tc := range cases {
		if got := FormatSize(tc.bytes); got != tc.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tc.bytes, got, tc.want)
		}
	}
}

func TestNormalizeInfoHash(t *testing.T) {
	hexHash := "ab462b2c8d3e4f5a6b7c8d9e0f1a2b3c4d5e6f7a"

	got, err := NormalizeInfoHash(strings.ToUpper(hexHash))
	if err != nil {
		t.Fatalf("hex: %v", err)
	}
	if got != hexHash {
		t.Fatalf("hex normalized to %q, want %q", got, hexHash)
	}

	// base32 and hex forms of the same 20 bytes must normalize identically
	base32Hash := "VNDCWLENHZHVU234RWPA6GRLHRGV4332"
	wantHex := hexHash
	got, err = NormalizeInfoHash(base32Hash)
	if err != nil {
		t.Fatalf("base32: %v", err)
	}
	if len(got) != 40 || got != strings.ToLower(got) {
		t.Fatalf("base32 normalized to %q, want 40 lower-case hex chars", got)
	}
	if got != wantHex {
		t.Fatalf("base32 normalized to %q, want %q", got, wantHex)
	}

	// round trip: hex -> base32 form decodes back to the identical hex
	roundTrip, err := NormalizeInfoHash(strings.ToLower(base32Hash))
	if err != nil {
		t.Fatalf("base32 lower: %v", err)
	}
	if roundTrip != got {
		t.Fatalf("case-insensitive base32 mismatch: %q vs %q", roundTrip, got)
	}

	for _, bad := range []string{"", "zzzz", "12345", strings.Repeat("g", 40)} {
		if _, err := NormalizeInfoHash(bad); !errors.Is(err, ErrBadInfoHash) {
			t.Errorf("NormalizeInfoHash(%q) err = %v, want ErrBadInfoHash", bad, err)
		}
	}
}

func TestInfoHashFromMagnet(t *testing.T) {
	hash := "a216611be5b8d8c6306748d132774aa514977ee8"
	magnet := "magnet:?xt=urn:btih:" + strings.ToUpper(hash) + "&dn=Some+Show"

	got, err := InfoHashFromMagnet(magnet)
	if err != nil {
		t.Fatalf("InfoHashFromMagnet: %v", err)
	}
	if got != hash {
		t.Fatalf("got %q, want %q", got, hash)
	}

	if _, err := InfoHashFromMagnet("https://example.com/file.torrent"); !errors.Is(err, ErrNoInfoHash) {
		t.Fatalf("url err = %v, want ErrNoInfoHash", err)
	}
	if _, err := InfoHashFromMagnet("magnet:?dn=no-hash"); !errors.Is(err, ErrNoInfoHash) {
		t.Fatalf("hashless magnet err = %v, want ErrNoInfoHash", err)
	}
}

func TestBuildMagnet(t *testing.T) {
	hash := "a216611be5b8d8c6306748d132774aa514977ee8"
	m, err := BuildMagnet(hash, "Some Show (2003)", []string{"udp://tracker.example:1337/announce"})
	if err != nil {
		t.Fatalf("BuildMagnet: %v", err)
	}
	if !strings.HasPrefix(m, "magnet:?xt=urn:btih:"+hash) {
		t.Fatalf("magnet missing hash prefix: %q", m)
	}
	if !strings.Contains(m, "&dn=Some+Show+%282003%29") {
		t.Fatalf("magnet missing encoded name: %q", m)
	}
	if !strings.Contains(m, "&tr=udp%3A%2F%2Ftracker.example%3A1337%2Fannounce") {
		t.Fatalf("magnet missing tracker: %q", m)
	}

	// hash round-trips through the built magnet
	back, err := InfoHashFromMagnet(m)
	if err != nil || back != hash {
		t.Fatalf("round trip = %q, %v", back, err)
	}

	if _, err := BuildMagnet("nothash", "x", nil); err == nil {
		t.Fatal("expected error for invalid hash")
	}
}
