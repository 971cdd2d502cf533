package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPirateBaySearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if q := r.URL.Query().Get("q"); q != "some show 2023" {
			t.Errorf("query = %q", q)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"101","name":"Some Show 2023 1080p WEB-DL x265","info_hash":"A216611BE5B8D8C6306748D132774AA514977EE8","seeders":"42","leechers":"7","size":"1073741824","added":"1700000000"},
			{"id":"102","name":"Some Show 2023 CAM","info_hash":"not-a-hash","seeders":"1","leechers":"0","size":"100","added":"0"}
		]`))
	}))
	defer srv.Close()

	p := NewPirateBay(discard(), srv.URL, true)
	got, err := p.Search(context.Background(), Query{Title: "some show", Year: 2023})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1 (bad hash skipped)", len(got))
	}
	r := got[0]
	if r.ID != "piratebay-101" || r.Source != "piratebay" {
		t.Errorf("identity: %+v", r)
	}
	if !strings.Contains(r.MagnetLink, "magnet:?xt=urn:btih:a216611be5b8d8c6306748d132774aa514977ee8") {
		t.Errorf("magnet not synthesized from lower-cased hash: %q", r.MagnetLink)
	}
	if r.SizeBytes != 1073741824 || r.Size != "1.00 GB" {
		t.Errorf("size: %d %q", r.SizeBytes, r.Size)
	}
	if r.Seeds != 42 || r.Peers != 7 {
		t.Errorf("seeds/peers: %d/%d", r.Seeds, r.Peers)
	}
	if r.Quality != "1080p" || r.Codec != "x265" {
		t.Errorf("quality/codec: %q/%q", r.Quality, r.Codec)
	}
}

func TestPirateBayNoResultsPlaceholder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"0","name":"No results returned","info_hash":"0000000000000000000000000000000000000000","seeders":"0","leechers":"0","size":"0","added":"0"}]`))
	}))
	defer srv.Close()

	p := NewPirateBay(discard(), srv.URL, true)
	got, err := p.Search(context.Background(), Query{Title: "nothing"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("placeholder row leaked: %v", got)
	}
}

func TestTorznabSearch(t *testing.T) {
	feed := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:torznab="http://torznab.com/schemas/2015/feed">
 <channel>
  <item>
   <title>Some Show 2023 720p HDTV</title>
   <guid>abc-1</guid>
   <link>http://indexer/dl/1.torrent</link>
   <size>734003200</size>
   <attr xmlns="http://torznab.com/schemas/2015/feed" name="seeders" value="12"/>
   <attr xmlns="http://torznab.com/schemas/2015/feed" name="peers" value="3"/>
   <attr xmlns="http://torznab.com/schemas/2015/feed" name="magneturl" value="magnet:?xt=urn:btih:a216611be5b8d8c6306748d132774aa514977ee8&amp;dn=x"/>
  </item>
  <item>
   <title>Some Show 2023 480p</title>
   <guid>abc-2</guid>
   <link>http://indexer/dl/2.torrent</link>
   <size>157286400</size>
   <attr xmlns="http://torznab.com/schemas/2015/feed" name="seeders" value="2"/>
  </item>
 </channel>
</rss>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apikey") != "k" {
			t.Errorf("apikey = %q", r.URL.Query().Get("apikey"))
		}
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	tz := NewTorznab(discard(), srv.URL, "k")
	got, err := tz.Search(context.Background(), Query{Title: "some show"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if !strings.HasPrefix(got[0].MagnetLink, "magnet:?xt=urn:btih:a216611b") {
		t.Errorf("first item should use magneturl attr: %q", got[0].MagnetLink)
	}
	// hashless item falls back to the .torrent link as submission target
	if got[1].MagnetLink != "http://indexer/dl/2.torrent" {
		t.Errorf("second item target = %q", got[1].MagnetLink)
	}
	if got[0].Seeds != 12 || got[1].Seeds != 2 {
		t.Errorf("seeds: %d/%d", got[0].Seeds, got[1].Seeds)
	}
}

func TestTorznabNegativeSizeClamped(t *testing.T) {
	feed := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:torznab="http://torznab.com/schemas/2015/feed">
 <channel>
  <item>
   <title>Broken Feed Entry</title>
   <guid>neg-1</guid>
   <link>http://indexer/dl/neg.torrent</link>
   <size>-5</size>
  </item>
 </channel>
</rss>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	got, err := NewTorznab(discard(), srv.URL, "k").Search(context.Background(), Query{Title: "broken"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1", len(got))
	}
	// both derivations come from the same clamped value
	if got[0].SizeBytes != 0 || got[0].Size != "0 B" {
		t.Errorf("size pair = %q / %d, want consistent zero", got[0].Size, got[0].SizeBytes)
	}
}

func TestTorznabDisabledWithoutKey(t *testing.T) {
	if NewTorznab(discard(), "http://indexer", "").Enabled() {
		t.Fatal("torznab without api key must be disabled")
	}
	if NewTorznab(discard(), "", "k").Enabled() {
		t.Fatal("torznab without endpoint must be disabled")
	}
}
