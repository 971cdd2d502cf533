package provider

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/fetcharr/fetcharr/internal/data"
)

type stubProvider struct {
	name    string
	enabled bool
	results []data.TorrentResult
	err     error
	delay   time.Duration
	calls   int
}

func (s *stubProvider) Name() string  { return s.name }
func (s *stubProvider) Enabled() bool { return s.enabled }

func (s *stubProvider) Search(ctx context.Context, q Query) ([]data.TorrentResult, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func result(id string, seeds int) data.TorrentResult {
	return data.TorrentResult{ID: id, Name: id, Seeds: seeds}
}

func TestAggregatorMergesAndSorts(t *testing.T) {
	a := NewAggregator(discard(), []Provider{
		&stubProvider{name: "a", enabled: true, results: []data.TorrentResult{result("a1", 10), result("a2", 50)}},
		&stubProvider{name: "b", enabled: true, results: []data.TorrentResult{result("b1", 50), result("b2", 5)}},
	}, time.Second)

	got := a.Search(context.Background(), Query{Title: "x"})
	if len(got) != 4 {
		t.Fatalf("got %d results, want 4", len(got))
	}
	wantOrder := []string{"a2", "b1", "a1", "b2"}
	for i, id := range wantOrder {
		if got[i].ID != id {
			t.Errorf("position %d = %s, want %s (stable sort by seeds desc)", i, got[i].ID, id)
		}
	}
}

func TestAggregatorIsolatesFailures(t *testing.T) {
	ok := &stubProvider{name: "ok", enabled: true, results: []data.TorrentResult{result("ok1", 3)}}
	bad := &stubProvider{name: "bad", enabled: true, err: errors.New("connection refused")}
	slow := &stubProvider{name: "slow", enabled: true, delay: 5 * time.Second,
		results: []data.TorrentResult{result("late", 99)}}

	a := NewAggregator(discard(), []Provider{bad, ok, slow}, 50*time.Millisecond)
	got := a.Search(context.Background(), Query{Title: "x"})

	if len(got) != 1 || got[0].ID != "ok1" {
		t.Fatalf("got %v, want only the healthy provider's result", got)
	}
}

func TestAggregatorSkipsDisabled(t *testing.T) {
	off := &stubProvider{name: "off", enabled: false, results: []data.TorrentResult{result("x", 1)}}
	a := NewAggregator(discard(), []Provider{off}, time.Second)

	if got := a.Search(context.Background(), Query{Title: "x"}); len(got) != 0 {
		t.Fatalf("disabled provider contributed %v", got)
	}
	if off.calls != 0 {
		t.Fatalf("disabled provider was called %d times", off.calls)
	}
}

func TestFilterQuality(t *testing.T) {
	in := []data.TorrentResult{
		{ID: "a", Quality: "2160p"},
		{ID: "b", Quality: "1080p"},
		{ID: "c", Quality: ""},
	}
	got := FilterQuality(in, []string{"1080p", "2160p"})
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("FilterQuality = %v", got)
	}
	if got := FilterQuality(in, nil); len(got) != 3 {
		t.Fatalf("empty filter dropped results: %v", got)
	}
}
