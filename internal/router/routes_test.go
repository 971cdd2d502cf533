package router_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	v1 "github.com/fetcharr/fetcharr/api/v1"
	"github.com/fetcharr/fetcharr/internal/data"
	"github.com/fetcharr/fetcharr/internal/events"
	"github.com/fetcharr/fetcharr/internal/manager"
	"github.com/fetcharr/fetcharr/internal/metrics"
	"github.com/fetcharr/fetcharr/internal/provider"
	"github.com/fetcharr/fetcharr/internal/router"
)

// fakeSvc is a stub to satisfy v1.DownloadService in router tests.
type fakeSvc struct{}

func (f *fakeSvc) List(ctx context.Context) (data.Downloads, error) { return nil, nil }
func (f *fakeSvc) Get(ctx context.Context, id string) (*data.Download, error) {
	return nil, data.ErrNotFound
}
func (f *fakeSvc) Start(ctx context.Context, req manager.StartRequest) (*data.Download, error) {
	return nil, nil
}
func (f *fakeSvc) Pause(ctx context.Context, id string) (bool, error)  { return false, nil }
func (f *fakeSvc) Resume(ctx context.Context, id string) (bool, error) { return false, nil }
func (f *fakeSvc) Cancel(ctx context.Context, id string) (bool, error) { return false, nil }
func (f *fakeSvc) InitUpdate(ctx context.Context) (events.Update, error) {
	return events.Update{Type: events.TypeInit}, nil
}

type fakeSearcher struct{}

func (f *fakeSearcher) Search(ctx context.Context, q provider.Query) []data.TorrentResult {
	return nil
}

// fakePinger allows toggling readiness behaviour.
type fakePinger struct{ pingErr error }

func (f *fakePinger) TestConnection(ctx context.Context) error { return f.pingErr }

func newRouter(pingErr error) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := v1.NewHandler(logger, &fakeSvc{}, &fakeSearcher{}, events.NewBroadcaster())
	return router.New(logger, handler, &fakePinger{pingErr: pingErr}, "")
}

func TestHealthzOK(t *testing.T) {
	r := newRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Body.String(); got != "ok" {
		t.Fatalf("expected body 'ok', got %q", got)
	}
}

func TestReadyzSuccess(t *testing.T) {
	r := newRouter(nil)
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestReadyzFailure(t *testing.T) {
	r := newRouter(errors.New("connection refused"))
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestMetricsEndpointEmitsFamilies(t *testing.T) {
	// Register collectors and prime a couple of samples
	metrics.Register()
	metrics.DownloadEvents.WithLabelValues("status").Inc()
	metrics.ClientCallLatency.WithLabelValues("torrents/info").Observe(0.02)
	metrics.ActiveDownloads.Set(2)

	r := newRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "fetcharr_download_events_total") {
		t.Fatalf("missing download_events_total in metrics: %s", body)
	}
	if !strings.Contains(body, "fetcharr_client_call_latency_seconds_count") {
		t.Fatalf("missing client latency histogram in metrics: %s", body)
	}
	if !strings.Contains(body, "fetcharr_active_downloads") {
		t.Fatalf("missing active_downloads gauge in metrics: %s", body)
	}
}
