// Package manager orchestrates the download lifecycle: submission to the
// download client, user-driven transitions, and the reconciliation loop
// that merges the client's live state back into the store.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fetcharr/fetcharr/internal/data"
	"github.com/fetcharr/fetcharr/internal/events"
	"github.com/fetcharr/fetcharr/internal/metrics"
	"github.com/fetcharr/fetcharr/internal/qbit"
	"github.com/fetcharr/fetcharr/internal/release"
	"github.com/fetcharr/fetcharr/internal/repo"
)

// ErrClientDisabled is returned when a submission arrives while no
// download client is configured. The entity still lands in the store, in
// error state, so the failure stays visible and retryable.
var ErrClientDisabled = errors.New("download client is not configured")

// Client is the download client capability the manager consumes.
type Client interface {
	Enabled() bool
	List(ctx context.Context) ([]qbit.Torrent, error)
	Add(ctx context.Context, magnetOrURL string, opts qbit.AddOptions) error
	Pause(ctx context.Context, hash string) error
	Resume(ctx context.Context, hash string) error
	Delete(ctx context.Context, hash string, deleteFiles bool) error
}

type Config struct {
	SavePath          string
	MovieCategory     string
	EpisodeCategory   string
	ReconcileInterval time.Duration
}

// StartRequest is one submission. MagnetOrURL is a magnet URI or a
// .torrent download URL; Name overrides the display name derived from the
// magnet's dn parameter.
type StartRequest struct {
	MagnetOrURL string `json:"magnetOrUrl"`
	Name        string `json:"name,omitempty"`
	MediaID     string `json:"mediaId,omitempty"`
	MediaType   string `json:"mediaType,omitempty"`
}

// Manager is a single-writer actor over the download store: one mutex
// serializes submissions, user actions and reconciliation ticks, each
// held for the full logical operation.
type Manager struct {
	mu     sync.Mutex
	repo   repo.DownloadRepo
	client Client
	bus    *events.Broadcaster
	log    *slog.Logger
	cfg    Config

	now func() time.Time
}

func New(log *slog.Logger, r repo.DownloadRepo, client Client, bus *events.Broadcaster, cfg Config) *Manager {
	if log == nil {
		log = slog.Default()
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = 2 * time.Second
	}
	return &Manager{repo: r, client: client, bus: bus, log: log, cfg: cfg, now: time.Now}
}

func (m *Manager) List(ctx context.Context) (data.Downloads, error) {
	return m.repo.List(ctx)
}

func (m *Manager) Get(ctx context.Context, id string) (*data.Download, error) {
	return m.repo.Get(ctx, id)
}

// InitUpdate builds the one-shot snapshot update a late-joining subscriber
// requests to synchronize initial state.
func (m *Manager) InitUpdate(ctx context.Context) (events.Update, error) {
	list, err := m.repo.List(ctx)
	if err != nil {
		return events.Update{}, err
	}
	return events.Update{Type: events.TypeInit, Snapshot: list}, nil
}

// Start submits a new download. The entity is persisted in queued state
// before any external call, so a crash mid-submission leaves a visible,
// retryable record. Submission errors are both recorded on the entity and
// returned to the caller.
func (m *Manager) Start(ctx context.Context, req StartRequest) (*data.Download, error) {
	source := strings.TrimSpace(req.MagnetOrURL)
	if source == "" {
		return nil, data.ErrInvalidSource
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	d := &data.Download{
		Name:      displayName(req, source),
		MediaID:   req.MediaID,
		MediaType: req.MediaType,
		Status:    data.StatusQueued,
		SavePath:  m.cfg.SavePath,
		CreatedAt: m.now(),
	}
	d, err := m.repo.Add(ctx, d)
	if err != nil {
		return nil, err
	}
	if err := m.repo.Persist(ctx); err != nil {
		return nil, fmt.Errorf("persist submission: %w", err)
	}

	if !m.client.Enabled() {
		return m.failSubmission(ctx, d, ErrClientDisabled)
	}

	opts := qbit.AddOptions{Category: m.categoryFor(req.MediaType), SavePath: m.cfg.SavePath}
	if err := m.client.Add(ctx, source, opts); err != nil {
		return m.failSubmission(ctx, d, fmt.Errorf("submit to download client: %w", err))
	}

	hash, err := release.InfoHashFromMagnet(source)
	if err != nil {
		// recoverable: the hash binds opportunistically during reconciliation
		m.log.Warn("could not extract info hash, will match by name", "id", d.ID, "err", err)
	} else if err := m.repo.BindHash(ctx, d.ID, hash); err != nil {
		m.log.Warn("bind hash", "id", d.ID, "hash", hash, "err", err)
	}

	d, err = m.repo.Update(ctx, d.ID, func(dl *data.Download) error {
		dl.Status = data.StatusDownloading
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := m.repo.Persist(ctx); err != nil {
		m.log.Error("persist after submission", "id", d.ID, "err", err)
	}

	m.publish(events.Update{
		Type:       events.TypeStatus,
		DownloadID: d.ID,
		Data:       statusPatch(d.Status, d.InfoHash),
	})
	m.log.Info("download started", "id", d.ID, "name", d.Name, "hash", d.InfoHash)
	return d, nil
}

// failSubmission records the failure on the entity and re-raises it.
func (m *Manager) failSubmission(ctx context.Context, d *data.Download, cause error) (*data.Download, error) {
	updated, err := m.repo.Update(ctx, d.ID, func(dl *data.Download) error {
		dl.Status = data.StatusError
		dl.Error = cause.Error()
		return nil
	})
	if err != nil {
		m.log.Error("record submission failure", "id", d.ID, "err", err)
		updated = d
	}
	if err := m.repo.Persist(ctx); err != nil {
		m.log.Error("persist submission failure", "id", d.ID, "err", err)
	}
	msg := cause.Error()
	st := data.StatusError
	m.publish(events.Update{
		Type:       events.TypeError,
		DownloadID: d.ID,
		Data:       &data.Patch{Status: &st, Error: &msg},
	})
	return updated, cause
}

// Pause pauses a download. Entities with no resolved info hash fail
// gracefully with ok=false rather than erroring: there is nothing to
// address on the client yet.
func (m *Manager) Pause(ctx context.Context, id string) (bool, error) {
	return m.userTransition(ctx, id, data.StatusPaused, m.client.Pause)
}

// Resume moves a paused download back to downloading. Resuming an
// already-active download is safe: the client call is idempotent and the
// next reconciliation tick restores whatever the client says is true.
func (m *Manager) Resume(ctx context.Context, id string) (bool, error) {
	return m.userTransition(ctx, id, data.StatusDownloading, m.client.Resume)
}

func (m *Manager) userTransition(ctx context.Context, id string, to data.DownloadStatus, op func(context.Context, string) error) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.repo.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if d.Status.Terminal() {
		return false, fmt.Errorf("%w: %s download cannot be %s", data.ErrBadStatus, d.Status, to)
	}
	if d.InfoHash == "" {
		return false, nil
	}
	if err := op(ctx, d.InfoHash); err != nil {
		return false, fmt.Errorf("download client: %w", err)
	}
	d, err = m.repo.Update(ctx, id, func(dl *data.Download) error {
		dl.Status = to
		return nil
	})
	if err != nil {
		return false, err
	}
	if err := m.repo.Persist(ctx); err != nil {
		m.log.Error("persist transition", "id", id, "err", err)
	}
	m.publish(events.Update{
		Type:       events.TypeStatus,
		DownloadID: id,
		Data:       statusPatch(d.Status, ""),
	})
	return true, nil
}

// Cancel removes the download entirely: the client job is deleted along
// with its data first, then the local row. A failed remote delete does
// not block local removal; the UI must never be stuck with an
// un-cancelable ghost.
func (m *Manager) Cancel(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.repo.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if d.InfoHash == "" {
		return false, nil
	}
	if err := m.client.Delete(ctx, d.InfoHash, true); err != nil {
		m.log.Warn("delete on client failed, removing local row anyway", "id", id, "hash", d.InfoHash, "err", err)
	}
	if err := m.repo.Delete(ctx, id); err != nil {
		return false, err
	}
	if err := m.repo.Persist(ctx); err != nil {
		m.log.Error("persist cancel", "id", id, "err", err)
	}
	m.log.Info("download cancelled", "id", id, "name", d.Name)
	return true, nil
}

func (m *Manager) categoryFor(mediaType string) string {
	if mediaType == "episode" || mediaType == "tv" {
		return m.cfg.EpisodeCategory
	}
	return m.cfg.MovieCategory
}

func (m *Manager) publish(u events.Update) {
	metrics.DownloadEvents.WithLabelValues(string(u.Type)).Inc()
	if m.bus != nil {
		m.bus.Publish(u)
	}
}

func statusPatch(s data.DownloadStatus, hash string) *data.Patch {
	p := &data.Patch{Status: &s}
	if hash != "" {
		p.InfoHash = &hash
	}
	return p
}

// displayName prefers the caller-supplied override, then the magnet's dn
// parameter, then the raw source.
func displayName(req StartRequest, source string) string {
	if req.Name != "" {
		return req.Name
	}
	if strings.HasPrefix(source, "magnet:") {
		if u, err := url.Parse(source); err == nil {
			if dn := u.Query().Get("dn"); dn != "" {
				return dn
			}
		}
	}
	return source
}
