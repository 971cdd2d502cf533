package manager

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/fetcharr/fetcharr/internal/data"
	"github.com/fetcharr/fetcharr/internal/events"
	"github.com/fetcharr/fetcharr/internal/metrics"
	"github.com/fetcharr/fetcharr/internal/qbit"
)

// maxSaneETA clamps absurd estimates to "unknown". qBittorrent reports
// 8640000 (100 days) when it has no estimate.
const maxSaneETA = int64(100 * 24 * 60 * 60)

// fuzzyPrefixLen bounds name matching to a prefix in both directions, to
// tolerate truncation and token reordering between the stored name and
// the client's resolved one.
const fuzzyPrefixLen = 20

// Run drives the reconciliation timer until ctx is cancelled. Ticks run
// sequentially on this goroutine; when a tick outlasts the interval the
// missed fire is dropped by the ticker, never queued.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.ReconcileInterval)
	defer ticker.Stop()
	m.log.Info("reconciler started", "interval", m.cfg.ReconcileInterval)
	for {
		select {
		case <-ctx.Done():
			m.log.Info("reconciler stopped")
			return
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick executes one reconciliation pass. Transient client failures skip
// the tick silently; nothing is raised to the timer.
func (m *Manager) Tick(ctx context.Context) {
	if !m.client.Enabled() {
		return
	}
	torrents, err := m.client.List(ctx)
	if err != nil {
		metrics.ReconcileErrors.Inc()
		m.log.Debug("download client unreachable, skipping tick", "err", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	list, err := m.repo.List(ctx)
	if err != nil {
		m.log.Error("list downloads", "err", err)
		return
	}

	byHash := make(map[string]qbit.Torrent, len(torrents))
	for _, t := range torrents {
		byHash[strings.ToLower(t.Hash)] = t
	}

	m.bindUnresolved(ctx, list, torrents)

	changed := false
	active := 0
	for _, d := range list {
		if !d.Status.Terminal() {
			active++
		}
		if d.InfoHash == "" || d.Status.Terminal() {
			continue
		}
		t, ok := byHash[d.InfoHash]
		if !ok {
			// the client does not know this hash yet (metadata still
			// resolving) or the job was removed externally; leave as-is
			continue
		}
		if m.applyLiveState(ctx, d, t) {
			changed = true
		}
	}

	if changed {
		// best-effort: a missed persist self-heals on the next tick
		if err := m.repo.Persist(ctx); err != nil {
			m.log.Warn("persist tick", "err", err)
		}
	}
	metrics.ReconcileTicks.Inc()
	metrics.ActiveDownloads.Set(float64(active))
}

// bindUnresolved matches entities that still have no info hash against
// live torrents by name and permanently binds the first hit. The binding
// is never revisited; under concurrent downloads with very similar names
// the first candidate wins, which is a documented limitation.
func (m *Manager) bindUnresolved(ctx context.Context, list data.Downloads, torrents []qbit.Torrent) {
	for _, d := range list {
		if d.InfoHash != "" || d.Status.Terminal() {
			continue
		}
		for _, t := range torrents {
			if _, err := m.repo.GetByHash(ctx, t.Hash); err == nil {
				continue // already bound to some entity
			}
			if !namesMatch(d.Name, t.Name) {
				continue
			}
			if err := m.repo.BindHash(ctx, d.ID, t.Hash); err != nil {
				m.log.Warn("bind fuzzy match", "id", d.ID, "hash", t.Hash, "err", err)
				break
			}
			d.InfoHash = strings.ToLower(t.Hash)
			m.log.Info("resolved info hash by name", "id", d.ID, "name", d.Name, "hash", d.InfoHash)
			break
		}
	}
}

// applyLiveState recomputes the entity's derived fields from the live
// torrent and writes + publishes only when something actually changed.
// Returns true when a write happened.
func (m *Manager) applyLiveState(ctx context.Context, d *data.Download, t qbit.Torrent) bool {
	next := d.Clone()

	if st, ok := t.Status(); ok {
		next.Status = st
	} else {
		// mapping gap: keep the stored status rather than corrupting it
		m.log.Warn("unmapped client state", "id", d.ID, "state", t.State)
	}
	next.Progress = int(math.Round(t.Progress * 100))
	next.DownloadSpeed = t.Dlspeed
	next.UploadSpeed = t.Upspeed
	next.Downloaded = t.Downloaded
	next.Size = t.Size
	if t.ETA > 0 && t.ETA < maxSaneETA {
		eta := t.ETA
		next.ETA = &eta
	} else {
		next.ETA = nil
	}
	if next.Status == data.StatusCompleted {
		next.Progress = 100
		next.ETA = nil
		if d.CompletedAt == nil {
			now := m.now()
			next.CompletedAt = &now
		}
	}
	if next.Status == data.StatusError && d.Status != data.StatusError {
		next.Error = "download client reported state " + t.State
	}

	patch := data.Diff(d, next)
	if patch.Empty() {
		return false
	}

	_, err := m.repo.Update(ctx, d.ID, func(dl *data.Download) error {
		dl.Status = next.Status
		dl.Progress = next.Progress
		dl.DownloadSpeed = next.DownloadSpeed
		dl.UploadSpeed = next.UploadSpeed
		dl.Downloaded = next.Downloaded
		dl.Size = next.Size
		dl.ETA = next.ETA
		dl.CompletedAt = next.CompletedAt
		dl.Error = next.Error
		return nil
	})
	if err != nil {
		m.log.Error("apply live state", "id", d.ID, "err", err)
		return false
	}

	// exactly one event per changed entity per tick
	evType := events.TypeProgress
	switch {
	case next.Status == data.StatusCompleted && d.Status != data.StatusCompleted:
		evType = events.TypeComplete
	case next.Status == data.StatusError && d.Status != data.StatusError:
		evType = events.TypeError
	}
	m.publish(events.Update{Type: evType, DownloadID: d.ID, Data: patch})
	return true
}

// namesMatch implements the bounded-prefix containment heuristic in both
// directions, case-insensitive.
func namesMatch(a, b string) bool {
	la := strings.ToLower(a)
	lb := strings.ToLower(b)
	if la == "" || lb == "" {
		return false
	}
	return strings.Contains(la, prefix(lb, fuzzyPrefixLen)) ||
		strings.Contains(lb, prefix(la, fuzzyPrefixLen))
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
