package data

import (
	"errors"
	"time"
)

// Download is one user-initiated download tracked from submission until it
// is explicitly cancelled. It is owned by the manager; every other package
// sees clones only.
type Download struct {
	ID            string         `json:"id"`
	InfoHash      string         `json:"infoHash"`
	MediaID       string         `json:"mediaId,omitempty"`
	MediaType     string         `json:"mediaType,omitempty"`
	Name          string         `json:"name"`
	Status        DownloadStatus `json:"status"`
	Progress      int            `json:"progress"`
	DownloadSpeed int64          `json:"downloadSpeed"`
	UploadSpeed   int64          `json:"uploadSpeed"`
	Size          int64          `json:"size"`
	Downloaded    int64          `json:"downloaded"`
	ETA           *int64         `json:"eta,omitempty"`
	SavePath      string         `json:"savePath"`
	CreatedAt     time.Time      `json:"createdAt"`
	CompletedAt   *time.Time     `json:"completedAt,omitempty"`
	Error         string         `json:"error,omitempty"`
}

type DownloadStatus string

const (
	StatusQueued      DownloadStatus = "queued"
	StatusDownloading DownloadStatus = "downloading"
	StatusPaused      DownloadStatus = "paused"
	StatusCompleted   DownloadStatus = "completed"
	StatusError       DownloadStatus = "error"
)

// Terminal reports whether reconciliation may still move this status.
func (s DownloadStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

type Downloads []*Download

var (
	ErrNotFound      = errors.New("download not found")
	ErrBadStatus     = errors.New("invalid status")
	ErrNoInfoHash    = errors.New("download has no resolved info hash")
	ErrHashBound     = errors.New("info hash already bound to another download")
	ErrInvalidSource = errors.New("source is required")
)

// Clone returns a deep copy so callers can hold a snapshot without racing
// the owner's mutations.
func (d *Download) Clone() *Download {
	if d == nil {
		return nil
	}
	cp := *d
	if d.ETA != nil {
		v := *d.ETA
		cp.ETA = &v
	}
	if d.CompletedAt != nil {
		t := *d.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

func (ds Downloads) Clone() Downloads {
	out := make(Downloads, len(ds))
	for i, d := range ds {
		out[i] = d.Clone()
	}
	return out
}

// Patch carries the fields of a Download that changed during one logical
// operation. Nil pointers mean "unchanged"; events embed a Patch so
// subscribers only see deltas.
type Patch struct {
	Status        *DownloadStatus `json:"status,omitempty"`
	Progress      *int            `json:"progress,omitempty"`
	DownloadSpeed *int64          `json:"downloadSpeed,omitempty"`
	UploadSpeed   *int64          `json:"uploadSpeed,omitempty"`
	Size          *int64          `json:"size,omitempty"`
	Downloaded    *int64          `json:"downloaded,omitempty"`
	ETA           *int64          `json:"eta,omitempty"`
	InfoHash      *string         `json:"infoHash,omitempty"`
	CompletedAt   *time.Time      `json:"completedAt,omitempty"`
	Error         *string         `json:"error,omitempty"`
}

// Empty reports whether the patch carries no changes at all.
func (p *Patch) Empty() bool {
	if p == nil {
		return true
	}
	return p.Status == nil && p.Progress == nil && p.DownloadSpeed == nil &&
		p.UploadSpeed == nil && p.Size == nil && p.Downloaded == nil &&
		p.ETA == nil && p.InfoHash == nil && p.CompletedAt == nil && p.Error == nil
}

// Diff computes the patch that turns prev into next. Both arguments must be
// snapshots of the same download.
func Diff(prev, next *Download) *Patch {
	p := &Patch{}
	if prev.Status != next.Status {
		s := next.Status
		p.Status = &s
	}
	if prev.Progress != next.Progress {
		v := next.Progress
		p.Progress = &v
	}
	if prev.DownloadSpeed != next.DownloadSpeed {
		v := next.DownloadSpeed
		p.DownloadSpeed = &v
	}
	if prev.UploadSpeed != next.UploadSpeed {
		v := next.UploadSpeed
		p.UploadSpeed = &v
	}
	if prev.Size != next.Size {
		v := next.Size
		p.Size = &v
	}
	if prev.Downloaded != next.Downloaded {
		v := next.Downloaded
		p.Downloaded = &v
	}
	if !eqInt64Ptr(prev.ETA, next.ETA) && next.ETA != nil {
		v := *next.ETA
		p.ETA = &v
	}
	if prev.InfoHash != next.InfoHash {
		v := next.InfoHash
		p.InfoHash = &v
	}
	if prev.CompletedAt == nil && next.CompletedAt != nil {
		t := *next.CompletedAt
		p.CompletedAt = &t
	}
	if prev.Error != next.Error && next.Error != "" {
		v := next.Error
		p.Error = &v
	}
	return p
}

func eqInt64Ptr(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
