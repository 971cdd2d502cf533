package repo

import (
	"context"

	"github.com/fetcharr/fetcharr/internal/data"
)

type DownloadRepo interface {
	DownloadReader
	DownloadWriter
}

type DownloadReader interface {
	List(ctx context.Context) (data.Downloads, error)
	Get(ctx context.Context, id string) (*data.Download, error)
	// GetByHash resolves a download via the lower-case info hash secondary
	// index. Returns data.ErrNotFound when no live binding exists.
	GetByHash(ctx context.Context, hash string) (*data.Download, error)
}

type DownloadWriter interface {
	Add(ctx context.Context, d *data.Download) (*data.Download, error)
	// Update applies mutate under the repo's lock and returns the updated
	// snapshot. A change to InfoHash re-indexes the hash binding.
	Update(ctx context.Context, id string, mutate func(*data.Download) error) (*data.Download, error)
	// BindHash permanently associates an info hash with a download. At
	// most one live binding per hash; binding the same pair again is a
	// no-op, a conflicting binding returns data.ErrHashBound.
	BindHash(ctx context.Context, id, hash string) error
	Delete(ctx context.Context, id string) error
	// Persist flushes the full table to durable storage. Backends with
	// per-write durability treat this as a no-op.
	Persist(ctx context.Context) error
}
