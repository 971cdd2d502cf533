package repo

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/fetcharr/fetcharr/internal/data"
)

// InMemoryDownloadRepo is the authoritative in-memory table of downloads,
// optionally backed by a snapshot store for crash recovery. All reads
// return clones; callers never see live rows.
type InMemoryDownloadRepo struct {
	mu        sync.RWMutex
	downloads data.Downloads
	byID      map[string]*data.Download
	byHash    map[string]string // lower-case info hash -> download ID
	store     SnapshotStore
}

// NewInMemoryDownloadRepo builds an empty repo. store may be nil for
// tests; Persist is then a no-op.
func NewInMemoryDownloadRepo(store SnapshotStore) *InMemoryDownloadRepo {
	return &InMemoryDownloadRepo{
		downloads: make(data.Downloads, 0),
		byID:      make(map[string]*data.Download),
		byHash:    make(map[string]string),
		store:     store,
	}
}

// Restore loads the snapshot from the store and rebuilds the table and
// the hash index. Called once at process start, before any writer exists.
func (r *InMemoryDownloadRepo) Restore(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	rows, err := r.store.Load(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range rows {
		r.downloads = append(r.downloads, d)
		r.byID[d.ID] = d
		if d.InfoHash != "" {
			r.byHash[strings.ToLower(d.InfoHash)] = d.ID
		}
	}
	return nil
}

func (r *InMemoryDownloadRepo) List(ctx context.Context) (data.Downloads, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.downloads.Clone(), nil
}

func (r *InMemoryDownloadRepo) Get(ctx context.Context, id string) (*data.Download, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	if !ok {
		return nil, data.ErrNotFound
	}
	return d.Clone(), nil
}

func (r *InMemoryDownloadRepo) GetByHash(ctx context.Context, hash string) (*data.Download, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byHash[strings.ToLower(hash)]
	if !ok {
		return nil, data.ErrNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *InMemoryDownloadRepo) Add(ctx context.Context, d *data.Download) (*data.Download, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	cp := d.Clone()
	r.downloads = append(r.downloads, cp)
	r.byID[cp.ID] = cp
	if cp.InfoHash != "" {
		r.byHash[strings.ToLower(cp.InfoHash)] = cp.ID
	}
	return cp.Clone(), nil
}

func (r *InMemoryDownloadRepo) Update(ctx context.Context, id string, mutate func(*data.Download) error) (*data.Download, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok {
		return nil, data.ErrNotFound
	}
	prevHash := strings.ToLower(d.InfoHash)
	if mutate != nil {
		if err := mutate(d); err != nil {
			return nil, err
		}
	}
	if h := strings.ToLower(d.InfoHash); h != prevHash {
		if prevHash != "" {
			delete(r.byHash, prevHash)
		}
		if h != "" {
			r.byHash[h] = id
		}
	}
	return d.Clone(), nil
}

func (r *InMemoryDownloadRepo) BindHash(ctx context.Context, id, hash string) error {
	hash = strings.ToLower(hash)
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok {
		return data.ErrNotFound
	}
	if bound, ok := r.byHash[hash]; ok && bound != id {
		return data.ErrHashBound
	}
	d.InfoHash = hash
	r.byHash[hash] = id
	return nil
}

func (r *InMemoryDownloadRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok {
		return data.ErrNotFound
	}
	delete(r.byID, id)
	if d.InfoHash != "" {
		delete(r.byHash, strings.ToLower(d.InfoHash))
	}
	for i, dl := range r.downloads {
		if dl.ID == id {
			r.downloads = append(r.downloads[:i], r.downloads[i+1:]...)
			break
		}
	}
	return nil
}

// Persist writes the whole table as one snapshot. O(n) per call, which is
// fine at personal-queue scale.
func (r *InMemoryDownloadRepo) Persist(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	r.mu.RLock()
	snapshot := r.downloads.Clone()
	r.mu.RUnlock()
	return r.store.Save(ctx, snapshot)
}
