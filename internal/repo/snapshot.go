package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fetcharr/fetcharr/internal/data"
)

// SnapshotStore persists the full download table as one unit and reads it
// back once at process start.
type SnapshotStore interface {
	Save(ctx context.Context, downloads data.Downloads) error
	Load(ctx context.Context) (data.Downloads, error)
}

// FileSnapshotStore writes the table as a JSON file. Saves go through a
// temp file and an atomic rename so a crash mid-write leaves the previous
// snapshot intact.
type FileSnapshotStore struct {
	path string
}

func NewFileSnapshotStore(path string) *FileSnapshotStore {
	return &FileSnapshotStore{path: path}
}

func (s *FileSnapshotStore) Save(ctx context.Context, downloads data.Downloads) error {
	b, err := json.MarshalIndent(downloads, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".downloads-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *FileSnapshotStore) Load(ctx context.Context) (data.Downloads, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var downloads data.Downloads
	if err := json.Unmarshal(b, &downloads); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", s.path, err)
	}
	return downloads, nil
}
