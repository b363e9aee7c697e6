// Package store persists project status snapshots as one JSON document per
// project, so status survives process restarts and is visible to any worker
// process sharing the backing storage.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sketchcourse/api/internal/client"
	"github.com/sketchcourse/api/internal/model"
)

// ProjectStore reads and writes project status documents.
type ProjectStore interface {
	Save(ctx context.Context, p *model.Project) error
	// Get returns the snapshot for id; found is false for unknown ids.
	Get(ctx context.Context, id string) (p *model.Project, found bool, err error)
}

func statusKey(id string) string {
	return fmt.Sprintf("projects/%s/status.json", id)
}

// ObjectStore keeps status documents in object storage.
type ObjectStore struct {
	storage client.StorageClient
}

func NewObjectStore(storage client.StorageClient) *ObjectStore {
	return &ObjectStore{storage: storage}
}

func (s *ObjectStore) Save(ctx context.Context, p *model.Project) error {
	return s.storage.PutJSON(ctx, statusKey(p.ID), p)
}

func (s *ObjectStore) Get(ctx context.Context, id string) (*model.Project, bool, error) {
	var p model.Project
	found, err := s.storage.GetJSON(ctx, statusKey(id), &p)
	if err != nil || !found {
		return nil, false, err
	}
	return &p, true, nil
}

// LocalStore keeps the same JSON layout on the local filesystem, used when
// object storage is not configured (development and tests).
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

func (s *LocalStore) path(id string) string {
	return filepath.Join(s.dir, filepath.FromSlash(statusKey(id)))
}

func (s *LocalStore) Save(ctx context.Context, p *model.Project) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	path := s.path(p.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create status dir: %w", err)
	}

	// Write-then-rename so readers never observe a partial document.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write status: %w", err)
	}
	return os.Rename(tmp, path)
}

func (s *LocalStore) Get(ctx context.Context, id string) (*model.Project, bool, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read status: %w", err)
	}

	var p model.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal status: %w", err)
	}
	return &p, true, nil
}
