package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// LocalStore keeps blobs on the local filesystem under root/<scope>/<uuid>-<name>.
// The returned locator is the path relative to root.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) Store(_ context.Context, ownerScope, name string, data []byte) (string, error) {
	dir := filepath.Join(s.root, ownerScope)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create scope dir: %w", err)
	}
	locator := filepath.Join(ownerScope, uuid.NewString()+"-"+filepath.Base(name))
	if err := os.WriteFile(filepath.Join(s.root, locator), data, 0o644); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	return locator, nil
}

func (s *LocalStore) Fetch(_ context.Context, locator string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, filepath.Clean(locator)))
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", locator, err)
	}
	return data, nil
}
