// Package backup snapshots the legacy tree before conversion and removes a
// partial target tree after a failed one.
package backup

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/viant/afs"
)

const layout = "2006-01-02_15-04-05"

type Service struct {
	fs afs.Service
}

func New() *Service {
	return &Service{fs: afs.New()}
}

// Path is the sibling directory a backup of root taken at now is written to.
func Path(root string, now time.Time) string {
	return filepath.Clean(root) + "_backup_" + now.Format(layout)
}

// Backup copies root to Path(root, now) and returns that path. An existing
// backup with the same timestamp is never overwritten.
func (s *Service) Backup(ctx context.Context, root string, now time.Time) (string, error) {
	dst := Path(root, now)
	exists, err := s.fs.Exists(ctx, dst)
	if err != nil {
		return "", fmt.Errorf("failed to check backup %s: %w", dst, err)
	}
	if exists {
		return "", fmt.Errorf("backup %s already exists", dst)
	}
	if err := s.fs.Copy(ctx, filepath.Clean(root), dst); err != nil {
		return "", fmt.Errorf("failed to copy %s to %s: %w", root, dst, err)
	}
	return dst, nil
}

// Remove deletes path and everything below it. A missing path is not an error.
func (s *Service) Remove(ctx context.Context, path string) error {
	exists, err := s.fs.Exists(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", path, err)
	}
	if !exists {
		return nil
	}
	if err := s.fs.Delete(ctx, path); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}
