// Package blob stores uploaded files on local disk and serves them back by
// URL through the router's static mount.
package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes blobs under a base directory and maps keys to public
// URLs under a base path.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore constructs a LocalStore rooted at dir.
func NewLocalStore(dir, baseURL string) *LocalStore {
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

// Upload writes the blob and returns its public URL. Keys may contain
// forward slashes for grouping; anything escaping the base directory is
// rejected.
func (s *LocalStore) Upload(_ context.Context, key string, data []byte) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("blob: invalid key %q", key)
	}
	target := filepath.Join(s.dir, clean)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("blob: create dir: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("blob: write %q: %w", key, err)
	}
	return s.baseURL + "/" + filepath.ToSlash(clean), nil
}
