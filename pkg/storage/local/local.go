// Package local stores uploads on the local filesystem, the default when no
// object storage is configured. Files land under a single directory that the
// HTTP layer serves as /public/.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dimasfh/sociagram/pkg/storage"
)

type Store struct {
	dir       string
	publicURL string
}

func New(dir, publicURL string) (*Store, error) {
	dir = filepath.Clean(strings.TrimSpace(dir))
	if dir == "" || dir == "." {
		dir = "public"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Store{dir: dir, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) PutObject(ctx context.Context, in storage.UploadInput) (string, error) {
	key := sanitizeKey(in.Key)
	if key == "" {
		return "", fmt.Errorf("empty object key")
	}

	path := filepath.Join(s.dir, key)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, in.Body); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return s.objectURL(key), nil
}

func (s *Store) DeleteObject(ctx context.Context, key string) error {
	key = sanitizeKey(key)
	if key == "" {
		return nil
	}
	path := filepath.Join(s.dir, key)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return os.Remove(path)
}

func (s *Store) objectURL(key string) string {
	if s.publicURL != "" {
		return s.publicURL + "/public/" + key
	}
	return "/public/" + key
}

// sanitizeKey keeps object keys inside the upload directory.
func sanitizeKey(key string) string {
	key = filepath.Base(strings.TrimSpace(key))
	if key == "." || key == ".." || key == "/" {
		return ""
	}
	return key
}

var _ storage.Service = (*Store)(nil)
