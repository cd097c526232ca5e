package storage

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"path/filepath"
	"strings"
	"time"
)

type UploadInput struct {
	Key         string
	ContentType string
	Body        io.Reader
	Size        int64
}

// Service stores uploaded media. PutObject returns the public URL of the
// stored object.
type Service interface {
	PutObject(ctx context.Context, in UploadInput) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

// UniqueKey builds an object key from an original filename, prefixed so two
// uploads of the same file never collide.
func UniqueKey(originalName string) string {
	base := filepath.Base(strings.TrimSpace(originalName))
	if base == "" || base == "." {
		base = "upload"
	}
	return fmt.Sprintf("%d-%d-%s", time.Now().UnixMilli(), rand.Intn(1_000_000_000), base)
}
