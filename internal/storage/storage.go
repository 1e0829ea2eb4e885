// Package storage persists uploaded return images on local disk or in an S3-compatible bucket.
package storage

import (
	"context"
	"io"
	"path"
	"strings"
	"time"

	"returnsdesk/internal/config"
	"returnsdesk/internal/observability"
)

// PublicPrefix is the relative path stored in returns.image_path and served by the web UI
const PublicPrefix = "static/uploads"

// Upload is a single image file taken from a multipart form or the CLI
type Upload struct {
	Filename    string
	Size        int64
	ContentType string
	Body        io.Reader
}

// ObjectInfo describes a stored image
type ObjectInfo struct {
	Name        string
	Size        int64
	ContentType string
	ModTime     time.Time
}

// ImageStore saves, opens and removes images by their relative path
type ImageStore interface {
	// Save writes the upload under its (already sanitized) filename and returns the relative path
	Save(ctx context.Context, upload Upload) (string, error)
	Remove(ctx context.Context, relPath string) error
	Open(ctx context.Context, relPath string) (io.ReadCloser, ObjectInfo, error)
}

// New builds the store selected by uploads.backend
func New(ctx context.Context, cfg *config.Config, logger *observability.Logger) (ImageStore, error) {
	if cfg.UseMinio() {
		return NewMinioStore(ctx, cfg.Uploads.Minio, cfg.Uploads.UniqueNames, logger)
	}
	return NewLocalStore(cfg.Uploads.Dir, cfg.Uploads.UniqueNames, logger), nil
}

// relativePath joins a stored object name with the public prefix
func relativePath(name string) string {
	return path.Join(PublicPrefix, name)
}

// objectName extracts the bare file name from a relative path and rejects anything
// that would not round-trip through SanitizeFilename.
func objectName(relPath string) (string, bool) {
	relPath = strings.ReplaceAll(relPath, "\\", "/")
	name := strings.TrimPrefix(strings.TrimPrefix(relPath, "/"), PublicPrefix+"/")
	if name == "" || strings.Contains(name, "/") {
		return "", false
	}
	if SanitizeFilename(name) != name {
		return "", false
	}
	return name, true
}
