package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"returnsdesk/internal/observability"
	contextutils "returnsdesk/internal/utils"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// LocalStore keeps images in a directory on disk
type LocalStore struct {
	root        string
	uniqueNames bool
	logger      *observability.Logger
}

// NewLocalStore creates a store rooted at dir. The directory is created on first save.
func NewLocalStore(dir string, uniqueNames bool, logger *observability.Logger) *LocalStore {
	return &LocalStore{root: dir, uniqueNames: uniqueNames, logger: logger}
}

// Root returns the directory images are written to
func (s *LocalStore) Root() string { return s.root }

// Save writes the upload, replacing any file with the same name unless unique names are on
func (s *LocalStore) Save(ctx context.Context, upload Upload) (relPath string, err error) {
	ctx, span := observability.TraceStorageFunction(ctx, "LocalStore.Save",
		attribute.String("storage.backend", "local"),
		attribute.String("file.name", upload.Filename),
	)
	defer observability.FinishSpan(span, &err)

	name := SanitizeFilename(upload.Filename)
	if name == "" {
		return "", contextutils.ErrorWithContextf("refusing to store unnamed upload")
	}
	if s.uniqueNames {
		name = uuid.NewString() + "_" + name
	}

	full, err := s.resolve(name)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", contextutils.WrapWithCode(err, contextutils.ErrStorage, "failed to create upload directory")
	}

	f, err := os.Create(full)
	if err != nil {
		return "", contextutils.WrapWithCode(err, contextutils.ErrStorage, "failed to create image file")
	}
	written, copyErr := io.Copy(f, upload.Body)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(full)
		return "", contextutils.WrapWithCode(errors.Join(copyErr, closeErr), contextutils.ErrStorage, "failed to write image file")
	}

	span.SetAttributes(attribute.Int64("file.size", written))
	s.logger.Debug(ctx, "Stored image", map[string]interface{}{"path": full, "bytes": written})
	return relativePath(name), nil
}

// Remove deletes a stored image. Missing files are not an error.
func (s *LocalStore) Remove(ctx context.Context, relPath string) (err error) {
	_, span := observability.TraceStorageFunction(ctx, "LocalStore.Remove", attribute.String("file.path", relPath))
	defer observability.FinishSpan(span, &err)

	name, ok := objectName(relPath)
	if !ok {
		return contextutils.ErrorWithContextf("invalid image path %q", relPath)
	}
	full, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return contextutils.WrapWithCode(err, contextutils.ErrStorage, "failed to remove image file")
	}
	return nil
}

// Open returns the stored image for streaming to the client
func (s *LocalStore) Open(ctx context.Context, relPath string) (rc io.ReadCloser, info ObjectInfo, err error) {
	_, span := observability.TraceStorageFunction(ctx, "LocalStore.Open", attribute.String("file.path", relPath))
	defer observability.FinishSpan(span, &err)

	name, ok := objectName(relPath)
	if !ok {
		return nil, ObjectInfo{}, contextutils.WrapWithCode(errors.New(relPath), contextutils.ErrRecordNotFound, "image not found")
	}
	full, err := s.resolve(name)
	if err != nil {
		return nil, ObjectInfo{}, err
	}

	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ObjectInfo{}, contextutils.WrapWithCode(err, contextutils.ErrRecordNotFound, "image not found")
		}
		return nil, ObjectInfo{}, contextutils.WrapWithCode(err, contextutils.ErrStorage, "failed to open image file")
	}
	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, ObjectInfo{}, contextutils.WrapWithCode(err, contextutils.ErrStorage, "failed to stat image file")
	}

	contentType := "application/octet-stream"
	if detected, derr := mimetype.DetectFile(full); derr == nil {
		contentType = detected.String()
	}

	return f, ObjectInfo{
		Name:        name,
		Size:        stat.Size(),
		ContentType: contentType,
		ModTime:     stat.ModTime(),
	}, nil
}

// resolve joins name onto the root and makes sure the result stays inside it
func (s *LocalStore) resolve(name string) (string, error) {
	root, err := filepath.Abs(s.root)
	if err != nil {
		return "", contextutils.WrapWithCode(err, contextutils.ErrStorage, "failed to resolve upload directory")
	}
	full := filepath.Join(root, name)
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return "", contextutils.ErrorWithContextf("image path %q escapes upload directory", name)
	}
	return full, nil
}
