package storage

import (
	"context"
	"io"

	"returnsdesk/internal/config"
	"returnsdesk/internal/observability"
	contextutils "returnsdesk/internal/utils"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// objectAPI is the subset of the MinIO client the store uses
type objectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	GetObjectReader(ctx context.Context, bucketName, objectName string) (io.ReadCloser, error)
}

// minioClient adapts *minio.Client so GetObject can be faked in tests
type minioClient struct {
	*minio.Client
}

func (c minioClient) GetObjectReader(ctx context.Context, bucketName, objectName string) (io.ReadCloser, error) {
	return c.GetObject(ctx, bucketName, objectName, minio.GetObjectOptions{})
}

// MinioStore keeps images in an S3-compatible bucket under the same relative keys as LocalStore
type MinioStore struct {
	client      objectAPI
	bucket      string
	uniqueNames bool
	logger      *observability.Logger
}

// NewMinioStore connects to the endpoint and creates the bucket when missing
func NewMinioStore(ctx context.Context, cfg config.MinioConfig, uniqueNames bool, logger *observability.Logger) (*MinioStore, error) {
	transport, err := minio.DefaultTransport(cfg.UseSSL)
	if err != nil {
		return nil, contextutils.WrapWithCode(err, contextutils.ErrStorage, "failed to create minio transport")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Transport: otelhttp.NewTransport(transport,
			otelhttp.WithSpanOptions(trace.WithSpanKind(trace.SpanKindClient)),
		),
	})
	if err != nil {
		return nil, contextutils.WrapWithCode(err, contextutils.ErrStorage, "failed to create minio client")
	}

	store := newMinioStore(minioClient{client}, cfg.Bucket, uniqueNames, logger)
	if err := store.ensureBucket(ctx); err != nil {
		return nil, err
	}
	logger.Info(ctx, "Connected to object storage", map[string]interface{}{
		"endpoint": cfg.Endpoint,
		"bucket":   cfg.Bucket,
	})
	return store, nil
}

func newMinioStore(client objectAPI, bucket string, uniqueNames bool, logger *observability.Logger) *MinioStore {
	return &MinioStore{client: client, bucket: bucket, uniqueNames: uniqueNames, logger: logger}
}

func (s *MinioStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return contextutils.WrapWithCode(err, contextutils.ErrStorage, "failed to check bucket")
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return contextutils.WrapWithCode(err, contextutils.ErrStorage, "failed to create bucket "+s.bucket)
	}
	s.logger.Info(ctx, "Created bucket", map[string]interface{}{"bucket": s.bucket})
	return nil
}

// Save uploads the image. An existing object with the same key is replaced.
func (s *MinioStore) Save(ctx context.Context, upload Upload) (relPath string, err error) {
	ctx, span := observability.TraceStorageFunction(ctx, "MinioStore.Save",
		attribute.String("storage.backend", "minio"),
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
	key := relativePath(name)

	size := upload.Size
	if size <= 0 {
		size = -1
	}
	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	info, err := s.client.PutObject(ctx, s.bucket, key, upload.Body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", contextutils.WrapWithCode(err, contextutils.ErrStorage, "failed to upload image")
	}

	span.SetAttributes(attribute.Int64("file.size", info.Size))
	s.logger.Debug(ctx, "Stored image", map[string]interface{}{"bucket": s.bucket, "key": key, "bytes": info.Size})
	return key, nil
}

// Remove deletes the object. MinIO treats missing keys as success.
func (s *MinioStore) Remove(ctx context.Context, relPath string) (err error) {
	ctx, span := observability.TraceStorageFunction(ctx, "MinioStore.Remove", attribute.String("file.path", relPath))
	defer observability.FinishSpan(span, &err)

	name, ok := objectName(relPath)
	if !ok {
		return contextutils.ErrorWithContextf("invalid image path %q", relPath)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, relativePath(name), minio.RemoveObjectOptions{}); err != nil {
		return contextutils.WrapWithCode(err, contextutils.ErrStorage, "failed to remove image")
	}
	return nil
}

// Open streams the object
func (s *MinioStore) Open(ctx context.Context, relPath string) (rc io.ReadCloser, info ObjectInfo, err error) {
	ctx, span := observability.TraceStorageFunction(ctx, "MinioStore.Open", attribute.String("file.path", relPath))
	defer observability.FinishSpan(span, &err)

	name, ok := objectName(relPath)
	if !ok {
		return nil, ObjectInfo{}, contextutils.WrapWithCode(contextutils.ErrorWithContextf("invalid image path %q", relPath), contextutils.ErrRecordNotFound, "image not found")
	}
	key := relativePath(name)

	stat, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ObjectInfo{}, contextutils.WrapWithCode(err, contextutils.ErrRecordNotFound, "image not found")
		}
		return nil, ObjectInfo{}, contextutils.WrapWithCode(err, contextutils.ErrStorage, "failed to stat image")
	}

	reader, err := s.client.GetObjectReader(ctx, s.bucket, key)
	if err != nil {
		return nil, ObjectInfo{}, contextutils.WrapWithCode(err, contextutils.ErrStorage, "failed to read image")
	}

	return reader, ObjectInfo{
		Name:        name,
		Size:        stat.Size,
		ContentType: stat.ContentType,
		ModTime:     stat.LastModified,
	}, nil
}
