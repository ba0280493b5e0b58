// Package objectstore fetches uploaded workbooks from MinIO and archives
// ingested ones by content hash.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/ukaji3/schedstruct-go/internal/logging"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ErrObjectNotFound indicates the requested key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// MinIOAPI is the subset of the MinIO client used here. GetObject returns a
// plain reader so that tests can fake it.
type MinIOAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
}

// clientAdapter narrows *minio.Client to MinIOAPI.
type clientAdapter struct {
	*minio.Client
}

func (c clientAdapter) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return c.Client.GetObject(ctx, bucketName, objectName, opts)
}

// Config configures the MinIO connection.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// Store reads and writes workbooks in one bucket.
type Store struct {
	client MinIOAPI
	bucket string
	log    logging.Logger
}

// New connects to MinIO.
func New(cfg Config, log logging.Logger) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return NewWithClient(clientAdapter{client}, cfg.Bucket, log), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client MinIOAPI, bucket string, log logging.Logger) *Store {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Store{client: client, bucket: bucket, log: log}
}

// Bucket returns the bucket name.
func (s *Store) Bucket() string { return s.bucket }

// EnsureBucket creates the bucket if it is missing.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	s.log.Info("bucket created", logging.String("bucket", s.bucket))
	return nil
}

// Fetch reads an object into memory.
func (s *Store) Fetch(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.wrap(key, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.wrap(key, err)
	}
	return data, nil
}

// ArchiveKey is the object key of an archived workbook.
func ArchiveKey(hash string) string {
	return "workbooks/" + hash + ".xlsx"
}

// Archive stores workbook bytes under their content hash. An existing
// archive is left untouched.
func (s *Store) Archive(ctx context.Context, hash, sourceName string, data []byte) (string, error) {
	key := ArchiveKey(hash)
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err == nil {
		return key, nil
	} else if !isNotFound(err) {
		return "", s.wrap(key, err)
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  xlsxContentType,
		UserMetadata: map[string]string{"source-name": sourceName},
	})
	if err != nil {
		return "", s.wrap(key, err)
	}
	s.log.Debug("workbook archived", logging.String("key", key), logging.Int("bytes", len(data)))
	return key, nil
}

func (s *Store) wrap(key string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%w: %s/%s", ErrObjectNotFound, s.bucket, key)
	}
	return fmt.Errorf("object %s/%s: %w", s.bucket, key, err)
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchBucket"
}
