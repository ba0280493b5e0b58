package objectstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockMinIO struct {
	mock.Mock
}

func (m *mockMinIO) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *mockMinIO) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return m.Called(ctx, bucketName, opts).Error(0)
}

func (m *mockMinIO) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucketName, objectName, reader, objectSize, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func (m *mockMinIO) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	return args.Get(0).(minio.ObjectInfo), args.Error(1)
}

func (m *mockMinIO) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	if rc, ok := args.Get(0).(io.ReadCloser); ok {
		return rc, args.Error(1)
	}
	return nil, args.Error(1)
}

var noSuchKey = minio.ErrorResponse{Code: "NoSuchKey", Message: "The specified key does not exist."}

func TestEnsureBucket(t *testing.T) {
	m := new(mockMinIO)
	s := NewWithClient(m, "timetables", nil)

	m.On("BucketExists", mock.Anything, "timetables").Return(false, nil).Once()
	m.On("MakeBucket", mock.Anything, "timetables", minio.MakeBucketOptions{}).Return(nil).Once()
	require.NoError(t, s.EnsureBucket(context.Background()))

	m.On("BucketExists", mock.Anything, "timetables").Return(true, nil).Once()
	require.NoError(t, s.EnsureBucket(context.Background()))
	m.AssertExpectations(t)
}

func TestFetch(t *testing.T) {
	m := new(mockMinIO)
	s := NewWithClient(m, "timetables", nil)

	m.On("GetObject", mock.Anything, "timetables", "uploads/winter.xlsx", minio.GetObjectOptions{}).
		Return(io.NopCloser(strings.NewReader("xlsx-bytes")), nil)
	data, err := s.Fetch(context.Background(), "uploads/winter.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "xlsx-bytes", string(data))
}

func TestFetchMissing(t *testing.T) {
	m := new(mockMinIO)
	s := NewWithClient(m, "timetables", nil)

	m.On("GetObject", mock.Anything, "timetables", "nope.xlsx", minio.GetObjectOptions{}).Return(nil, noSuchKey)
	_, err := s.Fetch(context.Background(), "nope.xlsx")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestArchive(t *testing.T) {
	m := new(mockMinIO)
	s := NewWithClient(m, "timetables", nil)
	key := ArchiveKey("abc")
	assert.Equal(t, "workbooks/abc.xlsx", key)

	m.On("StatObject", mock.Anything, "timetables", key, minio.StatObjectOptions{}).
		Return(minio.ObjectInfo{}, noSuchKey).Once()
	m.On("PutObject", mock.Anything, "timetables", key, mock.Anything, int64(4),
		mock.MatchedBy(func(o minio.PutObjectOptions) bool {
			return o.ContentType == xlsxContentType && o.UserMetadata["source-name"] == "winter.xlsx"
		})).Return(minio.UploadInfo{Key: key}, nil).Once()

	got, err := s.Archive(context.Background(), "abc", "winter.xlsx", []byte("data"))
	require.NoError(t, err)
	assert.Equal(t, key, got)

	// Already archived: no second upload.
	m.On("StatObject", mock.Anything, "timetables", key, minio.StatObjectOptions{}).
		Return(minio.ObjectInfo{Key: key}, nil).Once()
	_, err = s.Archive(context.Background(), "abc", "winter.xlsx", []byte("data"))
	require.NoError(t, err)
	m.AssertNumberOfCalls(t, "PutObject", 1)
}

func TestArchiveStatError(t *testing.T) {
	m := new(mockMinIO)
	s := NewWithClient(m, "timetables", nil)

	m.On("StatObject", mock.Anything, "timetables", ArchiveKey("abc"), minio.StatObjectOptions{}).
		Return(minio.ObjectInfo{}, errors.New("access denied"))
	_, err := s.Archive(context.Background(), "abc", "winter.xlsx", []byte("data"))
	assert.ErrorContains(t, err, "access denied")
	m.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
