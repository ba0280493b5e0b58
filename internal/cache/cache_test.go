package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/schedstruct-go/internal/logging"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/models"
)

func testRegistry() *models.Registry {
	return &models.Registry{
		Instructors: []models.Instructor{{ID: "i1", PrimaryName: "John Doe", AlternateForms: []string{"J. Doe"}}},
		Subjects:    []models.Subject{{ID: "s1", Name: "Databases"}},
	}
}

func TestRegistryCacheHit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRegistryCache(db, time.Minute, logging.NewNopLogger())

	raw, err := json.Marshal(testRegistry())
	require.NoError(t, err)
	mock.ExpectGet("schedstruct:registry").SetVal(string(raw))

	reg, ok, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, testRegistry(), reg)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistryCacheMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRegistryCache(db, time.Minute, nil)

	mock.ExpectGet("schedstruct:registry").RedisNil()
	reg, ok, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, reg)

	mock.ExpectGet("schedstruct:registry").SetVal("{not json")
	_, ok, err = c.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectGet("schedstruct:registry").SetErr(errors.New("connection refused"))
	_, _, err = c.Get(context.Background())
	assert.ErrorContains(t, err, "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistryCacheSetAndInvalidate(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRegistryCache(db, 10*time.Minute, nil)

	raw, err := json.Marshal(testRegistry())
	require.NoError(t, err)
	mock.ExpectSet("schedstruct:registry", raw, 10*time.Minute).SetVal("OK")
	mock.ExpectDel("schedstruct:registry").SetVal(1)

	require.NoError(t, c.Set(context.Background(), testRegistry()))
	require.NoError(t, c.Invalidate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockAcquireRelease(t *testing.T) {
	db, mock := redismock.NewClientMock()
	l := NewLocker(db)
	l.newToken = func() string { return "token-1" }

	mock.ExpectSetNX("schedstruct:lock:abc", "token-1", time.Minute).SetVal(true)
	mock.ExpectEval(releaseScript, []string{"schedstruct:lock:abc"}, "token-1").SetVal(int64(1))

	lock, err := l.Acquire(context.Background(), "abc", time.Minute)
	require.NoError(t, err)
	require.NoError(t, lock.Release(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockContention(t *testing.T) {
	db, mock := redismock.NewClientMock()
	l := NewLocker(db)
	l.newToken = func() string { return "token-2" }

	mock.ExpectSetNX("schedstruct:lock:abc", "token-2", time.Minute).SetVal(false)

	_, err := l.Acquire(context.Background(), "abc", time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockReleaseAfterExpiry(t *testing.T) {
	db, mock := redismock.NewClientMock()
	lock := &Lock{rdb: db, key: "schedstruct:lock:abc", token: "stale"}

	mock.ExpectEval(releaseScript, []string{"schedstruct:lock:abc"}, "stale").SetVal(int64(0))

	assert.ErrorIs(t, lock.Release(context.Background()), ErrLockNotHeld)
	assert.NoError(t, mock.ExpectationsWereMet())
}
