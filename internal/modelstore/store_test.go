package modelstore

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jmehdipour/crm-analytics/internal/errors"
)

func rejectBad(data []byte) error {
	if string(data) == "bad" {
		return errors.New("corrupt")
	}
	return nil
}

func exercise(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Load(ctx, "SHOP")
	assert.ErrorIs(t, err, apperrors.ErrModelNotFound)

	require.NoError(t, s.Save(ctx, "SHOP", []byte("v1")))
	require.NoError(t, s.Save(ctx, "SHOP", []byte("v2")))
	got, err := s.Load(ctx, "SHOP")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got), "latest save wins")

	assert.Error(t, s.Save(ctx, "SHOP", []byte("bad")))
	assert.Error(t, s.Save(ctx, "SHOP", nil))
	got, err = s.Load(ctx, "SHOP")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got), "a rejected save keeps the previous model")
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, rejectBad)
	require.NoError(t, err)
	exercise(t, s)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files are left behind")
	assert.Equal(t, "SHOP_churn.model.json", entries[0].Name())
}

func TestFileStoreSanitizesKeys(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), "../etc/x", []byte("m")))
	got, err := s.Load(context.Background(), "../etc/x")
	require.NoError(t, err)
	assert.Equal(t, "m", string(got))
	assert.Equal(t, "___etc_x", sanitize("../etc/x"))
}

// TestRedisStore needs a disposable Redis at CRM_TEST_REDIS_ADDR.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("CRM_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CRM_TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	prefix := "crm:test:" + t.Name() + ":"
	t.Cleanup(func() { rdb.Del(context.Background(), prefix+"SHOP") })

	exercise(t, NewRedisStore(rdb, prefix, rejectBad))
}

func TestNewPicksBackend(t *testing.T) {
	s, err := New(Config{Backend: "file", Dir: t.TempDir()}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = New(Config{Backend: "redis"}, nil, nil)
	assert.Error(t, err)
	_, err = New(Config{Backend: "s3"}, nil, nil)
	assert.Error(t, err)
}
