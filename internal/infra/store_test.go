package infra

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aischool/aischool-backend/internal/store"
)

func TestOpenStoreMemory(t *testing.T) {
	s, closeFn, err := OpenStore(context.Background(), "memory://")
	require.NoError(t, err)
	defer closeFn()

	_, ok := s.(*store.MemoryStore)
	assert.True(t, ok, "expected memory store, got %T", s)
}

func TestOpenStoreRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	s, closeFn, err := OpenStore(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	defer closeFn()

	_, ok := s.(*store.RedisStore)
	assert.True(t, ok, "expected redis store, got %T", s)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestOpenStoreRejectsBadDescriptors(t *testing.T) {
	for _, d := range []string{"", "ftp://example.com", "://bad"} {
		_, _, err := OpenStore(context.Background(), d)
		assert.Error(t, err, "descriptor %q", d)
	}
}

func TestNewRedisClientErrors(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "", "cache")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache")

	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisClient(context.Background(), "redis://"+addr, "cache")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping redis cache")
}
