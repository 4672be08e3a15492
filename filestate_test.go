package racache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, cfg Config, ds *memDownstream) *Cache {
	t.Helper()
	c, err := New(ds, cfg)
	require.NoError(t, err)
	return c
}

func TestFileStateRefcountingDefersTeardown(t *testing.T) {
	ds := newMemDownstream()
	ds.put("f", []byte("hello world"))
	cache := newTestCache(t, Config{PageSize: 16, PageCount: 2}, ds)

	f, err := cache.Open(context.Background(), "f", 0, 0)
	require.NoError(t, err)

	fs := f.fs
	fs.acquire()
	require.NoError(t, fs.release(context.Background()))
	assert.False(t, ds.handles[0].isClosed(), "handle must stay open while a reference remains")

	require.NoError(t, fs.release(context.Background()))
	assert.True(t, ds.handles[0].isClosed(), "handle must close once the last reference drops")
}

func TestFileStateReleaseTearsDownEvictablePagesOnly(t *testing.T) {
	ds := newMemDownstream()
	ds.put("f", []byte("0123456789abcdef"))
	cache := newTestCache(t, Config{PageSize: 16, PageCount: 1}, ds)

	f, err := cache.Open(context.Background(), "f", 0, 0)
	require.NoError(t, err)
	fs := f.fs

	fs.mu.Lock()
	fs.index.insert(newPage(0))
	fs.mu.Unlock()

	require.NoError(t, f.Release(context.Background()))
	fs.mu.Lock()
	assert.Equal(t, 0, fs.index.len())
	fs.mu.Unlock()
}

func TestFileStateRecordRead(t *testing.T) {
	ds := newMemDownstream()
	ds.put("f", []byte("0123456789"))
	cache := newTestCache(t, DefaultConfig(), ds)
	f, err := cache.Open(context.Background(), "f", 0, 0)
	require.NoError(t, err)

	f.fs.recordRead(42)
	f.fs.mu.Lock()
	got := f.fs.offset
	f.fs.mu.Unlock()
	assert.EqualValues(t, 42, got)
}
