package racache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWriteInvalidatesAndRefetchesStalePage exercises end-to-end scenario 3:
// open; read(0,4); write(0,...,4); read(0,4) must return the freshly
// written bytes, not the page cached by the first read, and the write must
// have actually evicted that page rather than leaving it to go stale.
func TestWriteInvalidatesAndRefetchesStalePage(t *testing.T) {
	ds := newMemDownstream()
	ds.put("f", []byte("aaaa"))
	cache := newTestCache(t, Config{PageSize: 4, PageCount: 1}, ds)
	f, err := cache.Open(context.Background(), "f", 0, 0)
	require.NoError(t, err)

	dst := make([]byte, 4)
	n, err := f.ReadAt(context.Background(), dst, 0)
	require.NoError(t, err)
	assert.Equal(t, "aaaa", string(dst[:n]))

	f.fs.mu.Lock()
	require.NotNil(t, f.fs.index.lookup(0), "page 0 should be cached after the first read")
	f.fs.mu.Unlock()

	wn, err := f.WriteAt(context.Background(), []byte("bbbb"), 0)
	require.NoError(t, err)
	assert.Equal(t, 4, wn)

	f.fs.mu.Lock()
	assert.Nil(t, f.fs.index.lookup(0), "write must evict the stale page before winding downstream")
	f.fs.mu.Unlock()

	dst2 := make([]byte, 4)
	n2, err := f.ReadAt(context.Background(), dst2, 0)
	require.NoError(t, err)
	assert.Equal(t, "bbbb", string(dst2[:n2]), "post-write read must return fresh bytes, not the stale cached page")

	assert.Equal(t, 2, ds.handles[0].readCount(), "the second read must trigger a fresh downstream fetch, not a cache hit")
}

func TestFlushInvalidatesCache(t *testing.T) {
	ds := newMemDownstream()
	ds.put("f", []byte("hello"))
	cache := newTestCache(t, Config{PageSize: 4, PageCount: 1}, ds)
	f, err := cache.Open(context.Background(), "f", 0, 0)
	require.NoError(t, err)

	dst := make([]byte, 4)
	_, err = f.ReadAt(context.Background(), dst, 0)
	require.NoError(t, err)

	f.fs.mu.Lock()
	require.NotNil(t, f.fs.index.lookup(0))
	f.fs.mu.Unlock()

	require.NoError(t, f.Flush(context.Background()))

	f.fs.mu.Lock()
	assert.Equal(t, 0, f.fs.index.len(), "flush must invalidate the entire cached range")
	f.fs.mu.Unlock()
}

func TestFsyncInvalidatesCache(t *testing.T) {
	ds := newMemDownstream()
	ds.put("f", []byte("hello"))
	cache := newTestCache(t, Config{PageSize: 4, PageCount: 1}, ds)
	f, err := cache.Open(context.Background(), "f", 0, 0)
	require.NoError(t, err)

	dst := make([]byte, 4)
	_, err = f.ReadAt(context.Background(), dst, 0)
	require.NoError(t, err)

	f.fs.mu.Lock()
	require.NotNil(t, f.fs.index.lookup(0))
	f.fs.mu.Unlock()

	require.NoError(t, f.Fsync(context.Background(), false))

	f.fs.mu.Lock()
	assert.Equal(t, 0, f.fs.index.len(), "fsync must invalidate the entire cached range")
	f.fs.mu.Unlock()
}
