package racache

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"github.com/grailbio/racache/internal/rmust"
)

// fileState is the per-open-file record: the last reader offset (seeded by
// the dispatcher, consumed by the prefetcher), the file's known size, its
// page index, and a reference count governing its lifetime.
//
// All mutation of the page index -- lookup, insert, fill, waiter-list edits,
// flush -- happens under mu. The one thing that must never happen under mu
// is delivering results to a waiting caller, since that caller's code is
// arbitrary and may run for an unbounded time; see fragment.deliver's
// callers in dispatcher.go and fetch.go.
type fileState struct {
	cache    *Cache
	handle   Handle
	filename string

	mu     sync.Mutex
	offset int64 // last-seen reader offset, not page-aligned
	size   int64 // known length (from open, or learned from a short read); 0 = unknown
	index  pageIndex

	refs int32 // atomic; see acquire/release
}

func newFileState(cache *Cache, handle Handle, filename string, size int64) *fileState {
	return &fileState{
		cache:    cache,
		handle:   handle,
		filename: filename,
		size:     size,
		refs:     1, // the upstream handle binding
	}
}

// acquire adds a reference, used once per in-flight downstream fetch in
// addition to the fixed reference held by the upstream handle binding.
func (fs *fileState) acquire() { atomic.AddInt32(&fs.refs, 1) }

// release drops a reference. When the count reaches zero, the page index is
// torn down and the downstream handle closed. By construction (every
// in-flight fetch holds its own reference), no page can have pending
// waiters at that point: a waiter only exists while the fetch serving it is
// in flight, and that fetch's reference keeps refs above zero.
func (fs *fileState) release(ctx context.Context) error {
	if atomic.AddInt32(&fs.refs, -1) != 0 {
		return nil
	}
	fs.mu.Lock()
	pages := fs.index.iterAscending()
	for _, p := range pages {
		rmust.True(p.evictable(), "racache: fileState torn down with a page still holding waiters")
		fs.index.remove(p.offset)
	}
	fs.mu.Unlock()
	fs.reportFreed(pages)
	return fs.handle.Close(ctx)
}

// recordRead seeds the prefetcher's window from the most recent reader
// offset.
func (fs *fileState) recordRead(offset int64) {
	fs.mu.Lock()
	fs.offset = offset
	fs.mu.Unlock()
}

// stats reports the number of pages currently indexed and their total
// resident byte size, for the metrics dumper's memory-accounting section.
func (fs *fileState) stats() (pages int, bytes int64) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, p := range fs.index.iterAscending() {
		pages++
		bytes += int64(len(p.data))
	}
	return pages, bytes
}

// invalidate evicts every currently-evictable page from the index. It's
// used by writev/flush/fsync/release, all of which must invalidate the
// cache before (or, for release, regardless of) winding the operation
// downstream -- see the resolution of the release-path open question in
// SPEC_FULL.md: flush the whole index rather than deriving a bound from a
// possibly-empty page list.
func (fs *fileState) invalidate() {
	fs.mu.Lock()
	freed := fs.index.flushRegion(0, math.MaxInt64)
	fs.mu.Unlock()
	fs.reportFreed(freed)
}

// reportFreed notifies the cache's metrics recorder that pages has left the
// index, for the dump's memory-accounting section. Called outside mu, the
// same discipline dispatchRead and handleFetchResult use for any call that
// reaches arbitrary (here, user-supplied MetricsRecorder) code.
func (fs *fileState) reportFreed(pages []*page) {
	for _, p := range pages {
		fs.cache.metrics.PageFreed(len(p.data))
	}
}
