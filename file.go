package racache

import (
	"context"
	"time"
)

// File is the upstream-facing handle returned by Cache.Open/Create. Reads
// go through the page cache; every other operation invalidates the cached
// range first and winds straight through to the downstream, since a write,
// flush, or fsync can change data the cache is holding a stale copy of.
type File struct {
	fs *fileState
}

// CacheStats reports the number of pages currently cached for this file and
// their total resident size, for wiring into a metrics.Dumper's memory
// accounting section.
func (f *File) CacheStats() (pages int, bytes int64) {
	return f.fs.stats()
}

// ReadAt serves len(dst) bytes starting at off from the page cache,
// fetching from the downstream on a miss and triggering read-ahead for the
// pages beyond it. A read that extends past end-of-file returns the bytes
// available, n < len(dst), with a nil error: a downstream io.EOF is not
// passed on. err is non-nil only for a downstream failure or a canceled
// ctx.
func (f *File) ReadAt(ctx context.Context, dst []byte, off int64) (int, error) {
	f.fs.cache.metrics.StackStart()
	defer f.fs.cache.metrics.StackEnd()

	start := time.Now()
	n, err := dispatchRead(ctx, f.fs, dst, off)
	f.fs.cache.metrics.Record("readahead.readv", time.Since(start), err)
	return n, err
}

// WriteAt invalidates the entire cached range and writes through to the
// downstream.
func (f *File) WriteAt(ctx context.Context, p []byte, off int64) (int, error) {
	f.fs.cache.metrics.StackStart()
	defer f.fs.cache.metrics.StackEnd()

	f.fs.invalidate()
	start := time.Now()
	f.fs.cache.metrics.WindStart()
	n, err := f.fs.handle.WriteAt(ctx, p, off)
	f.fs.cache.metrics.WindEnd()
	f.fs.cache.metrics.Record("readahead.writev", time.Since(start), err)
	return n, err
}

// Flush invalidates the entire cached range and flushes the downstream.
func (f *File) Flush(ctx context.Context) error {
	f.fs.cache.metrics.StackStart()
	defer f.fs.cache.metrics.StackEnd()

	f.fs.invalidate()
	start := time.Now()
	f.fs.cache.metrics.WindStart()
	err := f.fs.handle.Flush(ctx)
	f.fs.cache.metrics.WindEnd()
	f.fs.cache.metrics.Record("readahead.flush", time.Since(start), err)
	return err
}

// Fsync invalidates the entire cached range and fsyncs the downstream.
func (f *File) Fsync(ctx context.Context, datasync bool) error {
	f.fs.cache.metrics.StackStart()
	defer f.fs.cache.metrics.StackEnd()

	f.fs.invalidate()
	start := time.Now()
	f.fs.cache.metrics.WindStart()
	err := f.fs.handle.Fsync(ctx, datasync)
	f.fs.cache.metrics.WindEnd()
	f.fs.cache.metrics.Record("readahead.fsync", time.Since(start), err)
	return err
}

// Release drops this handle's reference on the underlying fileState. The
// cached range is invalidated unconditionally -- including pages that still
// have in-flight prefetch fetches, which simply become wasted fetches when
// they land -- and, once the reference count reaches zero, the downstream
// handle is closed. Concurrent reads sharing this File are not separately
// refcounted (see the concurrency model); Release must only be called once
// the caller is done issuing reads through this handle.
func (f *File) Release(ctx context.Context) error {
	f.fs.cache.metrics.StackStart()
	defer f.fs.cache.metrics.StackEnd()

	f.fs.invalidate()
	start := time.Now()
	err := f.fs.release(ctx)
	f.fs.cache.metrics.Record("readahead.release", time.Since(start), err)
	return err
}
