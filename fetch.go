package racache

import (
	"context"
	"io"

	"github.com/grailbio/racache/internal/rlog"
)

// fetchPage issues the single downstream read that fills p, then delivers
// the result to p's waiters (if any survive -- see handleFetchResult).
//
// fetchPage always runs in its own goroutine and always uses a background
// context rather than the context of whichever caller triggered it: a
// demand read's caller may cancel or a prefetch has no caller at all, but
// the fetch itself, once dispatched, must run to completion so the page
// reaches a terminal state and its reference is released. This mirrors the
// original translator's STACK_WIND/STACK_UNWIND split, where a fetch in
// flight downstream cannot be recalled once wound.
//
// The downstream readv is bracketed with WindStart/WindEnd rather than
// Record: it has no upstream fop of its own (it's this translator's own
// read-ahead machinery winding down, not a call being answered), so it
// only contributes to the dump's pending-winds gauge, not a per-op count.
func (fs *fileState) fetchPage(p *page) {
	defer fs.release(context.Background())

	fs.cache.metrics.WindStart()
	buf := make([]byte, fs.cache.cfg.PageSize)
	n, err := fs.handle.ReadAt(context.Background(), buf, p.offset)
	fs.cache.metrics.WindEnd()
	if err == io.EOF {
		err = nil
	}
	if err != nil {
		fs.handleFetchResult(p.offset, len(buf), nil, err)
		return
	}
	fs.handleFetchResult(p.offset, len(buf), buf[:n], nil)
}

// handleFetchResult looks the page back up by offset -- it may have been
// evicted while the fetch was outstanding, in which case this is a wasted
// fetch and there is nothing to deliver to -- fills it, and wakes its
// waiters outside the lock.
//
// requested is the byte count asked of the downstream (the page size); a
// successful read that returned fewer bytes than that is a short read, the
// Handle.ReadAt contract's only EOF signal. When fs was opened with an
// unknown size (0), the first such short read resolves it, so the
// prefetcher's "if fs.size > 0" upper bound (see prefetch.go) takes effect
// instead of speculating forever past the real end of file.
func (fs *fileState) handleFetchResult(offset int64, requested int, data []byte, err error) {
	fs.mu.Lock()
	if err == nil && len(data) < requested {
		if eof := offset + int64(len(data)); fs.size == 0 || eof < fs.size {
			fs.size = eof
		}
	}
	p := fs.index.lookup(offset)
	if p == nil {
		fs.mu.Unlock()
		rlog.Debug.Printf("racache: wasted fetch for %s at page offset %d", fs.filename, offset)
		return
	}
	waiters := p.fill(data, err)
	fs.mu.Unlock()

	if err == nil {
		fs.cache.metrics.PageAllocated(len(data))
	}

	for _, w := range waiters {
		w.deliver(p)
	}
}
