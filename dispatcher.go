package racache

import (
	"context"
	"sync/atomic"
)

// dispatchRead is the entry point for an upstream read: round the request
// to page boundaries, attach to or create the pages that cover it, drop
// behind the pages before the read (read-ahead's one piece of cache
// replacement policy: we never expect a reader to go backward), trigger the
// prefetcher, and block until every page involved has resolved.
//
// Page fetches run on their own goroutines against context.Background, so
// that ctx.Done() only unblocks this call -- it can never cancel a fetch
// another, possibly-concurrent, reader is waiting on (see the concurrency
// model's rule that downstream errors are terminal only for the fragment
// that hit them).
func dispatchRead(ctx context.Context, fs *fileState, dst []byte, offset int64) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	pageSize := fs.cache.cfg.PageSize
	lo := floorAlign(offset, pageSize)
	hi := ceilAlign(offset+int64(len(dst)), pageSize)

	req := newReadRequest(dst, offset)

	type readyDelivery struct {
		p *page
		f *fragment
	}
	var toFetch []*page
	var ready []readyDelivery

	fs.mu.Lock()
	for pageOff := lo; pageOff < hi; pageOff += pageSize {
		pageLo, pageHi, dstLo := fragmentRange(pageOff, pageSize, offset, dst)
		if pageLo >= pageHi {
			continue
		}
		p := fs.index.lookup(pageOff)
		if p == nil {
			p = newPage(pageOff)
			fs.index.insert(p)
			toFetch = append(toFetch, p)
		}
		f := &fragment{req: req, pageOffset: pageOff, pageLo: pageLo, pageHi: pageHi, dstLo: dstLo}
		if p.ready {
			ready = append(ready, readyDelivery{p, f})
		} else {
			atomic.AddInt32(&req.outstanding, 1)
			p.addWaiter(f)
		}
	}
	droppedBehind := fs.index.flushRegion(0, lo)
	fs.mu.Unlock()
	fs.reportFreed(droppedBehind)

	for _, p := range toFetch {
		fs.acquire()
		go fs.fetchPage(p)
	}
	for _, rd := range ready {
		rd.f.deliver(rd.p)
	}

	fs.recordRead(offset)
	go fs.prefetch()

	req.finishOne() // release the self-reference
	select {
	case <-req.done:
	case <-ctx.Done():
		return int(atomic.LoadInt64(&req.filled)), ctx.Err()
	}
	return int(atomic.LoadInt64(&req.filled)), req.getErr()
}

// fragmentRange computes the overlap between the page at pageOffset (of
// pageSize bytes) and the request [reqOffset, reqOffset+len(dst)), expressed
// as a page-relative range [lo, hi) and the matching offset into dst.
func fragmentRange(pageOffset, pageSize, reqOffset int64, dst []byte) (lo, hi, dstLo int) {
	pageStart := pageOffset
	pageEnd := pageOffset + pageSize
	reqStart := reqOffset
	reqEnd := reqOffset + int64(len(dst))

	overlapLo := pageStart
	if reqStart > overlapLo {
		overlapLo = reqStart
	}
	overlapHi := pageEnd
	if reqEnd < overlapHi {
		overlapHi = reqEnd
	}
	if overlapLo >= overlapHi {
		return 0, 0, 0
	}
	return int(overlapLo - pageStart), int(overlapHi - pageStart), int(overlapLo - reqStart)
}
