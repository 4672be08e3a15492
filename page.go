package racache

// page is a fixed-size cached region of one file, keyed by its page-aligned
// offset. Its fields are guarded by the mutex of the fileState that owns its
// pageIndex; page itself holds no lock (see fileState's doc comment).
//
// A page moves through the following states, matching the design in the
// data model:
//
//	EMPTY --create--> PENDING --fill--> READY ----wakeup----> (evictable once waiters drain)
//	                      |
//	                      +---error---> ERRORED -+
//
// ready && err == nil means READY; ready && err != nil means ERRORED.
// waiters == nil means the page is evictable, whether or not it is ready
// (see evictable).
type page struct {
	offset int64 // page-aligned
	size   int   // bytes actually filled, <= page size
	ready  bool
	data   []byte
	err    error

	// waiters are fragments of in-flight ReadRequests blocked on this page,
	// in the order they attached. They are non-owning: the page stays live
	// (never evicted) for as long as this slice is non-empty.
	waiters []*fragment
}

func newPage(offset int64) *page {
	return &page{offset: offset}
}

// evictable reports whether p may be removed from its pageIndex: it has no
// pending waiters. Readiness is irrelevant -- a still-PENDING page with no
// waiters (created speculatively by the prefetcher) is just as evictable as
// a READY one; its in-flight fetch will simply find it gone when it
// completes (a "wasted fetch").
func (p *page) evictable() bool {
	return len(p.waiters) == 0
}

// fill records the outcome of the page's one downstream fetch and returns
// the waiters that should now be woken (the caller must do so outside the
// owning fileState's lock).
func (p *page) fill(data []byte, err error) []*fragment {
	if err != nil {
		p.err = err
	} else {
		p.data = data
		p.size = len(data)
		p.err = nil
	}
	p.ready = true
	waiters := p.waiters
	p.waiters = nil
	return waiters
}

// addWaiter attaches f to p. Must be called while p is not yet ready.
func (p *page) addWaiter(f *fragment) {
	p.waiters = append(p.waiters, f)
}

// slice returns the bytes of p that fall within [lo, hi) relative to the
// page's own offset. Out-of-range requests (past a short read) return fewer
// bytes, mirroring a downstream short read/EOF.
func (p *page) slice(lo, hi int) []byte {
	if lo >= p.size {
		return nil
	}
	if hi > p.size {
		hi = p.size
	}
	return p.data[lo:hi]
}
