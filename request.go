package racache

import "sync/atomic"

// readRequest is the transient state for one upstream readv(handle, size,
// offset) call. It is exclusively owned by the goroutine that issued the
// call; fragments hold a non-owning reference back to it so that
// handleFetchResult (running on a different goroutine, for a different page)
// can report into it.
type readRequest struct {
	dst []byte // caller's result buffer
	off int64  // caller's requested offset, for translating page-relative ranges

	// outstanding starts at 1 (a self-reference, released once dispatch has
	// finished iterating every page) and is incremented once per attached
	// waiter. When it reaches 0, done is closed.
	outstanding int32
	done        chan struct{}

	errMu     chanMutex
	err       error
	errOffset int64 // page offset the current err came from; smaller wins ties

	filled int64 // atomic; bytes successfully copied into dst
}

// chanMutex is a tiny mutex built the way
// github.com/grailbio/base/sync/ctxsync.Mutex is: a size-1 buffered channel
// used as a lock token. It's enough for readRequest's handful of
// lock/unlock calls and avoids pulling in sync.Mutex's larger zero-value
// footprint story for no benefit here.
type chanMutex chan struct{}

func newChanMutex() chanMutex { return make(chanMutex, 1) }
func (m chanMutex) lock()     { m <- struct{}{} }
func (m chanMutex) unlock()   { <-m }

func newReadRequest(dst []byte, off int64) *readRequest {
	return &readRequest{
		dst:         dst,
		off:         off,
		outstanding: 1,
		done:        make(chan struct{}),
		errMu:       newChanMutex(),
		errOffset:   1<<63 - 1,
	}
}

// setErr records err as having come from the page at pageOffset. First
// error wins; ties (multiple errors) are broken in favor of the lower page
// offset, per the dispatcher's assembly-order contract.
func (r *readRequest) setErr(pageOffset int64, err error) {
	r.errMu.lock()
	defer r.errMu.unlock()
	if r.err == nil || pageOffset < r.errOffset {
		r.err = err
		r.errOffset = pageOffset
	}
}

func (r *readRequest) getErr() error {
	r.errMu.lock()
	defer r.errMu.unlock()
	return r.err
}

// finishOne decrements the outstanding-fragment counter, closing done when
// it reaches zero.
func (r *readRequest) finishOne() {
	if atomic.AddInt32(&r.outstanding, -1) == 0 {
		close(r.done)
	}
}

// fragment is one (page, in-page-range, in-result-range) triple making up
// part of a readRequest. It is what gets attached to a page's waiter list.
type fragment struct {
	req *readRequest

	pageOffset int64
	pageLo     int // start offset within the page
	pageHi     int // end offset within the page (exclusive)
	dstLo      int // start offset within req.dst
}

// deliver copies p's bytes (or propagates its error) into the fragment's
// slice of the request's result buffer, then resolves the fragment. p must
// be ready. Called outside the owning fileState's lock, per the concurrency
// model's rule that upstream-facing delivery never happens while holding
// it.
func (f *fragment) deliver(p *page) {
	if p.err != nil {
		f.req.setErr(f.pageOffset, p.err)
	} else {
		src := p.slice(f.pageLo, f.pageHi)
		n := copy(f.req.dst[f.dstLo:f.dstLo+(f.pageHi-f.pageLo)], src)
		atomic.AddInt64(&f.req.filled, int64(n))
	}
	f.req.finishOne()
}
