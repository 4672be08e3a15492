package racache

import (
	"context"
	"io"
	"sync"
)

// memHandle is a Handle backed by an in-memory byte slice, used throughout
// this package's tests in place of a real downstream translator.
type memHandle struct {
	mu     sync.Mutex
	data   []byte
	gate   chan struct{}      // if non-nil, gated ReadAts block on a receive from it until it's closed
	gateFn func(off int64) bool // which offsets are gated; nil means all of them
	reads  []int64            // offsets of every ReadAt call, for assertions
	closed bool
}

func (h *memHandle) ReadAt(ctx context.Context, dst []byte, off int64) (int, error) {
	h.mu.Lock()
	h.reads = append(h.reads, off)
	h.mu.Unlock()

	if h.gate != nil && (h.gateFn == nil || h.gateFn(off)) {
		<-h.gate
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if off >= int64(len(h.data)) {
		return 0, io.EOF
	}
	n := copy(dst, h.data[off:])
	if n < len(dst) {
		return n, io.EOF
	}
	return n, nil
}

func (h *memHandle) WriteAt(ctx context.Context, p []byte, off int64) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	end := off + int64(len(p))
	if end > int64(len(h.data)) {
		grown := make([]byte, end)
		copy(grown, h.data)
		h.data = grown
	}
	return copy(h.data[off:], p), nil
}

func (h *memHandle) Flush(ctx context.Context) error { return nil }

func (h *memHandle) Fsync(ctx context.Context, datasync bool) error { return nil }

func (h *memHandle) Close(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

func (h *memHandle) readCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.reads)
}

func (h *memHandle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// memDownstream is a Downstream over a fixed set of named in-memory files.
type memDownstream struct {
	mu      sync.Mutex
	files   map[string][]byte
	gate    chan struct{}         // installed on every handle this downstream opens
	gateFn  func(off int64) bool // installed on every handle this downstream opens
	handles []*memHandle
}

func newMemDownstream() *memDownstream {
	return &memDownstream{files: make(map[string][]byte)}
}

func (d *memDownstream) put(path string, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.files[path] = data
}

func (d *memDownstream) open(path string) (*memHandle, Info) {
	d.mu.Lock()
	defer d.mu.Unlock()
	data := d.files[path]
	h := &memHandle{data: data, gate: d.gate, gateFn: d.gateFn}
	d.handles = append(d.handles, h)
	return h, Info{Size: int64(len(data))}
}

func (d *memDownstream) Open(ctx context.Context, path string, flags int, mode uint32) (Handle, Info, error) {
	h, info := d.open(path)
	return h, info, nil
}

func (d *memDownstream) Create(ctx context.Context, path string, mode uint32) (Handle, Info, error) {
	d.put(path, nil)
	h, info := d.open(path)
	return h, info, nil
}
