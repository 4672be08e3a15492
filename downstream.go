package racache

import "context"

// Handle is the opaque downstream file handle the cache reads from and
// writes through. It is the sole abstraction over "whatever translator sits
// below us" -- a local disk, a network filesystem, object storage, or (in
// tests) an in-memory fake.
//
// Handle mirrors github.com/grailbio/base/ioctx's context-aware Reader/Closer
// family rather than the stdlib's context-free io package, since every
// downstream call here can legitimately block and should respect
// cancellation.
type Handle interface {
	// ReadAt reads into dst starting at off, as io.ReaderAt but context-aware.
	// Implementations may return io.EOF with n < len(dst) at end of file, per
	// io.ReaderAt's contract.
	ReadAt(ctx context.Context, dst []byte, off int64) (n int, err error)
	// WriteAt writes p at off.
	WriteAt(ctx context.Context, p []byte, off int64) (n int, err error)
	// Flush asks the downstream to flush any buffered state.
	Flush(ctx context.Context) error
	// Fsync asks the downstream to persist data (and, unless datasync,
	// metadata) to stable storage.
	Fsync(ctx context.Context, datasync bool) error
	// Close releases the downstream handle. Called exactly once, when the
	// owning FileState's reference count reaches zero.
	Close(ctx context.Context) error
}

// Info is the subset of downstream file metadata the cache needs.
type Info struct {
	// Size is the file's length at open time, or 0 if unknown. A page fetch
	// may read past Size in the unknown case; Size is informational only.
	Size int64
}

// Downstream is the single child translator the Cache reads through and
// writes to. Configuring a Cache with anything other than exactly one
// Downstream is a fatal initialization error (see New).
type Downstream interface {
	Open(ctx context.Context, path string, flags int, mode uint32) (Handle, Info, error)
	Create(ctx context.Context, path string, mode uint32) (Handle, Info, error)
}
