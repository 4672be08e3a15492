package racachefuse

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/grailbio/racache"
)

// handle is a go-fuse FileHandle backed by a racache.File: reads go through
// the page cache, every other operation passes straight through to it (and,
// transitively, to the downstream).
type handle struct {
	f *racache.File
}

var (
	_ fs.FileReader    = (*handle)(nil)
	_ fs.FileWriter    = (*handle)(nil)
	_ fs.FileFlusher   = (*handle)(nil)
	_ fs.FileFsyncer   = (*handle)(nil)
	_ fs.FileReleaser  = (*handle)(nil)
)

func (h *handle) Read(ctx context.Context, dst []byte, off int64) (_ fuse.ReadResult, errno syscall.Errno) {
	defer handlePanicErrno(&errno)
	n, err := h.f.ReadAt(ctx, dst, off)
	return fuse.ReadResultData(dst[:n]), errToErrno(err)
}

func (h *handle) Write(ctx context.Context, p []byte, off int64) (_ uint32, errno syscall.Errno) {
	defer handlePanicErrno(&errno)
	n, err := h.f.WriteAt(ctx, p, off)
	return uint32(n), errToErrno(err)
}

func (h *handle) Flush(ctx context.Context) (errno syscall.Errno) {
	defer handlePanicErrno(&errno)
	return errToErrno(h.f.Flush(ctx))
}

func (h *handle) Fsync(ctx context.Context, flags uint32) (errno syscall.Errno) {
	defer handlePanicErrno(&errno)
	return errToErrno(h.f.Fsync(ctx, flags&1 != 0))
}

func (h *handle) Release(ctx context.Context) (errno syscall.Errno) {
	defer handlePanicErrno(&errno)
	return errToErrno(h.f.Release(ctx))
}
