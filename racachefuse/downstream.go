// Package racachefuse mounts a racache.Cache as a FUSE filesystem backed by
// a directory of regular local files, the way
// github.com/grailbio/base/file/fsnodefuse mounts an fsnode.T tree. It's a
// demonstration/test harness for the cache, not a general-purpose
// filesystem.
package racachefuse

import (
	"context"
	"os"

	"github.com/grailbio/racache"
)

// LocalDownstream is a racache.Downstream backed by the local filesystem:
// Open/Create map directly onto os.OpenFile, and the returned Handle is a
// thin wrapper around *os.File.
type LocalDownstream struct{}

var _ racache.Downstream = LocalDownstream{}

func (LocalDownstream) Open(ctx context.Context, path string, flags int, mode uint32) (racache.Handle, racache.Info, error) {
	f, err := os.OpenFile(path, flags, os.FileMode(mode))
	if err != nil {
		return nil, racache.Info{}, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, racache.Info{}, err
	}
	return osHandle{f}, racache.Info{Size: info.Size()}, nil
}

func (LocalDownstream) Create(ctx context.Context, path string, mode uint32) (racache.Handle, racache.Info, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, os.FileMode(mode))
	if err != nil {
		return nil, racache.Info{}, err
	}
	return osHandle{f}, racache.Info{Size: 0}, nil
}

// osHandle adapts *os.File to racache.Handle. Every method ignores ctx:
// os.File's operations don't support cancellation, the same limitation
// noted by github.com/grailbio/base/ioctx for wrapping stdlib I/O.
type osHandle struct{ f *os.File }

func (h osHandle) ReadAt(ctx context.Context, dst []byte, off int64) (int, error) {
	return h.f.ReadAt(dst, off)
}

func (h osHandle) WriteAt(ctx context.Context, p []byte, off int64) (int, error) {
	return h.f.WriteAt(p, off)
}

func (h osHandle) Flush(ctx context.Context) error { return nil }

func (h osHandle) Fsync(ctx context.Context, datasync bool) error {
	return h.f.Sync()
}

func (h osHandle) Close(ctx context.Context) error { return h.f.Close() }
