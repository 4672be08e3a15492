package racachefuse

import (
	"errors"
	"io"
	"runtime/debug"
	"sync/atomic"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"

	"github.com/grailbio/racache/internal/rerrors"
	"github.com/grailbio/racache/internal/rlog"
)

// numHandledPanics counts panics caught by handlePanicErrno, for tests that
// want to assert one occurred.
var numHandledPanics uint32

// handlePanicErrno is a last resort to keep a panic in a FUSE callback from
// taking down the whole mount. Every go-fuse-facing method that returns
// syscall.Errno should defer it.
func handlePanicErrno(errno *syscall.Errno) {
	r := recover()
	if r == nil {
		return
	}
	atomic.AddUint32(&numHandledPanics, 1)
	if err, ok := r.(error); ok {
		rlog.Error.Printf("racachefuse: recovered panic: %v\n%s", err, debug.Stack())
	} else {
		rlog.Error.Printf("racachefuse: recovered panic: %v\n%s", r, debug.Stack())
	}
	*errno = syscall.EIO
}

// errToErrno maps an error from the cache or the local downstream to a FUSE
// errno, the way fsnodefuse's errToErrno maps a *errors.Error's Kind.
func errToErrno(err error) syscall.Errno {
	if err == nil {
		return fs.OK
	}
	if errors.Is(err, io.EOF) {
		return fs.OK
	}
	if errno, ok := err.(syscall.Errno); ok {
		return errno
	}
	switch rerrors.GetKind(err) {
	case rerrors.NotExist:
		return syscall.ENOENT
	case rerrors.Invalid:
		return syscall.EINVAL
	case rerrors.Canceled:
		return syscall.ECANCELED
	case rerrors.Precondition:
		return syscall.EAGAIN
	default:
		rlog.Error.Printf("racachefuse: error with no specific errno mapping: %v", err)
		return syscall.EIO
	}
}
