// Package rmust provides fatal assertions, trimmed from
// github.com/grailbio/base/must. It is used to enforce the invariants
// described in the cache's data model (e.g. a page must never be freed while
// it still has waiters) where a violation indicates a bug, not a
// recoverable error.
package rmust

import "github.com/grailbio/racache/internal/rlog"

// Func is called to report an error and interrupt execution. Tests may
// override it to turn assertion failures into t.Fatal calls.
var Func func(...interface{}) = func(v ...interface{}) {
	rlog.Error.Print(v...)
	panic(v)
}

// True is a no-op if b is true; otherwise it calls Func with msg.
func True(b bool, msg string) {
	if !b {
		Func(msg)
	}
}
