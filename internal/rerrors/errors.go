// Package rerrors implements a small kinded error type, trimmed from
// github.com/grailbio/base/errors to a handful of kinds. Of these, the page
// cache itself raises only Invalid (configuration errors).
package rerrors

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
)

// Separator is inserted between chained errors in Error's message.
var Separator = ":\n\t"

// Kind classifies an error. Callers may switch on Kind to decide whether an
// operation is retriable or how to map it to an errno.
type Kind int

const (
	// Other indicates an unknown error.
	Other Kind = iota
	// Canceled indicates a context cancellation.
	Canceled
	// NotExist indicates a nonexistent resource (e.g. a page looked up by
	// offset that isn't in the index).
	NotExist
	// Invalid indicates the caller supplied invalid parameters, including
	// malformed configuration.
	Invalid
	// Precondition indicates a precondition was not met (e.g. more than one
	// or zero downstream children at init).
	Precondition
)

var kinds = map[Kind]string{
	Other:        "unknown error",
	Canceled:     "operation was canceled",
	NotExist:     "resource does not exist",
	Invalid:      "invalid argument",
	Precondition: "precondition failed",
}

func (k Kind) String() string { return kinds[k] }

var kindStdErrs = map[Kind]error{
	Canceled: context.Canceled,
	NotExist: os.ErrNotExist,
	Invalid:  os.ErrInvalid,
}

// Error is the standard error type used by this module. Errors may chain
// through Err, with the full chain printed by Error().
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// E constructs an Error from its arguments, interpreted by type:
//   - Kind sets the error's kind
//   - string appends to the message (space-joined)
//   - error sets the cause; if it's already *Error and no Kind was given,
//     its kind is inherited
//
// If no Kind is given but a non-*Error cause is, E infers one of
// Canceled/NotExist/Invalid from common stdlib sentinels.
func E(args ...interface{}) error {
	if len(args) == 0 {
		panic("rerrors.E: no args")
	}
	e := new(Error)
	var msg strings.Builder
	for _, arg := range args {
		switch arg := arg.(type) {
		case Kind:
			e.Kind = arg
		case string:
			if msg.Len() > 0 {
				msg.WriteString(" ")
			}
			msg.WriteString(arg)
		case *Error:
			cp := *arg
			e.Err = &cp
		case error:
			e.Err = arg
		default:
			return &Error{Kind: Invalid, Message: "rerrors.E: unsupported argument type"}
		}
	}
	e.Message = msg.String()
	if e.Err == nil {
		return e
	}
	if prev, ok := e.Err.(*Error); ok {
		if e.Kind == Other {
			e.Kind = prev.Kind
		}
	} else if e.Kind == Other {
		for kind, std := range kindStdErrs {
			if errors.Is(e.Err, std) {
				e.Kind = kind
				break
			}
		}
	}
	return e
}

// Error implements error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b bytes.Buffer
	if e.Message != "" {
		b.WriteString(e.Message)
	}
	if e.Kind != Other {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		if b.Len() > 0 {
			b.WriteString(Separator)
		}
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap lets errors.Is/errors.As see through Error to its cause.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether err's kind matches a well-known stdlib sentinel,
// allowing errors.Is(err, os.ErrNotExist) to work against an *Error.
func (e *Error) Is(err error) bool {
	return err != nil && err == kindStdErrs[e.Kind]
}

// GetKind extracts the Kind from err, returning Other if err is not (or does
// not wrap) an *Error.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Other
}
