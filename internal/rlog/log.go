// Package rlog provides simple level logging, trimmed from
// github.com/grailbio/base/log down to what this module needs: an Error and
// a Debug level, backed by the standard library's log package by default.
package rlog

import (
	"fmt"
	golog "log"
)

// Level is a log verbosity level. Lower levels are higher priority.
type Level int

const (
	// Off never outputs messages.
	Off Level = -1
	// Error outputs error messages.
	Error Level = 0
	// Debug outputs diagnostic messages not meant for regular users, such as
	// the read-ahead cache's "wasted fetch" notice.
	Debug Level = 1
)

// An Outputter is a destination for leveled log output.
type Outputter interface {
	Level() Level
	Output(calldepth int, level Level, s string) error
}

type gologOutputter struct{ level Level }

func (g gologOutputter) Level() Level { return g.level }

func (g gologOutputter) Output(calldepth int, level Level, s string) error {
	if g.level < level {
		return nil
	}
	return golog.Output(calldepth+1, s)
}

var out Outputter = gologOutputter{level: Error}

// SetOutputter replaces the package's outputter and returns the old one.
// Not safe to call concurrently with logging.
func SetOutputter(newOut Outputter) Outputter {
	old := out
	out = newOut
	return old
}

// SetLevel adjusts the default outputter's verbosity.
func SetLevel(level Level) { out = gologOutputter{level: level} }

// At reports whether the logger is currently logging at level.
func At(level Level) bool { return level <= out.Level() }

// Printf formats a message in the manner of fmt.Sprintf and outputs it at
// level l.
func (l Level) Printf(format string, v ...interface{}) {
	if At(l) {
		_ = out.Output(2, l, fmt.Sprintf(format, v...))
	}
}

// Print formats a message in the manner of fmt.Sprint and outputs it at
// level l.
func (l Level) Print(v ...interface{}) {
	if At(l) {
		_ = out.Output(2, l, fmt.Sprint(v...))
	}
}
