package racache

import (
	"context"
	"time"

	"github.com/grailbio/racache/internal/rmust"
)

// MetricsRecorder observes the cache's activity for the metrics dumper's
// sake. It is the seam the metrics package's Registry plugs into; Cache
// works with a no-op implementation when none is supplied, the way the
// original translator's monitoring hooks are no-ops until
// gf_monitor_metrics is actually armed.
//
// The method set mirrors the instrumentation points the original
// translator's call-frame machinery threads through every fop: Record is
// one completed upstream operation (latency_end);
// StackStart/StackEnd bracket one upstream call's lifetime, the Go
// analogue of a call_frame being pushed onto and popped off a file's call
// stack; WindStart/WindEnd bracket one outstanding downstream call, the
// analogue of STACK_WIND/STACK_UNWIND; PageAllocated/PageFreed track the
// cache's own page memory, reported in the dump's mem-accounting section.
type MetricsRecorder interface {
	Record(op string, dur time.Duration, err error)
	StackStart()
	StackEnd()
	WindStart()
	WindEnd()
	PageAllocated(size int)
	PageFreed(size int)
}

type noopMetrics struct{}

func (noopMetrics) Record(string, time.Duration, error) {}
func (noopMetrics) StackStart()                         {}
func (noopMetrics) StackEnd()                           {}
func (noopMetrics) WindStart()                          {}
func (noopMetrics) WindEnd()                            {}
func (noopMetrics) PageAllocated(int)                   {}
func (noopMetrics) PageFreed(int)                       {}

// Cache is a read-ahead cache stacked in front of exactly one Downstream.
// It corresponds to one instance of the original translator.
type Cache struct {
	downstream Downstream
	cfg        Config
	metrics    MetricsRecorder
}

// New constructs a Cache. A nil downstream is a configuration error and is
// fatal, matching the original translator's init(), which aborts graph
// construction ("read-ahead not configured with exactly one child") rather
// than returning a runtime error for a mis-wired graph.
func New(downstream Downstream, cfg Config) (*Cache, error) {
	rmust.True(downstream != nil, "racache: New called with a nil Downstream")
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Cache{downstream: downstream, cfg: cfg, metrics: noopMetrics{}}, nil
}

// SetMetrics installs r to observe subsequent cache operations.
func (c *Cache) SetMetrics(r MetricsRecorder) {
	if r == nil {
		r = noopMetrics{}
	}
	c.metrics = r
}

// Open opens path through the downstream and wraps the resulting handle in
// a read-ahead File.
func (c *Cache) Open(ctx context.Context, path string, flags int, mode uint32) (*File, error) {
	c.metrics.StackStart()
	defer c.metrics.StackEnd()

	start := time.Now()
	c.metrics.WindStart()
	h, info, err := c.downstream.Open(ctx, path, flags, mode)
	c.metrics.WindEnd()
	c.metrics.Record("readahead.open", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	fs := newFileState(c, h, path, info.Size)
	return &File{fs: fs}, nil
}

// Create creates path through the downstream and wraps the resulting
// handle in a read-ahead File.
func (c *Cache) Create(ctx context.Context, path string, mode uint32) (*File, error) {
	c.metrics.StackStart()
	defer c.metrics.StackEnd()

	start := time.Now()
	c.metrics.WindStart()
	h, info, err := c.downstream.Create(ctx, path, mode)
	c.metrics.WindEnd()
	c.metrics.Record("readahead.create", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	fs := newFileState(c, h, path, info.Size)
	return &File{fs: fs}, nil
}
