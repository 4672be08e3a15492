// Package metrics implements the read-ahead cache's metrics dumper: an
// in-memory registry of per-operation counters and latencies, and a
// snapshot writer producing a plaintext, line-oriented file in the style of
// the original translator graph's monitoring facility. Per-op lines are
// written as "<op>.<total|interval>.<field>: <value>" (see Dumper.write);
// they carry no registry-name prefix and use a colon separator.
package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// opStats accumulates one operation's counters. total.* fields never reset;
// interval.* fields are read-and-reset by Snapshot, mirroring the original
// dump_latency_and_count's distinction between a lifetime count and the
// count since the last dump, including its per-dump latency histogram
// (count/total/max/min), which the original memsets to zero after every
// dump rather than carrying a running min/max across dumps.
type opStats struct {
	mu sync.Mutex

	totalCount    uint64
	totalFailures uint64
	totalLatency  time.Duration
	maxLatency    time.Duration
	minLatency    time.Duration

	intervalCount    uint64
	intervalFailures uint64
	intervalLatency  time.Duration
	intervalMax      time.Duration
	intervalMin      time.Duration
}

func newOpStats() *opStats {
	return &opStats{}
}

func (s *opStats) record(dur time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalCount++
	s.totalLatency += dur
	if dur > s.maxLatency {
		s.maxLatency = dur
	}
	if s.totalCount == 1 || dur < s.minLatency {
		s.minLatency = dur
	}

	// intervalCount == 0 here means this is the first record since the last
	// read-and-reset, so max/min start fresh rather than comparing against
	// a stale zeroed value.
	if s.intervalCount == 0 || dur > s.intervalMax {
		s.intervalMax = dur
	}
	if s.intervalCount == 0 || dur < s.intervalMin {
		s.intervalMin = dur
	}
	s.intervalCount++
	s.intervalLatency += dur

	if err != nil {
		s.totalFailures++
		s.intervalFailures++
	}
}

// OpSnapshot is a point-in-time read of one operation's counters.
type OpSnapshot struct {
	Op string

	TotalCount    uint64
	TotalFailures uint64
	AvgLatency    time.Duration
	MaxLatency    time.Duration
	MinLatency    time.Duration

	IntervalCount      uint64
	IntervalFailures   uint64
	IntervalAvgLatency time.Duration
	IntervalMaxLatency time.Duration
	IntervalMinLatency time.Duration
}

func (s *opStats) snapshot(op string) OpSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := OpSnapshot{
		Op:               op,
		TotalCount:       s.totalCount,
		TotalFailures:    s.totalFailures,
		MaxLatency:       s.maxLatency,
		IntervalCount:    s.intervalCount,
		IntervalFailures: s.intervalFailures,
	}
	if s.totalCount > 0 {
		snap.AvgLatency = s.totalLatency / time.Duration(s.totalCount)
		snap.MinLatency = s.minLatency
	}
	if s.intervalCount > 0 {
		snap.IntervalAvgLatency = s.intervalLatency / time.Duration(s.intervalCount)
		snap.IntervalMaxLatency = s.intervalMax
		snap.IntervalMinLatency = s.intervalMin
	}

	// Read-and-reset, per the original's interval semantics (memset of the
	// latencies histogram after every dump).
	s.intervalCount = 0
	s.intervalFailures = 0
	s.intervalLatency = 0
	s.intervalMax = 0
	s.intervalMin = 0
	return snap
}

// Registry is a set of named operation counters, safe for concurrent use.
// It implements racache.MetricsRecorder by structural typing: Cache.SetMetrics
// accepts any type with a matching method set, so this package never needs
// to import racache.
//
// Beyond per-op counters, Registry tracks the global gauges the original
// translator graph's monitoring facility reports alongside per-translator
// sections: the call-stack count/in-flight gauge (StackStart/StackEnd,
// driven by Cache's upstream-facing methods) and the pending-winds gauge
// (WindStart/WindEnd, driven by outstanding downstream calls). Memory
// accounting (PageAllocated/PageFreed) tracks cache page bytes currently
// resident, the release-build form of the original's "# <typestr>,
// <in-use-size>, <total-allocs>" mem-accounting line.
type Registry struct {
	mu   sync.Mutex
	ops  map[string]*opStats
	name string // identifies this registry in dumped output, e.g. a mount point

	stackStarted  uint64 // atomic; total StackStart calls
	stackInFlight int64  // atomic
	pendingWinds  int64  // atomic

	pageBytesInUse int64  // atomic
	pageAllocs     uint64 // atomic; total PageAllocated calls

	totalFopCount    uint64 // atomic; every Record call, across all ops
	intervalFopCount uint64 // atomic; read-and-reset by FopCount
}

// NewRegistry returns an empty Registry identified by name in dumped output.
func NewRegistry(name string) *Registry {
	return &Registry{ops: make(map[string]*opStats), name: name}
}

// Record implements racache.MetricsRecorder.
func (r *Registry) Record(op string, dur time.Duration, err error) {
	r.statsFor(op).record(dur, err)
	atomic.AddUint64(&r.totalFopCount, 1)
	atomic.AddUint64(&r.intervalFopCount, 1)
}

// FopCount returns the registry's total and (read-and-reset) interval
// count of every Record call across all operations -- the aggregate
// `<xl>.total.fop-count`/`<xl>.interval.fop-count` lines the original's
// dump_latency_and_count accumulates from each op's fop counter while it
// iterates them, rather than a counter an op update touches directly.
func (r *Registry) FopCount() (total, interval uint64) {
	return atomic.LoadUint64(&r.totalFopCount), atomic.SwapUint64(&r.intervalFopCount, 0)
}

// StackStart implements racache.MetricsRecorder: it marks the start of one
// upstream-facing call, the Go analogue of a call_frame being pushed onto a
// file's call stack.
func (r *Registry) StackStart() {
	atomic.AddUint64(&r.stackStarted, 1)
	atomic.AddInt64(&r.stackInFlight, 1)
}

// StackEnd implements racache.MetricsRecorder.
func (r *Registry) StackEnd() {
	atomic.AddInt64(&r.stackInFlight, -1)
}

// WindStart implements racache.MetricsRecorder: it marks the start of one
// outstanding downstream call, the analogue of STACK_WIND.
func (r *Registry) WindStart() {
	atomic.AddInt64(&r.pendingWinds, 1)
}

// WindEnd implements racache.MetricsRecorder, the analogue of STACK_UNWIND.
func (r *Registry) WindEnd() {
	atomic.AddInt64(&r.pendingWinds, -1)
}

// PageAllocated implements racache.MetricsRecorder: it records size bytes
// of newly-filled page data entering the cache's memory-accounting total.
func (r *Registry) PageAllocated(size int) {
	atomic.AddInt64(&r.pageBytesInUse, int64(size))
	atomic.AddUint64(&r.pageAllocs, 1)
}

// PageFreed implements racache.MetricsRecorder: it records size bytes of
// page data leaving the cache, on eviction or teardown.
func (r *Registry) PageFreed(size int) {
	atomic.AddInt64(&r.pageBytesInUse, -int64(size))
}

// GlobalSnapshot is a point-in-time read of the registry's global gauges,
// for the metrics dump's header/global section (spec: total.stack.count,
// total.stack.in-flight, total.pending-winds.count, plus the
// release-build mem-accounting line).
type GlobalSnapshot struct {
	StackCount    uint64
	StackInFlight int64
	PendingWinds  int64

	PageBytesInUse int64
	PageAllocs     uint64
}

// Global returns the registry's current global gauges. Unlike Snapshot,
// nothing here is reset: these are running totals/gauges, not interval
// counters.
func (r *Registry) Global() GlobalSnapshot {
	return GlobalSnapshot{
		StackCount:     atomic.LoadUint64(&r.stackStarted),
		StackInFlight:  atomic.LoadInt64(&r.stackInFlight),
		PendingWinds:   atomic.LoadInt64(&r.pendingWinds),
		PageBytesInUse: atomic.LoadInt64(&r.pageBytesInUse),
		PageAllocs:     atomic.LoadUint64(&r.pageAllocs),
	}
}

func (r *Registry) statsFor(op string) *opStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.ops[op]
	if !ok {
		s = newOpStats()
		r.ops[op] = s
	}
	return s
}

// Snapshot returns a stable, sorted-by-name view of every operation
// recorded so far, resetting each operation's interval counters.
func (r *Registry) Snapshot() []OpSnapshot {
	r.mu.Lock()
	names := make([]string, 0, len(r.ops))
	stats := make([]*opStats, 0, len(r.ops))
	for op, s := range r.ops {
		names = append(names, op)
		stats = append(stats, s)
	}
	r.mu.Unlock()

	snaps := make([]OpSnapshot, len(names))
	for i, name := range names {
		snaps[i] = stats[i].snapshot(name)
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Op < snaps[j].Op })
	return snaps
}
