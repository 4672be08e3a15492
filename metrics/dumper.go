package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// MemoryUsage reports the page cache's current footprint, for the dump's
// memory-accounting section. A Cache has no single place this lives, so the
// Dumper takes it as a callback rather than owning the bookkeeping itself.
type MemoryUsage func() (pages int, bytes int64)

// Dumper snapshots a Registry to a plaintext file on demand, the way the
// original translator graph's SIGUSR1 handler invoked gf_monitor_metrics:
// one file per dump, written directly into a uniquely-named file created in
// dir, readable by any tool that tails the monitoring directory.
type Dumper struct {
	Registry *Registry
	// Dir is where dump files are created. It's created (including parents)
	// with mode 0755 if missing.
	Dir string
	// Memory, if set, is consulted for the memory-accounting section.
	Memory MemoryUsage
}

// Dump writes one snapshot of d.Registry (plus, if configured, memory
// accounting) to a new file under d.Dir and returns its path. The file is
// created with a random suffix so concurrent dumps never collide, matching
// the original's mkstemp("gmetrics.XXXXXX") pattern, and is fsynced before
// being handed back.
func (d *Dumper) Dump() (string, error) {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", fmt.Errorf("metrics: creating dump directory: %w", err)
	}
	f, err := os.CreateTemp(d.Dir, "gmetrics.*")
	if err != nil {
		return "", fmt.Errorf("metrics: creating dump file: %w", err)
	}
	if err := f.Chmod(0o600); err != nil {
		f.Close()
		return "", err
	}

	if err := d.write(f); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return f.Name(), nil
}

func (d *Dumper) write(w *os.File) error {
	fmt.Fprintf(w, "# %s\n", filepath.Base(os.Args[0]))
	fmt.Fprintf(w, "# registry: %s\n", d.Registry.name)

	g := d.Registry.Global()
	fmt.Fprintf(w, "total.stack.count: %d\n", g.StackCount)
	fmt.Fprintf(w, "total.stack.in-flight: %d\n", g.StackInFlight)
	fmt.Fprintf(w, "total.pending-winds.count: %d\n", g.PendingWinds)
	// Release-build mem-accounting line: "# <typestr>, <in-use-size>,
	// <total-allocs>" -- this port has one tracked type, cache pages.
	fmt.Fprintf(w, "# page, %d, %d\n", g.PageBytesInUse, g.PageAllocs)

	for _, s := range d.Registry.Snapshot() {
		fmt.Fprintf(w, "%s.total.count: %d\n", s.Op, s.TotalCount)
		fmt.Fprintf(w, "%s.total.fail_count: %d\n", s.Op, s.TotalFailures)
		fmt.Fprintf(w, "%s.total.latency.avg_usec: %d\n", s.Op, s.AvgLatency.Microseconds())
		fmt.Fprintf(w, "%s.total.latency.max_usec: %d\n", s.Op, s.MaxLatency.Microseconds())
		if s.TotalCount > 0 {
			fmt.Fprintf(w, "%s.total.latency.min_usec: %d\n", s.Op, s.MinLatency.Microseconds())
		}
		fmt.Fprintf(w, "%s.interval.count: %d\n", s.Op, s.IntervalCount)
		fmt.Fprintf(w, "%s.interval.fail_count: %d\n", s.Op, s.IntervalFailures)
		if s.IntervalCount > 0 {
			fmt.Fprintf(w, "%s.interval.latency.avg_usec: %d\n", s.Op, s.IntervalAvgLatency.Microseconds())
			fmt.Fprintf(w, "%s.interval.latency.max_usec: %d\n", s.Op, s.IntervalMaxLatency.Microseconds())
			fmt.Fprintf(w, "%s.interval.latency.min_usec: %d\n", s.Op, s.IntervalMinLatency.Microseconds())
		}
	}

	total, interval := d.Registry.FopCount()
	fmt.Fprintf(w, "%s.total.fop-count: %d\n", d.Registry.name, total)
	fmt.Fprintf(w, "%s.interval.fop-count: %d\n", d.Registry.name, interval)

	if d.Memory != nil {
		pages, bytes := d.Memory()
		fmt.Fprintf(w, "mem.cached_pages: %d\n", pages)
		fmt.Fprintf(w, "mem.cached_bytes: %d\n", bytes)
		// Average bytes per cached page is omitted entirely when there are
		// no pages, rather than printed as a divide-by-zero NaN -- the
		// original dump_dict_details does the equivalent division
		// unconditionally and prints garbage when its count is zero.
		if pages > 0 {
			fmt.Fprintf(w, "mem.avg_bytes_per_page: %d\n", bytes/int64(pages))
		}
	}

	fmt.Fprintf(w, "mem.goroutines: %d\n", runtime.NumGoroutine())
	fmt.Fprintf(w, "# End of metrics\n")
	return nil
}
