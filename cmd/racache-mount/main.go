// Command racache-mount mounts a directory of local files through a
// read-ahead cache via FUSE, for manual testing and demonstration.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/grailbio/racache"
	"github.com/grailbio/racache/internal/rlog"
	"github.com/grailbio/racache/metrics"
	"github.com/grailbio/racache/racachefuse"
)

func main() {
	var (
		source     = flag.String("source", "", "local directory to serve through the cache (required)")
		mountpoint = flag.String("mountpoint", "", "FUSE mountpoint (required)")
		pageSize   = flag.Int64("page-size", racache.DefaultPageSize, "cache page size in bytes")
		pageCount  = flag.Int("page-count", racache.DefaultPageCount, "read-ahead window size in pages")
		debug      = flag.Bool("debug", false, "log FUSE operations")
		metricsDir = flag.String("metrics-dir", "", "directory to dump periodic metrics snapshots into; disabled if empty")
	)
	flag.Parse()
	if *debug {
		rlog.SetLevel(rlog.Debug)
	}
	if *source == "" || *mountpoint == "" {
		fmt.Fprintln(os.Stderr, "racache-mount: -source and -mountpoint are required")
		os.Exit(2)
	}

	cfg := racache.Config{PageSize: *pageSize, PageCount: *pageCount}
	cache, err := racache.New(racachefuse.LocalDownstream{}, cfg)
	if err != nil {
		rlog.Error.Printf("racache-mount: %v", err)
		os.Exit(1)
	}

	var registry *metrics.Registry
	if *metricsDir != "" {
		registry = metrics.NewRegistry(*mountpoint)
		cache.SetMetrics(registry)
		go runMetricsDumper(registry, *metricsDir)
	}

	root, err := racachefuse.NewRoot(*source, cache)
	if err != nil {
		rlog.Error.Printf("racache-mount: %v", err)
		os.Exit(1)
	}

	mountOpts := fuse.MountOptions{FsName: "racache", Name: "racache"}
	racachefuse.ConfigureMountOptions(&mountOpts)
	server, err := fs.Mount(*mountpoint, root, &fs.Options{MountOptions: mountOpts})
	if err != nil {
		rlog.Error.Printf("racache-mount: mount failed: %v", err)
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		_ = server.Unmount()
	}()
	server.Wait()
}

func runMetricsDumper(registry *metrics.Registry, dir string) {
	dumper := &metrics.Dumper{Registry: registry, Dir: dir}
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		if path, err := dumper.Dump(); err != nil {
			rlog.Error.Printf("racache-mount: metrics dump failed: %v", err)
		} else {
			rlog.Debug.Printf("racache-mount: wrote metrics to %s", path)
		}
	}
}
