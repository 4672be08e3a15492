package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRecordAccumulatesAndResetsInterval(t *testing.T) {
	r := NewRegistry("test")
	r.Record("readahead.fetch", 10*time.Millisecond, nil)
	r.Record("readahead.fetch", 30*time.Millisecond, assertErr("boom"))

	snaps := r.Snapshot()
	require.Len(t, snaps, 1)
	s := snaps[0]
	assert.EqualValues(t, 2, s.TotalCount)
	assert.EqualValues(t, 1, s.TotalFailures)
	assert.EqualValues(t, 2, s.IntervalCount)
	assert.Equal(t, 20*time.Millisecond, s.AvgLatency)
	assert.Equal(t, 30*time.Millisecond, s.MaxLatency)
	assert.Equal(t, 10*time.Millisecond, s.MinLatency)

	// A second snapshot with no new activity must show a drained interval
	// but an unchanged lifetime total.
	again := r.Snapshot()[0]
	assert.EqualValues(t, 2, again.TotalCount)
	assert.EqualValues(t, 0, again.IntervalCount)
}

func TestDumperWritesExpectedFormat(t *testing.T) {
	r := NewRegistry("test")
	r.Record("readahead.open", 5*time.Millisecond, nil)

	dir := t.TempDir()
	d := &Dumper{
		Registry: r,
		Dir:      filepath.Join(dir, "nested"),
		Memory:   func() (int, int64) { return 4, 65536 },
	}

	path, err := d.Dump()
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(data)

	assert.True(t, strings.HasSuffix(strings.TrimRight(body, "\n"), "# End of metrics"))
	assert.Contains(t, body, "readahead.open.total.count: 1")
	assert.Contains(t, body, "mem.cached_pages: 4")
	assert.Contains(t, body, "mem.avg_bytes_per_page: 16384")
}

func TestDumperOmitsAverageWhenNoPagesCached(t *testing.T) {
	r := NewRegistry("test")
	d := &Dumper{
		Registry: r,
		Dir:      t.TempDir(),
		Memory:   func() (int, int64) { return 0, 0 },
	}
	path, err := d.Dump()
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "avg_bytes_per_page")
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
