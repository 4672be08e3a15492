package racachefuse

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalDownstreamOpenReadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	var ds LocalDownstream
	h, info, err := ds.Open(context.Background(), path, os.O_RDONLY, 0)
	require.NoError(t, err)
	defer h.Close(context.Background())

	assert.EqualValues(t, 5, info.Size)
	buf := make([]byte, 5)
	n, err := h.ReadAt(context.Background(), buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))
}

func TestLocalDownstreamCreateTruncatesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(path, []byte("stale content"), 0o644))

	var ds LocalDownstream
	h, info, err := ds.Create(context.Background(), path, 0o644)
	require.NoError(t, err)
	defer h.Close(context.Background())

	assert.EqualValues(t, 0, info.Size)
	n, err := h.WriteAt(context.Background(), []byte("new"), 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, h.Fsync(context.Background(), false))
}
