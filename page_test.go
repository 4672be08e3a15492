package racache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageEvictableEmpty(t *testing.T) {
	p := newPage(0)
	assert.True(t, p.evictable())
}

func TestPageEvictableWithWaiter(t *testing.T) {
	p := newPage(0)
	p.addWaiter(&fragment{})
	assert.False(t, p.evictable())
}

func TestPageFillWakesWaiters(t *testing.T) {
	p := newPage(0)
	f1 := &fragment{}
	f2 := &fragment{}
	p.addWaiter(f1)
	p.addWaiter(f2)

	woken := p.fill([]byte("hello"), nil)
	require.Len(t, woken, 2)
	assert.Same(t, f1, woken[0])
	assert.Same(t, f2, woken[1])
	assert.True(t, p.evictable(), "waiters must be cleared once delivered")
	assert.True(t, p.ready)
	assert.NoError(t, p.err)
}

func TestPageFillOverwritesPreviousContents(t *testing.T) {
	// A page already READY from a prior fetch can be re-filled by a second
	// downstream fetch racing behind it; the newer result wins outright.
	p := newPage(0)
	p.fill([]byte("stale"), nil)
	p.fill([]byte("fresh"), nil)
	assert.Equal(t, []byte("fresh"), p.data)
}

func TestPageFillRecordsError(t *testing.T) {
	p := newPage(0)
	f := &fragment{}
	p.addWaiter(f)
	errBoom := assertError("boom")
	woken := p.fill(nil, errBoom)
	require.Len(t, woken, 1)
	assert.True(t, p.ready)
	assert.Equal(t, errBoom, p.err)
}

func TestPageSliceClampsShortRead(t *testing.T) {
	p := newPage(0)
	p.fill([]byte("abc"), nil)
	assert.Equal(t, []byte("abc"), p.slice(0, 10))
	assert.Nil(t, p.slice(10, 20))
	assert.Equal(t, []byte("bc"), p.slice(1, 10))
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func assertError(s string) error { return assertErr(s) }
