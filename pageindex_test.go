package racache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageIndexLookupInsertRemove(t *testing.T) {
	var pi pageIndex
	assert.Nil(t, pi.lookup(0))

	p := newPage(0)
	pi.insert(p)
	assert.Same(t, p, pi.lookup(0))
	assert.Equal(t, 1, pi.len())

	pi.remove(0)
	assert.Nil(t, pi.lookup(0))
	assert.Equal(t, 0, pi.len())
}

func TestPageIndexInsertPanicsOnDuplicate(t *testing.T) {
	var pi pageIndex
	pi.insert(newPage(0))
	assert.Panics(t, func() { pi.insert(newPage(0)) })
}

func TestPageIndexFlushRegionSkipsWaitedPages(t *testing.T) {
	var pi pageIndex
	free := newPage(0)
	waited := newPage(pageSizeForTest)
	waited.addWaiter(&fragment{})
	pi.insert(free)
	pi.insert(waited)

	removed := pi.flushRegion(0, 2*pageSizeForTest)
	require.Len(t, removed, 1)
	assert.Same(t, free, removed[0])
	assert.Nil(t, pi.lookup(0))
	assert.NotNil(t, pi.lookup(pageSizeForTest))
}

func TestPageIndexFlushRegionRespectsBounds(t *testing.T) {
	var pi pageIndex
	pi.insert(newPage(0))
	pi.insert(newPage(pageSizeForTest))
	pi.insert(newPage(2 * pageSizeForTest))

	removed := pi.flushRegion(pageSizeForTest, 2*pageSizeForTest)
	require.Len(t, removed, 1)
	assert.Equal(t, pageSizeForTest, removed[0].offset)
	assert.Equal(t, 2, pi.len())
}

func TestPageIndexIterAscending(t *testing.T) {
	var pi pageIndex
	pi.insert(newPage(3 * pageSizeForTest))
	pi.insert(newPage(0))
	pi.insert(newPage(pageSizeForTest))

	pages := pi.iterAscending()
	require.Len(t, pages, 3)
	assert.Equal(t, int64(0), pages[0].offset)
	assert.Equal(t, pageSizeForTest, pages[1].offset)
	assert.Equal(t, 3*pageSizeForTest, pages[2].offset)
}

const pageSizeForTest = int64(4096)
