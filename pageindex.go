package racache

import "sort"

// pageIndex is the ordered collection of pages belonging to one file, keyed
// by page-aligned offset. It has no lock of its own: all mutation and
// lookup happens under the owning fileState's mutex, the same way
// github.com/grailbio/base/sync/loadingcache.Map centralizes its map behind
// a single mutex rather than trying to get fine-grained concurrency right
// for what's expected to be a small collection.
type pageIndex struct {
	m map[int64]*page
}

// lookup returns the page at the exact page-aligned offset, or nil.
func (pi *pageIndex) lookup(offset int64) *page {
	if pi.m == nil {
		return nil
	}
	return pi.m[offset]
}

// insert adds p to the index. The caller must have already looked up
// p.offset and found it absent; insert panics (via a bug, not a user-facing
// error) if the slot is already occupied, since that indicates a caller
// skipped the required lookup-first discipline.
func (pi *pageIndex) insert(p *page) {
	if pi.m == nil {
		pi.m = make(map[int64]*page)
	}
	if _, ok := pi.m[p.offset]; ok {
		panic("racache: pageIndex.insert called on an already-present offset")
	}
	pi.m[p.offset] = p
}

// remove unconditionally drops the page at offset, if present.
func (pi *pageIndex) remove(offset int64) {
	delete(pi.m, offset)
}

// flushRegion removes every page p such that lo <= p.offset < hi and p has
// no pending waiters; pages with waiters are left in place for a later
// flush to retry. It returns the removed pages, so callers can report them
// to the metrics recorder as freed.
func (pi *pageIndex) flushRegion(lo, hi int64) []*page {
	var removed []*page
	for offset, p := range pi.m {
		if offset >= lo && offset < hi && p.evictable() {
			removed = append(removed, p)
			delete(pi.m, offset)
		}
	}
	return removed
}

// iterAscending returns every page in the index, sorted by offset. The
// index's steady-state size is bounded by page-count (see the resource
// caps in the concurrency model), so a sort per call is cheap.
func (pi *pageIndex) iterAscending() []*page {
	pages := make([]*page, 0, len(pi.m))
	for _, p := range pi.m {
		pages = append(pages, p)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].offset < pages[j].offset })
	return pages
}

// len reports the number of pages currently indexed.
func (pi *pageIndex) len() int { return len(pi.m) }
