package racache

// prefetch extends the cached range ahead of the file's most recent read
// offset, out to one read-ahead window, creating and fetching any page in
// that range not already indexed. It runs asynchronously, on its own
// goroutine, after every dispatchRead -- matching the original translator's
// read_ahead(), which fires from the same call site as the demand read
// rather than as a separate scheduled activity.
//
// A page prefetch creates has no waiters from the moment it's created: if
// nothing ever reads it, it stays in the index once filled until drop-behind
// or an invalidation evicts it. If it is evicted before its fetch returns,
// handleFetchResult discards the result (a wasted fetch).
func (fs *fileState) prefetch() {
	pageSize := fs.cache.cfg.PageSize

	fs.mu.Lock()
	windowEnd := ceilAlign(fs.offset, pageSize) + fs.cache.cfg.window()
	if fs.size > 0 {
		// An unknown (zero) size imposes no upper bound until a downstream
		// short read establishes one: see handleFetchResult in fetch.go,
		// which records fs.size the first time a fetch returns fewer bytes
		// than requested. Until then this guard simply doesn't fire, and
		// the prefetcher speculates all the way out to the window.
		if end := ceilAlign(fs.size, pageSize); windowEnd > end {
			windowEnd = end
		}
	}
	var toFetch []*page
	for pageOff := floorAlign(fs.offset, pageSize); pageOff < windowEnd; pageOff += pageSize {
		if fs.index.lookup(pageOff) != nil {
			continue
		}
		p := newPage(pageOff)
		fs.index.insert(p)
		toFetch = append(toFetch, p)
	}
	fs.mu.Unlock()

	for _, p := range toFetch {
		fs.acquire()
		go fs.fetchPage(p)
	}
}
