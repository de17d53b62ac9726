package svm

// columnCache keeps recently used kernel columns inside a byte budget,
// evicting in least-recently-used order. Columns are float32: the
// original trades precision of cached entries for twice the cache
// reach, and the solver accumulates in float64 regardless.
//
// A cache instance belongs to exactly one solver; it is not safe for
// concurrent use and is never shared between the sub-problems of a
// multi-class fit.
type columnCache struct {
	free    int64 // remaining entries before eviction kicks in
	entries []cacheEntry
	lru     cacheEntry // circular list head, least recent first
}

type cacheEntry struct {
	prev, next *cacheEntry
	data       []float32
}

func newColumnCache(l int, budgetBytes int64) *columnCache {
	c := &columnCache{
		free:    budgetBytes / 4,
		entries: make([]cacheEntry, l),
	}
	// the working-pair update always needs two full columns resident
	if c.free < int64(2*l) {
		c.free = int64(2 * l)
	}
	c.lru.prev = &c.lru
	c.lru.next = &c.lru
	return c
}

func (c *columnCache) unlink(h *cacheEntry) {
	h.prev.next = h.next
	h.next.prev = h.prev
}

func (c *columnCache) touch(h *cacheEntry) {
	h.next = &c.lru
	h.prev = c.lru.prev
	h.prev.next = h
	h.next.prev = h
}

// fetch returns the column for index i with at least n leading entries
// and the count already populated. The caller fills [filled, n) and
// must not hold the slice across another fetch after eviction.
func (c *columnCache) fetch(i, n int) (col []float32, filled int) {
	h := &c.entries[i]
	if h.data != nil {
		c.unlink(h)
	}
	filled = len(h.data)
	if more := n - filled; more > 0 {
		for c.free < int64(more) {
			old := c.lru.next
			c.unlink(old)
			c.free += int64(len(old.data))
			old.data = nil
		}
		grown := make([]float32, n)
		copy(grown, h.data)
		h.data = grown
		c.free -= int64(more)
	}
	c.touch(h)
	return h.data, filled
}

// swap exchanges the cached state of indices i and j, mirroring an
// active-set swap in the solver. Columns that cannot be remapped
// cheaply are dropped and recomputed on demand.
func (c *columnCache) swap(i, j int) {
	if i == j {
		return
	}
	hi, hj := &c.entries[i], &c.entries[j]
	if hi.data != nil {
		c.unlink(hi)
	}
	if hj.data != nil {
		c.unlink(hj)
	}
	hi.data, hj.data = hj.data, hi.data
	if hi.data != nil {
		c.touch(hi)
	}
	if hj.data != nil {
		c.touch(hj)
	}

	if i > j {
		i, j = j, i
	}
	for h := c.lru.next; h != &c.lru; h = h.next {
		if len(h.data) > i {
			if len(h.data) > j {
				h.data[i], h.data[j] = h.data[j], h.data[i]
			} else {
				// column too short to carry the swap; evict
				prev := h.prev
				c.unlink(h)
				c.free += int64(len(h.data))
				h.data = nil
				h = prev
			}
		}
	}
}
