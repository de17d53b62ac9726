package svm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fillColumn(c *columnCache, i, n int, base float32) []float32 {
	col, filled := c.fetch(i, n)
	for k := filled; k < n; k++ {
		col[k] = base + float32(k)
	}
	return col
}

func TestCacheFetchRemembersColumns(t *testing.T) {
	c := newColumnCache(4, 1<<20)

	fillColumn(c, 0, 4, 100)
	col, filled := c.fetch(0, 4)
	assert.Equal(t, 4, filled)
	assert.Equal(t, float32(103), col[3])
}

func TestCacheGrowsPartialColumn(t *testing.T) {
	c := newColumnCache(4, 1<<20)

	fillColumn(c, 0, 2, 100)
	col, filled := c.fetch(0, 4)
	require.Equal(t, 2, filled)
	assert.Equal(t, float32(101), col[1])
	assert.Len(t, col, 4)
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	// room for exactly two 4-entry columns
	c := newColumnCache(4, 8*4)

	fillColumn(c, 0, 4, 100)
	fillColumn(c, 1, 4, 200)
	c.fetch(0, 4) // 1 is now least recent
	fillColumn(c, 2, 4, 300)

	_, filled := c.fetch(0, 4)
	assert.Equal(t, 4, filled, "column 0 was touched and should survive")
	_, filled = c.fetch(1, 4)
	assert.Equal(t, 0, filled, "column 1 should have been evicted")
}

func TestCacheSwapRemapsEntries(t *testing.T) {
	c := newColumnCache(4, 1<<20)

	fillColumn(c, 0, 4, 100)
	c.swap(1, 3)

	// the stored column's entries move with the swap
	col, filled := c.fetch(0, 4)
	require.Equal(t, 4, filled)
	assert.Equal(t, float32(103), col[1])
	assert.Equal(t, float32(101), col[3])
}

func TestCacheSwapMovesColumns(t *testing.T) {
	c := newColumnCache(4, 1<<20)

	fillColumn(c, 0, 4, 100)
	c.swap(0, 2)

	_, filled := c.fetch(2, 4)
	assert.Equal(t, 4, filled)
	_, filled = c.fetch(0, 4)
	assert.Equal(t, 0, filled)
}

func TestCacheSwapEvictsShortColumns(t *testing.T) {
	c := newColumnCache(4, 1<<20)

	fillColumn(c, 0, 2, 100) // too short to carry a 1<->3 swap
	c.swap(1, 3)

	_, filled := c.fetch(0, 4)
	assert.Equal(t, 0, filled)
}
