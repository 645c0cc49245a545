package replacer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eddyli1989/bustub/page"
)

func TestEvict_ReturnsNotOk_WhenNothingIsEvictable(t *testing.T) {
	r := New(32, 3)
	for i := 0; i < 32; i++ {
		r.RecordAccess(page.FrameID(i))
	}

	_, ok := r.Evict()
	assert.False(t, ok)
}

func TestEvict_DoesNotChoosePinned(t *testing.T) {
	r := New(32, 2)
	for i := 0; i < 32; i++ {
		r.RecordAccess(page.FrameID(i))
	}
	r.SetEvictable(page.FrameID(31), true)

	fid, ok := r.Evict()
	assert.True(t, ok)
	assert.Equal(t, page.FrameID(31), fid)
}

// TestEvict_PrefersInfiniteBackwardKDist checks that frames without K
// accesses beat frames that have a full K-length history, even if the
// full-history frames were accessed longer ago.
func TestEvict_PrefersInfiniteBackwardKDist(t *testing.T) {
	r := New(3, 3)

	// frame 0: 3 accesses (full history)
	r.RecordAccess(0)
	r.RecordAccess(0)
	r.RecordAccess(0)
	// frame 1: 3 accesses (full history)
	r.RecordAccess(1)
	r.RecordAccess(1)
	r.RecordAccess(1)
	// frame 2: 1 access (infinite backward-k distance)
	r.RecordAccess(2)

	r.SetEvictable(0, true)
	r.SetEvictable(1, true)
	r.SetEvictable(2, true)

	fid, ok := r.Evict()
	assert.True(t, ok)
	assert.Equal(t, page.FrameID(2), fid)
}

// TestEvict_TieBreaksInfiniteByEarliestAccess checks that among several
// infinite-distance frames, the one accessed longest ago (smallest
// earliest timestamp => largest distance) is evicted first.
func TestEvict_TieBreaksInfiniteByEarliestAccess(t *testing.T) {
	r := New(3, 2)

	r.RecordAccess(0)
	r.RecordAccess(1)
	r.RecordAccess(2)

	r.SetEvictable(0, true)
	r.SetEvictable(1, true)
	r.SetEvictable(2, true)

	fid, ok := r.Evict()
	assert.True(t, ok)
	assert.Equal(t, page.FrameID(0), fid)
}

func TestEvict_PrefersLargerBackwardKDistAmongFullHistoryFrames(t *testing.T) {
	r := New(2, 2)

	r.RecordAccess(0)
	r.RecordAccess(0)
	r.RecordAccess(1)
	r.RecordAccess(1)
	// frame 0's window is older than frame 1's, so its backward-k distance
	// (measured from "now") is larger.

	r.SetEvictable(0, true)
	r.SetEvictable(1, true)

	fid, ok := r.Evict()
	assert.True(t, ok)
	assert.Equal(t, page.FrameID(0), fid)
}

func TestSetEvictable_UnknownFrameIsIgnored(t *testing.T) {
	r := New(4, 2)
	assert.NotPanics(t, func() { r.SetEvictable(99, true) })
	assert.Equal(t, 0, r.Size())
}

func TestSize_TracksEvictableCount(t *testing.T) {
	r := New(4, 2)
	r.RecordAccess(0)
	r.RecordAccess(1)
	assert.Equal(t, 0, r.Size())

	r.SetEvictable(0, true)
	assert.Equal(t, 1, r.Size())

	r.SetEvictable(1, true)
	assert.Equal(t, 2, r.Size())

	r.SetEvictable(0, false)
	assert.Equal(t, 1, r.Size())
}

func TestRemove_UnknownFrameIsIgnored(t *testing.T) {
	r := New(4, 2)
	assert.NotPanics(t, func() { r.Remove(99) })
}

func TestRemove_PanicsOnNonEvictable(t *testing.T) {
	r := New(4, 2)
	r.RecordAccess(0)
	assert.Panics(t, func() { r.Remove(0) })
}

func TestRemove_DecrementsSize(t *testing.T) {
	r := New(4, 2)
	r.RecordAccess(0)
	r.SetEvictable(0, true)
	assert.Equal(t, 1, r.Size())

	r.Remove(0)
	assert.Equal(t, 0, r.Size())
}

func TestRecordAccess_PanicsOnOutOfRangeFrame(t *testing.T) {
	r := New(4, 2)
	assert.Panics(t, func() { r.RecordAccess(4) })
}

// TestHasInfBackwardKDist_IsStrictlyLessThanK guards against the off-by-one
// mistake of treating a frame with exactly K accesses as still having
// infinite backward-k distance.
func TestHasInfBackwardKDist_IsStrictlyLessThanK(t *testing.T) {
	r := New(2, 2)

	// frame 0 has exactly k=2 accesses: full history, finite distance.
	r.RecordAccess(0)
	r.RecordAccess(0)
	// frame 1 has 1 access: infinite distance.
	r.RecordAccess(1)

	r.SetEvictable(0, true)
	r.SetEvictable(1, true)

	fid, ok := r.Evict()
	assert.True(t, ok)
	assert.Equal(t, page.FrameID(1), fid, "frame with fewer than k accesses must be preferred for eviction")
}
