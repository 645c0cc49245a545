// Package replacer implements the LRU-K eviction policy (O'Neil et al.):
// prefer evicting frames without K recorded accesses yet (infinite
// backward-K distance), and among those break ties by largest distance,
// falling back to classic backward-K-distance comparisons once every
// tracked frame has K accesses.
//
// Two details are worth calling out:
//
//   - a frame with exactly K accesses is classified by the strict
//     len(history) < k, not <=, so a frame that just reached K accesses is
//     no longer treated as having infinite distance.
//   - the access clock is a monotonic logical counter incremented on every
//     RecordAccess, not wall time, so eviction order never depends on
//     system clock resolution or skew.
package replacer

import (
	"fmt"
	"sort"
	"sync"

	"github.com/eddyli1989/bustub/page"
)

// node is the per-frame access bookkeeping: a sliding window of up to K
// access timestamps, oldest first, and whether the frame is currently a
// candidate for eviction.
type node struct {
	history   []int64
	evictable bool
}

// hasInfDistance reports whether this node has fewer than k recorded
// accesses, i.e. its backward-K distance is treated as infinite.
func (n *node) hasInfDistance(k int) bool {
	return len(n.history) < k
}

// distance returns the node's backward-K distance at currentTimestamp.
// For a full-history node this is current minus the k-th-most-recent
// timestamp; for an infinite-distance node it is current minus the
// earliest recorded timestamp. Both cases reduce to the same subtraction
// because the sliding window is kept oldest-first and trimmed to at most
// k entries: history[0] is simultaneously "the earliest timestamp" and,
// once the window is full, "the k-th most recent timestamp".
func (n *node) distance(currentTimestamp int64) int64 {
	return currentTimestamp - n.history[0]
}

// insert appends a new access timestamp, dropping the oldest entry once
// the window would exceed k.
func (n *node) insert(k int, timestamp int64) {
	if len(n.history) >= k {
		n.history = n.history[1:]
	}
	n.history = append(n.history, timestamp)
}

// Replacer tracks access history for every frame the buffer pool has
// pinned at least once and picks eviction victims among the ones currently
// marked evictable.
type Replacer struct {
	mu sync.Mutex

	poolSize int
	k        int

	nodes   map[page.FrameID]*node
	clock   int64
	curSize int
}

// New returns a Replacer sized for poolSize frames, tracking the K most
// recent accesses per frame.
func New(poolSize, k int) *Replacer {
	return &Replacer{
		poolSize: poolSize,
		k:        k,
		nodes:    make(map[page.FrameID]*node),
	}
}

// RecordAccess appends the current logical timestamp to frameId's history,
// allocating a node (default non-evictable) on first access.
func (r *Replacer) RecordAccess(frameID page.FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if int(frameID) >= r.poolSize || frameID < 0 {
		panic(fmt.Sprintf("replacer: frame id %d out of range [0, %d)", frameID, r.poolSize))
	}

	r.clock++

	n, ok := r.nodes[frameID]
	if !ok {
		n = &node{}
		r.nodes[frameID] = n
	}
	n.insert(r.k, r.clock)
}

// SetEvictable toggles frameId's evictable flag, maintaining curSize.
// Unknown frames are silently ignored.
func (r *Replacer) SetEvictable(frameID page.FrameID, evictable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[frameID]
	if !ok {
		return
	}

	if !n.evictable && evictable {
		r.curSize++
	} else if n.evictable && !evictable {
		r.curSize--
	}
	n.evictable = evictable
}

// Evict scans every evictable node and returns the frame id that the
// LRU-K heuristic predicts is least likely to be accessed again soon,
// removing its node as a side effect. It returns ok=false if nothing is
// evictable.
func (r *Replacer) Evict() (frameID page.FrameID, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	victim, found := r.chooseVictimLocked()
	if !found {
		return 0, false
	}

	delete(r.nodes, victim)
	r.curSize--
	return victim, true
}

// chooseVictimLocked orders candidates so that infinite-distance nodes beat
// finite-distance ones; within a class, larger distance wins; ties are
// broken deterministically by ascending frame id so that two runs over the
// same history always agree, since map iteration order is not something to
// depend on.
func (r *Replacer) chooseVictimLocked() (page.FrameID, bool) {
	var (
		best      page.FrameID
		bestDist  int64 = -1
		bestIsInf bool
		found     bool
	)

	frames := make([]page.FrameID, 0, len(r.nodes))
	for fid := range r.nodes {
		frames = append(frames, fid)
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i] < frames[j] })

	for _, fid := range frames {
		n := r.nodes[fid]
		if !n.evictable {
			continue
		}

		isInf := n.hasInfDistance(r.k)
		dist := n.distance(r.clock)

		switch {
		case !found:
			best, bestDist, bestIsInf, found = fid, dist, isInf, true
		case isInf && !bestIsInf:
			best, bestDist, bestIsInf = fid, dist, isInf
		case isInf == bestIsInf && dist > bestDist:
			best, bestDist = fid, dist
		}
	}

	return best, found
}

// Remove erases frameId's node outright, asserting it was evictable. This
// is used by DeletePage, which removes a page the replacer may be tracking
// without going through Evict. Unknown frames are silently ignored.
func (r *Replacer) Remove(frameID page.FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[frameID]
	if !ok {
		return
	}
	if !n.evictable {
		panic(fmt.Sprintf("replacer: Remove called on non-evictable frame %d", frameID))
	}

	delete(r.nodes, frameID)
	r.curSize--
}

// Size returns the number of frames currently marked evictable.
func (r *Replacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.curSize
}

