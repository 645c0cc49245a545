// Package guard implements scoped page handles: a guard is constructed by
// a fetch/new call and the caller is expected to `defer g.Drop()` (or the
// read/write equivalent) so that every exit path, including an early
// return on error, releases the pin (and, for read/write guards, the
// latch) it holds. This stands in for the destructor a language with RAII
// would use to enforce the same obligation automatically.
//
// FetchPageWrite never builds a Write guard around a nil page pointer, and
// Drop on every guard variant checks for a nil page before dereferencing
// it.
package guard

import (
	"github.com/eddyli1989/bustub/page"
)

// Pool is the subset of the buffer pool a guard needs to release its
// obligations. It exists so this package does not need to import buffer
// (which imports guard to build its Fetch*/New* variants); any
// *buffer.Pool satisfies it structurally.
type Pool interface {
	Unpin(id page.ID, isDirty bool) bool
}

// Basic owns a pin on a page for as long as it lives. Guards are
// move-only in spirit: Go has no copy constructors to forbid, so the
// contract is enforced by convention. Pass guards by value and call
// Move() (or just stop using the source) rather than aliasing two guards
// over the same page.
type Basic struct {
	pool    Pool
	page    *page.Page
	isDirty bool
	dropped bool
}

// NewBasic wraps p in a Basic guard that will unpin it on Drop. p may be
// nil (a "null guard"), in which case Drop does nothing, matching a
// PoolExhausted fetch that returned no page.
func NewBasic(pool Pool, p *page.Page) Basic {
	return Basic{pool: pool, page: p}
}

// Page returns the underlying page, or nil for a null guard.
func (g *Basic) Page() *page.Page {
	return g.page
}

// IsNull reports whether this guard owns no page.
func (g *Basic) IsNull() bool {
	return g.page == nil
}

// MarkDirty sets the dirty hint that Drop will pass to Unpin.
func (g *Basic) MarkDirty() {
	g.isDirty = true
}

// Move transfers this guard's obligation to a new Basic value and leaves
// the receiver in a null, drop-safe state: the source of a move performs
// no action on its own Drop.
func (g *Basic) Move() Basic {
	moved := *g
	g.page = nil
	g.pool = nil
	g.dropped = true
	return moved
}

// Drop releases the pin this guard holds. It is idempotent and safe to
// call on a null guard. Call it via defer immediately after a successful
// fetch/new.
func (g *Basic) Drop() {
	if g.dropped || g.page == nil {
		g.dropped = true
		return
	}
	g.pool.Unpin(g.page.ID(), g.isDirty)
	g.dropped = true
	g.page = nil
	g.pool = nil
}

// Read wraps a Basic guard with a reader latch, acquired after the page
// was pinned and before the guard is returned to the caller.
type Read struct {
	inner   Basic
	latched bool
}

// NewRead wraps p (possibly nil) in a Read guard. If p is non-nil its
// reader latch is acquired before this call returns.
func NewRead(pool Pool, p *page.Page) Read {
	g := Read{inner: NewBasic(pool, p)}
	if p != nil {
		p.RLatch()
		g.latched = true
	}
	return g
}

// Page returns the underlying page, or nil for a null guard.
func (g *Read) Page() *page.Page {
	return g.inner.Page()
}

// IsNull reports whether this guard owns no page.
func (g *Read) IsNull() bool {
	return g.inner.IsNull()
}

// Move transfers this guard's latch-and-pin obligation, leaving the
// receiver null.
func (g *Read) Move() Read {
	moved := Read{inner: g.inner.Move(), latched: g.latched}
	g.latched = false
	return moved
}

// Drop releases the reader latch first, then the pin, so the unpin path
// never observes this goroutine still holding the latch.
func (g *Read) Drop() {
	if g.inner.page != nil && g.latched {
		g.inner.page.RUnlatch()
		g.latched = false
	}
	g.inner.Drop()
}

// Write wraps a Basic guard with a writer latch, the write-path analogue
// of Read.
type Write struct {
	inner   Basic
	latched bool
}

// NewWrite wraps p (possibly nil) in a Write guard. If p is non-nil its
// writer latch is acquired before this call returns. A nil p yields a null
// Write guard rather than one holding a dangling page pointer.
func NewWrite(pool Pool, p *page.Page) Write {
	g := Write{inner: NewBasic(pool, p)}
	if p != nil {
		p.WLatch()
		g.latched = true
	}
	return g
}

// Page returns the underlying page, or nil for a null guard.
func (g *Write) Page() *page.Page {
	return g.inner.Page()
}

// IsNull reports whether this guard owns no page.
func (g *Write) IsNull() bool {
	return g.inner.IsNull()
}

// MarkDirty sets the dirty hint that Drop will pass to Unpin.
func (g *Write) MarkDirty() {
	g.inner.MarkDirty()
}

// Move transfers this guard's latch-and-pin obligation, leaving the
// receiver null.
func (g *Write) Move() Write {
	moved := Write{inner: g.inner.Move(), latched: g.latched}
	g.latched = false
	return moved
}

// Drop releases the writer latch first, then the pin.
func (g *Write) Drop() {
	if g.inner.page != nil && g.latched {
		g.inner.page.WUnlatch()
		g.latched = false
	}
	g.inner.Drop()
}
