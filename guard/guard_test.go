package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eddyli1989/bustub/page"
)

type fakePool struct {
	unpinned []page.ID
	dirty    map[page.ID]bool
}

func newFakePool() *fakePool {
	return &fakePool{dirty: map[page.ID]bool{}}
}

func (f *fakePool) Unpin(id page.ID, isDirty bool) bool {
	f.unpinned = append(f.unpinned, id)
	f.dirty[id] = isDirty
	return true
}

func TestBasic_DropUnpinsExactlyOnce(t *testing.T) {
	pool := newFakePool()
	p := page.New()
	p.SetID(1)

	g := NewBasic(pool, p)
	g.Drop()
	g.Drop() // idempotent

	assert.Equal(t, []page.ID{1}, pool.unpinned)
}

func TestBasic_NullGuardDropIsNoOp(t *testing.T) {
	pool := newFakePool()
	g := NewBasic(pool, nil)
	assert.True(t, g.IsNull())
	g.Drop()
	assert.Empty(t, pool.unpinned)
}

func TestBasic_MarkDirtyPropagatesToUnpin(t *testing.T) {
	pool := newFakePool()
	p := page.New()
	p.SetID(2)

	g := NewBasic(pool, p)
	g.MarkDirty()
	g.Drop()

	assert.True(t, pool.dirty[2])
}

func TestBasic_MoveLeavesSourceNull(t *testing.T) {
	pool := newFakePool()
	p := page.New()
	p.SetID(3)

	g := NewBasic(pool, p)
	moved := g.Move()

	assert.True(t, g.IsNull())
	g.Drop() // should do nothing
	assert.Empty(t, pool.unpinned)

	moved.Drop()
	assert.Equal(t, []page.ID{3}, pool.unpinned)
}

func TestRead_DropReleasesLatchBeforeUnpin(t *testing.T) {
	pool := newFakePool()
	p := page.New()
	p.SetID(4)

	g := NewRead(pool, p)
	g.Drop()

	// latch must be released: a writer should be able to acquire it now.
	done := make(chan struct{})
	go func() {
		p.WLatch()
		p.WUnlatch()
		close(done)
	}()
	<-done

	assert.Equal(t, []page.ID{4}, pool.unpinned)
}

func TestWrite_NullGuardFromNilPage(t *testing.T) {
	pool := newFakePool()
	g := NewWrite(pool, nil)
	assert.True(t, g.IsNull())
	assert.NotPanics(t, g.Drop)
	assert.Empty(t, pool.unpinned)
}

func TestWrite_DropUnlatchesThenUnpins(t *testing.T) {
	pool := newFakePool()
	p := page.New()
	p.SetID(5)

	g := NewWrite(pool, p)
	g.MarkDirty()
	g.Drop()

	assert.Equal(t, []page.ID{5}, pool.unpinned)
	assert.True(t, pool.dirty[5])

	// latch released, readers can now proceed.
	p.RLatch()
	p.RUnlatch()
}
