// Package buffer implements the buffer pool manager: the page-id-addressed
// cache that keeps a bounded working set of pages resident, pinning and
// unpinning them, evicting cold ones through the LRU-K replacer, and
// writing dirty pages back through the disk manager before their frame is
// reused.
//
// A single pool mutex guards the page table, free list and frame metadata.
// It is released around every disk manager page read and write and around
// page-latch acquisition, so a slow disk write or a blocked latch wait never
// stalls unrelated pool operations. Page id allocation and deallocation are
// called with it held.
package buffer

import (
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/panjf2000/ants"
	"golang.org/x/sync/singleflight"

	"github.com/eddyli1989/bustub/disk"
	"github.com/eddyli1989/bustub/guard"
	"github.com/eddyli1989/bustub/page"
	"github.com/eddyli1989/bustub/replacer"
	"github.com/eddyli1989/bustub/wal"
)

// Config carries the construction parameters for a Pool: frame count and
// the replacer's K. Callers and tests build one directly with plain
// struct literals; internal/config additionally knows how to populate one
// from the environment for the cmd/bufdemo entrypoint.
type Config struct {
	PoolSize  int
	ReplacerK int
}

// flushConcurrency bounds how many pages FlushAll writes back at once
// through the ants worker pool.
const flushConcurrency = 8

// Pool is the buffer pool manager. The zero value is not usable; construct
// one with New.
type Pool struct {
	mu sync.Mutex

	frames    []*page.Page
	pageTable map[page.ID]page.FrameID
	freeList  []page.FrameID

	replacer *replacer.Replacer
	disk     disk.IManager
	logMgr   wal.LogManager
	logger   *log.Logger

	// loads dedupes concurrent misses on the same page id into a single
	// disk read.
	loads singleflight.Group

	flushWorkers *ants.Pool
}

// New constructs a Pool with cfg.PoolSize frames, backed by dm for reads
// and writes. lm may be nil (defaults to wal.Default, a no-op); the pool
// holds it but never drives it itself. logger may be nil (defaults to
// log.Default()).
func New(cfg Config, dm disk.IManager, lm wal.LogManager, logger *log.Logger) (*Pool, error) {
	if cfg.PoolSize < 1 {
		return nil, fmt.Errorf("buffer: pool size must be >= 1, got %d", cfg.PoolSize)
	}
	if cfg.ReplacerK < 1 {
		return nil, fmt.Errorf("buffer: replacer k must be >= 1, got %d", cfg.ReplacerK)
	}
	if dm == nil {
		return nil, fmt.Errorf("buffer: disk manager is required")
	}
	if lm == nil {
		lm = wal.Default
	}
	if logger == nil {
		logger = log.Default()
	}

	frames := make([]*page.Page, cfg.PoolSize)
	freeList := make([]page.FrameID, cfg.PoolSize)
	for i := range frames {
		frames[i] = page.New()
		freeList[i] = page.FrameID(i)
	}

	workers, err := ants.NewPool(flushConcurrency)
	if err != nil {
		return nil, fmt.Errorf("buffer: starting flush worker pool: %w", err)
	}

	return &Pool{
		frames:       frames,
		pageTable:    make(map[page.ID]page.FrameID, cfg.PoolSize),
		freeList:     freeList,
		replacer:     replacer.New(cfg.PoolSize, cfg.ReplacerK),
		disk:         dm,
		logMgr:       lm,
		logger:       logger,
		flushWorkers: workers,
	}, nil
}

// Close releases the pool's background worker pool. It does not flush
// resident pages; call FlushAll first if that is wanted.
func (p *Pool) Close() {
	p.flushWorkers.Release()
}

// pin increments frameId's pin count and tells the replacer it was just
// accessed and must not be evicted. Must be called with p.mu held.
func (p *Pool) pin(frameID page.FrameID) {
	p.frames[frameID].IncrPinCount()
	p.replacer.RecordAccess(frameID)
	p.replacer.SetEvictable(frameID, false)
}

// acquireFrame obtains a frame for a new resident page, preferring the free
// list and falling back to the replacer's eviction choice. On entry and on
// return p.mu is held; it is released (and reacquired) around the disk
// manager writeback call if the victim frame's page was dirty, so a slow
// write never holds the pool latch.
func (p *Pool) acquireFrame() (page.FrameID, error) {
	if len(p.freeList) > 0 {
		frameID := p.freeList[0]
		p.freeList = p.freeList[1:]
		p.logger.Printf("buffer: free list is not empty, size %d, taking frame %d", len(p.freeList), frameID)
		return frameID, nil
	}

	frameID, ok := p.replacer.Evict()
	if !ok {
		p.logger.Printf("buffer: free list is empty and the replacer has nothing evictable")
		return 0, ErrPoolExhausted
	}
	p.logger.Printf("buffer: free list is empty, evicting frame %d", frameID)

	victim := p.frames[frameID]
	if victim.PinCount() != 0 {
		panic(fmt.Sprintf("buffer: frame %d chosen as eviction victim while pinned (pin count %d)", frameID, victim.PinCount()))
	}

	oldID := victim.ID()

	if victim.IsDirty() {
		p.logger.Printf("buffer: frame %d is dirty, writing page %d back before reuse", frameID, oldID)
		p.mu.Unlock()
		err := p.disk.WritePage(oldID, victim.Data())
		p.mu.Lock()
		if err != nil {
			// The frame still holds oldID's only copy of its bytes, and
			// Evict() already dropped its replacer node. Leave the page
			// table entry in place and re-register the frame with the
			// replacer as evictable, so the frame stays a valid eviction
			// candidate instead of being orphaned out of every tracking
			// structure.
			p.replacer.RecordAccess(frameID)
			p.replacer.SetEvictable(frameID, true)
			return 0, fmt.Errorf("buffer: writeback of evicted page %d failed: %w", oldID, err)
		}
		victim.SetClean()
	}

	delete(p.pageTable, oldID)
	return frameID, nil
}

// newPage allocates a fresh page id, installs it into a frame and pins it.
// Kept unexported: raw frame access is a private implementation detail,
// with NewPageGuarded the only public door.
func (p *Pool) newPage() (page.ID, *page.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameID, err := p.acquireFrame()
	if err != nil {
		return page.InvalidID, nil, err
	}

	pg := p.frames[frameID]
	id := p.disk.AllocatePage()
	p.logger.Printf("buffer: allocated page %d in frame %d", id, frameID)
	pg.Reset()
	pg.SetID(id)
	p.pageTable[id] = frameID
	p.pin(frameID)

	return id, pg, nil
}

// fetchPage returns the frame holding id, reading it from disk on a miss.
// Concurrent misses on the same id are collapsed into a single disk read
// via singleflight; kept unexported for the same reason as newPage.
func (p *Pool) fetchPage(id page.ID) (*page.Page, error) {
	if id == page.InvalidID {
		panic("buffer: FetchPage called with the sentinel invalid page id")
	}

	for {
		p.mu.Lock()
		if frameID, ok := p.pageTable[id]; ok {
			p.pin(frameID)
			pg := p.frames[frameID]
			p.mu.Unlock()
			return pg, nil
		}
		p.mu.Unlock()

		_, err, _ := p.loads.Do(strconv.FormatInt(int64(id), 10), func() (interface{}, error) {
			return nil, p.loadIntoFrame(id)
		})
		if err != nil {
			return nil, err
		}
		// Loop back around: the frame that was just loaded is unpinned
		// and evictable again (the load only held a protective pin while
		// the disk read was in flight), so every real caller, including
		// whichever goroutine happened to run the singleflight leader,
		// takes its own pin here, uniformly.
	}
}

// loadIntoFrame acquires a frame, installs id under a protective pin so no
// concurrent eviction can touch it mid-read, releases the pool latch for
// the actual disk read, then drops the protective pin back to zero so the
// caller(s) of fetchPage can each take their own.
func (p *Pool) loadIntoFrame(id page.ID) error {
	p.mu.Lock()
	if _, ok := p.pageTable[id]; ok {
		// Someone else installed it while we were waiting to enter this
		// singleflight call (possible across successive Do generations).
		p.mu.Unlock()
		return nil
	}

	frameID, err := p.acquireFrame()
	if err != nil {
		p.mu.Unlock()
		return err
	}

	pg := p.frames[frameID]
	pg.Reset()
	pg.SetID(id)
	p.pageTable[id] = frameID
	p.pin(frameID)
	p.mu.Unlock()

	p.logger.Printf("buffer: loading page %d into frame %d from disk", id, frameID)
	readErr := p.disk.ReadPage(id, pg.Data())

	p.mu.Lock()
	defer p.mu.Unlock()

	if readErr != nil {
		delete(p.pageTable, id)
		pg.DecrPinCount()
		p.replacer.SetEvictable(frameID, true)
		p.replacer.Remove(frameID)
		pg.SetID(page.InvalidID)
		p.freeList = append(p.freeList, frameID)
		return fmt.Errorf("buffer: loading page %d: %w", id, readErr)
	}

	pg.DecrPinCount()
	p.replacer.SetEvictable(frameID, true)
	return nil
}

// Unpin decrements id's pin count and OR-merges isDirty into its dirty
// flag. It returns false if id is unknown or already fully unpinned; that
// is not fatal, just the caller's bookkeeping mistake to handle. Implements
// guard.Pool so every guard variant can release its obligation through
// this exact path.
func (p *Pool) Unpin(id page.ID, isDirty bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameID, ok := p.pageTable[id]
	if !ok {
		return false
	}

	pg := p.frames[frameID]
	if pg.PinCount() <= 0 {
		return false
	}
	if isDirty {
		pg.SetDirty()
	}

	pg.DecrPinCount()
	if pg.PinCount() == 0 {
		p.replacer.SetEvictable(frameID, true)
	}
	return true
}

// FlushPage writes id's current bytes through the disk manager regardless
// of its dirty flag, then clears the flag. It returns false only if id is
// not resident; it never changes pin count or evictability.
func (p *Pool) FlushPage(id page.ID) bool {
	p.mu.Lock()
	frameID, ok := p.pageTable[id]
	if !ok {
		p.mu.Unlock()
		return false
	}
	pg := p.frames[frameID]
	p.mu.Unlock()

	if err := p.disk.WritePage(id, pg.Data()); err != nil {
		p.logger.Printf("buffer: flush of page %d failed: %v", id, err)
		return true
	}

	p.mu.Lock()
	if stillFrameID, stillResident := p.pageTable[id]; stillResident && stillFrameID == frameID && pg.ID() == id {
		pg.SetClean()
	}
	p.mu.Unlock()
	return true
}

// FlushAll snapshots the set of resident pages under the pool latch, then
// flushes each outside the latch via a bounded worker pool. Flushes race
// freely among themselves; there is no ordering guarantee. A page allocated
// or deleted after the snapshot is taken is not flushed; a snapshotted page
// is written with its bytes as of its own flush.
func (p *Pool) FlushAll() {
	p.mu.Lock()
	ids := make([]page.ID, 0, len(p.pageTable))
	for id := range p.pageTable {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(len(ids))
	for _, id := range ids {
		id := id
		if err := p.flushWorkers.Submit(func() {
			defer wg.Done()
			p.FlushPage(id)
		}); err != nil {
			// worker pool saturated/closed: fall back to flushing inline
			// rather than dropping the page silently.
			wg.Done()
			p.FlushPage(id)
		}
	}
	wg.Wait()
}

// DeletePage removes id from the pool. Unknown ids report success
// (idempotent); a pinned page is refused. A dirty page is flushed before
// its frame is reclaimed.
func (p *Pool) DeletePage(id page.ID) bool {
	p.mu.Lock()
	frameID, ok := p.pageTable[id]
	if !ok {
		p.mu.Unlock()
		return true
	}
	pg := p.frames[frameID]
	if pg.PinCount() != 0 {
		p.mu.Unlock()
		return false
	}
	dirty := pg.IsDirty()
	p.mu.Unlock()

	if dirty {
		p.FlushPage(id)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	frameID, ok = p.pageTable[id]
	if !ok {
		return true
	}
	pg = p.frames[frameID]
	if pg.PinCount() != 0 {
		return false
	}

	delete(p.pageTable, id)
	p.replacer.SetEvictable(frameID, true)
	p.replacer.Remove(frameID)
	pg.Reset()
	pg.SetID(page.InvalidID)
	p.freeList = append(p.freeList, frameID)
	p.disk.DeallocatePage(id)
	return true
}

// NewPageGuarded allocates a fresh page id and returns it pinned inside a
// Basic guard.
func (p *Pool) NewPageGuarded() (page.ID, guard.Basic, error) {
	id, pg, err := p.newPage()
	if err != nil {
		return page.InvalidID, guard.Basic{}, err
	}
	return id, guard.NewBasic(p, pg), nil
}

// FetchPageBasic fetches id and returns it pinned inside a Basic guard.
func (p *Pool) FetchPageBasic(id page.ID) (guard.Basic, error) {
	pg, err := p.fetchPage(id)
	if err != nil {
		return guard.Basic{}, err
	}
	return guard.NewBasic(p, pg), nil
}

// FetchPageRead fetches id, pins it, and additionally acquires its reader
// latch before returning. The latch is taken after the pin, and never
// while the pool latch is held, to avoid a deadlock ordering between the
// two locks.
func (p *Pool) FetchPageRead(id page.ID) (guard.Read, error) {
	pg, err := p.fetchPage(id)
	if err != nil {
		return guard.Read{}, err
	}
	return guard.NewRead(p, pg), nil
}

// FetchPageWrite fetches id, pins it, and additionally acquires its writer
// latch before returning.
func (p *Pool) FetchPageWrite(id page.ID) (guard.Write, error) {
	pg, err := p.fetchPage(id)
	if err != nil {
		return guard.Write{}, err
	}
	return guard.NewWrite(p, pg), nil
}
