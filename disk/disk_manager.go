// Package disk implements the external disk manager collaborator consumed
// by the buffer pool: reading and writing whole pages to a backing file,
// and handing out fresh page ids.
package disk

import (
	"fmt"
	"sync"

	"github.com/spf13/afero"

	"github.com/eddyli1989/bustub/page"
)

// Manager is the collaborator the buffer pool calls into on a cache miss
// (ReadPage) and on dirty writeback (WritePage). I/O failure handling is
// delegated entirely to this layer: Manager surfaces errors so tests and
// the demo can observe them. The buffer pool fails a fetch on a read error
// and a frame acquisition on an eviction writeback error; FlushPage only
// logs a write error and still reports true.
type Manager struct {
	mu sync.Mutex

	fs       afero.Fs
	filename string
	file     afero.File

	nextPageID page.ID
}

// New opens (creating if necessary) filename on fs and returns a Manager
// ready to serve ReadPage/WritePage calls. Production callers pass
// afero.NewOsFs(); tests pass afero.NewMemMapFs() for a disk-free run.
func New(fs afero.Fs, filename string) (*Manager, error) {
	f, err := fs.OpenFile(filename, fileOpenFlags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("disk: open %s: %w", filename, err)
	}

	return &Manager{
		fs:         fs,
		filename:   filename,
		file:       f,
		nextPageID: 0,
	}, nil
}

// ReadPage fills dest (which must be page.Size bytes) with the on-disk
// contents of id. It blocks until the read completes.
func (m *Manager) ReadPage(id page.ID, dest []byte) error {
	if len(dest) != page.Size {
		return fmt.Errorf("disk: ReadPage dest must be %d bytes, got %d", page.Size, len(dest))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	off := int64(id) * int64(page.Size)
	n, err := m.file.ReadAt(dest, off)
	if err != nil {
		return fmt.Errorf("disk: ReadPage(%d): %w", id, err)
	}
	if n != page.Size {
		return fmt.Errorf("disk: ReadPage(%d): short read of %d bytes", id, n)
	}
	return nil
}

// WritePage persists src (page.Size bytes) as the contents of id.
func (m *Manager) WritePage(id page.ID, src []byte) error {
	if len(src) != page.Size {
		return fmt.Errorf("disk: WritePage src must be %d bytes, got %d", page.Size, len(src))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	off := int64(id) * int64(page.Size)
	n, err := m.file.WriteAt(src, off)
	if err != nil {
		return fmt.Errorf("disk: WritePage(%d): %w", id, err)
	}
	if n != page.Size {
		return fmt.Errorf("disk: WritePage(%d): short write of %d bytes", id, n)
	}
	return nil
}

// AllocatePage returns the next page id from the internal monotonic
// counter. It is the only source of fresh ids; a deleted id is never
// reissued within the lifetime of this Manager.
func (m *Manager) AllocatePage() page.ID {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextPageID
	m.nextPageID++
	return id
}

// DeallocatePage is the default no-op hook invoked by DeletePage.
// Production deployments that reclaim disk space can replace it with a
// Manager variant that appends the freed id to an on-disk free list; this
// layer does not need that durability.
func (m *Manager) DeallocatePage(page.ID) {}

// Close releases the underlying file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.file.Close()
}
