package disk

import "github.com/eddyli1989/bustub/page"

// IManager is the disk manager collaborator interface the buffer pool is
// written against. *Manager is the production implementation; tests that
// want to observe writeback without a filesystem substitute a fake
// satisfying this interface instead.
type IManager interface {
	ReadPage(id page.ID, dest []byte) error
	WritePage(id page.ID, src []byte) error
	AllocatePage() page.ID
	DeallocatePage(id page.ID)
}

var _ IManager = (*Manager)(nil)
