// Package storage provides a concrete recovery.StorageEngine: the collection
// of collaborators the recovery core needs but does not implement itself -
// LSN minting, a durable log sink, a page store, and a master record.
//
// Grounded on the teacher's db/db.go (which wires disk.Manager, a log
// manager, and a logger together the same way) and on disk/disk_manager.go
// for the page store shape. Unlike the teacher's DB, this package carries no
// buffer pool: the buffer manager and page cache are declared an external
// collaborator out of this module's scope (spec.md section 1), and this
// package exists to exercise the recovery core, not to be a production
// storage engine, so pages are kept in an unbounded in-memory map rather
// than under an eviction policy.
package storage

import (
	"sync"

	"ariesdb/disk"
	"ariesdb/disk/pages"
)

// PageStore holds the database's pages, their data durably backed by
// disk.Manager. Each page's pageLSN is kept only in memory: it is not
// written to disk, so a page loaded from disk after a reopen starts with
// pages.NullLSN.
type PageStore struct {
	mgr *disk.Manager

	mu    sync.Mutex
	pages map[uint64]*pages.Page
}

func NewPageStore(mgr *disk.Manager) *PageStore {
	return &PageStore{mgr: mgr, pages: make(map[uint64]*pages.Page)}
}

// NewPage allocates a fresh page, caching it in memory only; nothing reaches
// disk until a Write for it. The recovery manager's Write only logs an
// update; its PageFlushed is what forces the log before a page write.
func (s *PageStore) NewPage() *pages.Page {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.mgr.NewPageID()
	p := pages.NewPage(id)
	s.pages[id] = p
	return p
}

func (s *PageStore) get(pageID uint64) *pages.Page {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.pages[pageID]; ok {
		return p
	}

	p := pages.NewPage(pageID)
	data, err := s.mgr.ReadPage(pageID)
	if err == nil {
		p.Data = data
	}
	s.pages[pageID] = p
	return p
}

// GetLSN returns pageID's in-memory pageLSN: pages.NullLSN if the page has
// not been written since this store was opened.
func (s *PageStore) GetLSN(pageID uint64) pages.LSN {
	return s.get(pageID).GetPageLSN()
}

// Write applies data at offset within pageID and sets its in-memory pageLSN,
// persisting the page data to disk. Returns false if the underlying write fails,
// signalling recovery.ErrStorageUnavailable to the caller.
func (s *PageStore) Write(pageID uint64, offset uint32, data []byte, newPageLSN pages.LSN) bool {
	p := s.get(pageID)

	s.mu.Lock()
	if int(offset)+len(data) > len(p.Data) {
		s.mu.Unlock()
		return false
	}
	copy(p.Data[offset:], data)
	p.SetPageLSN(newPageLSN)
	buf := make([]byte, len(p.Data))
	copy(buf, p.Data)
	s.mu.Unlock()

	return s.mgr.WritePage(pageID, buf) == nil
}
