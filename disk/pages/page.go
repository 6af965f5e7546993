package pages

import "ariesdb/disk"

// Page is the in-memory representation of a single fixed-size physical page.
// It is the minimal shape the recovery core's storage engine needs: a
// pageLSN to enforce WAL, and a flat byte buffer to apply after-images to.
// Unlike the teacher's RawPage, it carries no pin count or latch - the
// buffer manager and page cache that would need those are an external
// collaborator out of this module's scope (spec.md section 1).
type Page struct {
	PageID  uint64
	Data    []byte
	pageLSN LSN
}

func NewPage(pageID uint64) *Page {
	return &Page{
		PageID: pageID,
		Data:   make([]byte, disk.PageSize),
	}
}

func (p *Page) GetPageLSN() LSN {
	return p.pageLSN
}

func (p *Page) SetPageLSN(lsn LSN) {
	p.pageLSN = lsn
}
