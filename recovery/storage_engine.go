package recovery

import "ariesdb/disk/pages"

// StorageEngine is the inbound capability the recovery core consumes
// (spec.md section 6). The concrete implementation lives in package
// storage; this interface is what lets recovery.Manager stay free of any
// dependency on how LSNs, pages, and the master record are actually
// persisted.
type StorageEngine interface {
	// NextLSN returns a fresh, strictly increasing LSN.
	NextLSN() pages.LSN

	// UpdateLog appends a serialized record line to the durable log.
	// Returning implies durability of this record and all prior ones.
	UpdateLog(line string) error

	// GetLog returns the entire durable log as newline-separated record
	// lines, oldest first.
	GetLog() (string, error)

	// PageWrite writes bytes at offset in pageID and sets its pageLSN.
	// Returns false on engine failure (spec.md's StorageUnavailable).
	PageWrite(pageID uint64, offset uint32, data []byte, newPageLSN pages.LSN) bool

	// GetLSN returns the current pageLSN of pageID.
	GetLSN(pageID uint64) pages.LSN

	// StoreMaster durably records the master-record LSN.
	StoreMaster(lsn pages.LSN) error

	// GetMaster returns the master LSN, or pages.NullLSN if none exists.
	GetMaster() (pages.LSN, error)
}
