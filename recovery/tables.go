package recovery

import (
	"ariesdb/disk/pages"
	"ariesdb/transaction"
	"ariesdb/wal"
)

// TxnTableEntry is a live row of the Transaction Table (spec.md section 3):
// the LSN of the most recent record appended for a transaction, and whether
// it is still in-progress or has committed and is awaiting its END.
type TxnTableEntry struct {
	LastLSN pages.LSN
	Status  wal.TxnStatus
}

// TransactionTable maps txID -> {lastLSN, status}. Entries are created
// lazily on first Write for a txn, reconstructed by Analyze, and removed on
// END.
type TransactionTable struct {
	entries map[transaction.TxnID]*TxnTableEntry
}

func NewTransactionTable() *TransactionTable {
	return &TransactionTable{entries: make(map[transaction.TxnID]*TxnTableEntry)}
}

func (t *TransactionTable) Get(txID transaction.TxnID) (*TxnTableEntry, bool) {
	e, ok := t.entries[txID]
	return e, ok
}

// SetLastLSN records lsn as txID's most recent record, creating the entry
// (with status U) if txID is not yet live.
func (t *TransactionTable) SetLastLSN(txID transaction.TxnID, lsn pages.LSN) {
	e, ok := t.entries[txID]
	if !ok {
		e = &TxnTableEntry{Status: wal.StatusUndo}
		t.entries[txID] = e
	}
	e.LastLSN = lsn
}

func (t *TransactionTable) SetStatus(txID transaction.TxnID, status wal.TxnStatus) {
	e, ok := t.entries[txID]
	if !ok {
		e = &TxnTableEntry{}
		t.entries[txID] = e
	}
	e.Status = status
}

func (t *TransactionTable) Delete(txID transaction.TxnID) {
	delete(t.entries, txID)
}

func (t *TransactionTable) Len() int {
	return len(t.entries)
}

// Each calls fn for every live transaction. fn must not mutate the table;
// callers that need to delete while iterating collect IDs first.
func (t *TransactionTable) Each(fn func(txID transaction.TxnID, entry *TxnTableEntry)) {
	for txID, e := range t.entries {
		fn(txID, e)
	}
}

// Snapshot captures the table's current contents for an END_CKPT payload.
func (t *TransactionTable) Snapshot() []wal.TxnTableEntry {
	out := make([]wal.TxnTableEntry, 0, len(t.entries))
	for txID, e := range t.entries {
		out = append(out, wal.TxnTableEntry{TxID: txID, LastLSN: e.LastLSN, Status: e.Status})
	}
	return out
}

// LoadSnapshot replaces the table's contents with a checkpoint snapshot.
func (t *TransactionTable) LoadSnapshot(rows []wal.TxnTableEntry) {
	t.entries = make(map[transaction.TxnID]*TxnTableEntry, len(rows))
	for _, r := range rows {
		t.entries[r.TxID] = &TxnTableEntry{LastLSN: r.LastLSN, Status: r.Status}
	}
}

// DirtyPageTable maps pageID -> recLSN, the LSN of the earliest log record
// that dirtied the page since it was last clean on disk (spec.md section 3).
type DirtyPageTable struct {
	entries map[uint64]pages.LSN
}

func NewDirtyPageTable() *DirtyPageTable {
	return &DirtyPageTable{entries: make(map[uint64]pages.LSN)}
}

func (d *DirtyPageTable) Get(pageID uint64) (pages.LSN, bool) {
	lsn, ok := d.entries[pageID]
	return lsn, ok
}

// InsertIfAbsent records pageID as dirty since lsn, unless it is already
// tracked (the first dirtying update wins, per spec.md section 3).
func (d *DirtyPageTable) InsertIfAbsent(pageID uint64, lsn pages.LSN) {
	if _, ok := d.entries[pageID]; !ok {
		d.entries[pageID] = lsn
	}
}

func (d *DirtyPageTable) Delete(pageID uint64) {
	delete(d.entries, pageID)
}

func (d *DirtyPageTable) Len() int {
	return len(d.entries)
}

// MinRecLSN returns the smallest recLSN in the table, used by Redo to find
// where in the log to start scanning.
func (d *DirtyPageTable) MinRecLSN() (pages.LSN, bool) {
	first := true
	var min pages.LSN
	for _, lsn := range d.entries {
		if first || lsn < min {
			min = lsn
			first = false
		}
	}
	return min, !first
}

func (d *DirtyPageTable) Snapshot() []wal.DirtyPageEntry {
	out := make([]wal.DirtyPageEntry, 0, len(d.entries))
	for pageID, lsn := range d.entries {
		out = append(out, wal.DirtyPageEntry{PageID: pageID, RecLSN: lsn})
	}
	return out
}

func (d *DirtyPageTable) LoadSnapshot(rows []wal.DirtyPageEntry) {
	d.entries = make(map[uint64]pages.LSN, len(rows))
	for _, r := range rows {
		d.entries[r.PageID] = r.RecLSN
	}
}
