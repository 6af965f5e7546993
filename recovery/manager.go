// Package recovery implements the Recovery Driver (spec.md section 4.3):
// the ARIES analysis/redo/undo passes plus the transaction-facing
// write/commit/abort/checkpoint/pageFlushed entry points, built around the
// Transaction Table and Dirty Page Table (spec.md section 3).
//
// Grounded on the teacher's concurrency/txn_manager.go (transaction
// bookkeeping shape) and concurrency/checkpoint_manager.go (checkpoint
// sequencing), generalized to the exact StorageEngine contract this package
// declares rather than the teacher's B+tree-page-store-shaped collaborator.
// The algorithms themselves - analyze, redo, undo - are grounded directly on
// original_source/LogMgr.cpp, since the teacher repo never carried a working
// implementation of its own recovery_disk_manager.go collaborator.
package recovery

import (
	"container/heap"
	"log"
	"strings"

	"ariesdb/disk/pages"
	"ariesdb/transaction"
	"ariesdb/wal"
)

// Manager is the log manager: the outbound capability the recovery core
// exposes (spec.md section 6). It is single-writer - callers serialize their
// own entry - so no field here is guarded by a mutex (spec.md section 5).
type Manager struct {
	engine   StorageEngine
	tail     *wal.LogTail
	txnTable *TransactionTable
	dpt      *DirtyPageTable
	logger   *log.Logger
}

func NewManager(logger *log.Logger) *Manager {
	return &Manager{
		tail:     wal.NewLogTail(),
		txnTable: NewTransactionTable(),
		dpt:      NewDirtyPageTable(),
		logger:   logger,
	}
}

// SetStorageEngine binds the collaborator the manager mints LSNs from and
// durably writes through. Bound once at initialization (spec.md section 5).
func (m *Manager) SetStorageEngine(engine StorageEngine) {
	m.engine = engine
}

// GetLastLSN returns txID's most recent LSN, or pages.NullLSN if the
// transaction is not live.
func (m *Manager) GetLastLSN(txID transaction.TxnID) pages.LSN {
	if e, ok := m.txnTable.Get(txID); ok {
		return e.LastLSN
	}
	return pages.NullLSN
}

// SetLastLSN overwrites the transaction table's bookkeeping for txID.
// Exposed as an internal-but-observable operation (spec.md section 6).
func (m *Manager) SetLastLSN(txID transaction.TxnID, lsn pages.LSN) {
	m.txnTable.SetLastLSN(txID, lsn)
}

// FlushLogTail forces every buffered record with LSN <= maxLSN to the
// storage engine's log sink, in order, then drops them from the tail.
func (m *Manager) FlushLogTail(maxLSN pages.LSN) error {
	return m.tail.FlushUpTo(maxLSN, m.engine)
}

// Write logs an update: mints an LSN, appends an UPDATE record, and updates
// the transaction and dirty-page tables (spec.md section 4.3.1).
func (m *Manager) Write(txID transaction.TxnID, pageID uint64, offset uint32, newBytes, oldBytes []byte) pages.LSN {
	lsn := m.engine.NextLSN()
	prevLSN := pages.NullLSN
	if e, ok := m.txnTable.Get(txID); ok {
		prevLSN = e.LastLSN
	}

	m.tail.Append(wal.NewUpdate(lsn, prevLSN, txID, pageID, offset, oldBytes, newBytes))
	m.txnTable.SetLastLSN(txID, lsn)
	m.txnTable.SetStatus(txID, wal.StatusUndo)
	m.dpt.InsertIfAbsent(pageID, lsn)

	return lsn
}

// Commit terminates txID successfully: appends COMMIT, forces the log up to
// and including it (the durability point), then appends END and drops the
// transaction (spec.md section 4.3.2). A no-op if txID is not live.
func (m *Manager) Commit(txID transaction.TxnID) error {
	e, ok := m.txnTable.Get(txID)
	if !ok {
		return nil
	}

	commitLSN := m.engine.NextLSN()
	m.tail.Append(wal.NewCommit(commitLSN, e.LastLSN, txID))
	if err := m.tail.FlushUpTo(commitLSN, m.engine); err != nil {
		return err
	}

	endLSN := m.engine.NextLSN()
	m.tail.Append(wal.NewEnd(endLSN, commitLSN, txID))
	m.txnTable.Delete(txID)

	return nil
}

// Abort rolls a single transaction back: appends ABORT, then undoes its
// updates across the concatenation of the durable log and the current tail
// (spec.md section 4.3.3). A no-op if txID is not live.
func (m *Manager) Abort(txID transaction.TxnID) error {
	e, ok := m.txnTable.Get(txID)
	if !ok {
		return nil
	}

	full, err := m.visibleLog()
	if err != nil {
		return err
	}

	lsn := m.engine.NextLSN()
	m.tail.Append(wal.NewAbort(lsn, e.LastLSN, txID))
	m.txnTable.SetLastLSN(txID, lsn)
	full = append(full, m.tail.Records()...)

	return m.Undo(full, &txID)
}

// PageFlushed is called by the storage engine immediately before it writes
// pageID to disk. It forces the log tail up to the page's current pageLSN
// and drops pageID from the dirty-page table: the sole WAL enforcement point
// (spec.md section 4.3.4).
func (m *Manager) PageFlushed(pageID uint64) error {
	if err := m.tail.FlushUpTo(m.engine.GetLSN(pageID), m.engine); err != nil {
		return err
	}
	m.dpt.Delete(pageID)
	return nil
}

// Checkpoint implements fuzzy checkpointing (spec.md section 4.3.5): mints
// BEGIN_CKPT/END_CKPT LSNs, reconstructs the tables by analyzing the full
// visible log, snapshots them into END_CKPT, updates the master record, and
// flushes the tail through the END_CKPT.
func (m *Manager) Checkpoint() error {
	beginLSN := m.engine.NextLSN()
	endLSN := m.engine.NextLSN()

	full, err := m.visibleLog()
	if err != nil {
		return err
	}
	full = append(full, m.tail.Records()...)
	if err := m.Analyze(full); err != nil {
		return err
	}

	txnSnap := m.txnTable.Snapshot()
	dptSnap := m.dpt.Snapshot()

	if err := m.engine.StoreMaster(beginLSN); err != nil {
		return err
	}

	m.tail.Append(wal.NewBeginCkpt(beginLSN))
	m.tail.Append(wal.NewEndCkpt(endLSN, beginLSN, txnSnap, dptSnap))

	return m.tail.FlushUpTo(endLSN, m.engine)
}

// Analyze reconstructs the transaction and dirty-page tables by scanning log
// from the most recent completed checkpoint, or from the start if none
// exists (spec.md section 4.3.6).
func (m *Manager) Analyze(log []*wal.LogRecord) error {
	m.txnTable = NewTransactionTable()
	m.dpt = NewDirtyPageTable()

	master, err := m.engine.GetMaster()
	if err != nil {
		return err
	}

	start := 0
	if master != pages.NullLSN {
		for i, r := range log {
			if r.LSN == master {
				start = i + 1
				break
			}
		}
		if start < len(log) && log[start].Type == wal.EndCkpt {
			m.txnTable.LoadSnapshot(log[start].TxnTable)
			m.dpt.LoadSnapshot(log[start].DirtyPageTable)
		}
	}

	for i := start; i < len(log); i++ {
		r := log[i]
		switch r.Type {
		case wal.Commit:
			m.txnTable.SetLastLSN(r.TxID, r.LSN)
			m.txnTable.SetStatus(r.TxID, wal.StatusCommitted)
		case wal.End:
			m.txnTable.Delete(r.TxID)
		case wal.Abort:
			m.txnTable.SetLastLSN(r.TxID, r.LSN)
			m.txnTable.SetStatus(r.TxID, wal.StatusUndo)
		case wal.Update, wal.Clr:
			m.txnTable.SetLastLSN(r.TxID, r.LSN)
			m.txnTable.SetStatus(r.TxID, wal.StatusUndo)
			m.dpt.InsertIfAbsent(r.PageID, r.LSN)
		}
	}

	return nil
}

// Redo replays every UPDATE/CLR that might not have reached disk, then
// terminates any transaction the log shows committed (spec.md section
// 4.3.7). Returns false the moment the storage engine refuses a page write;
// the caller must not proceed to Undo in that case.
func (m *Manager) Redo(log []*wal.LogRecord) bool {
	if minLSN, ok := m.dpt.MinRecLSN(); ok {
		start := 0
		for i, r := range log {
			if r.LSN == minLSN {
				start = i
				break
			}
		}

		for i := start; i < len(log); i++ {
			r := log[i]
			if r.Type != wal.Update && r.Type != wal.Clr {
				continue
			}

			recLSN, tracked := m.dpt.Get(r.PageID)
			if !tracked || recLSN > r.LSN {
				continue
			}
			if m.engine.GetLSN(r.PageID) >= r.LSN {
				continue
			}
			if !m.engine.PageWrite(r.PageID, r.Offset, r.AfterImage, r.LSN) {
				return false
			}
		}
	}

	var committed []transaction.TxnID
	m.txnTable.Each(func(txID transaction.TxnID, e *TxnTableEntry) {
		if e.Status == wal.StatusCommitted {
			committed = append(committed, txID)
		}
	})

	for _, txID := range committed {
		e, _ := m.txnTable.Get(txID)
		lsn := m.engine.NextLSN()
		m.tail.Append(wal.NewEnd(lsn, e.LastLSN, txID))
		m.txnTable.Delete(txID)
	}

	return true
}

// Undo rolls back log, either globally (txID nil, the crash-recovery Undo
// phase) or for a single transaction (the abort path), in strictly
// descending LSN order via a max-heap (spec.md section 4.3.8). Returns
// ErrStorageUnavailable the moment a page write fails, leaving the tables
// consistent with what was durably logged.
func (m *Manager) Undo(log []*wal.LogRecord, txID *transaction.TxnID) error {
	if m.txnTable.Len() == 0 {
		return nil
	}

	if txID != nil {
		if _, live := m.txnTable.Get(*txID); !live {
			return nil
		}
	}

	byLSN := make(map[pages.LSN]*wal.LogRecord)
	pending := &lsnMaxHeap{}
	for _, r := range log {
		if r.Type != wal.Update && r.Type != wal.Clr {
			continue
		}
		if txID != nil {
			if r.TxID != *txID {
				continue
			}
		} else if _, live := m.txnTable.Get(r.TxID); !live {
			continue
		}
		byLSN[r.LSN] = r
		heap.Push(pending, r.LSN)
	}

	for pending.Len() > 0 {
		lsn := heap.Pop(pending).(pages.LSN)
		r := byLSN[lsn]

		var nextUndo pages.LSN
		switch r.Type {
		case wal.Update:
			e, _ := m.txnTable.Get(r.TxID)
			clrLSN := m.engine.NextLSN()
			m.tail.Append(wal.NewClr(clrLSN, e.LastLSN, r.TxID, r.PageID, r.Offset, r.BeforeImage, r.PrevLSN))
			m.txnTable.SetLastLSN(r.TxID, clrLSN)

			if !m.engine.PageWrite(r.PageID, r.Offset, r.BeforeImage, clrLSN) {
				return ErrStorageUnavailable
			}
			nextUndo = r.PrevLSN
		case wal.Clr:
			nextUndo = r.UndoNextLSN
		}

		if nextUndo == pages.NullLSN {
			e, ok := m.txnTable.Get(r.TxID)
			var prevLSN pages.LSN
			if ok {
				prevLSN = e.LastLSN
			}
			endLSN := m.engine.NextLSN()
			m.tail.Append(wal.NewEnd(endLSN, prevLSN, r.TxID))
			m.txnTable.Delete(r.TxID)

			if txID != nil {
				return nil
			}
		}
	}

	return nil
}

// Recover runs the full ARIES sequence - analyze, redo, undo - over a raw
// durable log read at restart (spec.md section 4.3.9). If redo refuses a
// write, undo is skipped and ErrStorageUnavailable is returned so the caller
// knows recovery must be retried on a later restart.
func (m *Manager) Recover(rawLog string) error {
	records, err := parseLog(rawLog)
	if err != nil {
		return err
	}

	if err := m.Analyze(records); err != nil {
		return err
	}

	if !m.Redo(records) {
		m.logger.Printf("recovery: redo refused a page write, deferring undo to next restart")
		return ErrStorageUnavailable
	}

	return m.Undo(records, nil)
}

func (m *Manager) visibleLog() ([]*wal.LogRecord, error) {
	raw, err := m.engine.GetLog()
	if err != nil {
		return nil, err
	}
	return parseLog(raw)
}

func parseLog(raw string) ([]*wal.LogRecord, error) {
	lines := strings.Split(raw, "\n")
	out := make([]*wal.LogRecord, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		r, err := wal.Parse(line)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// lsnMaxHeap is a container/heap max-heap over LSNs: the idiomatic
// replacement for original_source/LogMgr.cpp's priority_queue<int> ToUndo.
type lsnMaxHeap []pages.LSN

func (h lsnMaxHeap) Len() int            { return len(h) }
func (h lsnMaxHeap) Less(i, j int) bool  { return h[i] > h[j] }
func (h lsnMaxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *lsnMaxHeap) Push(x interface{}) { *h = append(*h, x.(pages.LSN)) }
func (h *lsnMaxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}
