package storage

import (
	"fmt"
	"sync"

	"ariesdb/disk/pages"
	"ariesdb/recovery"
)

// Event is one observed call against a RecordingEngine, in call order.
type Event struct {
	Kind string // "log" or "pageWrite"
	LSN  pages.LSN
}

// RecordingEngine wraps a recovery.StorageEngine and records the call order
// of UpdateLog and PageWrite, so tests can assert the WAL enforcement
// invariant directly: every log append for LSN <= L must be observed before
// the PageWrite that used L. Grounded on the teacher's pattern, in
// disk/wal/group_writer_test.go, of wrapping a writer with io.MultiWriter to
// observe what it wrote without changing its behavior.
type RecordingEngine struct {
	recovery.StorageEngine

	mu     sync.Mutex
	Events []Event
}

func NewRecordingEngine(inner recovery.StorageEngine) *RecordingEngine {
	return &RecordingEngine{StorageEngine: inner}
}

func (r *RecordingEngine) UpdateLog(line string) error {
	rec, err := parseLSNField(line)
	if err == nil {
		r.mu.Lock()
		r.Events = append(r.Events, Event{Kind: "log", LSN: rec})
		r.mu.Unlock()
	}
	return r.StorageEngine.UpdateLog(line)
}

func (r *RecordingEngine) PageWrite(pageID uint64, offset uint32, data []byte, newPageLSN pages.LSN) bool {
	r.mu.Lock()
	r.Events = append(r.Events, Event{Kind: "pageWrite", LSN: newPageLSN})
	r.mu.Unlock()
	return r.StorageEngine.PageWrite(pageID, offset, data, newPageLSN)
}

// parseLSNField reads just the LSN field (the persisted format's second
// field) out of a record line, without pulling in a full wal.Parse.
func parseLSNField(line string) (pages.LSN, error) {
	var tag string
	var lsn uint64
	_, err := fmt.Sscan(line, &tag, &lsn)
	return pages.LSN(lsn), err
}
