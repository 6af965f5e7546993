package wal

import "ariesdb/disk/pages"

// LogSink is the durable append-only destination a LogTail flushes to. It is
// satisfied by the storage engine's log half (spec.md section 6's
// updateLog/getLog pair).
type LogSink interface {
	UpdateLog(line string) error
}

// LogTail is the in-memory ordered buffer of not-yet-flushed records
// (spec.md section 4.2). Records are appended in LSN order by the caller -
// the log manager mints LSNs monotonically before calling Append - and
// FlushUpTo writes and discards exactly the prefix at or below a watermark.
//
// LogTail performs no locking of its own: the log manager that owns it is
// documented as single-writer (spec.md section 5), so callers serialize
// their own entry.
type LogTail struct {
	records []*LogRecord
}

func NewLogTail() *LogTail {
	return &LogTail{}
}

// Append pushes record onto the tail. The caller has already assigned it a
// fresh LSN.
func (t *LogTail) Append(record *LogRecord) {
	t.records = append(t.records, record)
}

// FlushUpTo writes every buffered record with LSN <= maxLSN to sink, in
// order, then removes exactly those records from the tail. A negative
// maxLSN (expressed here as pages.NullLSN together with an empty tail, or
// simply no records <= maxLSN) is a no-op; since LSN is unsigned the "< 0"
// case from spec.md section 4.2 cannot arise directly, so callers that want
// a true no-op pass pages.NullLSN with an empty tail, which flushes nothing.
func (t *LogTail) FlushUpTo(maxLSN pages.LSN, sink LogSink) error {
	cut := 0
	for cut < len(t.records) && t.records[cut].LSN <= maxLSN {
		if err := sink.UpdateLog(t.records[cut].String()); err != nil {
			return err
		}
		cut++
	}
	t.records = t.records[cut:]
	return nil
}

// Len reports how many records are currently buffered.
func (t *LogTail) Len() int {
	return len(t.records)
}

// Records returns a copy of the currently buffered records, oldest (lowest
// LSN) first. Used by callers that need to reason over disk-log ++ log-tail
// as one sequence (checkpoint, abort).
func (t *LogTail) Records() []*LogRecord {
	out := make([]*LogRecord, len(t.records))
	copy(out, t.records)
	return out
}
