package storage

import (
	"strings"

	"ariesdb/recordlog"
)

// LogSink is the durable half of recovery.StorageEngine's contract
// (spec.md section 6: updateLog/getLog), built directly on recordlog.Store:
// each UpdateLog call appends one serialized wal.LogRecord line and fsyncs
// it before returning, so "UpdateLog returns" implies durability as spec.md
// section 6 requires. recordlog's own segment/offset bookkeeping is never
// surfaced outside this file - the recovery core mints its own independent
// LSNs via Engine.NextLSN.
type LogSink struct {
	store *recordlog.Store
}

// OpenLogSink opens (or creates) a recordlog-backed log store rooted at dir.
func OpenLogSink(dir string, opts *recordlog.Options) (*LogSink, error) {
	store, err := recordlog.Open(dir, opts)
	if err != nil {
		return nil, err
	}
	return &LogSink{store: store}, nil
}

// UpdateLog appends line and fsyncs it before returning.
func (s *LogSink) UpdateLog(line string) error {
	return s.store.Append(line)
}

// GetLog returns the entire durable log as newline-separated record lines,
// oldest first.
func (s *LogSink) GetLog() (string, error) {
	lines, err := s.store.Lines()
	if err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}

func (s *LogSink) Close() error {
	return s.store.Close()
}
