// Package recordlog is the durable, segment-rotated append log that backs
// storage.LogSink. It stores exactly one thing - wal.LogRecord lines - and
// is shaped around that: Append takes a record line, not a generic byte
// block, and every write is fsync'd before it returns so "Append returns"
// can stand in for "durable" with no background flusher to coordinate with.
//
// Grounded on the teacher's bwal package (segment_writer.go's file-per-
// segment rotation and segmentToStr naming, buffered_log_writer.go's
// length-prefixed record framing, buffered_log_reader.go's repair-on-open
// idea), but without bwal's double-buffer swap/flush goroutine, pub-sub
// broker, or random-access seek/truncate-front API: this log only ever
// appends and does full forward scans, so none of that machinery has
// anywhere to attach in this module.
package recordlog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Options configures a Store. SegmentSize is a target, not a hard cap: a
// record that would overflow a non-empty segment starts the next segment,
// and a record larger than SegmentSize is still written whole into an empty
// one.
type Options struct {
	SegmentSize uint64
	DirPerms    os.FileMode
	FilePerms   os.FileMode
}

var DefaultOptions = &Options{
	SegmentSize: 20 << 20, // 20 MB segment files.
	DirPerms:    0750,
	FilePerms:   0640,
}

const segmentExt = ".seg"
const frameHeaderSize = 4 // uint32 big-endian length prefix

// Store is a crash-durable, segment-rotated store of record lines, oldest
// first. A single writer appends under mu; readers (Lines) take the same
// lock so a scan never observes a segment file mid-rotation.
type Store struct {
	dir  string
	opts *Options

	mu      sync.Mutex
	f       *os.File
	segment uint64
	written uint64 // bytes written into the current segment, frame headers included
}

// Open opens (or creates) a record log rooted at dir. If the most recent
// segment ends in a torn frame - a write that reached disk only partially
// before a crash - it is truncated back to the last complete record before
// Open returns, the same repair bwal's BufferedLogReader.RepairWAL performs.
func Open(dir string, opts *Options) (*Store, error) {
	if opts == nil {
		opts = DefaultOptions
	}

	if err := os.MkdirAll(dir, opts.DirPerms); err != nil {
		return nil, err
	}

	segments, err := listSegments(dir)
	if err != nil {
		return nil, err
	}

	var idx uint64
	if len(segments) > 0 {
		idx = segments[len(segments)-1]
	}

	f, err := os.OpenFile(segmentPath(dir, idx), os.O_CREATE|os.O_RDWR, opts.FilePerms)
	if err != nil {
		return nil, err
	}

	_, validSize, err := readFrames(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Truncate(validSize); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, err
	}

	return &Store{dir: dir, opts: opts, f: f, segment: idx, written: uint64(validSize)}, nil
}

// Append writes line as one frame and fsyncs it before returning.
func (s *Store) Append(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame := make([]byte, frameHeaderSize+len(line))
	binary.BigEndian.PutUint32(frame, uint32(len(line)))
	copy(frame[frameHeaderSize:], line)

	if s.written > 0 && s.written+uint64(len(frame)) > s.opts.SegmentSize {
		if err := s.rotate(); err != nil {
			return err
		}
	}

	if _, err := s.f.Write(frame); err != nil {
		return err
	}
	if err := s.f.Sync(); err != nil {
		return err
	}
	s.written += uint64(len(frame))
	return nil
}

func (s *Store) rotate() error {
	if err := s.f.Close(); err != nil {
		return err
	}

	s.segment++
	f, err := os.OpenFile(segmentPath(s.dir, s.segment), os.O_CREATE|os.O_RDWR|os.O_TRUNC, s.opts.FilePerms)
	if err != nil {
		return err
	}

	s.f = f
	s.written = 0
	return nil
}

// Lines returns every durable record line across all segments, oldest
// first.
func (s *Store) Lines() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	segments, err := listSegments(s.dir)
	if err != nil {
		return nil, err
	}

	var all []string
	for _, idx := range segments {
		f, err := os.Open(segmentPath(s.dir, idx))
		if err != nil {
			return nil, err
		}
		lines, _, err := readFrames(f)
		closeErr := f.Close()
		if err != nil {
			return nil, err
		}
		if closeErr != nil {
			return nil, closeErr
		}
		all = append(all, lines...)
	}
	return all, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}

// readFrames decodes every complete [length-prefix][line] frame in f from
// the start, returning the decoded lines and the byte offset through which
// the file holds only complete frames. A header or body that runs past EOF
// is a torn trailing write, not an error: it is silently excluded from both
// the lines and the valid offset, so callers can truncate to it.
func readFrames(f *os.File) ([]string, int64, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, 0, err
	}

	var lines []string
	var offset int64
	header := make([]byte, frameHeaderSize)

	for {
		if _, err := io.ReadFull(f, header); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, 0, err
		}

		size := binary.BigEndian.Uint32(header)
		body := make([]byte, size)
		if _, err := io.ReadFull(f, body); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, 0, err
		}

		offset += int64(frameHeaderSize) + int64(size)
		lines = append(lines, string(body))
	}

	return lines, offset, nil
}

func segmentPath(dir string, idx uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%020d%s", idx, segmentExt))
}

func parseSegmentName(name string) (uint64, bool) {
	if !strings.HasSuffix(name, segmentExt) {
		return 0, false
	}
	n, err := strconv.ParseUint(strings.TrimSuffix(name, segmentExt), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func listSegments(dir string) ([]uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var out []uint64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if idx, ok := parseSegmentName(e.Name()); ok {
			out = append(out, idx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
