// Package wal implements the recovery core's Log Record Model and Log Tail
// Buffer (spec.md sections 4.1-4.2): a single tagged-variant record type with
// a line-per-record textual serialization, and an append/flush buffer that
// enforces the write-ahead-logging prefix-flush rule.
//
// The source this module was distilled from (original_source/LogMgr.cpp)
// modeled records as a class hierarchy reached through dynamic_cast; this
// package instead uses one struct with an exhaustive switch over Type at
// every site that inspects a record, per spec.md section 9's design note.
package wal

import (
	"bytes"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang/snappy"

	"ariesdb/disk/pages"
	"ariesdb/transaction"
)

// ErrMalformedRecord is returned by Parse when a line does not match any
// known variant's shape. Fatal during recovery (spec.md section 7).
var ErrMalformedRecord = errors.New("wal: malformed log record")

// RecordType discriminates the seven record variants of spec.md section 3,
// plus Invalid for an unrecognized tag.
type RecordType uint8

const (
	Invalid RecordType = iota
	Update
	Clr
	Commit
	Abort
	End
	BeginCkpt
	EndCkpt
)

func (t RecordType) tag() string {
	switch t {
	case Update:
		return "UPDATE"
	case Clr:
		return "CLR"
	case Commit:
		return "COMMIT"
	case Abort:
		return "ABORT"
	case End:
		return "END"
	case BeginCkpt:
		return "BEGIN_CKPT"
	case EndCkpt:
		return "END_CKPT"
	default:
		return "INVALID"
	}
}

func parseTag(tag string) RecordType {
	switch tag {
	case "UPDATE":
		return Update
	case "CLR":
		return Clr
	case "COMMIT":
		return Commit
	case "ABORT":
		return Abort
	case "END":
		return End
	case "BEGIN_CKPT":
		return BeginCkpt
	case "END_CKPT":
		return EndCkpt
	default:
		return Invalid
	}
}

// TxnStatus is a transaction table entry's status (spec.md section 3).
type TxnStatus uint8

const (
	// StatusUndo marks a transaction in-progress or an undo candidate ('U').
	StatusUndo TxnStatus = iota
	// StatusCommitted marks a transaction committed but awaiting its END ('C').
	StatusCommitted
)

func (s TxnStatus) tag() string {
	if s == StatusCommitted {
		return "C"
	}
	return "U"
}

func parseStatus(tag string) (TxnStatus, bool) {
	switch tag {
	case "U":
		return StatusUndo, true
	case "C":
		return StatusCommitted, true
	default:
		return 0, false
	}
}

// TxnTableEntry is one row of a checkpoint's transaction table snapshot.
type TxnTableEntry struct {
	TxID    transaction.TxnID
	LastLSN pages.LSN
	Status  TxnStatus
}

// DirtyPageEntry is one row of a checkpoint's dirty-page table snapshot.
type DirtyPageEntry struct {
	PageID uint64
	RecLSN pages.LSN
}

// LogRecord is the single tagged-variant record type. Only the fields that
// apply to Type are meaningful; this mirrors the teacher's LogRecord struct
// (disk/wal/log_record.go) which also carries every variant's fields on one
// struct rather than separate types per variant.
type LogRecord struct {
	Type    RecordType
	LSN     pages.LSN
	PrevLSN pages.LSN
	TxID    transaction.TxnID

	// UPDATE, CLR
	PageID       uint64
	Offset       uint32
	BeforeImage  []byte
	AfterImage   []byte
	UndoNextLSN  pages.LSN // CLR only

	// END_CKPT
	TxnTable       []TxnTableEntry
	DirtyPageTable []DirtyPageEntry
}

func NewUpdate(lsn, prevLSN pages.LSN, txID transaction.TxnID, pageID uint64, offset uint32, before, after []byte) *LogRecord {
	return &LogRecord{Type: Update, LSN: lsn, PrevLSN: prevLSN, TxID: txID, PageID: pageID, Offset: offset, BeforeImage: before, AfterImage: after}
}

func NewClr(lsn, prevLSN pages.LSN, txID transaction.TxnID, pageID uint64, offset uint32, after []byte, undoNext pages.LSN) *LogRecord {
	return &LogRecord{Type: Clr, LSN: lsn, PrevLSN: prevLSN, TxID: txID, PageID: pageID, Offset: offset, AfterImage: after, UndoNextLSN: undoNext}
}

func NewCommit(lsn, prevLSN pages.LSN, txID transaction.TxnID) *LogRecord {
	return &LogRecord{Type: Commit, LSN: lsn, PrevLSN: prevLSN, TxID: txID}
}

func NewAbort(lsn, prevLSN pages.LSN, txID transaction.TxnID) *LogRecord {
	return &LogRecord{Type: Abort, LSN: lsn, PrevLSN: prevLSN, TxID: txID}
}

func NewEnd(lsn, prevLSN pages.LSN, txID transaction.TxnID) *LogRecord {
	return &LogRecord{Type: End, LSN: lsn, PrevLSN: prevLSN, TxID: txID}
}

func NewBeginCkpt(lsn pages.LSN) *LogRecord {
	return &LogRecord{Type: BeginCkpt, LSN: lsn, PrevLSN: pages.NullLSN, TxID: transaction.NullTxnID}
}

func NewEndCkpt(lsn, prevLSN pages.LSN, txnTable []TxnTableEntry, dpt []DirtyPageEntry) *LogRecord {
	return &LogRecord{Type: EndCkpt, LSN: lsn, PrevLSN: prevLSN, TxID: transaction.NullTxnID, TxnTable: txnTable, DirtyPageTable: dpt}
}

// String renders r as one line of the persisted log format: the type tag
// first (so the parser can dispatch on it), followed by space-separated
// fields. Binary payloads are hex-encoded so the line stays ASCII.
func (r *LogRecord) String() string {
	fields := []string{r.Type.tag(), fmtLSN(r.LSN), fmtLSN(r.PrevLSN), strconv.FormatUint(uint64(r.TxID), 10)}

	switch r.Type {
	case Update:
		fields = append(fields,
			strconv.FormatUint(r.PageID, 10),
			strconv.FormatUint(uint64(r.Offset), 10),
			encodeHexField(r.BeforeImage),
			encodeHexField(r.AfterImage),
		)
	case Clr:
		fields = append(fields,
			strconv.FormatUint(r.PageID, 10),
			strconv.FormatUint(uint64(r.Offset), 10),
			encodeHexField(r.AfterImage),
			fmtLSN(r.UndoNextLSN),
		)
	case Commit, Abort, End:
		// header only
	case BeginCkpt:
		// header only
	case EndCkpt:
		fields = append(fields, encodeCkptSnapshot(r.TxnTable, r.DirtyPageTable))
	}

	return strings.Join(fields, " ")
}

// Parse recovers a LogRecord from one line of the persisted log, or returns
// ErrMalformedRecord if line does not match any variant's shape.
func Parse(line string) (*LogRecord, error) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return nil, fmt.Errorf("%w: %q", ErrMalformedRecord, line)
	}

	rt := parseTag(fields[0])
	if rt == Invalid {
		return nil, fmt.Errorf("%w: unknown type tag %q", ErrMalformedRecord, fields[0])
	}

	lsn, err := parseLSN(fields[1])
	if err != nil {
		return nil, fmt.Errorf("%w: bad lsn: %v", ErrMalformedRecord, err)
	}
	prevLSN, err := parseLSN(fields[2])
	if err != nil {
		return nil, fmt.Errorf("%w: bad prevLsn: %v", ErrMalformedRecord, err)
	}
	txIDRaw, err := strconv.ParseUint(fields[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad txID: %v", ErrMalformedRecord, err)
	}

	r := &LogRecord{Type: rt, LSN: lsn, PrevLSN: prevLSN, TxID: transaction.TxnID(txIDRaw)}

	switch rt {
	case Update:
		if len(fields) != 8 {
			return nil, fmt.Errorf("%w: UPDATE wants 8 fields, got %d", ErrMalformedRecord, len(fields))
		}
		pageID, err := strconv.ParseUint(fields[4], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad pageID: %v", ErrMalformedRecord, err)
		}
		offset, err := strconv.ParseUint(fields[5], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: bad offset: %v", ErrMalformedRecord, err)
		}
		before, err := decodeHexField(fields[6])
		if err != nil {
			return nil, fmt.Errorf("%w: bad beforeImage: %v", ErrMalformedRecord, err)
		}
		after, err := decodeHexField(fields[7])
		if err != nil {
			return nil, fmt.Errorf("%w: bad afterImage: %v", ErrMalformedRecord, err)
		}
		r.PageID, r.Offset, r.BeforeImage, r.AfterImage = pageID, uint32(offset), before, after
	case Clr:
		if len(fields) != 8 {
			return nil, fmt.Errorf("%w: CLR wants 8 fields, got %d", ErrMalformedRecord, len(fields))
		}
		pageID, err := strconv.ParseUint(fields[4], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad pageID: %v", ErrMalformedRecord, err)
		}
		offset, err := strconv.ParseUint(fields[5], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: bad offset: %v", ErrMalformedRecord, err)
		}
		after, err := decodeHexField(fields[6])
		if err != nil {
			return nil, fmt.Errorf("%w: bad afterImage: %v", ErrMalformedRecord, err)
		}
		undoNext, err := parseLSN(fields[7])
		if err != nil {
			return nil, fmt.Errorf("%w: bad undoNextLsn: %v", ErrMalformedRecord, err)
		}
		r.PageID, r.Offset, r.AfterImage, r.UndoNextLSN = pageID, uint32(offset), after, undoNext
	case Commit, Abort, End, BeginCkpt:
		if len(fields) != 4 {
			return nil, fmt.Errorf("%w: %s wants 4 fields, got %d", ErrMalformedRecord, rt.tag(), len(fields))
		}
	case EndCkpt:
		if len(fields) != 5 {
			return nil, fmt.Errorf("%w: END_CKPT wants 5 fields, got %d", ErrMalformedRecord, len(fields))
		}
		txns, dpt, err := decodeCkptSnapshot(fields[4])
		if err != nil {
			return nil, fmt.Errorf("%w: bad checkpoint snapshot: %v", ErrMalformedRecord, err)
		}
		r.TxnTable, r.DirtyPageTable = txns, dpt
	}

	return r, nil
}

func fmtLSN(l pages.LSN) string {
	return strconv.FormatUint(uint64(l), 10)
}

func parseLSN(s string) (pages.LSN, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return pages.LSN(v), nil
}

// encodeHexField hex-encodes a before/after image for the line format. A
// zero-length image encodes as "-": hex.EncodeToString would otherwise
// return "", and strings.Fields collapses that into nothing, shifting every
// field after it.
func encodeHexField(b []byte) string {
	if len(b) == 0 {
		return "-"
	}
	return hex.EncodeToString(b)
}

func decodeHexField(s string) ([]byte, error) {
	if s == "-" {
		return []byte{}, nil
	}
	return hex.DecodeString(s)
}

// ckptSnapshot is the gob-encodable payload of an END_CKPT record. It is
// snappy-compressed before hex-encoding, the same library the teacher's
// disk/wal/bwal_log_serde.go uses to shrink its binary records, here applied
// to keep a checkpoint line compact even with many live transactions and
// dirty pages.
type ckptSnapshot struct {
	Txns  []TxnTableEntry
	Dirty []DirtyPageEntry
}

func encodeCkptSnapshot(txns []TxnTableEntry, dpt []DirtyPageEntry) string {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(ckptSnapshot{Txns: txns, Dirty: dpt}); err != nil {
		panic(fmt.Sprintf("wal: checkpoint snapshot cannot be encoded: %v", err))
	}

	return hex.EncodeToString(snappy.Encode(nil, buf.Bytes()))
}

func decodeCkptSnapshot(field string) ([]TxnTableEntry, []DirtyPageEntry, error) {
	compressed, err := hex.DecodeString(field)
	if err != nil {
		return nil, nil, err
	}

	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, nil, err
	}

	var snap ckptSnapshot
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&snap); err != nil {
		return nil, nil, err
	}

	return snap.Txns, snap.Dirty, nil
}
