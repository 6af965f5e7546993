package storage

import (
	"log"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"ariesdb/disk"
	"ariesdb/disk/pages"
	"ariesdb/recordlog"
	"ariesdb/wal"
)

// Engine is the concrete recovery.StorageEngine this module ships: LSN
// minting over a PageStore, LogSink, and MasterRecord. Grounded on the
// teacher's db.OpenDB, which wires the same three concerns (disk manager,
// log manager, master/catalog pointer) behind one constructor.
type Engine struct {
	SessionID uuid.UUID

	pages  *PageStore
	log    *LogSink
	master *MasterRecord
	nextID atomic.Uint64

	logger *log.Logger
}

// Open wires a full Engine rooted at dir: page file at dir/pages.db, log
// segments under dir/log, and the master record at dir/master. The LSN
// counter is seeded from the highest LSN already present in the durable log
// so restarts never re-mint an LSN already used (spec.md section 3's
// invariant 4: LSNs strictly increasing across disk-log ++ log-tail).
func Open(dir string, logger *log.Logger) (*Engine, error) {
	diskMgr, _, err := disk.NewManager(dir + "/pages.db")
	if err != nil {
		return nil, err
	}

	sink, err := OpenLogSink(dir+"/log", recordlog.DefaultOptions)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		SessionID: uuid.New(),
		pages:     NewPageStore(diskMgr),
		log:       sink,
		master:    NewMasterRecord(dir + "/master"),
		logger:    logger,
	}

	highest, err := e.highestPersistedLSN()
	if err != nil {
		return nil, err
	}
	e.nextID.Store(uint64(highest))

	logger.Printf("storage: engine %s opened at %s, resuming LSN counter at %d", e.SessionID, dir, highest)

	return e, nil
}

func (e *Engine) highestPersistedLSN() (pages.LSN, error) {
	raw, err := e.log.GetLog()
	if err != nil {
		return pages.NullLSN, err
	}

	var max pages.LSN
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		r, err := wal.Parse(line)
		if err != nil {
			return pages.NullLSN, err
		}
		if r.LSN > max {
			max = r.LSN
		}
	}
	return max, nil
}

// NextLSN mints a fresh, strictly increasing LSN.
func (e *Engine) NextLSN() pages.LSN {
	return pages.LSN(e.nextID.Add(1))
}

func (e *Engine) UpdateLog(line string) error {
	return e.log.UpdateLog(line)
}

func (e *Engine) GetLog() (string, error) {
	return e.log.GetLog()
}

func (e *Engine) PageWrite(pageID uint64, offset uint32, data []byte, newPageLSN pages.LSN) bool {
	return e.pages.Write(pageID, offset, data, newPageLSN)
}

func (e *Engine) GetLSN(pageID uint64) pages.LSN {
	return e.pages.GetLSN(pageID)
}

func (e *Engine) StoreMaster(lsn pages.LSN) error {
	return e.master.Store(lsn)
}

func (e *Engine) GetMaster() (pages.LSN, error) {
	return e.master.Get()
}

// NewPage allocates a fresh page through the underlying page store. Exposed
// for callers (the demo command, tests) that need to create pages before
// issuing writes against them.
func (e *Engine) NewPage() *pages.Page {
	return e.pages.NewPage()
}

func (e *Engine) Close() error {
	return e.log.Close()
}
