package storage

import (
	"encoding/binary"
	"errors"
	"os"
	"sync"

	"ariesdb/disk/pages"
)

// MasterRecord durably persists the single LSN pointing at the most recent
// completed checkpoint (spec.md section 3). It is kept in its own small
// file rather than a database page: the master record must be readable
// before any page store is opened, mirroring the teacher's pattern of a
// dedicated catalog pointer in disk/disk_manager.go.
type MasterRecord struct {
	file string
	mu   sync.Mutex
}

func NewMasterRecord(file string) *MasterRecord {
	return &MasterRecord{file: file}
}

func (m *MasterRecord) Store(lsn pages.LSN) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(lsn))

	f, err := os.OpenFile(m.file, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(buf); err != nil {
		return err
	}
	return f.Sync()
}

func (m *MasterRecord) Get() (pages.LSN, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf, err := os.ReadFile(m.file)
	if errors.Is(err, os.ErrNotExist) {
		return pages.NullLSN, nil
	}
	if err != nil {
		return pages.NullLSN, err
	}
	if len(buf) != 8 {
		return pages.NullLSN, nil
	}

	return pages.LSN(binary.BigEndian.Uint64(buf)), nil
}
