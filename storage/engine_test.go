package storage

import (
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ariesdb/disk/pages"
	"ariesdb/recovery"
	"ariesdb/transaction"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestEngine_NextLSN_StrictlyIncreasing(t *testing.T) {
	e, err := Open(t.TempDir(), testLogger())
	require.NoError(t, err)
	defer e.Close()

	var last pages.LSN
	for i := 0; i < 10; i++ {
		lsn := e.NextLSN()
		assert.Greater(t, lsn, last)
		last = lsn
	}
}

func TestEngine_UpdateLogAndGetLog_RoundTrip(t *testing.T) {
	e, err := Open(t.TempDir(), testLogger())
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.UpdateLog("COMMIT 1 0 1"))
	require.NoError(t, e.UpdateLog("END 2 1 1"))

	raw, err := e.GetLog()
	require.NoError(t, err)
	assert.Equal(t, "COMMIT 1 0 1\nEND 2 1 1", raw)
}

func TestEngine_PageWriteAndGetLSN(t *testing.T) {
	e, err := Open(t.TempDir(), testLogger())
	require.NoError(t, err)
	defer e.Close()

	p := e.NewPage()
	assert.Equal(t, pages.NullLSN, e.GetLSN(p.PageID))

	ok := e.PageWrite(p.PageID, 0, []byte("hello"), 5)
	assert.True(t, ok)
	assert.Equal(t, pages.LSN(5), e.GetLSN(p.PageID))
}

func TestEngine_MasterRecord_DefaultsToNull(t *testing.T) {
	e, err := Open(t.TempDir(), testLogger())
	require.NoError(t, err)
	defer e.Close()

	master, err := e.GetMaster()
	require.NoError(t, err)
	assert.Equal(t, pages.NullLSN, master)

	require.NoError(t, e.StoreMaster(42))
	master, err = e.GetMaster()
	require.NoError(t, err)
	assert.Equal(t, pages.LSN(42), master)
}

// End-to-end: run the recovery manager against a real Engine and confirm a
// committed transaction's log survives a fresh open of the same directory.
func TestEngine_WithRecoveryManager_CommitSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	e, err := Open(dir, testLogger())
	require.NoError(t, err)

	mgr := recovery.NewManager(testLogger())
	mgr.SetStorageEngine(e)

	page := e.NewPage()
	const t1 transaction.TxnID = 1
	mgr.Write(t1, page.PageID, 0, []byte("hi"), []byte("  "))
	require.NoError(t, mgr.Commit(t1))
	require.NoError(t, e.Close())

	e2, err := Open(dir, testLogger())
	require.NoError(t, err)
	defer e2.Close()

	raw, err := e2.GetLog()
	require.NoError(t, err)
	assert.Contains(t, raw, "UPDATE")
	assert.Contains(t, raw, "COMMIT")
	assert.Contains(t, raw, "END")

	recovered := recovery.NewManager(testLogger())
	recovered.SetStorageEngine(e2)
	require.NoError(t, recovered.Recover(raw))
}

func TestRecordingEngine_ObservesWAL(t *testing.T) {
	e, err := Open(t.TempDir(), testLogger())
	require.NoError(t, err)
	defer e.Close()

	rec := NewRecordingEngine(e)
	mgr := recovery.NewManager(testLogger())
	mgr.SetStorageEngine(rec)

	page := e.NewPage()
	const t1 transaction.TxnID = 1
	lsn := mgr.Write(t1, page.PageID, 0, []byte("hi"), []byte("  "))

	// force the log before the page write, as WAL requires; PageFlushed is
	// the real call site, but here the page's pageLSN is forced directly to
	// exercise the recorder against the exact lsn under test.
	require.NoError(t, mgr.FlushLogTail(lsn))
	require.True(t, rec.PageWrite(page.PageID, 0, []byte("hi"), lsn))

	var sawLogForLSN, sawPageWrite bool
	for _, ev := range rec.Events {
		if ev.Kind == "log" && ev.LSN == lsn {
			sawLogForLSN = true
		}
		if ev.Kind == "pageWrite" {
			sawPageWrite = true
			assert.True(t, sawLogForLSN, "pageWrite for lsn %d observed before its log record", lsn)
		}
	}
	assert.True(t, sawPageWrite)
}
