package wal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ariesdb/disk/pages"
	"ariesdb/transaction"
)

func TestRoundTrip_Update(t *testing.T) {
	r := NewUpdate(10, 5, transaction.TxnID(1), 7, 42, []byte("before"), []byte("after!"))

	out, err := Parse(r.String())
	require.NoError(t, err)
	assert.Equal(t, r, out)
}

func TestRoundTrip_Clr(t *testing.T) {
	r := NewClr(11, 10, transaction.TxnID(1), 7, 42, []byte("before"), 5)

	out, err := Parse(r.String())
	require.NoError(t, err)
	assert.Equal(t, r, out)
}

func TestRoundTrip_Commit(t *testing.T) {
	r := NewCommit(12, 11, transaction.TxnID(1))

	out, err := Parse(r.String())
	require.NoError(t, err)
	assert.Equal(t, r, out)
}

func TestRoundTrip_Abort(t *testing.T) {
	r := NewAbort(12, 11, transaction.TxnID(1))

	out, err := Parse(r.String())
	require.NoError(t, err)
	assert.Equal(t, r, out)
}

func TestRoundTrip_End(t *testing.T) {
	r := NewEnd(13, 12, transaction.TxnID(1))

	out, err := Parse(r.String())
	require.NoError(t, err)
	assert.Equal(t, r, out)
}

func TestRoundTrip_BeginCkpt(t *testing.T) {
	r := NewBeginCkpt(20)

	out, err := Parse(r.String())
	require.NoError(t, err)
	assert.Equal(t, r, out)
}

func TestRoundTrip_EndCkpt(t *testing.T) {
	txns := []TxnTableEntry{
		{TxID: 1, LastLSN: 9, Status: StatusUndo},
		{TxID: 2, LastLSN: 15, Status: StatusCommitted},
	}
	dpt := []DirtyPageEntry{
		{PageID: 3, RecLSN: 4},
		{PageID: 9, RecLSN: 9},
	}
	r := NewEndCkpt(21, 20, txns, dpt)

	out, err := Parse(r.String())
	require.NoError(t, err)
	assert.Equal(t, r.LSN, out.LSN)
	assert.Equal(t, r.PrevLSN, out.PrevLSN)
	assert.ElementsMatch(t, r.TxnTable, out.TxnTable)
	assert.ElementsMatch(t, r.DirtyPageTable, out.DirtyPageTable)
}

func TestRoundTrip_EndCkpt_EmptyTables(t *testing.T) {
	r := NewEndCkpt(21, 20, nil, nil)

	out, err := Parse(r.String())
	require.NoError(t, err)
	assert.Empty(t, out.TxnTable)
	assert.Empty(t, out.DirtyPageTable)
}

func TestRoundTrip_Update_EmptyImages(t *testing.T) {
	r := NewUpdate(10, 5, transaction.TxnID(1), 7, 42, nil, nil)

	line := r.String()
	assert.NotContains(t, line, "  ", "empty images must not collapse adjacent fields")

	out, err := Parse(line)
	require.NoError(t, err)
	assert.Equal(t, []byte{}, out.BeforeImage)
	assert.Equal(t, []byte{}, out.AfterImage)
}

func TestParse_UnknownTag(t *testing.T) {
	_, err := Parse("BOGUS 1 2 3")
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestParse_TruncatedLine(t *testing.T) {
	_, err := Parse("UPDATE 1 2")
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestParse_BadHex(t *testing.T) {
	_, err := Parse("UPDATE 1 0 1 7 42 zz aa")
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestNullLSNIsZero(t *testing.T) {
	assert.Equal(t, pages.LSN(0), pages.NullLSN)
}
