package wal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ariesdb/transaction"
)

type fakeSink struct {
	lines []string
}

func (f *fakeSink) UpdateLog(line string) error {
	f.lines = append(f.lines, line)
	return nil
}

func TestLogTail_FlushUpTo_IsPrefixFlush(t *testing.T) {
	tail := NewLogTail()
	tail.Append(NewCommit(1, 0, transaction.TxnID(1)))
	tail.Append(NewCommit(2, 1, transaction.TxnID(1)))
	tail.Append(NewCommit(3, 2, transaction.TxnID(1)))

	sink := &fakeSink{}
	require.NoError(t, tail.FlushUpTo(2, sink))

	assert.Len(t, sink.lines, 2)
	assert.Equal(t, 1, tail.Len())
}

func TestLogTail_FlushUpTo_NothingEligible(t *testing.T) {
	tail := NewLogTail()
	tail.Append(NewCommit(5, 0, transaction.TxnID(1)))

	sink := &fakeSink{}
	require.NoError(t, tail.FlushUpTo(1, sink))

	assert.Empty(t, sink.lines)
	assert.Equal(t, 1, tail.Len())
}

func TestLogTail_Records_ReturnsCopy(t *testing.T) {
	tail := NewLogTail()
	tail.Append(NewCommit(1, 0, transaction.TxnID(1)))

	out := tail.Records()
	out[0] = nil

	assert.NotNil(t, tail.Records()[0])
}
