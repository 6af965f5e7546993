// Package transaction defines the identifier the recovery core threads
// through every log record. Isolation/locking - what the teacher's
// Transaction interface otherwise carried (AcquireLock, AcquireLatch,
// ReleaseLocks) - is concurrency control, a Non-goal of this module
// (spec.md section 1), so only the identifier concern is kept.
package transaction

// TxnID identifies a transaction. NullTxnID is the sentinel used on system
// records (checkpoints) that do not belong to any transaction.
type TxnID uint64

const NullTxnID TxnID = 0
