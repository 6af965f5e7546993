package pages

import "encoding/binary"

// LSN is a Log Sequence Number: a monotonically increasing identifier minted
// by the storage engine that totally orders log records.
type LSN uint64

// NullLSN is the sentinel meaning "no such record". Real LSNs are minted
// starting from 1, so the zero value is safe to use as the sentinel.
const NullLSN LSN = 0

func PutLSN(dest []byte, l LSN) {
	binary.BigEndian.PutUint64(dest, uint64(l))
}

func ReadLSN(src []byte) LSN {
	return LSN(binary.BigEndian.Uint64(src))
}
