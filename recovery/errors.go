package recovery

import "errors"

// ErrStorageUnavailable is returned when a storage engine callback
// (PageWrite) refuses, signalling that the current recovery pass should be
// abandoned and retried on a later restart (spec.md section 7).
var ErrStorageUnavailable = errors.New("recovery: storage engine unavailable")
