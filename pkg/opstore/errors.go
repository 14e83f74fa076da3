package opstore

import "errors"

// Sentinel errors returned by Store methods, following the teacher's
// pkg/services/errors.go convention of package-level sentinels checked with
// errors.Is rather than typed error codes.
var (
	ErrNotFound            = errors.New("opstore: not found")
	ErrConcurrentUpdate    = errors.New("opstore: concurrent update")
	ErrAlreadyDispatched   = errors.New("opstore: class already dispatched")
)
