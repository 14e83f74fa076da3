package anastore

import "errors"

var (
	ErrNotFound        = errors.New("anastore: not found")
	ErrDuplicate       = errors.New("anastore: duplicate document")
	ErrNoClaimable     = errors.New("anastore: no claimable transcript")
	ErrConcurrentClaim = errors.New("anastore: lost claim race")
)
