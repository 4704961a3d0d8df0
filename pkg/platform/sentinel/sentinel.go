package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// and services translate them into domain error codes.
//
//   - ErrNotFound: record does not exist
//   - ErrConflict: a uniqueness constraint rejected the write (token, email)
//   - ErrInvalidState: record is in the wrong state for the requested mutation
//   - ErrUnavailable: backing service temporarily unavailable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
