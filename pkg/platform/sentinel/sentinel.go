package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into coded domain errors.
//
// These represent factual states about stored rows, not validation failures:
// - ErrNotFound: row does not exist (no proposal, no binding, unknown account)
// - ErrAlreadyUsed: a uniqueness slot is occupied (forward or reverse binding)
// - ErrInvalidState: row exists but is in the wrong state for the operation
// - ErrUnavailable: backing store temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
