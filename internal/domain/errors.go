package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// Input errors: contract violations, rejected before any mutation.
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnknownDifficulty = errors.New("unknown prompt difficulty")
	ErrUnknownSource     = errors.New("unknown xp source")

	// Storage errors
	ErrSlotEmpty        = errors.New("storage slot is empty")
	ErrMalformedRecord  = errors.New("stored progress record is malformed")
	ErrPersistenceWrite = errors.New("progress record could not be saved")
	ErrStoreUnavailable = errors.New("progress store is unreachable")
)
