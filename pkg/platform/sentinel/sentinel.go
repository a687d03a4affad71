package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into coded domain errors.
//
// These represent factual states about persisted resources, not validation
// failures:
//   - ErrNotFound: entity does not exist in the store
//   - ErrConflict: uniqueness or concurrent-update conflict
//   - ErrAlreadyUsed: enrollment code already claimed (or uses exhausted)
//   - ErrInvalidState: entity in the wrong state for the requested operation
//
// For validation errors use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
)
