// Package repository defines error types that are reused across the
// stores.  Specific failures wrap one of the three kinds below so handlers
// can map them with errors.Is without knowing every case.  For example
// ErrStandAtCapacity is also an ErrConflict.
package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is the kind for unknown stand or session references.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an operation cannot proceed because of the
// current state of a record, usually after losing a race.
var ErrConflict = errors.New("conflict")

// ErrForbidden is returned when the caller attempts an operation on a
// stand outside of their scope.
var ErrForbidden = errors.New("forbidden")

var (
	ErrStandNotFound   = fmt.Errorf("stand %w", ErrNotFound)
	ErrSessionNotFound = fmt.Errorf("session %w", ErrNotFound)

	ErrAlreadyClosed          = fmt.Errorf("%w: session is already closed", ErrConflict)
	ErrStandAtCapacity        = fmt.Errorf("%w: stand is at capacity", ErrConflict)
	ErrStandUnavailable       = fmt.Errorf("%w: stand is not accepting vehicles", ErrConflict)
	ErrDuplicateActiveSession = fmt.Errorf("%w: vehicle already has an active session at this stand", ErrConflict)
	ErrDuplicateStandName     = fmt.Errorf("%w: stand name already exists", ErrConflict)
	ErrCapacityBelowOccupancy = fmt.Errorf("%w: capacity cannot be lower than current occupancy", ErrConflict)
)
