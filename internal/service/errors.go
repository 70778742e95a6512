package service

import (
	"fmt"

	"github.com/iliyamo/parking-stand-manager/internal/repository"
	"github.com/iliyamo/parking-stand-manager/internal/validation"
)

// ErrStandForbidden is returned when the actor's scope does not include
// the stand an operation touches.
var ErrStandForbidden = fmt.Errorf("%w: stand is outside your scope", repository.ErrForbidden)

// ErrAdminOnly guards super-admin operations.
var ErrAdminOnly = fmt.Errorf("%w: requires super_admin", repository.ErrForbidden)

func errStatusChange() error {
	return validation.Field("status", "can only change through checkout or cancel")
}

func errEmptyPatch() error {
	return validation.Field("body", "at least one field is required")
}
