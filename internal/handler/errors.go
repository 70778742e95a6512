package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-stand-manager/internal/logging"
	"github.com/iliyamo/parking-stand-manager/internal/pricing"
	"github.com/iliyamo/parking-stand-manager/internal/repository"
	"github.com/iliyamo/parking-stand-manager/internal/validation"
)

// codes gives clients a stable identifier for the conflicts they can act on.
var codes = []struct {
	err  error
	code string
}{
	{repository.ErrAlreadyClosed, "already_closed"},
	{repository.ErrStandAtCapacity, "stand_at_capacity"},
	{repository.ErrStandUnavailable, "stand_unavailable"},
	{repository.ErrDuplicateActiveSession, "duplicate_active_session"},
	{repository.ErrDuplicateStandName, "duplicate_stand_name"},
	{repository.ErrCapacityBelowOccupancy, "capacity_below_occupancy"},
	{repository.ErrStandNotFound, "stand_not_found"},
	{repository.ErrSessionNotFound, "session_not_found"},
	{pricing.ErrNonPositiveDuration, "non_positive_duration"},
	{pricing.ErrInvalidInterval, "invalid_interval"},
}

func errorCode(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}

// respondError maps a core error onto an HTTP status.  Unknown errors are
// logged and reported as 500 without detail.
func respondError(c echo.Context, err error) error {
	var verr *validation.Error
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": validation.ErrValidation.Error(), "fields": verr.Fields})
	case errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, repository.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, repository.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, pricing.ErrNonPositiveDuration), errors.Is(err, pricing.ErrInvalidInterval):
		status = http.StatusUnprocessableEntity
	default:
		logging.Error(c.Request().Context()).Err(err).Msg("request failed")
		return c.JSON(status, echo.Map{"error": "internal error"})
	}
	body := echo.Map{"error": err.Error()}
	if code := errorCode(err); code != "" {
		body["code"] = code
	}
	return c.JSON(status, body)
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// pathID parses a positive numeric :id parameter.
func pathID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}
