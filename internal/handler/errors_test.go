package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/parking-stand-manager/internal/pricing"
	"github.com/iliyamo/parking-stand-manager/internal/repository"
	"github.com/iliyamo/parking-stand-manager/internal/service"
	"github.com/iliyamo/parking-stand-manager/internal/validation"
)

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{validation.Field("customer_name", "is required"), http.StatusBadRequest, ""},
		{repository.ErrSessionNotFound, http.StatusNotFound, "session_not_found"},
		{service.ErrStandForbidden, http.StatusForbidden, ""},
		{repository.ErrAlreadyClosed, http.StatusConflict, "already_closed"},
		{fmt.Errorf("open: %w", repository.ErrStandAtCapacity), http.StatusConflict, "stand_at_capacity"},
		{pricing.ErrNonPositiveDuration, http.StatusUnprocessableEntity, "non_positive_duration"},
		{errors.New("db down"), http.StatusInternalServerError, ""},
	}
	e := echo.New()
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

		assert.NoError(t, respondError(c, tc.err))
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		if tc.code != "" {
			assert.Contains(t, rec.Body.String(), `"code":"`+tc.code+`"`)
		}
	}
}

func TestValidationErrorListsFields(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	_ = respondError(c, validation.Field("vehicle_number", "is required"))

	assert.JSONEq(t, `{"error":"validation failed","fields":{"vehicle_number":"is required"}}`, rec.Body.String())
}

func TestInternalErrorHidesCause(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	_ = respondError(c, errors.New("dial tcp 10.0.0.1:3306: refused"))

	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

type pinger struct{ err error }

func (p pinger) PingContext(_ context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	e := echo.New()
	for _, tc := range []struct {
		db     Pinger
		status int
	}{
		{nil, http.StatusOK},
		{pinger{}, http.StatusOK},
		{pinger{err: errors.New("down")}, http.StatusServiceUnavailable},
	} {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/healthz", nil), rec)
		assert.NoError(t, Health(tc.db)(c))
		assert.Equal(t, tc.status, rec.Code)
	}
}
