package validation

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/parking-stand-manager/internal/model"
)

// CreateStandRequest registers a new stand.
type CreateStandRequest struct {
	Name       string           `json:"name" validate:"required,max=100"`
	Location   string           `json:"location" validate:"required,max=255"`
	Capacity   int              `json:"capacity" validate:"required,min=1"`
	HourlyRate *decimal.Decimal `json:"hourly_rate" validate:"required,money"`
	Currency   string           `json:"currency" validate:"oneof=INR USD EUR GBP NPR"`
	Status     string           `json:"status" validate:"oneof=active inactive maintenance"`
	AdminID    *uint64          `json:"admin_id" validate:"omitempty,min=1"`
}

// Normalize trims text and applies currency and status defaults.
func (r *CreateStandRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Location = strings.TrimSpace(r.Location)
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	if r.Currency == "" {
		r.Currency = string(model.CurrencyINR)
	}
	r.Status = strings.ToLower(strings.TrimSpace(r.Status))
	if r.Status == "" {
		r.Status = string(model.StandActive)
	}
}

// UpdateStandRequest patches a stand.  Occupancy is never accepted here.
type UpdateStandRequest struct {
	Name       *string          `json:"name" validate:"omitempty,min=1,max=100"`
	Location   *string          `json:"location" validate:"omitempty,min=1,max=255"`
	Capacity   *int             `json:"capacity" validate:"omitempty,min=1"`
	HourlyRate *decimal.Decimal `json:"hourly_rate" validate:"omitempty,money"`
	Currency   *string          `json:"currency" validate:"omitempty,oneof=INR USD EUR GBP NPR"`
	Status     *string          `json:"status" validate:"omitempty,oneof=active inactive maintenance"`
	AdminID    *uint64          `json:"admin_id" validate:"omitempty,min=1"`
}

// Normalize trims and case-folds the optional fields.
func (r *UpdateStandRequest) Normalize() {
	if r.Name != nil {
		v := strings.TrimSpace(*r.Name)
		r.Name = &v
	}
	if r.Location != nil {
		v := strings.TrimSpace(*r.Location)
		r.Location = &v
	}
	if r.Currency != nil {
		v := strings.ToUpper(strings.TrimSpace(*r.Currency))
		r.Currency = &v
	}
	if r.Status != nil {
		v := strings.ToLower(strings.TrimSpace(*r.Status))
		r.Status = &v
	}
}
