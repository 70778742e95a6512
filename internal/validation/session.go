package validation

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/parking-stand-manager/internal/model"
)

// CreateSessionRequest is the body of a new-entry action.
type CreateSessionRequest struct {
	VehicleNumber string           `json:"vehicle_number" validate:"required,max=20"`
	VehicleType   string           `json:"vehicle_type" validate:"oneof=car motorcycle truck bus"`
	CustomerName  string           `json:"customer_name" validate:"required,max=100"`
	CustomerPhone *string          `json:"customer_phone" validate:"omitempty,max=20"`
	StandID       uint64           `json:"stand_id" validate:"required"`
	HourlyRate    *decimal.Decimal `json:"hourly_rate" validate:"required,money"`
	Notes         *string          `json:"notes" validate:"omitempty,max=500"`
}

// Normalize trims text fields, upper-cases the vehicle number and applies
// the default vehicle type.
func (r *CreateSessionRequest) Normalize() {
	r.VehicleNumber = NormalizeVehicleNumber(r.VehicleNumber)
	r.CustomerName = strings.TrimSpace(r.CustomerName)
	r.VehicleType = strings.ToLower(strings.TrimSpace(r.VehicleType))
	if r.VehicleType == "" {
		r.VehicleType = string(model.VehicleCar)
	}
	r.CustomerPhone = trimOptional(r.CustomerPhone)
	r.Notes = trimOptional(r.Notes)
}

// UpdateSessionRequest patches an active session.  Every field is
// optional.  Status is accepted by the schema so that clients echoing a
// full record pass validation, but the state machine refuses any change.
type UpdateSessionRequest struct {
	VehicleNumber *string          `json:"vehicle_number" validate:"omitempty,min=1,max=20"`
	VehicleType   *string          `json:"vehicle_type" validate:"omitempty,oneof=car motorcycle truck bus"`
	CustomerName  *string          `json:"customer_name" validate:"omitempty,min=1,max=100"`
	CustomerPhone *string          `json:"customer_phone" validate:"omitempty,max=20"`
	HourlyRate    *decimal.Decimal `json:"hourly_rate" validate:"omitempty,money"`
	Notes         *string          `json:"notes" validate:"omitempty,max=500"`
	Status        *string          `json:"status" validate:"omitempty,oneof=active completed cancelled"`
	PaymentStatus *string          `json:"payment_status" validate:"omitempty,oneof=pending paid failed"`
}

// Normalize applies the same text rules as CreateSessionRequest.
func (r *UpdateSessionRequest) Normalize() {
	if r.VehicleNumber != nil {
		v := NormalizeVehicleNumber(*r.VehicleNumber)
		r.VehicleNumber = &v
	}
	if r.CustomerName != nil {
		v := strings.TrimSpace(*r.CustomerName)
		r.CustomerName = &v
	}
	if r.VehicleType != nil {
		v := strings.ToLower(strings.TrimSpace(*r.VehicleType))
		r.VehicleType = &v
	}
	r.CustomerPhone = trimOptional(r.CustomerPhone)
	r.Notes = trimOptional(r.Notes)
}

// Empty reports whether the patch carries no field at all.
func (r *UpdateSessionRequest) Empty() bool {
	return r.VehicleNumber == nil && r.VehicleType == nil && r.CustomerName == nil &&
		r.CustomerPhone == nil && r.HourlyRate == nil && r.Notes == nil &&
		r.Status == nil && r.PaymentStatus == nil
}

// CheckoutRequest closes a session.  ExitTime defaults to now and
// PaymentStatus to paid.
type CheckoutRequest struct {
	ExitTime      *time.Time `json:"exit_time"`
	PaymentStatus string     `json:"payment_status" validate:"oneof=pending paid failed"`
}

// Normalize applies the paid default.
func (r *CheckoutRequest) Normalize() {
	r.PaymentStatus = strings.ToLower(strings.TrimSpace(r.PaymentStatus))
	if r.PaymentStatus == "" {
		r.PaymentStatus = string(model.PaymentPaid)
	}
}

// NormalizeVehicleNumber trims and upper-cases a registration number.
func NormalizeVehicleNumber(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
