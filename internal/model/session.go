package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SessionStatus is the flat lifecycle status stored in
// parking_sessions.status.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionActive, SessionCompleted, SessionCancelled:
		return true
	}
	return false
}

// VehicleType classifies the parked vehicle.
type VehicleType string

const (
	VehicleCar        VehicleType = "car"
	VehicleMotorcycle VehicleType = "motorcycle"
	VehicleTruck      VehicleType = "truck"
	VehicleBus        VehicleType = "bus"
)

// Valid reports whether v is a known vehicle type.
func (v VehicleType) Valid() bool {
	switch v {
	case VehicleCar, VehicleMotorcycle, VehicleTruck, VehicleBus:
		return true
	}
	return false
}

// PaymentStatus tracks settlement of a closed session.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// Valid reports whether p is a known payment status.
func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentPaid, PaymentFailed:
		return true
	}
	return false
}

// SessionState is the lifecycle state of a session.  It is one of
// Active, Completed or Cancelled; fields that only exist once a session
// is closed live on the terminal variants.
type SessionState interface {
	Status() SessionStatus
	sessionState()
}

// Active is the initial state.
type Active struct{}

// Completed is reached through checkout and carries the billed outcome.
type Completed struct {
	ExitTime        time.Time
	Amount          decimal.Decimal
	DurationMinutes int64
}

// Cancelled is reached through cancel.  No fee is charged.
type Cancelled struct {
	At time.Time
}

func (Active) Status() SessionStatus    { return SessionActive }
func (Completed) Status() SessionStatus { return SessionCompleted }
func (Cancelled) Status() SessionStatus { return SessionCancelled }

func (Active) sessionState()    {}
func (Completed) sessionState() {}
func (Cancelled) sessionState() {}

// Session records one vehicle's stay at a stand.  Rows are never deleted;
// closed sessions are the audit trail.
//
// Fields:
//  ID            – primary key identifier.
//  VehicleNumber – trimmed, upper-cased registration.
//  VehicleType   – car, motorcycle, truck or bus.
//  CustomerName  – required customer name.
//  CustomerPhone – optional phone number.
//  StandID       – owning stand.
//  HourlyRate    – rate captured at entry; later stand rate changes do
//                  not affect the session.
//  EntryTime     – set on open, immutable.
//  State         – lifecycle state (see SessionState).
//  PaymentStatus – meaningful once the session is closed.
//  Notes         – optional free text.
//  CreatedBy     – user who opened the session.
type Session struct {
	ID            uint64          // parking_sessions.id
	VehicleNumber string          // parking_sessions.vehicle_number
	VehicleType   VehicleType     // parking_sessions.vehicle_type
	CustomerName  string          // parking_sessions.customer_name
	CustomerPhone *string         // parking_sessions.customer_phone (nullable)
	StandID       uint64          // parking_sessions.stand_id
	HourlyRate    decimal.Decimal // parking_sessions.hourly_rate
	EntryTime     time.Time       // parking_sessions.entry_time
	State         SessionState    // parking_sessions.status + exit_time/amount/duration_minutes
	PaymentStatus PaymentStatus   // parking_sessions.payment_status
	Notes         *string         // parking_sessions.notes (nullable)
	CreatedBy     uint64          // parking_sessions.created_by
	CreatedAt     time.Time       // parking_sessions.created_at
	UpdatedAt     time.Time       // parking_sessions.updated_at
}

// Status returns the flat status of the session.  A session without a
// state is treated as active.
func (s Session) Status() SessionStatus {
	if s.State == nil {
		return SessionActive
	}
	return s.State.Status()
}

// IsActive reports whether the session is still open.
func (s Session) IsActive() bool { return s.Status() == SessionActive }

// ExitTime returns the checkout time, or nil unless completed.
func (s Session) ExitTime() *time.Time {
	if c, ok := s.State.(Completed); ok {
		t := c.ExitTime
		return &t
	}
	return nil
}

// Amount returns the billed amount, or nil unless completed.
func (s Session) Amount() *decimal.Decimal {
	if c, ok := s.State.(Completed); ok {
		a := c.Amount
		return &a
	}
	return nil
}

// DurationMinutes returns the billed duration, or nil unless completed.
func (s Session) DurationMinutes() *int64 {
	if c, ok := s.State.(Completed); ok {
		d := c.DurationMinutes
		return &d
	}
	return nil
}

// FeeBreakdown is the read view of a session's fee.  For active sessions
// it is an estimate computed against the current time.
type FeeBreakdown struct {
	SessionID       uint64
	DurationMinutes int64
	Hours           float64
	Amount          decimal.Decimal
	HourlyRate      decimal.Decimal
	Currency        Currency
	Display         string
	Estimate        bool
}
