package handler

import (
	"time"

	"github.com/iliyamo/parking-stand-manager/internal/model"
	"github.com/iliyamo/parking-stand-manager/internal/pricing"
)

// sessionResponse is the wire view of a session.  Money is a fixed
// two-decimal string.
type sessionResponse struct {
	ID              uint64     `json:"id"`
	VehicleNumber   string     `json:"vehicle_number"`
	VehicleType     string     `json:"vehicle_type"`
	CustomerName    string     `json:"customer_name"`
	CustomerPhone   *string    `json:"customer_phone"`
	StandID         uint64     `json:"stand_id"`
	HourlyRate      string     `json:"hourly_rate"`
	EntryTime       time.Time  `json:"entry_time"`
	ExitTime        *time.Time `json:"exit_time"`
	Status          string     `json:"status"`
	PaymentStatus   string     `json:"payment_status"`
	Amount          *string    `json:"amount"`
	DurationMinutes *int64     `json:"duration_minutes"`
	Duration        *string    `json:"duration,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	Notes           *string    `json:"notes"`
	CreatedBy       uint64     `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func toSession(s *model.Session) sessionResponse {
	out := sessionResponse{
		ID:              s.ID,
		VehicleNumber:   s.VehicleNumber,
		VehicleType:     string(s.VehicleType),
		CustomerName:    s.CustomerName,
		CustomerPhone:   s.CustomerPhone,
		StandID:         s.StandID,
		HourlyRate:      s.HourlyRate.StringFixed(2),
		EntryTime:       s.EntryTime.UTC(),
		Status:          string(s.Status()),
		PaymentStatus:   string(s.PaymentStatus),
		DurationMinutes: s.DurationMinutes(),
		Notes:           s.Notes,
		CreatedBy:       s.CreatedBy,
		CreatedAt:       s.CreatedAt.UTC(),
		UpdatedAt:       s.UpdatedAt.UTC(),
	}
	switch st := s.State.(type) {
	case model.Completed:
		exit := st.ExitTime.UTC()
		amount := st.Amount.StringFixed(2)
		display := pricing.FormatDuration(exit.Sub(s.EntryTime))
		out.ExitTime, out.Amount, out.Duration = &exit, &amount, &display
	case model.Cancelled:
		at := st.At.UTC()
		out.CancelledAt = &at
	}
	return out
}

func toSessions(in []model.Session) []sessionResponse {
	out := make([]sessionResponse, 0, len(in))
	for i := range in {
		out = append(out, toSession(&in[i]))
	}
	return out
}

type standResponse struct {
	ID               uint64    `json:"id"`
	Name             string    `json:"name"`
	Location         string    `json:"location"`
	Capacity         int       `json:"capacity"`
	HourlyRate       string    `json:"hourly_rate"`
	Currency         string    `json:"currency"`
	CurrentOccupancy int       `json:"current_occupancy"`
	Available        int       `json:"available"`
	Status           string    `json:"status"`
	AdminID          *uint64   `json:"admin_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toStand(s *model.Stand) standResponse {
	return standResponse{
		ID:               s.ID,
		Name:             s.Name,
		Location:         s.Location,
		Capacity:         s.Capacity,
		HourlyRate:       s.HourlyRate.StringFixed(2),
		Currency:         string(s.Currency),
		CurrentOccupancy: s.CurrentOccupancy,
		Available:        s.Available(),
		Status:           string(s.Status),
		AdminID:          s.AdminID,
		CreatedAt:        s.CreatedAt.UTC(),
		UpdatedAt:        s.UpdatedAt.UTC(),
	}
}

type feeResponse struct {
	SessionID       uint64  `json:"session_id"`
	DurationMinutes int64   `json:"duration_minutes"`
	Hours           float64 `json:"hours"`
	Amount          string  `json:"amount"`
	HourlyRate      string  `json:"hourly_rate"`
	Currency        string  `json:"currency"`
	Display         string  `json:"display"`
	Estimate        bool    `json:"estimate"`
}

func toFee(f *model.FeeBreakdown) feeResponse {
	return feeResponse{
		SessionID:       f.SessionID,
		DurationMinutes: f.DurationMinutes,
		Hours:           f.Hours,
		Amount:          f.Amount.StringFixed(2),
		HourlyRate:      f.HourlyRate.StringFixed(2),
		Currency:        string(f.Currency),
		Display:         f.Display,
		Estimate:        f.Estimate,
	}
}
