// Package pricing computes parking fees.  It has no state and no
// dependencies beyond the decimal type used for money.
package pricing

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidInterval is returned when entry, exit or rate is missing
	// (zero time) or the rate is negative.
	ErrInvalidInterval = errors.New("invalid interval")
	// ErrNonPositiveDuration is returned when exit is not after entry.
	ErrNonPositiveDuration = errors.New("exit time must be after entry time")
)

const (
	msPerMinute    = int64(60000)
	minutesPerHour = int64(60)
)

var sixty = decimal.NewFromInt(minutesPerHour)

// Fee is the outcome of ComputeFee.
type Fee struct {
	DurationMinutes int64
	Hours           float64
	Amount          decimal.Decimal
}

// ComputeFee prices the stay between entry and exit at hourlyRate.
//
// Rounding is two-stage and always up: the elapsed milliseconds are
// rounded up to whole minutes, then minutes/60 * rate is rounded up to
// the next whole currency unit.  Hours is the unrounded fraction.
func ComputeFee(entry, exit time.Time, hourlyRate decimal.Decimal) (Fee, error) {
	if entry.IsZero() || exit.IsZero() || hourlyRate.IsNegative() {
		return Fee{}, ErrInvalidInterval
	}
	ms := exit.Truncate(time.Millisecond).Sub(entry.Truncate(time.Millisecond)).Milliseconds()
	if ms <= 0 {
		return Fee{}, ErrNonPositiveDuration
	}
	minutes := (ms + msPerMinute - 1) / msPerMinute

	// minutes*rate is exact; QuoRem keeps the division exact as well.
	q, r := hourlyRate.Mul(decimal.NewFromInt(minutes)).QuoRem(sixty, 0)
	if r.IsPositive() {
		q = q.Add(decimal.NewFromInt(1))
	}
	return Fee{
		DurationMinutes: minutes,
		Hours:           float64(minutes) / float64(minutesPerHour),
		Amount:          q,
	}, nil
}

// FormatDuration renders d as "{h}h {m}m", dropping the hours part when
// it is zero.  Both parts are floored, unlike the billed duration.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int64(d / time.Hour)
	m := int64((d % time.Hour) / time.Minute)
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}
