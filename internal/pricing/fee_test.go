package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func TestComputeFeeNinetyMinutes(t *testing.T) {
	fee, err := ComputeFee(t0, t0.Add(90*time.Minute), decimal.NewFromInt(10))
	require.NoError(t, err)

	assert.Equal(t, int64(90), fee.DurationMinutes)
	assert.InDelta(t, 1.5, fee.Hours, 1e-9)
	assert.True(t, fee.Amount.Equal(decimal.NewFromInt(15)), "amount = %s", fee.Amount)
}

func TestComputeFeeSubHourRoundsUp(t *testing.T) {
	fee, err := ComputeFee(t0, t0.Add(time.Minute), decimal.NewFromInt(100))
	require.NoError(t, err)

	assert.Equal(t, int64(1), fee.DurationMinutes)
	assert.True(t, fee.Amount.Equal(decimal.NewFromInt(2)), "amount = %s", fee.Amount)
}

func TestComputeFeePartialMinuteCountsAsFullMinute(t *testing.T) {
	fee, err := ComputeFee(t0, t0.Add(60*time.Minute+time.Second), decimal.NewFromInt(60))
	require.NoError(t, err)

	assert.Equal(t, int64(61), fee.DurationMinutes)
	assert.True(t, fee.Amount.Equal(decimal.NewFromInt(61)), "amount = %s", fee.Amount)
}

func TestComputeFeeFractionalRate(t *testing.T) {
	// 20 minutes at 3.00/h is exactly 1.00; no spurious extra unit.
	fee, err := ComputeFee(t0, t0.Add(20*time.Minute), decimal.RequireFromString("3.00"))
	require.NoError(t, err)
	assert.True(t, fee.Amount.Equal(decimal.NewFromInt(1)), "amount = %s", fee.Amount)

	fee, err = ComputeFee(t0, t0.Add(20*time.Minute), decimal.RequireFromString("2.50"))
	require.NoError(t, err)
	assert.True(t, fee.Amount.Equal(decimal.NewFromInt(1)), "amount = %s", fee.Amount)
}

func TestComputeFeeZeroRate(t *testing.T) {
	fee, err := ComputeFee(t0, t0.Add(3*time.Hour), decimal.Zero)
	require.NoError(t, err)
	assert.True(t, fee.Amount.IsZero())
	assert.Equal(t, int64(180), fee.DurationMinutes)
}

func TestComputeFeeErrors(t *testing.T) {
	rate := decimal.NewFromInt(10)

	_, err := ComputeFee(t0, t0, rate)
	assert.ErrorIs(t, err, ErrNonPositiveDuration)

	_, err = ComputeFee(t0, t0.Add(-time.Minute), rate)
	assert.ErrorIs(t, err, ErrNonPositiveDuration)

	_, err = ComputeFee(t0, t0.Add(500*time.Microsecond), rate)
	assert.ErrorIs(t, err, ErrNonPositiveDuration)

	_, err = ComputeFee(time.Time{}, t0, rate)
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = ComputeFee(t0, time.Time{}, rate)
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = ComputeFee(t0, t0.Add(time.Hour), decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestComputeFeeMonotonic(t *testing.T) {
	rate := decimal.RequireFromString("37.5")
	prev := decimal.Zero
	prevMinutes := int64(0)
	for s := int64(1); s <= 6*3600; s += 17 {
		fee, err := ComputeFee(t0, t0.Add(time.Duration(s)*time.Second), rate)
		require.NoError(t, err)
		require.False(t, fee.Amount.LessThan(prev), "amount decreased at %ds", s)
		require.GreaterOrEqual(t, fee.DurationMinutes, prevMinutes)
		prev, prevMinutes = fee.Amount, fee.DurationMinutes
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "0m"},
		{59 * time.Second, "0m"},
		{45 * time.Minute, "45m"},
		{90 * time.Minute, "1h 30m"},
		{2*time.Hour + 59*time.Second, "2h 0m"},
		{-time.Minute, "0m"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatDuration(c.d), c.d.String())
	}
}

func TestFormatDurationFloorsWhileBillingCeils(t *testing.T) {
	d := 61*time.Minute + 30*time.Second
	fee, err := ComputeFee(t0, t0.Add(d), decimal.NewFromInt(60))
	require.NoError(t, err)

	assert.Equal(t, int64(62), fee.DurationMinutes)
	assert.Equal(t, "1h 1m", FormatDuration(d))
}
