package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/parking-stand-manager/internal/model"
)

func newStand(t *testing.T, m *MemoryStore, name string, capacity int) *model.Stand {
	t.Helper()
	s := &model.Stand{
		Name:       name,
		Location:   "Main road",
		Capacity:   capacity,
		HourlyRate: decimal.NewFromInt(20),
		Currency:   model.CurrencyINR,
		Status:     model.StandActive,
	}
	require.NoError(t, m.CreateStand(context.Background(), s))
	return s
}

func newSession(standID uint64, vehicle string) *model.Session {
	return &model.Session{
		VehicleNumber: vehicle,
		VehicleType:   model.VehicleCar,
		CustomerName:  "Asha",
		StandID:       standID,
		HourlyRate:    decimal.NewFromInt(20),
		EntryTime:     time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		PaymentStatus: model.PaymentPending,
	}
}

func completeAt(exit time.Time) CloseFunc {
	return func(cur model.Session) (model.SessionState, model.PaymentStatus, error) {
		return model.Completed{ExitTime: exit, Amount: decimal.NewFromInt(20), DurationMinutes: 60}, model.PaymentPaid, nil
	}
}

func occupancy(t *testing.T, m *MemoryStore, id uint64) int {
	t.Helper()
	s, err := m.GetStand(context.Background(), id)
	require.NoError(t, err)
	return s.CurrentOccupancy
}

func TestMemoryOpenAndCloseMoveOccupancyByOne(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	stand := newStand(t, m, "North", 3)

	sess := newSession(stand.ID, "KA01AB1234")
	require.NoError(t, m.OpenSession(ctx, sess, OpenOptions{}))
	assert.NotZero(t, sess.ID)
	assert.Equal(t, 1, occupancy(t, m, stand.ID))

	closed, err := m.CloseSession(ctx, sess.ID, completeAt(sess.EntryTime.Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, model.SessionCompleted, closed.Status())
	assert.Equal(t, 0, occupancy(t, m, stand.ID))
}

func TestMemoryOpenAtCapacityLeavesOccupancyUnchanged(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	stand := newStand(t, m, "Tiny", 1)

	require.NoError(t, m.OpenSession(ctx, newSession(stand.ID, "A1"), OpenOptions{}))
	err := m.OpenSession(ctx, newSession(stand.ID, "B2"), OpenOptions{})
	assert.ErrorIs(t, err, ErrStandAtCapacity)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 1, occupancy(t, m, stand.ID))
}

func TestMemoryOpenRejectsInactiveAndUnknownStands(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	stand := newStand(t, m, "Closed", 5)
	_, err := m.UpdateStand(ctx, stand.ID, func(s *model.Stand) error {
		s.Status = model.StandMaintenance
		return nil
	})
	require.NoError(t, err)

	assert.ErrorIs(t, m.OpenSession(ctx, newSession(stand.ID, "A1"), OpenOptions{}), ErrStandUnavailable)
	assert.ErrorIs(t, m.OpenSession(ctx, newSession(999, "A1"), OpenOptions{}), ErrStandNotFound)
	assert.Equal(t, 0, occupancy(t, m, stand.ID))
}

func TestMemoryConcurrentOpensNeverOverbook(t *testing.T) {
	ctx := context.Background()
	for round := 0; round < 50; round++ {
		m := NewMemoryStore()
		stand := newStand(t, m, "Race", 3)
		require.NoError(t, m.OpenSession(ctx, newSession(stand.ID, "X1"), OpenOptions{}))
		require.NoError(t, m.OpenSession(ctx, newSession(stand.ID, "X2"), OpenOptions{}))

		var ok, full int32
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				err := m.OpenSession(ctx, newSession(stand.ID, "Y"+string(rune('A'+i))), OpenOptions{})
				switch {
				case err == nil:
					atomic.AddInt32(&ok, 1)
				case assert.ErrorIs(t, err, ErrStandAtCapacity):
					atomic.AddInt32(&full, 1)
				}
			}(i)
		}
		close(start)
		wg.Wait()

		require.Equal(t, int32(1), ok, "round %d", round)
		require.Equal(t, int32(7), full, "round %d", round)
		require.Equal(t, 3, occupancy(t, m, stand.ID))
	}
}

func TestMemoryConcurrentClosesApplyOnce(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	stand := newStand(t, m, "Gate", 2)
	sess := newSession(stand.ID, "KA01")
	require.NoError(t, m.OpenSession(ctx, sess, OpenOptions{}))

	var ok, closed int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.CloseSession(ctx, sess.ID, completeAt(sess.EntryTime.Add(time.Hour)))
			if err == nil {
				atomic.AddInt32(&ok, 1)
			} else if assert.ErrorIs(t, err, ErrAlreadyClosed) {
				atomic.AddInt32(&closed, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok)
	assert.Equal(t, int32(9), closed)
	assert.Equal(t, 0, occupancy(t, m, stand.ID))
}

func TestMemoryUniqueActiveVehicle(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	stand := newStand(t, m, "Dup", 5)
	opts := OpenOptions{UniqueActiveVehicle: true}

	first := newSession(stand.ID, "KA01")
	require.NoError(t, m.OpenSession(ctx, first, opts))
	assert.ErrorIs(t, m.OpenSession(ctx, newSession(stand.ID, "KA01"), opts), ErrDuplicateActiveSession)
	assert.Equal(t, 1, occupancy(t, m, stand.ID))

	// Without the policy the same vehicle may be admitted twice.
	require.NoError(t, m.OpenSession(ctx, newSession(stand.ID, "KA01"), OpenOptions{}))

	other := newSession(stand.ID, "KA02")
	require.NoError(t, m.OpenSession(ctx, other, opts))
	_, err := m.UpdateSession(ctx, other.ID, opts, func(s *model.Session) error {
		s.VehicleNumber = "KA01"
		return nil
	})
	assert.ErrorIs(t, err, ErrDuplicateActiveSession)
}

func TestMemoryUpdateOnlyWhileActive(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	stand := newStand(t, m, "Upd", 5)
	sess := newSession(stand.ID, "KA01")
	require.NoError(t, m.OpenSession(ctx, sess, OpenOptions{}))

	upd, err := m.UpdateSession(ctx, sess.ID, OpenOptions{}, func(s *model.Session) error {
		s.CustomerName = "Ravi"
		s.State = model.Cancelled{}
		s.StandID = 77
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Ravi", upd.CustomerName)
	assert.True(t, upd.IsActive())
	assert.Equal(t, stand.ID, upd.StandID)
	assert.Equal(t, 1, occupancy(t, m, stand.ID))

	_, err = m.CloseSession(ctx, sess.ID, completeAt(sess.EntryTime.Add(time.Hour)))
	require.NoError(t, err)
	_, err = m.UpdateSession(ctx, sess.ID, OpenOptions{}, func(s *model.Session) error {
		s.CustomerName = "Late"
		return nil
	})
	assert.ErrorIs(t, err, ErrAlreadyClosed)

	got, err := m.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ravi", got.CustomerName)
}

func TestMemoryStandUpdateGuardsCapacityAndNames(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	a := newStand(t, m, "Alpha", 2)
	newStand(t, m, "Beta", 2)
	require.NoError(t, m.OpenSession(ctx, newSession(a.ID, "A1"), OpenOptions{}))
	require.NoError(t, m.OpenSession(ctx, newSession(a.ID, "A2"), OpenOptions{}))

	_, err := m.UpdateStand(ctx, a.ID, func(s *model.Stand) error { s.Capacity = 1; return nil })
	assert.ErrorIs(t, err, ErrCapacityBelowOccupancy)

	_, err = m.UpdateStand(ctx, a.ID, func(s *model.Stand) error { s.Name = "beta"; return nil })
	assert.ErrorIs(t, err, ErrDuplicateStandName)

	upd, err := m.UpdateStand(ctx, a.ID, func(s *model.Stand) error {
		s.Name = "Gamma"
		s.CurrentOccupancy = 0
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Gamma", upd.Name)
	assert.Equal(t, 2, upd.CurrentOccupancy)

	require.NoError(t, m.CreateStand(ctx, &model.Stand{Name: "ALPHA"}))
	assert.ErrorIs(t, m.CreateStand(ctx, &model.Stand{Name: "GAMMA"}), ErrDuplicateStandName)
}

func TestMemoryReconcileRepairsDrift(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	stand := newStand(t, m, "Drift", 4)
	require.NoError(t, m.OpenSession(ctx, newSession(stand.ID, "A1"), OpenOptions{}))

	e, _ := m.entry(stand.ID)
	e.stand.CurrentOccupancy = 3

	rec, err := m.ReconcileOccupancy(ctx, stand.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Before)
	assert.Equal(t, 1, rec.After)
	assert.Equal(t, 1, occupancy(t, m, stand.ID))
}

func TestMemoryListActiveSessions(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	stand := newStand(t, m, "List", 5)
	first := newSession(stand.ID, "A1")
	second := newSession(stand.ID, "A2")
	second.EntryTime = first.EntryTime.Add(time.Minute)
	require.NoError(t, m.OpenSession(ctx, second, OpenOptions{}))
	require.NoError(t, m.OpenSession(ctx, first, OpenOptions{}))
	_, err := m.CloseSession(ctx, second.ID, func(model.Session) (model.SessionState, model.PaymentStatus, error) {
		return model.Cancelled{At: second.EntryTime}, model.PaymentPending, nil
	})
	require.NoError(t, err)

	list, err := m.ListActiveSessions(ctx, stand.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)

	_, err = m.ListActiveSessions(ctx, 404)
	assert.ErrorIs(t, err, ErrStandNotFound)
}
