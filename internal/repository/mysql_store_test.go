package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/parking-stand-manager/internal/model"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T) (*MySQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	s := NewMySQLStore(db)
	s.now = func() time.Time { return fixedNow }
	return s, mock
}

var sessionCols = []string{"id", "vehicle_number", "vehicle_type", "customer_name", "customer_phone", "stand_id",
	"hourly_rate", "entry_time", "exit_time", "status", "payment_status", "amount", "duration_minutes",
	"cancelled_at", "notes", "created_by", "created_at", "updated_at"}

func activeRow(id, standID uint64, entry time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(sessionCols).AddRow(id, "KA01AB1234", "car", "Asha", nil, standID,
		"10.00", entry, nil, "active", "pending", nil, nil, nil, nil, 3, entry, entry)
}

func TestMySQLOpenSessionIncrementsThenInserts(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE stands SET current_occupancy = current_occupancy \+ 1`).
		WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM parking_sessions`).
		WithArgs(uint64(7), "KA01AB1234", uint64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO parking_sessions`).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectCommit()

	s := &model.Session{
		VehicleNumber: "KA01AB1234",
		VehicleType:   model.VehicleCar,
		CustomerName:  "Asha",
		StandID:       7,
		HourlyRate:    decimal.NewFromInt(10),
		EntryTime:     fixedNow,
		PaymentStatus: model.PaymentPending,
		CreatedBy:     3,
	}
	require.NoError(t, store.OpenSession(context.Background(), s, OpenOptions{UniqueActiveVehicle: true}))
	assert.Equal(t, uint64(42), s.ID)
	assert.True(t, s.IsActive())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLOpenSessionAtCapacityRollsBack(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE stands SET current_occupancy = current_occupancy \+ 1`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT status, capacity, current_occupancy FROM stands`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "capacity", "current_occupancy"}).AddRow("active", 2, 2))
	mock.ExpectRollback()

	err := store.OpenSession(context.Background(), &model.Session{StandID: 7}, OpenOptions{})
	assert.ErrorIs(t, err, ErrStandAtCapacity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLOpenSessionExplainsRejection(t *testing.T) {
	cases := []struct {
		name string
		rows *sqlmock.Rows
		want error
	}{
		{"missing", sqlmock.NewRows([]string{"status", "capacity", "current_occupancy"}), ErrStandNotFound},
		{"maintenance", sqlmock.NewRows([]string{"status", "capacity", "current_occupancy"}).AddRow("maintenance", 5, 0), ErrStandUnavailable},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			mock.ExpectBegin()
			mock.ExpectExec(`UPDATE stands SET current_occupancy`).WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectQuery(`SELECT status, capacity, current_occupancy FROM stands`).WillReturnRows(c.rows)
			mock.ExpectRollback()

			err := store.OpenSession(context.Background(), &model.Session{StandID: 7}, OpenOptions{})
			assert.ErrorIs(t, err, c.want)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestMySQLOpenSessionDuplicateVehicleRollsBack(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE stands SET current_occupancy = current_occupancy \+ 1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM parking_sessions`).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectRollback()

	err := store.OpenSession(context.Background(), &model.Session{StandID: 7, VehicleNumber: "KA01"}, OpenOptions{UniqueActiveVehicle: true})
	assert.ErrorIs(t, err, ErrDuplicateActiveSession)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func expectLockSession(mock sqlmock.Sqlmock, id, standID uint64, rows *sqlmock.Rows) {
	mock.ExpectQuery(`SELECT stand_id FROM parking_sessions WHERE id = \?`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"stand_id"}).AddRow(standID))
	mock.ExpectQuery(`SELECT id FROM stands WHERE id = \? FOR UPDATE`).
		WithArgs(standID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(standID))
	mock.ExpectQuery(`FROM parking_sessions WHERE id = \? FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(rows)
}

func TestMySQLCloseSessionCompletesAndDecrements(t *testing.T) {
	store, mock := newMockStore(t)
	entry := fixedNow.Add(-90 * time.Minute)
	mock.ExpectBegin()
	expectLockSession(mock, 5, 7, activeRow(5, 7, entry))
	mock.ExpectExec(`UPDATE parking_sessions\s+SET status = \?`).
		WithArgs("completed", fixedNow, sqlmock.AnyArg(), int64(90), nil, "paid", fixedNow, uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SET current_occupancy = IF\(current_occupancy > 0, current_occupancy - 1, 0\)`).
		WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	out, err := store.CloseSession(context.Background(), 5, func(cur model.Session) (model.SessionState, model.PaymentStatus, error) {
		assert.True(t, cur.HourlyRate.Equal(decimal.NewFromInt(10)))
		return model.Completed{ExitTime: fixedNow, Amount: decimal.NewFromInt(15), DurationMinutes: 90}, model.PaymentPaid, nil
	})
	require.NoError(t, err)
	assert.Equal(t, model.SessionCompleted, out.Status())
	assert.True(t, out.Amount().Equal(decimal.NewFromInt(15)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLCloseSessionAlreadyClosed(t *testing.T) {
	store, mock := newMockStore(t)
	entry := fixedNow.Add(-time.Hour)
	rows := sqlmock.NewRows(sessionCols).AddRow(5, "KA01", "car", "Asha", nil, 7, "10.00", entry, fixedNow,
		"completed", "paid", "10", 60, nil, nil, 3, entry, fixedNow)
	mock.ExpectBegin()
	expectLockSession(mock, 5, 7, rows)
	mock.ExpectRollback()

	called := false
	_, err := store.CloseSession(context.Background(), 5, func(model.Session) (model.SessionState, model.PaymentStatus, error) {
		called = true
		return model.Cancelled{}, model.PaymentPending, nil
	})
	assert.ErrorIs(t, err, ErrAlreadyClosed)
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLCloseSessionLostRace(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	expectLockSession(mock, 5, 7, activeRow(5, 7, fixedNow.Add(-time.Hour)))
	mock.ExpectExec(`UPDATE parking_sessions`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := store.CloseSession(context.Background(), 5, func(model.Session) (model.SessionState, model.PaymentStatus, error) {
		return model.Cancelled{At: fixedNow}, model.PaymentPending, nil
	})
	assert.ErrorIs(t, err, ErrAlreadyClosed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLCloseSessionUnknown(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT stand_id FROM parking_sessions`).WillReturnRows(sqlmock.NewRows([]string{"stand_id"}))
	mock.ExpectRollback()

	_, err := store.CloseSession(context.Background(), 5, nil)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLUpdateSessionRejectsClosed(t *testing.T) {
	store, mock := newMockStore(t)
	entry := fixedNow.Add(-time.Hour)
	rows := sqlmock.NewRows(sessionCols).AddRow(5, "KA01", "car", "Asha", nil, 7, "10.00", entry, nil,
		"cancelled", "pending", nil, nil, fixedNow, nil, 3, entry, fixedNow)
	mock.ExpectBegin()
	expectLockSession(mock, 5, 7, rows)
	mock.ExpectRollback()

	_, err := store.UpdateSession(context.Background(), 5, OpenOptions{}, func(s *model.Session) error {
		s.CustomerName = "x"
		return nil
	})
	assert.ErrorIs(t, err, ErrAlreadyClosed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLReconcileOccupancy(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT current_occupancy, capacity FROM stands WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"current_occupancy", "capacity"}).AddRow(4, 10))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM parking_sessions WHERE stand_id = \? AND status = 'active'`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	mock.ExpectExec(`UPDATE stands SET current_occupancy = \?`).
		WithArgs(2, fixedNow, uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec, err := store.ReconcileOccupancy(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 4, rec.Before)
	assert.Equal(t, 2, rec.After)
	assert.NoError(t, mock.ExpectationsWereMet())
}
