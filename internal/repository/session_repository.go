package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/parking-stand-manager/internal/model"
)

const sessionColumns = `id, vehicle_number, vehicle_type, customer_name, customer_phone, stand_id, hourly_rate, entry_time,
       exit_time, status, payment_status, amount, duration_minutes, cancelled_at, notes, created_by, created_at, updated_at`

// scanSession rebuilds the tagged state from the flat status column and
// its nullable companions.
func scanSession(sc rowScanner) (*model.Session, error) {
	var s model.Session
	var vehicleType, status, payment string
	var phone, notes sql.NullString
	var exitTime, cancelledAt sql.NullTime
	var amount decimal.NullDecimal
	var duration sql.NullInt64
	if err := sc.Scan(&s.ID, &s.VehicleNumber, &vehicleType, &s.CustomerName, &phone, &s.StandID, &s.HourlyRate,
		&s.EntryTime, &exitTime, &status, &payment, &amount, &duration, &cancelledAt, &notes, &s.CreatedBy,
		&s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.VehicleType = model.VehicleType(vehicleType)
	s.PaymentStatus = model.PaymentStatus(payment)
	s.CustomerPhone = stringPtr(phone)
	s.Notes = stringPtr(notes)
	switch model.SessionStatus(status) {
	case model.SessionActive:
		s.State = model.Active{}
	case model.SessionCompleted:
		s.State = model.Completed{ExitTime: exitTime.Time, Amount: amount.Decimal, DurationMinutes: duration.Int64}
	case model.SessionCancelled:
		s.State = model.Cancelled{At: cancelledAt.Time}
	default:
		return nil, fmt.Errorf("session %d: unknown status %q", s.ID, status)
	}
	return &s, nil
}

func (r *MySQLStore) getSession(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}, id uint64, forUpdate bool) (*model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE id = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	s, err := scanSession(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return s, err
}

// GetSession returns a session by ID or ErrSessionNotFound.
func (r *MySQLStore) GetSession(ctx context.Context, id uint64) (*model.Session, error) {
	return r.getSession(ctx, r.db, id, false)
}

// ListActiveSessions returns the open sessions of a stand, oldest first.
func (r *MySQLStore) ListActiveSessions(ctx context.Context, standID uint64) ([]model.Session, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM parking_sessions
        WHERE stand_id = ? AND status = 'active' ORDER BY entry_time, id`, standID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// OpenSession claims a place on the stand and inserts the session in one
// transaction.  The conditional increment both checks capacity and takes
// the stand row lock, so concurrent opens at one stand are serialised
// while other stands proceed independently.
func (r *MySQLStore) OpenSession(ctx context.Context, s *model.Session, opts OpenOptions) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE stands SET current_occupancy = current_occupancy + 1
            WHERE id = ? AND status = 'active' AND current_occupancy < capacity`, s.StandID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return explainRejectedOpen(ctx, tx, s.StandID)
		}
		if opts.UniqueActiveVehicle {
			if err := ensureNoActiveVehicle(ctx, tx, s.StandID, s.VehicleNumber, 0); err != nil {
				return err
			}
		}

		now := r.now()
		const q = `INSERT INTO parking_sessions (vehicle_number, vehicle_type, customer_name, customer_phone, stand_id,
                   hourly_rate, entry_time, status, payment_status, notes, created_by, created_at, updated_at)
                   VALUES (?, ?, ?, ?, ?, ?, ?, 'active', ?, ?, ?, ?, ?)`
		ins, err := tx.ExecContext(ctx, q, s.VehicleNumber, string(s.VehicleType), s.CustomerName, nullString(s.CustomerPhone),
			s.StandID, s.HourlyRate, s.EntryTime, string(s.PaymentStatus), nullString(s.Notes), s.CreatedBy, now, now)
		if err != nil {
			return err
		}
		id, err := ins.LastInsertId()
		if err != nil {
			return err
		}
		s.ID = uint64(id)
		s.State = model.Active{}
		s.CreatedAt, s.UpdatedAt = now, now
		return nil
	})
}

// explainRejectedOpen tells apart the reasons the conditional increment
// matched no row.
func explainRejectedOpen(ctx context.Context, tx *sql.Tx, standID uint64) error {
	var status string
	var capacity, occupancy int
	err := tx.QueryRowContext(ctx, `SELECT status, capacity, current_occupancy FROM stands WHERE id = ?`, standID).
		Scan(&status, &capacity, &occupancy)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrStandNotFound
	}
	if err != nil {
		return err
	}
	if model.StandStatus(status) != model.StandActive {
		return ErrStandUnavailable
	}
	return ErrStandAtCapacity
}

func ensureNoActiveVehicle(ctx context.Context, tx *sql.Tx, standID uint64, vehicle string, exceptID uint64) error {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM parking_sessions
        WHERE stand_id = ? AND vehicle_number = ? AND status = 'active' AND id <> ? FOR UPDATE`,
		standID, vehicle, exceptID).Scan(&n)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrDuplicateActiveSession
	}
	return nil
}

// lockSession takes the stand row lock and then the session row lock,
// the same order OpenSession uses, so writers at one stand never deadlock.
func (r *MySQLStore) lockSession(ctx context.Context, tx *sql.Tx, id uint64) (*model.Session, error) {
	var standID uint64
	err := tx.QueryRowContext(ctx, `SELECT stand_id FROM parking_sessions WHERE id = ?`, id).Scan(&standID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := tx.QueryRowContext(ctx, `SELECT id FROM stands WHERE id = ? FOR UPDATE`, standID).Scan(&standID); err != nil {
		return nil, err
	}
	return r.getSession(ctx, tx, id, true)
}

// CloseSession moves an active session to the terminal state computed by
// close and frees its place, all in one transaction.  The status guard on
// the UPDATE makes a concurrent second close fail with ErrAlreadyClosed.
func (r *MySQLStore) CloseSession(ctx context.Context, id uint64, close CloseFunc) (*model.Session, error) {
	var out *model.Session
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		s, err := r.lockSession(ctx, tx, id)
		if err != nil {
			return err
		}
		if !s.IsActive() {
			return ErrAlreadyClosed
		}
		state, payment, err := close(*s)
		if err != nil {
			return err
		}

		var exitTime, cancelledAt sql.NullTime
		var amount decimal.NullDecimal
		var duration sql.NullInt64
		switch st := state.(type) {
		case model.Completed:
			exitTime = sql.NullTime{Time: st.ExitTime, Valid: true}
			amount = decimal.NullDecimal{Decimal: st.Amount, Valid: true}
			duration = sql.NullInt64{Int64: st.DurationMinutes, Valid: true}
		case model.Cancelled:
			cancelledAt = sql.NullTime{Time: st.At, Valid: true}
		default:
			return fmt.Errorf("close session %d: %T is not a terminal state", id, state)
		}

		now := r.now()
		res, err := tx.ExecContext(ctx, `UPDATE parking_sessions
            SET status = ?, exit_time = ?, amount = ?, duration_minutes = ?, cancelled_at = ?, payment_status = ?, updated_at = ?
            WHERE id = ? AND status = 'active'`,
			string(state.Status()), exitTime, amount, duration, cancelledAt, string(payment), now, id)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrAlreadyClosed
		}
		if _, err := tx.ExecContext(ctx, `UPDATE stands
            SET current_occupancy = IF(current_occupancy > 0, current_occupancy - 1, 0)
            WHERE id = ?`, s.StandID); err != nil {
			return err
		}
		s.State = state
		s.PaymentStatus = payment
		s.UpdatedAt = now
		out = s
		return nil
	})
	return out, err
}

// UpdateSession patches the descriptive fields of an active session.
func (r *MySQLStore) UpdateSession(ctx context.Context, id uint64, opts OpenOptions, apply func(*model.Session) error) (*model.Session, error) {
	var out *model.Session
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		s, err := r.lockSession(ctx, tx, id)
		if err != nil {
			return err
		}
		if !s.IsActive() {
			return ErrAlreadyClosed
		}
		before := s.VehicleNumber
		if err := apply(s); err != nil {
			return err
		}
		if opts.UniqueActiveVehicle && s.VehicleNumber != before {
			if err := ensureNoActiveVehicle(ctx, tx, s.StandID, s.VehicleNumber, s.ID); err != nil {
				return err
			}
		}
		s.UpdatedAt = r.now()
		res, err := tx.ExecContext(ctx, `UPDATE parking_sessions
            SET vehicle_number = ?, vehicle_type = ?, customer_name = ?, customer_phone = ?, hourly_rate = ?, notes = ?,
                payment_status = ?, updated_at = ?
            WHERE id = ? AND status = 'active'`,
			s.VehicleNumber, string(s.VehicleType), s.CustomerName, nullString(s.CustomerPhone), s.HourlyRate,
			nullString(s.Notes), string(s.PaymentStatus), s.UpdatedAt, id)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrAlreadyClosed
		}
		out = s
		return nil
	})
	return out, err
}

