package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/parking-stand-manager/internal/model"
)

const standColumns = `id, name, location, capacity, hourly_rate, currency, current_occupancy, status, admin_id, created_at, updated_at`

func scanStand(sc rowScanner) (*model.Stand, error) {
	var s model.Stand
	var currency, status string
	var adminID sql.NullInt64
	if err := sc.Scan(&s.ID, &s.Name, &s.Location, &s.Capacity, &s.HourlyRate, &currency,
		&s.CurrentOccupancy, &status, &adminID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Currency = model.Currency(currency)
	s.Status = model.StandStatus(status)
	if adminID.Valid {
		id := uint64(adminID.Int64)
		s.AdminID = &id
	}
	return &s, nil
}

func nullAdmin(id *uint64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*id), Valid: true}
}

// GetStand returns a stand by ID or ErrStandNotFound.
func (r *MySQLStore) GetStand(ctx context.Context, id uint64) (*model.Stand, error) {
	s, err := scanStand(r.db.QueryRowContext(ctx, `SELECT `+standColumns+` FROM stands WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStandNotFound
	}
	return s, err
}

// ListStands returns stands ordered by name.
func (r *MySQLStore) ListStands(ctx context.Context, f StandFilter) ([]model.Stand, error) {
	var where []string
	var args []interface{}
	if f.AdminID != nil {
		where = append(where, "admin_id = ?")
		args = append(args, *f.AdminID)
	}
	if f.StandID != nil {
		where = append(where, "id = ?")
		args = append(args, *f.StandID)
	}
	q := `SELECT ` + standColumns + ` FROM stands`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY name"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Stand{}
	for rows.Next() {
		s, err := scanStand(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// CreateStand inserts a stand with zero occupancy and populates its ID.
func (r *MySQLStore) CreateStand(ctx context.Context, s *model.Stand) error {
	now := r.now()
	const q = `INSERT INTO stands (name, location, capacity, hourly_rate, currency, current_occupancy, status, admin_id, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.Name, s.Location, s.Capacity, s.HourlyRate, string(s.Currency),
		string(s.Status), nullAdmin(s.AdminID), now, now)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicateStandName
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.CurrentOccupancy = 0
	s.CreatedAt, s.UpdatedAt = now, now
	return nil
}

// UpdateStand locks the stand row, applies the patch and writes every
// column except current_occupancy, which belongs to the ledger.
func (r *MySQLStore) UpdateStand(ctx context.Context, id uint64, apply func(*model.Stand) error) (*model.Stand, error) {
	var out *model.Stand
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		s, err := scanStand(tx.QueryRowContext(ctx, `SELECT `+standColumns+` FROM stands WHERE id = ? FOR UPDATE`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrStandNotFound
		}
		if err != nil {
			return err
		}
		if err := apply(s); err != nil {
			return err
		}
		if s.Capacity < s.CurrentOccupancy {
			return ErrCapacityBelowOccupancy
		}
		s.UpdatedAt = r.now()
		const q = `UPDATE stands SET name = ?, location = ?, capacity = ?, hourly_rate = ?, currency = ?, status = ?, admin_id = ?, updated_at = ?
                   WHERE id = ?`
		if _, err := tx.ExecContext(ctx, q, s.Name, s.Location, s.Capacity, s.HourlyRate, string(s.Currency),
			string(s.Status), nullAdmin(s.AdminID), s.UpdatedAt, id); err != nil {
			if isDuplicate(err) {
				return ErrDuplicateStandName
			}
			return err
		}
		out = s
		return nil
	})
	return out, err
}

// ReconcileOccupancy recounts active sessions for a stand and stores the
// result as its occupancy.
func (r *MySQLStore) ReconcileOccupancy(ctx context.Context, id uint64) (*Reconciliation, error) {
	var rec *Reconciliation
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		out := Reconciliation{StandID: id}
		err := tx.QueryRowContext(ctx, `SELECT current_occupancy, capacity FROM stands WHERE id = ? FOR UPDATE`, id).
			Scan(&out.Before, &out.Capacity)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrStandNotFound
		}
		if err != nil {
			return err
		}
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM parking_sessions WHERE stand_id = ? AND status = 'active'`, id).
			Scan(&out.After); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE stands SET current_occupancy = ?, updated_at = ? WHERE id = ?`, out.After, r.now(), id); err != nil {
			return err
		}
		rec = &out
		return nil
	})
	return rec, err
}
