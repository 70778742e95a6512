package repository

import (
	"context"

	"github.com/iliyamo/parking-stand-manager/internal/model"
)

// OpenOptions tunes OpenSession and UpdateSession.
type OpenOptions struct {
	// UniqueActiveVehicle rejects a second active session for the same
	// vehicle number at the same stand.
	UniqueActiveVehicle bool
}

// CloseFunc computes the terminal state of a session.  It receives the
// session as read under lock and must return a Completed or Cancelled
// state.  An error aborts the close with no side effects.
type CloseFunc func(current model.Session) (model.SessionState, model.PaymentStatus, error)

// StandFilter narrows ListStands.  Nil fields do not filter.
type StandFilter struct {
	AdminID *uint64
	StandID *uint64
}

// Reconciliation reports the outcome of an occupancy recount.
type Reconciliation struct {
	StandID  uint64
	Before   int
	After    int
	Capacity int
}

// Store is the persistence contract of the session core.
//
// OpenSession and CloseSession are the only writers of
// stands.current_occupancy besides ReconcileOccupancy.  Each performs the
// (session.status, stand.current_occupancy) change as one atomic unit:
// OpenSession increments only when a place is free and inserts the
// session; CloseSession transitions only an active session and decrements
// once.  UpdateSession never touches occupancy or status.
type Store interface {
	GetStand(ctx context.Context, id uint64) (*model.Stand, error)
	ListStands(ctx context.Context, f StandFilter) ([]model.Stand, error)
	CreateStand(ctx context.Context, s *model.Stand) error
	UpdateStand(ctx context.Context, id uint64, apply func(*model.Stand) error) (*model.Stand, error)
	ReconcileOccupancy(ctx context.Context, id uint64) (*Reconciliation, error)

	GetSession(ctx context.Context, id uint64) (*model.Session, error)
	ListActiveSessions(ctx context.Context, standID uint64) ([]model.Session, error)
	OpenSession(ctx context.Context, s *model.Session, opts OpenOptions) error
	CloseSession(ctx context.Context, id uint64, close CloseFunc) (*model.Session, error)
	UpdateSession(ctx context.Context, id uint64, opts OpenOptions, apply func(*model.Session) error) (*model.Session, error)
}
