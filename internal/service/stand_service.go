package service

import (
	"context"

	"github.com/iliyamo/parking-stand-manager/internal/logging"
	"github.com/iliyamo/parking-stand-manager/internal/metrics"
	"github.com/iliyamo/parking-stand-manager/internal/model"
	"github.com/iliyamo/parking-stand-manager/internal/repository"
	"github.com/iliyamo/parking-stand-manager/internal/validation"
)

// StandService administers stands.  It never writes occupancy except
// through Reconcile.
type StandService struct {
	store   repository.Store
	metrics *metrics.Collectors
}

func NewStandService(store repository.Store, m *metrics.Collectors) *StandService {
	return &StandService{store: store, metrics: m}
}

// Create registers a stand.  Only super admins may do so.
func (s *StandService) Create(ctx context.Context, actor model.Actor, req validation.CreateStandRequest) (*model.Stand, error) {
	if actor.Role != model.RoleSuperAdmin {
		return nil, ErrAdminOnly
	}
	if err := validation.Check(&req); err != nil {
		return nil, err
	}
	st := &model.Stand{
		Name:       req.Name,
		Location:   req.Location,
		Capacity:   req.Capacity,
		HourlyRate: *req.HourlyRate,
		Currency:   model.Currency(req.Currency),
		Status:     model.StandStatus(req.Status),
		AdminID:    req.AdminID,
	}
	if err := s.store.CreateStand(ctx, st); err != nil {
		return nil, err
	}
	s.metrics.Occupancy(standLabel(st.ID), 0)
	logging.Info(ctx).Uint64("stand_id", st.ID).Str("name", st.Name).Msg("stand created")
	return st, nil
}

// Update patches a stand.  Stand admins may edit their own stands but not
// reassign them; staff may not edit stands at all.
func (s *StandService) Update(ctx context.Context, actor model.Actor, id uint64, req validation.UpdateStandRequest) (*model.Stand, error) {
	if actor.Role == model.RoleStaff {
		return nil, ErrStandForbidden
	}
	if err := validation.Check(&req); err != nil {
		return nil, err
	}
	if actor.Role != model.RoleSuperAdmin && req.AdminID != nil {
		return nil, ErrAdminOnly
	}
	if _, err := s.authorized(ctx, actor, id); err != nil {
		return nil, err
	}
	st, err := s.store.UpdateStand(ctx, id, func(st *model.Stand) error {
		if req.Name != nil {
			st.Name = *req.Name
		}
		if req.Location != nil {
			st.Location = *req.Location
		}
		if req.Capacity != nil {
			st.Capacity = *req.Capacity
		}
		if req.HourlyRate != nil {
			st.HourlyRate = *req.HourlyRate
		}
		if req.Currency != nil {
			st.Currency = model.Currency(*req.Currency)
		}
		if req.Status != nil {
			st.Status = model.StandStatus(*req.Status)
		}
		if req.AdminID != nil {
			st.AdminID = req.AdminID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logging.Info(ctx).Uint64("stand_id", id).Msg("stand updated")
	return st, nil
}

// Get returns a stand the actor may see.
func (s *StandService) Get(ctx context.Context, actor model.Actor, id uint64) (*model.Stand, error) {
	return s.authorized(ctx, actor, id)
}

// List returns the stands in the actor's scope.
func (s *StandService) List(ctx context.Context, actor model.Actor) ([]model.Stand, error) {
	var f repository.StandFilter
	switch actor.Role {
	case model.RoleSuperAdmin:
	case model.RoleStandAdmin:
		uid := actor.UserID
		f.AdminID = &uid
	case model.RoleStaff:
		if actor.StandID == nil {
			return []model.Stand{}, nil
		}
		f.StandID = actor.StandID
	default:
		return nil, ErrStandForbidden
	}
	return s.store.ListStands(ctx, f)
}

// Reconcile recounts the active sessions of a stand and overwrites its
// occupancy.  Drift is logged as a warning.
func (s *StandService) Reconcile(ctx context.Context, actor model.Actor, id uint64) (*repository.Reconciliation, error) {
	if actor.Role != model.RoleSuperAdmin {
		return nil, ErrAdminOnly
	}
	rec, err := s.store.ReconcileOccupancy(ctx, id)
	if err != nil {
		return nil, err
	}
	s.metrics.Occupancy(standLabel(id), rec.After)
	ev := logging.Info(ctx)
	if rec.Before != rec.After {
		ev = logging.Warn(ctx)
	}
	ev.Uint64("stand_id", id).Int("before", rec.Before).Int("after", rec.After).Msg("occupancy reconciled")
	return rec, nil
}

func (s *StandService) authorized(ctx context.Context, actor model.Actor, id uint64) (*model.Stand, error) {
	st, err := s.store.GetStand(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessStand(*st) {
		return nil, ErrStandForbidden
	}
	return st, nil
}
