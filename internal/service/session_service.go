// Package service implements the session lifecycle on top of a
// repository.Store: authorization, the state machine transitions, fee
// computation, metrics and event publication.
package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/parking-stand-manager/internal/config"
	"github.com/iliyamo/parking-stand-manager/internal/logging"
	"github.com/iliyamo/parking-stand-manager/internal/metrics"
	"github.com/iliyamo/parking-stand-manager/internal/model"
	"github.com/iliyamo/parking-stand-manager/internal/pricing"
	"github.com/iliyamo/parking-stand-manager/internal/queue"
	"github.com/iliyamo/parking-stand-manager/internal/repository"
	"github.com/iliyamo/parking-stand-manager/internal/validation"
)

const publishTimeout = 3 * time.Second

// SessionService runs the session state machine.  Open, Checkout and
// Cancel are the only paths that move stand occupancy, each through a
// single store call.
type SessionService struct {
	store   repository.Store
	events  Publisher
	metrics *metrics.Collectors
	policy  config.SessionPolicy
	now     func() time.Time
}

// NewSessionService wires the state machine.  events and m may be nil.
func NewSessionService(store repository.Store, events Publisher, m *metrics.Collectors, policy config.SessionPolicy) *SessionService {
	if events == nil {
		events = NopPublisher{}
	}
	return &SessionService{store: store, events: events, metrics: m, policy: policy, now: time.Now}
}

// WithClock replaces the time source.
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	s.now = now
	return s
}

func (s *SessionService) clock() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *SessionService) openOptions() repository.OpenOptions {
	return repository.OpenOptions{UniqueActiveVehicle: s.policy.UniqueActiveVehicle}
}

// Open admits a vehicle to a stand.  The session captures the hourly rate
// from the request and is stored together with the occupancy increment.
func (s *SessionService) Open(ctx context.Context, actor model.Actor, req validation.CreateSessionRequest) (*model.Session, error) {
	if err := validation.Check(&req); err != nil {
		return nil, err
	}
	if _, err := s.authorizedStand(ctx, actor, req.StandID); err != nil {
		return nil, err
	}

	sess := &model.Session{
		VehicleNumber: req.VehicleNumber,
		VehicleType:   model.VehicleType(req.VehicleType),
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		StandID:       req.StandID,
		HourlyRate:    *req.HourlyRate,
		EntryTime:     s.clock(),
		State:         model.Active{},
		PaymentStatus: model.PaymentPending,
		Notes:         req.Notes,
		CreatedBy:     actor.UserID,
	}
	if err := s.store.OpenSession(ctx, sess, s.openOptions()); err != nil {
		s.metrics.OpenRejected(rejectReason(err))
		return nil, err
	}

	stand := standLabel(sess.StandID)
	s.metrics.SessionOpened(stand, s.currentOccupancy(ctx, sess.StandID))
	logging.Info(ctx).
		Uint64("session_id", sess.ID).
		Uint64("stand_id", sess.StandID).
		Str("vehicle", sess.VehicleNumber).
		Msg("session opened")
	s.publish(ctx, queue.SessionOpened, sess)
	return sess, nil
}

// Checkout closes an active session and bills it at the rate captured at
// entry.  A second checkout fails with ErrAlreadyClosed and leaves the
// first result untouched.
func (s *SessionService) Checkout(ctx context.Context, actor model.Actor, id uint64, req validation.CheckoutRequest) (*model.Session, error) {
	if err := validation.Check(&req); err != nil {
		return nil, err
	}
	if _, _, err := s.authorizedSession(ctx, actor, id); err != nil {
		return nil, err
	}

	exit := s.clock()
	if req.ExitTime != nil {
		exit = req.ExitTime.UTC().Truncate(time.Millisecond)
	}
	payment := model.PaymentStatus(req.PaymentStatus)

	closed, err := s.store.CloseSession(ctx, id, func(cur model.Session) (model.SessionState, model.PaymentStatus, error) {
		fee, err := pricing.ComputeFee(cur.EntryTime, exit, cur.HourlyRate)
		if err != nil {
			return nil, "", err
		}
		return model.Completed{
			ExitTime:        exit,
			Amount:          fee.Amount,
			DurationMinutes: fee.DurationMinutes,
		}, payment, nil
	})
	if err != nil {
		return nil, err
	}

	s.afterClose(ctx, closed, queue.SessionCheckedOut)
	return closed, nil
}

// Cancel closes an active session without a fee.  The payment status is
// left as it was.
func (s *SessionService) Cancel(ctx context.Context, actor model.Actor, id uint64) (*model.Session, error) {
	if _, _, err := s.authorizedSession(ctx, actor, id); err != nil {
		return nil, err
	}
	at := s.clock()
	closed, err := s.store.CloseSession(ctx, id, func(cur model.Session) (model.SessionState, model.PaymentStatus, error) {
		return model.Cancelled{At: at}, cur.PaymentStatus, nil
	})
	if err != nil {
		return nil, err
	}
	s.afterClose(ctx, closed, queue.SessionCancelled)
	return closed, nil
}

func (s *SessionService) afterClose(ctx context.Context, sess *model.Session, typ queue.EventType) {
	stand := standLabel(sess.StandID)
	s.metrics.SessionClosed(stand, string(sess.Status()), s.currentOccupancy(ctx, sess.StandID))
	ev := logging.Info(ctx).
		Uint64("session_id", sess.ID).
		Uint64("stand_id", sess.StandID).
		Str("status", string(sess.Status()))
	if amt := sess.Amount(); amt != nil {
		ev = ev.Str("amount", amt.String()).Int64("duration_minutes", *sess.DurationMinutes())
		if st, err := s.store.GetStand(ctx, sess.StandID); err == nil {
			s.metrics.Revenue(string(st.Currency), amt.InexactFloat64())
		}
	}
	ev.Msg("session closed")
	s.publish(ctx, typ, sess)
}

// Update patches the descriptive fields of an active session.  Status can
// not be changed here; a status other than "active" is a validation error.
func (s *SessionService) Update(ctx context.Context, actor model.Actor, id uint64, req validation.UpdateSessionRequest) (*model.Session, error) {
	if err := validation.Check(&req); err != nil {
		return nil, err
	}
	if req.Empty() {
		return nil, errEmptyPatch()
	}
	if req.Status != nil && model.SessionStatus(*req.Status) != model.SessionActive {
		return nil, errStatusChange()
	}
	if _, _, err := s.authorizedSession(ctx, actor, id); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateSession(ctx, id, s.openOptions(), func(sess *model.Session) error {
		if req.VehicleNumber != nil {
			sess.VehicleNumber = *req.VehicleNumber
		}
		if req.VehicleType != nil {
			sess.VehicleType = model.VehicleType(*req.VehicleType)
		}
		if req.CustomerName != nil {
			sess.CustomerName = *req.CustomerName
		}
		if req.CustomerPhone != nil {
			sess.CustomerPhone = req.CustomerPhone
		}
		if req.HourlyRate != nil {
			sess.HourlyRate = *req.HourlyRate
		}
		if req.Notes != nil {
			sess.Notes = req.Notes
		}
		if req.PaymentStatus != nil {
			sess.PaymentStatus = model.PaymentStatus(*req.PaymentStatus)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logging.Info(ctx).Uint64("session_id", id).Msg("session updated")
	return updated, nil
}

// Get returns a session the actor may see.
func (s *SessionService) Get(ctx context.Context, actor model.Actor, id uint64) (*model.Session, error) {
	sess, _, err := s.authorizedSession(ctx, actor, id)
	return sess, err
}

// Fee returns the fee breakdown of a session.  Completed sessions report
// their stored result, active sessions an estimate at the current time and
// cancelled sessions a zero fee.
func (s *SessionService) Fee(ctx context.Context, actor model.Actor, id uint64) (*model.FeeBreakdown, error) {
	sess, stand, err := s.authorizedSession(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	out := &model.FeeBreakdown{
		SessionID:  sess.ID,
		HourlyRate: sess.HourlyRate,
		Currency:   stand.Currency,
		Amount:     decimal.Zero,
	}
	switch st := sess.State.(type) {
	case model.Completed:
		out.DurationMinutes = st.DurationMinutes
		out.Hours = float64(st.DurationMinutes) / 60
		out.Amount = st.Amount
		out.Display = pricing.FormatDuration(st.ExitTime.Sub(sess.EntryTime))
	case model.Cancelled:
		out.Display = pricing.FormatDuration(st.At.Sub(sess.EntryTime))
	default:
		now := s.clock()
		out.Estimate = true
		out.Display = pricing.FormatDuration(now.Sub(sess.EntryTime))
		fee, err := pricing.ComputeFee(sess.EntryTime, now, sess.HourlyRate)
		switch {
		case errors.Is(err, pricing.ErrNonPositiveDuration):
			// opened this very millisecond
		case err != nil:
			return nil, err
		default:
			out.DurationMinutes, out.Hours, out.Amount = fee.DurationMinutes, fee.Hours, fee.Amount
		}
	}
	return out, nil
}

// ListActive returns the open sessions of a stand, oldest first.
func (s *SessionService) ListActive(ctx context.Context, actor model.Actor, standID uint64) ([]model.Session, error) {
	if _, err := s.authorizedStand(ctx, actor, standID); err != nil {
		return nil, err
	}
	out, err := s.store.ListActiveSessions(ctx, standID)
	if err != nil {
		return nil, err
	}
	if limit := s.policy.MaxListedSessions; limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Occupancy reads the ledger of a stand.
func (s *SessionService) Occupancy(ctx context.Context, actor model.Actor, standID uint64) (*model.Occupancy, error) {
	st, err := s.authorizedStand(ctx, actor, standID)
	if err != nil {
		return nil, err
	}
	s.metrics.Occupancy(standLabel(st.ID), st.CurrentOccupancy)
	return &model.Occupancy{
		StandID:   st.ID,
		Current:   st.CurrentOccupancy,
		Capacity:  st.Capacity,
		Available: st.Available(),
	}, nil
}

func (s *SessionService) authorizedStand(ctx context.Context, actor model.Actor, standID uint64) (*model.Stand, error) {
	st, err := s.store.GetStand(ctx, standID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessStand(*st) {
		return nil, ErrStandForbidden
	}
	return st, nil
}

func (s *SessionService) authorizedSession(ctx context.Context, actor model.Actor, id uint64) (*model.Session, *model.Stand, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	st, err := s.authorizedStand(ctx, actor, sess.StandID)
	if err != nil {
		return nil, nil, err
	}
	return sess, st, nil
}

func (s *SessionService) currentOccupancy(ctx context.Context, standID uint64) int {
	st, err := s.store.GetStand(ctx, standID)
	if err != nil {
		return 0
	}
	return st.CurrentOccupancy
}

// publish never fails the caller: the transition has already committed.
func (s *SessionService) publish(ctx context.Context, typ queue.EventType, sess *model.Session) {
	ev := queue.SessionEvent{
		EventID:         uuid.NewString(),
		Type:            typ,
		SessionID:       sess.ID,
		StandID:         sess.StandID,
		VehicleNumber:   sess.VehicleNumber,
		Status:          string(sess.Status()),
		DurationMinutes: sess.DurationMinutes(),
		OccurredAt:      s.clock(),
	}
	if amt := sess.Amount(); amt != nil {
		v := amt.String()
		ev.Amount = &v
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.Publish(pctx, ev); err != nil {
		logging.Warn(ctx).Err(err).Str("event", string(typ)).Uint64("session_id", sess.ID).Msg("event publish failed")
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, repository.ErrStandAtCapacity):
		return "stand_at_capacity"
	case errors.Is(err, repository.ErrStandUnavailable):
		return "stand_unavailable"
	case errors.Is(err, repository.ErrDuplicateActiveSession):
		return "duplicate_vehicle"
	case errors.Is(err, repository.ErrNotFound):
		return "not_found"
	}
	return "error"
}

func standLabel(id uint64) string { return strconv.FormatUint(id, 10) }
