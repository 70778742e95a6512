package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/parking-stand-manager/internal/model"
)

// MemoryStore is an in-process Store.  Each stand owns a mutex that guards
// the stand row and all of its sessions, which gives the same per-stand
// atomicity as the MySQL row locks; different stands never contend.
type MemoryStore struct {
	mu        sync.RWMutex // guards the maps and id counters; taken after a stand lock, never before
	stands    map[uint64]*standEntry
	names     map[string]uint64 // lower-cased stand name -> stand id
	sessionAt map[uint64]uint64 // session id -> stand id
	nextStand uint64
	nextSess  uint64
	now       func() time.Time
}

type standEntry struct {
	mu       sync.Mutex
	stand    model.Stand
	sessions map[uint64]*model.Session
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stands:    make(map[uint64]*standEntry),
		names:     make(map[string]uint64),
		sessionAt: make(map[uint64]uint64),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) entry(id uint64) (*standEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.stands[id]
	return e, ok
}

func (m *MemoryStore) entryForSession(id uint64) (*standEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	standID, ok := m.sessionAt[id]
	if !ok {
		return nil, false
	}
	e, ok := m.stands[standID]
	return e, ok
}

// GetStand returns a copy of the stand.
func (m *MemoryStore) GetStand(_ context.Context, id uint64) (*model.Stand, error) {
	e, ok := m.entry(id)
	if !ok {
		return nil, ErrStandNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stand
	return &s, nil
}

// ListStands returns matching stands ordered by name.
func (m *MemoryStore) ListStands(_ context.Context, f StandFilter) ([]model.Stand, error) {
	m.mu.RLock()
	entries := make([]*standEntry, 0, len(m.stands))
	for _, e := range m.stands {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	out := []model.Stand{}
	for _, e := range entries {
		e.mu.Lock()
		s := e.stand
		e.mu.Unlock()
		if f.AdminID != nil && (s.AdminID == nil || *s.AdminID != *f.AdminID) {
			continue
		}
		if f.StandID != nil && s.ID != *f.StandID {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CreateStand stores a new stand with zero occupancy.
func (m *MemoryStore) CreateStand(_ context.Context, s *model.Stand) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(s.Name)
	if _, taken := m.names[key]; taken {
		return ErrDuplicateStandName
	}
	m.nextStand++
	now := m.now()
	s.ID = m.nextStand
	s.CurrentOccupancy = 0
	s.CreatedAt, s.UpdatedAt = now, now
	m.stands[s.ID] = &standEntry{stand: *s, sessions: make(map[uint64]*model.Session)}
	m.names[key] = s.ID
	return nil
}

// UpdateStand applies a patch under the stand lock.  Occupancy set by the
// patch is ignored.
func (m *MemoryStore) UpdateStand(_ context.Context, id uint64, apply func(*model.Stand) error) (*model.Stand, error) {
	e, ok := m.entry(id)
	if !ok {
		return nil, ErrStandNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stand
	if err := apply(&s); err != nil {
		return nil, err
	}
	s.CurrentOccupancy = e.stand.CurrentOccupancy
	if s.Capacity < s.CurrentOccupancy {
		return nil, ErrCapacityBelowOccupancy
	}
	if s.Name != e.stand.Name && !m.rename(e.stand.Name, s.Name, id) {
		return nil, ErrDuplicateStandName
	}
	s.UpdatedAt = m.now()
	e.stand = s
	return &s, nil
}

func (m *MemoryStore) rename(from, to string, id uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(to)
	if owner, taken := m.names[key]; taken && owner != id {
		return false
	}
	delete(m.names, strings.ToLower(from))
	m.names[key] = id
	return true
}

// ReconcileOccupancy recounts active sessions of the stand.
func (m *MemoryStore) ReconcileOccupancy(_ context.Context, id uint64) (*Reconciliation, error) {
	e, ok := m.entry(id)
	if !ok {
		return nil, ErrStandNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	rec := &Reconciliation{StandID: id, Before: e.stand.CurrentOccupancy, Capacity: e.stand.Capacity}
	for _, s := range e.sessions {
		if s.IsActive() {
			rec.After++
		}
	}
	e.stand.CurrentOccupancy = rec.After
	e.stand.UpdatedAt = m.now()
	return rec, nil
}

// GetSession returns a copy of the session.
func (m *MemoryStore) GetSession(_ context.Context, id uint64) (*model.Session, error) {
	e, ok := m.entryForSession(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	s := *e.sessions[id]
	return &s, nil
}

// ListActiveSessions returns the open sessions of a stand, oldest first.
func (m *MemoryStore) ListActiveSessions(_ context.Context, standID uint64) ([]model.Session, error) {
	e, ok := m.entry(standID)
	if !ok {
		return nil, ErrStandNotFound
	}
	e.mu.Lock()
	out := []model.Session{}
	for _, s := range e.sessions {
		if s.IsActive() {
			out = append(out, *s)
		}
	}
	e.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntryTime.Equal(out[j].EntryTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].EntryTime.Before(out[j].EntryTime)
	})
	return out, nil
}

// OpenSession checks capacity, increments occupancy and stores the session
// while holding the stand lock.
func (m *MemoryStore) OpenSession(_ context.Context, s *model.Session, opts OpenOptions) error {
	e, ok := m.entry(s.StandID)
	if !ok {
		return ErrStandNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stand.Status != model.StandActive {
		return ErrStandUnavailable
	}
	if e.stand.CurrentOccupancy+1 > e.stand.Capacity {
		return ErrStandAtCapacity
	}
	if opts.UniqueActiveVehicle && e.hasActiveVehicle(s.VehicleNumber, 0) {
		return ErrDuplicateActiveSession
	}

	m.mu.Lock()
	m.nextSess++
	s.ID = m.nextSess
	m.sessionAt[s.ID] = s.StandID
	m.mu.Unlock()

	now := m.now()
	s.State = model.Active{}
	s.CreatedAt, s.UpdatedAt = now, now
	stored := *s
	e.sessions[s.ID] = &stored
	e.stand.CurrentOccupancy++
	return nil
}

func (e *standEntry) hasActiveVehicle(vehicle string, except uint64) bool {
	for id, s := range e.sessions {
		if id != except && s.IsActive() && s.VehicleNumber == vehicle {
			return true
		}
	}
	return false
}

// CloseSession applies close to an active session and frees its place.
func (m *MemoryStore) CloseSession(_ context.Context, id uint64, close CloseFunc) (*model.Session, error) {
	e, ok := m.entryForSession(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	cur := e.sessions[id]
	if !cur.IsActive() {
		return nil, ErrAlreadyClosed
	}
	state, payment, err := close(*cur)
	if err != nil {
		return nil, err
	}
	switch state.(type) {
	case model.Completed, model.Cancelled:
	default:
		return nil, fmt.Errorf("close session %d: %T is not a terminal state", id, state)
	}
	next := *cur
	next.State = state
	next.PaymentStatus = payment
	next.UpdatedAt = m.now()
	e.sessions[id] = &next
	if e.stand.CurrentOccupancy > 0 {
		e.stand.CurrentOccupancy--
	}
	out := next
	return &out, nil
}

// UpdateSession patches an active session.  Status, stand and entry time
// are restored if the patch touched them.
func (m *MemoryStore) UpdateSession(_ context.Context, id uint64, opts OpenOptions, apply func(*model.Session) error) (*model.Session, error) {
	e, ok := m.entryForSession(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	cur := e.sessions[id]
	if !cur.IsActive() {
		return nil, ErrAlreadyClosed
	}
	next := *cur
	if err := apply(&next); err != nil {
		return nil, err
	}
	next.State, next.StandID, next.EntryTime = cur.State, cur.StandID, cur.EntryTime
	if opts.UniqueActiveVehicle && next.VehicleNumber != cur.VehicleNumber && e.hasActiveVehicle(next.VehicleNumber, id) {
		return nil, ErrDuplicateActiveSession
	}
	next.UpdatedAt = m.now()
	e.sessions[id] = &next
	out := next
	return &out, nil
}
