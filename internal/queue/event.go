// Package queue defines the session lifecycle events exchanged over the
// message broker and the consumer that writes them to the audit log.
package queue

import "time"

// SessionsQueue is the durable queue carrying SessionEvent payloads.
const SessionsQueue = "parking.sessions"

// EventType names a session transition.
type EventType string

const (
	SessionOpened     EventType = "session.opened"
	SessionCheckedOut EventType = "session.checked_out"
	SessionCancelled  EventType = "session.cancelled"
)

// SessionEvent is published after a session transition commits.  Amount and
// DurationMinutes are only set for checkouts.
type SessionEvent struct {
	EventID         string    `json:"event_id"`
	Type            EventType `json:"type"`
	SessionID       uint64    `json:"session_id"`
	StandID         uint64    `json:"stand_id"`
	VehicleNumber   string    `json:"vehicle_number"`
	Status          string    `json:"status"`
	Amount          *string   `json:"amount,omitempty"`
	DurationMinutes *int64    `json:"duration_minutes,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}
