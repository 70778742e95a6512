package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StandStatus is the operational state of a stand.  Only active stands
// accept new parking sessions.
type StandStatus string

const (
	StandActive      StandStatus = "active"
	StandInactive    StandStatus = "inactive"
	StandMaintenance StandStatus = "maintenance"
)

// Valid reports whether s is one of the known stand statuses.
func (s StandStatus) Valid() bool {
	switch s {
	case StandActive, StandInactive, StandMaintenance:
		return true
	}
	return false
}

// Currency is the billing currency of a stand.  The set is fixed.
type Currency string

const (
	CurrencyINR Currency = "INR"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyNPR Currency = "NPR"
)

// Valid reports whether c is a supported currency.
func (c Currency) Valid() bool {
	switch c {
	case CurrencyINR, CurrencyUSD, CurrencyEUR, CurrencyGBP, CurrencyNPR:
		return true
	}
	return false
}

// Stand represents a physical parking facility with a finite number of
// places.  This struct corresponds to a row in the `stands` table.
//
// Fields:
//  ID               – primary key identifier.
//  Name             – unique stand name.
//  Location         – free-form address or description.
//  Capacity         – number of vehicles the stand can hold (>= 1).
//  HourlyRate       – default rate offered to new sessions.
//  Currency         – billing currency.
//  CurrentOccupancy – number of active sessions; written only by the
//                     occupancy ledger.
//  Status           – active, inactive or maintenance.
//  AdminID          – user managing the stand (nil when unassigned).
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type Stand struct {
	ID               uint64          // stands.id
	Name             string          // stands.name
	Location         string          // stands.location
	Capacity         int             // stands.capacity
	HourlyRate       decimal.Decimal // stands.hourly_rate
	Currency         Currency        // stands.currency
	CurrentOccupancy int             // stands.current_occupancy
	Status           StandStatus     // stands.status
	AdminID          *uint64         // stands.admin_id (nullable)
	CreatedAt        time.Time       // stands.created_at
	UpdatedAt        time.Time       // stands.updated_at
}

// Available returns the number of free places, never negative.
func (s Stand) Available() int {
	if s.CurrentOccupancy >= s.Capacity {
		return 0
	}
	return s.Capacity - s.CurrentOccupancy
}

// Occupancy is the read view of a stand's ledger.
type Occupancy struct {
	StandID   uint64
	Current   int
	Capacity  int
	Available int
}
