package config

// SessionPolicy holds the configurable rules of the session core.
type SessionPolicy struct {
	// UniqueActiveVehicle allows at most one active session per vehicle
	// number at a stand.
	UniqueActiveVehicle bool
	// MaxListedSessions caps the active-session listing of a stand.
	MaxListedSessions int
}

// LoadSessionPolicy reads SESSION_* variables.
func LoadSessionPolicy() SessionPolicy {
	p := SessionPolicy{
		UniqueActiveVehicle: envBool("SESSION_UNIQUE_ACTIVE_VEHICLE", true),
		MaxListedSessions:   envInt("SESSION_MAX_LISTED", 500),
	}
	if p.MaxListedSessions < 1 {
		p.MaxListedSessions = 1
	}
	return p
}
