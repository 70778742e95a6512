package model

// Role names the three dashboard roles.  Values match the "role" claim
// carried in access tokens.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleStandAdmin Role = "stand_admin"
	RoleStaff      Role = "staff"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleStandAdmin, RoleStaff:
		return true
	}
	return false
}

// Actor is the authenticated caller of a core operation.  StandID is set
// for staff, who are bound to exactly one stand.
type Actor struct {
	UserID  uint64
	Role    Role
	StandID *uint64
}

// CanAccessStand reports whether the actor may act on the given stand.
// Stand admins are scoped through the stand's AdminID.
func (a Actor) CanAccessStand(s Stand) bool {
	switch a.Role {
	case RoleSuperAdmin:
		return true
	case RoleStandAdmin:
		return s.AdminID != nil && *s.AdminID == a.UserID
	case RoleStaff:
		return a.StandID != nil && *a.StandID == s.ID
	}
	return false
}
