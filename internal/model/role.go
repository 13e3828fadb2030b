package model

// Role identifies which dashboard a user belongs to.  Roles are carried in
// the JWT "role" claim and drive both route access (middleware) and entity
// visibility (the access package).  Values match the identifiers used by
// the front-end dashboards.
type Role string

const (
	RoleDevotee     Role = "devotee"
	RoleAdmin       Role = "admin"
	RoleSecurity    Role = "security"
	RoleMedical     Role = "medical"
	RoleTraffic     Role = "traffic"
	RoleControlRoom Role = "control-room"
)

// Roles lists every recognised role.  The order is stable and used when
// validating registration input.
var Roles = []Role{
	RoleDevotee,
	RoleAdmin,
	RoleSecurity,
	RoleMedical,
	RoleTraffic,
	RoleControlRoom,
}

// Valid reports whether r is one of the recognised roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// Staff reports whether r is an operational role.  Every role except
// devotee is staff; staff roles see critical alerts regardless of type.
func (r Role) Staff() bool {
	return r.Valid() && r != RoleDevotee
}
