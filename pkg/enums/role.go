package enums

import "fmt"

// Role represents a dashboard user's permission level.
type Role string

const (
	RoleSuperadmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleEmploye    Role = "employe"
)

var validRoles = []Role{
	RoleSuperadmin,
	RoleAdmin,
	RoleEmploye,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}

// Capabilities is the boolean permission set derived from a role, computed
// once per session instead of comparing role strings at every call site.
type Capabilities struct {
	ManageInventory bool
	ManageUsers     bool
	ManageSettings  bool
	ViewActivity    bool
}

// CapabilitiesFor maps a role to its capability set. Unknown roles get the
// empty (fully restricted) set.
func CapabilitiesFor(role Role) Capabilities {
	switch role {
	case RoleSuperadmin:
		return Capabilities{
			ManageInventory: true,
			ManageUsers:     true,
			ManageSettings:  true,
			ViewActivity:    true,
		}
	case RoleAdmin:
		return Capabilities{
			ManageInventory: true,
			ManageSettings:  true,
			ViewActivity:    true,
		}
	case RoleEmploye:
		return Capabilities{
			ViewActivity: true,
		}
	default:
		return Capabilities{}
	}
}
