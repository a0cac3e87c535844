package access

import (
	"cvowf.org/internal/profile"
	"cvowf.org/internal/session"
)

// Gate is a declarative access rule. Empty slices impose no constraint of
// that kind; RequireAll switches both lists from any-of to all-of.
type Gate struct {
	AllowedRoles       []profile.Role
	AllowedPermissions []string
	RequireAll         bool
}

// Allows reports whether the user satisfies the gate. A nil user never
// passes.
func (g Gate) Allows(u *session.AuthUser) bool {
	if u == nil {
		return false
	}
	if len(g.AllowedRoles) > 0 {
		if g.RequireAll {
			for _, role := range g.AllowedRoles {
				if !u.HasRole(role) {
					return false
				}
			}
		} else {
			ok := false
			for _, role := range g.AllowedRoles {
				if u.HasRole(role) {
					ok = true
					break
				}
			}
			if !ok {
				return false
			}
		}
	}
	if len(g.AllowedPermissions) == 0 {
		return true
	}
	if g.RequireAll {
		for _, perm := range g.AllowedPermissions {
			if !u.HasPermission(perm) {
				return false
			}
		}
		return true
	}
	for _, perm := range g.AllowedPermissions {
		if u.HasPermission(perm) {
			return true
		}
	}
	return false
}

// Common gates used by the route table.
var (
	AuthenticatedOnly = Gate{}
	AdminOnly         = Gate{AllowedRoles: []profile.Role{profile.RoleAdmin}}
	DonorOnly         = Gate{AllowedRoles: []profile.Role{profile.RoleDonor}}
	VolunteerOnly     = Gate{AllowedRoles: []profile.Role{profile.RoleVolunteer}}
	DonorOrVolunteer  = Gate{AllowedRoles: []profile.Role{profile.RoleDonor, profile.RoleVolunteer}}
)
