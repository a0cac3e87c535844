// Package access decides what a visitor may do with a route given the
// current auth state. Decisions are pure values; the HTTP layer turns
// them into responses.
package access

import (
	"net/url"

	"cvowf.org/internal/profile"
	"cvowf.org/internal/session"
)

// Well-known routes.
const (
	RouteLogin         = "/auth/login"
	RouteSignup        = "/auth/signup"
	RouteResetPassword = "/auth/reset-password"

	RouteDashboard          = "/dashboard"
	RouteAdminDashboard     = "/admin/dashboard"
	RouteVolunteerDashboard = "/volunteer/dashboard"
	RouteDonorDashboard     = "/donor/dashboard"
)

// Decision kinds.
const (
	Pending  = "pending"
	Allow    = "allow"
	Redirect = "redirect"
	Denied   = "denied"
)

// Denial reason codes.
const (
	ReasonAccessDenied            = "access_denied"
	ReasonInsufficientPermissions = "insufficient_permissions"
)

// Decision is the outcome of a guard check. Location and From are set for
// Redirect; Reason for Denied.
type Decision struct {
	Kind     string
	Location string
	From     string
	Reason   string
}

// Requirements declares what a protected route demands. Zero value means
// authentication only.
type Requirements struct {
	Role        profile.Role
	Permissions []string
	RedirectTo  string
}

// Protected evaluates a guarded route against the auth state. Unresolved
// state yields Pending; missing authentication redirects to the login
// route carrying the requested path; a role mismatch denies without
// redirecting. Permissions are any-of: holding one of the listed
// permissions is enough.
func Protected(st session.AuthState, requested string, req Requirements) Decision {
	if st.Loading {
		return Decision{Kind: Pending}
	}
	if st.User == nil {
		loc := req.RedirectTo
		if loc == "" {
			loc = RouteLogin
		}
		return Decision{Kind: Redirect, Location: loc, From: requested}
	}
	if req.Role != "" && !st.User.HasRole(req.Role) {
		return Decision{Kind: Denied, Reason: ReasonAccessDenied}
	}
	if len(req.Permissions) > 0 {
		ok := false
		for _, perm := range req.Permissions {
			if st.User.HasPermission(perm) {
				ok = true
				break
			}
		}
		if !ok {
			return Decision{Kind: Denied, Reason: ReasonInsufficientPermissions}
		}
	}
	return Decision{Kind: Allow}
}

// RedirectIfAuthenticated evaluates an auth page (login, signup, reset).
// A signed-in visitor is sent to their role landing; everyone else may
// stay.
func RedirectIfAuthenticated(st session.AuthState) Decision {
	if st.Loading {
		return Decision{Kind: Pending}
	}
	if st.User == nil {
		return Decision{Kind: Allow}
	}
	return Decision{Kind: Redirect, Location: RoleLanding(st.User.Role())}
}

// RoleLanding is where an already signed-in visitor lands when they hit
// an auth page.
func RoleLanding(role profile.Role) string {
	switch role {
	case profile.RoleAdmin:
		return RouteAdminDashboard
	case profile.RoleVolunteer:
		return RouteVolunteerDashboard
	default:
		return RouteDashboard
	}
}

// DashboardRoute dispatches the generic dashboard to the role-specific
// one. Donors, and users with no recognized role, get the donor view.
func DashboardRoute(role profile.Role) string {
	switch role {
	case profile.RoleAdmin:
		return RouteAdminDashboard
	case profile.RoleVolunteer:
		return RouteVolunteerDashboard
	default:
		return RouteDonorDashboard
	}
}

// RedirectTarget renders a Decision's redirect location, attaching the
// originally requested path as a from query parameter.
func RedirectTarget(d Decision) string {
	if d.From == "" {
		return d.Location
	}
	return d.Location + "?from=" + url.QueryEscape(d.From)
}
