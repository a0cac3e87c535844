package httpapi

import (
	"net/http"

	"cvowf.org/internal/access"
	"cvowf.org/internal/profile"
	"cvowf.org/internal/reporting"
	"cvowf.org/internal/session"
)

// renderDecision turns a guard decision into a response. It reports
// whether the caller may proceed with the page body.
func (a *API) renderDecision(w http.ResponseWriter, r *http.Request, d access.Decision) bool {
	switch d.Kind {
	case access.Allow:
		return true
	case access.Redirect:
		http.Redirect(w, r, access.RedirectTarget(d), http.StatusFound)
	case access.Denied:
		writeError(w, r, http.StatusForbidden, d.Reason)
	default:
		writeError(w, r, http.StatusServiceUnavailable, "auth state unresolved")
	}
	return false
}

// handleAuthPage serves the login, signup and reset pages. Signed-in
// visitors are bounced to their role landing.
func (a *API) handleAuthPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	st := stateFromContext(r)
	if !a.renderDecision(w, r, access.RedirectIfAuthenticated(st)) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"page": r.URL.Path,
		"from": r.URL.Query().Get("from"),
	})
}

// handleDashboardDispatch sends a signed-in visitor to their role's
// dashboard.
func (a *API) handleDashboardDispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	st := stateFromContext(r)
	if !a.renderDecision(w, r, access.Protected(st, access.RouteDashboard, access.Requirements{})) {
		return
	}
	http.Redirect(w, r, access.DashboardRoute(st.User.Role()), http.StatusFound)
}

func (a *API) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	a.handleRoleDashboard(w, r, access.RouteAdminDashboard,
		access.Requirements{Role: profile.RoleAdmin},
		func(r *http.Request, u *session.AuthUser) (reporting.Summary, error) {
			return a.reports.AdminSummary(r.Context())
		})
}

func (a *API) handleVolunteerDashboard(w http.ResponseWriter, r *http.Request) {
	a.handleRoleDashboard(w, r, access.RouteVolunteerDashboard,
		access.Requirements{Role: profile.RoleVolunteer},
		func(r *http.Request, u *session.AuthUser) (reporting.Summary, error) {
			return a.reports.VolunteerSummary(r.Context(), u.ID)
		})
}

func (a *API) handleDonorDashboard(w http.ResponseWriter, r *http.Request) {
	a.handleRoleDashboard(w, r, access.RouteDonorDashboard,
		access.Requirements{Role: profile.RoleDonor},
		func(r *http.Request, u *session.AuthUser) (reporting.Summary, error) {
			return a.reports.DonorSummary(r.Context(), u.ID)
		})
}

func (a *API) handleRoleDashboard(w http.ResponseWriter, r *http.Request, route string, req access.Requirements, fetch func(*http.Request, *session.AuthUser) (reporting.Summary, error)) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	st := stateFromContext(r)
	if !a.renderDecision(w, r, access.Protected(st, route, req)) {
		return
	}
	summary, err := fetch(r, st.User)
	if err != nil {
		writeError(w, r, http.StatusBadGateway, "reporting unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"page":    route,
		"role":    st.User.Role(),
		"summary": summary,
	})
}
