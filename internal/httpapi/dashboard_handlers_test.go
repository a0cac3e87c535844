package httpapi

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"cvowf.org/internal/profile"
	"cvowf.org/internal/session"
)

// adminToken mints an app token for a role the public signup cannot
// create.
func adminToken(t *testing.T) string {
	t.Helper()
	token, err := session.GenerateToken("admin-1", string(profile.RoleAdmin),
		profile.DefaultPermissions(profile.RoleAdmin), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return token
}

func TestDashboardRedirectsAnonymous(t *testing.T) {
	c := newTestAPI(t)

	for _, path := range []string{"/dashboard", "/admin/dashboard", "/donor/dashboard", "/volunteer/dashboard"} {
		resp := c.get(path, nil, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusFound {
			t.Fatalf("%s status = %d, want 302", path, resp.StatusCode)
		}
		want := "/auth/login?from=" + url.QueryEscape(path)
		if got := resp.Header.Get("Location"); got != want {
			t.Fatalf("%s location = %q, want %q", path, got, want)
		}
	}
}

func TestDashboardDispatchByRole(t *testing.T) {
	c := newTestAPI(t)
	donor, _ := c.signup("dash-donor@example.org", "donor")
	volunteer, _ := c.signup("dash-vol@example.org", "volunteer")

	cases := []struct {
		token string
		want  string
	}{
		{donor, "/donor/dashboard"},
		{volunteer, "/volunteer/dashboard"},
		{adminToken(t), "/admin/dashboard"},
	}
	for _, tc := range cases {
		resp := c.get("/dashboard", nil, bearerHeader(tc.token))
		resp.Body.Close()
		if resp.StatusCode != http.StatusFound {
			t.Fatalf("status = %d, want 302", resp.StatusCode)
		}
		if got := resp.Header.Get("Location"); got != tc.want {
			t.Fatalf("location = %q, want %q", got, tc.want)
		}
	}
}

func TestRoleMismatchDeniedWithoutRedirect(t *testing.T) {
	c := newTestAPI(t)
	donor, _ := c.signup("denied@example.org", "donor")

	resp := c.get("/admin/dashboard", nil, bearerHeader(donor))
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
	if resp.Header.Get("Location") != "" {
		t.Fatal("denied response must not redirect")
	}
	body := decode[map[string]any](t, resp)
	if body["error"] != "access_denied" {
		t.Fatalf("error = %v", body["error"])
	}
}

func TestAdminBypassesRoleDashboards(t *testing.T) {
	c := newTestAPI(t)
	token := adminToken(t)

	for _, path := range []string{"/admin/dashboard", "/donor/dashboard", "/volunteer/dashboard"} {
		resp := c.get(path, nil, bearerHeader(token))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status = %d, want 200", path, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestDonorDashboardServesSummary(t *testing.T) {
	c := newTestAPI(t)
	donor, _ := c.signup("summary@example.org", "donor")

	resp := c.get("/donor/dashboard", nil, bearerHeader(donor))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	summary, ok := body["summary"].(map[string]any)
	if !ok {
		t.Fatalf("summary = %v", body["summary"])
	}
	if summary["total_donations"] != float64(4) {
		t.Fatalf("total_donations = %v", summary["total_donations"])
	}
}

func TestAuthPagesBounceSignedInVisitors(t *testing.T) {
	c := newTestAPI(t)

	// Anonymous visitors may stay.
	resp := c.get("/auth/login", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("anonymous status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	// A stale token also means signed out.
	resp = c.get("/auth/login", nil, bearerHeader("garbage"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stale token status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	donor, _ := c.signup("bounce@example.org", "donor")
	cases := []struct {
		token string
		want  string
	}{
		{donor, "/dashboard"},
		{adminToken(t), "/admin/dashboard"},
	}
	for _, tc := range cases {
		for _, page := range []string{"/auth/login", "/auth/signup", "/auth/reset-password"} {
			resp := c.get(page, nil, bearerHeader(tc.token))
			resp.Body.Close()
			if resp.StatusCode != http.StatusFound {
				t.Fatalf("%s status = %d, want 302", page, resp.StatusCode)
			}
			if got := resp.Header.Get("Location"); got != tc.want {
				t.Fatalf("%s location = %q, want %q", page, got, tc.want)
			}
		}
	}
}
