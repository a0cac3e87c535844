package httpapi

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
)

func TestSignupAndLoginFlow(t *testing.T) {
	c := newTestAPI(t)
	c.signup("flow@example.org", "donor")

	resp := c.post("/v1/auth/login", map[string]any{
		"email":    "flow@example.org",
		"password": "Hunter2hunter2",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["token"] == "" || body["session"] == "" {
		t.Fatal("login returned empty tokens")
	}
	user, ok := body["user"].(map[string]any)
	if !ok {
		t.Fatalf("user = %v", body["user"])
	}
	prof, ok := user["profile"].(map[string]any)
	if !ok {
		t.Fatalf("profile = %v", user["profile"])
	}
	if prof["role"] != "donor" {
		t.Fatalf("role = %v", prof["role"])
	}
}

func TestLoginEchoesFrom(t *testing.T) {
	c := newTestAPI(t)
	c.signup("bounced@example.org", "donor")

	resp := c.post("/v1/auth/login?from=%2Fdonor%2Fdashboard", map[string]any{
		"email":    "bounced@example.org",
		"password": "Hunter2hunter2",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["from"] != "/donor/dashboard" {
		t.Fatalf("from = %v", body["from"])
	}
}

func TestPasswordWithMarkupCharactersRoundTrips(t *testing.T) {
	// Sanitization covers stored and echoed fields only. A password holding
	// characters the sanitizer would rewrite must verify unchanged.
	c := newTestAPI(t)
	password := `Qu'ote<&>Sl/ash1`

	resp := c.post("/v1/auth/signup", map[string]any{
		"first_name":       "Pat",
		"last_name":        "Quill",
		"email":            "quill@example.org",
		"password":         password,
		"confirm_password": password,
		"role":             "donor",
		"agree_to_terms":   true,
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = c.post("/v1/auth/login", map[string]any{
		"email":    "quill@example.org",
		"password": password,
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSignupValidation(t *testing.T) {
	c := newTestAPI(t)

	resp := c.post("/v1/auth/signup", map[string]any{
		"first_name":       "A1",
		"last_name":        "",
		"email":            "not-an-email",
		"password":         "short",
		"confirm_password": "different",
		"role":             "admin",
		"agree_to_terms":   false,
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	fields, ok := body["fields"].(map[string]any)
	if !ok {
		t.Fatalf("fields = %v", body["fields"])
	}
	want := map[string]string{
		"first_name":       "First name contains invalid characters",
		"last_name":        "Last name is required",
		"email":            "Please enter a valid email address",
		"password":         "Password must be at least 8 characters long",
		"confirm_password": "Passwords do not match",
		"agree_to_terms":   "You must accept the Terms of Service and Privacy Policy",
	}
	for field, msg := range want {
		if fields[field] != msg {
			t.Fatalf("fields[%q] = %v, want %q", field, fields[field], msg)
		}
	}
	if fields["role"] == nil || fields["role"] == "" {
		t.Fatal("expected role error for admin signup")
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	c := newTestAPI(t)
	c.signup("dup@example.org", "volunteer")

	resp := c.post("/v1/auth/signup", map[string]any{
		"first_name":       "Test",
		"last_name":        "User",
		"email":            "dup@example.org",
		"password":         "Hunter2hunter2",
		"confirm_password": "Hunter2hunter2",
		"role":             "volunteer",
		"agree_to_terms":   true,
	}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["error"] != "An account with this email already exists" {
		t.Fatalf("error = %v", body["error"])
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	c := newTestAPI(t)
	c.signup("wrongpw@example.org", "donor")

	resp := c.post("/v1/auth/login", map[string]any{
		"email":    "wrongpw@example.org",
		"password": "not-the-password",
	}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["error"] != "Invalid email or password" {
		t.Fatalf("error = %v", body["error"])
	}
}

func TestLoginThrottleBlocksSixthAttempt(t *testing.T) {
	c := newTestAPI(t)
	c.signup("busy@example.org", "donor")
	baseline := c.identity.sessions.Load()

	for i := 0; i < 5; i++ {
		resp := c.post("/v1/auth/login", map[string]any{
			"email":    "busy@example.org",
			"password": "wrong-password",
		}, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d, want 401", i+1, resp.StatusCode)
		}
		resp.Body.Close()
	}
	if got := c.identity.sessions.Load() - baseline; got != 5 {
		t.Fatalf("identity credential checks = %d, want 5", got)
	}

	// The sixth attempt is stopped by the throttle alone, even with the
	// right password.
	resp := c.post("/v1/auth/login", map[string]any{
		"email":    "busy@example.org",
		"password": "Hunter2hunter2",
	}, nil)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
	body := decode[map[string]any](t, resp)
	msg, _ := body["error"].(string)
	if !strings.HasPrefix(msg, "Too many login attempts. Please try again after ") {
		t.Fatalf("error = %q", msg)
	}
	if got := c.identity.sessions.Load() - baseline; got != 5 {
		t.Fatalf("blocked attempt reached identity service, checks = %d", got)
	}

	// Other accounts are unaffected.
	c.signup("other@example.org", "donor")
	resp = c.post("/v1/auth/login", map[string]any{
		"email":    "other@example.org",
		"password": "Hunter2hunter2",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("other account login status = %d", resp.StatusCode)
	}
}

func TestLoginThrottleCountsInvalidSubmissions(t *testing.T) {
	c := newTestAPI(t)
	c.signup("sloppy@example.org", "donor")

	// Invalid submissions run through the throttle before validation,
	// so they consume attempts too.
	for i := 0; i < 5; i++ {
		resp := c.post("/v1/auth/login", map[string]any{
			"email":    "sloppy@example.org",
			"password": "",
		}, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("attempt %d status = %d, want 400", i+1, resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp := c.post("/v1/auth/login", map[string]any{
		"email":    "sloppy@example.org",
		"password": "Hunter2hunter2",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
}

func TestLogoutClearsRemoteSession(t *testing.T) {
	c := newTestAPI(t)
	token, sess := c.signup("bye@example.org", "donor")

	resp := c.post("/v1/auth/logout", nil, map[string]string{
		"Authorization": "Bearer " + token,
		"X-Session":     sess,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	// The identity session is gone.
	resp = c.get("/v1/auth/me", nil, map[string]string{
		"Authorization": "Bearer " + token,
		"X-Session":     sess,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("me after logout status = %d, want 401", resp.StatusCode)
	}
}

func TestMeFromTokenClaims(t *testing.T) {
	c := newTestAPI(t)
	token, _ := c.signup("claims@example.org", "volunteer")

	resp := c.get("/v1/auth/me", nil, bearerHeader(token))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	prof, ok := body["profile"].(map[string]any)
	if !ok {
		t.Fatalf("profile = %v", body["profile"])
	}
	if prof["role"] != "volunteer" {
		t.Fatalf("role = %v", prof["role"])
	}
}

func TestResetPasswordFlow(t *testing.T) {
	c := newTestAPI(t)
	token, _ := c.signup("forgot@example.org", "donor")

	resp := c.post("/v1/auth/reset-password", map[string]any{
		"email": "forgot@example.org",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("request status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Dig the issued secret out of the in-process identity service the
	// way the emailed link would carry it.
	var userID string
	me := c.get("/v1/auth/me", nil, bearerHeader(token))
	body := decode[map[string]any](t, me)
	userID, _ = body["id"].(string)
	if userID == "" {
		t.Fatal("no user id")
	}
	secret := c.mem.RecoverySecret(userID)
	if secret == "" {
		t.Fatal("no recovery secret issued")
	}

	params := url.Values{"userId": {userID}, "secret": {secret}}
	resp = c.post("/v1/auth/reset-password?"+params.Encode(), map[string]any{
		"password":         "Brandnewpass1",
		"confirm_password": "Mismatch1",
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("mismatch status = %d, want 400", resp.StatusCode)
	}
	errBody := decode[map[string]any](t, resp)
	if errBody["error"] != "Passwords do not match" {
		t.Fatalf("error = %v", errBody["error"])
	}

	resp = c.post("/v1/auth/reset-password?"+params.Encode(), map[string]any{
		"password":         "Brandnewpass1",
		"confirm_password": "Brandnewpass1",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("complete status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = c.post("/v1/auth/login", map[string]any{
		"email":    "forgot@example.org",
		"password": "Brandnewpass1",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login with new password status = %d", resp.StatusCode)
	}
}

func TestResetPasswordRequestValidatesEmail(t *testing.T) {
	c := newTestAPI(t)

	resp := c.post("/v1/auth/reset-password", map[string]any{
		"email": "nonsense",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}
