package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cvowf.org/internal/audit"
	"cvowf.org/internal/identity"
	"cvowf.org/internal/obs"
	"cvowf.org/internal/profile"
	"cvowf.org/internal/ratelimit"
	"cvowf.org/internal/session"
	"cvowf.org/internal/validate"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Role            string `json:"role"`
	AgreeToTerms    bool   `json:"agree_to_terms"`
}

type userResponse struct {
	ID            string           `json:"id"`
	Email         string           `json:"email"`
	Name          string           `json:"name"`
	EmailVerified bool             `json:"email_verified"`
	Profile       *profile.Profile `json:"profile,omitempty"`
}

type authResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	Session   string       `json:"session"`
	User      userResponse `json:"user"`
}

const termsError = "You must accept the Terms of Service and Privacy Policy"

func toUserResponse(u *session.AuthUser) userResponse {
	return userResponse{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		EmailVerified: u.EmailVerified,
		Profile:       u.Profile,
	}
}

func (a *API) issueToken(w http.ResponseWriter, r *http.Request, u *session.AuthUser, code int, extra map[string]any) {
	var perms []string
	if u.Profile != nil {
		perms = u.Profile.Permissions
	}
	token, err := session.GenerateToken(u.ID, string(u.Role()), perms, a.opts.SessionTTL)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token generation failed")
		return
	}
	resp := map[string]any{
		"token":      token,
		"expires_at": time.Now().UTC().Add(a.opts.SessionTTL),
		"session":    u.Session,
		"user":       toUserResponse(u),
	}
	for k, v := range extra {
		resp[k] = v
	}
	writeJSON(w, code, resp)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	email := validate.Sanitize(strings.TrimSpace(req.Email))

	// The throttle runs before validation so repeated invalid
	// submissions still consume attempts.
	res := a.limiter.Check(ratelimit.LoginKey(email))
	if !res.Allowed {
		obs.IncThrottled("login")
		_ = audit.LogEvent(r.Context(), "auth.throttled", map[string]any{
			"action": "login", "email": email,
		})
		retry := int(time.Until(res.ResetTime).Seconds())
		if retry < 1 {
			retry = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		writeError(w, r, http.StatusTooManyRequests,
			"Too many login attempts. Please try again after "+res.ResetTime.Format("15:04:05"))
		return
	}

	fields := map[string]string{}
	if msg := validate.Email(email); msg != "" {
		fields["email"] = msg
	}
	if strings.TrimSpace(req.Password) == "" {
		fields["password"] = "Password is required"
	}
	if len(fields) > 0 {
		writeFieldErrors(w, r, fields)
		return
	}

	user, err := a.manager.Login(r.Context(), email, req.Password)
	if err != nil {
		obs.IncLogin("failure")
		_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
			"outcome": "failure", "email": email,
		})
		writeIdentityError(w, r, err)
		return
	}

	obs.IncLogin("success")
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"outcome": "success", "user_id": user.ID,
	})
	extra := map[string]any{
		"attempts_left": res.AttemptsLeft,
	}
	// A guard that bounced the client here passes the original path along
	// so it can resume after login.
	if from := r.URL.Query().Get("from"); from != "" {
		extra["from"] = from
	}
	a.issueToken(w, r, user, http.StatusOK, extra)
}

func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.FirstName = validate.Sanitize(strings.TrimSpace(req.FirstName))
	req.LastName = validate.Sanitize(strings.TrimSpace(req.LastName))
	req.Email = validate.Sanitize(strings.TrimSpace(req.Email))
	req.Phone = validate.Sanitize(strings.TrimSpace(req.Phone))
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))
	if req.Role == "" {
		req.Role = string(profile.RoleDonor)
	}

	fields := map[string]string{}
	if msg := validate.Name(req.FirstName, "First name"); msg != "" {
		fields["first_name"] = msg
	}
	if msg := validate.Name(req.LastName, "Last name"); msg != "" {
		fields["last_name"] = msg
	}
	if msg := validate.Email(req.Email); msg != "" {
		fields["email"] = msg
	}
	if msg := validate.Password(req.Password); msg != "" {
		fields["password"] = msg
	}
	if msg := validate.ConfirmPassword(req.Password, req.ConfirmPassword); msg != "" {
		fields["confirm_password"] = msg
	}
	if req.Phone != "" {
		if msg := validate.Phone(req.Phone); msg != "" {
			fields["phone"] = msg
		}
	}
	if msg := validate.Role(req.Role, []string{string(profile.RoleDonor), string(profile.RoleVolunteer)}); msg != "" {
		fields["role"] = msg
	}
	if !req.AgreeToTerms {
		fields["agree_to_terms"] = termsError
	}
	if len(fields) > 0 {
		writeFieldErrors(w, r, fields)
		return
	}

	res, err := a.manager.Register(r.Context(), session.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
		Role:      profile.Role(req.Role),
	})
	if err != nil {
		obs.IncRegistration("failure")
		_ = audit.LogEvent(r.Context(), "auth.signup", map[string]any{
			"outcome": "failure", "email": req.Email,
		})
		writeIdentityError(w, r, err)
		return
	}

	obs.IncRegistration("success")
	_ = audit.LogEvent(r.Context(), "auth.signup", map[string]any{
		"outcome": "success", "user_id": res.User.ID, "role": req.Role,
	})
	a.issueToken(w, r, res.User, http.StatusCreated, map[string]any{
		"verification_sent": res.VerificationSent,
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	// The identity session travels separately from the app token; its
	// absence or staleness must not keep the client signed in.
	if token := strings.TrimSpace(r.Header.Get(sessionHeader)); token != "" {
		if err := a.manager.EndSession(r.Context(), token); err != nil {
			obs.LogEntry(map[string]any{
				"level": "warn", "msg": "remote session delete failed", "error": err.Error(),
			})
		}
	}
	_ = audit.LogEvent(r.Context(), "auth.logout", nil)
	writeJSON(w, http.StatusOK, map[string]any{"status": "signed_out"})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	// When the identity session accompanies the request, resolve a
	// fresh merged user; otherwise answer from the token claims.
	if token := strings.TrimSpace(r.Header.Get(sessionHeader)); token != "" {
		user, err := a.manager.Resolve(r.Context(), token)
		if err != nil {
			if errors.Is(err, identity.ErrNoSession) {
				writeError(w, r, http.StatusUnauthorized, "session expired")
				return
			}
			writeError(w, r, http.StatusBadGateway, "identity service unavailable")
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(user))
		return
	}

	st := stateFromContext(r)
	if st.User == nil {
		writeError(w, r, http.StatusUnauthorized, "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(st.User))
}

type recoveryRequest struct {
	Email string `json:"email"`
}

type recoveryCompleteRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// handleResetPassword serves both halves of the recovery flow. A request
// carrying userId and secret query parameters, as the emailed link does,
// completes the reset; anything else starts one.
func (a *API) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	secret := strings.TrimSpace(r.URL.Query().Get("secret"))
	if userID != "" && secret != "" {
		var req recoveryCompleteRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if err := a.manager.UpdatePassword(r.Context(), userID, secret, req.Password, req.ConfirmPassword); err != nil {
			writeIdentityError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "auth.recovery.completed", map[string]any{
			"user_id": userID,
		})
		writeJSON(w, http.StatusOK, map[string]any{"status": "password_updated"})
		return
	}

	var req recoveryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	email := validate.Sanitize(strings.TrimSpace(req.Email))
	if msg := validate.Email(email); msg != "" {
		writeFieldErrors(w, r, map[string]string{"email": msg})
		return
	}
	if err := a.manager.ResetPassword(r.Context(), email); err != nil {
		writeIdentityError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.recovery.requested", map[string]any{
		"email": email,
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "recovery_sent"})
}

func (a *API) handleVerification(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	token := strings.TrimSpace(r.Header.Get(sessionHeader))
	if token == "" {
		writeError(w, r, http.StatusBadRequest, "session header is required")
		return
	}
	if err := a.manager.ResendVerification(r.Context(), token); err != nil {
		writeIdentityError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "verification_sent"})
}

// writeIdentityError maps classified identity failures onto HTTP status
// codes, keeping the user-facing message.
func writeIdentityError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, session.ErrOperationInFlight) {
		writeError(w, r, http.StatusConflict, "another auth operation is in progress")
		return
	}
	if errors.Is(err, identity.ErrNoSession) {
		writeError(w, r, http.StatusUnauthorized, "session expired")
		return
	}
	if errors.Is(err, profile.ErrInvalidRole) {
		writeError(w, r, http.StatusBadRequest, "Please select a valid role")
		return
	}
	switch identity.KindOf(err) {
	case identity.KindDuplicateEmail:
		writeError(w, r, http.StatusConflict, identity.UserMessage(err))
	case identity.KindInvalidCredentials:
		writeError(w, r, http.StatusUnauthorized, identity.UserMessage(err))
	case identity.KindInvalidEmail, identity.KindWeakPassword,
		identity.KindPasswordMismatch, identity.KindPasswordTooShort:
		writeError(w, r, http.StatusBadRequest, identity.UserMessage(err))
	default:
		writeError(w, r, http.StatusBadGateway, identity.UserMessage(err))
	}
}
