// Package session coordinates the identity service and the profile store
// into one authenticated-user state machine, and issues the app JWTs the
// HTTP layer uses to carry that state between requests.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"cvowf.org/internal/identity"
	"cvowf.org/internal/obs"
	"cvowf.org/internal/profile"
)

// ErrOperationInFlight is returned when a mutating auth operation starts
// while another one is still running. Callers retry after the first
// operation settles.
var ErrOperationInFlight = errors.New("session: auth operation already in flight")

// ErrNotAuthenticated is returned by operations that need a signed-in user.
var ErrNotAuthenticated = errors.New("session: not authenticated")

// AuthUser is the merged view of an identity-service account and its
// profile document. Profile is nil when the profile fetch failed or the
// document does not exist yet.
type AuthUser struct {
	identity.User
	Profile *profile.Profile
	Session string
}

// Role returns the profile role, or empty when no profile is attached.
func (u *AuthUser) Role() profile.Role {
	if u == nil || u.Profile == nil {
		return ""
	}
	return u.Profile.Role
}

// HasRole reports whether the user holds the role. Admins pass every
// role check.
func (u *AuthUser) HasRole(role profile.Role) bool {
	if u == nil || u.Profile == nil {
		return false
	}
	return u.Profile.Role == role || u.Profile.Role == profile.RoleAdmin
}

// HasPermission reports whether the user holds the permission. The admin
// role, and the literal "admin" permission, grant everything.
func (u *AuthUser) HasPermission(perm string) bool {
	if u == nil || u.Profile == nil {
		return false
	}
	if u.Profile.Role == profile.RoleAdmin {
		return true
	}
	for _, p := range u.Profile.Permissions {
		if p == "admin" || p == perm {
			return true
		}
	}
	return false
}

// AuthState is a point-in-time snapshot of the manager. Loading is true
// until Bootstrap has settled; Err holds the failure of the last
// operation, if any.
type AuthState struct {
	User    *AuthUser
	Loading bool
	Err     error
}

// Authenticated reports whether a settled, signed-in user is present.
func (s AuthState) Authenticated() bool {
	return !s.Loading && s.User != nil
}

// RegisterInput carries a sign-up request. Fields arrive already
// sanitized and validated by the form layer.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Phone     string
	Role      profile.Role
}

// RegisterResult reports the outcome of a successful registration.
// VerificationSent is false when the verification email could not be
// requested; the account itself is still created.
type RegisterResult struct {
	User             *AuthUser
	VerificationSent bool
}

// Manager owns the authenticated-user state. All dependencies are
// injected; construct one per server, not per request.
type Manager struct {
	identity identity.Service
	profiles profile.Store

	verifyURL   string
	recoveryURL string

	mu           sync.Mutex
	state        AuthState
	inFlight     bool
	bootstrapped bool
	initial      string
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithInitialSession seeds the session token Bootstrap resolves, for
// resuming a persisted session.
func WithInitialSession(token string) ManagerOption {
	return func(m *Manager) { m.initial = token }
}

// WithVerificationURL sets the landing URL embedded in verification emails.
func WithVerificationURL(u string) ManagerOption {
	return func(m *Manager) { m.verifyURL = u }
}

// WithRecoveryURL sets the landing URL embedded in password reset emails.
func WithRecoveryURL(u string) ManagerOption {
	return func(m *Manager) { m.recoveryURL = u }
}

// NewManager builds a Manager over the given identity service and
// profile store.
func NewManager(id identity.Service, profiles profile.Store, opts ...ManagerOption) (*Manager, error) {
	if id == nil {
		return nil, errors.New("session: identity service is required")
	}
	if profiles == nil {
		return nil, errors.New("session: profile store is required")
	}
	m := &Manager{
		identity:    id,
		profiles:    profiles,
		verifyURL:   "https://cvowf.org/auth/verify-email",
		recoveryURL: "https://cvowf.org/auth/reset-password",
		state:       AuthState{Loading: true},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// State returns the current snapshot.
func (m *Manager) State() AuthState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsAuthenticated reports whether a settled, signed-in user is present.
func (m *Manager) IsAuthenticated() bool {
	return m.State().Authenticated()
}

// Bootstrap resolves the initial session, if any, and settles the Loading
// state. It runs at most once; later calls return the settled state.
func (m *Manager) Bootstrap(ctx context.Context) AuthState {
	m.mu.Lock()
	if m.bootstrapped {
		st := m.state
		m.mu.Unlock()
		return st
	}
	m.bootstrapped = true
	token := m.initial
	m.mu.Unlock()

	var user *AuthUser
	if token != "" {
		u, err := m.loadUser(ctx, token)
		switch {
		case err == nil:
			user = u
		case errors.Is(err, identity.ErrNoSession):
			// Stale persisted session, start signed out.
		default:
			obs.LogEntry(map[string]any{
				"level": "warn", "msg": "session bootstrap failed", "error": err.Error(),
			})
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = AuthState{User: user}
	return m.state
}

// Login authenticates credentials and merges the profile document into
// the resulting user.
func (m *Manager) Login(ctx context.Context, email, password string) (*AuthUser, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	defer m.end()

	sess, err := m.identity.CreateSession(ctx, email, password)
	if err != nil {
		m.fail(err)
		return nil, err
	}
	user, err := m.loadUser(ctx, sess.Token)
	if err != nil {
		m.fail(err)
		return nil, err
	}
	m.settle(user)
	return user, nil
}

// Register creates the account, opens a session, writes the profile
// document and requests a verification email. Verification failure does
// not fail the registration.
func (m *Manager) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	if in.Role != profile.RoleDonor && in.Role != profile.RoleVolunteer {
		return RegisterResult{}, fmt.Errorf("%w: %s", profile.ErrInvalidRole, in.Role)
	}
	if err := m.begin(); err != nil {
		return RegisterResult{}, err
	}
	defer m.end()

	name := strings.TrimSpace(in.FirstName + " " + in.LastName)
	acct, err := m.identity.CreateAccount(ctx, in.Email, in.Password, name)
	if err != nil {
		m.fail(err)
		return RegisterResult{}, err
	}
	sess, err := m.identity.CreateSession(ctx, in.Email, in.Password)
	if err != nil {
		m.fail(err)
		return RegisterResult{}, err
	}

	now := time.Now().UTC()
	doc := &profile.Profile{
		UserID:      acct.ID,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Email:       acct.Email,
		Phone:       in.Phone,
		Role:        in.Role,
		Permissions: profile.DefaultPermissions(in.Role),
		Status:      profile.StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.profiles.Create(ctx, doc); err != nil {
		m.fail(err)
		return RegisterResult{}, fmt.Errorf("create profile: %w", err)
	}

	verified := true
	if err := m.identity.RequestVerification(ctx, sess.Token, m.verifyURL); err != nil {
		verified = false
		obs.LogEntry(map[string]any{
			"level": "warn", "msg": "verification email failed",
			"user_id": acct.ID, "error": err.Error(),
		})
	}

	// Re-fetch through the same merge path login uses, so the state holds
	// whatever the stores actually persisted.
	user, err := m.loadUser(ctx, sess.Token)
	if err != nil {
		m.fail(err)
		return RegisterResult{}, err
	}
	m.settle(user)
	return RegisterResult{User: user, VerificationSent: verified}, nil
}

// Logout deletes the remote session best-effort and clears local state
// unconditionally.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	m.mu.Lock()
	var token string
	if m.state.User != nil {
		token = m.state.User.Session
	}
	m.mu.Unlock()

	var deleteErr error
	if token != "" {
		if err := m.identity.DeleteSession(ctx, token); err != nil {
			deleteErr = err
			obs.LogEntry(map[string]any{
				"level": "warn", "msg": "remote session delete failed", "error": err.Error(),
			})
		}
	}
	m.settle(nil)
	return deleteErr
}

// ResetPassword requests a recovery email for the address.
func (m *Manager) ResetPassword(ctx context.Context, email string) error {
	return m.identity.RequestRecovery(ctx, email, m.recoveryURL)
}

// UpdatePassword completes a recovery started by ResetPassword using the
// userID and secret from the emailed link.
func (m *Manager) UpdatePassword(ctx context.Context, userID, secret, newPassword, confirmPassword string) error {
	return m.identity.CompleteRecovery(ctx, userID, secret, newPassword, confirmPassword)
}

// EndSession deletes a remote identity session issued to another client.
// Manager state is untouched.
func (m *Manager) EndSession(ctx context.Context, token string) error {
	return m.identity.DeleteSession(ctx, token)
}

// ResendVerification requests another verification email for the session.
func (m *Manager) ResendVerification(ctx context.Context, token string) error {
	return m.identity.RequestVerification(ctx, token, m.verifyURL)
}

// Resolve resolves a session token into a merged user without touching
// manager state. The HTTP layer uses it to authenticate requests.
func (m *Manager) Resolve(ctx context.Context, token string) (*AuthUser, error) {
	return m.loadUser(ctx, token)
}

// loadUser fetches the account for the session and merges its profile.
// A failed profile fetch degrades to a nil profile rather than failing
// the whole resolution.
func (m *Manager) loadUser(ctx context.Context, token string) (*AuthUser, error) {
	acct, err := m.identity.CurrentUser(ctx, token)
	if err != nil {
		return nil, err
	}
	doc, err := m.profiles.Get(ctx, acct.ID)
	if err != nil {
		if !errors.Is(err, profile.ErrNotFound) {
			obs.LogEntry(map[string]any{
				"level": "warn", "msg": "profile fetch failed",
				"user_id": acct.ID, "error": err.Error(),
			})
		}
		doc = nil
	}
	return &AuthUser{User: acct, Profile: doc, Session: token}, nil
}

// begin marks a mutating operation in flight. Loading goes up so guards
// suppress routing until the operation settles or fails.
func (m *Manager) begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inFlight {
		return ErrOperationInFlight
	}
	m.inFlight = true
	m.state.Loading = true
	return nil
}

func (m *Manager) end() {
	m.mu.Lock()
	m.inFlight = false
	m.state.Loading = false
	m.mu.Unlock()
}

func (m *Manager) settle(user *AuthUser) {
	m.mu.Lock()
	m.state = AuthState{User: user}
	m.mu.Unlock()
}

func (m *Manager) fail(err error) {
	m.mu.Lock()
	m.state = AuthState{User: m.state.User, Err: err}
	m.mu.Unlock()
}
