package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"cvowf.org/internal/ids"
)

const memorySessionTTL = 24 * time.Hour

type memoryAccount struct {
	user User
	hash []byte
}

// Memory is an in-process Service used in development and tests. Sessions
// and recovery secrets live only for the process lifetime.
type Memory struct {
	mu        sync.Mutex
	now       func() time.Time
	accounts  map[string]*memoryAccount // keyed by lowercase email
	sessions  map[string]Session        // keyed by token
	recovered map[string]string         // userID -> latest recovery secret
}

// MemoryOption customizes a Memory service.
type MemoryOption func(*Memory)

// WithClock injects the time source, mainly for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		now:       time.Now,
		accounts:  make(map[string]*memoryAccount),
		sessions:  make(map[string]Session),
		recovered: make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) CreateAccount(ctx context.Context, email, password, name string) (User, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(key, "@") {
		return User{}, normalize(400, "invalid email")
	}
	if len(password) < 8 {
		return User{}, normalize(400, "invalid password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[key]; ok {
		return User{}, normalize(409, "account already exists")
	}
	u := User{
		ID:        ids.New(),
		Email:     key,
		Name:      name,
		CreatedAt: m.now().UTC(),
	}
	m.accounts[key] = &memoryAccount{user: u, hash: hash}
	return u, nil
}

func (m *Memory) CreateSession(ctx context.Context, email, password string) (Session, error) {
	key := strings.ToLower(strings.TrimSpace(email))

	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[key]
	if !ok {
		return Session{}, normalize(401, "invalid credentials")
	}
	if bcrypt.CompareHashAndPassword(acct.hash, []byte(password)) != nil {
		return Session{}, normalize(401, "invalid credentials")
	}
	s := Session{
		Token:     ids.New(),
		UserID:    acct.user.ID,
		ExpiresAt: m.now().UTC().Add(memorySessionTTL),
	}
	m.sessions[s.Token] = s
	return s, nil
}

func (m *Memory) CurrentUser(ctx context.Context, session string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[session]
	if !ok || m.now().After(s.ExpiresAt) {
		return User{}, ErrNoSession
	}
	for _, acct := range m.accounts {
		if acct.user.ID == s.UserID {
			return acct.user, nil
		}
	}
	return User{}, ErrNoSession
}

func (m *Memory) DeleteSession(ctx context.Context, session string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, session)
	return nil
}

func (m *Memory) RequestRecovery(ctx context.Context, email, redirectURL string) error {
	key := strings.ToLower(strings.TrimSpace(email))

	m.mu.Lock()
	defer m.mu.Unlock()
	// Unknown emails succeed silently so the endpoint does not leak
	// which addresses have accounts.
	if acct, ok := m.accounts[key]; ok {
		m.recovered[acct.user.ID] = ids.New()
	}
	return nil
}

// RecoverySecret exposes the last secret issued for a user. Test hook.
func (m *Memory) RecoverySecret(userID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recovered[userID]
}

func (m *Memory) CompleteRecovery(ctx context.Context, userID, secret, newPassword, confirmPassword string) error {
	if err := checkRecoveryInput(newPassword, confirmPassword); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	want, ok := m.recovered[userID]
	if !ok || secret == "" || secret != want {
		return normalize(401, "invalid recovery secret")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	for _, acct := range m.accounts {
		if acct.user.ID == userID {
			acct.hash = hash
			delete(m.recovered, userID)
			return nil
		}
	}
	return normalize(401, "invalid recovery secret")
}

func (m *Memory) RequestVerification(ctx context.Context, session, redirectURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[session]
	if !ok {
		return ErrNoSession
	}
	for _, acct := range m.accounts {
		if acct.user.ID == s.UserID {
			acct.user.EmailVerified = true
			return nil
		}
	}
	return ErrNoSession
}

var _ Service = (*Memory)(nil)
