// Package identity wraps the remote auth/identity service behind a narrow
// typed interface: accounts, email sessions and password recovery. The
// service itself is an external collaborator; any compatible provider
// satisfies Service.
package identity

import (
	"context"
	"time"
)

// User is the identity-service account record. The client never mutates it
// except through the Service operations.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// Session is the opaque handle for one authenticated context. Token is the
// only part callers need; expiry is enforced by the service.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service is the identity-service boundary.
type Service interface {
	// CreateAccount registers a new account.
	CreateAccount(ctx context.Context, email, password, name string) (User, error)
	// CreateSession authenticates credentials and opens a session.
	CreateSession(ctx context.Context, email, password string) (Session, error)
	// CurrentUser resolves the session to its account. A missing or dead
	// session yields ErrNoSession, not a transport failure.
	CurrentUser(ctx context.Context, session string) (User, error)
	// DeleteSession ends the session. Callers treat failure as non-fatal.
	DeleteSession(ctx context.Context, session string) error
	// RequestRecovery sends a recovery link for the account.
	RequestRecovery(ctx context.Context, email, redirectURL string) error
	// CompleteRecovery sets a new password using the recovery secret.
	// Mismatch and minimum-length are checked before the wire.
	CompleteRecovery(ctx context.Context, userID, secret, newPassword, confirmPassword string) error
	// RequestVerification sends a verify-your-email link for the session.
	RequestVerification(ctx context.Context, session, redirectURL string) error
}

// checkRecoveryInput runs the client-side checks shared by every Service
// implementation before CompleteRecovery touches the service.
func checkRecoveryInput(newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return &Error{Kind: KindPasswordMismatch, Message: "Passwords do not match"}
	}
	if len(newPassword) < 8 {
		return &Error{Kind: KindPasswordTooShort, Message: "Password must be at least 8 characters long"}
	}
	return nil
}
