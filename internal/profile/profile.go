// Package profile holds the per-user profile document: role, capability
// tokens and contact fields keyed by the identity-service user id.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("profile: not found")
	ErrAlreadyExists = errors.New("profile: already exists")
	ErrInvalidRole   = errors.New("profile: invalid role")
)

// Role is a single tag from a closed set. Admin implicitly satisfies every
// role and permission check.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleDonor     Role = "donor"
	RoleVolunteer Role = "volunteer"
	RoleViewer    Role = "viewer"
)

// ParseRole validates a role tag at the service boundary so typos fail
// fast instead of silently denying access.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.TrimSpace(strings.ToLower(s))); r {
	case RoleAdmin, RoleDonor, RoleVolunteer, RoleViewer:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

func (r Role) String() string { return string(r) }

// Valid reports membership in the closed role set.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

var defaultPermissions = map[Role][]string{
	RoleAdmin:     {"admin", "create", "update", "delete", "read"},
	RoleDonor:     {"donate", "read_own_profile", "update_own_profile"},
	RoleVolunteer: {"volunteer", "read_programs", "update_own_profile"},
	RoleViewer:    {"read_public"},
}

// DefaultPermissions returns the capability tokens granted to a role at
// registration. Unknown roles fall back to the viewer set.
func DefaultPermissions(role Role) []string {
	perms, ok := defaultPermissions[role]
	if !ok {
		perms = defaultPermissions[RoleViewer]
	}
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

const StatusActive = "active"

// Profile is the document stored per user. Created once at registration,
// read on every session bootstrap and login, never deleted by this layer.
type Profile struct {
	UserID        string    `json:"user_id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
	Role          Role      `json:"role"`
	Permissions   []string  `json:"permissions"`
	Status        string    `json:"status"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HasPermission reports whether the profile carries the capability token.
// It does not apply the admin bypass; that lives with the session layer.
func (p *Profile) HasPermission(perm string) bool {
	if p == nil {
		return false
	}
	for _, t := range p.Permissions {
		if t == perm {
			return true
		}
	}
	return false
}

// Store describes persistence for profile documents.
type Store interface {
	Create(ctx context.Context, p *Profile) error
	Get(ctx context.Context, userID string) (*Profile, error)
}
