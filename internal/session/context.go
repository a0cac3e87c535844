package session

import (
	"context"
	"strings"
)

type ctxKey string

const (
	userIDKey ctxKey = "session_user_id"
	roleKey   ctxKey = "session_role"
	permsKey  ctxKey = "session_permissions"
)

// ContextWithUser stores the authenticated identity in the context.
func ContextWithUser(ctx context.Context, userID, role string, permissions []string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, strings.TrimSpace(userID))
	role = strings.TrimSpace(strings.ToLower(role))
	if role != "" {
		ctx = context.WithValue(ctx, roleKey, role)
	}
	if len(permissions) > 0 {
		ctx = context.WithValue(ctx, permsKey, dedupePermissions(permissions))
	}
	return ctx
}

// UserIDFromContext extracts the authenticated user ID from context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey).(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// RoleFromContext returns the role stored in context, if any.
func RoleFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(roleKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// PermissionsFromContext returns the permissions stored in context.
func PermissionsFromContext(ctx context.Context) []string {
	v, ok := ctx.Value(permsKey).([]string)
	if !ok || len(v) == 0 {
		return nil
	}
	out := make([]string, len(v))
	copy(out, v)
	return out
}
