package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/bjaksic84/rentmate-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID      contextKey = "user_id"
	ctxRole        contextKey = "actor_role"
	ctxDisplayName contextKey = "display_name"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID      uuid.UUID
	Role        enums.UserRole
	DisplayName string
}

// IsAdmin reports whether the caller holds the administrator role.
func (i Identity) IsAdmin() bool {
	return i.Role == enums.UserRoleAdmin
}

// WithIdentity stores the caller on ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, id.UserID)
	ctx = context.WithValue(ctx, ctxRole, id.Role)
	return context.WithValue(ctx, ctxDisplayName, id.DisplayName)
}

// IdentityFromContext returns the caller, if the request was authenticated.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	userID, ok := ctx.Value(ctxUserID).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return Identity{}, false
	}
	role, _ := ctx.Value(ctxRole).(enums.UserRole)
	name, _ := ctx.Value(ctxDisplayName).(string)
	return Identity{UserID: userID, Role: role, DisplayName: name}, true
}

// UserIDFromContext returns the caller's id or uuid.Nil.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := IdentityFromContext(ctx)
	return id.UserID
}

// RoleFromContext returns the caller's role or the empty role.
func RoleFromContext(ctx context.Context) enums.UserRole {
	id, _ := IdentityFromContext(ctx)
	return id.Role
}
