package shared

import (
	"context"

	"github.com/google/uuid"
)

// Identity describes the authenticated caller as proven by a bearer token.
type Identity struct {
	AccountID         uuid.UUID
	Email             string
	Roles             []string
	CredentialVersion int64
}

// HasRole reports whether the identity carries the given role.
func (id *Identity) HasRole(role string) bool {
	if id == nil {
		return false
	}
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type identityContextKey struct{}

// ContextWithIdentity stores the authenticated identity in context.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the authenticated identity from context.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityContextKey{}).(*Identity)
	return id
}
