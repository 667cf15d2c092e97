package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/robertarktes/eventhub/internal/domain"
)

// Identity is the verified caller attached to a request.
type Identity struct {
	UserID uuid.UUID
	Role   domain.Role
	Email  string
}

func (id *Identity) HasRole(roles ...domain.Role) bool {
	if id == nil {
		return false
	}
	for _, r := range roles {
		if id.Role == r {
			return true
		}
	}
	return false
}

// Policy guards the admin role: an admin claim is only honored for the
// configured admin address, anything else is downgraded to a plain user.
type Policy struct {
	AdminEmail string
}

func (p Policy) Apply(id Identity) Identity {
	if id.Role != domain.RoleAdmin {
		return id
	}
	if p.AdminEmail == "" || !strings.EqualFold(strings.TrimSpace(id.Email), p.AdminEmail) {
		id.Role = domain.RoleUser
	}
	return id
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}
