package auth_test

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/eventhub/internal/auth"
	"github.com/robertarktes/eventhub/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestVerifier_RoundTrip(t *testing.T) {
	v := auth.NewVerifier(secret, auth.Policy{AdminEmail: "admin@eventhub.io"})
	want := auth.Identity{UserID: uuid.New(), Role: domain.RoleOrganizer, Email: "org@eventhub.io"}

	tok, err := auth.IssueToken(secret, want, time.Hour, time.Now())
	require.NoError(t, err)

	got, err := v.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, want, *got)
}

func TestVerifier_AdminPolicy(t *testing.T) {
	v := auth.NewVerifier(secret, auth.Policy{AdminEmail: "admin@eventhub.io"})

	tok, err := auth.IssueToken(secret, auth.Identity{UserID: uuid.New(), Role: domain.RoleAdmin, Email: "Admin@EventHub.io"}, time.Hour, time.Now())
	require.NoError(t, err)
	got, err := v.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, got.Role)

	tok, err = auth.IssueToken(secret, auth.Identity{UserID: uuid.New(), Role: domain.RoleAdmin, Email: "mallory@eventhub.io"}, time.Hour, time.Now())
	require.NoError(t, err)
	got, err = v.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, got.Role)
}

func TestVerifier_Rejects(t *testing.T) {
	v := auth.NewVerifier(secret, auth.Policy{})
	id := auth.Identity{UserID: uuid.New(), Role: domain.RoleUser}

	expired, err := auth.IssueToken(secret, id, time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	foreign, err := auth.IssueToken("other-secret", id, time.Hour, time.Now())
	require.NoError(t, err)

	for name, tok := range map[string]string{"empty": "", "garbage": "abc.def.ghi", "expired": expired, "wrong key": foreign} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Parse(tok)
			assert.True(t, errors.Is(err, domain.ErrUnauthenticated), "got %v", err)
		})
	}
}

func TestIdentity_HasRole(t *testing.T) {
	var nobody *auth.Identity
	assert.False(t, nobody.HasRole(domain.RoleUser))

	id := &auth.Identity{Role: domain.RoleOrganizer}
	assert.True(t, id.HasRole(domain.RoleAdmin, domain.RoleOrganizer))
	assert.False(t, id.HasRole(domain.RoleAdmin))
}
