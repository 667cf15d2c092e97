package auth

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/robertarktes/eventhub/internal/domain"
)

type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
	policy Policy
}

func NewVerifier(secret string, policy Policy) *Verifier {
	return &Verifier{secret: []byte(secret), policy: policy}
}

// Parse verifies an HS256 token and returns the caller it names, with the
// admin policy already applied.
func (v *Verifier) Parse(raw string) (*Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, domain.Errorf(domain.ErrUnauthenticated, "Not authorized, no token")
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, errors.WithSecondaryError(domain.Errorf(domain.ErrUnauthenticated, "Not authorized, token failed"), err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, domain.Errorf(domain.ErrUnauthenticated, "Not authorized, token failed")
	}
	role := domain.Role(claims.Role)
	if !role.Valid() {
		role = domain.RoleUser
	}

	id := v.policy.Apply(Identity{UserID: userID, Role: role, Email: claims.Email})
	return &id, nil
}

func IssueToken(secret string, id Identity, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		Role:  string(id.Role),
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
