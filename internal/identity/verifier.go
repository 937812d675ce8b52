package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/meridian-pos/meridian-access/internal/access"
)

// ErrInvalidToken indicates a token that failed signature or claim checks.
var ErrInvalidToken = errors.New("identity: invalid token")

// AuthClaims is the JWT payload minted by the identity provider. Custom
// claims written through the claims store are embedded into the token at
// issuance, so a verified token carries the caller's role and permissions.
type AuthClaims struct {
	UID         string               `json:"uid"`
	Role        string               `json:"role"`
	Permissions access.PermissionSet `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 bearer tokens issued by the identity provider.
type Verifier struct {
	secret []byte
}

// NewVerifier constructs a Verifier with the shared signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates raw, returning the decoded claim set.
func (v *Verifier) Verify(ctx context.Context, raw string) (access.Claims, error) {
	var claims AuthClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return access.Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UID == "" {
		return access.Claims{}, ErrInvalidToken
	}
	return access.Claims{
		UID:         claims.UID,
		Role:        access.Role(claims.Role),
		Permissions: claims.Permissions,
	}, nil
}

// Sign mints a token for the given claim set, valid for ttl. Used by the
// development tooling and tests; production tokens come from the identity
// provider itself.
func (v *Verifier) Sign(uid string, claims access.ClaimSet, ttl time.Duration) (string, error) {
	now := time.Now()
	payload := AuthClaims{
		UID:         uid,
		Role:        string(claims.Role),
		Permissions: claims.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   uid,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	return token.SignedString(v.secret)
}

var _ access.TokenVerifier = (*Verifier)(nil)
