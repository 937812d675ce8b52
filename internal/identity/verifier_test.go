package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-pos/meridian-access/internal/access"
)

func TestVerifyRoundTrip(t *testing.T) {
	v := NewVerifier("secret-1")
	perms, err := access.DefaultsFor(access.RoleCashier)
	require.NoError(t, err)

	token, err := v.Sign("u1", access.ClaimSet{Role: access.RoleCashier, Permissions: perms}, time.Hour)
	require.NoError(t, err)

	claims, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UID)
	assert.Equal(t, access.RoleCashier, claims.Role)
	assert.Equal(t, perms, claims.Permissions)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewVerifier("secret-1").Sign("u1", access.ClaimSet{Role: access.RoleUser}, time.Hour)
	require.NoError(t, err)

	_, err = NewVerifier("secret-2").Verify(context.Background(), token)
	assert.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	v := NewVerifier("secret-1")
	token, err := v.Sign("u1", access.ClaimSet{Role: access.RoleUser}, -time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), token)
	assert.Error(t, err)
}

func TestVerifyRejectsUnexpectedSigningMethod(t *testing.T) {
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, AuthClaims{UID: "u1", Role: "admin"})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewVerifier("secret-1").Verify(context.Background(), raw)
	assert.Error(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := NewVerifier("secret-1").Verify(context.Background(), "definitely.not.jwt")
	assert.Error(t, err)
}

func TestVerifyRequiresUID(t *testing.T) {
	v := NewVerifier("secret-1")
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AuthClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	raw, err := token.SignedString([]byte("secret-1"))
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), raw)
	assert.Error(t, err)
}
