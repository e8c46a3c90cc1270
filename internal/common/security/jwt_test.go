package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer([]byte("super-secret"), time.Hour)

	for _, userID := range []string{"user-123", "6f0c7c1e-8a39-4d5c-9b1b-2f0c1f1e1a10", "x"} {
		tok, err := issuer.Issue(userID, "user")
		require.NoError(t, err)

		identity, err := issuer.Verify(tok)
		require.NoError(t, err)
		assert.Equal(t, userID, identity.Subject)
		assert.Equal(t, "user", identity.Role)
	}
}

func TestTokenIssuer_Expired(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer([]byte("secret"), time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }

	tok, err := issuer.Issue("u1", "user")
	require.NoError(t, err)

	_, err = issuer.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_SecretRotated(t *testing.T) {
	t.Parallel()

	tok, err := NewTokenIssuer([]byte("right-secret"), time.Hour).Issue("u2", "admin")
	require.NoError(t, err)

	_, err = NewTokenIssuer([]byte("wrong-secret"), time.Hour).Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_Malformed(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer([]byte("k"), time.Hour)
	for _, tok := range []string{"", "not.a.jwt", "abc"} {
		_, err := issuer.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", tok)
	}
}

func TestTokenIssuer_EmptySubject(t *testing.T) {
	t.Parallel()

	_, err := NewTokenIssuer([]byte("k"), time.Hour).Issue("", "user")
	assert.Error(t, err)
}

func TestIdentityFromClaims(t *testing.T) {
	t.Parallel()

	id, err := IdentityFromClaims(jwt.MapClaims{"sub": "u1", "role": "admin"})
	require.NoError(t, err)
	assert.Equal(t, Identity{Subject: "u1", Role: "admin"}, id)

	_, err = IdentityFromClaims(jwt.MapClaims{"role": "admin"})
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = IdentityFromClaims(jwt.MapClaims{"sub": "u1"})
	assert.ErrorIs(t, err, ErrInvalidToken)
}
