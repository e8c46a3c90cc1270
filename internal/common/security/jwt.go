package security

import (
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers malformed, expired and badly signed tokens alike.
var ErrInvalidToken = errors.New("invalid token")

// Identity is what a verified token resolves to.
type Identity struct {
	Subject string
	Role    string
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	auth *jwtauth.JWTAuth
	ttl  time.Duration
	now  func() time.Time
}

func NewTokenIssuer(secret []byte, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		auth: jwtauth.New("HS256", secret, nil),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (t *TokenIssuer) Issue(subject, role string) (string, error) {
	if subject == "" {
		return "", errors.New("token subject must not be empty")
	}
	now := t.now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
	}
	jwtauth.SetIssuedAt(claims, now)
	jwtauth.SetExpiry(claims, now.Add(t.ttl))

	_, tokenString, err := t.auth.Encode(claims)
	return tokenString, err
}

// Verify checks signature and expiry and returns the bound identity.
func (t *TokenIssuer) Verify(tokenString string) (Identity, error) {
	token, err := jwtauth.VerifyToken(t.auth, tokenString)
	if err != nil || token == nil {
		return Identity{}, ErrInvalidToken
	}
	return IdentityFromClaims(jwt.MapClaims{
		"sub":  token.Subject(),
		"role": claimString(token.PrivateClaims(), "role"),
	})
}

// IdentityFromClaims extracts the identity from verified claims.
func IdentityFromClaims(claims jwt.MapClaims) (Identity, error) {
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Identity{}, ErrInvalidToken
	}
	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{Subject: sub, Role: role}, nil
}

func claimString(claims map[string]interface{}, key string) string {
	v, _ := claims[key].(string)
	return v
}
