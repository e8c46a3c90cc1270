package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/jwtauth/v5"

	"podpal/internal/common"
	"podpal/internal/common/security"
	"podpal/internal/domain/model"
	"podpal/internal/platform/logging"
)

type contextKey string

const (
	identityCtxKey contextKey = "identity"
	tokenCtxKey    contextKey = "token"
)

const msgUnauthorized = "Unauthorized"

// TokenVerifier is satisfied by *security.TokenIssuer.
type TokenVerifier interface {
	Verify(token string) (security.Identity, error)
}

type verified struct {
	identity security.Identity
	err      error
}

// Verifier looks for a bearer header, then a "jwt" cookie, and records the
// verification outcome for Authenticator and OptionalIdentity.
func Verifier(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v := verified{err: jwtauth.ErrNoTokenFound}
			raw := jwtauth.TokenFromHeader(r)
			if raw == "" {
				raw = jwtauth.TokenFromCookie(r)
			}
			if raw != "" {
				v.identity, v.err = tokens.Verify(raw)
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), tokenCtxKey, v)))
		})
	}
}

// Authenticator requires a token accepted by Verifier. Every token problem
// gets the same 401 body.
func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := identityFromToken(r.Context())
		if err != nil {
			logging.FromContext(r.Context()).DebugContext(r.Context(), "token rejected", "error", err)
			common.RespondWithError(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// OptionalIdentity attaches the identity when a token is sent, and lets
// anonymous requests through. A token that is present but invalid is still a 401.
func OptionalIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := identityFromToken(r.Context())
		switch {
		case err == nil:
			r = r.WithContext(WithIdentity(r.Context(), identity))
		case errors.Is(err, jwtauth.ErrNoTokenFound):
		default:
			common.RespondWithError(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole must run after Authenticator.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok || identity.Role != role {
				common.RespondWithError(w, http.StatusForbidden, "Admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

var AdminOnly = RequireRole(model.RoleAdmin)

func WithIdentity(ctx context.Context, identity security.Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, identity)
}

func IdentityFromContext(ctx context.Context) (security.Identity, bool) {
	identity, ok := ctx.Value(identityCtxKey).(security.Identity)
	return identity, ok
}

func identityFromToken(ctx context.Context) (security.Identity, error) {
	v, ok := ctx.Value(tokenCtxKey).(verified)
	if !ok {
		return security.Identity{}, jwtauth.ErrNoTokenFound
	}
	return v.identity, v.err
}
