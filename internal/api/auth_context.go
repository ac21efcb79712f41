package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/retroarena/eventengine/internal/auth"
	domainerrors "github.com/retroarena/eventengine/internal/errors"
	"github.com/retroarena/eventengine/internal/sse"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// claimsKey is the context key for the verified token claims.
const claimsKey ctxKey = "claims"

// TokenVerifier checks bearer tokens.
type TokenVerifier interface {
	Verify(token string, now time.Time) (*auth.Claims, error)
}

// GetClaims returns the authenticated caller from context.
// Returns 401 error if the request carried no valid token.
func GetClaims(ctx context.Context) (*auth.Claims, error) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	if !ok || claims == nil {
		return nil, huma.Error401Unauthorized("Authentication required")
	}
	return claims, nil
}

// GetUserID returns the authenticated user ID from context.
func GetUserID(ctx context.Context) (string, error) {
	claims, err := GetClaims(ctx)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// userIDFromContext returns the caller's ID or "" for anonymous requests.
func userIDFromContext(ctx context.Context) string {
	if claims, ok := ctx.Value(claimsKey).(*auth.Claims); ok && claims != nil {
		return claims.UserID
	}
	return ""
}

func setClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// authMiddleware validates Bearer tokens and stores the claims in context.
// Requests without a valid token continue anonymously; handlers that need a
// caller use GetClaims.
func authMiddleware(tokens TokenVerifier, clock func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.Verify(token, clock())
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(setClaims(r.Context(), claims)))
		})
	}
}

// RequireModerator validates the caller may review submissions.
func (s *Server) RequireModerator(ctx context.Context) (*auth.Claims, error) {
	claims, err := GetClaims(ctx)
	if err != nil {
		return nil, err
	}
	if !claims.CanModerate() {
		return nil, domainerrors.Forbidden("Moderator role required")
	}
	return claims, nil
}

// streamIdentity resolves the SSE caller from the claims placed by authMiddleware.
func streamIdentity(r *http.Request) sse.Filter {
	claims, ok := r.Context().Value(claimsKey).(*auth.Claims)
	if !ok || claims == nil {
		return sse.Filter{}
	}
	return sse.Filter{UserID: claims.UserID, Moderator: claims.CanModerate()}
}
