package http

import (
	"context"
	"net/http"

	"fintrack/internal/identity"
	applog "fintrack/internal/log"
)

type contextKey string

const (
	claimsKey contextKey = "claims"
	tokenKey  contextKey = "token"
)

// authed rejects requests without a live bearer token and stores the
// verified claims in the request context.
func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			UnauthorizedError("missing bearer token").Write(w)
			return
		}
		claims, err := s.deps.Auth.Verify(r.Context(), token)
		if err != nil {
			writeError(w, r, "verify", err)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		ctx = context.WithValue(ctx, tokenKey, token)
		ctx = applog.NewContext(ctx, applog.FromContext(ctx).With(applog.FieldUserID, claims.UserID))
		next(w, r.WithContext(ctx))
	}
}

// userID returns the uid of the signed-in user. Only valid behind authed.
func userID(ctx context.Context) string {
	claims, _ := ctx.Value(claimsKey).(identity.Claims)
	return claims.UserID
}

func sessionToken(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}
