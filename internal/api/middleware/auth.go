package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/dom/outsider-party/internal/service"
	"github.com/rs/zerolog/hlog"
)

type contextKey string

const (
	SessionKey contextKey = "session"
)

// Session requires a valid player token in the Authorization header.
func Session(sessions *service.SessionService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				hlog.FromRequest(r).Warn().Msg("missing authorization header")
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(authHeader)
			if !ok {
				hlog.FromRequest(r).Warn().Msg("invalid authorization header format")
				http.Error(w, "Invalid authorization header", http.StatusUnauthorized)
				return
			}

			claims, err := sessions.Validate(token)
			if err != nil {
				hlog.FromRequest(r).Warn().Err(err).Msg("session token rejected")
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), claims)))
		})
	}
}

// OptionalSession attaches the player's claims when a valid token is sent
// and lets anonymous requests through untouched.
func OptionalSession(sessions *service.SessionService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
				if claims, err := sessions.Validate(token); err == nil {
					r = r.WithContext(WithSession(r.Context(), claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func WithSession(ctx context.Context, claims *service.SessionClaims) context.Context {
	return context.WithValue(ctx, SessionKey, claims)
}

func GetSession(ctx context.Context) (*service.SessionClaims, bool) {
	claims, ok := ctx.Value(SessionKey).(*service.SessionClaims)
	return claims, ok
}
