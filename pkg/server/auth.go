package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/solarfleet/solarfleet/pkg/log"
)

// tokenVerifier validates a Google ID token and returns the email claim.
type tokenVerifier func(ctx context.Context, rawIDToken string) (string, error)

func oidcVerifier(v *oidc.IDTokenVerifier) tokenVerifier {
	return func(ctx context.Context, rawIDToken string) (string, error) {
		token, err := v.Verify(ctx, rawIDToken)
		if err != nil {
			return "", err
		}
		var claims struct {
			Email         string `json:"email"`
			EmailVerified bool   `json:"email_verified"`
		}
		if err := token.Claims(&claims); err != nil {
			return "", err
		}
		if claims.Email == "" || !claims.EmailVerified {
			return "", errors.New("token has no verified email")
		}
		return claims.Email, nil
	}
}

// requireRefreshToken checks the bearer ID token sent by the external
// scheduler. Without a configured audience every caller is let through.
func (s *Server) requireRefreshToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.verifyToken == nil {
			next(w, r)
			return
		}
		ctx := r.Context()

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeJSONError(w, "missing authorization header", http.StatusUnauthorized)
			return
		}
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			writeJSONError(w, "invalid authorization header", http.StatusUnauthorized)
			return
		}

		email, err := s.verifyToken(ctx, parts[1])
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to validate id token", slog.Any("error", err))
			writeJSONError(w, "invalid id token", http.StatusUnauthorized)
			return
		}
		if email != s.refreshEmail {
			log.Ctx(ctx).WarnContext(ctx, "unauthorized email for refresh", slog.String("email", email))
			writeJSONError(w, "unauthorized email", http.StatusForbidden)
			return
		}
		log.Ctx(ctx).DebugContext(ctx, "refresh: authorized", slog.String("email", email))
		next(w, r)
	}
}
