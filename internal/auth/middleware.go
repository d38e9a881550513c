package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"ticket-ledger/internal/logger"
)

type contextKey string

const userIDKey contextKey = "user_id"

// PrincipalHeader carries a caller identity when bearer tokens are not in use.
const PrincipalHeader = "X-Principal"

// Verifier turns a bearer token into the caller's identity.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (string, error)
}

// ExtractTokenFromRequest extracts a bearer token from the Authorization header
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header is missing")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errors.New("authorization header format must be 'Bearer {token}'")
	}
	return parts[1], nil
}

// Middleware resolves the caller and stores it in the request context.
// With allowPrincipalHeader, requests without a bearer token may name
// themselves in X-Principal. verifier may be nil when only headers are used.
func Middleware(verifier Verifier, log *logger.Logger, allowPrincipalHeader bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" && allowPrincipalHeader {
				principal := strings.TrimSpace(r.Header.Get(PrincipalHeader))
				if principal == "" {
					http.Error(w, "missing "+PrincipalHeader+" header", http.StatusUnauthorized)
					return
				}
				next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), principal)))
				return
			}

			if verifier == nil {
				http.Error(w, "bearer tokens are not accepted", http.StatusUnauthorized)
				return
			}

			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			subject, err := verifier.Verify(r.Context(), rawToken)
			if err != nil {
				log.LogSecurity("AUTH", "rejected token from "+r.RemoteAddr+": "+err.Error())
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), subject)))
		})
	}
}

func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// Helper to extract user ID in handlers
func UserID(ctx context.Context) string {
	if uid, ok := ctx.Value(userIDKey).(string); ok {
		return uid
	}
	return ""
}
