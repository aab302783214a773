// ABOUTME: HTTP middleware gating protected endpoints behind bearer tokens
// ABOUTME: Extracts the Authorization header, verifies it, and attaches Claims to context

package auth

import (
	"net/http"
	"strings"
)

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// Middleware creates an HTTP middleware that rejects requests without a
// valid bearer token before any handler logic runs. Verified Claims are
// attached to the request context via WithClaims. The middleware performs
// no database access.
//
// Every failure mode (missing header, malformed header, bad signature,
// expiry) collapses into the same invalid-token rejection.
func Middleware(tokens *Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
			if errMsg != "" {
				writeInvalidToken(w)
				return
			}

			claims, err := tokens.Verify(token)
			if err != nil {
				writeInvalidToken(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func writeInvalidToken(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	w.Write([]byte(`{"error":"invalid token"}`))
}
