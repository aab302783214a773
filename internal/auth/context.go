// ABOUTME: Claims propagation through request context
// ABOUTME: Provides WithClaims/FromContext so handlers never re-parse tokens

package auth

import (
	"context"
)

// claimsKey is the key type for storing Claims in context.Context.
type claimsKey struct{}

// WithClaims returns a new context with the verified Claims attached.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// FromContext retrieves the Claims from the context, returning nil if not
// present.
func FromContext(ctx context.Context) *Claims {
	val := ctx.Value(claimsKey{})
	if val == nil {
		return nil
	}
	claims, ok := val.(*Claims)
	if !ok {
		return nil
	}
	return claims
}

// MustFromContext retrieves the Claims from the context, panicking if not
// present. Only reachable behind the auth middleware.
func MustFromContext(ctx context.Context) *Claims {
	claims := FromContext(ctx)
	if claims == nil {
		panic("auth: Claims not found in context")
	}
	return claims
}
