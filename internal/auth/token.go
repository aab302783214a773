// ABOUTME: JWT session token issuing and verification for cergdb
// ABOUTME: HS256 signing with a process-wide secret and a fixed 8 hour lifetime

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenCreation = errors.New("failed to create token")
)

// TokenLifetime is the fixed session length. Tokens are not renewable.
const TokenLifetime = 8 * time.Hour

// Claims is the verified identity extracted from a session token.
type Claims struct {
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies session tokens. The signing secret is loaded
// once at startup and is distinct from the password-hashing pepper.
type Tokens struct {
	secret []byte
	now    func() time.Time
}

// NewTokens creates a token issuer/verifier with the given signing secret.
func NewTokens(secret []byte) *Tokens {
	return &Tokens{secret: secret, now: time.Now}
}

// Issue creates a signed token for the identity, expiring TokenLifetime
// from now.
func (t *Tokens) Issue(username string, isAdmin bool) (string, error) {
	claims := Claims{
		Username: username,
		IsAdmin:  isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(t.now().Add(TokenLifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenCreation, err)
	}

	return signed, nil
}

// Verify validates the signature and expiry of a token and returns its
// claims. An expired-but-correctly-signed token is invalid.
func (t *Tokens) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
