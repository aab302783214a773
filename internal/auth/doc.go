// Package auth provides session token authentication for cergdb.
//
// # Tokens
//
// Sessions are HS256-signed JWTs carrying the identity and admin flag:
//
//	tokens := auth.NewTokens(secret)
//	token, err := tokens.Issue("alice@example.com", false)
//	claims, err := tokens.Verify(token)
//
// Tokens expire exactly eight hours after issue and are not renewable.
// Verification checks both signature and expiry; an expired token is
// rejected even when correctly signed. The signing secret is loaded once at
// startup and kept separate from the password-hashing pepper, so
// compromising one does not trivially compromise the other.
//
// # HTTP gate
//
// Middleware is the single chokepoint through which every protected
// endpoint obtains its identity:
//
//	mux.Handle("/submit", auth.Middleware(tokens)(handler))
//
// It extracts the "Authorization: Bearer" header, verifies the token and
// attaches the Claims to the request context; handlers read them back with
// FromContext. A missing, malformed, unsigned or expired token fails the
// request before handler logic executes. The middleware touches no
// database.
package auth
