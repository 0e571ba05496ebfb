// Package auth adapts the system's external authentication collaborator
// into a Go interface, plus one concrete, standalone-runnable
// implementation so the service doesn't require a real external CAS to
// come up.
package auth

import "context"

// Authenticator resolves a session cookie/bearer token to a principal
// id. Implementations must treat a failed lookup as "no identity", not
// as an error — callers decide whether that's 401/403.
type Authenticator interface {
	// CookieName is the cookie the transport layer should look for.
	CookieName() string
	// IdFromToken resolves bearer to a principal id. ok is false for
	// any invalid, expired, or unrecognized token.
	IdFromToken(ctx context.Context, bearer []byte) (principal string, ok bool)
}
