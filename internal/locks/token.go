package locks

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Token is a 128-bit bearer capability proving ownership of one lock
// instance. It is comparable so the manager can check ownership with a
// plain ==.
type Token [16]byte

// NewToken mints a fresh, cryptographically random token.
func NewToken() (Token, error) {
	var t Token
	if _, err := rand.Read(t[:]); err != nil {
		return Token{}, fmt.Errorf("locks: generate token: %w", err)
	}
	return t, nil
}

// Hex renders the token as 32 lowercase hex characters, the wire form
// used by the REST, WebSocket, and SSE surfaces.
func (t Token) Hex() string {
	return hex.EncodeToString(t[:])
}

// IsZero reports whether t is the zero token.
func (t Token) IsZero() bool {
	return t == Token{}
}

// ParseToken decodes a hex-encoded token. Malformed input (wrong
// length, non-hex characters) is reported as an error; callers that
// need not-found semantics for malformed wire tokens should map this
// error to NotFoundError rather than propagate it raw.
func ParseToken(s string) (Token, error) {
	var t Token
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Token{}, fmt.Errorf("locks: malformed token: %w", err)
	}
	if len(raw) != len(t) {
		return Token{}, fmt.Errorf("locks: malformed token: want %d bytes, got %d", len(t), len(raw))
	}
	copy(t[:], raw)
	return t, nil
}
