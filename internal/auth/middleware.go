package auth

import (
	"net/http"
	"strings"
)

// FromRequest resolves the principal for an HTTP request: first the
// authenticator's session cookie, then a standard "Authorization:
// Bearer" header as a fallback for plain REST callers that don't carry
// a browser cookie jar.
func FromRequest(r *http.Request, authenticator Authenticator) (string, bool) {
	if authenticator == nil {
		return "", false
	}

	if cookie, err := r.Cookie(authenticator.CookieName()); err == nil && cookie.Value != "" {
		if principal, ok := authenticator.IdFromToken(r.Context(), []byte(cookie.Value)); ok {
			return principal, true
		}
	}

	if header := r.Header.Get("Authorization"); header != "" {
		const prefix = "bearer "
		if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
			token := strings.TrimSpace(header[len(prefix):])
			if principal, ok := authenticator.IdFromToken(r.Context(), []byte(token)); ok {
				return principal, true
			}
		}
	}

	return "", false
}
