package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrAuthDisabled is returned by GenerateToken when no secret was
// configured.
var ErrAuthDisabled = errors.New("auth: disabled")

// HMACAuthenticator is the shipped Authenticator: the session cookie
// carries an HS256 JWT whose subject is the principal id. It exists so
// ezekiel runs end-to-end without a real external CAS; production
// deployments are expected to swap in their own Authenticator.
type HMACAuthenticator struct {
	secret     []byte
	cookieName string
	expiry     time.Duration
}

// NewHMACAuthenticator builds an authenticator signing/verifying with
// secret. expiry <= 0 means issued tokens never expire.
func NewHMACAuthenticator(secret, cookieName string, expiry time.Duration) *HMACAuthenticator {
	if cookieName == "" {
		cookieName = "ezekiel_session"
	}
	return &HMACAuthenticator{secret: []byte(secret), cookieName: cookieName, expiry: expiry}
}

// CookieName implements Authenticator.
func (a *HMACAuthenticator) CookieName() string { return a.cookieName }

// IdFromToken implements Authenticator.
func (a *HMACAuthenticator) IdFromToken(_ context.Context, bearer []byte) (string, bool) {
	if a == nil || len(a.secret) == 0 || len(bearer) == 0 {
		return "", false
	}

	token, err := jwt.Parse(strings.TrimSpace(string(bearer)), func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return "", false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", false
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", false
	}
	return sub, true
}

// GenerateToken issues a signed session token for principal, for use
// by a login endpoint, a CLI "login" helper, or tests.
func (a *HMACAuthenticator) GenerateToken(principal string) (string, error) {
	if a == nil || len(a.secret) == 0 {
		return "", ErrAuthDisabled
	}
	claims := jwt.MapClaims{
		"sub": principal,
		"iat": time.Now().Unix(),
	}
	if a.expiry > 0 {
		claims["exp"] = time.Now().Add(a.expiry).Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}
