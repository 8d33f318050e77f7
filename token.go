package goSignup

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo defines a public type used by goSignup APIs.
// It is the decoded, UNVERIFIED view of an access token issued by the remote
// API. The signature is never checked here; only the backend holds the key.
// Use it for display and expiry hints, never for authorization decisions.
type TokenInfo struct {
	Subject   string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// InspectAccessToken describes the inspectaccesstoken operation and its observable behavior.
//
// InspectAccessToken may return an error when input validation, dependency calls, or security checks fail.
// InspectAccessToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func InspectAccessToken(accessToken string) (*TokenInfo, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return nil, ErrUnauthorized
	}

	info := &TokenInfo{}
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if email, ok := claims["email"].(string); ok {
		info.Email = email
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		info.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}

	return info, nil
}

// Expired describes the expired operation and its observable behavior.
func (t *TokenInfo) Expired(now time.Time) bool {
	if t == nil || t.ExpiresAt.IsZero() {
		return false
	}
	return now.After(t.ExpiresAt)
}
