package goSignup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func mintToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("backend-only-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestInspectAccessToken(t *testing.T) {
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	expires := issued.Add(time.Hour)

	signed := mintToken(t, jwt.MapClaims{
		"sub":   "user-42",
		"email": "ada@example.com",
		"iat":   issued.Unix(),
		"exp":   expires.Unix(),
	})

	info, err := InspectAccessToken(signed)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if info.Subject != "user-42" || info.Email != "ada@example.com" {
		t.Fatalf("unexpected claims %+v", info)
	}
	if !info.ExpiresAt.Equal(expires) {
		t.Fatalf("expiry mismatch: %v", info.ExpiresAt)
	}

	if info.Expired(issued.Add(30 * time.Minute)) {
		t.Fatal("token should not read as expired before exp")
	}
	if !info.Expired(expires.Add(time.Second)) {
		t.Fatal("token should read as expired after exp")
	}
}

func TestInspectAccessTokenExpiredStillDecodes(t *testing.T) {
	// Inspection is display-only: an expired token still decodes; only the
	// Expired helper reports staleness.
	signed := mintToken(t, jwt.MapClaims{
		"sub": "user-42",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	info, err := InspectAccessToken(signed)
	if err != nil {
		t.Fatalf("inspect expired token: %v", err)
	}
	if !info.Expired(time.Now()) {
		t.Fatal("expected Expired to report true")
	}
}

func TestInspectAccessTokenGarbage(t *testing.T) {
	for _, raw := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		if _, err := InspectAccessToken(raw); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("raw %q: expected ErrUnauthorized, got %v", raw, err)
		}
	}
}

func TestProfileSkipsBackendForExpiredToken(t *testing.T) {
	api := &fakeAuthAPI{profile: &UserProfile{ID: "user-1", Email: "ada@example.com"}}
	e := newTestEngine(t, api)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	freezeClock(e, now)
	ctx := context.Background()

	expired := mintToken(t, jwt.MapClaims{
		"sub": "user-1",
		"exp": now.Add(-time.Minute).Unix(),
	})
	if got := e.Profile(ctx, expired); got != nil {
		t.Fatalf("expected nil profile for an expired token, got %+v", got)
	}
	if api.profileCalls != 0 {
		t.Fatalf("expected the backend call to be skipped, got %d calls", api.profileCalls)
	}

	live := mintToken(t, jwt.MapClaims{
		"sub": "user-1",
		"exp": now.Add(time.Hour).Unix(),
	})
	if got := e.Profile(ctx, live); got == nil || got.ID != "user-1" {
		t.Fatalf("expected profile for a live token, got %+v", got)
	}

	// Opaque tokens cannot be inspected and still reach the backend.
	if got := e.Profile(ctx, "opaque-token"); got == nil {
		t.Fatal("expected profile for an opaque token")
	}
	if api.profileCalls != 2 {
		t.Fatalf("expected 2 backend calls, got %d", api.profileCalls)
	}
}

func TestInspectAccessTokenNoExpiry(t *testing.T) {
	signed := mintToken(t, jwt.MapClaims{"sub": "user-42"})

	info, err := InspectAccessToken(signed)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if info.Expired(time.Now().Add(24 * time.Hour)) {
		t.Fatal("token without exp never reads as expired")
	}
}
