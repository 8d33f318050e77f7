package goSignup

import (
	"context"
	"net/url"
	"strings"
	"testing"
)

func TestSanitizeRedirect(t *testing.T) {
	s := NewRedirectSanitizer(RedirectConfig{
		DefaultPath:    "/dashboard",
		AllowedOrigins: []string{"https://app.example.com"},
	})

	cases := []struct {
		name         string
		raw          string
		wantPath     string
		wantFallback bool
	}{
		{"plain path", "/settings", "/settings", false},
		{"path with query and fragment", "/orders?page=2#top", "/orders?page=2#top", false},
		{"empty uses default", "", "/dashboard", false},
		{"whitespace only uses default", "   ", "/dashboard", false},
		{"allow-listed origin passes", "https://app.example.com/welcome?x=1", "https://app.example.com/welcome?x=1", false},
		{"unlisted origin rejected", "https://evil.example/phish", "/dashboard", true},
		{"same host wrong scheme rejected", "ftp://app.example.com/welcome", "/dashboard", true},
		{"same host wrong port rejected", "https://app.example.com:8443/welcome", "/dashboard", true},
		{"credentials in url rejected", "https://user@app.example.com/welcome", "/dashboard", true},
		{"protocol relative rejected", "//evil.example", "/dashboard", true},
		{"scheme rejected", "javascript:alert(1)", "/dashboard", true},
		{"backslash rejected", "/\\evil.example", "/dashboard", true},
		{"embedded backslash rejected", "/ok\\..\\evil", "/dashboard", true},
		{"control char rejected", "/ok\x00path", "/dashboard", true},
		{"newline rejected", "/ok\npath", "/dashboard", true},
		{"no leading slash rejected", "dashboard", "/dashboard", true},
		{"default passes through", "/dashboard", "/dashboard", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := s.Sanitize(tc.raw)
			if got.Path != tc.wantPath {
				t.Fatalf("path: got %q, want %q", got.Path, tc.wantPath)
			}
			if got.Fallback != tc.wantFallback {
				t.Fatalf("fallback: got %v, want %v", got.Fallback, tc.wantFallback)
			}
		})
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	s := NewRedirectSanitizer(RedirectConfig{
		DefaultPath:    "/dashboard",
		AllowedOrigins: []string{"https://app.example.com"},
	})

	inputs := []string{
		"/settings",
		"/orders?page=2#top",
		"",
		"https://app.example.com/welcome",
		"https://evil.example",
		"//evil.example",
		"javascript:alert(1)",
		"/\\x",
		"dashboard",
		"/a/b/c?x=1&y=2",
	}

	for _, raw := range inputs {
		first := s.Sanitize(raw)
		second := s.Sanitize(first.Path)
		if second.Path != first.Path {
			t.Fatalf("not idempotent for %q: %q then %q", raw, first.Path, second.Path)
		}
		if second.Fallback {
			t.Fatalf("sanitized output %q was rejected on re-entry", first.Path)
		}
	}
}

func TestBuildCallbackURL(t *testing.T) {
	e := newTestEngine(t, &fakeAuthAPI{})

	cb, err := e.BuildCallbackURL("https://app.example.com", "tok123", SanitizedRedirect{Path: "/orders?page=2"})
	if err != nil {
		t.Fatalf("build callback failed: %v", err)
	}

	u, err := url.Parse(cb)
	if err != nil {
		t.Fatalf("callback not parseable: %v", err)
	}
	if u.Host != "app.example.com" || u.Path != "/auth/callback" {
		t.Fatalf("unexpected callback target %q", cb)
	}
	if u.Query().Get("token") != "tok123" {
		t.Fatalf("token not carried: %q", cb)
	}
	if u.Query().Get("redirect") != "/orders?page=2" {
		t.Fatalf("redirect not carried: %q", cb)
	}
}

func TestBuildCallbackURLRejectsBadOrigin(t *testing.T) {
	e := newTestEngine(t, &fakeAuthAPI{})

	for _, origin := range []string{"", "javascript:alert(1)", "ftp://files.example", "not a url"} {
		if _, err := e.BuildCallbackURL(origin, "tok", SanitizedRedirect{Path: "/x"}); err == nil {
			t.Fatalf("origin %q should be rejected", origin)
		}
	}
}

func TestSanitizeRedirectMetrics(t *testing.T) {
	e := newTestEngine(t, &fakeAuthAPI{})

	e.SanitizeRedirect(context.Background(), "https://evil.example")
	e.SanitizeRedirect(context.Background(), "/fine")

	if got := e.metrics.Value(MetricRedirectFallback); got != 1 {
		t.Fatalf("expected one fallback metric, got %d", got)
	}
}

func TestSanitizeRejectsLongTraversalHosts(t *testing.T) {
	s := NewRedirectSanitizer(RedirectConfig{DefaultPath: "/dashboard"})

	// url.Parse treats "/%2F..." style inputs as plain paths; they remain
	// same-origin and are allowed. True host-carrying shapes are not.
	raw := "/" + strings.Repeat("a", 100) + "?next=/ok"
	if got := s.Sanitize(raw); got.Fallback {
		t.Fatalf("long plain path should pass, got fallback")
	}
}
