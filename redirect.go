package goSignup

import (
	"net/url"
	"strings"
)

// RedirectSanitizer defines a public type used by goSignup APIs.
// It reduces an untrusted post-auth redirect target to either a relative path
// or an absolute URL on an allow-listed origin. Sanitization is idempotent:
// feeding a sanitized value back in returns it unchanged.
type RedirectSanitizer struct {
	defaultPath    string
	allowedOrigins map[string]struct{}
}

// NewRedirectSanitizer describes the newredirectsanitizer operation and its observable behavior.
//
// NewRedirectSanitizer may return an error when input validation, dependency calls, or security checks fail.
// NewRedirectSanitizer does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewRedirectSanitizer(cfg RedirectConfig) *RedirectSanitizer {
	defaultPath := cfg.DefaultPath
	if defaultPath == "" {
		defaultPath = "/dashboard"
	}

	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			continue
		}
		allowed[strings.ToLower(u.Scheme+"://"+u.Host)] = struct{}{}
	}

	return &RedirectSanitizer{
		defaultPath:    defaultPath,
		allowedOrigins: allowed,
	}
}

// Sanitize describes the sanitize operation and its observable behavior.
//
// Sanitize may return an error when input validation, dependency calls, or security checks fail.
// Sanitize does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedirectSanitizer) Sanitize(raw string) SanitizedRedirect {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return SanitizedRedirect{Path: s.defaultPath}
	}
	if accepted, ok := s.accept(trimmed); ok {
		return SanitizedRedirect{Path: accepted}
	}
	return SanitizedRedirect{Path: s.defaultPath, Fallback: true}
}

func (s *RedirectSanitizer) accept(p string) (string, bool) {
	if strings.ContainsAny(p, "\\\r\n\t ") {
		return "", false
	}
	for _, r := range p {
		if r < 0x20 || r == 0x7f {
			return "", false
		}
	}

	if strings.HasPrefix(p, "/") {
		// Protocol-relative URLs are open-redirect vectors, not paths.
		if strings.HasPrefix(p, "//") {
			return "", false
		}
		u, err := url.Parse(p)
		if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
			return "", false
		}
		return p, true
	}

	// Absolute URLs pass only when their origin is allow-listed.
	u, err := url.Parse(p)
	if err != nil || u.Host == "" || u.User != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	origin := strings.ToLower(u.Scheme + "://" + u.Host)
	if _, ok := s.allowedOrigins[origin]; !ok {
		return "", false
	}
	return u.String(), true
}

// BuildCallbackURL describes the buildcallbackurl operation and its observable behavior.
//
// BuildCallbackURL may return an error when input validation, dependency calls, or security checks fail.
// BuildCallbackURL does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) BuildCallbackURL(origin, accessToken string, redirect SanitizedRedirect) (string, error) {
	base, err := url.Parse(strings.TrimSpace(origin))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", ErrRedirectRejected
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return "", ErrRedirectRejected
	}

	target := redirect.Path
	if target == "" {
		target = e.cfg.Redirect.DefaultPath
	}

	cb := url.URL{
		Scheme: base.Scheme,
		Host:   base.Host,
		Path:   e.cfg.Redirect.CallbackPath,
	}
	q := cb.Query()
	q.Set("token", accessToken)
	q.Set("redirect", target)
	cb.RawQuery = q.Encode()

	return cb.String(), nil
}
