package goSignup

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
)

// Engine defines a public type used by goSignup APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	cfg       Config
	api       AuthAPI
	validate  *validator.Validate
	sanitizer *RedirectSanitizer
	flowStore *flowStateStore
	audit     *auditDispatcher
	metrics   *Metrics
	clock     Clock
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) now() time.Time {
	if e.clock != nil {
		return e.clock()
	}
	return time.Now()
}

// observeBackend records latency and failure-class counters for one backend
// round trip.
func (e *Engine) observeBackend(start time.Time, err error) {
	if e.metrics != nil {
		e.metrics.Observe(MetricBackendLatency, e.now().Sub(start))
	}
	switch {
	case errors.Is(err, ErrTimeout):
		e.metricInc(MetricBackendTimeout)
	case errors.Is(err, ErrNetworkUnreachable):
		e.metricInc(MetricBackendUnreachable)
	}
}

// SanitizeRedirect describes the sanitizeredirect operation and its observable behavior.
//
// SanitizeRedirect may return an error when input validation, dependency calls, or security checks fail.
// SanitizeRedirect does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SanitizeRedirect(ctx context.Context, raw string) SanitizedRedirect {
	out := e.sanitizer.Sanitize(raw)
	if out.Fallback {
		e.metricInc(MetricRedirectFallback)
		e.emitAudit(ctx, auditEventRedirectSanitized, false, "", "", "", ErrRedirectRejected, func() map[string]string {
			return map[string]string{"raw": raw, "fallback": out.Path}
		})
	}
	return out
}

// SignIn describes the signin operation and its observable behavior.
//
// SignIn may return an error when input validation, dependency calls, or security checks fail.
// SignIn does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	if e == nil || e.api == nil {
		return nil, ErrEngineNotReady
	}
	if err := e.validateEmail(email); err != nil {
		e.metricInc(MetricValidationFailure)
		return nil, err
	}
	if password == "" {
		e.metricInc(MetricValidationFailure)
		return nil, &ValidationError{Fields: []FieldError{{
			Field:   "password",
			Message: "Please enter your password",
		}}}
	}

	start := e.now()
	result, err := e.api.SignIn(ctx, email, password)
	e.observeBackend(start, err)
	if err != nil {
		e.metricInc(MetricSignInFailure)
		e.emitAudit(ctx, auditEventSignInFailure, false, "", "", email, err, nil)
		return nil, err
	}

	e.metricInc(MetricSignInSuccess)
	e.emitAudit(ctx, auditEventSignInSuccess, true, "", "", email, nil, nil)
	return result, nil
}

// Profile describes the profile operation and its observable behavior.
//
// Profile may return an error when input validation, dependency calls, or security checks fail.
// Profile does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Profile(ctx context.Context, accessToken string) *UserProfile {
	if e == nil || e.api == nil || accessToken == "" {
		return nil
	}

	// A token that already carries a past expiry cannot pass the backend's
	// bearer check, so the round trip is skipped. Opaque tokens fail
	// inspection and go through as-is.
	if info, err := InspectAccessToken(accessToken); err == nil && info.Expired(e.now()) {
		e.emitAudit(ctx, auditEventProfileFetchFailure, false, "", "", info.Email, ErrUnauthorized, nil)
		return nil
	}

	profile := e.api.GetUserProfile(ctx, accessToken)
	if profile == nil {
		e.emitAudit(ctx, auditEventProfileFetchFailure, false, "", "", "", ErrUnknownFailure, nil)
	}
	return profile
}
