package goSignup

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventSignupStarted       = "signup_started"
	auditEventSignupStepAdvanced  = "signup_step_advanced"
	auditEventSignupStepRejected  = "signup_step_rejected"
	auditEventSignupStartOver     = "signup_start_over"
	auditEventSignupCompleted     = "signup_completed"
	auditEventSignInSuccess       = "signin_success"
	auditEventSignInFailure       = "signin_failure"
	auditEventSignInExchange      = "signin_exchange"
	auditEventOtpRequested        = "otp_requested"
	auditEventOtpVerified         = "otp_verified"
	auditEventOtpRejected         = "otp_rejected"
	auditEventResetRequested      = "reset_requested"
	auditEventResetResend         = "reset_resend"
	auditEventResetCompleted      = "reset_completed"
	auditEventResetFailed         = "reset_failed"
	auditEventRedirectSanitized   = "redirect_sanitized"
	auditEventValidationRejected  = "validation_rejected"
	auditEventProfileFetchFailure = "profile_fetch_failure"
)

// AuditErrorCode defines a public type used by goSignup APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrInvalidInput   AuditErrorCode = "invalid_input"
	auditErrUnauthorized   AuditErrorCode = "unauthorized"
	auditErrNotFound       AuditErrorCode = "not_found"
	auditErrServerError    AuditErrorCode = "server_error"
	auditErrTimeout        AuditErrorCode = "timeout"
	auditErrNetwork        AuditErrorCode = "network_unreachable"
	auditErrStepOrder      AuditErrorCode = "step_order"
	auditErrStepBusy       AuditErrorCode = "step_busy"
	auditErrStartOver      AuditErrorCode = "start_over"
	auditErrSessionExpired AuditErrorCode = "session_expired"
	auditErrRedirect       AuditErrorCode = "redirect_rejected"
	auditErrUnknown        AuditErrorCode = "unknown"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	flowID string,
	step string,
	email string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		FlowID:    flowID,
		Step:      step,
		Email:     email,
		IP:        clientIPFromContext(ctx),
		RequestID: requestIDFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if ua := userAgentFromContext(ctx); ua != "" {
		if event.Metadata == nil {
			event.Metadata = map[string]string{}
		}
		event.Metadata["user_agent"] = ua
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return auditErrInvalidInput
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrServerError):
		return auditErrServerError
	case errors.Is(err, ErrTimeout):
		return auditErrTimeout
	case errors.Is(err, ErrNetworkUnreachable):
		return auditErrNetwork
	case errors.Is(err, ErrStepOrder):
		return auditErrStepOrder
	case errors.Is(err, ErrStepBusy):
		return auditErrStepBusy
	case errors.Is(err, ErrStartOver):
		return auditErrStartOver
	case errors.Is(err, ErrSessionExpired):
		return auditErrSessionExpired
	case errors.Is(err, ErrRedirectRejected):
		return auditErrRedirect
	default:
		return auditErrUnknown
	}
}
