package goSignup

import (
	"context"

	"github.com/MrEthical07/goSignup/internal"
)

func (s *ResetSession) begin() error {
	if !s.inflight.CompareAndSwap(false, true) {
		return ErrStepBusy
	}
	return nil
}

func (s *ResetSession) end() {
	s.inflight.Store(false)
}

// StartReset describes the startreset operation and its observable behavior.
//
// StartReset may return an error when input validation, dependency calls, or security checks fail.
// StartReset does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) StartReset(ctx context.Context) (*ResetSession, error) {
	if e == nil || e.api == nil {
		return nil, ErrEngineNotReady
	}

	now := e.now()
	session := &ResetSession{
		ID:        internal.NewFlowID(),
		Step:      ResetStepRequest,
		CreatedAt: now,
		UpdatedAt: now,
	}

	e.emitAudit(ctx, auditEventResetRequested, true, session.ID, session.Step.String(), "", nil, nil)
	return session, nil
}

// SubmitResetRequest describes the submitresetrequest operation and its observable behavior.
//
// SubmitResetRequest may return an error when input validation, dependency calls, or security checks fail.
// SubmitResetRequest does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SubmitResetRequest(ctx context.Context, session *ResetSession, email string) error {
	if e == nil || e.api == nil {
		return ErrEngineNotReady
	}
	if session == nil {
		return ErrStartOver
	}
	if err := session.begin(); err != nil {
		return err
	}
	defer session.end()

	if err := e.checkResetAlive(ctx, session); err != nil {
		return err
	}
	if session.Step != ResetStepRequest {
		return e.rejectResetStep(ctx, session, "request")
	}

	if err := e.validateEmail(email); err != nil {
		e.metricInc(MetricValidationFailure)
		return err
	}

	start := e.now()
	err := e.api.RequestPasswordReset(ctx, email)
	e.observeBackend(start, err)
	if err != nil {
		return e.failReset(ctx, session, err)
	}

	session.Email = email
	e.metricInc(MetricResetRequested)
	e.advanceReset(ctx, session, ResetStepVerify, auditEventResetRequested)
	return nil
}

// ResendResetCode describes the resendresetcode operation and its observable behavior.
//
// ResendResetCode may return an error when input validation, dependency calls, or security checks fail.
// ResendResetCode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ResendResetCode(ctx context.Context, session *ResetSession) error {
	if e == nil || e.api == nil {
		return ErrEngineNotReady
	}
	if session == nil {
		return ErrStartOver
	}
	if err := session.begin(); err != nil {
		return err
	}
	defer session.end()

	if err := e.checkResetAlive(ctx, session); err != nil {
		return err
	}
	if session.Step != ResetStepVerify {
		return e.rejectResetStep(ctx, session, "resend")
	}

	// Resend never changes step. Even a failed resend leaves the user on
	// the verification screen with the code they already have.
	start := e.now()
	err := e.api.RequestPasswordReset(ctx, session.Email)
	e.observeBackend(start, err)

	session.UpdatedAt = e.now()
	e.metricInc(MetricResetResend)
	e.emitAudit(ctx, auditEventResetResend, err == nil, session.ID, session.Step.String(), session.Email, err, nil)
	return err
}

// SubmitResetCode describes the submitresetcode operation and its observable behavior.
//
// SubmitResetCode may return an error when input validation, dependency calls, or security checks fail.
// SubmitResetCode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SubmitResetCode(ctx context.Context, session *ResetSession, code string) error {
	if e == nil || e.api == nil {
		return ErrEngineNotReady
	}
	if session == nil {
		return ErrStartOver
	}
	if err := session.begin(); err != nil {
		return err
	}
	defer session.end()

	if err := e.checkResetAlive(ctx, session); err != nil {
		return err
	}
	if session.Step != ResetStepVerify {
		return e.rejectResetStep(ctx, session, "code")
	}

	// The code is only linted here. The backend judges it together with the
	// new password in one call on the final step.
	trimmed, err := e.validateResetCode(code)
	if err != nil {
		e.metricInc(MetricValidationFailure)
		return err
	}

	session.resetCode = trimmed
	e.advanceReset(ctx, session, ResetStepNewPassword, auditEventResetRequested)
	return nil
}

// SubmitNewPassword describes the submitnewpassword operation and its observable behavior.
//
// SubmitNewPassword may return an error when input validation, dependency calls, or security checks fail.
// SubmitNewPassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SubmitNewPassword(ctx context.Context, session *ResetSession, input PasswordInput) error {
	if e == nil || e.api == nil {
		return ErrEngineNotReady
	}
	if session == nil {
		return ErrStartOver
	}
	if err := session.begin(); err != nil {
		return err
	}
	defer session.end()

	if err := e.checkResetAlive(ctx, session); err != nil {
		return err
	}
	if session.Step != ResetStepNewPassword {
		return e.rejectResetStep(ctx, session, "password")
	}
	if session.Email == "" || session.resetCode == "" {
		session.Step = ResetStepRequest
		session.resetCode = ""
		session.UpdatedAt = e.now()
		return ErrStartOver
	}

	if err := e.ValidatePassword(input); err != nil {
		e.metricInc(MetricValidationFailure)
		return err
	}

	start := e.now()
	err := e.api.ResetPasswordWithCode(ctx, session.Email, session.resetCode, input.Password)
	e.observeBackend(start, err)
	if err != nil {
		return e.failReset(ctx, session, err)
	}

	session.resetCode = ""
	e.metricInc(MetricResetCompleted)
	e.advanceReset(ctx, session, ResetStepSuccess, auditEventResetCompleted)
	return nil
}

// RetryReset describes the retryreset operation and its observable behavior.
//
// RetryReset may return an error when input validation, dependency calls, or security checks fail.
// RetryReset does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RetryReset(ctx context.Context, session *ResetSession) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if session == nil {
		return ErrStartOver
	}
	if err := session.begin(); err != nil {
		return err
	}
	defer session.end()

	if session.Step != ResetStepError {
		return e.rejectResetStep(ctx, session, "retry")
	}

	session.Step = ResetStepRequest
	session.Email = ""
	session.LastError = ""
	session.resetCode = ""
	session.UpdatedAt = e.now()
	return nil
}

// AcknowledgeReset describes the acknowledgereset operation and its observable behavior.
//
// AcknowledgeReset may return an error when input validation, dependency calls, or security checks fail.
// AcknowledgeReset does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AcknowledgeReset(ctx context.Context, session *ResetSession) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	if session == nil {
		return "", ErrStartOver
	}
	if err := session.begin(); err != nil {
		return "", err
	}
	defer session.end()

	if session.Step != ResetStepSuccess {
		return "", e.rejectResetStep(ctx, session, "acknowledge")
	}

	// The flow is closed: the session resets so the modal can be reopened.
	session.Step = ResetStepRequest
	session.Email = ""
	session.resetCode = ""
	session.UpdatedAt = e.now()
	return e.cfg.Redirect.SignInPath, nil
}

// AbandonReset describes the abandonreset operation and its observable behavior.
//
// AbandonReset may return an error when input validation, dependency calls, or security checks fail.
// AbandonReset does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AbandonReset(ctx context.Context, session *ResetSession) {
	if e == nil || session == nil {
		return
	}
	if err := session.begin(); err != nil {
		return
	}
	defer session.end()

	session.Step = ResetStepRequest
	session.Email = ""
	session.LastError = ""
	session.resetCode = ""
	session.UpdatedAt = e.now()
}

func (e *Engine) advanceReset(ctx context.Context, session *ResetSession, to ResetStep, eventType string) {
	session.Step = to
	session.UpdatedAt = e.now()
	e.emitAudit(ctx, eventType, true, session.ID, to.String(), session.Email, nil, nil)
}

func (e *Engine) checkResetAlive(ctx context.Context, session *ResetSession) error {
	if e.cfg.Reset.SessionTTL > 0 && e.now().Sub(session.UpdatedAt) > e.cfg.Reset.SessionTTL {
		e.emitAudit(ctx, auditEventResetFailed, false, session.ID, session.Step.String(), session.Email, ErrSessionExpired, nil)
		return ErrSessionExpired
	}
	return nil
}

func (e *Engine) rejectResetStep(ctx context.Context, session *ResetSession, submitted string) error {
	e.emitAudit(ctx, auditEventResetFailed, false, session.ID, session.Step.String(), session.Email, ErrStepOrder, func() map[string]string {
		return map[string]string{"submitted": submitted}
	})
	return ErrStepOrder
}

// failReset routes a backend failure to the terminal error screen, capturing
// the displayable message for the retry prompt.
func (e *Engine) failReset(ctx context.Context, session *ResetSession, err error) error {
	session.Step = ResetStepError
	session.LastError = FailureMessage(err)
	session.UpdatedAt = e.now()

	e.metricInc(MetricResetFailed)
	e.emitAudit(ctx, auditEventResetFailed, false, session.ID, session.Step.String(), session.Email, err, nil)
	return err
}
