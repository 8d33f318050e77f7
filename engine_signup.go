package goSignup

import (
	"context"
	"net/url"
	"time"

	"github.com/MrEthical07/goSignup/internal"
)

func (s *SignupSession) begin() error {
	if !s.inflight.CompareAndSwap(false, true) {
		return ErrStepBusy
	}
	return nil
}

func (s *SignupSession) end() {
	s.inflight.Store(false)
}

// StartSignup describes the startsignup operation and its observable behavior.
//
// StartSignup may return an error when input validation, dependency calls, or security checks fail.
// StartSignup does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) StartSignup(ctx context.Context, rawRedirect string) (*SignupSession, error) {
	if e == nil || e.api == nil {
		return nil, ErrEngineNotReady
	}

	now := e.now()
	session := &SignupSession{
		ID:        internal.NewFlowID(),
		Step:      StepSelectAccountType,
		Redirect:  e.SanitizeRedirect(ctx, rawRedirect),
		CreatedAt: now,
		UpdatedAt: now,
	}

	e.metricInc(MetricSignupStarted)
	e.emitAudit(ctx, auditEventSignupStarted, true, session.ID, session.Step.String(), "", nil, func() map[string]string {
		return map[string]string{"redirect": session.Redirect.Path}
	})

	e.persistSignup(ctx, session)
	return session, nil
}

// RestoreSignup describes the restoresignup operation and its observable behavior.
//
// RestoreSignup may return an error when input validation, dependency calls, or security checks fail.
// RestoreSignup does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RestoreSignup(ctx context.Context, flowID string) (*SignupSession, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if e.flowStore == nil || flowID == "" {
		return nil, ErrSessionExpired
	}

	record, err := e.flowStore.Load(ctx, flowID)
	if err != nil {
		return nil, ErrSessionExpired
	}

	now := e.now()
	session := &SignupSession{
		ID:          flowID,
		Step:        record.Step,
		AccountType: record.AccountType,
		Redirect: SanitizedRedirect{
			Path:     record.RedirectPath,
			Fallback: record.RedirectFallback,
		},
		CreatedAt: time.Unix(record.UpdatedAt, 0),
		UpdatedAt: now,
	}
	if record.Email != "" {
		session.Details = &UserDetails{
			FirstName: record.FirstName,
			LastName:  record.LastName,
			Email:     record.Email,
			Phone:     record.Phone,
			Address:   record.Address,
			DOB:       record.DOB,
		}
	}

	// A restored session never resumes past the verification step: the
	// password step requires material that is never persisted.
	if session.Step > StepVerifyEmail {
		session.Step = StepVerifyEmail
	}

	return session, nil
}

// SubmitAccountType describes the submitaccounttype operation and its observable behavior.
//
// SubmitAccountType may return an error when input validation, dependency calls, or security checks fail.
// SubmitAccountType does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SubmitAccountType(ctx context.Context, session *SignupSession, accountType AccountType) error {
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

	if err := e.checkSignupAlive(ctx, session); err != nil {
		return err
	}
	if session.Step != StepSelectAccountType {
		return e.rejectSignupStep(ctx, session, "accountType")
	}

	if err := ValidateAccountType(accountType); err != nil {
		e.metricInc(MetricValidationFailure)
		e.emitAudit(ctx, auditEventValidationRejected, false, session.ID, session.Step.String(), "", ErrInvalidInput, nil)
		return err
	}

	session.AccountType = accountType
	e.advanceSignup(ctx, session, StepUserDetails)
	return nil
}

// SubmitUserDetails describes the submituserdetails operation and its observable behavior.
//
// SubmitUserDetails may return an error when input validation, dependency calls, or security checks fail.
// SubmitUserDetails does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SubmitUserDetails(ctx context.Context, session *SignupSession, details UserDetails) error {
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

	if err := e.checkSignupAlive(ctx, session); err != nil {
		return err
	}
	if session.Step != StepUserDetails {
		return e.rejectSignupStep(ctx, session, "userDetails")
	}
	if session.AccountType == "" {
		// Guard: the step was reached without a chosen account type.
		// The session is rewound instead of trusting stale state.
		return e.rewindSignup(ctx, session, StepSelectAccountType, ErrStepOrder)
	}

	if err := e.ValidateUserDetails(session.AccountType, details); err != nil {
		e.metricInc(MetricValidationFailure)
		e.emitAudit(ctx, auditEventValidationRejected, false, session.ID, session.Step.String(), details.Email, ErrInvalidInput, nil)
		return err
	}

	start := e.now()
	err := e.api.RequestOtp(ctx, details.Email)
	e.observeBackend(start, err)
	if err != nil {
		e.emitAudit(ctx, auditEventOtpRequested, false, session.ID, session.Step.String(), details.Email, err, nil)
		return err
	}

	d := details
	session.Details = &d
	e.metricInc(MetricOtpRequested)
	e.emitAudit(ctx, auditEventOtpRequested, true, session.ID, session.Step.String(), details.Email, nil, nil)
	e.advanceSignup(ctx, session, StepVerifyEmail)
	return nil
}

// ResendOtp describes the resendotp operation and its observable behavior.
//
// ResendOtp may return an error when input validation, dependency calls, or security checks fail.
// ResendOtp does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ResendOtp(ctx context.Context, session *SignupSession) error {
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

	if err := e.checkSignupAlive(ctx, session); err != nil {
		return err
	}
	if session.Step != StepVerifyEmail {
		return e.rejectSignupStep(ctx, session, "resendOtp")
	}
	if session.Details == nil {
		return e.rewindSignup(ctx, session, StepSelectAccountType, ErrStartOver)
	}

	start := e.now()
	err := e.api.RequestOtp(ctx, session.Details.Email)
	e.observeBackend(start, err)
	if err != nil {
		e.emitAudit(ctx, auditEventOtpRequested, false, session.ID, session.Step.String(), session.Details.Email, err, nil)
		return err
	}

	session.UpdatedAt = e.now()
	e.metricInc(MetricOtpRequested)
	e.emitAudit(ctx, auditEventOtpRequested, true, session.ID, session.Step.String(), session.Details.Email, nil, nil)
	e.persistSignup(ctx, session)
	return nil
}

// SubmitOtp describes the submitotp operation and its observable behavior.
//
// SubmitOtp may return an error when input validation, dependency calls, or security checks fail.
// SubmitOtp does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SubmitOtp(ctx context.Context, session *SignupSession, code string) error {
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

	if err := e.checkSignupAlive(ctx, session); err != nil {
		return err
	}
	if session.Step != StepVerifyEmail {
		return e.rejectSignupStep(ctx, session, "otp")
	}
	if session.Details == nil {
		return e.rewindSignup(ctx, session, StepSelectAccountType, ErrStartOver)
	}

	if err := e.validateOtp(code); err != nil {
		e.metricInc(MetricValidationFailure)
		e.emitAudit(ctx, auditEventValidationRejected, false, session.ID, session.Step.String(), session.Details.Email, ErrInvalidInput, nil)
		return err
	}

	start := e.now()
	err := e.api.VerifyOtp(ctx, session.Details.Email, code)
	e.observeBackend(start, err)
	if err != nil {
		// A wrong code leaves the session in place so the user retries.
		e.metricInc(MetricOtpRejected)
		e.emitAudit(ctx, auditEventOtpRejected, false, session.ID, session.Step.String(), session.Details.Email, err, nil)
		return err
	}

	e.metricInc(MetricOtpVerified)
	e.emitAudit(ctx, auditEventOtpVerified, true, session.ID, session.Step.String(), session.Details.Email, nil, nil)
	e.advanceSignup(ctx, session, StepSetPassword)
	return nil
}

// SubmitPassword describes the submitpassword operation and its observable behavior.
//
// SubmitPassword may return an error when input validation, dependency calls, or security checks fail.
// SubmitPassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SubmitPassword(ctx context.Context, session *SignupSession, input PasswordInput) (*SignupResult, error) {
	if e == nil || e.api == nil {
		return nil, ErrEngineNotReady
	}
	if session == nil {
		return nil, ErrStartOver
	}
	if err := session.begin(); err != nil {
		return nil, err
	}
	defer session.end()

	if err := e.checkSignupAlive(ctx, session); err != nil {
		return nil, err
	}
	if session.Step != StepSetPassword {
		return nil, e.rejectSignupStep(ctx, session, "password")
	}
	if session.AccountType == "" || session.Details == nil {
		return nil, e.rewindSignup(ctx, session, StepSelectAccountType, ErrStartOver)
	}

	if err := e.ValidatePassword(input); err != nil {
		e.metricInc(MetricValidationFailure)
		e.emitAudit(ctx, auditEventValidationRejected, false, session.ID, session.Step.String(), session.Details.Email, ErrInvalidInput, nil)
		return nil, err
	}

	req := e.buildSignupRequest(session, input.Password)

	start := e.now()
	err := e.api.CompleteSignup(ctx, req)
	e.observeBackend(start, err)
	if err != nil {
		e.emitAudit(ctx, auditEventSignupCompleted, false, session.ID, session.Step.String(), session.Details.Email, err, nil)
		return nil, err
	}

	result := &SignupResult{Email: session.Details.Email}

	// The account exists at this point. The token exchange is best-effort:
	// failure leaves AccessToken empty and routes the user to sign-in with
	// the destination preserved as a query parameter.
	exchangeStart := e.now()
	signIn, exchangeErr := e.api.SignIn(ctx, session.Details.Email, input.Password)
	e.observeBackend(exchangeStart, exchangeErr)
	if exchangeErr != nil || signIn == nil {
		result.RedirectURL = e.cfg.Redirect.SignInPath + "?redirect=" + url.QueryEscape(session.Redirect.Path)
		e.metricInc(MetricSignInExchangeFailure)
		e.emitAudit(ctx, auditEventSignInExchange, false, session.ID, session.Step.String(), session.Details.Email, exchangeErr, nil)
	} else {
		result.UserID = signIn.UserID
		result.AccessToken = signIn.AccessToken
		result.RedirectURL = session.Redirect.Path
		e.emitAudit(ctx, auditEventSignInExchange, true, session.ID, session.Step.String(), session.Details.Email, nil, nil)
	}

	session.Result = result
	e.metricInc(MetricSignupCompleted)
	e.emitAudit(ctx, auditEventSignupCompleted, true, session.ID, StepDone.String(), session.Details.Email, nil, nil)
	e.advanceSignup(ctx, session, StepDone)

	if e.flowStore != nil {
		_ = e.flowStore.Delete(ctx, session.ID)
	}

	return result, nil
}

func (e *Engine) buildSignupRequest(session *SignupSession, password string) SignupRequest {
	req := SignupRequest{
		AccountType:     session.AccountType,
		FirstName:       session.Details.FirstName,
		LastName:        session.Details.LastName,
		Email:           session.Details.Email,
		Phone:           session.Details.Phone,
		Address:         session.Details.Address,
		DateOfBirth:     session.Details.DOB,
		Password:        password,
		ConfirmPassword: password,
	}
	// Individual accounts may omit address and date of birth; the backend
	// still expects both fields, so fixed placeholders go on the wire.
	if req.Address == "" {
		req.Address = e.cfg.Signup.DefaultAddress
	}
	if req.DateOfBirth == "" {
		req.DateOfBirth = e.cfg.Signup.DefaultDOB
	}
	return req
}

func (e *Engine) checkSignupAlive(ctx context.Context, session *SignupSession) error {
	if e.cfg.Signup.SessionTTL > 0 && e.now().Sub(session.UpdatedAt) > e.cfg.Signup.SessionTTL {
		e.emitAudit(ctx, auditEventSignupStepRejected, false, session.ID, session.Step.String(), "", ErrSessionExpired, nil)
		return ErrSessionExpired
	}
	return nil
}

func (e *Engine) rejectSignupStep(ctx context.Context, session *SignupSession, submitted string) error {
	e.metricInc(MetricSignupStepRejected)
	e.emitAudit(ctx, auditEventSignupStepRejected, false, session.ID, session.Step.String(), "", ErrStepOrder, func() map[string]string {
		return map[string]string{"submitted": submitted}
	})
	return ErrStepOrder
}

func (e *Engine) rewindSignup(ctx context.Context, session *SignupSession, to SignupStep, cause error) error {
	session.Step = to
	session.AccountType = ""
	session.Details = nil
	session.UpdatedAt = e.now()

	e.metricInc(MetricSignupStartOver)
	e.emitAudit(ctx, auditEventSignupStartOver, false, session.ID, to.String(), "", cause, nil)
	e.persistSignup(ctx, session)
	return cause
}

func (e *Engine) advanceSignup(ctx context.Context, session *SignupSession, to SignupStep) {
	session.Step = to
	session.UpdatedAt = e.now()

	e.emitAudit(ctx, auditEventSignupStepAdvanced, true, session.ID, to.String(), "", nil, nil)
	e.persistSignup(ctx, session)
}

func (e *Engine) persistSignup(ctx context.Context, session *SignupSession) {
	if e.flowStore == nil || session.Step == StepDone {
		return
	}

	record := &flowStateRecord{
		Step:             session.Step,
		AccountType:      session.AccountType,
		RedirectPath:     session.Redirect.Path,
		RedirectFallback: session.Redirect.Fallback,
		UpdatedAt:        session.UpdatedAt.Unix(),
	}
	if session.Details != nil {
		record.FirstName = session.Details.FirstName
		record.LastName = session.Details.LastName
		record.Email = session.Details.Email
		record.Phone = session.Details.Phone
		record.Address = session.Details.Address
		record.DOB = session.Details.DOB
	}

	// Persistence is advisory. A dead Redis must not block the wizard.
	_ = e.flowStore.Save(ctx, session.ID, record)
}
