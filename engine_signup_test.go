package goSignup

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSignupHappyPath(t *testing.T) {
	api := &fakeAuthAPI{
		signInResult: &SignInResult{UserID: "user-42", Email: "ada@example.com", AccessToken: "jwt-abc"},
	}
	e := newTestEngine(t, api)
	ctx := context.Background()

	session, err := e.StartSignup(ctx, "/orders?page=2")
	if err != nil {
		t.Fatalf("start signup: %v", err)
	}
	if session.Step != StepSelectAccountType {
		t.Fatalf("expected first step, got %v", session.Step)
	}
	if session.Redirect.Path != "/orders?page=2" {
		t.Fatalf("redirect hint lost: %+v", session.Redirect)
	}

	if err := e.SubmitAccountType(ctx, session, AccountIndividual); err != nil {
		t.Fatalf("submit account type: %v", err)
	}
	if session.Step != StepUserDetails {
		t.Fatalf("expected details step, got %v", session.Step)
	}

	if err := e.SubmitUserDetails(ctx, session, testDetails()); err != nil {
		t.Fatalf("submit details: %v", err)
	}
	if session.Step != StepVerifyEmail {
		t.Fatalf("expected verify step, got %v", session.Step)
	}
	if api.requestOtpCalls != 1 {
		t.Fatalf("expected one otp request, got %d", api.requestOtpCalls)
	}

	if err := e.SubmitOtp(ctx, session, "A1B2C3"); err != nil {
		t.Fatalf("submit otp: %v", err)
	}
	if session.Step != StepSetPassword {
		t.Fatalf("expected password step, got %v", session.Step)
	}

	result, err := e.SubmitPassword(ctx, session, PasswordInput{
		Password:        "Str0ng!pass",
		ConfirmPassword: "Str0ng!pass",
	})
	if err != nil {
		t.Fatalf("submit password: %v", err)
	}
	if session.Step != StepDone {
		t.Fatalf("expected done step, got %v", session.Step)
	}
	if result.UserID != "user-42" || result.AccessToken != "jwt-abc" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.RedirectURL != "/orders?page=2" {
		t.Fatalf("expected sanitized destination, got %q", result.RedirectURL)
	}

	if len(api.signupCalls) != 1 {
		t.Fatalf("expected one signup call, got %d", len(api.signupCalls))
	}
	req := api.signupCalls[0]
	if req.ConfirmPassword != req.Password {
		t.Fatal("confirm password must mirror password on the wire")
	}
	if req.Address != "N/A" || req.DateOfBirth != "1990-01-01" {
		t.Fatalf("individual placeholders missing: %+v", req)
	}

	cb, err := e.BuildCallbackURL("https://app.example.com", result.AccessToken, session.Redirect)
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	if cb == "" {
		t.Fatal("expected a callback url")
	}
}

func TestSignupBusinessVariant(t *testing.T) {
	api := &fakeAuthAPI{}
	e := newTestEngine(t, api)
	ctx := context.Background()

	session, _ := e.StartSignup(ctx, "")
	if err := e.SubmitAccountType(ctx, session, AccountBusiness); err != nil {
		t.Fatalf("submit account type: %v", err)
	}

	// Business accounts cannot omit address and date of birth.
	if err := e.SubmitUserDetails(ctx, session, testDetails()); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing business fields, got %v", err)
	}
	if session.Step != StepUserDetails {
		t.Fatalf("validation failure must not advance, got %v", session.Step)
	}

	details := testDetails()
	details.Address = "1 Analytical Way"
	details.DOB = "1985-12-10"
	if err := e.SubmitUserDetails(ctx, session, details); err != nil {
		t.Fatalf("submit business details: %v", err)
	}
	if err := e.SubmitOtp(ctx, session, "A1B2C3"); err != nil {
		t.Fatalf("submit otp: %v", err)
	}
	if _, err := e.SubmitPassword(ctx, session, PasswordInput{Password: "Str0ng!pass", ConfirmPassword: "Str0ng!pass"}); err != nil {
		t.Fatalf("submit password: %v", err)
	}

	req := api.signupCalls[0]
	if req.AccountType != AccountBusiness {
		t.Fatalf("unexpected wire account type %q", req.AccountType)
	}
	if req.Address != "1 Analytical Way" || req.DateOfBirth != "1985-12-10" {
		t.Fatalf("business fields lost on the wire: %+v", req)
	}
}

func TestSignupStepOrderGuard(t *testing.T) {
	e := newTestEngine(t, &fakeAuthAPI{})
	ctx := context.Background()

	session, _ := e.StartSignup(ctx, "")

	if err := e.SubmitOtp(ctx, session, "A1B2C3"); !errors.Is(err, ErrStepOrder) {
		t.Fatalf("otp before details should fail with ErrStepOrder, got %v", err)
	}
	if _, err := e.SubmitPassword(ctx, session, PasswordInput{Password: "Str0ng!pass", ConfirmPassword: "Str0ng!pass"}); !errors.Is(err, ErrStepOrder) {
		t.Fatalf("password before details should fail with ErrStepOrder, got %v", err)
	}
	if err := e.SubmitUserDetails(ctx, session, testDetails()); !errors.Is(err, ErrStepOrder) {
		t.Fatalf("details before account type should fail with ErrStepOrder, got %v", err)
	}
	if session.Step != StepSelectAccountType {
		t.Fatalf("guarded submits must not advance, at %v", session.Step)
	}
}

func TestSignupMissingAccountTypeRewinds(t *testing.T) {
	e := newTestEngine(t, &fakeAuthAPI{})
	ctx := context.Background()

	session, _ := e.StartSignup(ctx, "")
	if err := e.SubmitAccountType(ctx, session, AccountIndividual); err != nil {
		t.Fatalf("submit account type: %v", err)
	}

	// Simulate state lost between steps.
	session.AccountType = ""

	err := e.SubmitUserDetails(ctx, session, testDetails())
	if !errors.Is(err, ErrStepOrder) {
		t.Fatalf("expected ErrStepOrder, got %v", err)
	}
	if session.Step != StepSelectAccountType {
		t.Fatalf("expected rewind to first step, got %v", session.Step)
	}
}

func TestSignupMissingDetailsStartsOver(t *testing.T) {
	e := newTestEngine(t, &fakeAuthAPI{})
	ctx := context.Background()

	session, _ := e.StartSignup(ctx, "")
	_ = e.SubmitAccountType(ctx, session, AccountIndividual)
	_ = e.SubmitUserDetails(ctx, session, testDetails())
	_ = e.SubmitOtp(ctx, session, "A1B2C3")

	session.Details = nil

	_, err := e.SubmitPassword(ctx, session, PasswordInput{Password: "Str0ng!pass", ConfirmPassword: "Str0ng!pass"})
	if !errors.Is(err, ErrStartOver) {
		t.Fatalf("expected ErrStartOver, got %v", err)
	}
	if session.Step != StepSelectAccountType {
		t.Fatalf("expected full rewind, got %v", session.Step)
	}
}

func TestSignupOtpRetries(t *testing.T) {
	api := &fakeAuthAPI{
		verifyOtpErrs: []error{
			backendFailure(ErrUnauthorized),
			backendFailure(ErrUnauthorized),
			backendFailure(ErrUnauthorized),
			nil,
		},
	}
	e := newTestEngine(t, api)
	ctx := context.Background()

	session, _ := e.StartSignup(ctx, "")
	_ = e.SubmitAccountType(ctx, session, AccountIndividual)
	_ = e.SubmitUserDetails(ctx, session, testDetails())

	for i := 0; i < 3; i++ {
		err := e.SubmitOtp(ctx, session, "WRONG1")
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("attempt %d: expected ErrUnauthorized, got %v", i+1, err)
		}
		if session.Step != StepVerifyEmail {
			t.Fatalf("attempt %d: failed otp must stay on verify step, got %v", i+1, session.Step)
		}
	}

	if err := e.SubmitOtp(ctx, session, "A1B2C3"); err != nil {
		t.Fatalf("fourth attempt should pass, got %v", err)
	}
	if session.Step != StepSetPassword {
		t.Fatalf("expected advance after success, got %v", session.Step)
	}
	if got := e.metrics.Value(MetricOtpRejected); got != 3 {
		t.Fatalf("expected 3 rejected otp metrics, got %d", got)
	}
}

func TestSignupResendOtpStaysInPlace(t *testing.T) {
	api := &fakeAuthAPI{}
	e := newTestEngine(t, api)
	ctx := context.Background()

	session, _ := e.StartSignup(ctx, "")
	_ = e.SubmitAccountType(ctx, session, AccountIndividual)
	_ = e.SubmitUserDetails(ctx, session, testDetails())

	if err := e.ResendOtp(ctx, session); err != nil {
		t.Fatalf("resend: %v", err)
	}
	if session.Step != StepVerifyEmail {
		t.Fatalf("resend must not advance, got %v", session.Step)
	}
	if api.requestOtpCalls != 2 {
		t.Fatalf("expected two otp requests, got %d", api.requestOtpCalls)
	}
}

func TestSignupExchangeFailureTolerated(t *testing.T) {
	api := &fakeAuthAPI{signInErr: backendFailure(ErrServerError)}
	e := newTestEngine(t, api)
	ctx := context.Background()

	session, _ := e.StartSignup(ctx, "")
	_ = e.SubmitAccountType(ctx, session, AccountIndividual)
	_ = e.SubmitUserDetails(ctx, session, testDetails())
	_ = e.SubmitOtp(ctx, session, "A1B2C3")

	result, err := e.SubmitPassword(ctx, session, PasswordInput{Password: "Str0ng!pass", ConfirmPassword: "Str0ng!pass"})
	if err != nil {
		t.Fatalf("signup itself succeeded, must not error: %v", err)
	}
	if result.AccessToken != "" {
		t.Fatalf("expected empty token on exchange failure, got %q", result.AccessToken)
	}
	if result.RedirectURL != "/sign-in?redirect=%2Fdashboard" {
		t.Fatalf("expected sign-in route with preserved destination, got %q", result.RedirectURL)
	}
	if session.Step != StepDone {
		t.Fatalf("expected done, got %v", session.Step)
	}
	if got := e.metrics.Value(MetricSignInExchangeFailure); got != 1 {
		t.Fatalf("expected exchange failure metric, got %d", got)
	}
}

func TestSignupBackendFailureStaysOnStep(t *testing.T) {
	api := &fakeAuthAPI{signupErr: backendFailure(ErrServerError)}
	e := newTestEngine(t, api)
	ctx := context.Background()

	session, _ := e.StartSignup(ctx, "")
	_ = e.SubmitAccountType(ctx, session, AccountIndividual)
	_ = e.SubmitUserDetails(ctx, session, testDetails())
	_ = e.SubmitOtp(ctx, session, "A1B2C3")

	_, err := e.SubmitPassword(ctx, session, PasswordInput{Password: "Str0ng!pass", ConfirmPassword: "Str0ng!pass"})
	if !errors.Is(err, ErrServerError) {
		t.Fatalf("expected ErrServerError, got %v", err)
	}
	if session.Step != StepSetPassword {
		t.Fatalf("failed signup must stay on password step, got %v", session.Step)
	}
}

func TestSignupSessionExpiry(t *testing.T) {
	e := newTestEngine(t, &fakeAuthAPI{})
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := freezeClock(e, base)

	session, _ := e.StartSignup(ctx, "")
	*now = base.Add(e.cfg.Signup.SessionTTL + time.Minute)

	if err := e.SubmitAccountType(ctx, session, AccountIndividual); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestSignupBusyLatch(t *testing.T) {
	e := newTestEngine(t, &fakeAuthAPI{})
	ctx := context.Background()

	session, _ := e.StartSignup(ctx, "")
	if !session.inflight.CompareAndSwap(false, true) {
		t.Fatal("latch setup failed")
	}

	if err := e.SubmitAccountType(ctx, session, AccountIndividual); !errors.Is(err, ErrStepBusy) {
		t.Fatalf("expected ErrStepBusy, got %v", err)
	}

	session.inflight.Store(false)
	if err := e.SubmitAccountType(ctx, session, AccountIndividual); err != nil {
		t.Fatalf("latch released, submit should pass: %v", err)
	}
}
