package goSignup

import (
	"context"
	"sync/atomic"
	"time"
)

// AccountType represents the kind of account being registered.
type AccountType string

const (
	// AccountIndividual is an exported constant or variable used by the signup engine.
	AccountIndividual AccountType = "USER"
	// AccountBusiness is an exported constant or variable used by the signup engine.
	AccountBusiness AccountType = "BUSINESS_USER"
)

// SignupStep represents the position of a signup session in the wizard.
type SignupStep uint8

const (
	// StepSelectAccountType is an exported constant or variable used by the signup engine.
	StepSelectAccountType SignupStep = iota
	// StepUserDetails is an exported constant or variable used by the signup engine.
	StepUserDetails
	// StepVerifyEmail is an exported constant or variable used by the signup engine.
	StepVerifyEmail
	// StepSetPassword is an exported constant or variable used by the signup engine.
	StepSetPassword
	// StepDone is an exported constant or variable used by the signup engine.
	StepDone
)

// String describes the string operation and its observable behavior.
func (s SignupStep) String() string {
	switch s {
	case StepSelectAccountType:
		return "select-account-type"
	case StepUserDetails:
		return "user-details"
	case StepVerifyEmail:
		return "verify-email"
	case StepSetPassword:
		return "set-password"
	case StepDone:
		return "done"
	default:
		return "unknown"
	}
}

// ResetStep represents the position of a password-reset session in the modal
// state machine.
type ResetStep uint8

const (
	// ResetStepRequest is an exported constant or variable used by the signup engine.
	ResetStepRequest ResetStep = iota
	// ResetStepVerify is an exported constant or variable used by the signup engine.
	ResetStepVerify
	// ResetStepNewPassword is an exported constant or variable used by the signup engine.
	ResetStepNewPassword
	// ResetStepSuccess is an exported constant or variable used by the signup engine.
	ResetStepSuccess
	// ResetStepError is an exported constant or variable used by the signup engine.
	ResetStepError
)

// String describes the string operation and its observable behavior.
func (s ResetStep) String() string {
	switch s {
	case ResetStepRequest:
		return "request"
	case ResetStepVerify:
		return "verify"
	case ResetStepNewPassword:
		return "new-password"
	case ResetStepSuccess:
		return "success"
	case ResetStepError:
		return "error"
	default:
		return "unknown"
	}
}

// UserDetails defines a public type used by goSignup APIs.
// It carries the identity fields collected on the second signup step. Address
// and DOB are required for business accounts and optional for individuals;
// the discriminated check runs against the account type chosen on step one.
type UserDetails struct {
	FirstName string `validate:"required,min=2,max=50"`
	LastName  string `validate:"required,min=2,max=50"`
	Email     string `validate:"required,email"`
	Phone     string `validate:"required,min=10,phoneshape"`
	Address   string
	DOB       string
}

// PasswordInput defines a public type used by goSignup APIs.
// It carries the credential pair collected on the final signup step.
type PasswordInput struct {
	Password        string `validate:"required,min=8,passwordpolicy"`
	ConfirmPassword string `validate:"required"`
}

// SignupResult defines a public type used by goSignup APIs.
// It is the terminal output of a completed signup: the identity the backend
// assigned plus the access token obtained from the post-signup sign-in
// exchange. AccessToken is empty when the exchange failed; the signup itself
// still succeeded in that case. RedirectURL is where the caller should send
// the user next: the sanitized destination after a successful exchange, or
// the sign-in route carrying the destination as a query parameter after a
// failed one.
type SignupResult struct {
	UserID      string
	Email       string
	AccessToken string
	RedirectURL string
}

// SignInResult defines a public type used by goSignup APIs.
type SignInResult struct {
	UserID      string
	Email       string
	AccessToken string
}

// UserProfile defines a public type used by goSignup APIs.
// Fields beyond ID and Email are best-effort: the backend omits them for
// accounts created before profile enrichment.
type UserProfile struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Verified  bool
}

// SanitizedRedirect defines a public type used by goSignup APIs.
// Path is either a relative path starting with a single slash or an absolute
// URL whose origin is on the configured allow-list. Fallback reports that the
// raw input was rejected and the configured default was substituted.
type SanitizedRedirect struct {
	Path     string
	Fallback bool
}

// SignupSession defines a public type used by goSignup APIs.
// It is the mutable state of one in-progress signup wizard. A session is
// single-actor: concurrent submits are rejected with ErrStepBusy rather than
// interleaved. Exported fields are snapshots maintained by Engine methods and
// must not be mutated by callers.
type SignupSession struct {
	ID          string
	Step        SignupStep
	AccountType AccountType
	Details     *UserDetails
	Redirect    SanitizedRedirect
	Result      *SignupResult
	CreatedAt   time.Time
	UpdatedAt   time.Time

	inflight atomic.Bool
}

// ResetSession defines a public type used by goSignup APIs.
// It is the mutable state of one in-progress password-reset modal. LastError
// holds the displayable message for ResetStepError and is cleared on retry.
type ResetSession struct {
	ID        string
	Step      ResetStep
	Email     string
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time

	resetCode string
	inflight  atomic.Bool
}

// AuthAPI is the outbound surface the engine drives. *Client is the
// production implementation; tests substitute fakes.
type AuthAPI interface {
	CompleteSignup(ctx context.Context, req SignupRequest) error
	SignIn(ctx context.Context, email, password string) (*SignInResult, error)
	RequestOtp(ctx context.Context, email string) error
	VerifyOtp(ctx context.Context, email, otp string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPasswordWithCode(ctx context.Context, email, resetCode, newPassword string) error
	GetUserProfile(ctx context.Context, accessToken string) *UserProfile
}

// Clock abstracts time for session timestamps. Production uses time.Now;
// tests freeze it.
type Clock func() time.Time
