package goSignup

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return rdb
}

// fakeAuthAPI scripts backend behavior per operation. A nil scripted error
// means success. verifyOtpErrs is consumed one entry per call so retry
// sequences can be expressed.
type fakeAuthAPI struct {
	mu sync.Mutex

	signupErr     error
	signInErr     error
	signInResult  *SignInResult
	requestOtpErr error
	verifyOtpErrs []error
	resetReqErr   error
	resetErr      error
	profile       *UserProfile

	signupCalls     []SignupRequest
	signInCalls     int
	requestOtpCalls int
	verifyOtpCalls  int
	resetReqCalls   int
	resetCalls      []string
	profileCalls    int
}

func (f *fakeAuthAPI) CompleteSignup(ctx context.Context, req SignupRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signupCalls = append(f.signupCalls, req)
	return f.signupErr
}

func (f *fakeAuthAPI) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signInCalls++
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	if f.signInResult != nil {
		return f.signInResult, nil
	}
	return &SignInResult{UserID: "user-1", Email: email, AccessToken: "token-1"}, nil
}

func (f *fakeAuthAPI) RequestOtp(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requestOtpCalls++
	return f.requestOtpErr
}

func (f *fakeAuthAPI) VerifyOtp(ctx context.Context, email, otp string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyOtpCalls++
	if len(f.verifyOtpErrs) == 0 {
		return nil
	}
	err := f.verifyOtpErrs[0]
	f.verifyOtpErrs = f.verifyOtpErrs[1:]
	return err
}

func (f *fakeAuthAPI) RequestPasswordReset(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetReqCalls++
	return f.resetReqErr
}

func (f *fakeAuthAPI) ResetPasswordWithCode(ctx context.Context, email, resetCode, newPassword string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetCalls = append(f.resetCalls, resetCode)
	return f.resetErr
}

func (f *fakeAuthAPI) GetUserProfile(ctx context.Context, accessToken string) *UserProfile {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profileCalls++
	return f.profile
}

func newTestEngine(t *testing.T, api AuthAPI) *Engine {
	t.Helper()

	cfg := defaultConfig()
	engine := &Engine{
		cfg:       cfg,
		api:       api,
		validate:  newSchemaValidator(),
		sanitizer: NewRedirectSanitizer(cfg.Redirect),
		metrics:   NewMetrics(MetricsConfig{Enabled: true}),
	}
	t.Cleanup(engine.Close)

	return engine
}

func backendFailure(kind error) *BackendError {
	return &BackendError{Kind: kind, Message: kind.Error()}
}

func testDetails() UserDetails {
	return UserDetails{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Phone:     "+1 (555) 010-9999",
	}
}

func freezeClock(e *Engine, at time.Time) *time.Time {
	now := at
	e.clock = func() time.Time { return now }
	return &now
}
