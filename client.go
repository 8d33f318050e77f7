package goSignup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	pathSignup        = "/auth/signup"
	pathSignIn        = "/auth/signin"
	pathRequestOtp    = "/auth/request-verify-email-code"
	pathVerifyOtp     = "/auth/verify-email-code"
	pathSendResetCode = "/auth/send-reset-token"
	pathResetPassword = "/auth/reset-password"
	pathUserProfile   = "/user/profile"
)

// SignupRequest defines a public type used by goSignup APIs.
// It is the flattened payload posted to the signup endpoint. The wire field
// names follow the backend contract exactly, including the lowercase
// "confirmpassword" key.
type SignupRequest struct {
	AccountType     AccountType `json:"accountType"`
	FirstName       string      `json:"firstName"`
	LastName        string      `json:"lastName"`
	Email           string      `json:"email"`
	Phone           string      `json:"phone"`
	Address         string      `json:"address"`
	DateOfBirth     string      `json:"dob"`
	Password        string      `json:"password"`
	ConfirmPassword string      `json:"confirmpassword"`
}

// Client defines a public type used by goSignup APIs.
// It talks to the remote authentication API and folds every outcome into the
// exported error taxonomy. All methods are safe for concurrent use.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	signupTimeout  time.Duration
	requestTimeout time.Duration
	maxBody        int64
	userAgent      string
}

// NewClient describes the newclient operation and its observable behavior.
//
// NewClient may return an error when input validation, dependency calls, or security checks fail.
// NewClient does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewClient(cfg APIConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:     httpClient,
		signupTimeout:  cfg.SignupTimeout,
		requestTimeout: cfg.RequestTimeout,
		maxBody:        cfg.MaxResponseBytes,
		userAgent:      cfg.UserAgent,
	}
}

// envelope is the tolerant response shape. Older backend builds wrap the
// payload in "data", newer ones in "user", and some return it at the top
// level. The same tolerance applies to the id and token keys.
type envelope struct {
	Message string          `json:"message"`
	ErrMsg  string          `json:"error"`
	Data    json.RawMessage `json:"data"`
	User    json.RawMessage `json:"user"`

	ID          string `json:"id"`
	LegacyID    string `json:"_id"`
	Email       string `json:"email"`
	AccessToken string `json:"accessToken"`
	Token       string `json:"token"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Phone       string `json:"phone"`
	Verified    bool   `json:"verified"`
}

func (env *envelope) displayMessage() string {
	if env == nil {
		return ""
	}
	if env.Message != "" {
		return env.Message
	}
	return env.ErrMsg
}

func (env *envelope) unwrapped() *envelope {
	raw := env.Data
	if len(raw) == 0 {
		raw = env.User
	}
	if len(raw) == 0 {
		return env
	}
	inner := &envelope{}
	if err := json.Unmarshal(raw, inner); err != nil {
		return env
	}
	if inner.Message == "" {
		inner.Message = env.Message
	}
	if inner.AccessToken == "" && inner.Token == "" {
		inner.AccessToken = env.AccessToken
		inner.Token = env.Token
	}
	return inner
}

func (env *envelope) userID() string {
	if env.ID != "" {
		return env.ID
	}
	return env.LegacyID
}

func (env *envelope) accessToken() string {
	if env.AccessToken != "" {
		return env.AccessToken
	}
	return env.Token
}

// CompleteSignup describes the completesignup operation and its observable behavior.
//
// CompleteSignup may return an error when input validation, dependency calls, or security checks fail.
// CompleteSignup does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) CompleteSignup(ctx context.Context, req SignupRequest) error {
	_, err := c.postJSON(ctx, pathSignup, c.signupTimeout, req)
	return err
}

// SignIn describes the signin operation and its observable behavior.
//
// SignIn may return an error when input validation, dependency calls, or security checks fail.
// SignIn does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	env, err := c.postJSON(ctx, pathSignIn, c.requestTimeout, map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	inner := env.unwrapped()
	res := &SignInResult{
		UserID:      inner.userID(),
		Email:       inner.Email,
		AccessToken: inner.accessToken(),
	}
	if res.Email == "" {
		res.Email = email
	}
	return res, nil
}

// RequestOtp describes the requestotp operation and its observable behavior.
//
// RequestOtp may return an error when input validation, dependency calls, or security checks fail.
// RequestOtp does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) RequestOtp(ctx context.Context, email string) error {
	_, err := c.postJSON(ctx, pathRequestOtp, c.requestTimeout, map[string]string{
		"email": email,
	})
	return err
}

// VerifyOtp describes the verifyotp operation and its observable behavior.
//
// VerifyOtp may return an error when input validation, dependency calls, or security checks fail.
// VerifyOtp does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) VerifyOtp(ctx context.Context, email, otp string) error {
	_, err := c.postJSON(ctx, pathVerifyOtp, c.requestTimeout, map[string]string{
		"email": email,
		"code":  otp,
	})
	return err
}

// RequestPasswordReset describes the requestpasswordreset operation and its observable behavior.
//
// RequestPasswordReset may return an error when input validation, dependency calls, or security checks fail.
// RequestPasswordReset does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	_, err := c.postJSON(ctx, pathSendResetCode, c.requestTimeout, map[string]string{
		"email": email,
	})
	return err
}

// ResetPasswordWithCode describes the resetpasswordwithcode operation and its observable behavior.
//
// ResetPasswordWithCode may return an error when input validation, dependency calls, or security checks fail.
// ResetPasswordWithCode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) ResetPasswordWithCode(ctx context.Context, email, resetCode, newPassword string) error {
	// The backend resolves the account from the reset code alone; the email
	// parameter is session context and never goes on the wire.
	_, err := c.postJSON(ctx, pathResetPassword, c.requestTimeout, map[string]string{
		"resetCode":       strings.TrimSpace(resetCode),
		"newPassword":     newPassword,
		"confirmPassword": newPassword,
	})
	return err
}

// GetUserProfile describes the getuserprofile operation and its observable behavior.
//
// GetUserProfile may return an error when input validation, dependency calls, or security checks fail.
// GetUserProfile does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) GetUserProfile(ctx context.Context, accessToken string) *UserProfile {
	env, err := c.do(ctx, http.MethodGet, pathUserProfile, c.requestTimeout, nil, accessToken)
	if err != nil {
		return nil
	}

	inner := env.unwrapped()
	if inner.userID() == "" && inner.Email == "" {
		return nil
	}
	return &UserProfile{
		ID:        inner.userID(),
		Email:     inner.Email,
		FirstName: inner.FirstName,
		LastName:  inner.LastName,
		Phone:     inner.Phone,
		Verified:  inner.Verified,
	}
}

func (c *Client) postJSON(ctx context.Context, path string, timeout time.Duration, body any) (*envelope, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &BackendError{Kind: ErrUnknownFailure, Message: "could not encode request"}
	}
	return c.do(ctx, http.MethodPost, path, timeout, payload, "")
}

func (c *Client) do(ctx context.Context, method, path string, timeout time.Duration, payload []byte, bearer string) (*envelope, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &BackendError{Kind: ErrUnknownFailure, Message: "could not build request"}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return nil, classifyTransportError(err)
	}

	env := &envelope{}
	// A body that is not JSON is tolerated; classification then relies on
	// the status code alone.
	_ = json.Unmarshal(raw, env)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return env, nil
	}

	return nil, &BackendError{
		Kind:    taxonomyForStatus(resp.StatusCode),
		Message: fallbackMessage(env.displayMessage(), resp.StatusCode),
		Status:  resp.StatusCode,
	}
}

func taxonomyForStatus(status int) error {
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return ErrInvalidInput
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusNotFound:
		return ErrNotFound
	case status >= 500:
		return ErrServerError
	default:
		return ErrUnknownFailure
	}
}

func fallbackMessage(msg string, status int) string {
	if msg != "" {
		return msg
	}
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return "Please check your input and try again"
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return "You are not authorized to perform this action"
	case status == http.StatusNotFound:
		return "We could not find that account"
	case status >= 500:
		return "Something went wrong on our side, please try again"
	default:
		return "Something went wrong, please try again"
	}
}

func classifyTransportError(err error) *BackendError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &BackendError{Kind: ErrTimeout, Message: "The request timed out, please try again"}
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &BackendError{Kind: ErrTimeout, Message: "The request timed out, please try again"}
	}

	var ue *url.Error
	if errors.As(err, &ue) {
		return &BackendError{Kind: ErrNetworkUnreachable, Message: "Could not reach the server, check your connection"}
	}

	return &BackendError{Kind: ErrUnknownFailure, Message: "Something went wrong, please try again"}
}
