package goSignup

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config defines a public type used by goSignup APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	API       APIConfig
	Redirect  RedirectConfig
	Signup    SignupConfig
	Reset     ResetConfig
	FlowState FlowStateConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig defines a public type used by goSignup APIs.
//
// APIConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type APIConfig struct {
	BaseURL          string
	SignupTimeout    time.Duration
	RequestTimeout   time.Duration
	MaxResponseBytes int64
	UserAgent        string
}

/*
====================================
REDIRECT CONFIG
====================================
*/

// RedirectConfig defines a public type used by goSignup APIs.
//
// RedirectConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RedirectConfig struct {
	DefaultPath    string
	SignInPath     string
	CallbackPath   string
	AllowedOrigins []string
}

/*
====================================
SIGNUP CONFIG
====================================
*/

// SignupConfig defines a public type used by goSignup APIs.
//
// SignupConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SignupConfig struct {
	OTPLength      int
	SessionTTL     time.Duration
	DefaultAddress string
	DefaultDOB     string
}

/*
====================================
RESET CONFIG
====================================
*/

// ResetConfig defines a public type used by goSignup APIs.
//
// ResetConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ResetConfig struct {
	SessionTTL    time.Duration
	MinCodeLength int
	MaxCodeLength int
}

/*
====================================
FLOW STATE CONFIG
====================================
*/

// FlowStateConfig defines a public type used by goSignup APIs.
//
// FlowStateConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type FlowStateConfig struct {
	Enabled     bool
	RedisPrefix string
	TTL         time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig defines a public type used by goSignup APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by goSignup APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULTS
====================================
*/

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			SignupTimeout:    15 * time.Second,
			RequestTimeout:   10 * time.Second,
			MaxResponseBytes: 1 << 20,
			UserAgent:        "goSignup",
		},
		Redirect: RedirectConfig{
			DefaultPath:  "/dashboard",
			SignInPath:   "/sign-in",
			CallbackPath: "/auth/callback",
		},
		Signup: SignupConfig{
			OTPLength:      6,
			SessionTTL:     30 * time.Minute,
			DefaultAddress: "N/A",
			DefaultDOB:     "1990-01-01",
		},
		Reset: ResetConfig{
			SessionTTL:    15 * time.Minute,
			MinCodeLength: 6,
			MaxCodeLength: 100,
		},
		FlowState: FlowStateConfig{
			Enabled:     false,
			RedisPrefix: "gs",
			TTL:         30 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// API. BaseURL may stay empty when the caller wires its own AuthAPI;
	// Build enforces it for the bundled client.
	if c.API.BaseURL != "" {
		u, err := url.Parse(c.API.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.New("API BaseURL must be an absolute URL")
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return errors.New("API BaseURL scheme must be http or https")
		}
	}
	if c.API.SignupTimeout <= 0 {
		return errors.New("API SignupTimeout must be > 0")
	}
	if c.API.RequestTimeout <= 0 {
		return errors.New("API RequestTimeout must be > 0")
	}
	if c.API.MaxResponseBytes <= 0 {
		return errors.New("API MaxResponseBytes must be > 0")
	}

	// Redirect
	if !strings.HasPrefix(c.Redirect.DefaultPath, "/") || strings.HasPrefix(c.Redirect.DefaultPath, "//") {
		return errors.New("Redirect DefaultPath must be a relative path starting with a single '/'")
	}
	if !strings.HasPrefix(c.Redirect.SignInPath, "/") || strings.HasPrefix(c.Redirect.SignInPath, "//") {
		return errors.New("Redirect SignInPath must be a relative path starting with a single '/'")
	}
	if !strings.HasPrefix(c.Redirect.CallbackPath, "/") || strings.HasPrefix(c.Redirect.CallbackPath, "//") {
		return errors.New("Redirect CallbackPath must be a relative path starting with a single '/'")
	}
	for _, origin := range c.Redirect.AllowedOrigins {
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return errors.New("Redirect AllowedOrigins entries must be http(s) origins")
		}
		if u.Path != "" && u.Path != "/" {
			return errors.New("Redirect AllowedOrigins entries must not carry a path")
		}
	}

	// Signup
	if c.Signup.OTPLength < 4 || c.Signup.OTPLength > 10 {
		return errors.New("Signup OTPLength must be between 4 and 10")
	}
	if c.Signup.SessionTTL <= 0 {
		return errors.New("Signup SessionTTL must be > 0")
	}

	// Reset
	if c.Reset.SessionTTL <= 0 {
		return errors.New("Reset SessionTTL must be > 0")
	}
	if c.Reset.MinCodeLength <= 0 {
		return errors.New("Reset MinCodeLength must be > 0")
	}
	if c.Reset.MaxCodeLength < c.Reset.MinCodeLength {
		return errors.New("Reset MaxCodeLength must be >= MinCodeLength")
	}

	// FlowState
	if c.FlowState.Enabled {
		if c.FlowState.RedisPrefix == "" {
			return errors.New("FlowState RedisPrefix is required when FlowState is enabled")
		}
		if c.FlowState.TTL <= 0 {
			return errors.New("FlowState TTL must be > 0 when FlowState is enabled")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}

	return nil
}
