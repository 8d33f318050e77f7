package goSignup

import (
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"
)

// Builder defines a public type used by goSignup APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  *redis.Client

	api        AuthAPI
	httpClient *http.Client
	auditSink  AuditSink
	clock      Clock

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithBaseURL describes the withbaseurl operation and its observable behavior.
//
// WithBaseURL may return an error when input validation, dependency calls, or security checks fail.
// WithBaseURL does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.API.BaseURL = baseURL
	return b
}

// WithHTTPClient describes the withhttpclient operation and its observable behavior.
//
// WithHTTPClient may return an error when input validation, dependency calls, or security checks fail.
// WithHTTPClient does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithAuthAPI describes the withauthapi operation and its observable behavior.
//
// WithAuthAPI may return an error when input validation, dependency calls, or security checks fail.
// WithAuthAPI does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuthAPI(api AuthAPI) *Builder {
	b.api = api
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithAllowedOrigins describes the withallowedorigins operation and its observable behavior.
//
// WithAllowedOrigins may return an error when input validation, dependency calls, or security checks fail.
// WithAllowedOrigins does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAllowedOrigins(origins ...string) *Builder {
	b.config.Redirect.AllowedOrigins = append(b.config.Redirect.AllowedOrigins, origins...)
	return b
}

// WithFlowStatePersistence describes the withflowstatepersistence operation and its observable behavior.
//
// WithFlowStatePersistence may return an error when input validation, dependency calls, or security checks fail.
// WithFlowStatePersistence does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithFlowStatePersistence(enabled bool) *Builder {
	b.config.FlowState.Enabled = enabled
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	if sink != nil {
		b.config.Audit.Enabled = true
	}
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms may return an error when input validation, dependency calls, or security checks fail.
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithClock describes the withclock operation and its observable behavior.
//
// WithClock may return an error when input validation, dependency calls, or security checks fail.
// WithClock does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithClock(clock Clock) *Builder {
	b.clock = clock
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	if err := b.config.Validate(); err != nil {
		return nil, err
	}
	if b.api == nil && b.config.API.BaseURL == "" {
		return nil, errors.New("API BaseURL is required without a custom AuthAPI")
	}

	if b.config.FlowState.Enabled && b.redis == nil {
		return nil, errors.New("flow state persistence requires a redis client")
	}

	api := b.api
	if api == nil {
		api = NewClient(b.config.API, b.httpClient)
	}

	engine := &Engine{
		cfg:       b.config,
		api:       api,
		validate:  newSchemaValidator(),
		sanitizer: NewRedirectSanitizer(b.config.Redirect),
		metrics:   NewMetrics(b.config.Metrics),
		audit:     newAuditDispatcher(b.config.Audit, b.auditSink),
		clock:     b.clock,
	}

	if b.config.FlowState.Enabled {
		engine.flowStore = newFlowStateStore(b.redis, b.config.FlowState)
	}

	b.built = true
	return engine, nil
}
