// Package goSignup provides a multi-step sign-up, sign-in, and password-reset
// orchestration engine backed by a remote authentication HTTP API: step
// sequencing with ordering guards, input validation schemas, a tolerant API
// client, and redirect-target sanitization.
//
// The package is designed for concurrent server workloads: Engine methods are safe
// to call from multiple goroutines after initialization through [Builder.Build].
// Individual flow sessions are single-actor by contract and serialized with an
// in-flight latch; a submit that arrives while another is in progress fails fast
// with [ErrStepBusy].
//
// # Architecture boundaries
//
// goSignup is the public surface. It exposes [Engine], [Builder], [Config], and
// value types (SignupSession, ResetSession, SanitizedRedirect, etc.).
// Identifier generation lives under internal/ and is never exported.
//
// # What this package must NOT do
//
//   - Issue, verify, or refresh credentials itself. All credential decisions are made
//     by the remote authentication API; goSignup only orchestrates the calls.
//   - Surface raw backend failures to callers. Every backend outcome is folded into
//     the exported error taxonomy plus a displayable message.
//   - Accept protocol-relative URLs, non-http(s) schemes, or absolute URLs outside
//     the configured origin allow-list as post-auth redirect targets.
//
// # Failure contract
//
// Client operations never panic on backend misbehavior. A malformed response body,
// a timeout, or an unreachable host each map to a sentinel in the error taxonomy
// (ErrInvalidInput, ErrUnauthorized, ErrNotFound, ErrServerError, ErrTimeout,
// ErrNetworkUnreachable, ErrUnknownFailure) and carry a human-readable message
// retrievable with [FailureMessage].
package goSignup
