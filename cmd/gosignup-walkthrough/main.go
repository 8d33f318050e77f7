package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	goSignup "github.com/MrEthical07/goSignup"
	"github.com/MrEthical07/goSignup/internal"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		baseURL   = flag.String("base-url", "", "auth API base URL; if empty, an in-process stub backend is used")
		redisAddr = flag.String("redis-addr", "", "redis address for flow state; if empty with -flow-state, miniredis is used")
		flowState = flag.Bool("flow-state", false, "persist wizard progress in redis")
		audit     = flag.Bool("audit", false, "print audit events as JSON lines")
		email     = flag.String("email", "ada@example.com", "email to sign up with")
	)
	flag.Parse()

	ctx := context.Background()

	var stub *stubBackend
	target := *baseURL
	if target == "" {
		var err error
		stub, err = startStubBackend()
		if err != nil {
			fmt.Fprintf(os.Stderr, "stub backend failed: %v\n", err)
			os.Exit(1)
		}
		defer stub.close()
		target = stub.url
		fmt.Printf("using stub backend at %s\n", target)
	}

	builder := goSignup.New().
		WithBaseURL(target).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true)

	if *audit {
		builder = builder.WithAuditSink(goSignup.NewJSONWriterSink(os.Stdout))
	}

	var cleanup func()
	if *flowState {
		addr := *redisAddr
		if addr == "" {
			mr, err := miniredis.Run()
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
				os.Exit(1)
			}
			addr = mr.Addr()
			cleanup = mr.Close
			fmt.Printf("using miniredis at %s\n", addr)
		}
		client := redis.NewClient(&redis.Options{Addr: addr})
		builder = builder.WithRedis(client).WithFlowStatePersistence(true)
	}
	if cleanup != nil {
		defer cleanup()
	}

	engine, err := builder.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	if err := runSignup(ctx, engine, stub, *email); err != nil {
		fmt.Fprintf(os.Stderr, "signup walkthrough failed: %v\n", err)
		os.Exit(1)
	}
	if err := runReset(ctx, engine, stub, *email); err != nil {
		fmt.Fprintf(os.Stderr, "reset walkthrough failed: %v\n", err)
		os.Exit(1)
	}

	snap := engine.MetricsSnapshot()
	fmt.Println("---- metrics ----")
	for id, v := range snap.Counters {
		if v > 0 {
			fmt.Printf("  metric %d = %d\n", id, v)
		}
	}
}

func runSignup(ctx context.Context, engine *goSignup.Engine, stub *stubBackend, email string) error {
	session, err := engine.StartSignup(ctx, "/orders?page=2")
	if err != nil {
		return err
	}
	fmt.Printf("signup %s at step %s (redirect %s)\n", session.ID, session.Step, session.Redirect.Path)

	if err := engine.SubmitAccountType(ctx, session, goSignup.AccountIndividual); err != nil {
		return err
	}
	fmt.Printf("  -> %s\n", session.Step)

	if err := engine.SubmitUserDetails(ctx, session, goSignup.UserDetails{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Phone:     "+1 (555) 010-9999",
	}); err != nil {
		return err
	}
	fmt.Printf("  -> %s\n", session.Step)

	code := "A1B2C3"
	if stub != nil {
		code = stub.lastOtp(email)
		fmt.Printf("  stub issued otp %s\n", code)
	}
	if err := engine.SubmitOtp(ctx, session, code); err != nil {
		return err
	}
	fmt.Printf("  -> %s\n", session.Step)

	result, err := engine.SubmitPassword(ctx, session, goSignup.PasswordInput{
		Password:        "Str0ng!pass",
		ConfirmPassword: "Str0ng!pass",
	})
	if err != nil {
		return err
	}
	fmt.Printf("  -> %s (user %s)\n", session.Step, result.UserID)

	cb, err := engine.BuildCallbackURL("https://app.example.com", result.AccessToken, session.Redirect)
	if err != nil {
		return err
	}
	fmt.Printf("  callback: %s\n", cb)
	return nil
}

func runReset(ctx context.Context, engine *goSignup.Engine, stub *stubBackend, email string) error {
	session, err := engine.StartReset(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("reset %s at step %s\n", session.ID, session.Step)

	if err := engine.SubmitResetRequest(ctx, session, email); err != nil {
		return err
	}
	fmt.Printf("  -> %s\n", session.Step)

	code := "RESET-CODE-1"
	if stub != nil {
		code = stub.lastResetCode(email)
		fmt.Printf("  stub issued reset code %s\n", code)
	}
	if err := engine.SubmitResetCode(ctx, session, code); err != nil {
		return err
	}
	fmt.Printf("  -> %s\n", session.Step)

	if err := engine.SubmitNewPassword(ctx, session, goSignup.PasswordInput{
		Password:        "N3w!passwrd",
		ConfirmPassword: "N3w!passwrd",
	}); err != nil {
		return err
	}
	fmt.Printf("  -> %s\n", session.Step)
	return nil
}

// stubBackend is a tiny in-memory rendition of the auth API, enough to walk
// both wizards end to end.
type stubBackend struct {
	url    string
	server *http.Server

	mu         sync.Mutex
	otps       map[string]string
	resetCodes map[string]string
	users      map[string]string
}

func startStubBackend() (*stubBackend, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	s := &stubBackend{
		otps:       map[string]string{},
		resetCodes: map[string]string{},
		users:      map[string]string{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/request-verify-email-code", s.handleRequestOtp)
	mux.HandleFunc("/auth/verify-email-code", s.handleVerifyOtp)
	mux.HandleFunc("/auth/signup", s.handleSignup)
	mux.HandleFunc("/auth/signin", s.handleSignIn)
	mux.HandleFunc("/auth/send-reset-token", s.handleSendReset)
	mux.HandleFunc("/auth/reset-password", s.handleResetPassword)
	mux.HandleFunc("/user/profile", s.handleProfile)

	s.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	s.url = "http://" + listener.Addr().String()
	go func() { _ = s.server.Serve(listener) }()

	return s, nil
}

func (s *stubBackend) close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.server.Shutdown(ctx)
}

func (s *stubBackend) lastOtp(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.otps[email]
}

func (s *stubBackend) lastResetCode(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetCodes[email]
}

func decodeBody(r *http.Request) map[string]string {
	out := map[string]string{}
	_ = json.NewDecoder(r.Body).Decode(&out)
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *stubBackend) handleRequestOtp(w http.ResponseWriter, r *http.Request) {
	body := decodeBody(r)
	otp, err := internal.NewOTP(6)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "otp generation failed"})
		return
	}

	s.mu.Lock()
	s.otps[body["email"]] = otp
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"message": "code sent"})
}

func (s *stubBackend) handleVerifyOtp(w http.ResponseWriter, r *http.Request) {
	body := decodeBody(r)

	s.mu.Lock()
	expected := s.otps[body["email"]]
	s.mu.Unlock()

	if expected == "" || body["code"] != expected {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "wrong code"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "verified"})
}

func (s *stubBackend) handleSignup(w http.ResponseWriter, r *http.Request) {
	body := decodeBody(r)
	if body["password"] == "" || body["password"] != body["confirmpassword"] {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "password mismatch"})
		return
	}

	s.mu.Lock()
	s.users[body["email"]] = body["password"]
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]string{"message": "account created"})
}

func (s *stubBackend) handleSignIn(w http.ResponseWriter, r *http.Request) {
	body := decodeBody(r)

	s.mu.Lock()
	stored := s.users[body["email"]]
	s.mu.Unlock()

	if stored == "" || stored != body["password"] {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":        map[string]string{"_id": "stub-user-1", "email": body["email"]},
		"accessToken": "stub-token",
	})
}

func (s *stubBackend) handleSendReset(w http.ResponseWriter, r *http.Request) {
	body := decodeBody(r)
	code, err := internal.NewOTP(8)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "code generation failed"})
		return
	}

	s.mu.Lock()
	s.resetCodes[body["email"]] = code
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"message": "reset code sent"})
}

func (s *stubBackend) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	body := decodeBody(r)

	// The real backend maps the reset code back to the account itself;
	// the payload carries no email.
	s.mu.Lock()
	var email string
	for candidate, code := range s.resetCodes {
		if code != "" && code == body["resetCode"] {
			email = candidate
			break
		}
	}
	s.mu.Unlock()

	if email == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid reset code"})
		return
	}
	if body["newPassword"] != body["confirmPassword"] {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "passwords do not match"})
		return
	}

	s.mu.Lock()
	s.users[email] = body["newPassword"]
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

func (s *stubBackend) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer stub-token" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "unauthorized"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user": map[string]string{"_id": "stub-user-1", "email": "ada@example.com"},
	})
}
