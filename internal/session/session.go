// Package session tracks whether the user is signed in and gates the rest
// of the application on it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/csheth/versescout/internal/api"
	"github.com/csheth/versescout/internal/failure"
)

// Status is the state of the session machine.
type Status int

const (
	StatusLoading Status = iota
	StatusAuthenticated
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "loading"
	}
}

// Access is what a gated screen may do with the current state.
type Access int

const (
	// AccessUndetermined means the check is still running; show a loading
	// indicator, neither the protected screen nor the login prompt.
	AccessUndetermined Access = iota
	AccessGranted
	AccessDenied
)

// State is a snapshot of the session.
type State struct {
	Identity  *api.Identity
	Status    Status
	LastError string
}

// Backend is the part of the API the store needs.
type Backend interface {
	Identity(ctx context.Context) (api.Identity, error)
	EndSession(ctx context.Context) error
	LoginURL() string
}

// Launcher hands the login URL to the identity provider flow.
type Launcher func(ctx context.Context, loginURL string) error

// ErrNoLauncher is returned by Login when no launcher was configured.
var ErrNoLauncher = failure.New(failure.Validation, "no login launcher configured")

// DefaultCheckTimeout bounds one shared identity request.
const DefaultCheckTimeout = 30 * time.Second

// Store owns the session state. It is safe for concurrent use.
type Store struct {
	backend      Backend
	launch       Launcher
	logger       *slog.Logger
	checks       singleflight.Group
	checkTimeout time.Duration

	mu    sync.RWMutex
	state State
	// gen changes whenever the session is ended locally; checks started
	// under an older generation do not write their result.
	gen uint64
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCheckTimeout bounds the identity request shared by concurrent Check
// calls.
func WithCheckTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.checkTimeout = d
		}
	}
}

// NewStore returns a store in the Loading state; call Check to resolve it.
func NewStore(backend Backend, launch Launcher, opts ...Option) *Store {
	s := &Store{
		backend:      backend,
		launch:       launch,
		logger:       slog.Default(),
		checkTimeout: DefaultCheckTimeout,
		state:        State{Status: StatusLoading},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "session")
	return s
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyState(s.state)
}

// Access maps the current status onto a gating decision.
func (s *Store) Access() Access {
	switch s.State().Status {
	case StatusAuthenticated:
		return AccessGranted
	case StatusUnauthenticated:
		return AccessDenied
	default:
		return AccessUndetermined
	}
}

// Check asks the backend who is signed in. Concurrent calls share a single
// request. A not-authenticated answer is a normal outcome and records no
// error; any other failure also ends Unauthenticated but keeps the error.
//
// The shared request is not tied to any one caller's context. A caller whose
// ctx ends first gets back the state it saw on entry and the request goes on
// for the others.
func (s *Store) Check(ctx context.Context) State {
	s.mu.Lock()
	prev := copyState(s.state)
	gen := s.gen
	s.state.Status = StatusLoading
	s.mu.Unlock()

	ch := s.checks.DoChan(fmt.Sprintf("check-%d", gen), func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.checkTimeout)
		defer cancel()
		identity, err := s.backend.Identity(callCtx)
		return s.apply(gen, identity, err), nil
	})
	select {
	case res := <-ch:
		return res.Val.(State)
	case <-ctx.Done():
		s.logger.Debug("session check abandoned by caller", "err", ctx.Err())
		return prev
	}
}

func (s *Store) apply(gen uint64, identity api.Identity, err error) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		s.logger.Debug("dropping session check from before sign-out")
		return copyState(s.state)
	}
	switch {
	case err == nil:
		s.state = State{Identity: &identity, Status: StatusAuthenticated}
		s.logger.Info("session established", "user", identity.ID)
	case failure.Classify(err) == failure.Auth:
		s.state = State{Status: StatusUnauthenticated}
		s.logger.Debug("not signed in")
	default:
		s.state = State{
			Status:    StatusUnauthenticated,
			LastError: fmt.Sprintf("Failed to verify login status: %v", err),
		}
		s.logger.Warn("session check failed", "err", err)
	}
	return copyState(s.state)
}

// Login starts the external sign-in flow. It does not change local state;
// call Check once the flow completes.
func (s *Store) Login(ctx context.Context) error {
	if s.launch == nil {
		return ErrNoLauncher
	}
	if err := s.launch(ctx, s.backend.LoginURL()); err != nil {
		s.recordError(fmt.Sprintf("Login failed: %v", err))
		return fmt.Errorf("launch login: %w", err)
	}
	return nil
}

// Logout ends the session. On failure the session is left as it was and
// only LastError changes.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.backend.EndSession(ctx); err != nil {
		s.recordError(fmt.Sprintf("Logout failed: %v", err))
		s.logger.Warn("logout failed", "err", err)
		return fmt.Errorf("end session: %w", err)
	}
	s.mu.Lock()
	s.gen++
	s.state = State{Status: StatusUnauthenticated}
	s.mu.Unlock()
	s.logger.Info("signed out")
	return nil
}

// Expire marks the session as ended after another component saw the backend
// reject the credentials.
func (s *Store) Expire(err error) {
	if err == nil || failure.Classify(err) != failure.Auth {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status != StatusAuthenticated {
		return
	}
	s.gen++
	s.state = State{Status: StatusUnauthenticated, LastError: "Your session has expired. Please sign in again."}
}

// ClearError drops LastError.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.state.LastError = ""
	s.mu.Unlock()
}

func (s *Store) recordError(msg string) {
	s.mu.Lock()
	s.state.LastError = msg
	s.mu.Unlock()
}

func copyState(st State) State {
	if st.Identity != nil {
		identity := *st.Identity
		st.Identity = &identity
	}
	return st
}

// IsUnauthenticated reports whether err means the caller must sign in.
func IsUnauthenticated(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled) && failure.Classify(err) == failure.Auth
}
