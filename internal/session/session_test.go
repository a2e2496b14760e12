package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/csheth/versescout/internal/api"
	"github.com/csheth/versescout/internal/devserver"
)

type fakeBackend struct {
	identity  api.Identity
	err       error
	logoutErr error
	calls     atomic.Int32
	delay     time.Duration
}

func (f *fakeBackend) Identity(ctx context.Context) (api.Identity, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.identity, f.err
}

func (f *fakeBackend) EndSession(ctx context.Context) error { return f.logoutErr }

func (f *fakeBackend) LoginURL() string { return "https://idp.example.com/login" }

func TestNewStoreStartsLoading(t *testing.T) {
	s := NewStore(&fakeBackend{}, nil)
	if got := s.State().Status; got != StatusLoading {
		t.Fatalf("status = %v, want loading", got)
	}
	if s.Access() != AccessUndetermined {
		t.Fatal("loading must not grant or deny access")
	}
}

func TestCheckOutcomes(t *testing.T) {
	cases := []struct {
		name       string
		backend    *fakeBackend
		wantStatus Status
		wantError  bool
		wantAccess Access
	}{
		{
			name:       "authenticated",
			backend:    &fakeBackend{identity: api.Identity{ID: "u1", Email: "a@example.com"}},
			wantStatus: StatusAuthenticated,
			wantAccess: AccessGranted,
		},
		{
			name:       "not signed in",
			backend:    &fakeBackend{err: &api.Error{Status: http.StatusUnauthorized, Kind: api.KindUnauthenticated}},
			wantStatus: StatusUnauthenticated,
			wantAccess: AccessDenied,
		},
		{
			name:       "server error",
			backend:    &fakeBackend{err: &api.Error{Status: http.StatusInternalServerError, Kind: api.KindInternal}},
			wantStatus: StatusUnauthenticated,
			wantError:  true,
			wantAccess: AccessDenied,
		},
		{
			name:       "network error",
			backend:    &fakeBackend{err: errors.New("dial tcp: connection refused")},
			wantStatus: StatusUnauthenticated,
			wantError:  true,
			wantAccess: AccessDenied,
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := NewStore(tc.backend, nil)
			st := s.Check(context.Background())
			if st.Status != tc.wantStatus {
				t.Fatalf("status = %v, want %v", st.Status, tc.wantStatus)
			}
			if (st.LastError != "") != tc.wantError {
				t.Fatalf("LastError = %q, wantError=%v", st.LastError, tc.wantError)
			}
			if (st.Identity != nil) != (tc.wantStatus == StatusAuthenticated) {
				t.Fatalf("identity presence mismatch: %+v", st.Identity)
			}
			if s.Access() != tc.wantAccess {
				t.Fatalf("access = %v, want %v", s.Access(), tc.wantAccess)
			}
		})
	}
}

func TestConcurrentChecksShareRequest(t *testing.T) {
	backend := &fakeBackend{identity: api.Identity{ID: "u1"}, delay: 200 * time.Millisecond}
	s := NewStore(backend, nil)
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Check(context.Background())
		}()
	}
	wg.Wait()
	if n := backend.calls.Load(); n != 1 {
		t.Fatalf("backend calls = %d, want 1", n)
	}
}

// gatedBackend holds Identity until release is closed, failing early only
// if the request context ends.
type gatedBackend struct {
	identity api.Identity
	started  chan struct{}
	release  chan struct{}
	once     sync.Once
	calls    atomic.Int32
}

func newGatedBackend(identity api.Identity) *gatedBackend {
	return &gatedBackend{identity: identity, started: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedBackend) Identity(ctx context.Context) (api.Identity, error) {
	g.calls.Add(1)
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
		return g.identity, nil
	case <-ctx.Done():
		return api.Identity{}, ctx.Err()
	}
}

func (g *gatedBackend) EndSession(ctx context.Context) error { return nil }

func (g *gatedBackend) LoginURL() string { return "https://idp.example.com/login" }

func TestCancelledCallerDoesNotFailSharedCheck(t *testing.T) {
	backend := newGatedBackend(api.Identity{ID: "u1", Name: "Eli"})
	s := NewStore(backend, nil)

	ctxA, cancelA := context.WithCancel(context.Background())
	first := make(chan State, 1)
	go func() { first <- s.Check(ctxA) }()
	<-backend.started

	second := make(chan State, 1)
	go func() { second <- s.Check(context.Background()) }()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	if st := <-first; st.LastError != "" || st.Status == StatusAuthenticated {
		t.Fatalf("cancelled caller got %+v, want its entry state", st)
	}
	if st := s.State(); st.LastError != "" {
		t.Fatalf("cancelled caller wrote an error: %+v", st)
	}

	close(backend.release)
	select {
	case st := <-second:
		if st.Status != StatusAuthenticated || st.Identity == nil || st.LastError != "" {
			t.Fatalf("second caller = %+v, want authenticated", st)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second caller never returned")
	}
	if st := s.State(); st.Status != StatusAuthenticated {
		t.Fatalf("store status = %v, want authenticated", st.Status)
	}
}

func TestCheckFinishingAfterLogoutIsDropped(t *testing.T) {
	backend := newGatedBackend(api.Identity{ID: "u1"})
	s := NewStore(backend, nil)

	done := make(chan State, 1)
	go func() { done <- s.Check(context.Background()) }()
	<-backend.started

	if err := s.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	close(backend.release)

	if st := <-done; st.Status != StatusUnauthenticated || st.Identity != nil {
		t.Fatalf("late check returned %+v", st)
	}
	if st := s.State(); st.Status != StatusUnauthenticated || st.Identity != nil {
		t.Fatalf("late check overwrote sign-out: %+v", st)
	}
}

func TestCheckTimeoutIsStoreOwned(t *testing.T) {
	backend := newGatedBackend(api.Identity{ID: "u1"})
	s := NewStore(backend, nil, WithCheckTimeout(50*time.Millisecond))

	st := s.Check(context.Background())
	if st.Status != StatusUnauthenticated || !strings.Contains(st.LastError, "deadline exceeded") {
		t.Fatalf("state = %+v, want timeout error", st)
	}
}

func TestStateIsCopied(t *testing.T) {
	s := NewStore(&fakeBackend{identity: api.Identity{ID: "u1", Name: "Eli"}}, nil)
	st := s.Check(context.Background())
	st.Identity.Name = "changed"
	if got := s.State().Identity.Name; got != "Eli" {
		t.Fatalf("store identity mutated through snapshot: %q", got)
	}
}

func TestLogoutFailureKeepsSession(t *testing.T) {
	backend := &fakeBackend{identity: api.Identity{ID: "u1"}}
	s := NewStore(backend, nil)
	s.Check(context.Background())

	backend.logoutErr = &api.Error{Status: http.StatusBadGateway, Kind: api.KindUnavailable}
	if err := s.Logout(context.Background()); err == nil {
		t.Fatal("Logout should report the failure")
	}
	st := s.State()
	if st.Status != StatusAuthenticated || st.Identity == nil {
		t.Fatalf("session changed after failed logout: %+v", st)
	}
	if !strings.Contains(st.LastError, "Logout failed") {
		t.Fatalf("LastError = %q", st.LastError)
	}

	backend.logoutErr = nil
	if err := s.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if st := s.State(); st.Status != StatusUnauthenticated || st.Identity != nil || st.LastError != "" {
		t.Fatalf("state after logout = %+v", st)
	}
}

func TestLoginLaunchesWithoutStateChange(t *testing.T) {
	var launched string
	s := NewStore(&fakeBackend{}, func(ctx context.Context, url string) error {
		launched = url
		return nil
	})
	if err := s.Login(context.Background()); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if launched != "https://idp.example.com/login" {
		t.Fatalf("launched %q", launched)
	}
	if s.State().Status != StatusLoading {
		t.Fatal("Login must not change the session status")
	}

	noLauncher := NewStore(&fakeBackend{}, nil)
	if err := noLauncher.Login(context.Background()); !errors.Is(err, ErrNoLauncher) {
		t.Fatalf("err = %v, want ErrNoLauncher", err)
	}
}

func TestExpireOnlyAffectsAuthenticated(t *testing.T) {
	s := NewStore(&fakeBackend{identity: api.Identity{ID: "u1"}}, nil)
	s.Check(context.Background())
	s.Expire(errors.New("boom"))
	if s.State().Status != StatusAuthenticated {
		t.Fatal("non-auth errors must not expire the session")
	}
	s.Expire(&api.Error{Status: http.StatusUnauthorized, Kind: api.KindUnauthenticated})
	if st := s.State(); st.Status != StatusUnauthenticated || st.LastError == "" {
		t.Fatalf("state = %+v", st)
	}
}

func TestSessionAgainstDevServer(t *testing.T) {
	srv := devserver.New(devserver.Config{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	jar, err := api.NewPersistentJar(&mapKV{values: map[string]string{}})
	if err != nil {
		t.Fatalf("jar: %v", err)
	}
	client, err := api.New(api.Config{BaseURL: ts.URL, HTTPClient: ts.Client(), Jar: jar})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	s := NewStore(client, client.Visit)
	ctx := context.Background()

	if st := s.Check(ctx); st.Status != StatusUnauthenticated || st.LastError != "" {
		t.Fatalf("initial check = %+v", st)
	}
	if err := s.Login(ctx); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if st := s.Check(ctx); st.Status != StatusAuthenticated {
		t.Fatalf("after login = %+v", st)
	}
	if err := s.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if st := s.Check(ctx); st.Status != StatusUnauthenticated {
		t.Fatalf("after logout = %+v", st)
	}
}

type mapKV struct {
	values map[string]string
}

func (m *mapKV) Get(key string) (string, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *mapKV) Set(key, value string) error {
	m.values[key] = value
	return nil
}

func (m *mapKV) Remove(key string) error {
	delete(m.values, key)
	return nil
}
