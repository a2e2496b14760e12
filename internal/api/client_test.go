package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/csheth/versescout/internal/api"
	"github.com/csheth/versescout/internal/devserver"
)

type memoryKV struct {
	values map[string]string
}

func (m *memoryKV) Get(key string) (string, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memoryKV) Set(key, value string) error {
	m.values[key] = value
	return nil
}

func (m *memoryKV) Remove(key string) error {
	delete(m.values, key)
	return nil
}

func newBackend(t *testing.T) (*devserver.Server, *httptest.Server) {
	t.Helper()
	srv := devserver.New(devserver.Config{})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func TestNewValidatesBaseURL(t *testing.T) {
	t.Parallel()
	cases := []string{"", "   ", "ftp://example.com", "://bad"}
	for _, raw := range cases {
		if _, err := api.New(api.Config{BaseURL: raw}); err == nil {
			t.Fatalf("New(%q) should fail", raw)
		}
	}
	client, err := api.New(api.Config{BaseURL: "http://localhost:8080/api/"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := client.LoginURL(); got != "http://localhost:8080/api/auth/login" {
		t.Fatalf("LoginURL = %q", got)
	}
}

func TestBearerTokenAuthenticates(t *testing.T) {
	srv, ts := newBackend(t)
	token, _, err := srv.IssueToken(api.Identity{Email: "lydia@example.com", Name: "Lydia"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	client, err := api.New(api.Config{BaseURL: ts.URL, Token: token, HTTPClient: ts.Client()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	identity, err := client.Identity(context.Background())
	if err != nil {
		t.Fatalf("Identity: %v", err)
	}
	if identity.DisplayName() != "Lydia" {
		t.Fatalf("identity = %+v", identity)
	}
}

func TestUnauthenticatedErrorKind(t *testing.T) {
	_, ts := newBackend(t)
	client, err := api.New(api.Config{BaseURL: ts.URL, HTTPClient: ts.Client()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = client.Identity(context.Background())
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *api.Error, got %T %v", err, err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Kind != api.KindUnauthenticated {
		t.Fatalf("err = %+v", apiErr)
	}
}

func TestVisitLoginStoresCookieInPersistentJar(t *testing.T) {
	_, ts := newBackend(t)
	kv := &memoryKV{values: map[string]string{}}
	jar, err := api.NewPersistentJar(kv)
	if err != nil {
		t.Fatalf("jar: %v", err)
	}
	client, err := api.New(api.Config{BaseURL: ts.URL, HTTPClient: ts.Client(), Jar: jar})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := client.Visit(ctx, client.LoginURL()); err != nil {
		t.Fatalf("Visit: %v", err)
	}
	if _, ok := kv.values[api.SessionCookiesKey]; !ok {
		t.Fatal("session cookie was not persisted")
	}

	// A fresh jar over the same store restores the session.
	restored, err := api.NewPersistentJar(kv)
	if err != nil {
		t.Fatalf("restore jar: %v", err)
	}
	second, err := api.New(api.Config{BaseURL: ts.URL, HTTPClient: ts.Client(), Jar: restored})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := second.Identity(ctx); err != nil {
		t.Fatalf("Identity with restored jar: %v", err)
	}

	if err := second.EndSession(ctx); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if _, ok := kv.values[api.SessionCookiesKey]; ok {
		t.Fatal("expired cookie should be removed from the store")
	}
	if _, err := second.Identity(ctx); !api.IsKind(err, api.KindUnauthenticated) {
		t.Fatalf("Identity after logout err = %v", err)
	}
}

func TestPlanAndVerseRoundTrip(t *testing.T) {
	srv, ts := newBackend(t)
	token, _, _ := srv.IssueToken(api.Identity{Email: "anna@example.com"})
	client, err := api.New(api.Config{BaseURL: ts.URL, Token: token, HTTPClient: ts.Client()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	if _, err := client.Today(ctx); !api.IsKind(err, api.KindNoActivePlan) {
		t.Fatalf("Today without plan err = %v", err)
	}
	plan, err := client.CreatePlan(ctx, "Courage", 3)
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if !plan.IsActive || plan.DurationDays != 3 || plan.CreatedAt.IsZero() {
		t.Fatalf("plan = %+v", plan)
	}
	verse, err := client.Today(ctx)
	if err != nil {
		t.Fatalf("Today: %v", err)
	}
	if verse.Reference == "" || verse.Text == "" {
		t.Fatalf("verse = %+v", verse)
	}
	reply, err := client.Chat(ctx, verse, "Why this passage?")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply.Answer == "" || reply.UsageToday != 1 {
		t.Fatalf("reply = %+v", reply)
	}
	msg, err := client.ResetChat(ctx)
	if err != nil || msg == "" {
		t.Fatalf("ResetChat = %q, %v", msg, err)
	}
	if err := client.DeletePlan(ctx, plan.ID); !api.IsKind(err, api.KindConflict) {
		t.Fatalf("DeletePlan active err = %v", err)
	}
}

func TestStatusFallbackWhenCodeMissing(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/plans/today":
			http.Error(w, "nothing here", http.StatusNotFound)
		case "/chat":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"slow down"}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer ts.Close()
	client, err := api.New(api.Config{BaseURL: ts.URL, HTTPClient: ts.Client()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	cases := []struct {
		name string
		call func() error
		want api.ErrorKind
	}{
		{name: "plain 404", call: func() error { _, err := client.Today(ctx); return err }, want: api.KindNotFound},
		{name: "429 without code", call: func() error { _, err := client.Chat(ctx, api.DailyVerse{}, "q"); return err }, want: api.KindRateLimited},
		{name: "502", call: func() error { _, err := client.ListPlans(ctx); return err }, want: api.KindUnavailable},
	}
	for _, tc := range cases {
		if got := api.KindOf(tc.call()); got != tc.want {
			t.Fatalf("%s: kind = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()
	client, err := api.New(api.Config{BaseURL: url, Timeout: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = client.ListPlans(context.Background())
	if api.KindOf(err) != api.KindUnavailable {
		t.Fatalf("kind = %q (err=%v)", api.KindOf(err), err)
	}
}
