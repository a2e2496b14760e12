// Package devserver is an in-memory implementation of the reading-plan
// backend contract. It issues development sessions, keeps plans per user and
// produces placeholder passages and answers.
package devserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/csheth/versescout/internal/api"
	"github.com/csheth/versescout/internal/llm"
)

const (
	sessionCookie         = "auth_token"
	defaultSessionTTL     = 7 * 24 * time.Hour
	defaultDailyChatLimit = 20
	defaultRequestTimeout = 30 * time.Second
)

// Config controls the reference backend.
type Config struct {
	Secret         []byte
	AllowedOrigins []string
	DailyChatLimit int
	SessionTTL     time.Duration
	RequestTimeout time.Duration
	Now            func() time.Time
	Logger         *slog.Logger
	// Answerer generates chat answers. Nil uses canned placeholder answers.
	Answerer llm.Client
}

// Server holds all state in memory. It is safe for concurrent use.
type Server struct {
	cfg    Config
	logger *slog.Logger
	router chi.Router

	mu      sync.Mutex
	users   map[string]*userState
	faults  []fault
	revoked map[string]time.Time
}

type userState struct {
	plans   []api.Plan
	usage   map[string]int
	history []chatTurn
}

type fault struct {
	method string
	path   string
	status int
}

// New builds a Server with its routes wired.
func New(cfg Config) *Server {
	if len(cfg.Secret) == 0 {
		cfg.Secret = []byte("versescout-dev-secret")
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"http://localhost:5173"}
	}
	if cfg.DailyChatLimit <= 0 {
		cfg.DailyChatLimit = defaultDailyChatLimit
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		logger:  logger.With("component", "devserver"),
		users:   map[string]*userState{},
		revoked: map[string]time.Time{},
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(s.faultInjector)

	r.Get("/auth/login", s.handleLogin)
	r.Post("/session/end", s.handleEndSession)

	r.Group(func(protected chi.Router) {
		protected.Use(s.requireSession)
		protected.Get("/identity", s.handleIdentity)
		protected.Get("/plans", s.handleListPlans)
		protected.Post("/plans", s.handleCreatePlan)
		protected.Get("/plans/today", s.handleToday)
		protected.Post("/plans/{id}/activate", s.handleActivatePlan)
		protected.Delete("/plans/{id}", s.handleDeletePlan)
		protected.Post("/chat", s.handleChat)
		protected.Post("/chat/reset", s.handleResetChat)
	})
	return r
}

// Handler exposes the router, e.g. for httptest.NewServer.
func (s *Server) Handler() http.Handler {
	return s.router
}

// InjectFault makes the next request matching method and path fail with
// status. Faults are consumed in the order they were added.
func (s *Server) InjectFault(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, fault{method: method, path: path, status: status})
}

func (s *Server) takeFault(method, path string) (fault, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.faults {
		if f.method == method && f.path == path {
			s.faults = append(s.faults[:i], s.faults[i+1:]...)
			return f, true
		}
	}
	return fault{}, false
}

func (s *Server) faultInjector(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f, ok := s.takeFault(r.Method, r.URL.Path); ok {
			s.logger.Info("injected fault", "method", f.method, "path", f.path, "status", f.status)
			writeError(w, f.status, kindForStatus(f.status), http.StatusText(f.status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(started),
		)
	})
}

func (s *Server) now() time.Time {
	return s.cfg.Now()
}

func (s *Server) user(id string) *userState {
	state, ok := s.users[id]
	if !ok {
		state = &userState{usage: map[string]int{}}
		s.users[id] = state
	}
	return state
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
