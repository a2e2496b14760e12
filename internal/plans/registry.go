// Package plans keeps the client's copy of the user's reading plans and
// enforces the single-active-plan rules before talking to the backend.
package plans

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/csheth/versescout/internal/api"
	"github.com/csheth/versescout/internal/failure"
)

var (
	ErrEmptyTopic      = failure.New(failure.Validation, "topic must not be empty")
	ErrInvalidDuration = failure.New(failure.Validation, "duration must be at least one day")
	ErrDeleteActive    = failure.New(failure.Validation, "cannot delete the active plan")
	ErrUnknownPlan     = failure.New(failure.Validation, "unknown plan")
	ErrBusy            = failure.New(failure.Validation, "another plan change is in progress")
	ErrConfirmRequired = failure.New(failure.ConfirmationRequired, "delete again to confirm")
)

// Backend is the part of the API the registry needs.
type Backend interface {
	ListPlans(ctx context.Context) ([]api.Plan, error)
	CreatePlan(ctx context.Context, topic string, durationDays int) (api.Plan, error)
	ActivatePlan(ctx context.Context, id string) error
	DeletePlan(ctx context.Context, id string) error
}

// Registry is the authoritative client copy of the plan collection. The
// collection is only ever replaced by a full server listing; mutations never
// patch it locally.
type Registry struct {
	backend Backend
	logger  *slog.Logger

	mu            sync.Mutex
	plans         []api.Plan
	loaded        bool
	loading       bool
	mutating      bool
	pendingDelete string
	lastErr       error
}

// New returns an empty, unloaded registry.
func New(backend Backend, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{backend: backend, logger: logger.With("component", "plans")}
}

// Refresh replaces the collection with the server's list. On failure the
// collection becomes empty and the error is recorded.
func (r *Registry) Refresh(ctx context.Context) ([]api.Plan, error) {
	r.mu.Lock()
	r.loading = true
	r.mu.Unlock()

	list, err := r.backend.ListPlans(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.loading = false
	r.loaded = true
	if err != nil {
		r.plans = nil
		r.lastErr = err
		r.logger.Warn("list plans failed", "err", err)
		return nil, fmt.Errorf("list plans: %w", err)
	}
	r.plans = sortNewestFirst(list)
	r.lastErr = nil
	if n := countActive(r.plans); n > 1 {
		r.logger.Warn("server reported several active plans", "count", n)
	}
	if r.pendingDelete != "" && indexOf(r.plans, r.pendingDelete) < 0 {
		r.pendingDelete = ""
	}
	return clonePlans(r.plans), nil
}

// Create validates and submits a new plan, then reloads the collection. The
// backend makes the new plan the active one.
func (r *Registry) Create(ctx context.Context, topic string, durationDays int) (api.Plan, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return api.Plan{}, ErrEmptyTopic
	}
	if durationDays < 1 {
		return api.Plan{}, ErrInvalidDuration
	}
	if err := r.begin(); err != nil {
		return api.Plan{}, err
	}
	defer r.end()

	plan, err := r.backend.CreatePlan(ctx, topic, durationDays)
	if err != nil {
		r.recordErr(err)
		return api.Plan{}, fmt.Errorf("create plan: %w", err)
	}
	r.logger.Info("plan created", "plan", plan.ID, "topic", plan.Topic)
	r.refreshAfterMutation(ctx)
	return plan, nil
}

// Activate makes id the active plan and reloads the collection.
func (r *Registry) Activate(ctx context.Context, id string) error {
	if err := r.begin(); err != nil {
		return err
	}
	defer r.end()

	if err := r.backend.ActivatePlan(ctx, id); err != nil {
		r.recordErr(err)
		return fmt.Errorf("activate plan: %w", err)
	}
	r.logger.Info("plan activated", "plan", id)
	r.refreshAfterMutation(ctx)
	return nil
}

// Delete removes an inactive plan in two steps: the first call for an id
// arms a confirmation and returns ErrConfirmRequired, a second call for the
// same id sends the request. The active plan is rejected without a request.
func (r *Registry) Delete(ctx context.Context, id string) error {
	// The checks run while holding the mutation slot so an Activate of the
	// same id cannot land between the check and the request.
	if err := r.begin(); err != nil {
		return err
	}
	defer r.end()

	r.mu.Lock()
	idx := indexOf(r.plans, id)
	switch {
	case idx < 0:
		r.mu.Unlock()
		return ErrUnknownPlan
	case r.plans[idx].IsActive:
		r.pendingDelete = ""
		r.mu.Unlock()
		return ErrDeleteActive
	case r.pendingDelete != id:
		r.pendingDelete = id
		r.mu.Unlock()
		return ErrConfirmRequired
	}
	r.mu.Unlock()

	err := r.backend.DeletePlan(ctx, id)
	r.mu.Lock()
	r.pendingDelete = ""
	r.mu.Unlock()
	if err != nil {
		r.recordErr(err)
		return fmt.Errorf("delete plan: %w", err)
	}
	r.logger.Info("plan deleted", "plan", id)
	r.refreshAfterMutation(ctx)
	return nil
}

// CancelDelete disarms a pending delete confirmation.
func (r *Registry) CancelDelete() {
	r.mu.Lock()
	r.pendingDelete = ""
	r.mu.Unlock()
}

// PendingDelete returns the id awaiting confirmation, if any.
func (r *Registry) PendingDelete() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pendingDelete
}

// Plans returns the collection newest first.
func (r *Registry) Plans() []api.Plan {
	r.mu.Lock()
	defer r.mu.Unlock()
	return clonePlans(r.plans)
}

// Active returns the active plan. If the server ever reports several, the
// newest one is returned.
func (r *Registry) Active() (api.Plan, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.plans {
		if p.IsActive {
			return p, true
		}
	}
	return api.Plan{}, false
}

// Loaded reports whether at least one listing has completed.
func (r *Registry) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// Busy reports whether a listing or mutation is in flight.
func (r *Registry) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading || r.mutating
}

// Err returns the last recorded failure.
func (r *Registry) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

func (r *Registry) begin() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mutating {
		return ErrBusy
	}
	r.mutating = true
	return nil
}

func (r *Registry) end() {
	r.mu.Lock()
	r.mutating = false
	r.mu.Unlock()
}

func (r *Registry) recordErr(err error) {
	r.mu.Lock()
	r.lastErr = err
	r.mu.Unlock()
}

// refreshAfterMutation reloads the list. Its failure is recorded on the
// registry rather than returned since the mutation itself succeeded.
func (r *Registry) refreshAfterMutation(ctx context.Context) {
	if _, err := r.Refresh(ctx); err != nil {
		r.logger.Warn("refresh after mutation failed", "err", err)
	}
}

func sortNewestFirst(list []api.Plan) []api.Plan {
	out := clonePlans(list)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func clonePlans(list []api.Plan) []api.Plan {
	if list == nil {
		return []api.Plan{}
	}
	return append([]api.Plan(nil), list...)
}

func indexOf(list []api.Plan, id string) int {
	for i, p := range list {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func countActive(list []api.Plan) int {
	n := 0
	for _, p := range list {
		if p.IsActive {
			n++
		}
	}
	return n
}
