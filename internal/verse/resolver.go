// Package verse resolves today's passage for the active reading plan.
package verse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/csheth/versescout/internal/api"
	"github.com/csheth/versescout/internal/failure"
)

// Outcome is how a resolution ended.
type Outcome int

const (
	OutcomeVerse Outcome = iota
	OutcomeNoEligiblePlan
	OutcomeAuthRequired
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeVerse:
		return "verse"
	case OutcomeNoEligiblePlan:
		return "no-eligible-plan"
	case OutcomeAuthRequired:
		return "auth-required"
	default:
		return "failed"
	}
}

// Reason says why no plan was eligible.
type Reason string

const (
	ReasonNoActivePlan Reason = "no_active_plan"
	ReasonPlanFinished Reason = "plan_finished"
)

// Resolution is the result of one resolveToday call. Verse is only set for
// OutcomeVerse; Err is set for every other outcome.
type Resolution struct {
	Generation uint64
	Outcome    Outcome
	Verse      api.DailyVerse
	Reason     Reason
	Err        error
}

// Retryable reports whether the user may retry the same action.
func (r Resolution) Retryable() bool { return r.Outcome == OutcomeFailed }

// ErrSuperseded is returned to callers whose resolution was overtaken by a
// newer one or invalidated. Their result is not applied.
var ErrSuperseded = errors.New("verse: resolution superseded")

// Backend fetches today's passage.
type Backend interface {
	Today(ctx context.Context) (api.DailyVerse, error)
}

// Resolver runs resolutions and keeps the latest applied one.
type Resolver struct {
	backend Backend
	logger  *slog.Logger

	mu      sync.Mutex
	gen     uint64
	loading bool
	current *Resolution
}

// NewResolver returns a resolver with nothing resolved yet.
func NewResolver(backend Backend, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{backend: backend, logger: logger.With("component", "verse")}
}

// Resolve fetches today's passage. Only the most recently started call may
// update Current; an older call still returns its classified result but with
// ErrSuperseded.
func (r *Resolver) Resolve(ctx context.Context) (Resolution, error) {
	r.mu.Lock()
	r.gen++
	gen := r.gen
	r.loading = true
	r.mu.Unlock()

	v, err := r.backend.Today(ctx)
	res := classify(gen, v, err)

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		r.logger.Debug("dropping stale resolution", "generation", gen, "latest", r.gen)
		return res, ErrSuperseded
	}
	r.loading = false
	r.current = &res
	if res.Outcome == OutcomeFailed {
		r.logger.Warn("resolve today failed", "err", res.Err)
	}
	return res, nil
}

// Current returns the latest applied resolution.
func (r *Resolver) Current() (Resolution, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return Resolution{}, false
	}
	return *r.current, true
}

// Loading reports whether the latest resolution is still in flight.
func (r *Resolver) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading
}

// Generation returns the number of the most recently started resolution.
func (r *Resolver) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen
}

// Invalidate drops any in-flight resolution so its result is discarded, and
// clears the current one.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.gen++
	r.loading = false
	r.current = nil
	r.mu.Unlock()
}

func classify(gen uint64, v api.DailyVerse, err error) Resolution {
	res := Resolution{Generation: gen}
	if err == nil {
		res.Outcome = OutcomeVerse
		res.Verse = v
		return res
	}
	res.Err = err
	switch {
	case api.IsKind(err, api.KindPlanFinished):
		res.Outcome = OutcomeNoEligiblePlan
		res.Reason = ReasonPlanFinished
	case api.IsKind(err, api.KindNoActivePlan), api.IsKind(err, api.KindNotFound):
		res.Outcome = OutcomeNoEligiblePlan
		res.Reason = ReasonNoActivePlan
	case failure.Classify(err) == failure.Auth:
		res.Outcome = OutcomeAuthRequired
	default:
		res.Outcome = OutcomeFailed
		res.Err = fmt.Errorf("resolve today: %w", err)
	}
	return res
}

// Message is the user-facing text for a resolution that has no verse.
func (r Resolution) Message() string {
	switch r.Outcome {
	case OutcomeNoEligiblePlan:
		if r.Reason == ReasonPlanFinished {
			return "The current reading plan has finished. Ask an administrator to start a new one."
		}
		return "There is no active reading plan yet. Ask an administrator to create one."
	case OutcomeAuthRequired:
		return "Your session has ended. Sign in again to keep reading."
	case OutcomeFailed:
		return "Could not load today's passage. Press r to try again."
	default:
		return ""
	}
}
