package failure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/csheth/versescout/internal/api"
)

func TestClassify(t *testing.T) {
	sentinel := New(Validation, "topic must not be empty")
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"sentinel", sentinel, Validation},
		{"wrapped sentinel", fmt.Errorf("create: %w", sentinel), Validation},
		{"confirmation", New(ConfirmationRequired, "again"), ConfirmationRequired},
		{"unauthenticated", &api.Error{Status: http.StatusUnauthorized, Kind: api.KindUnauthenticated}, Auth},
		{"no active plan", &api.Error{Status: http.StatusNotFound, Kind: api.KindNoActivePlan}, ExpectedEmpty},
		{"plan finished", fmt.Errorf("today: %w", &api.Error{Status: http.StatusNotFound, Kind: api.KindPlanFinished}), ExpectedEmpty},
		{"conflict", &api.Error{Status: http.StatusConflict, Kind: api.KindConflict}, Transient},
		{"server", &api.Error{Status: http.StatusInternalServerError, Kind: api.KindInternal}, Transient},
		{"deadline", context.DeadlineExceeded, Transient},
		{"plain", errors.New("boom"), Transient},
	}
	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("%s: Classify = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	if Retryable(nil) {
		t.Fatal("nil is not retryable")
	}
	if !Retryable(errors.New("network")) {
		t.Fatal("transient errors are retryable")
	}
	if Retryable(&api.Error{Kind: api.KindUnauthenticated}) {
		t.Fatal("auth errors need a new session, not a retry")
	}
}
