package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind is the machine-readable category of a backend failure.
type ErrorKind string

const (
	KindUnauthenticated ErrorKind = "unauthenticated"
	KindNoActivePlan    ErrorKind = "no_active_plan"
	KindPlanFinished    ErrorKind = "plan_finished"
	KindNotFound        ErrorKind = "not_found"
	KindInvalid         ErrorKind = "invalid_request"
	KindConflict        ErrorKind = "conflict"
	KindRateLimited     ErrorKind = "rate_limited"
	KindTimeout         ErrorKind = "timeout"
	KindUnavailable     ErrorKind = "unavailable"
	KindInternal        ErrorKind = "internal"
)

var knownKinds = map[ErrorKind]struct{}{
	KindUnauthenticated: {},
	KindNoActivePlan:    {},
	KindPlanFinished:    {},
	KindNotFound:        {},
	KindInvalid:         {},
	KindConflict:        {},
	KindRateLimited:     {},
	KindTimeout:         {},
	KindUnavailable:     {},
	KindInternal:        {},
}

// Error is returned for every non-2xx response and for transport failures.
type Error struct {
	Status  int
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Status > 0 && e.Message != "":
		return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Kind)
	case e.Status > 0:
		return fmt.Sprintf("%s (%d)", http.StatusText(e.Status), e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorBody is the JSON envelope used by the backend for failures.
type ErrorBody struct {
	Error string    `json:"error"`
	Code  ErrorKind `json:"code,omitempty"`
}

// KindOf reports the kind of err. Errors that did not come from the
// backend are treated as unavailable.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnavailable
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

func decodeError(status int, body []byte) *Error {
	apiErr := &Error{Status: status}
	var envelope ErrorBody
	if err := json.Unmarshal(body, &envelope); err == nil {
		apiErr.Message = strings.TrimSpace(envelope.Error)
		if _, ok := knownKinds[envelope.Code]; ok {
			apiErr.Kind = envelope.Code
		}
	} else if text := strings.TrimSpace(string(body)); text != "" {
		apiErr.Message = text
	}
	if apiErr.Kind == "" {
		apiErr.Kind = kindForStatus(status)
	}
	return apiErr
}

func kindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindUnauthenticated
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindInvalid
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusGatewayTimeout || status == http.StatusRequestTimeout:
		return KindTimeout
	case status == http.StatusServiceUnavailable || status == http.StatusBadGateway:
		return KindUnavailable
	default:
		return KindInternal
	}
}
