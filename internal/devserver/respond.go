package devserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/csheth/versescout/internal/api"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, kind api.ErrorKind, message string) {
	writeJSON(w, status, api.ErrorBody{Error: message, Code: kind})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst)
}

func kindForStatus(status int) api.ErrorKind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return api.KindUnauthenticated
	case http.StatusNotFound:
		return api.KindNotFound
	case http.StatusBadRequest:
		return api.KindInvalid
	case http.StatusConflict:
		return api.KindConflict
	case http.StatusTooManyRequests:
		return api.KindRateLimited
	case http.StatusGatewayTimeout:
		return api.KindTimeout
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return api.KindUnavailable
	default:
		return api.KindInternal
	}
}
