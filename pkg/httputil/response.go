package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	apperrors "github.com/kolamcraft/catalog/pkg/errors"
	"github.com/kolamcraft/catalog/pkg/logger"
)

// IncludeDetails controls whether internal error details are appended to
// 5xx response messages. Set once at startup; enable only in development.
var IncludeDetails = false

// ErrorBody is the error envelope returned by every endpoint.
type ErrorBody struct {
	Error string `json:"error"`
}

// MessageBody is the acknowledgment envelope for destructive operations.
type MessageBody struct {
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code.
// Headers are already sent if encoding fails, so the error is discarded.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates an error into the {"error": ...} envelope.
// AppError messages (validation, auth, not-found) are surfaced verbatim.
// Anything else becomes a 500 carrying fallbackMsg, with the underlying
// detail logged server-side and appended to the response only when
// IncludeDetails is enabled.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallbackMsg string, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() {
		l = fallback
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Status < http.StatusInternalServerError {
		WriteJSON(w, appErr.Status, ErrorBody{Error: appErr.Message})
		return
	}

	status := apperrors.HTTPStatus(err)
	if status < http.StatusInternalServerError {
		// Bare sentinels carry no caller-facing message; write their
		// generic text rather than the wrapped error chain.
		WriteJSON(w, status, ErrorBody{Error: sentinelMessage(err)})
		return
	}

	l.ErrorContext(r.Context(), "internal error",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	msg := fallbackMsg
	if IncludeDetails {
		msg = fmt.Sprintf("%s: %v", fallbackMsg, err)
	}
	WriteJSON(w, http.StatusInternalServerError, ErrorBody{Error: msg})
}

func sentinelMessage(err error) string {
	for _, sentinel := range []error{
		apperrors.ErrNotFound,
		apperrors.ErrInvalidInput,
		apperrors.ErrUnauthorized,
		apperrors.ErrForbidden,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}
