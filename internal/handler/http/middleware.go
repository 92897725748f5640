package http

import (
	"log/slog"
	"net/http"

	"github.com/kolamcraft/catalog/internal/auth"
	"github.com/kolamcraft/catalog/pkg/httputil"
	"github.com/kolamcraft/catalog/pkg/logger"
)

// RequireAdmin gates write endpoints behind the administrator allow-list.
// The admitted identity's email is attached to the request context for
// request logging.
func RequireAdmin(gate *auth.Gate, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := gate.Authorize(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				httputil.WriteError(w, r, err, "Unauthorized: System error during verification", log)
				return
			}

			ctx := logger.WithAdminEmail(r.Context(), identity.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
