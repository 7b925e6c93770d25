package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/key-management/internal"
	"github.com/frahmantamala/key-management/internal/transport"
)

// RequireAdmin lets through only requests whose authenticated user has
// the admin role. It must run after AuthMiddleware.
func RequireAdmin(lg *slog.Logger) func(http.Handler) http.Handler {
	base := transport.NewBaseHandler(lg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFromContext(r.Context())
			if !ok {
				base.WriteAppError(w, internal.ErrInvalidToken)
				return
			}
			if !u.IsAdmin() {
				base.Logger.WarnContext(r.Context(), "access denied: admin role required", "user_id", u.ID, "path", r.URL.Path)
				base.WriteAppError(w, internal.ErrAdminRequired)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
