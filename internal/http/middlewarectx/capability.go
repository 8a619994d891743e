package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/vocal/internal/http/response"
	"github.com/magabrotheeeer/vocal/internal/security"
)

// RequireCapabilities пропускает запрос, только если у сессии есть все права
// required. Запрос без сессии отклоняется с 403.
func RequireCapabilities(log *slog.Logger, required ...security.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := SessionFrom(r.Context())
			if !ok || !sess.Has(required...) {
				log.Info("capability check failed",
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.Any("required", required),
				)
				response.Error(w, r, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
