package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/vocal/internal/http/response"
	"github.com/magabrotheeeer/vocal/internal/lib/jwt"
	"github.com/magabrotheeeer/vocal/internal/lib/sl"
	"github.com/magabrotheeeer/vocal/internal/security"
)

// SessionLoader читает сессии из хранилища.
type SessionLoader interface {
	Load(ctx context.Context, id string) (*security.Session, error)
}

// TokenFromRequest возвращает токен сессии из cookie cookieName или
// заголовка Authorization: Bearer. Cookie имеет приоритет.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// SessionMiddleware загружает сессию по токену запроса и кладёт её в контекст.
//
// Запрос без токена, с недействительным токеном или с истёкшей сессией
// проходит дальше анонимно; права проверяет RequireCapabilities.
func SessionMiddleware(store SessionLoader, maker jwt.Maker, cookieName string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.SessionMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token := TokenFromRequest(r, cookieName)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := maker.ParseToken(token)
			if err != nil {
				log.Info("invalid session token", sl.Err(err))
				next.ServeHTTP(w, r)
				return
			}

			sess, err := store.Load(r.Context(), claims.Subject)
			if err != nil {
				log.Error("failed to load session", sl.Err(err))
				response.Error(w, r, http.StatusInternalServerError, "internal server error")
				return
			}
			if sess == nil {
				log.Info("session expired or unknown")
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}
