package middlewarectx

import (
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/vocal/internal/http/response"
)

// RateLimitMiddleware ограничивает частоту запросов общим лимитером
// на rps запросов в секунду с запасом burst.
func RateLimitMiddleware(rps float64, burst int, log *slog.Logger) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				log.Warn("too many requests", slog.String("path", r.URL.Path))
				response.Error(w, r, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
