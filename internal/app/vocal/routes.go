// Package vocal собирает HTTP-приложение: маршруты, middleware и зависимости.
package vocal

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/vocal/internal/config"
	"github.com/magabrotheeeer/vocal/internal/http/handlers/articles"
	authnhandler "github.com/magabrotheeeer/vocal/internal/http/handlers/authn"
	"github.com/magabrotheeeer/vocal/internal/http/handlers/payments"
	"github.com/magabrotheeeer/vocal/internal/http/handlers/plans"
	"github.com/magabrotheeeer/vocal/internal/http/handlers/subscriptions"
	"github.com/magabrotheeeer/vocal/internal/http/handlers/users"
	"github.com/magabrotheeeer/vocal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/vocal/internal/lib/jwt"
	"github.com/magabrotheeeer/vocal/internal/security"
)

// Handlers обработчики всех маршрутов API.
type Handlers struct {
	Authn         *authnhandler.Handler
	Users         *users.Handler
	Plans         *plans.Handler
	Payments      *payments.Handler
	Subscriptions *subscriptions.Handler
	Articles      *articles.Handler
}

// RouteDeps общие зависимости middleware.
type RouteDeps struct {
	Sessions   middlewarectx.SessionLoader
	Maker      jwt.Maker
	CookieName string
	RateLimit  config.RateLimit
	Registry   *prometheus.Registry
}

// RegisterRoutes регистрирует все маршруты приложения.
// Проверка прав выполняется до обработчика; при отсутствии права ответ 403.
func RegisterRoutes(r chi.Router, logger *slog.Logger, h Handlers, deps RouteDeps) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewarectx.SessionMiddleware(deps.Sessions, deps.Maker, deps.CookieName, logger))

		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(deps.RateLimit.RPS, deps.RateLimit.Burst, logger))

			r.Post("/authn/session", h.Authn.InitiateSession)
			r.With(capability(logger, security.CapAuthn)).Get("/authn/challenge", h.Authn.GetChallenge)
			r.With(capability(logger, security.CapAuthn)).Post("/authn/challenge", h.Authn.VerifyChallenge)

			verify := "/users/{user_profile_id}/contact_methods/{contact_method_id}/verify"
			r.With(capability(logger, security.CapAuthn)).Get(verify, h.Authn.GetContactMethodChallenge)
			r.With(capability(logger, security.CapAuthn)).Post(verify, h.Authn.VerifyContactMethod)
		})

		r.Post("/users", h.Users.SignUp)
		r.With(capability(logger, security.CapProfileList)).Get("/users", h.Users.List)

		r.Get("/plans", h.Plans.List)
		r.With(capability(logger, security.CapPlanCreate)).Post("/plans", h.Plans.Create)

		r.Group(func(r chi.Router) {
			r.Use(capability(logger, security.CapPaymentMethodCreate))
			r.Post("/payment_methods", h.Payments.Create)
			r.Get("/payment_methods", h.Payments.List)
		})

		r.Group(func(r chi.Router) {
			r.Use(capability(logger, security.CapSubscriptionCreate))
			r.Post("/subscriptions", h.Subscriptions.Create)
			r.Get("/subscriptions", h.Subscriptions.List)
		})

		r.Get("/articles/{article_id}", h.Articles.Get)
		r.With(capability(logger, security.CapArticleCreate)).Post("/articles", h.Articles.Create)
		r.With(capability(logger, security.CapArticleCreate)).Put("/articles/{article_id}", h.Articles.Update)
	})

	r.Handle("/metrics", metricsHandler(deps.Registry))
	r.Get("/docs/*", httpSwagger.WrapHandler)
}

func capability(logger *slog.Logger, caps ...security.Capability) func(http.Handler) http.Handler {
	return middlewarectx.RequireCapabilities(logger, caps...)
}

func metricsHandler(reg *prometheus.Registry) http.Handler {
	if reg == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
