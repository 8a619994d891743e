package vocal

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/vocal/internal/config"
	"github.com/magabrotheeeer/vocal/internal/http/handlers/articles"
	authnhandler "github.com/magabrotheeeer/vocal/internal/http/handlers/authn"
	"github.com/magabrotheeeer/vocal/internal/http/handlers/payments"
	"github.com/magabrotheeeer/vocal/internal/http/handlers/plans"
	"github.com/magabrotheeeer/vocal/internal/http/handlers/subscriptions"
	"github.com/magabrotheeeer/vocal/internal/http/handlers/users"
	"github.com/magabrotheeeer/vocal/internal/lib/jwt"
	"github.com/magabrotheeeer/vocal/internal/metrics"
	"github.com/magabrotheeeer/vocal/internal/models"
	"github.com/magabrotheeeer/vocal/internal/security"
)

type staticSessions map[string]*security.Session

func (s staticSessions) Load(_ context.Context, id string) (*security.Session, error) {
	return s[id], nil
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

// Сервисы не заданы: маршруты, отклонённые до обработчика, их не вызывают.
func newRouter(t *testing.T, sessions staticSessions) (http.Handler, jwt.Maker) {
	t.Helper()
	log := newNoopLogger()
	maker := jwt.NewJWTMaker("0123456789abcdef0123", time.Hour)
	reg := prometheus.NewRegistry()
	metrics.New(reg).IncrementVerifications(metrics.ResultAccepted)

	r := chi.NewRouter()
	RegisterRoutes(r, log, Handlers{
		Authn:         authnhandler.New(log, nil, nil, maker, "VOCAL_SESSION", time.Hour),
		Users:         users.New(log, nil),
		Plans:         plans.New(log, nil),
		Payments:      payments.New(log, nil),
		Subscriptions: subscriptions.New(log, nil),
		Articles:      articles.New(log, nil),
	}, RouteDeps{
		Sessions:   sessions,
		Maker:      maker,
		CookieName: "VOCAL_SESSION",
		RateLimit:  config.RateLimit{RPS: 100, Burst: 100},
		Registry:   reg,
	})
	return r, maker
}

func roleSession(id string, role models.UserRole) *security.Session {
	uid := uuid.New()
	sess := security.NewSession(id)
	sess.Authenticated = true
	sess.UserProfileID = &uid
	sess.Grant(security.RoleCapabilities(role).List()...)
	return sess
}

func TestRoutes_CapabilityChecks(t *testing.T) {
	sessions := staticSessions{
		"subscriber": roleSession("subscriber", models.RoleSubscriber),
		"superuser":  roleSession("superuser", models.RoleSuperuser),
	}
	router, maker := newRouter(t, sessions)

	tests := []struct {
		name           string
		method         string
		path           string
		session        string
		body           string
		expectedStatus int
	}{
		{name: "anonymous plan create", method: http.MethodPost, path: "/api/v1/plans", body: `{}`, expectedStatus: http.StatusForbidden},
		{name: "subscriber plan create", method: http.MethodPost, path: "/api/v1/plans", session: "subscriber", body: `{}`, expectedStatus: http.StatusForbidden},
		{name: "superuser plan create reaches handler", method: http.MethodPost, path: "/api/v1/plans", session: "superuser", body: `{}`, expectedStatus: http.StatusBadRequest},
		{name: "anonymous user list", method: http.MethodGet, path: "/api/v1/users", expectedStatus: http.StatusForbidden},
		{name: "anonymous challenge", method: http.MethodGet, path: "/api/v1/authn/challenge", expectedStatus: http.StatusForbidden},
		{name: "anonymous contact verify", method: http.MethodPost, path: "/api/v1/users/x/contact_methods/y/verify", body: `{}`, expectedStatus: http.StatusForbidden},
		{name: "subscriber article create", method: http.MethodPost, path: "/api/v1/articles", session: "subscriber", body: `{}`, expectedStatus: http.StatusForbidden},
		{name: "subscriber article update", method: http.MethodPut, path: "/api/v1/articles/x", session: "subscriber", body: `{}`, expectedStatus: http.StatusForbidden},
		{name: "anonymous payment method", method: http.MethodPost, path: "/api/v1/payment_methods", body: `{}`, expectedStatus: http.StatusForbidden},
		{name: "subscriber payment method reaches handler", method: http.MethodPost, path: "/api/v1/payment_methods", session: "subscriber", body: `{}`, expectedStatus: http.StatusBadRequest},
		{name: "anonymous subscription", method: http.MethodPost, path: "/api/v1/subscriptions", body: `{}`, expectedStatus: http.StatusForbidden},
		{name: "unknown route", method: http.MethodGet, path: "/api/v1/nothing", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.session != "" {
				token, err := maker.GenerateToken(tt.session)
				require.NoError(t, err)
				req.Header.Set("Authorization", "Bearer "+token)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}

func TestRoutes_Metrics(t *testing.T) {
	router, _ := newRouter(t, staticSessions{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `vocal_authn_verifications_total{result="accepted"} 1`)
}
