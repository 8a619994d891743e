package authn

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/vocal/internal/apperr"
	"github.com/magabrotheeeer/vocal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/vocal/internal/http/response"
	"github.com/magabrotheeeer/vocal/internal/lib/jwt"
	"github.com/magabrotheeeer/vocal/internal/models"
	"github.com/magabrotheeeer/vocal/internal/security"
	authnservice "github.com/magabrotheeeer/vocal/internal/services/authn"
)

var _ Service = (*authnservice.Service)(nil)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) InitiateSession(ctx context.Context, sess *security.Session, principalName string, principalType models.AuthnPrincipalType) error {
	args := m.Called(ctx, sess, principalName, principalType)
	return args.Error(0)
}

func (m *ServiceMock) GetNextChallenge(ctx context.Context, sess *security.Session) (models.PublicChallenge, error) {
	args := m.Called(ctx, sess)
	return args.Get(0).(models.PublicChallenge), args.Error(1)
}

func (m *ServiceMock) VerifyChallenge(ctx context.Context, sess *security.Session, challengeID uuid.UUID, passcode string) (authnservice.Result, error) {
	args := m.Called(ctx, sess, challengeID, passcode)
	return args.Get(0).(authnservice.Result), args.Error(1)
}

func (m *ServiceMock) GetContactMethodVerifyChallenge(ctx context.Context, sess *security.Session, userProfileID, contactMethodID uuid.UUID) (models.PublicChallenge, error) {
	args := m.Called(ctx, sess, userProfileID, contactMethodID)
	return args.Get(0).(models.PublicChallenge), args.Error(1)
}

func (m *ServiceMock) VerifyContactMethod(ctx context.Context, sess *security.Session, userProfileID, contactMethodID, challengeID uuid.UUID, passcode string) error {
	args := m.Called(ctx, sess, userProfileID, contactMethodID, challengeID, passcode)
	return args.Error(0)
}

type SessionsMock struct {
	mock.Mock
}

func (m *SessionsMock) Save(ctx context.Context, sess *security.Session) error {
	args := m.Called(ctx, sess)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

const cookieName = "VOCAL_SESSION"

var maker = jwt.NewJWTMaker("test_secret_key_1234567890", time.Hour)

// router собирает маршруты обработчика; sess, если задана, кладётся в контекст.
func router(h *Handler, sess *security.Session) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if sess != nil {
				req = req.WithContext(middlewarectx.WithSession(req.Context(), sess))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Post("/authn/session", h.InitiateSession)
	r.Get("/authn/challenge", h.GetChallenge)
	r.Post("/authn/challenge", h.VerifyChallenge)
	r.Get("/users/{user_profile_id}/contact_methods/{contact_method_id}/verify", h.GetContactMethodChallenge)
	r.Post("/users/{user_profile_id}/contact_methods/{contact_method_id}/verify", h.VerifyContactMethod)
	return r
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func envelope(t *testing.T, rec *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestInitiateSession(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		setupMocks func(*ServiceMock, *SessionsMock)
		wantStatus int
		wantCookie bool
	}{
		{
			name: "success",
			body: InitiateSessionRequest{PrincipalName: "jesse@dhillon.com", PrincipalType: models.PrincipalEmail},
			setupMocks: func(s *ServiceMock, ss *SessionsMock) {
				s.On("InitiateSession", mock.Anything, mock.AnythingOfType("*security.Session"), "jesse@dhillon.com", models.PrincipalEmail).
					Run(func(args mock.Arguments) {
						args.Get(1).(*security.Session).Grant(security.CapAuthn)
					}).Return(nil).Once()
				ss.On("Save", mock.Anything, mock.MatchedBy(func(sess *security.Session) bool {
					return sess.ID != "" && sess.Has(security.CapAuthn)
				})).Return(nil).Once()
			},
			wantStatus: http.StatusOK,
			wantCookie: true,
		},
		{
			name:       "invalid JSON",
			body:       "{",
			setupMocks: func(_ *ServiceMock, _ *SessionsMock) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown principal type",
			body:       map[string]string{"principal_name": "x", "principal_type": "pager"},
			setupMocks: func(_ *ServiceMock, _ *SessionsMock) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "unknown principal",
			body: InitiateSessionRequest{PrincipalName: "nobody@example.com", PrincipalType: models.PrincipalEmail},
			setupMocks: func(s *ServiceMock, _ *SessionsMock) {
				s.On("InitiateSession", mock.Anything, mock.Anything, "nobody@example.com", models.PrincipalEmail).
					Return(apperr.Unauthorized("unknown principal")).Once()
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "session store failure",
			body: InitiateSessionRequest{PrincipalName: "+14155551234", PrincipalType: models.PrincipalPhone},
			setupMocks: func(s *ServiceMock, ss *SessionsMock) {
				s.On("InitiateSession", mock.Anything, mock.Anything, "+14155551234", models.PrincipalPhone).Return(nil).Once()
				ss.On("Save", mock.Anything, mock.Anything).Return(errors.New("redis down")).Once()
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(ServiceMock)
			sessions := new(SessionsMock)
			tt.setupMocks(service, sessions)
			h := New(newNoopLogger(), service, sessions, maker, cookieName, time.Hour)

			rec := do(t, router(h, nil), http.MethodPost, "/authn/session", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			cookies := rec.Result().Cookies()
			if tt.wantCookie {
				require.Len(t, cookies, 1)
				assert.Equal(t, cookieName, cookies[0].Name)
				assert.True(t, cookies[0].HttpOnly)

				claims, err := maker.ParseToken(cookies[0].Value)
				require.NoError(t, err)
				saved := sessions.Calls[0].Arguments.Get(1).(*security.Session)
				assert.Equal(t, saved.ID, claims.Subject)

				resp := envelope(t, rec)
				assert.Equal(t, map[string]any{"token": cookies[0].Value}, resp.Data)
			} else {
				assert.Empty(t, cookies)
			}
			service.AssertExpectations(t)
			sessions.AssertExpectations(t)
		})
	}
}

func TestGetChallenge(t *testing.T) {
	public := models.PublicChallenge{ChallengeID: uuid.New(), ChallengeType: models.ChallengeEmail, Hint: "j****@dhillon.com"}

	t.Run("no session", func(t *testing.T) {
		h := New(newNoopLogger(), new(ServiceMock), new(SessionsMock), maker, cookieName, time.Hour)
		rec := do(t, router(h, nil), http.MethodGet, "/authn/challenge", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("issued", func(t *testing.T) {
		sess := security.NewSession("s")
		service := new(ServiceMock)
		sessions := new(SessionsMock)
		service.On("GetNextChallenge", mock.Anything, sess).Return(public, nil).Once()
		sessions.On("Save", mock.Anything, sess).Return(nil).Once()
		h := New(newNoopLogger(), service, sessions, maker, cookieName, time.Hour)

		rec := do(t, router(h, sess), http.MethodGet, "/authn/challenge", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		data := envelope(t, rec).Data.(map[string]any)
		assert.Equal(t, public.ChallengeID.String(), data["challenge_id"])
		assert.Equal(t, "j****@dhillon.com", data["hint"])
		assert.NotContains(t, data, "secret")
		service.AssertExpectations(t)
		sessions.AssertExpectations(t)
	})

	t.Run("pending challenge is not saved", func(t *testing.T) {
		sess := security.NewSession("s")
		service := new(ServiceMock)
		sessions := new(SessionsMock)
		service.On("GetNextChallenge", mock.Anything, sess).
			Return(models.PublicChallenge{}, apperr.BadRequest("cannot request a new challenge while challenges are pending")).Once()
		h := New(newNoopLogger(), service, sessions, maker, cookieName, time.Hour)

		rec := do(t, router(h, sess), http.MethodGet, "/authn/challenge", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "cannot request a new challenge while challenges are pending", envelope(t, rec).Status.Errors[0].Message)
		sessions.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestVerifyChallenge(t *testing.T) {
	challengeID := uuid.New()
	next := &models.PublicChallenge{ChallengeID: uuid.New(), ChallengeType: models.ChallengePassword}
	body := ChallengeResponseRequest{ChallengeID: challengeID, Passcode: "123456"}

	tests := []struct {
		name       string
		body       any
		result     authnservice.Result
		err        error
		saveErr    error
		wantVerify bool
		wantStatus int
	}{
		{name: "accepted", body: body, result: authnservice.Result{Next: next}, wantVerify: true, wantStatus: http.StatusAccepted},
		{name: "completed", body: body, result: authnservice.Result{Completed: true}, wantVerify: true, wantStatus: http.StatusOK},
		{name: "incorrect passcode", body: body, err: apperr.Unauthorized("Incorrect passcode"), wantVerify: true, wantStatus: http.StatusUnauthorized},
		{name: "too many attempts", body: body, err: apperr.Forbidden("Too many invalid attempts"), wantVerify: true, wantStatus: http.StatusForbidden},
		{name: "store failure", body: body, result: authnservice.Result{Completed: true}, saveErr: errors.New("redis down"), wantVerify: true, wantStatus: http.StatusInternalServerError},
		{name: "missing passcode", body: map[string]string{"challenge_id": challengeID.String()}, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := security.NewSession("s")
			service := new(ServiceMock)
			sessions := new(SessionsMock)
			if tt.wantVerify {
				service.On("VerifyChallenge", mock.Anything, sess, challengeID, "123456").Return(tt.result, tt.err).Once()
				sessions.On("Save", mock.Anything, sess).Return(tt.saveErr).Once()
			}
			h := New(newNoopLogger(), service, sessions, maker, cookieName, time.Hour)

			rec := do(t, router(h, sess), http.MethodPost, "/authn/challenge", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusAccepted {
				data := envelope(t, rec).Data.(map[string]any)
				assert.Equal(t, next.ChallengeID.String(), data["challenge_id"])
			}
			service.AssertExpectations(t)
			sessions.AssertExpectations(t)
		})
	}
}

func TestContactMethodVerification(t *testing.T) {
	uid := uuid.New()
	cmID := uuid.New()
	challengeID := uuid.New()
	path := "/users/" + uid.String() + "/contact_methods/" + cmID.String() + "/verify"

	t.Run("challenge", func(t *testing.T) {
		sess := security.NewSession("s")
		service := new(ServiceMock)
		sessions := new(SessionsMock)
		service.On("GetContactMethodVerifyChallenge", mock.Anything, sess, uid, cmID).
			Return(models.PublicChallenge{ChallengeID: challengeID, ChallengeType: models.ChallengeSMS}, nil).Once()
		sessions.On("Save", mock.Anything, sess).Return(nil).Once()
		h := New(newNoopLogger(), service, sessions, maker, cookieName, time.Hour)

		rec := do(t, router(h, sess), http.MethodGet, path, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		service.AssertExpectations(t)
	})

	t.Run("verify", func(t *testing.T) {
		sess := security.NewSession("s")
		service := new(ServiceMock)
		sessions := new(SessionsMock)
		service.On("VerifyContactMethod", mock.Anything, sess, uid, cmID, challengeID, "654321").Return(nil).Once()
		sessions.On("Save", mock.Anything, sess).Return(nil).Once()
		h := New(newNoopLogger(), service, sessions, maker, cookieName, time.Hour)

		rec := do(t, router(h, sess), http.MethodPost, path, ChallengeResponseRequest{ChallengeID: challengeID, Passcode: "654321"})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, envelope(t, rec).Status.Success)
		service.AssertExpectations(t)
		sessions.AssertExpectations(t)
	})

	t.Run("other user", func(t *testing.T) {
		sess := security.NewSession("s")
		service := new(ServiceMock)
		service.On("GetContactMethodVerifyChallenge", mock.Anything, sess, uid, cmID).
			Return(models.PublicChallenge{}, apperr.Forbidden("Forbidden")).Once()
		h := New(newNoopLogger(), service, new(SessionsMock), maker, cookieName, time.Hour)

		rec := do(t, router(h, sess), http.MethodGet, path, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		h := New(newNoopLogger(), new(ServiceMock), new(SessionsMock), maker, cookieName, time.Hour)
		rec := do(t, router(h, security.NewSession("s")), http.MethodGet, "/users/nope/contact_methods/"+cmID.String()+"/verify", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid user_profile_id", envelope(t, rec).Status.Errors[0].Message)
	})
}
