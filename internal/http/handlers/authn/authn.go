// Package authn реализует HTTP-обработчики сессии аутентификации
// и подтверждения способов связи.
//
// Обработчики загружают сессию из контекста, передают её сервису и сохраняют
// изменённый документ в хранилище до записи ответа. Клиент получает
// подписанный токен сессии в cookie и в теле ответа.
package authn

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/vocal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/vocal/internal/http/request"
	"github.com/magabrotheeeer/vocal/internal/http/response"
	"github.com/magabrotheeeer/vocal/internal/lib/jwt"
	"github.com/magabrotheeeer/vocal/internal/lib/sl"
	"github.com/magabrotheeeer/vocal/internal/models"
	"github.com/magabrotheeeer/vocal/internal/security"
	authnservice "github.com/magabrotheeeer/vocal/internal/services/authn"
)

// Service описывает операции аутентификации над сессией.
type Service interface {
	InitiateSession(ctx context.Context, sess *security.Session, principalName string, principalType models.AuthnPrincipalType) error
	GetNextChallenge(ctx context.Context, sess *security.Session) (models.PublicChallenge, error)
	VerifyChallenge(ctx context.Context, sess *security.Session, challengeID uuid.UUID, passcode string) (authnservice.Result, error)
	GetContactMethodVerifyChallenge(ctx context.Context, sess *security.Session, userProfileID, contactMethodID uuid.UUID) (models.PublicChallenge, error)
	VerifyContactMethod(ctx context.Context, sess *security.Session, userProfileID, contactMethodID, challengeID uuid.UUID, passcode string) error
}

// Sessions сохраняет документы сессий.
type Sessions interface {
	Save(ctx context.Context, sess *security.Session) error
}

// InitiateSessionRequest тело запроса на создание сессии.
type InitiateSessionRequest struct {
	PrincipalName string                    `json:"principal_name" validate:"required"`
	PrincipalType models.AuthnPrincipalType `json:"principal_type" validate:"required,oneof=email phone"`
}

// ChallengeResponseRequest ответ клиента на вызов.
type ChallengeResponseRequest struct {
	ChallengeID uuid.UUID `json:"challenge_id" validate:"required"`
	Passcode    string    `json:"passcode" validate:"required"`
}

// SessionToken ответ с токеном новой сессии.
type SessionToken struct {
	Token string `json:"token"`
}

// Completed ответ на завершённую аутентификацию.
type Completed struct {
	Authenticated bool                  `json:"authenticated"`
	Capabilities  []security.Capability `json:"capabilities"`
}

// Handler обслуживает эндпоинты аутентификации и выдаёт сессионные токены.
type Handler struct {
	log        *slog.Logger
	service    Service
	sessions   Sessions
	maker      jwt.Maker
	cookieName string
	ttl        time.Duration
	validate   *validator.Validate
}

// New создаёт Handler, сессии выдаются в cookie cookieName со сроком жизни ttl.
func New(log *slog.Logger, service Service, sessions Sessions, maker jwt.Maker, cookieName string, ttl time.Duration) *Handler {
	return &Handler{
		log:        log,
		service:    service,
		sessions:   sessions,
		maker:      maker,
		cookieName: cookieName,
		ttl:        ttl,
		validate:   validator.New(),
	}
}

// save сохраняет сессию; при ошибке пишет 500 и возвращает false.
func (h *Handler) save(w http.ResponseWriter, r *http.Request, log *slog.Logger, sess *security.Session) bool {
	if err := h.sessions.Save(r.Context(), sess); err != nil {
		log.Error("failed to save session", sl.Err(err))
		response.Error(w, r, http.StatusInternalServerError, "internal server error")
		return false
	}
	return true
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*security.Session, bool) {
	sess, ok := middlewarectx.SessionFrom(r.Context())
	if !ok {
		response.Error(w, r, http.StatusForbidden, "Forbidden")
	}
	return sess, ok
}

// InitiateSession godoc
// @Summary Начать сессию аутентификации
// @Description Создаёт новую сессию для пользователя с указанным email или телефоном и ставит в очередь требуемые вызовы.
// @Tags Authn
// @Accept json
// @Produce json
// @Param request body InitiateSessionRequest true "Идентификатор пользователя"
// @Success 200 {object} response.Response "Токен сессии"
// @Failure 400 {object} response.Response "Некорректный запрос"
// @Failure 401 {object} response.Response "Пользователь не найден"
// @Router /authn/session [post]
func (h *Handler) InitiateSession(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.authn.InitiateSession")

	var req InitiateSessionRequest
	if !request.Decode(w, r, log, &req) || !response.Validate(w, r, log, h.validate, req) {
		return
	}

	sess := security.NewSession(uuid.NewString())
	if err := h.service.InitiateSession(r.Context(), sess, req.PrincipalName, req.PrincipalType); err != nil {
		response.FromError(w, r, log, err)
		return
	}
	if !h.save(w, r, log, sess) {
		return
	}

	token, err := h.maker.GenerateToken(sess.ID)
	if err != nil {
		log.Error("failed to sign session token", sl.Err(err))
		response.Error(w, r, http.StatusInternalServerError, "internal server error")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	log.Info("authn session initiated", slog.String("principal_type", string(req.PrincipalType)))
	response.OK(w, r, SessionToken{Token: token})
}

// GetChallenge godoc
// @Summary Получить следующий вызов
// @Tags Authn
// @Produce json
// @Success 200 {object} response.Response "Публичное представление вызова"
// @Failure 400 {object} response.Response "Вызов уже выдан или вызовов нет"
// @Failure 403 {object} response.Response "Нет права authn"
// @Router /authn/challenge [get]
func (h *Handler) GetChallenge(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.authn.GetChallenge")
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	challenge, err := h.service.GetNextChallenge(r.Context(), sess)
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}
	if !h.save(w, r, log, sess) {
		return
	}
	response.OK(w, r, challenge)
}

// VerifyChallenge godoc
// @Summary Ответить на вызов
// @Description 202 означает, что вызов принят и выдан следующий; 200 завершает аутентификацию.
// @Tags Authn
// @Accept json
// @Produce json
// @Param request body ChallengeResponseRequest true "Ответ на вызов"
// @Success 200 {object} response.Response "Аутентификация завершена"
// @Success 202 {object} response.Response "Следующий вызов"
// @Failure 400 {object} response.Response "Нет выданного вызова"
// @Failure 401 {object} response.Response "Неверный код"
// @Failure 403 {object} response.Response "Слишком много попыток"
// @Router /authn/challenge [post]
func (h *Handler) VerifyChallenge(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.authn.VerifyChallenge")
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req ChallengeResponseRequest
	if !request.Decode(w, r, log, &req) || !response.Validate(w, r, log, h.validate, req) {
		return
	}

	// счётчик попыток меняется и при неверном коде
	result, err := h.service.VerifyChallenge(r.Context(), sess, req.ChallengeID, req.Passcode)
	if !h.save(w, r, log, sess) {
		return
	}
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}

	if result.Next != nil {
		response.JSON(w, r, http.StatusAccepted, result.Next)
		return
	}
	log.Info("authentication completed")
	response.OK(w, r, Completed{Authenticated: true, Capabilities: sess.Capabilities.List()})
}

// GetContactMethodChallenge godoc
// @Summary Получить вызов подтверждения способа связи
// @Tags Authn
// @Produce json
// @Param user_profile_id path string true "Профиль"
// @Param contact_method_id path string true "Способ связи"
// @Success 200 {object} response.Response "Публичное представление вызова"
// @Failure 400 {object} response.Response "Способ связи уже подтверждён"
// @Failure 403 {object} response.Response "Чужой профиль"
// @Failure 404 {object} response.Response "Способ связи не найден"
// @Router /users/{user_profile_id}/contact_methods/{contact_method_id}/verify [get]
func (h *Handler) GetContactMethodChallenge(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.authn.GetContactMethodChallenge")
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	userProfileID, ok := request.PathUUID(w, r, "user_profile_id")
	if !ok {
		return
	}
	contactMethodID, ok := request.PathUUID(w, r, "contact_method_id")
	if !ok {
		return
	}

	challenge, err := h.service.GetContactMethodVerifyChallenge(r.Context(), sess, userProfileID, contactMethodID)
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}
	if !h.save(w, r, log, sess) {
		return
	}
	response.OK(w, r, challenge)
}

// VerifyContactMethod godoc
// @Summary Подтвердить способ связи кодом
// @Tags Authn
// @Accept json
// @Produce json
// @Param user_profile_id path string true "Профиль"
// @Param contact_method_id path string true "Способ связи"
// @Param request body ChallengeResponseRequest true "Ответ на вызов"
// @Success 200 {object} response.Response "Способ связи подтверждён"
// @Failure 400 {object} response.Response "Неверный вызов"
// @Failure 401 {object} response.Response "Неверный код"
// @Failure 403 {object} response.Response "Слишком много попыток"
// @Router /users/{user_profile_id}/contact_methods/{contact_method_id}/verify [post]
func (h *Handler) VerifyContactMethod(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.authn.VerifyContactMethod")
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	userProfileID, ok := request.PathUUID(w, r, "user_profile_id")
	if !ok {
		return
	}
	contactMethodID, ok := request.PathUUID(w, r, "contact_method_id")
	if !ok {
		return
	}

	var req ChallengeResponseRequest
	if !request.Decode(w, r, log, &req) || !response.Validate(w, r, log, h.validate, req) {
		return
	}

	err := h.service.VerifyContactMethod(r.Context(), sess, userProfileID, contactMethodID, req.ChallengeID, req.Passcode)
	if !h.save(w, r, log, sess) {
		return
	}
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}
	log.Info("contact method verified", slog.String("contact_method_id", contactMethodID.String()))
	response.OK(w, r, nil)
}
