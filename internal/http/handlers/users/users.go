// Package users реализует HTTP-обработчики регистрации и списка профилей.
package users

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/vocal/internal/http/request"
	"github.com/magabrotheeeer/vocal/internal/http/response"
	"github.com/magabrotheeeer/vocal/internal/models"
)

// Service описывает операции над профилями.
type Service interface {
	CreateUserProfile(ctx context.Context, p models.NewUserProfile) (*models.UserProfile, error)
	ListUserProfiles(ctx context.Context, limit, offset int) ([]models.UserProfile, error)
}

// SignUpRequest тело запроса регистрации. Нужен хотя бы один из email или телефона.
type SignUpRequest struct {
	DisplayName  string `json:"display_name"`
	Name         string `json:"name" validate:"required"`
	Password     string `json:"password" validate:"required,min=8"`
	EmailAddress string `json:"email_address" validate:"omitempty,email"`
	PhoneNumber  string `json:"phone_number" validate:"omitempty,e164"`
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// SignUp godoc
// @Summary Зарегистрировать пользователя
// @Description Создаёт профиль с ролью subscriber. Способы связи создаются неподтверждёнными.
// @Tags Users
// @Accept json
// @Produce json
// @Param request body SignUpRequest true "Данные профиля"
// @Success 201 {object} response.Response "Созданный профиль"
// @Failure 400 {object} response.Response "Ошибка валидации"
// @Failure 409 {object} response.Response "Email или телефон заняты"
// @Router /users [post]
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.users.SignUp")

	var req SignUpRequest
	if !request.Decode(w, r, log, &req) || !response.Validate(w, r, log, h.validate, req) {
		return
	}

	u, err := h.service.CreateUserProfile(r.Context(), models.NewUserProfile{
		DisplayName:  req.DisplayName,
		Name:         req.Name,
		Password:     req.Password,
		Role:         models.RoleSubscriber,
		EmailAddress: req.EmailAddress,
		PhoneNumber:  req.PhoneNumber,
	})
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}

	log.Info("user signed up", slog.String("user_profile_id", u.UserProfileID.String()))
	response.JSON(w, r, http.StatusCreated, u.Private())
}

// List godoc
// @Summary Список профилей
// @Tags Users
// @Produce json
// @Param limit query int false "Размер страницы"
// @Param offset query int false "Смещение"
// @Success 200 {object} response.Response "Публичные профили"
// @Failure 403 {object} response.Response "Нет права profile.list"
// @Router /users [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.users.List")

	limit, ok := request.QueryInt(w, r, "limit")
	if !ok {
		return
	}
	offset, ok := request.QueryInt(w, r, "offset")
	if !ok {
		return
	}

	profiles, err := h.service.ListUserProfiles(r.Context(), limit, offset)
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}
	out := make([]models.PublicUserProfile, 0, len(profiles))
	for i := range profiles {
		out = append(out, profiles[i].Public())
	}
	response.OK(w, r, out)
}
