// Package subscriptions реализует HTTP-обработчики оформления подписок.
package subscriptions

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/vocal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/vocal/internal/http/request"
	"github.com/magabrotheeeer/vocal/internal/http/response"
	"github.com/magabrotheeeer/vocal/internal/models"
	"github.com/magabrotheeeer/vocal/internal/services/membership"
)

// Service описывает операции над подписками.
type Service interface {
	Subscribe(ctx context.Context, req membership.SubscribeRequest) (models.Subscription, error)
	GetSubscriptions(ctx context.Context, userProfileID uuid.UUID) ([]models.Subscription, error)
}

// SubscribeRequest тело запроса оформления подписки.
type SubscribeRequest struct {
	SubscriptionPlanID uuid.UUID `json:"subscription_plan_id" validate:"required"`
	PaymentDemandID    uuid.UUID `json:"payment_demand_id" validate:"required"`
	PaymentMethodID    uuid.UUID `json:"payment_method_id" validate:"required"`
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

// Create godoc
// @Summary Оформить подписку
// @Description Списывает оплату по требованию плана выбранным инструментом и оформляет подписку.
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param request body SubscribeRequest true "Подписка"
// @Success 201 {object} response.Response "Подписка"
// @Failure 400 {object} response.Response "Ошибка валидации"
// @Failure 404 {object} response.Response "План не найден"
// @Failure 409 {object} response.Response "Подписка уже оформлена"
// @Router /subscriptions [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.subscriptions.Create")
	uid, ok := middlewarectx.UserProfileID(r.Context())
	if !ok {
		response.Error(w, r, http.StatusForbidden, "Forbidden")
		return
	}

	var req SubscribeRequest
	if !request.Decode(w, r, log, &req) || !response.Validate(w, r, log, h.validate, req) {
		return
	}

	sub, err := h.service.Subscribe(r.Context(), membership.SubscribeRequest{
		UserProfileID:      uid,
		SubscriptionPlanID: req.SubscriptionPlanID,
		PaymentDemandID:    req.PaymentDemandID,
		PaymentMethodID:    req.PaymentMethodID,
	})
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, sub.Public())
}

// List godoc
// @Summary Подписки пользователя
// @Tags Subscriptions
// @Produce json
// @Success 200 {object} response.Response "Подписки"
// @Router /subscriptions [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.subscriptions.List")
	uid, ok := middlewarectx.UserProfileID(r.Context())
	if !ok {
		response.Error(w, r, http.StatusForbidden, "Forbidden")
		return
	}

	subs, err := h.service.GetSubscriptions(r.Context(), uid)
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}
	out := make([]models.PublicSubscription, 0, len(subs))
	for i := range subs {
		out = append(out, subs[i].Public())
	}
	response.OK(w, r, out)
}
