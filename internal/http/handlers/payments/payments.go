// Package payments реализует HTTP-обработчики платёжных инструментов.
package payments

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/vocal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/vocal/internal/http/request"
	"github.com/magabrotheeeer/vocal/internal/http/response"
	"github.com/magabrotheeeer/vocal/internal/models"
	"github.com/magabrotheeeer/vocal/internal/paymentprovider"
)

// Service описывает операции над платёжными инструментами.
type Service interface {
	AddPaymentMethod(ctx context.Context, userProfileID uuid.UUID, processorID string, cred paymentprovider.Credential) (*models.PaymentMethod, error)
	GetPaymentMethods(ctx context.Context, userProfileID uuid.UUID, f models.PaymentMethodFilter) ([]models.PaymentMethod, error)
}

// AddPaymentMethodRequest тело запроса добавления инструмента. Credential
// разбирается по типу инструмента и процессору не сохраняется.
type AddPaymentMethodRequest struct {
	ProcessorID       string                   `json:"processor_id" validate:"required"`
	PaymentMethodType models.PaymentMethodType `json:"payment_method_type" validate:"required,oneof=credit_card eft"`
	Credential        json.RawMessage          `json:"credential" validate:"required"`
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
// @Summary Добавить платёжный инструмент
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body AddPaymentMethodRequest true "Инструмент"
// @Success 201 {object} response.Response "Сохранённый инструмент"
// @Failure 400 {object} response.Response "Ошибка валидации"
// @Failure 403 {object} response.Response "Нет права payment_method.create"
// @Router /payment_methods [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.payments.Create")
	uid, ok := middlewarectx.UserProfileID(r.Context())
	if !ok {
		response.Error(w, r, http.StatusForbidden, "Forbidden")
		return
	}

	var req AddPaymentMethodRequest
	if !request.Decode(w, r, log, &req) || !response.Validate(w, r, log, h.validate, req) {
		return
	}
	cred, err := paymentprovider.ParseCredential(req.PaymentMethodType, req.Credential)
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}

	method, err := h.service.AddPaymentMethod(r.Context(), uid, req.ProcessorID, cred)
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}
	log.Info("payment method added", slog.String("payment_method_id", method.PaymentMethodID.String()))
	response.JSON(w, r, http.StatusCreated, method)
}

// List godoc
// @Summary Платёжные инструменты пользователя
// @Tags Payments
// @Produce json
// @Param processor_id query string true "Процессор"
// @Param status query string false "Статус, по умолчанию current"
// @Success 200 {object} response.Response "Инструменты"
// @Failure 403 {object} response.Response "Нет права payment_method.create"
// @Router /payment_methods [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.payments.List")
	uid, ok := middlewarectx.UserProfileID(r.Context())
	if !ok {
		response.Error(w, r, http.StatusForbidden, "Forbidden")
		return
	}

	q := r.URL.Query()
	methods, err := h.service.GetPaymentMethods(r.Context(), uid, models.PaymentMethodFilter{
		ProcessorID: q.Get("processor_id"),
		Status:      models.PaymentMethodStatus(q.Get("status")),
	})
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}
	if methods == nil {
		methods = []models.PaymentMethod{}
	}
	response.OK(w, r, methods)
}
