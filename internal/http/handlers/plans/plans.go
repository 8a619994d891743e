// Package plans реализует HTTP-обработчики планов подписки.
package plans

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/vocal/internal/http/request"
	"github.com/magabrotheeeer/vocal/internal/http/response"
	"github.com/magabrotheeeer/vocal/internal/models"
)

// Service описывает операции над планами.
type Service interface {
	GetPlans(ctx context.Context) ([]models.SubscriptionPlan, error)
	CreatePlan(ctx context.Context, p models.NewSubscriptionPlan) (uuid.UUID, error)
}

// PaymentDemandRequest платёжное требование нового плана.
type PaymentDemandRequest struct {
	DemandType     models.PaymentDemandType   `json:"demand_type" validate:"required,oneof=periodic immediate"`
	Period         models.PaymentDemandPeriod `json:"period"`
	Amount         decimal.Decimal            `json:"amount"`
	ISOCurrency    string                     `json:"iso_currency"`
	NonISOCurrency string                     `json:"non_iso_currency"`
}

// CreatePlanRequest тело запроса создания плана.
type CreatePlanRequest struct {
	Rank           *int                   `json:"rank"`
	Name           *string                `json:"name"`
	Description    string                 `json:"description" validate:"required"`
	PaymentDemands []PaymentDemandRequest `json:"payment_demands" validate:"required,min=1,dive"`
}

func (p PaymentDemandRequest) model() models.PaymentDemand {
	currency := models.Currency{
		ISO:    models.ISO4217Currency(p.ISOCurrency),
		NonISO: p.NonISOCurrency,
	}.Normalize()
	if p.DemandType == models.DemandPeriodic {
		return models.PeriodicDemand(p.Period, p.Amount, currency)
	}
	return models.ImmediateDemand(p.Amount, currency)
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

// List godoc
// @Summary Список планов подписки
// @Description Активные планы первыми, требования в порядке добавления.
// @Tags Plans
// @Produce json
// @Success 200 {object} response.Response "Планы"
// @Router /plans [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.plans.List")

	plans, err := h.service.GetPlans(r.Context())
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}
	if plans == nil {
		plans = []models.SubscriptionPlan{}
	}
	response.OK(w, r, plans)
}

// Create godoc
// @Summary Создать план подписки
// @Tags Plans
// @Accept json
// @Produce json
// @Param request body CreatePlanRequest true "План"
// @Success 201 {object} response.Response "Идентификатор плана"
// @Failure 400 {object} response.Response "Ошибка валидации"
// @Failure 403 {object} response.Response "Нет права plan.create"
// @Router /plans [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.plans.Create")

	var req CreatePlanRequest
	if !request.Decode(w, r, log, &req) || !response.Validate(w, r, log, h.validate, req) {
		return
	}

	demands := make([]models.PaymentDemand, 0, len(req.PaymentDemands))
	for _, d := range req.PaymentDemands {
		demands = append(demands, d.model())
	}
	id, err := h.service.CreatePlan(r.Context(), models.NewSubscriptionPlan{
		Description:    req.Description,
		Rank:           req.Rank,
		Name:           req.Name,
		PaymentDemands: demands,
	})
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, map[string]uuid.UUID{"subscription_plan_id": id})
}
