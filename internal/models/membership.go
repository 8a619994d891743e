package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/vocal/internal/apperr"
)

// Currency валюта платёжного требования: ровно одно из ISO или произвольного кода.
type Currency struct {
	ISO    ISO4217Currency `json:"iso_currency,omitempty"`
	NonISO string          `json:"non_iso_currency,omitempty"`
}

// Validate проверяет, что задано ровно одно поле валюты и ISO-код известен.
func (c Currency) Validate() error {
	switch {
	case c.ISO != "" && c.NonISO != "":
		return apperr.Validation("only one of iso_currency or non_iso_currency must be specified")
	case c.ISO == "" && c.NonISO == "":
		return apperr.Validation("one of iso_currency or non_iso_currency is required")
	case c.ISO != "":
		if _, ok := ParseISO4217(string(c.ISO)); !ok {
			return apperr.Validation("unknown ISO-4217 currency %s", c.ISO)
		}
	}
	return nil
}

// Normalize приводит коды к верхнему регистру.
func (c Currency) Normalize() Currency {
	if c.ISO != "" {
		c.ISO = ISO4217Currency(strings.ToUpper(string(c.ISO)))
	}
	if c.NonISO != "" {
		c.NonISO = strings.ToUpper(c.NonISO)
	}
	return c
}

// Code возвращает заданный код валюты.
func (c Currency) Code() string {
	if c.ISO != "" {
		return string(c.ISO)
	}
	return c.NonISO
}

// PaymentDemand платёжное требование плана. Period задан только у периодического варианта.
type PaymentDemand struct {
	PaymentDemandID uuid.UUID           `json:"payment_demand_id"`
	DemandType      PaymentDemandType   `json:"demand_type"`
	Period          PaymentDemandPeriod `json:"period,omitempty"`
	Amount          decimal.Decimal     `json:"amount"`
	Currency
}

// PeriodicDemand создаёт периодическое требование.
func PeriodicDemand(period PaymentDemandPeriod, amount decimal.Decimal, currency Currency) PaymentDemand {
	return PaymentDemand{DemandType: DemandPeriodic, Period: period, Amount: amount, Currency: currency}
}

// ImmediateDemand создаёт разовое требование.
func ImmediateDemand(amount decimal.Decimal, currency Currency) PaymentDemand {
	return PaymentDemand{DemandType: DemandImmediate, Amount: amount, Currency: currency}
}

// Validate проверяет согласованность варианта требования.
func (d PaymentDemand) Validate() error {
	switch d.DemandType {
	case DemandPeriodic:
		if !d.Period.Valid() {
			return apperr.Validation("periodic payment demand requires a valid period, got %q", d.Period)
		}
	case DemandImmediate:
		if d.Period != "" {
			return apperr.Validation("immediate payment demand must not have a period")
		}
	default:
		return apperr.Validation("unknown payment demand type %q", d.DemandType)
	}
	if d.Amount.IsNegative() {
		return apperr.Validation("payment demand amount must not be negative")
	}
	return d.Currency.Validate()
}

// SubscriptionPlan план подписки с упорядоченными платёжными требованиями.
type SubscriptionPlan struct {
	SubscriptionPlanID uuid.UUID              `json:"subscription_plan_id"`
	Status             SubscriptionPlanStatus `json:"status"`
	Rank               *int                   `json:"rank"`
	Name               *string                `json:"name"`
	Description        string                 `json:"description"`
	PaymentDemands     []PaymentDemand        `json:"payment_demands"`
}

// FindDemand ищет требование плана по идентификатору.
func (p *SubscriptionPlan) FindDemand(id uuid.UUID) (PaymentDemand, bool) {
	for _, d := range p.PaymentDemands {
		if d.PaymentDemandID == id {
			return d, true
		}
	}
	return PaymentDemand{}, false
}

// NewSubscriptionPlan данные для создания плана.
type NewSubscriptionPlan struct {
	Description    string
	Rank           *int
	Name           *string
	PaymentDemands []PaymentDemand
}

// Subscription подписка пользователя на план.
type Subscription struct {
	UserProfileID      uuid.UUID
	SubscriptionPlanID uuid.UUID
	PaymentDemandID    uuid.UUID
	PaymentProfileID   uuid.UUID
	PaymentMethodID    uuid.UUID
	ProcessorChargeID  string
	Status             SubscriptionStatus
	StartedAt          time.Time
	CurrentStatusAt    time.Time
	CurrentStatusUntil *time.Time
}

// PublicSubscription публичное представление подписки.
type PublicSubscription struct {
	SubscriptionPlanID uuid.UUID          `json:"subscription_plan_id"`
	PaymentDemandID    uuid.UUID          `json:"payment_demand_id"`
	PaymentMethodID    uuid.UUID          `json:"payment_method_id"`
	Status             SubscriptionStatus `json:"status"`
	StartedAt          time.Time          `json:"started_at"`
	CurrentStatusUntil *time.Time         `json:"current_status_until"`
}

// Public возвращает публичное представление.
func (s *Subscription) Public() PublicSubscription {
	return PublicSubscription{
		SubscriptionPlanID: s.SubscriptionPlanID,
		PaymentDemandID:    s.PaymentDemandID,
		PaymentMethodID:    s.PaymentMethodID,
		Status:             s.Status,
		StartedAt:          s.StartedAt,
		CurrentStatusUntil: s.CurrentStatusUntil,
	}
}

// NewSubscription данные для создания подписки.
type NewSubscription struct {
	UserProfileID      uuid.UUID
	SubscriptionPlanID uuid.UUID
	PaymentDemandID    uuid.UUID
	PaymentProfileID   uuid.UUID
	PaymentMethodID    uuid.UUID
	ProcessorChargeID  string
}
