// Package models содержит доменные типы сервиса: перечисления, значения,
// сущности профилей, планов подписки, статей и их внешние представления.
package models

import (
	"strings"

	"golang.org/x/text/currency"
)

// UserRole роль пользователя.
type UserRole string

const (
	RoleSuperuser  UserRole = "superuser"
	RoleManager    UserRole = "manager"
	RoleCreator    UserRole = "creator"
	RoleMember     UserRole = "member"
	RoleSubscriber UserRole = "subscriber"
)

// Valid сообщает, является ли значение известной ролью.
func (r UserRole) Valid() bool {
	switch r {
	case RoleSuperuser, RoleManager, RoleCreator, RoleMember, RoleSubscriber:
		return true
	}
	return false
}

// RequiresPassword сообщает, нужен ли роли дополнительный вызов с паролем при входе.
func (r UserRole) RequiresPassword() bool {
	switch r {
	case RoleSuperuser, RoleManager, RoleCreator:
		return true
	}
	return false
}

// ContactMethodType дискриминант способа связи.
type ContactMethodType string

const (
	ContactMethodEmail   ContactMethodType = "email"
	ContactMethodPhone   ContactMethodType = "phone"
	ContactMethodAddress ContactMethodType = "address"
)

// SubscriptionPlanStatus статус плана подписки.
type SubscriptionPlanStatus string

const (
	PlanActive   SubscriptionPlanStatus = "active"
	PlanInactive SubscriptionPlanStatus = "inactive"
)

// PaymentDemandType дискриминант платёжного требования.
type PaymentDemandType string

const (
	DemandPeriodic  PaymentDemandType = "periodic"
	DemandImmediate PaymentDemandType = "immediate"
)

// Valid сообщает, является ли значение известным типом требования.
func (t PaymentDemandType) Valid() bool {
	return t == DemandPeriodic || t == DemandImmediate
}

// PaymentDemandPeriod период периодического платежа.
type PaymentDemandPeriod string

const (
	PeriodDaily     PaymentDemandPeriod = "daily"
	PeriodWeekly    PaymentDemandPeriod = "weekly"
	PeriodMonthly   PaymentDemandPeriod = "monthly"
	PeriodQuarterly PaymentDemandPeriod = "quarterly"
	PeriodAnnually  PaymentDemandPeriod = "annually"
)

// Periods перечисляет периоды в порядке отображения.
var Periods = []PaymentDemandPeriod{PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodQuarterly, PeriodAnnually}

// Valid сообщает, является ли значение известным периодом.
func (p PaymentDemandPeriod) Valid() bool {
	return p.Rank() >= 0
}

// Rank возвращает порядковый номер периода при сортировке, -1 для неизвестного.
func (p PaymentDemandPeriod) Rank() int {
	for i, v := range Periods {
		if v == p {
			return i
		}
	}
	return -1
}

// SubscriptionStatus статус подписки.
type SubscriptionStatus string

const (
	SubscriptionTrial     SubscriptionStatus = "trial"
	SubscriptionCurrent   SubscriptionStatus = "current"
	SubscriptionPaused    SubscriptionStatus = "paused"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// PaymentMethodType тип платёжного инструмента.
type PaymentMethodType string

const (
	PaymentMethodCreditCard PaymentMethodType = "credit_card"
	PaymentMethodEFT        PaymentMethodType = "eft"
)

// PaymentMethodStatus статус платёжного инструмента.
type PaymentMethodStatus string

const (
	PaymentMethodCurrent PaymentMethodStatus = "current"
	PaymentMethodExpired PaymentMethodStatus = "expired"
	PaymentMethodInvalid PaymentMethodStatus = "invalid"
)

// ArticleStatus статус версии статьи.
type ArticleStatus string

const (
	ArticleDraft     ArticleStatus = "draft"
	ArticlePublished ArticleStatus = "published"
	ArticleArchived  ArticleStatus = "archived"
)

// Valid сообщает, является ли значение известным статусом статьи.
func (s ArticleStatus) Valid() bool {
	switch s {
	case ArticleDraft, ArticlePublished, ArticleArchived:
		return true
	}
	return false
}

// AuthnChallengeType тип проверки при аутентификации.
type AuthnChallengeType string

const (
	ChallengePassword AuthnChallengeType = "password"
	ChallengeEmail    AuthnChallengeType = "email"
	ChallengeSMS      AuthnChallengeType = "sms"
)

// Valid сообщает, является ли значение известным типом проверки.
func (t AuthnChallengeType) Valid() bool {
	switch t {
	case ChallengePassword, ChallengeEmail, ChallengeSMS:
		return true
	}
	return false
}

// IsOTP сообщает, проверяется ли вызов одноразовым кодом.
func (t AuthnChallengeType) IsOTP() bool {
	return t == ChallengeEmail || t == ChallengeSMS
}

// AuthnPrincipalType вид идентификатора, которым представляется клиент.
type AuthnPrincipalType string

const (
	PrincipalEmail AuthnPrincipalType = "email"
	PrincipalPhone AuthnPrincipalType = "phone"
)

// ISO4217Currency код валюты ISO-4217. Константы перечисляют часто используемые коды,
// допустим любой код справочника.
type ISO4217Currency string

const (
	CurrencyUSD ISO4217Currency = "USD"
	CurrencyEUR ISO4217Currency = "EUR"
	CurrencyGBP ISO4217Currency = "GBP"
	CurrencyCAD ISO4217Currency = "CAD"
	CurrencyAUD ISO4217Currency = "AUD"
	CurrencyJPY ISO4217Currency = "JPY"
	CurrencyCHF ISO4217Currency = "CHF"
	CurrencyINR ISO4217Currency = "INR"
	CurrencyMXN ISO4217Currency = "MXN"
	CurrencyRUB ISO4217Currency = "RUB"
)

// ParseISO4217 нормализует код валюты и проверяет его по справочнику ISO-4217.
func ParseISO4217(code string) (ISO4217Currency, bool) {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return ISO4217Currency(strings.ToUpper(strings.TrimSpace(code))), false
	}
	return ISO4217Currency(unit.String()), true
}
