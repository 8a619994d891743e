// Package record описывает строки выборок и их проекцию в доменные модели.
//
// Каждая строка знает свои цели сканирования (Dest) в порядке колонок запроса
// и строит модель (Model). Выборки с соединением «один ко многим»
// группируются обратно в агрегаты.
package record

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/vocal/internal/models"
)

// UserProfileRow профиль, соединённый с почтовым и телефонным способами связи.
type UserProfileRow struct {
	UserProfileID uuid.UUID
	DisplayName   *string
	Name          string
	Role          models.UserRole
	CreatedAt     time.Time

	EmailID       *uuid.UUID
	EmailVerified *bool
	EmailAddress  *string

	PhoneID       *uuid.UUID
	PhoneVerified *bool
	PhoneNumber   *string
}

// Dest возвращает цели сканирования в порядке колонок UserProfileColumns.
func (r *UserProfileRow) Dest() []any {
	return []any{
		&r.UserProfileID, &r.DisplayName, &r.Name, &r.Role, &r.CreatedAt,
		&r.EmailID, &r.EmailVerified, &r.EmailAddress,
		&r.PhoneID, &r.PhoneVerified, &r.PhoneNumber,
	}
}

// Model строит профиль; отсутствующие способы связи остаются nil.
func (r *UserProfileRow) Model() *models.UserProfile {
	u := &models.UserProfile{
		UserProfileID: r.UserProfileID,
		Name:          r.Name,
		Role:          r.Role,
		CreatedAt:     r.CreatedAt,
	}
	if r.DisplayName != nil {
		u.DisplayName = *r.DisplayName
	}
	if r.EmailID != nil && r.EmailAddress != nil {
		u.Email = &models.ContactMethod{
			ContactMethodID: *r.EmailID,
			UserProfileID:   r.UserProfileID,
			Verified:        deref(r.EmailVerified),
			Value:           models.EmailAddress(*r.EmailAddress),
		}
	}
	if r.PhoneID != nil && r.PhoneNumber != nil {
		u.Phone = &models.ContactMethod{
			ContactMethodID: *r.PhoneID,
			UserProfileID:   r.UserProfileID,
			Verified:        deref(r.PhoneVerified),
			Value:           models.PhoneNumber(*r.PhoneNumber),
		}
	}
	return u
}

// ContactMethodRow способ связи с колонками всех вариантов.
type ContactMethodRow struct {
	UserProfileID   uuid.UUID
	ContactMethodID uuid.UUID
	Type            models.ContactMethodType
	Verified        bool
	EmailAddress    *string
	PhoneNumber     *string
	Address         *models.MailingAddress
}

// Dest возвращает цели сканирования для колонок почты и телефона.
// Почтовый адрес сканируется как JSON-объект.
func (r *ContactMethodRow) Dest() []any {
	return []any{&r.UserProfileID, &r.ContactMethodID, &r.Type, &r.Verified,
		&r.EmailAddress, &r.PhoneNumber, &r.Address}
}

// Model строит способ связи нужного варианта. Для строки без значения
// возвращается nil.
func (r *ContactMethodRow) Model() *models.ContactMethod {
	cm := &models.ContactMethod{
		ContactMethodID: r.ContactMethodID,
		UserProfileID:   r.UserProfileID,
		Verified:        r.Verified,
	}
	switch r.Type {
	case models.ContactMethodEmail:
		if r.EmailAddress == nil {
			return nil
		}
		cm.Value = models.EmailAddress(*r.EmailAddress)
	case models.ContactMethodPhone:
		if r.PhoneNumber == nil {
			return nil
		}
		cm.Value = models.PhoneNumber(*r.PhoneNumber)
	case models.ContactMethodAddress:
		if r.Address == nil {
			return nil
		}
		cm.Value = *r.Address
	default:
		return nil
	}
	return cm
}

// PlanDemandRow план, соединённый с одним из своих платёжных требований.
type PlanDemandRow struct {
	SubscriptionPlanID uuid.UUID
	Status             models.SubscriptionPlanStatus
	Rank               *int
	Name               *string
	Description        string

	PaymentDemandID *uuid.UUID
	DemandType      *models.PaymentDemandType
	Period          *models.PaymentDemandPeriod
	Amount          decimal.NullDecimal
	ISOCurrency     *string
	NonISOCurrency  *string
}

// Dest возвращает цели сканирования в порядке колонок PlanDemandColumns.
func (r *PlanDemandRow) Dest() []any {
	return []any{
		&r.SubscriptionPlanID, &r.Status, &r.Rank, &r.Name, &r.Description,
		&r.PaymentDemandID, &r.DemandType, &r.Period, &r.Amount, &r.ISOCurrency, &r.NonISOCurrency,
	}
}

func (r *PlanDemandRow) demand() (models.PaymentDemand, bool) {
	if r.PaymentDemandID == nil || r.DemandType == nil {
		return models.PaymentDemand{}, false
	}
	d := models.PaymentDemand{
		PaymentDemandID: *r.PaymentDemandID,
		DemandType:      *r.DemandType,
		Amount:          r.Amount.Decimal,
	}
	if r.Period != nil {
		d.Period = *r.Period
	}
	if r.ISOCurrency != nil {
		d.ISO = models.ISO4217Currency(*r.ISOCurrency)
	}
	if r.NonISOCurrency != nil {
		d.NonISO = *r.NonISOCurrency
	}
	return d, true
}

// GroupPlans собирает строки в планы. Планы идут в порядке первого
// появления, требования внутри плана идут в порядке строк.
func GroupPlans(rows []PlanDemandRow) []models.SubscriptionPlan {
	plans := make([]models.SubscriptionPlan, 0)
	index := make(map[uuid.UUID]int)
	for i := range rows {
		r := &rows[i]
		pos, ok := index[r.SubscriptionPlanID]
		if !ok {
			pos = len(plans)
			index[r.SubscriptionPlanID] = pos
			plans = append(plans, models.SubscriptionPlan{
				SubscriptionPlanID: r.SubscriptionPlanID,
				Status:             r.Status,
				Rank:               r.Rank,
				Name:               r.Name,
				Description:        r.Description,
				PaymentDemands:     []models.PaymentDemand{},
			})
		}
		if d, ok := r.demand(); ok {
			plans[pos].PaymentDemands = append(plans[pos].PaymentDemands, d)
		}
	}
	return plans
}

// ArticleRow версия статьи с данными автора.
type ArticleRow struct {
	ArticleID  uuid.UUID
	VersionKey uuid.UUID
	Revision   int64
	Status     models.ArticleStatus
	Title      *string
	Excerpt    json.RawMessage
	Document   json.RawMessage
	Text       string
	CreatedAt  time.Time

	AuthorID          uuid.UUID
	AuthorDisplayName *string
	AuthorRole        models.UserRole
	AuthorCreatedAt   time.Time
}

// Dest возвращает цели сканирования в порядке колонок ArticleColumns.
func (r *ArticleRow) Dest() []any {
	return []any{
		&r.ArticleID, &r.VersionKey, &r.Revision, &r.Status, &r.Title,
		&r.Excerpt, &r.Document, &r.Text, &r.CreatedAt,
		&r.AuthorID, &r.AuthorDisplayName, &r.AuthorRole, &r.AuthorCreatedAt,
	}
}

// Model строит версию статьи.
func (r *ArticleRow) Model() *models.Article {
	a := &models.Article{
		ArticleID:  r.ArticleID,
		VersionKey: r.VersionKey,
		Revision:   r.Revision,
		Author: models.Author{
			UserProfileID: r.AuthorID,
			Role:          r.AuthorRole,
			CreatedAt:     r.AuthorCreatedAt,
		},
		Status:    r.Status,
		Title:     r.Title,
		Excerpt:   r.Excerpt,
		Document:  r.Document,
		Text:      r.Text,
		CreatedAt: r.CreatedAt,
	}
	if r.AuthorDisplayName != nil {
		a.Author.DisplayName = *r.AuthorDisplayName
	}
	return a
}

// PaymentMethodRow платёжный инструмент, соединённый с профилем у процессора.
type PaymentMethodRow struct {
	UserProfileID              uuid.UUID
	PaymentProfileID           uuid.UUID
	ProcessorID                string
	ProcessorCustomerProfileID *string
	PaymentMethodID            uuid.UUID
	ProcessorPaymentMethodID   *string
	MethodType                 *models.PaymentMethodType
	MethodFamily               *string
	DisplayName                *string
	SafeAccountNumberFragment  *string
	Status                     models.PaymentMethodStatus
	ExpiresAfter               *time.Time
}

// Dest возвращает цели сканирования в порядке колонок PaymentMethodColumns.
func (r *PaymentMethodRow) Dest() []any {
	return []any{
		&r.UserProfileID, &r.PaymentProfileID, &r.ProcessorID, &r.ProcessorCustomerProfileID,
		&r.PaymentMethodID, &r.ProcessorPaymentMethodID, &r.MethodType, &r.MethodFamily,
		&r.DisplayName, &r.SafeAccountNumberFragment, &r.Status, &r.ExpiresAfter,
	}
}

// Model строит платёжный инструмент.
func (r *PaymentMethodRow) Model() models.PaymentMethod {
	return models.PaymentMethod{
		PaymentMethodID:           r.PaymentMethodID,
		PaymentProfileID:          r.PaymentProfileID,
		UserProfileID:             r.UserProfileID,
		ProcessorID:               r.ProcessorID,
		ProcessorPaymentMethodID:  deref(r.ProcessorPaymentMethodID),
		MethodType:                deref(r.MethodType),
		MethodFamily:              deref(r.MethodFamily),
		DisplayName:               deref(r.DisplayName),
		SafeAccountNumberFragment: deref(r.SafeAccountNumberFragment),
		Status:                    r.Status,
		ExpiresAfter:              r.ExpiresAfter,
	}
}

// SubscriptionRow подписка пользователя.
type SubscriptionRow struct {
	models.Subscription
}

// Dest возвращает цели сканирования в порядке колонок SubscriptionColumns.
func (r *SubscriptionRow) Dest() []any {
	s := &r.Subscription
	return []any{
		&s.UserProfileID, &s.SubscriptionPlanID, &s.PaymentDemandID, &s.PaymentProfileID,
		&s.PaymentMethodID, &s.Status, &s.ProcessorChargeID, &s.StartedAt,
		&s.CurrentStatusAt, &s.CurrentStatusUntil,
	}
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
