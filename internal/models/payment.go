package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentProfile профиль клиента у платёжного процессора.
type PaymentProfile struct {
	PaymentProfileID           uuid.UUID `json:"payment_profile_id"`
	UserProfileID              uuid.UUID `json:"user_profile_id"`
	ProcessorID                string    `json:"processor_id"`
	ProcessorCustomerProfileID string    `json:"-"`
}

// PaymentMethod токенизированный платёжный инструмент.
type PaymentMethod struct {
	PaymentMethodID           uuid.UUID           `json:"payment_method_id"`
	PaymentProfileID          uuid.UUID           `json:"payment_profile_id"`
	UserProfileID             uuid.UUID           `json:"-"`
	ProcessorID               string              `json:"processor_id"`
	ProcessorPaymentMethodID  string              `json:"-"`
	MethodType                PaymentMethodType   `json:"payment_method_type"`
	MethodFamily              string              `json:"payment_method_family"`
	DisplayName               string              `json:"display_name"`
	SafeAccountNumberFragment string              `json:"safe_account_number_fragment"`
	Status                    PaymentMethodStatus `json:"status"`
	ExpiresAfter              *time.Time          `json:"expires_after"`
}

// NewPaymentMethod данные для сохранения платёжного инструмента.
type NewPaymentMethod struct {
	UserProfileID             uuid.UUID
	PaymentProfileID          uuid.UUID
	ProcessorPaymentMethodID  string
	MethodType                PaymentMethodType
	MethodFamily              string
	DisplayName               string
	SafeAccountNumberFragment string
	ExpiresAfter              *time.Time
}

// PaymentMethodFilter фильтр выборки платёжных инструментов пользователя.
// Нужен хотя бы один из PaymentProfileID, PaymentMethodID, ProcessorID.
// Пустой Status означает current; AnyStatus снимает фильтр по статусу.
type PaymentMethodFilter struct {
	PaymentProfileID *uuid.UUID
	PaymentMethodID  *uuid.UUID
	ProcessorID      string
	Status           PaymentMethodStatus
	AnyStatus        bool
}
