// Package paymentprovider описывает границу с платёжными процессорами
// и содержит тестовый процессор com.example.
package paymentprovider

import (
	"encoding/json"
	"regexp"
	"time"

	"github.com/go-playground/validator"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/vocal/internal/apperr"
	"github.com/magabrotheeeer/vocal/internal/models"
)

// Идентификаторы, которые выдаёт процессор.
type (
	CustomerProfileID string
	PaymentMethodID   string
	ChargeID          string
)

// Credential реквизиты платёжного инструмента, переданные клиентом.
type Credential interface {
	MethodType() models.PaymentMethodType
	MethodFamily() string
	DisplayName() string
	SafeAccountNumberFragment() string
	ExpiresAfter() *time.Time
}

var familyNames = map[string]string{
	"visa":       "Visa",
	"mastercard": "Mastercard",
	"amex":       "American Express",
	"dc":         "Diner's Club",
	"discover":   "Discover",
}

var cardFamilies = []struct {
	family string
	re     *regexp.Regexp
}{
	{family: "visa", re: regexp.MustCompile(`^4[0-9]{6,}$`)},
	{family: "mastercard", re: regexp.MustCompile(`^(?:5[1-5][0-9]{5,}|222[1-9][0-9]{3,}|22[3-9][0-9]{4,}|2[3-6][0-9]{5,}|27[01][0-9]{4,}|2720[0-9]{3,})$`)},
	{family: "amex", re: regexp.MustCompile(`^3[47][0-9]{5,}$`)},
	{family: "dc", re: regexp.MustCompile(`^3(?:0[0-5]|[68][0-9])[0-9]{4,}$`)},
	{family: "discover", re: regexp.MustCompile(`^6(?:011|5[0-9]{2})[0-9]{3,}$`)},
}

// CardFamily определяет платёжную систему по номеру карты, пустая строка если не распознана.
func CardFamily(number string) string {
	for _, f := range cardFamilies {
		if f.re.MatchString(number) {
			return f.family
		}
	}
	return ""
}

// CreditCard реквизиты банковской карты.
type CreditCard struct {
	CardNumber string `json:"card_number" validate:"required,numeric,min=12,max=19"`
	ExpMonth   int    `json:"exp_month" validate:"required,min=1,max=12"`
	ExpYear    int    `json:"exp_year" validate:"required,min=2000,max=9999"`
	CVV        string `json:"cvv" validate:"required,numeric,min=3,max=4"`
}

func (CreditCard) MethodType() models.PaymentMethodType { return models.PaymentMethodCreditCard }

func (c CreditCard) MethodFamily() string { return CardFamily(c.CardNumber) }

// DisplayName имя вида "Visa 1111".
func (c CreditCard) DisplayName() string {
	name, ok := familyNames[c.MethodFamily()]
	if !ok {
		name = "Card"
	}
	return name + " " + c.SafeAccountNumberFragment()
}

func (c CreditCard) SafeAccountNumberFragment() string {
	return lastFour(c.CardNumber)
}

// ExpiresAfter последний день месяца окончания срока действия.
func (c CreditCard) ExpiresAfter() *time.Time {
	t := time.Date(c.ExpYear, time.Month(c.ExpMonth)+1, 0, 0, 0, 0, 0, time.UTC)
	return &t
}

// ACHAccountType тип банковского счёта.
type ACHAccountType string

const (
	ACHChecking         ACHAccountType = "checking"
	ACHSavings          ACHAccountType = "savings"
	ACHBusinessChecking ACHAccountType = "business_checking"
	ACHBusinessSavings  ACHAccountType = "business_savings"
)

// ACH реквизиты банковского счёта для электронного перевода.
type ACH struct {
	AccountNumber string         `json:"account_number" validate:"required,numeric"`
	RoutingNumber string         `json:"routing_number" validate:"required,numeric,len=9"`
	AccountType   ACHAccountType `json:"account_type" validate:"required,oneof=checking savings business_checking business_savings"`
}

func (ACH) MethodType() models.PaymentMethodType { return models.PaymentMethodEFT }

func (ACH) MethodFamily() string { return "ACH" }

func (a ACH) DisplayName() string {
	return "Routing: " + a.RoutingNumber + ", Account: ****" + a.SafeAccountNumberFragment()
}

func (a ACH) SafeAccountNumberFragment() string { return lastFour(a.AccountNumber) }

func (ACH) ExpiresAfter() *time.Time { return nil }

func lastFour(s string) string {
	if len(s) <= 4 {
		return s
	}
	return s[len(s)-4:]
}

// Customer данные клиента для создания профиля у процессора.
type Customer struct {
	UserProfileID uuid.UUID
	Name          string
	EmailAddress  string
	PhoneNumber   string
}

// Charge параметры списания. Period задаётся только для периодических списаний.
type Charge struct {
	UserProfileID     uuid.UUID
	CustomerProfileID CustomerProfileID
	PaymentMethodID   PaymentMethodID
	StartDate         time.Time
	Period            models.PaymentDemandPeriod
	Amount            decimal.Decimal
	Currency          models.Currency
}

// NewPaymentMethod проекция реквизитов в сохраняемый платёжный инструмент.
func NewPaymentMethod(cred Credential, userProfileID, paymentProfileID uuid.UUID, id PaymentMethodID) models.NewPaymentMethod {
	return models.NewPaymentMethod{
		UserProfileID:             userProfileID,
		PaymentProfileID:          paymentProfileID,
		ProcessorPaymentMethodID:  string(id),
		MethodType:                cred.MethodType(),
		MethodFamily:              cred.MethodFamily(),
		DisplayName:               cred.DisplayName(),
		SafeAccountNumberFragment: cred.SafeAccountNumberFragment(),
		ExpiresAfter:              cred.ExpiresAfter(),
	}
}

var validate = validator.New()

// ParseCredential разбирает и проверяет реквизиты инструмента типа methodType.
func ParseCredential(methodType models.PaymentMethodType, raw json.RawMessage) (Credential, error) {
	switch methodType {
	case models.PaymentMethodCreditCard:
		var card CreditCard
		if err := json.Unmarshal(raw, &card); err != nil {
			return nil, apperr.Validation("malformed credit card credential")
		}
		if err := validate.Struct(card); err != nil {
			return nil, apperr.Validation("invalid credit card credential: %v", err)
		}
		if CardFamily(card.CardNumber) == "" {
			return nil, apperr.Validation("unsupported card number")
		}
		return card, nil
	case models.PaymentMethodEFT:
		var ach ACH
		if err := json.Unmarshal(raw, &ach); err != nil {
			return nil, apperr.Validation("malformed ACH credential")
		}
		if err := validate.Struct(ach); err != nil {
			return nil, apperr.Validation("invalid ACH credential: %v", err)
		}
		return ach, nil
	}
	return nil, apperr.Validation("unknown payment method type %q", methodType)
}
