package paymentprovider

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/vocal/internal/apperr"
	"github.com/magabrotheeeer/vocal/internal/models"
)

// MockProcessorID идентификатор тестового процессора.
const MockProcessorID = "com.example"

type mockCustomer struct {
	customer Customer
	methods  map[PaymentMethodID]Credential
}

// MockCharge списание, зафиксированное тестовым процессором.
type MockCharge struct {
	ID        ChargeID
	Timestamp time.Time
	Cancelled bool
	Charge
}

// Mock процессор, хранящий клиентов и списания в памяти. Поддерживает только USD.
type Mock struct {
	clientID string
	secret   string

	mu        sync.Mutex
	customers map[CustomerProfileID]*mockCustomer
	charges   []MockCharge
	now       func() time.Time
}

// NewMock создаёт тестовый процессор.
func NewMock(clientID, secret string) *Mock {
	return &Mock{
		clientID:  clientID,
		secret:    secret,
		customers: make(map[CustomerProfileID]*mockCustomer),
		now:       time.Now,
	}
}

func (m *Mock) ID() string { return MockProcessorID }

func (m *Mock) SupportsCurrency(c models.Currency) bool {
	return c.NonISO == "" && c.ISO == models.CurrencyUSD
}

func newMockID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (m *Mock) CreateCustomerProfile(ctx context.Context, customer Customer) (CustomerProfileID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := CustomerProfileID(newMockID("cus"))

	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[id] = &mockCustomer{customer: customer, methods: make(map[PaymentMethodID]Credential)}
	return id, nil
}

func (m *Mock) AddCustomerPaymentMethod(ctx context.Context, customer CustomerProfileID, cred Credential) (PaymentMethodID, error) {
	const op = "paymentprovider.Mock.AddCustomerPaymentMethod"
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if cred.MethodType() != models.PaymentMethodCreditCard {
		return "", apperr.Validation("payment method type %s is not supported by %s", cred.MethodType(), MockProcessorID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[customer]
	if !ok {
		return "", fmt.Errorf("%s: unknown customer profile %s", op, customer)
	}
	id := PaymentMethodID(newMockID("pm"))
	c.methods[id] = cred
	return id, nil
}

func (m *Mock) CreateImmediateCharge(ctx context.Context, charge Charge) (ChargeID, error) {
	charge.Period = ""
	return m.charge(ctx, "paymentprovider.Mock.CreateImmediateCharge", charge)
}

func (m *Mock) CreateRecurringCharge(ctx context.Context, charge Charge) (ChargeID, error) {
	const op = "paymentprovider.Mock.CreateRecurringCharge"
	if !charge.Period.Valid() {
		return "", fmt.Errorf("%s: recurring charge requires a period", op)
	}
	return m.charge(ctx, op, charge)
}

func (m *Mock) charge(ctx context.Context, op string, charge Charge) (ChargeID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !m.SupportsCurrency(charge.Currency) {
		return "", apperr.Validation("currency %s is not supported by %s", charge.Currency.Code(), MockProcessorID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[charge.CustomerProfileID]
	if !ok {
		return "", fmt.Errorf("%s: unknown customer profile %s", op, charge.CustomerProfileID)
	}
	if _, ok := c.methods[charge.PaymentMethodID]; !ok {
		return "", fmt.Errorf("%s: unknown payment method %s", op, charge.PaymentMethodID)
	}
	id := ChargeID(newMockID("ch"))
	m.charges = append(m.charges, MockCharge{ID: id, Timestamp: m.now().UTC(), Charge: charge})
	return id, nil
}

func (m *Mock) CancelCharge(ctx context.Context, id ChargeID) error {
	const op = "paymentprovider.Mock.CancelCharge"
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.charges {
		if m.charges[i].ID != id {
			continue
		}
		if m.charges[i].Cancelled {
			return fmt.Errorf("%s: charge %s is already cancelled", op, id)
		}
		m.charges[i].Cancelled = true
		return nil
	}
	return fmt.Errorf("%s: unknown charge %s", op, id)
}

// Charges возвращает копию зафиксированных списаний.
func (m *Mock) Charges() []MockCharge {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCharge, len(m.charges))
	copy(out, m.charges)
	return out
}
