package paymentprovider

import (
	"context"
	"sort"
	"sync"

	"github.com/magabrotheeeer/vocal/internal/apperr"
	"github.com/magabrotheeeer/vocal/internal/models"
)

// Processor платёжный процессор.
type Processor interface {
	ID() string
	SupportsCurrency(c models.Currency) bool
	CreateCustomerProfile(ctx context.Context, customer Customer) (CustomerProfileID, error)
	AddCustomerPaymentMethod(ctx context.Context, customer CustomerProfileID, cred Credential) (PaymentMethodID, error)
	CreateImmediateCharge(ctx context.Context, charge Charge) (ChargeID, error)
	CreateRecurringCharge(ctx context.Context, charge Charge) (ChargeID, error)
	// CancelCharge отменяет списание и возвращает средства клиенту.
	CancelCharge(ctx context.Context, id ChargeID) error
}

// Registry процессоры, доступные по идентификатору.
type Registry struct {
	mu         sync.RWMutex
	processors map[string]Processor
}

// NewRegistry создаёт реестр из набора процессоров.
func NewRegistry(processors ...Processor) *Registry {
	r := &Registry{processors: make(map[string]Processor, len(processors))}
	for _, p := range processors {
		r.Register(p)
	}
	return r
}

// Register добавляет или заменяет процессор.
func (r *Registry) Register(p Processor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processors[p.ID()] = p
}

// Get возвращает процессор или ValidationError для неизвестного идентификатора.
func (r *Registry) Get(id string) (Processor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.processors[id]
	if !ok {
		return nil, apperr.Validation("unknown payment processor %s", id)
	}
	return p, nil
}

// IDs возвращает отсортированные идентификаторы процессоров.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.processors))
	for id := range r.processors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
