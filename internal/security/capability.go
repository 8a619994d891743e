// Package security описывает права доступа (capabilities) и документ сессии
// аутентификации, который хранится в хранилище сессий.
package security

import (
	"slices"

	"github.com/magabrotheeeer/vocal/internal/models"
)

// Capability право на выполнение группы операций.
type Capability string

const (
	// CapAuthn выдаётся на время прохождения вызовов аутентификации.
	CapAuthn               Capability = "authn"
	CapProfileList         Capability = "profile.list"
	CapPlanCreate          Capability = "plan.create"
	CapSubscriptionCreate  Capability = "subscription.create"
	CapPaymentMethodCreate Capability = "payment_method.create"
	CapArticleCreate       Capability = "article.create"
)

// Capabilities множество прав.
type Capabilities map[Capability]struct{}

// NewCapabilities создаёт множество из перечисленных прав.
func NewCapabilities(caps ...Capability) Capabilities {
	set := make(Capabilities, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// Has сообщает, содержит ли множество все требуемые права.
// Пустой список требований выполняется всегда.
func (c Capabilities) Has(required ...Capability) bool {
	for _, r := range required {
		if _, ok := c[r]; !ok {
			return false
		}
	}
	return true
}

// List возвращает права в отсортированном виде.
func (c Capabilities) List() []Capability {
	out := make([]Capability, 0, len(c))
	for k := range c {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Clone возвращает независимую копию множества.
func (c Capabilities) Clone() Capabilities {
	out := make(Capabilities, len(c))
	for k := range c {
		out[k] = struct{}{}
	}
	return out
}

// roleCapabilities заполняется один раз при инициализации пакета и не изменяется.
var roleCapabilities = map[models.UserRole]Capabilities{
	models.RoleSuperuser: NewCapabilities(CapAuthn, CapProfileList, CapPlanCreate,
		CapSubscriptionCreate, CapPaymentMethodCreate, CapArticleCreate),
	models.RoleManager: NewCapabilities(CapProfileList, CapSubscriptionCreate,
		CapPaymentMethodCreate, CapArticleCreate),
	models.RoleCreator: NewCapabilities(CapProfileList, CapSubscriptionCreate,
		CapPaymentMethodCreate, CapArticleCreate),
	models.RoleMember:     NewCapabilities(CapProfileList, CapSubscriptionCreate, CapPaymentMethodCreate),
	models.RoleSubscriber: NewCapabilities(CapProfileList, CapSubscriptionCreate, CapPaymentMethodCreate),
}

// RoleCapabilities возвращает копию прав роли. Для неизвестной роли множество пусто.
func RoleCapabilities(role models.UserRole) Capabilities {
	caps, ok := roleCapabilities[role]
	if !ok {
		return Capabilities{}
	}
	return caps.Clone()
}
