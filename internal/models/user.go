package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ContactValue значение способа связи. Реализации: EmailAddress, PhoneNumber, MailingAddress.
type ContactValue interface {
	ContactMethodType() ContactMethodType
}

// EmailAddress адрес электронной почты.
type EmailAddress string

func (EmailAddress) ContactMethodType() ContactMethodType { return ContactMethodEmail }

// PhoneNumber номер телефона в формате E.164.
type PhoneNumber string

func (PhoneNumber) ContactMethodType() ContactMethodType { return ContactMethodPhone }

// MailingAddress почтовый адрес.
type MailingAddress struct {
	CountryCode        string `json:"country_code"`
	AdministrativeArea string `json:"administrative_area"`
	Locality           string `json:"locality"`
	DependentLocality  string `json:"dependent_locality"`
	PostalCode         string `json:"postal_code"`
	SortingCode        string `json:"sorting_code"`
	Address1           string `json:"address_1"`
	Address2           string `json:"address_2"`
	Organization       string `json:"organization"`
	Name               string `json:"name"`
}

func (MailingAddress) ContactMethodType() ContactMethodType { return ContactMethodAddress }

// ContactMethod способ связи пользователя. Вариант определяется типом Value.
type ContactMethod struct {
	ContactMethodID uuid.UUID
	UserProfileID   uuid.UUID
	Verified        bool
	Value           ContactValue
}

// Type возвращает дискриминант способа связи.
func (c ContactMethod) Type() ContactMethodType {
	if c.Value == nil {
		return ""
	}
	return c.Value.ContactMethodType()
}

type contactMethodJSON struct {
	ContactMethodID uuid.UUID         `json:"contact_method_id"`
	Type            ContactMethodType `json:"contact_method_type"`
	Verified        bool              `json:"verified"`
	Value           json.RawMessage   `json:"value"`
}

// MarshalJSON кодирует способ связи с явным полем-дискриминантом contact_method_type.
func (c ContactMethod) MarshalJSON() ([]byte, error) {
	value, err := json.Marshal(c.Value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(contactMethodJSON{
		ContactMethodID: c.ContactMethodID,
		Type:            c.Type(),
		Verified:        c.Verified,
		Value:           value,
	})
}

// UnmarshalJSON декодирует способ связи, выбирая вариант по contact_method_type.
func (c *ContactMethod) UnmarshalJSON(data []byte) error {
	var raw contactMethodJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.ContactMethodID = raw.ContactMethodID
	c.Verified = raw.Verified

	switch raw.Type {
	case ContactMethodEmail:
		var v EmailAddress
		if err := json.Unmarshal(raw.Value, &v); err != nil {
			return err
		}
		c.Value = v
	case ContactMethodPhone:
		var v PhoneNumber
		if err := json.Unmarshal(raw.Value, &v); err != nil {
			return err
		}
		c.Value = v
	case ContactMethodAddress:
		var v MailingAddress
		if err := json.Unmarshal(raw.Value, &v); err != nil {
			return err
		}
		c.Value = v
	default:
		return fmt.Errorf("unknown contact method type %q", raw.Type)
	}
	return nil
}

// UserProfile профиль пользователя со способами связи.
type UserProfile struct {
	UserProfileID uuid.UUID
	DisplayName   string
	Name          string
	Role          UserRole
	CreatedAt     time.Time
	Email         *ContactMethod
	Phone         *ContactMethod
}

// EmailAddress возвращает адрес почты или пустую строку.
func (u *UserProfile) EmailAddress() string {
	if u.Email == nil {
		return ""
	}
	v, _ := u.Email.Value.(EmailAddress)
	return string(v)
}

// PhoneNumber возвращает номер телефона или пустую строку.
func (u *UserProfile) PhoneNumber() string {
	if u.Phone == nil {
		return ""
	}
	v, _ := u.Phone.Value.(PhoneNumber)
	return string(v)
}

// PublicUserProfile публичное представление профиля.
type PublicUserProfile struct {
	UserProfileID uuid.UUID `json:"user_profile_id"`
	DisplayName   string    `json:"display_name"`
	CreatedAt     time.Time `json:"created_at"`
}

// PrivateUserProfile представление профиля для самого пользователя и менеджеров.
type PrivateUserProfile struct {
	PublicUserProfile
	Name         string         `json:"name"`
	Role         UserRole       `json:"role"`
	EmailAddress *ContactMethod `json:"email_address,omitempty"`
	PhoneNumber  *ContactMethod `json:"phone_number,omitempty"`
}

// Public возвращает публичное представление.
func (u *UserProfile) Public() PublicUserProfile {
	return PublicUserProfile{
		UserProfileID: u.UserProfileID,
		DisplayName:   u.DisplayName,
		CreatedAt:     u.CreatedAt,
	}
}

// Private возвращает расширенное представление.
func (u *UserProfile) Private() PrivateUserProfile {
	return PrivateUserProfile{
		PublicUserProfile: u.Public(),
		Name:              u.Name,
		Role:              u.Role,
		EmailAddress:      u.Email,
		PhoneNumber:       u.Phone,
	}
}

// NewUserProfile данные для создания профиля.
type NewUserProfile struct {
	DisplayName  string
	Name         string
	Password     string
	Role         UserRole
	EmailAddress string
	PhoneNumber  string
}
