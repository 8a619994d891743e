package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/vocal/internal/apperr"
	"github.com/magabrotheeeer/vocal/internal/lib/password"
	"github.com/magabrotheeeer/vocal/internal/models"
	"github.com/magabrotheeeer/vocal/internal/storage"
	"github.com/magabrotheeeer/vocal/internal/storage/record"
)

const (
	uniqueEmailIndex = "uq_email_contact_method_address"
	uniquePhoneIndex = "uq_phone_contact_method_number"
)

const userProfileFrom = `
	FROM user_profile up
	LEFT JOIN contact_method ecm
		ON ecm.user_profile_id = up.user_profile_id AND ecm.contact_method_type = 'email'
	LEFT JOIN email_contact_method e
		ON e.user_profile_id = ecm.user_profile_id AND e.contact_method_id = ecm.contact_method_id
	LEFT JOIN contact_method pcm
		ON pcm.user_profile_id = up.user_profile_id AND pcm.contact_method_type = 'phone'
	LEFT JOIN phone_contact_method p
		ON p.user_profile_id = pcm.user_profile_id AND p.contact_method_id = pcm.contact_method_id`

// UserProfileFilter критерий поиска профиля. Заданные поля объединяются через AND.
type UserProfileFilter struct {
	UserProfileID *uuid.UUID
	EmailAddress  string
	PhoneNumber   string
}

// ByID ищет профиль по идентификатору.
func ByID(id uuid.UUID) UserProfileFilter { return UserProfileFilter{UserProfileID: &id} }

// ByEmail ищет профиль по адресу почты.
func ByEmail(email string) UserProfileFilter { return UserProfileFilter{EmailAddress: email} }

// ByPhone ищет профиль по номеру телефона.
func ByPhone(phone string) UserProfileFilter { return UserProfileFilter{PhoneNumber: phone} }

// CreateUserProfile создаёт профиль, учётные данные и способы связи
// для каждого заданного идентификатора. Возвращает идентификатор профиля.
func CreateUserProfile(p models.NewUserProfile) *storage.Op[uuid.UUID] {
	return storage.NewOp("repository.CreateUserProfile", func(ctx context.Context, db storage.DBTX) (uuid.UUID, error) {
		if p.EmailAddress == "" && p.PhoneNumber == "" {
			return uuid.Nil, apperr.Validation("one of email address or phone number is required")
		}
		role := p.Role
		if role == "" {
			role = models.RoleSubscriber
		}
		if !role.Valid() {
			return uuid.Nil, apperr.Validation("unknown user role %q", role)
		}
		hash, err := password.Hash(p.Password)
		if err != nil {
			return uuid.Nil, err
		}

		var displayName *string
		if p.DisplayName != "" {
			displayName = &p.DisplayName
		}
		var id uuid.UUID
		err = db.QueryRow(ctx, `
			INSERT INTO user_profile (display_name, name, role)
			VALUES ($1, $2, $3)
			RETURNING user_profile_id`,
			displayName, p.Name, role).Scan(&id)
		if err != nil {
			return uuid.Nil, err
		}

		if _, err = db.Exec(ctx, `
			INSERT INTO user_auth (user_profile_id, password_crypt) VALUES ($1, $2)`,
			id, hash); err != nil {
			return uuid.Nil, err
		}

		if p.EmailAddress != "" {
			if _, err = AddContactMethod(id, models.EmailAddress(p.EmailAddress)).Execute(ctx, db); err != nil {
				return uuid.Nil, err
			}
		}
		if p.PhoneNumber != "" {
			if _, err = AddContactMethod(id, models.PhoneNumber(p.PhoneNumber)).Execute(ctx, db); err != nil {
				return uuid.Nil, err
			}
		}
		return id, nil
	})
}

// AddContactMethod добавляет неподтверждённый способ связи.
// У профиля может быть не больше одного способа связи каждого типа;
// адрес почты и номер телефона уникальны среди всех профилей.
func AddContactMethod(userProfileID uuid.UUID, value models.ContactValue) *storage.Op[uuid.UUID] {
	return storage.NewOp("repository.AddContactMethod", func(ctx context.Context, db storage.DBTX) (uuid.UUID, error) {
		if value == nil {
			return uuid.Nil, apperr.Validation("one of email_address or phone_number is required")
		}
		cmType := value.ContactMethodType()

		if err := checkContactValueFree(ctx, db, value); err != nil {
			return uuid.Nil, err
		}

		var taken bool
		if err := db.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM contact_method
				WHERE user_profile_id = $1 AND contact_method_type = $2
			)`, userProfileID, cmType).Scan(&taken); err != nil {
			return uuid.Nil, err
		}
		if taken {
			return uuid.Nil, apperr.Conflict("user profile already has a contact method of type %s", cmType)
		}

		var id uuid.UUID
		if err := db.QueryRow(ctx, `
			INSERT INTO contact_method (user_profile_id, contact_method_type, verified)
			VALUES ($1, $2, FALSE)
			RETURNING contact_method_id`,
			userProfileID, cmType).Scan(&id); err != nil {
			return uuid.Nil, err
		}

		var err error
		switch v := value.(type) {
		case models.EmailAddress:
			_, err = db.Exec(ctx, `
				INSERT INTO email_contact_method (user_profile_id, contact_method_id, email_address)
				VALUES ($1, $2, $3)`, userProfileID, id, string(v))
		case models.PhoneNumber:
			_, err = db.Exec(ctx, `
				INSERT INTO phone_contact_method (user_profile_id, contact_method_id, phone_number)
				VALUES ($1, $2, $3)`, userProfileID, id, string(v))
		case models.MailingAddress:
			_, err = db.Exec(ctx, `
				INSERT INTO address_contact_method (user_profile_id, contact_method_id,
					country_code, administrative_area, locality, dependent_locality,
					postal_code, sorting_code, address_2, address_1, organization, name)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
				userProfileID, id, v.CountryCode, v.AdministrativeArea, v.Locality,
				v.DependentLocality, v.PostalCode, v.SortingCode, v.Address2, v.Address1,
				v.Organization, v.Name)
		default:
			return uuid.Nil, apperr.Validation("unsupported contact method type %q", cmType)
		}
		if err != nil {
			return uuid.Nil, contactConflict(err, value)
		}
		return id, nil
	})
}

func checkContactValueFree(ctx context.Context, db storage.DBTX, value models.ContactValue) error {
	var q string
	var arg string
	switch v := value.(type) {
	case models.EmailAddress:
		q, arg = `SELECT EXISTS (SELECT 1 FROM email_contact_method WHERE email_address = $1)`, string(v)
	case models.PhoneNumber:
		q, arg = `SELECT EXISTS (SELECT 1 FROM phone_contact_method WHERE phone_number = $1)`, string(v)
	default:
		return nil
	}
	var exists bool
	if err := db.QueryRow(ctx, q, arg).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return duplicateContact(value)
	}
	return nil
}

// contactConflict заменяет нарушение уникального индекса,
// полученное при конкурентной вставке, на конфликт с тем же сообщением.
func contactConflict(err error, value models.ContactValue) error {
	if name, ok := storage.UniqueViolation(err); ok && (name == uniqueEmailIndex || name == uniquePhoneIndex) {
		return duplicateContact(value)
	}
	return err
}

func duplicateContact(value models.ContactValue) error {
	switch v := value.(type) {
	case models.EmailAddress:
		return apperr.Conflict("user profile with email %s already exists", string(v))
	case models.PhoneNumber:
		return apperr.Conflict("user profile with phone number %s already exists", string(v))
	}
	return apperr.Conflict("contact method already exists")
}

// GetUserProfile возвращает профиль с почтой и телефоном или nil, если профиль не найден.
func GetUserProfile(f UserProfileFilter) *storage.Op[*models.UserProfile] {
	return storage.NewOp("repository.GetUserProfile", func(ctx context.Context, db storage.DBTX) (*models.UserProfile, error) {
		var conds []string
		var args []any
		if f.UserProfileID != nil {
			args = append(args, *f.UserProfileID)
			conds = append(conds, fmt.Sprintf("up.user_profile_id = $%d", len(args)))
		}
		if f.EmailAddress != "" {
			args = append(args, f.EmailAddress)
			conds = append(conds, fmt.Sprintf("e.email_address = $%d", len(args)))
		}
		if f.PhoneNumber != "" {
			args = append(args, f.PhoneNumber)
			conds = append(conds, fmt.Sprintf("p.phone_number = $%d", len(args)))
		}
		if len(conds) == 0 {
			return nil, apperr.Validation("one of user_profile_id, email_address, phone_number are required")
		}

		sql := "SELECT " + record.UserProfileColumns + userProfileFrom +
			" WHERE " + strings.Join(conds, " AND ") + " LIMIT 1"
		rows, err := query[record.UserProfileRow](ctx, db, sql, args...)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, nil
		}
		return rows[0].Model(), nil
	})
}

// ListUserProfiles возвращает страницу профилей в порядке создания.
func ListUserProfiles(limit, offset int) *storage.Op[[]models.UserProfile] {
	return storage.NewOp("repository.ListUserProfiles", func(ctx context.Context, db storage.DBTX) ([]models.UserProfile, error) {
		if limit <= 0 {
			return nil, apperr.Validation("limit must be positive")
		}
		if offset < 0 {
			return nil, apperr.Validation("offset must not be negative")
		}
		rows, err := query[record.UserProfileRow](ctx, db,
			"SELECT "+record.UserProfileColumns+userProfileFrom+
				" ORDER BY up.created_at, up.user_profile_id LIMIT $1 OFFSET $2",
			limit, offset)
		if err != nil {
			return nil, err
		}
		out := make([]models.UserProfile, 0, len(rows))
		for i := range rows {
			out = append(out, *rows[i].Model())
		}
		return out, nil
	})
}

// GetContactMethod возвращает способ связи или nil. Если userProfileID задан,
// способ связи должен принадлежать этому профилю.
func GetContactMethod(contactMethodID uuid.UUID, userProfileID *uuid.UUID) *storage.Op[*models.ContactMethod] {
	return storage.NewOp("repository.GetContactMethod", func(ctx context.Context, db storage.DBTX) (*models.ContactMethod, error) {
		sql := "SELECT " + record.ContactMethodColumns + `
			FROM contact_method cm
			LEFT JOIN email_contact_method e
				ON e.user_profile_id = cm.user_profile_id AND e.contact_method_id = cm.contact_method_id
			LEFT JOIN phone_contact_method p
				ON p.user_profile_id = cm.user_profile_id AND p.contact_method_id = cm.contact_method_id
			LEFT JOIN address_contact_method a
				ON a.user_profile_id = cm.user_profile_id AND a.contact_method_id = cm.contact_method_id
			WHERE cm.contact_method_id = $1`
		args := []any{contactMethodID}
		if userProfileID != nil {
			sql += " AND cm.user_profile_id = $2"
			args = append(args, *userProfileID)
		}
		rows, err := query[record.ContactMethodRow](ctx, db, sql, args...)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, nil
		}
		return rows[0].Model(), nil
	})
}

// MarkContactMethodVerified отмечает неподтверждённый способ связи подтверждённым.
// Повторная отметка или неизвестный идентификатор дают ошибку валидации.
func MarkContactMethodVerified(contactMethodID uuid.UUID, userProfileID *uuid.UUID) *storage.Op[struct{}] {
	return storage.NewOp("repository.MarkContactMethodVerified", func(ctx context.Context, db storage.DBTX) (struct{}, error) {
		sql := `UPDATE contact_method SET verified = TRUE
			WHERE contact_method_id = $1 AND verified = FALSE`
		args := []any{contactMethodID}
		if userProfileID != nil {
			sql += " AND user_profile_id = $2"
			args = append(args, *userProfileID)
		}
		tag, err := db.Exec(ctx, sql, args...)
		if err != nil {
			return struct{}{}, err
		}
		if tag.RowsAffected() == 0 {
			return struct{}{}, apperr.Validation(
				"no unverified contact method exists with contact_method_id %s", contactMethodID)
		}
		return struct{}{}, nil
	})
}

// AuthenticateUser сверяет пароль с сохранённым хешем.
// Неверный пароль и отсутствие учётных данных дают false без ошибки.
func AuthenticateUser(userProfileID uuid.UUID, pass string) *storage.Op[bool] {
	return storage.NewOp("repository.AuthenticateUser", func(ctx context.Context, db storage.DBTX) (bool, error) {
		var hash string
		err := db.QueryRow(ctx,
			`SELECT password_crypt FROM user_auth WHERE user_profile_id = $1`,
			userProfileID).Scan(&hash)
		if storage.IsNoRows(err) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return password.Verify(hash, pass)
	})
}
