package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/vocal/internal/apperr"
	"github.com/magabrotheeeer/vocal/internal/models"
	"github.com/magabrotheeeer/vocal/internal/storage"
	"github.com/magabrotheeeer/vocal/internal/storage/record"
)

// AddPaymentProfile сохраняет профиль клиента у процессора processorID.
func AddPaymentProfile(userProfileID uuid.UUID, processorID, customerProfileID string) *storage.Op[uuid.UUID] {
	return storage.NewOp("repository.AddPaymentProfile", func(ctx context.Context, db storage.DBTX) (uuid.UUID, error) {
		var id uuid.UUID
		err := db.QueryRow(ctx, `
			INSERT INTO payment_profile (user_profile_id, processor_id, processor_customer_profile_id)
			VALUES ($1, $2, $3)
			RETURNING payment_profile_id`,
			userProfileID, processorID, customerProfileID).Scan(&id)
		if _, ok := storage.UniqueViolation(err); ok {
			return uuid.Nil, apperr.Conflict("payment profile for processor %s already exists", processorID)
		}
		return id, err
	})
}

// GetPaymentProfile возвращает профиль клиента у процессора или nil.
func GetPaymentProfile(userProfileID uuid.UUID, processorID string) *storage.Op[*models.PaymentProfile] {
	return storage.NewOp("repository.GetPaymentProfile", func(ctx context.Context, db storage.DBTX) (*models.PaymentProfile, error) {
		p := &models.PaymentProfile{}
		var customerID *string
		err := db.QueryRow(ctx, `
			SELECT user_profile_id, payment_profile_id, processor_id, processor_customer_profile_id
			FROM payment_profile
			WHERE user_profile_id = $1 AND processor_id = $2`,
			userProfileID, processorID).Scan(&p.UserProfileID, &p.PaymentProfileID, &p.ProcessorID, &customerID)
		if storage.IsNoRows(err) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if customerID != nil {
			p.ProcessorCustomerProfileID = *customerID
		}
		return p, nil
	})
}

// AddPaymentMethod сохраняет токенизированный платёжный инструмент со статусом current.
func AddPaymentMethod(m models.NewPaymentMethod) *storage.Op[uuid.UUID] {
	return storage.NewOp("repository.AddPaymentMethod", func(ctx context.Context, db storage.DBTX) (uuid.UUID, error) {
		var id uuid.UUID
		err := db.QueryRow(ctx, `
			INSERT INTO payment_method (user_profile_id, payment_profile_id, processor_payment_method_id,
				payment_method_type, payment_method_family, display_name,
				safe_account_number_fragment, status, expires_after)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING payment_method_id`,
			m.UserProfileID, m.PaymentProfileID, m.ProcessorPaymentMethodID, m.MethodType,
			m.MethodFamily, m.DisplayName, m.SafeAccountNumberFragment,
			models.PaymentMethodCurrent, m.ExpiresAfter).Scan(&id)
		return id, err
	})
}

// GetPaymentMethods возвращает платёжные инструменты пользователя по фильтру.
func GetPaymentMethods(userProfileID uuid.UUID, f models.PaymentMethodFilter) *storage.Op[[]models.PaymentMethod] {
	return storage.NewOp("repository.GetPaymentMethods", func(ctx context.Context, db storage.DBTX) ([]models.PaymentMethod, error) {
		if f.PaymentProfileID == nil && f.PaymentMethodID == nil && f.ProcessorID == "" {
			return nil, apperr.Validation("one of payment_profile_id, payment_method_id, processor_id are required")
		}

		sql := "SELECT " + record.PaymentMethodColumns + `
			FROM payment_profile pp
			JOIN payment_method pm
				ON pm.user_profile_id = pp.user_profile_id AND pm.payment_profile_id = pp.payment_profile_id
			WHERE pp.user_profile_id = $1`
		args := []any{userProfileID}
		where := func(cond string, v any) {
			args = append(args, v)
			sql += fmt.Sprintf(" AND "+cond, len(args))
		}
		if f.PaymentMethodID != nil {
			where("pm.payment_method_id = $%d", *f.PaymentMethodID)
		}
		if f.PaymentProfileID != nil {
			where("pp.payment_profile_id = $%d", *f.PaymentProfileID)
		}
		if f.ProcessorID != "" {
			where("pp.processor_id = $%d", f.ProcessorID)
		}
		if !f.AnyStatus {
			status := f.Status
			if status == "" {
				status = models.PaymentMethodCurrent
			}
			where("pm.status = $%d", status)
		}
		sql += " ORDER BY pm.display_name, pm.payment_method_id"

		rows, err := query[record.PaymentMethodRow](ctx, db, sql, args...)
		if err != nil {
			return nil, err
		}
		out := make([]models.PaymentMethod, 0, len(rows))
		for i := range rows {
			out = append(out, rows[i].Model())
		}
		return out, nil
	})
}
