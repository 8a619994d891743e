package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/vocal/internal/apperr"
	"github.com/magabrotheeeer/vocal/internal/lib/month"
	"github.com/magabrotheeeer/vocal/internal/models"
	"github.com/magabrotheeeer/vocal/internal/storage"
	"github.com/magabrotheeeer/vocal/internal/storage/record"
)

// CreateSubscription оформляет подписку со статусом current.
//
// Срок статуса вычисляется от начала дня now (UTC) плюс период требования;
// у разового требования срока нет.
func CreateSubscription(s models.NewSubscription, now time.Time) *storage.Op[models.Subscription] {
	return storage.NewOp("repository.CreateSubscription", func(ctx context.Context, db storage.DBTX) (models.Subscription, error) {
		var demandType models.PaymentDemandType
		var period *models.PaymentDemandPeriod
		err := db.QueryRow(ctx, `
			SELECT demand_type, period FROM payment_demand
			WHERE subscription_plan_id = $1 AND payment_demand_id = $2`,
			s.SubscriptionPlanID, s.PaymentDemandID).Scan(&demandType, &period)
		if storage.IsNoRows(err) {
			return models.Subscription{}, apperr.Validation(
				"payment demand %s does not belong to subscription plan %s",
				s.PaymentDemandID, s.SubscriptionPlanID)
		}
		if err != nil {
			return models.Subscription{}, err
		}

		started := now.UTC()
		var until *time.Time
		if demandType == models.DemandPeriodic && period != nil {
			today := time.Date(started.Year(), started.Month(), started.Day(), 0, 0, 0, 0, time.UTC)
			u, ok := month.AddPeriod(today, *period)
			if !ok {
				return models.Subscription{}, apperr.Validation("unknown payment demand period %q", *period)
			}
			until = &u
		}

		var row record.SubscriptionRow
		err = db.QueryRow(ctx, `
			INSERT INTO subscription (user_profile_id, subscription_plan_id, payment_demand_id,
				payment_profile_id, payment_method_id, status, processor_charge_id,
				started_at, current_status_at, current_status_until)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8, $9)
			RETURNING `+subscriptionReturning,
			s.UserProfileID, s.SubscriptionPlanID, s.PaymentDemandID, s.PaymentProfileID,
			s.PaymentMethodID, models.SubscriptionCurrent, s.ProcessorChargeID, started, until,
		).Scan(row.Dest()...)
		if _, ok := storage.UniqueViolation(err); ok {
			return models.Subscription{}, apperr.Conflict(
				"user profile is already subscribed to plan %s", s.SubscriptionPlanID)
		}
		if err != nil {
			return models.Subscription{}, err
		}
		return row.Subscription, nil
	})
}

// HasSubscription сообщает, подписан ли пользователь на план.
// Строка подписки блокируется до конца транзакции.
func HasSubscription(userProfileID, planID uuid.UUID) *storage.Op[bool] {
	return storage.NewOp("repository.HasSubscription", func(ctx context.Context, db storage.DBTX) (bool, error) {
		var one int
		err := db.QueryRow(ctx, `
			SELECT 1 FROM subscription
			WHERE user_profile_id = $1 AND subscription_plan_id = $2
			FOR UPDATE`, userProfileID, planID).Scan(&one)
		if storage.IsNoRows(err) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return true, nil
	})
}

const subscriptionReturning = `user_profile_id, subscription_plan_id, payment_demand_id,
	payment_profile_id, payment_method_id, status, processor_charge_id,
	started_at, current_status_at, current_status_until`

// GetSubscriptions возвращает подписки пользователя.
func GetSubscriptions(userProfileID uuid.UUID) *storage.Op[[]models.Subscription] {
	return storage.NewOp("repository.GetSubscriptions", func(ctx context.Context, db storage.DBTX) ([]models.Subscription, error) {
		rows, err := query[record.SubscriptionRow](ctx, db,
			"SELECT "+record.SubscriptionColumns+`
			FROM subscription s
			WHERE s.user_profile_id = $1
			ORDER BY s.started_at, s.subscription_plan_id`, userProfileID)
		if err != nil {
			return nil, err
		}
		out := make([]models.Subscription, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.Subscription)
		}
		return out, nil
	})
}
