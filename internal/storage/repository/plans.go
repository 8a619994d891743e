package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/vocal/internal/apperr"
	"github.com/magabrotheeeer/vocal/internal/models"
	"github.com/magabrotheeeer/vocal/internal/storage"
	"github.com/magabrotheeeer/vocal/internal/storage/record"
)

// Активные планы первыми, внутри плана периодические требования раньше
// разовых, периоды от ежедневного к ежегодному.
const planDemandOrder = `
	ORDER BY (sp.status = 'active') DESC,
		sp.rank NULLS LAST,
		sp.subscription_plan_id,
		(pd.demand_type = 'periodic') DESC,
		array_position(ARRAY['daily', 'weekly', 'monthly', 'quarterly', 'annually'], pd.period),
		pd.payment_demand_id`

const planDemandFrom = `
	FROM subscription_plan sp
	LEFT JOIN payment_demand pd ON pd.subscription_plan_id = sp.subscription_plan_id`

// CreateSubscriptionPlan создаёт активный план и его платёжные требования
// в порядке их передачи. Возвращает идентификатор плана.
func CreateSubscriptionPlan(p models.NewSubscriptionPlan) *storage.Op[uuid.UUID] {
	return storage.NewOp("repository.CreateSubscriptionPlan", func(ctx context.Context, db storage.DBTX) (uuid.UUID, error) {
		if len(p.PaymentDemands) == 0 {
			return uuid.Nil, apperr.Validation("subscription plan requires at least one payment demand")
		}
		for _, d := range p.PaymentDemands {
			if err := d.Validate(); err != nil {
				return uuid.Nil, err
			}
		}

		var id uuid.UUID
		if err := db.QueryRow(ctx, `
			INSERT INTO subscription_plan (status, rank, name, description)
			VALUES ($1, $2, $3, $4)
			RETURNING subscription_plan_id`,
			models.PlanActive, p.Rank, p.Name, p.Description).Scan(&id); err != nil {
			return uuid.Nil, err
		}

		for _, d := range p.PaymentDemands {
			if _, err := AddPaymentDemand(id, d).Execute(ctx, db); err != nil {
				return uuid.Nil, err
			}
		}
		return id, nil
	})
}

// AddPaymentDemand добавляет требование к плану. Коды валют приводятся к верхнему регистру.
func AddPaymentDemand(planID uuid.UUID, d models.PaymentDemand) *storage.Op[uuid.UUID] {
	return storage.NewOp("repository.AddPaymentDemand", func(ctx context.Context, db storage.DBTX) (uuid.UUID, error) {
		d.Currency = d.Currency.Normalize()
		if err := d.Validate(); err != nil {
			return uuid.Nil, err
		}

		var period, iso, nonISO *string
		if d.DemandType == models.DemandPeriodic {
			s := string(d.Period)
			period = &s
		}
		if d.ISO != "" {
			s := string(d.ISO)
			iso = &s
		}
		if d.NonISO != "" {
			nonISO = &d.NonISO
		}

		var id uuid.UUID
		err := db.QueryRow(ctx, `
			INSERT INTO payment_demand (subscription_plan_id, demand_type, period,
				iso_currency, non_iso_currency, amount)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING payment_demand_id`,
			planID, d.DemandType, period, iso, nonISO, d.Amount).Scan(&id)
		return id, err
	})
}

// GetSubscriptionPlans возвращает все планы с упорядоченными требованиями.
func GetSubscriptionPlans() *storage.Op[[]models.SubscriptionPlan] {
	return storage.NewOp("repository.GetSubscriptionPlans", func(ctx context.Context, db storage.DBTX) ([]models.SubscriptionPlan, error) {
		rows, err := query[record.PlanDemandRow](ctx, db,
			"SELECT "+record.PlanDemandColumns+planDemandFrom+planDemandOrder)
		if err != nil {
			return nil, err
		}
		return record.GroupPlans(rows), nil
	})
}

// GetSubscriptionPlan возвращает план или nil.
func GetSubscriptionPlan(planID uuid.UUID) *storage.Op[*models.SubscriptionPlan] {
	return storage.NewOp("repository.GetSubscriptionPlan", func(ctx context.Context, db storage.DBTX) (*models.SubscriptionPlan, error) {
		rows, err := query[record.PlanDemandRow](ctx, db,
			"SELECT "+record.PlanDemandColumns+planDemandFrom+
				" WHERE sp.subscription_plan_id = $1"+planDemandOrder, planID)
		if err != nil {
			return nil, err
		}
		plans := record.GroupPlans(rows)
		if len(plans) == 0 {
			return nil, nil
		}
		return &plans[0], nil
	})
}
