// Package membership планы подписки, платёжные инструменты и оформление подписок.
package membership

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/vocal/internal/apperr"
	"github.com/magabrotheeeer/vocal/internal/lib/sl"
	"github.com/magabrotheeeer/vocal/internal/models"
	"github.com/magabrotheeeer/vocal/internal/paymentprovider"
	"github.com/magabrotheeeer/vocal/internal/storage"
	"github.com/magabrotheeeer/vocal/internal/storage/repository"
)

// Metrics счётчик оформленных подписок.
type Metrics interface {
	IncrementSubscriptionsCreated(demandType string)
}

type Service struct {
	storage    *storage.Storage
	processors *paymentprovider.Registry
	metrics    Metrics
	log        *slog.Logger
	now        func() time.Time
}

func New(st *storage.Storage, processors *paymentprovider.Registry, m Metrics, log *slog.Logger) *Service {
	return &Service{
		storage:    st,
		processors: processors,
		metrics:    m,
		log:        log,
		now:        time.Now,
	}
}

// CreatePlan создаёт активный план с требованиями в переданном порядке.
func (s *Service) CreatePlan(ctx context.Context, p models.NewSubscriptionPlan) (uuid.UUID, error) {
	const op = "membership.CreatePlan"
	id, err := storage.Do(ctx, s.storage, repository.CreateSubscriptionPlan(p))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("subscription plan created",
		slog.String("op", op),
		slog.String("subscription_plan_id", id.String()),
		slog.Int("payment_demands", len(p.PaymentDemands)),
	)
	return id, nil
}

// GetPlans возвращает планы: активные первыми, требования по старшинству.
func (s *Service) GetPlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	const op = "membership.GetPlans"
	plans, err := storage.Do(ctx, s.storage, repository.GetSubscriptionPlans())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return plans, nil
}

// GetPlan возвращает план или nil.
func (s *Service) GetPlan(ctx context.Context, planID uuid.UUID) (*models.SubscriptionPlan, error) {
	const op = "membership.GetPlan"
	plan, err := storage.Do(ctx, s.storage, repository.GetSubscriptionPlan(planID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return plan, nil
}

// GetPaymentMethods возвращает платёжные инструменты пользователя.
func (s *Service) GetPaymentMethods(ctx context.Context, userProfileID uuid.UUID, f models.PaymentMethodFilter) ([]models.PaymentMethod, error) {
	const op = "membership.GetPaymentMethods"
	methods, err := storage.Do(ctx, s.storage, repository.GetPaymentMethods(userProfileID, f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return methods, nil
}

// GetSubscriptions возвращает подписки пользователя.
func (s *Service) GetSubscriptions(ctx context.Context, userProfileID uuid.UUID) ([]models.Subscription, error) {
	const op = "membership.GetSubscriptions"
	subs, err := storage.Do(ctx, s.storage, repository.GetSubscriptions(userProfileID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subs, nil
}

// AddPaymentMethod регистрирует инструмент у процессора и сохраняет его.
// Профиль клиента у процессора создаётся при первом добавлении.
func (s *Service) AddPaymentMethod(ctx context.Context, userProfileID uuid.UUID, processorID string, cred paymentprovider.Credential) (*models.PaymentMethod, error) {
	const op = "membership.AddPaymentMethod"
	processor, err := s.processors.Get(processorID)
	if err != nil {
		return nil, err
	}

	var method *models.PaymentMethod
	err = s.storage.Session(ctx, func(ctx context.Context, tx storage.DBTX) error {
		profile, err := s.ensurePaymentProfile(ctx, tx, processor, userProfileID)
		if err != nil {
			return err
		}

		customer := paymentprovider.CustomerProfileID(profile.ProcessorCustomerProfileID)
		pmID, err := processor.AddCustomerPaymentMethod(ctx, customer, cred)
		if err != nil {
			return err
		}

		id, err := repository.AddPaymentMethod(
			paymentprovider.NewPaymentMethod(cred, userProfileID, profile.PaymentProfileID, pmID),
		).Execute(ctx, tx)
		if err != nil {
			return err
		}

		methods, err := repository.GetPaymentMethods(userProfileID, models.PaymentMethodFilter{PaymentMethodID: &id}).Execute(ctx, tx)
		if err != nil {
			return err
		}
		if len(methods) == 0 {
			return fmt.Errorf("payment method %s not readable after insert", id)
		}
		method = &methods[0]
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("payment method added",
		slog.String("op", op),
		slog.String("processor_id", processorID),
		slog.String("payment_method_id", method.PaymentMethodID.String()),
	)
	return method, nil
}

func (s *Service) ensurePaymentProfile(ctx context.Context, tx storage.DBTX, processor paymentprovider.Processor, userProfileID uuid.UUID) (*models.PaymentProfile, error) {
	profile, err := repository.GetPaymentProfile(userProfileID, processor.ID()).Execute(ctx, tx)
	if err != nil || profile != nil {
		return profile, err
	}

	u, err := repository.GetUserProfile(repository.ByID(userProfileID)).Execute(ctx, tx)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.NotFound("user profile %s not found", userProfileID)
	}

	customer, err := processor.CreateCustomerProfile(ctx, paymentprovider.Customer{
		UserProfileID: userProfileID,
		Name:          u.Name,
		EmailAddress:  u.EmailAddress(),
		PhoneNumber:   u.PhoneNumber(),
	})
	if err != nil {
		return nil, err
	}
	id, err := repository.AddPaymentProfile(userProfileID, processor.ID(), string(customer)).Execute(ctx, tx)
	if err != nil {
		return nil, err
	}
	return &models.PaymentProfile{
		PaymentProfileID:           id,
		UserProfileID:              userProfileID,
		ProcessorID:                processor.ID(),
		ProcessorCustomerProfileID: string(customer),
	}, nil
}

// SubscribeRequest параметры оформления подписки.
type SubscribeRequest struct {
	UserProfileID      uuid.UUID
	SubscriptionPlanID uuid.UUID
	PaymentDemandID    uuid.UUID
	PaymentMethodID    uuid.UUID
}

// Subscribe списывает оплату по требованию плана и оформляет подписку
// в одной транзакции.
//
// Повторная подписка на план отклоняется до списания. Если после
// успешного списания транзакция не зафиксирована, списание отменяется
// у процессора.
func (s *Service) Subscribe(ctx context.Context, req SubscribeRequest) (models.Subscription, error) {
	const op = "membership.Subscribe"
	now := s.now()

	var (
		sub       models.Subscription
		demand    models.PaymentDemand
		processor paymentprovider.Processor
		chargeID  paymentprovider.ChargeID
	)
	err := s.storage.Session(ctx, func(ctx context.Context, tx storage.DBTX) error {
		plan, err := repository.GetSubscriptionPlan(req.SubscriptionPlanID).Execute(ctx, tx)
		if err != nil {
			return err
		}
		if plan == nil {
			return apperr.NotFound("subscription plan %s not found", req.SubscriptionPlanID)
		}
		subscribed, err := repository.HasSubscription(req.UserProfileID, req.SubscriptionPlanID).Execute(ctx, tx)
		if err != nil {
			return err
		}
		if subscribed {
			return apperr.Conflict("user profile is already subscribed to plan %s", req.SubscriptionPlanID)
		}
		if plan.Status != models.PlanActive {
			return apperr.Validation("subscription plan %s is not active", req.SubscriptionPlanID)
		}
		var ok bool
		demand, ok = plan.FindDemand(req.PaymentDemandID)
		if !ok {
			return apperr.Validation("payment demand %s does not belong to subscription plan %s",
				req.PaymentDemandID, req.SubscriptionPlanID)
		}

		methods, err := repository.GetPaymentMethods(req.UserProfileID,
			models.PaymentMethodFilter{PaymentMethodID: &req.PaymentMethodID}).Execute(ctx, tx)
		if err != nil {
			return err
		}
		if len(methods) == 0 {
			return apperr.Validation("payment method %s is not available", req.PaymentMethodID)
		}
		method := methods[0]

		processor, err = s.processors.Get(method.ProcessorID)
		if err != nil {
			return err
		}
		if !processor.SupportsCurrency(demand.Currency) {
			return apperr.Validation("payment processor %s does not support currency %s",
				processor.ID(), demand.Currency.Code())
		}
		profile, err := repository.GetPaymentProfile(req.UserProfileID, method.ProcessorID).Execute(ctx, tx)
		if err != nil {
			return err
		}
		if profile == nil {
			return apperr.Validation("no payment profile with processor %s", method.ProcessorID)
		}

		charge := paymentprovider.Charge{
			UserProfileID:     req.UserProfileID,
			CustomerProfileID: paymentprovider.CustomerProfileID(profile.ProcessorCustomerProfileID),
			PaymentMethodID:   paymentprovider.PaymentMethodID(method.ProcessorPaymentMethodID),
			StartDate:         now.UTC(),
			Period:            demand.Period,
			Amount:            demand.Amount,
			Currency:          demand.Currency,
		}
		if demand.DemandType == models.DemandPeriodic {
			chargeID, err = processor.CreateRecurringCharge(ctx, charge)
		} else {
			chargeID, err = processor.CreateImmediateCharge(ctx, charge)
		}
		if err != nil {
			return err
		}

		sub, err = repository.CreateSubscription(models.NewSubscription{
			UserProfileID:      req.UserProfileID,
			SubscriptionPlanID: req.SubscriptionPlanID,
			PaymentDemandID:    req.PaymentDemandID,
			PaymentProfileID:   profile.PaymentProfileID,
			PaymentMethodID:    method.PaymentMethodID,
			ProcessorChargeID:  string(chargeID),
		}, now).Execute(ctx, tx)
		return err
	})
	if err != nil {
		if chargeID != "" {
			s.cancelCharge(ctx, processor, chargeID)
		}
		return models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.IncrementSubscriptionsCreated(string(demand.DemandType))
	s.log.Info("subscription created",
		slog.String("op", op),
		slog.String("subscription_plan_id", req.SubscriptionPlanID.String()),
		slog.String("demand_type", string(demand.DemandType)),
	)
	return sub, nil
}

// cancelCharge отменяет списание, не привязанное к подписке.
// Отмена выполняется и после отмены ctx запроса.
func (s *Service) cancelCharge(ctx context.Context, processor paymentprovider.Processor, id paymentprovider.ChargeID) {
	const op = "membership.cancelCharge"
	log := s.log.With(
		slog.String("op", op),
		slog.String("processor_id", processor.ID()),
		slog.String("charge_id", string(id)),
	)
	if err := processor.CancelCharge(context.WithoutCancel(ctx), id); err != nil {
		log.Error("failed to cancel orphaned charge", sl.Err(err))
		return
	}
	log.Warn("orphaned charge cancelled")
}
