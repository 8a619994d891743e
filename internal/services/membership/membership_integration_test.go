package membership

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/magabrotheeeer/vocal/internal/apperr"
	"github.com/magabrotheeeer/vocal/internal/lib/password"
	"github.com/magabrotheeeer/vocal/internal/metrics"
	"github.com/magabrotheeeer/vocal/internal/models"
	"github.com/magabrotheeeer/vocal/internal/paymentprovider"
	"github.com/magabrotheeeer/vocal/internal/storage"
	"github.com/magabrotheeeer/vocal/internal/storage/repository"
	"github.com/magabrotheeeer/vocal/internal/storage/storagetest"
)

func init() {
	password.Cost = bcrypt.MinCost
}

var usd = models.Currency{ISO: models.CurrencyUSD}

func TestSubscribeFlow(t *testing.T) {
	st := storagetest.New(t)
	ctx := context.Background()

	mock := paymentprovider.NewMock("client", "secret")
	m := metrics.New(prometheus.NewRegistry())
	svc := New(st, paymentprovider.NewRegistry(mock), m, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return time.Date(2020, time.January, 31, 15, 4, 0, 0, time.UTC) }

	uid, err := storage.Do(ctx, st, repository.CreateUserProfile(models.NewUserProfile{
		DisplayName:  "Jesse",
		Name:         "Jesse Dhillon",
		Password:     "password",
		EmailAddress: "jesse@dhillon.com",
	}))
	require.NoError(t, err)

	planID, err := svc.CreatePlan(ctx, models.NewSubscriptionPlan{
		Description: "Basic",
		PaymentDemands: []models.PaymentDemand{
			models.PeriodicDemand(models.PeriodMonthly, decimal.RequireFromString("5.00"), usd),
			models.ImmediateDemand(decimal.RequireFromString("50.00"), usd),
		},
	})
	require.NoError(t, err)

	plan, err := svc.GetPlan(ctx, planID)
	require.NoError(t, err)
	require.NotNil(t, plan)
	require.Len(t, plan.PaymentDemands, 2)
	monthly, immediate := plan.PaymentDemands[0], plan.PaymentDemands[1]
	assert.Equal(t, models.DemandPeriodic, monthly.DemandType)
	assert.Equal(t, models.DemandImmediate, immediate.DemandType)

	card := paymentprovider.CreditCard{CardNumber: "4111111111111111", ExpMonth: 2, ExpYear: 2030, CVV: "123"}
	method, err := svc.AddPaymentMethod(ctx, uid, paymentprovider.MockProcessorID, card)
	require.NoError(t, err)
	assert.Equal(t, "Visa 1111", method.DisplayName)
	assert.Equal(t, "1111", method.SafeAccountNumberFragment)
	assert.Equal(t, models.PaymentMethodCurrent, method.Status)
	require.NotNil(t, method.ExpiresAfter)
	assert.Equal(t, 28, method.ExpiresAfter.Day())

	// второй инструмент использует существующий профиль клиента
	second, err := svc.AddPaymentMethod(ctx, uid, paymentprovider.MockProcessorID,
		paymentprovider.CreditCard{CardNumber: "5555555555554444", ExpMonth: 1, ExpYear: 2031, CVV: "321"})
	require.NoError(t, err)
	assert.Equal(t, method.PaymentProfileID, second.PaymentProfileID)

	methods, err := svc.GetPaymentMethods(ctx, uid, models.PaymentMethodFilter{ProcessorID: paymentprovider.MockProcessorID})
	require.NoError(t, err)
	assert.Len(t, methods, 2)

	_, err = svc.AddPaymentMethod(ctx, uid, "com.unknown", card)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	sub, err := svc.Subscribe(ctx, SubscribeRequest{
		UserProfileID:      uid,
		SubscriptionPlanID: planID,
		PaymentDemandID:    monthly.PaymentDemandID,
		PaymentMethodID:    method.PaymentMethodID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionCurrent, sub.Status)
	require.NotNil(t, sub.CurrentStatusUntil)
	assert.Equal(t, time.Date(2020, time.February, 29, 0, 0, 0, 0, time.UTC), sub.CurrentStatusUntil.UTC())
	assert.NotEmpty(t, sub.ProcessorChargeID)

	charges := mock.Charges()
	require.Len(t, charges, 1)
	assert.Equal(t, models.PeriodMonthly, charges[0].Period)
	assert.True(t, charges[0].Amount.Equal(decimal.RequireFromString("5")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SubscriptionsCreated.WithLabelValues("periodic")))

	_, err = svc.Subscribe(ctx, SubscribeRequest{
		UserProfileID:      uid,
		SubscriptionPlanID: planID,
		PaymentDemandID:    immediate.PaymentDemandID,
		PaymentMethodID:    method.PaymentMethodID,
	})
	require.ErrorIs(t, err, apperr.ErrConflict)
	assert.Len(t, mock.Charges(), 1, "repeated subscription must not charge again")

	subs, err := svc.GetSubscriptions(ctx, uid)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, planID, subs[0].SubscriptionPlanID)

	t.Run("rejections", func(t *testing.T) {
		eurPlan, err := svc.CreatePlan(ctx, models.NewSubscriptionPlan{
			Description: "Euro",
			PaymentDemands: []models.PaymentDemand{
				models.ImmediateDemand(decimal.RequireFromString("9.99"), models.Currency{ISO: models.CurrencyEUR}),
			},
		})
		require.NoError(t, err)
		eur, err := svc.GetPlan(ctx, eurPlan)
		require.NoError(t, err)

		tests := []struct {
			name string
			req  SubscribeRequest
			want error
		}{
			{
				name: "unknown plan",
				req:  SubscribeRequest{UserProfileID: uid, SubscriptionPlanID: uuid.New(), PaymentDemandID: monthly.PaymentDemandID, PaymentMethodID: method.PaymentMethodID},
				want: apperr.ErrNotFound,
			},
			{
				name: "demand from another plan",
				req:  SubscribeRequest{UserProfileID: uid, SubscriptionPlanID: eurPlan, PaymentDemandID: monthly.PaymentDemandID, PaymentMethodID: method.PaymentMethodID},
				want: apperr.ErrValidation,
			},
			{
				name: "unsupported currency",
				req:  SubscribeRequest{UserProfileID: uid, SubscriptionPlanID: eurPlan, PaymentDemandID: eur.PaymentDemands[0].PaymentDemandID, PaymentMethodID: method.PaymentMethodID},
				want: apperr.ErrValidation,
			},
			{
				name: "foreign payment method",
				req:  SubscribeRequest{UserProfileID: uid, SubscriptionPlanID: eurPlan, PaymentDemandID: eur.PaymentDemands[0].PaymentDemandID, PaymentMethodID: uuid.New()},
				want: apperr.ErrValidation,
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.Subscribe(ctx, tt.req)
				assert.ErrorIs(t, err, tt.want)
			})
		}
		assert.Len(t, mock.Charges(), 1)
	})
}

// cancellingProcessor отменяет контекст запроса сразу после списания,
// так что транзакция подписки не фиксируется.
type cancellingProcessor struct {
	*paymentprovider.Mock
	cancel context.CancelFunc
}

func (p *cancellingProcessor) CreateRecurringCharge(ctx context.Context, charge paymentprovider.Charge) (paymentprovider.ChargeID, error) {
	id, err := p.Mock.CreateRecurringCharge(ctx, charge)
	p.cancel()
	return id, err
}

func TestSubscribe_CancelsChargeWhenNotCommitted(t *testing.T) {
	st := storagetest.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mock := paymentprovider.NewMock("client", "secret")
	processor := &cancellingProcessor{Mock: mock, cancel: cancel}
	m := metrics.New(prometheus.NewRegistry())
	svc := New(st, paymentprovider.NewRegistry(processor), m, slog.New(slog.NewTextHandler(io.Discard, nil)))

	uid, err := storage.Do(ctx, st, repository.CreateUserProfile(models.NewUserProfile{
		DisplayName:  "Jesse",
		Name:         "Jesse Dhillon",
		Password:     "password",
		EmailAddress: "jesse@dhillon.com",
	}))
	require.NoError(t, err)
	planID, err := svc.CreatePlan(ctx, models.NewSubscriptionPlan{
		Description: "Basic",
		PaymentDemands: []models.PaymentDemand{
			models.PeriodicDemand(models.PeriodMonthly, decimal.RequireFromString("5.00"), usd),
		},
	})
	require.NoError(t, err)
	plan, err := svc.GetPlan(ctx, planID)
	require.NoError(t, err)
	method, err := svc.AddPaymentMethod(ctx, uid, paymentprovider.MockProcessorID,
		paymentprovider.CreditCard{CardNumber: "4111111111111111", ExpMonth: 2, ExpYear: 2030, CVV: "123"})
	require.NoError(t, err)

	_, err = svc.Subscribe(ctx, SubscribeRequest{
		UserProfileID:      uid,
		SubscriptionPlanID: planID,
		PaymentDemandID:    plan.PaymentDemands[0].PaymentDemandID,
		PaymentMethodID:    method.PaymentMethodID,
	})
	require.Error(t, err)

	charges := mock.Charges()
	require.Len(t, charges, 1)
	assert.True(t, charges[0].Cancelled)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SubscriptionsCreated.WithLabelValues("periodic")))

	subs, err := svc.GetSubscriptions(context.Background(), uid)
	require.NoError(t, err)
	assert.Empty(t, subs)
}
