package subscriptions

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/vocal/internal/apperr"
	"github.com/magabrotheeeer/vocal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/vocal/internal/models"
	"github.com/magabrotheeeer/vocal/internal/security"
	"github.com/magabrotheeeer/vocal/internal/services/membership"
)

var _ Service = (*membership.Service)(nil)

type MockService struct {
	mock.Mock
}

func (m *MockService) Subscribe(ctx context.Context, req membership.SubscribeRequest) (models.Subscription, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.Subscription), args.Error(1)
}

func (m *MockService) GetSubscriptions(ctx context.Context, userProfileID uuid.UUID) ([]models.Subscription, error) {
	args := m.Called(ctx, userProfileID)
	subs, _ := args.Get(0).([]models.Subscription)
	return subs, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func withUser(r *http.Request, uid uuid.UUID) *http.Request {
	sess := security.NewSession("s")
	sess.UserProfileID = &uid
	return r.WithContext(middlewarectx.WithSession(r.Context(), sess))
}

func TestHandler_Create(t *testing.T) {
	uid := uuid.New()
	body := SubscribeRequest{
		SubscriptionPlanID: uuid.New(),
		PaymentDemandID:    uuid.New(),
		PaymentMethodID:    uuid.New(),
	}
	want := membership.SubscribeRequest{
		UserProfileID:      uid,
		SubscriptionPlanID: body.SubscriptionPlanID,
		PaymentDemandID:    body.PaymentDemandID,
		PaymentMethodID:    body.PaymentMethodID,
	}
	until := time.Date(2020, time.February, 29, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		body           any
		setupMocks     func(*MockService)
		expectedStatus int
	}{
		{
			name: "success",
			body: body,
			setupMocks: func(s *MockService) {
				s.On("Subscribe", mock.Anything, want).Return(models.Subscription{
					UserProfileID:      uid,
					SubscriptionPlanID: body.SubscriptionPlanID,
					Status:             models.SubscriptionCurrent,
					ProcessorChargeID:  "ch_secret",
					CurrentStatusUntil: &until,
				}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "already subscribed",
			body: body,
			setupMocks: func(s *MockService) {
				s.On("Subscribe", mock.Anything, want).
					Return(models.Subscription{}, apperr.Conflict("user profile is already subscribed to plan %s", body.SubscriptionPlanID)).Once()
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "plan not found",
			body: body,
			setupMocks: func(s *MockService) {
				s.On("Subscribe", mock.Anything, want).
					Return(models.Subscription{}, apperr.NotFound("subscription plan %s not found", body.SubscriptionPlanID)).Once()
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "missing ids",
			body:           map[string]string{"subscription_plan_id": body.SubscriptionPlanID.String()},
			setupMocks:     func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockService)
			tt.setupMocks(service)

			raw, _ := json.Marshal(tt.body)
			rec := httptest.NewRecorder()
			New(newNoopLogger(), service).Create(rec, withUser(httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions", bytes.NewReader(raw)), uid))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedStatus == http.StatusCreated {
				assert.NotContains(t, rec.Body.String(), "ch_secret")
				var resp struct {
					Data models.PublicSubscription `json:"data"`
				}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, models.SubscriptionCurrent, resp.Data.Status)
				require.NotNil(t, resp.Data.CurrentStatusUntil)
				assert.True(t, until.Equal(*resp.Data.CurrentStatusUntil))
			}
			service.AssertExpectations(t)
		})
	}
}

func TestHandler_List(t *testing.T) {
	uid := uuid.New()
	service := new(MockService)
	service.On("GetSubscriptions", mock.Anything, uid).Return([]models.Subscription{{Status: models.SubscriptionCurrent}}, nil).Once()

	rec := httptest.NewRecorder()
	New(newNoopLogger(), service).List(rec, withUser(httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions", nil), uid))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data []models.PublicSubscription `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 1)

	rec = httptest.NewRecorder()
	New(newNoopLogger(), service).List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	service.AssertExpectations(t)
}
