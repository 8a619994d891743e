package authn_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/vocal/internal/apperr"
	"github.com/magabrotheeeer/vocal/internal/models"
	"github.com/magabrotheeeer/vocal/internal/security"
	"github.com/magabrotheeeer/vocal/internal/services/authn"
	"github.com/magabrotheeeer/vocal/internal/storage/repository"
)

type UsersMock struct {
	mock.Mock
}

func (m *UsersMock) GetUserProfile(ctx context.Context, f repository.UserProfileFilter) (*models.UserProfile, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

func (m *UsersMock) GetContactMethod(ctx context.Context, contactMethodID uuid.UUID, userProfileID *uuid.UUID) (*models.ContactMethod, error) {
	args := m.Called(ctx, contactMethodID, userProfileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ContactMethod), args.Error(1)
}

func (m *UsersMock) AuthenticateUser(ctx context.Context, userProfileID uuid.UUID, password string) (bool, error) {
	args := m.Called(ctx, userProfileID, password)
	return args.Bool(0), args.Error(1)
}

func (m *UsersMock) MarkContactMethodVerified(ctx context.Context, contactMethodID uuid.UUID, userProfileID *uuid.UUID) error {
	args := m.Called(ctx, contactMethodID, userProfileID)
	return args.Error(0)
}

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) SendOTP(ctx context.Context, msg models.OTPMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type metricsStub struct {
	issued        map[string]int
	verifications map[string]int
}

func newMetricsStub() *metricsStub {
	return &metricsStub{issued: map[string]int{}, verifications: map[string]int{}}
}

func (m *metricsStub) IncrementChallengesIssued(t string) { m.issued[t]++ }
func (m *metricsStub) IncrementVerifications(r string)    { m.verifications[r]++ }

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newProfile(role models.UserRole, emailVerified, phoneVerified bool) *models.UserProfile {
	uid := uuid.New()
	return &models.UserProfile{
		UserProfileID: uid,
		DisplayName:   "Jesse",
		Name:          "Jesse Dhillon",
		Role:          role,
		CreatedAt:     time.Now(),
		Email: &models.ContactMethod{
			ContactMethodID: uuid.New(),
			UserProfileID:   uid,
			Verified:        emailVerified,
			Value:           models.EmailAddress("jesse@dhillon.com"),
		},
		Phone: &models.ContactMethod{
			ContactMethodID: uuid.New(),
			UserProfileID:   uid,
			Verified:        phoneVerified,
			Value:           models.PhoneNumber("+14155551234"),
		},
	}
}

type fixture struct {
	users    *UsersMock
	notifier *NotifierMock
	metrics  *metricsStub
	svc      *authn.Service
}

func newFixture() *fixture {
	f := &fixture{users: new(UsersMock), notifier: new(NotifierMock), metrics: newMetricsStub()}
	f.svc = authn.New(f.users, f.notifier, f.metrics, newNoopLogger())
	return f
}

func (f *fixture) expectProfile(u *models.UserProfile) {
	f.users.On("GetUserProfile", mock.Anything, repository.ByEmail(u.EmailAddress())).Return(u, nil).Maybe()
	f.users.On("GetUserProfile", mock.Anything, repository.ByPhone(u.PhoneNumber())).Return(u, nil).Maybe()
	f.users.On("GetUserProfile", mock.Anything, repository.ByID(u.UserProfileID)).Return(u, nil).Maybe()
}

func TestInitiateSession(t *testing.T) {
	tests := []struct {
		name          string
		role          models.UserRole
		principalType models.AuthnPrincipalType
		want          []models.AuthnChallengeType
	}{
		{name: "subscriber by email", role: models.RoleSubscriber, principalType: models.PrincipalEmail, want: []models.AuthnChallengeType{models.ChallengeEmail}},
		{name: "member by phone", role: models.RoleMember, principalType: models.PrincipalPhone, want: []models.AuthnChallengeType{models.ChallengeSMS}},
		{name: "creator by email", role: models.RoleCreator, principalType: models.PrincipalEmail, want: []models.AuthnChallengeType{models.ChallengeEmail, models.ChallengePassword}},
		{name: "manager by phone", role: models.RoleManager, principalType: models.PrincipalPhone, want: []models.AuthnChallengeType{models.ChallengeSMS, models.ChallengePassword}},
		{name: "superuser by email", role: models.RoleSuperuser, principalType: models.PrincipalEmail, want: []models.AuthnChallengeType{models.ChallengeEmail, models.ChallengePassword}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			u := newProfile(tt.role, true, true)
			f.expectProfile(u)

			principal := u.EmailAddress()
			if tt.principalType == models.PrincipalPhone {
				principal = u.PhoneNumber()
			}

			sess := security.NewSession("s1")
			require.NoError(t, f.svc.InitiateSession(context.Background(), sess, principal, tt.principalType))

			assert.Equal(t, tt.want, sess.RequiredChallenges)
			require.NotNil(t, sess.UserProfileID)
			assert.Equal(t, u.UserProfileID, *sess.UserProfileID)
			assert.True(t, sess.Has(security.CapAuthn))
			assert.Nil(t, sess.PendingChallenge)
			assert.False(t, sess.Authenticated)
		})
	}
}

func TestInitiateSession_Errors(t *testing.T) {
	f := newFixture()
	f.users.On("GetUserProfile", mock.Anything, repository.ByEmail("nobody@example.com")).Return(nil, nil).Once()
	f.users.On("GetUserProfile", mock.Anything, repository.ByPhone("+10000000000")).Return(nil, errors.New("db down")).Once()

	sess := security.NewSession("s1")

	err := f.svc.InitiateSession(context.Background(), sess, "nobody@example.com", models.PrincipalEmail)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.False(t, sess.Has(security.CapAuthn))

	err = f.svc.InitiateSession(context.Background(), sess, "+10000000000", models.PrincipalPhone)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

	err = f.svc.InitiateSession(context.Background(), sess, "jesse", "username")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	f.users.AssertExpectations(t)
}

func TestAuthenticationFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	u := newProfile(models.RoleCreator, false, true)
	f.expectProfile(u)

	sess := security.NewSession("s1")
	require.NoError(t, f.svc.InitiateSession(ctx, sess, u.EmailAddress(), models.PrincipalEmail))

	// неподтверждённая почта
	_, err := f.svc.GetNextChallenge(ctx, sess)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "email j****@dhillon.com must be verified first", apperr.Message(err))
	assert.Equal(t, []models.AuthnChallengeType{models.ChallengeEmail, models.ChallengePassword}, sess.RequiredChallenges)
	assert.Nil(t, sess.PendingChallenge)

	u.Email.Verified = true

	var delivered models.OTPMessage
	f.notifier.On("SendOTP", mock.Anything, mock.AnythingOfType("models.OTPMessage")).
		Run(func(args mock.Arguments) { delivered = args.Get(1).(models.OTPMessage) }).
		Return(nil).Once()

	challenge, err := f.svc.GetNextChallenge(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, models.ChallengeEmail, challenge.ChallengeType)
	assert.Equal(t, "j****@dhillon.com", challenge.Hint)
	require.NotNil(t, sess.PendingChallenge)
	assert.Equal(t, []models.AuthnChallengeType{models.ChallengePassword}, sess.RequiredChallenges)
	assert.Regexp(t, `^[0-9]{6}$`, sess.PendingChallenge.Secret)
	assert.Equal(t, sess.PendingChallenge.Secret, delivered.Code)
	assert.Equal(t, "jesse@dhillon.com", delivered.Recipient)
	assert.Equal(t, challenge.ChallengeID, delivered.ChallengeID)

	_, err = f.svc.GetNextChallenge(ctx, sess)
	require.ErrorIs(t, err, apperr.ErrBadRequest)
	assert.Equal(t, "cannot request a new challenge while challenges are pending", apperr.Message(err))

	_, err = f.svc.VerifyChallenge(ctx, sess, challenge.ChallengeID, "not-the-code")
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.Equal(t, "Incorrect passcode", apperr.Message(err))
	assert.Equal(t, 1, sess.PendingChallenge.Attempts)

	// неверный идентификатор вызова не считается попыткой
	_, err = f.svc.VerifyChallenge(ctx, sess, uuid.New(), sess.PendingChallenge.Secret)
	require.ErrorIs(t, err, apperr.ErrBadRequest)
	assert.Equal(t, 1, sess.PendingChallenge.Attempts)

	res, err := f.svc.VerifyChallenge(ctx, sess, challenge.ChallengeID, sess.PendingChallenge.Secret)
	require.NoError(t, err)
	assert.False(t, res.Completed)
	require.NotNil(t, res.Next)
	assert.Equal(t, models.ChallengePassword, res.Next.ChallengeType)
	assert.Empty(t, sess.PendingChallenge.Secret)
	assert.Empty(t, sess.RequiredChallenges)

	f.users.On("AuthenticateUser", mock.Anything, u.UserProfileID, "wrong").Return(false, nil).Once()
	f.users.On("AuthenticateUser", mock.Anything, u.UserProfileID, "secret-password").Return(true, nil).Once()

	_, err = f.svc.VerifyChallenge(ctx, sess, res.Next.ChallengeID, "wrong")
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	res, err = f.svc.VerifyChallenge(ctx, sess, res.Next.ChallengeID, "secret-password")
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Nil(t, res.Next)

	assert.True(t, sess.Authenticated)
	assert.Nil(t, sess.PendingChallenge)
	assert.False(t, sess.Has(security.CapAuthn))
	assert.Equal(t, security.RoleCapabilities(models.RoleCreator).List(), sess.Capabilities.List())
	assert.True(t, sess.Has(security.CapArticleCreate, security.CapProfileList))

	assert.Equal(t, 1, f.metrics.issued["email"])
	assert.Equal(t, 1, f.metrics.issued["password"])
	assert.Equal(t, 2, f.metrics.verifications["rejected"])
	assert.Equal(t, 1, f.metrics.verifications["accepted"])
	assert.Equal(t, 1, f.metrics.verifications["completed"])

	f.users.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestVerifyChallenge_TooManyAttempts(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	u := newProfile(models.RoleSubscriber, true, true)
	f.expectProfile(u)
	f.notifier.On("SendOTP", mock.Anything, mock.Anything).Return(nil).Once()

	sess := security.NewSession("s1")
	require.NoError(t, f.svc.InitiateSession(ctx, sess, u.PhoneNumber(), models.PrincipalPhone))
	challenge, err := f.svc.GetNextChallenge(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, models.ChallengeSMS, challenge.ChallengeType)
	assert.Equal(t, "+1415555****", challenge.Hint)

	for i := 1; i <= authn.MaxAttempts; i++ {
		_, err := f.svc.VerifyChallenge(ctx, sess, challenge.ChallengeID, "bad")
		require.ErrorIs(t, err, apperr.ErrUnauthorized)
		assert.Equal(t, i, sess.PendingChallenge.Attempts)
	}

	_, err = f.svc.VerifyChallenge(ctx, sess, challenge.ChallengeID, "bad")
	require.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Equal(t, "Too many invalid attempts", apperr.Message(err))
	assert.True(t, sess.Invalidated())
	assert.Nil(t, sess.PendingChallenge)
	assert.False(t, sess.Has(security.CapAuthn))
	assert.Equal(t, 1, f.metrics.verifications["locked"])
}

func TestServiceRequiresAuthnCapability(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	sess := security.NewSession("s1")

	_, err := f.svc.GetNextChallenge(ctx, sess)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.VerifyChallenge(ctx, sess, uuid.New(), "123456")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.GetContactMethodVerifyChallenge(ctx, sess, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	err = f.svc.VerifyContactMethod(ctx, sess, uuid.New(), uuid.New(), uuid.New(), "123456")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestVerifyChallenge_NoPending(t *testing.T) {
	f := newFixture()
	sess := security.NewSession("s1")
	sess.Grant(security.CapAuthn)

	_, err := f.svc.VerifyChallenge(context.Background(), sess, uuid.New(), "123456")
	assert.ErrorIs(t, err, apperr.ErrBadRequest)

	_, err = f.svc.GetNextChallenge(context.Background(), sess)
	assert.ErrorIs(t, err, apperr.ErrBadRequest)
}

func TestDeliveryFailureKeepsChallenge(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	u := newProfile(models.RoleMember, true, true)
	f.expectProfile(u)
	f.notifier.On("SendOTP", mock.Anything, mock.Anything).Return(errors.New("broker unavailable")).Once()

	sess := security.NewSession("s1")
	require.NoError(t, f.svc.InitiateSession(ctx, sess, u.EmailAddress(), models.PrincipalEmail))

	challenge, err := f.svc.GetNextChallenge(ctx, sess)
	require.NoError(t, err)
	require.NotNil(t, sess.PendingChallenge)
	assert.Equal(t, challenge.ChallengeID, sess.PendingChallenge.ChallengeID)
}
