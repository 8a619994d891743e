// Package authn реализует конечный автомат многофакторной аутентификации
// поверх документа сессии.
//
// Сессия проходит состояния: без аутентификации, требуется вызов,
// вызов выдан, аутентифицирована. После MaxAttempts неверных ответов
// сессия аннулируется. Сервис только меняет документ сессии;
// сохранять его должен вызывающий код.
package authn

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/vocal/internal/apperr"
	"github.com/magabrotheeeer/vocal/internal/lib/otp"
	"github.com/magabrotheeeer/vocal/internal/lib/sl"
	"github.com/magabrotheeeer/vocal/internal/metrics"
	"github.com/magabrotheeeer/vocal/internal/models"
	"github.com/magabrotheeeer/vocal/internal/security"
	"github.com/magabrotheeeer/vocal/internal/storage/repository"
)

// MaxAttempts допустимое число ответов на один вызов.
const MaxAttempts = 3

// Users доступ к профилям и учётным данным.
type Users interface {
	GetUserProfile(ctx context.Context, f repository.UserProfileFilter) (*models.UserProfile, error)
	GetContactMethod(ctx context.Context, contactMethodID uuid.UUID, userProfileID *uuid.UUID) (*models.ContactMethod, error)
	AuthenticateUser(ctx context.Context, userProfileID uuid.UUID, password string) (bool, error)
	MarkContactMethodVerified(ctx context.Context, contactMethodID uuid.UUID, userProfileID *uuid.UUID) error
}

// Notifier доставляет одноразовые коды.
type Notifier interface {
	SendOTP(ctx context.Context, msg models.OTPMessage) error
}

// Metrics счётчики выдачи и проверки вызовов.
type Metrics interface {
	IncrementChallengesIssued(challengeType string)
	IncrementVerifications(result string)
}

// Result итог успешной проверки вызова.
// Если Completed ложно, Next содержит следующий выданный вызов.
type Result struct {
	Completed bool
	Next      *models.PublicChallenge
}

type Service struct {
	users    Users
	notifier Notifier
	metrics  Metrics
	log      *slog.Logger
	now      func() time.Time
}

func New(users Users, notifier Notifier, m Metrics, log *slog.Logger) *Service {
	return &Service{
		users:    users,
		notifier: notifier,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

func requireAuthn(sess *security.Session) error {
	if !sess.Has(security.CapAuthn) {
		return apperr.Forbidden("missing required capability %s", security.CapAuthn)
	}
	return nil
}

// InitiateSession начинает аутентификацию по адресу почты или номеру телефона.
func (s *Service) InitiateSession(ctx context.Context, sess *security.Session, principalName string, principalType models.AuthnPrincipalType) error {
	const op = "authn.InitiateSession"

	var (
		filter    repository.UserProfileFilter
		challenge models.AuthnChallengeType
	)
	switch principalType {
	case models.PrincipalEmail:
		filter, challenge = repository.ByEmail(principalName), models.ChallengeEmail
	case models.PrincipalPhone:
		filter, challenge = repository.ByPhone(principalName), models.ChallengeSMS
	default:
		return apperr.Validation("unknown principal type %q", principalType)
	}

	u, err := s.users.GetUserProfile(ctx, filter)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if u == nil {
		return apperr.Unauthorized("unknown principal")
	}

	required := []models.AuthnChallengeType{challenge}
	if u.Role.RequiresPassword() {
		required = append(required, models.ChallengePassword)
	}

	id := u.UserProfileID
	sess.Authenticated = false
	sess.UserProfileID = &id
	sess.RequiredChallenges = required
	sess.PendingChallenge = nil
	sess.Grant(security.CapAuthn)

	s.log.Info("authentication session initiated",
		slog.String("op", op),
		slog.String("user_profile_id", id.String()),
		slog.Int("required_challenges", len(required)),
	)
	return nil
}

// GetNextChallenge выдаёт следующий вызов из очереди сессии.
func (s *Service) GetNextChallenge(ctx context.Context, sess *security.Session) (models.PublicChallenge, error) {
	const op = "authn.GetNextChallenge"
	if err := requireAuthn(sess); err != nil {
		return models.PublicChallenge{}, err
	}
	if sess.PendingChallenge != nil {
		return models.PublicChallenge{}, apperr.BadRequest("cannot request a new challenge while challenges are pending")
	}
	if len(sess.RequiredChallenges) == 0 {
		return models.PublicChallenge{}, apperr.BadRequest("no challenges are required")
	}

	u, err := s.sessionUser(ctx, sess)
	if err != nil {
		return models.PublicChallenge{}, fmt.Errorf("%s: %w", op, err)
	}
	next, err := s.issueNext(ctx, sess, u)
	if err != nil {
		return models.PublicChallenge{}, err
	}
	return next, nil
}

// VerifyChallenge проверяет ответ на выданный вызов.
func (s *Service) VerifyChallenge(ctx context.Context, sess *security.Session, challengeID uuid.UUID, passcode string) (Result, error) {
	const op = "authn.VerifyChallenge"
	if err := requireAuthn(sess); err != nil {
		return Result{}, err
	}
	pending := sess.PendingChallenge
	if pending == nil {
		return Result{}, apperr.BadRequest("no challenge is pending")
	}
	if pending.ChallengeID != challengeID {
		return Result{}, apperr.BadRequest("invalid challenge")
	}

	pending.Attempts++
	if pending.Attempts > MaxAttempts {
		sess.Invalidate()
		s.metrics.IncrementVerifications(metrics.ResultLocked)
		s.log.Warn("authentication session locked", slog.String("op", op))
		return Result{}, apperr.Forbidden("Too many invalid attempts")
	}

	switch {
	case pending.ChallengeType.IsOTP():
		if passcode != pending.Secret {
			s.metrics.IncrementVerifications(metrics.ResultRejected)
			return Result{}, apperr.Unauthorized("Incorrect passcode")
		}
	case pending.ChallengeType == models.ChallengePassword:
		if sess.UserProfileID == nil {
			return Result{}, apperr.Forbidden("session has no user profile")
		}
		ok, err := s.users.AuthenticateUser(ctx, *sess.UserProfileID, passcode)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", op, err)
		}
		if !ok {
			s.metrics.IncrementVerifications(metrics.ResultRejected)
			return Result{}, apperr.Unauthorized("Incorrect passcode")
		}
	default:
		return Result{}, apperr.BadRequest("unsupported challenge type %s", pending.ChallengeType)
	}

	sess.PendingChallenge = nil
	u, err := s.sessionUser(ctx, sess)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	if len(sess.RequiredChallenges) > 0 {
		next, err := s.issueNext(ctx, sess, u)
		if err != nil {
			return Result{}, err
		}
		s.metrics.IncrementVerifications(metrics.ResultAccepted)
		return Result{Next: &next}, nil
	}

	sess.Authenticated = true
	sess.Capabilities = security.RoleCapabilities(u.Role)
	sess.Revoke(security.CapAuthn)
	s.metrics.IncrementVerifications(metrics.ResultCompleted)
	s.log.Info("authentication completed",
		slog.String("op", op),
		slog.String("user_profile_id", u.UserProfileID.String()),
		slog.String("role", string(u.Role)),
	)
	return Result{Completed: true}, nil
}

func (s *Service) sessionUser(ctx context.Context, sess *security.Session) (*models.UserProfile, error) {
	if sess.UserProfileID == nil {
		return nil, apperr.Forbidden("session has no user profile")
	}
	u, err := s.users.GetUserProfile(ctx, repository.ByID(*sess.UserProfileID))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.Unauthorized("unknown principal")
	}
	return u, nil
}

// issueNext извлекает тип вызова из очереди и выдаёт его.
// Если вызов выдать нельзя, очередь не меняется.
func (s *Service) issueNext(ctx context.Context, sess *security.Session, u *models.UserProfile) (models.PublicChallenge, error) {
	challenge, err := s.challengeForUser(u, sess.RequiredChallenges[0])
	if err != nil {
		return models.PublicChallenge{}, err
	}
	sess.PopChallenge()
	sess.PendingChallenge = challenge

	s.metrics.IncrementChallengesIssued(string(challenge.ChallengeType))
	if challenge.ChallengeType.IsOTP() {
		s.deliver(ctx, u.UserProfileID, challenge, recipient(u, challenge.ChallengeType))
	}
	return challenge.Public(), nil
}

func (s *Service) challengeForUser(u *models.UserProfile, t models.AuthnChallengeType) (*models.AuthnChallenge, error) {
	switch t {
	case models.ChallengeEmail:
		if u.Email == nil {
			return nil, apperr.Validation("user profile has no email address")
		}
		if !u.Email.Verified {
			return nil, apperr.Validation("email %s must be verified first", otp.MaskEmail(u.EmailAddress()))
		}
		return newOTPChallenge(u.Email, t)
	case models.ChallengeSMS:
		if u.Phone == nil {
			return nil, apperr.Validation("user profile has no phone number")
		}
		if !u.Phone.Verified {
			return nil, apperr.Validation("phone number %s must be verified first", otp.MaskPhone(u.PhoneNumber()))
		}
		return newOTPChallenge(u.Phone, t)
	case models.ChallengePassword:
		return &models.AuthnChallenge{
			ChallengeID:   uuid.New(),
			ChallengeType: models.ChallengePassword,
		}, nil
	}
	return nil, apperr.BadRequest("unsupported challenge type %s", t)
}

// newOTPChallenge создаёт вызов с одноразовым кодом для способа связи cm.
func newOTPChallenge(cm *models.ContactMethod, t models.AuthnChallengeType) (*models.AuthnChallenge, error) {
	const op = "authn.newOTPChallenge"
	hint, err := hintFor(cm)
	if err != nil {
		return nil, err
	}
	code, err := otp.Generate()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &models.AuthnChallenge{
		ChallengeID:     uuid.New(),
		ChallengeType:   t,
		Hint:            hint,
		Secret:          code,
		ContactMethodID: &cm.ContactMethodID,
	}, nil
}

// hintFor маскирует значение способа связи.
func hintFor(cm *models.ContactMethod) (string, error) {
	switch v := cm.Value.(type) {
	case models.EmailAddress:
		return otp.MaskEmail(string(v)), nil
	case models.PhoneNumber:
		return otp.MaskPhone(string(v)), nil
	}
	return "", apperr.Validation("contact method of type %s cannot receive a passcode", cm.Type())
}

func recipient(u *models.UserProfile, t models.AuthnChallengeType) string {
	if t == models.ChallengeSMS {
		return u.PhoneNumber()
	}
	return u.EmailAddress()
}

// deliver передаёт код службе доставки. Ошибка доставки не отменяет вызов:
// клиент может запросить сессию заново.
func (s *Service) deliver(ctx context.Context, userProfileID uuid.UUID, c *models.AuthnChallenge, to string) {
	const op = "authn.deliver"
	msg := models.OTPMessage{
		ChallengeID:   c.ChallengeID,
		ChallengeType: c.ChallengeType,
		UserProfileID: userProfileID,
		Recipient:     to,
		Code:          c.Secret,
		IssuedAt:      s.now().UTC(),
	}
	if err := s.notifier.SendOTP(ctx, msg); err != nil {
		s.log.Error("failed to deliver passcode",
			slog.String("op", op),
			slog.String("challenge_type", string(c.ChallengeType)),
			sl.Err(err),
		)
	}
}
