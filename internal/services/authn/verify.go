package authn

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/vocal/internal/apperr"
	"github.com/magabrotheeeer/vocal/internal/metrics"
	"github.com/magabrotheeeer/vocal/internal/models"
	"github.com/magabrotheeeer/vocal/internal/security"
)

func requireOwner(sess *security.Session, userProfileID uuid.UUID) error {
	if sess.UserProfileID == nil || *sess.UserProfileID != userProfileID {
		return apperr.Forbidden("session does not belong to user profile %s", userProfileID)
	}
	return nil
}

// GetContactMethodVerifyChallenge выдаёт вызов подтверждения способа связи
// и сохраняет его в сессии отдельно от вызовов входа.
func (s *Service) GetContactMethodVerifyChallenge(ctx context.Context, sess *security.Session, userProfileID, contactMethodID uuid.UUID) (models.PublicChallenge, error) {
	const op = "authn.GetContactMethodVerifyChallenge"
	if err := requireAuthn(sess); err != nil {
		return models.PublicChallenge{}, err
	}
	if err := requireOwner(sess, userProfileID); err != nil {
		return models.PublicChallenge{}, err
	}

	cm, err := s.users.GetContactMethod(ctx, contactMethodID, &userProfileID)
	if err != nil {
		return models.PublicChallenge{}, fmt.Errorf("%s: %w", op, err)
	}
	if cm == nil {
		return models.PublicChallenge{}, apperr.NotFound("contact method %s not found", contactMethodID)
	}
	if cm.Verified {
		return models.PublicChallenge{}, apperr.Validation("contact method is already verified")
	}

	var (
		challengeType models.AuthnChallengeType
		to            string
	)
	switch v := cm.Value.(type) {
	case models.EmailAddress:
		challengeType, to = models.ChallengeEmail, string(v)
	case models.PhoneNumber:
		challengeType, to = models.ChallengeSMS, string(v)
	default:
		return models.PublicChallenge{}, apperr.Validation("contact method of type %s cannot be verified", cm.Type())
	}

	challenge, err := newOTPChallenge(cm, challengeType)
	if err != nil {
		return models.PublicChallenge{}, err
	}
	sess.VerifyChallenge = challenge

	s.metrics.IncrementChallengesIssued(string(challengeType))
	s.deliver(ctx, userProfileID, challenge, to)
	return challenge.Public(), nil
}

// VerifyContactMethod проверяет код подтверждения и помечает способ связи подтверждённым.
func (s *Service) VerifyContactMethod(ctx context.Context, sess *security.Session, userProfileID, contactMethodID, challengeID uuid.UUID, passcode string) error {
	const op = "authn.VerifyContactMethod"
	if err := requireAuthn(sess); err != nil {
		return err
	}
	if err := requireOwner(sess, userProfileID); err != nil {
		return err
	}
	challenge := sess.VerifyChallenge
	if challenge == nil || challenge.ChallengeID != challengeID {
		return apperr.BadRequest("invalid challenge")
	}
	if challenge.ContactMethodID == nil || *challenge.ContactMethodID != contactMethodID {
		return apperr.BadRequest("challenge was issued for another contact method")
	}

	challenge.Attempts++
	if challenge.Attempts > MaxAttempts {
		sess.VerifyChallenge = nil
		s.metrics.IncrementVerifications(metrics.ResultLocked)
		return apperr.Forbidden("Too many invalid attempts")
	}
	if passcode != challenge.Secret {
		s.metrics.IncrementVerifications(metrics.ResultRejected)
		return apperr.Unauthorized("Incorrect passcode")
	}

	if err := s.users.MarkContactMethodVerified(ctx, contactMethodID, &userProfileID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	sess.VerifyChallenge = nil
	s.metrics.IncrementVerifications(metrics.ResultCompleted)
	s.log.Info("contact method verified",
		slog.String("op", op),
		slog.String("contact_method_id", contactMethodID.String()),
	)
	return nil
}
