package models

import "github.com/google/uuid"

// AuthnChallenge выданный вызов аутентификации.
// Secret и Attempts никогда не покидают сервер.
type AuthnChallenge struct {
	ChallengeID     uuid.UUID
	ChallengeType   AuthnChallengeType
	Hint            string
	Secret          string
	Attempts        int
	ContactMethodID *uuid.UUID
}

// PublicChallenge публичное представление вызова.
type PublicChallenge struct {
	ChallengeID   uuid.UUID          `json:"challenge_id"`
	ChallengeType AuthnChallengeType `json:"challenge_type"`
	Hint          string             `json:"hint"`
}

// Public возвращает публичное представление вызова.
func (c *AuthnChallenge) Public() PublicChallenge {
	return PublicChallenge{
		ChallengeID:   c.ChallengeID,
		ChallengeType: c.ChallengeType,
		Hint:          c.Hint,
	}
}
