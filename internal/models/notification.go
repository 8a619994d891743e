package models

import (
	"time"

	"github.com/google/uuid"
)

// OTPMessage сообщение очереди доставки одноразового кода.
type OTPMessage struct {
	ChallengeID   uuid.UUID          `json:"challenge_id"`
	ChallengeType AuthnChallengeType `json:"challenge_type"`
	UserProfileID uuid.UUID          `json:"user_profile_id"`
	Recipient     string             `json:"recipient"`
	Code          string             `json:"code"`
	IssuedAt      time.Time          `json:"issued_at"`
}
