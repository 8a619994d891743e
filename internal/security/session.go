package security

import (
	"encoding/json"
	"slices"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/vocal/internal/models"
)

// Session документ сессии аутентификации.
//
// Сессия переживает запросы только через хранилище сессий; ID в документ
// не входит и назначается хранилищем.
type Session struct {
	ID                 string
	Authenticated      bool
	UserProfileID      *uuid.UUID
	RequiredChallenges []models.AuthnChallengeType
	PendingChallenge   *models.AuthnChallenge
	Capabilities       Capabilities
	VerifyChallenge    *models.AuthnChallenge

	invalidated bool
}

// NewSession создаёт пустую неаутентифицированную сессию.
func NewSession(id string) *Session {
	return &Session{ID: id, Capabilities: Capabilities{}}
}

// Has сообщает, есть ли у сессии все требуемые права.
func (s *Session) Has(required ...Capability) bool {
	return s.Capabilities.Has(required...)
}

// Grant добавляет права.
func (s *Session) Grant(caps ...Capability) {
	if s.Capabilities == nil {
		s.Capabilities = Capabilities{}
	}
	for _, c := range caps {
		s.Capabilities[c] = struct{}{}
	}
}

// Revoke удаляет права.
func (s *Session) Revoke(caps ...Capability) {
	for _, c := range caps {
		delete(s.Capabilities, c)
	}
}

// PopChallenge извлекает следующий тип вызова из очереди.
func (s *Session) PopChallenge() (models.AuthnChallengeType, bool) {
	if len(s.RequiredChallenges) == 0 {
		return "", false
	}
	next := s.RequiredChallenges[0]
	s.RequiredChallenges = slices.Clone(s.RequiredChallenges[1:])
	return next, true
}

// Invalidate помечает сессию для удаления из хранилища и сбрасывает её состояние.
func (s *Session) Invalidate() {
	s.invalidated = true
	s.Authenticated = false
	s.UserProfileID = nil
	s.RequiredChallenges = nil
	s.PendingChallenge = nil
	s.VerifyChallenge = nil
	s.Capabilities = Capabilities{}
}

// Invalidated сообщает, что сессию нужно удалить, а не сохранить.
func (s *Session) Invalidated() bool {
	return s.invalidated
}

type challengeJSON struct {
	ChallengeID     uuid.UUID                 `json:"challenge_id"`
	ChallengeType   models.AuthnChallengeType `json:"challenge_type"`
	Hint            string                    `json:"hint"`
	Secret          string                    `json:"secret"`
	Attempts        int                       `json:"attempts"`
	ContactMethodID *uuid.UUID                `json:"contact_method_id,omitempty"`
}

type sessionJSON struct {
	Authenticated      bool                        `json:"authenticated"`
	UserProfileID      *uuid.UUID                  `json:"user_profile_id"`
	RequiredChallenges []models.AuthnChallengeType `json:"required_challenges"`
	PendingChallenge   *challengeJSON              `json:"pending_challenge"`
	Capabilities       []Capability                `json:"capabilities"`
	VerifyChallenge    *challengeJSON              `json:"verify_challenge,omitempty"`
}

func toChallengeJSON(c *models.AuthnChallenge) *challengeJSON {
	if c == nil {
		return nil
	}
	return &challengeJSON{
		ChallengeID:     c.ChallengeID,
		ChallengeType:   c.ChallengeType,
		Hint:            c.Hint,
		Secret:          c.Secret,
		Attempts:        c.Attempts,
		ContactMethodID: c.ContactMethodID,
	}
}

func (c *challengeJSON) model() *models.AuthnChallenge {
	if c == nil {
		return nil
	}
	return &models.AuthnChallenge{
		ChallengeID:     c.ChallengeID,
		ChallengeType:   c.ChallengeType,
		Hint:            c.Hint,
		Secret:          c.Secret,
		Attempts:        c.Attempts,
		ContactMethodID: c.ContactMethodID,
	}
}

// MarshalJSON кодирует документ сессии для хранилища, включая секреты вызовов.
func (s *Session) MarshalJSON() ([]byte, error) {
	required := s.RequiredChallenges
	if required == nil {
		required = []models.AuthnChallengeType{}
	}
	return json.Marshal(sessionJSON{
		Authenticated:      s.Authenticated,
		UserProfileID:      s.UserProfileID,
		RequiredChallenges: required,
		PendingChallenge:   toChallengeJSON(s.PendingChallenge),
		Capabilities:       s.Capabilities.List(),
		VerifyChallenge:    toChallengeJSON(s.VerifyChallenge),
	})
}

// UnmarshalJSON восстанавливает документ сессии. ID не изменяется.
func (s *Session) UnmarshalJSON(data []byte) error {
	var raw sessionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Authenticated = raw.Authenticated
	s.UserProfileID = raw.UserProfileID
	s.RequiredChallenges = raw.RequiredChallenges
	s.PendingChallenge = raw.PendingChallenge.model()
	s.VerifyChallenge = raw.VerifyChallenge.model()
	s.Capabilities = NewCapabilities(raw.Capabilities...)
	return nil
}
