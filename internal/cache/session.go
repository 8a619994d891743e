package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/vocal/internal/security"
)

// SessionStore хранит документы сессий аутентификации.
// Время жизни сессии продлевается при каждом сохранении.
type SessionStore struct {
	cache  *Cache
	prefix string
	ttl    time.Duration
}

// NewSessionStore создаёт хранилище сессий поверх cache.
func NewSessionStore(cache *Cache, prefix string, ttl time.Duration) *SessionStore {
	return &SessionStore{cache: cache, prefix: prefix, ttl: ttl}
}

func (s *SessionStore) key(id string) string {
	return s.prefix + id
}

// New создаёт и сохраняет пустую сессию со случайным идентификатором.
func (s *SessionStore) New(ctx context.Context) (*security.Session, error) {
	const op = "cache.SessionStore.New"
	sess := security.NewSession(uuid.NewString())
	if err := s.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sess, nil
}

// Load возвращает сессию по идентификатору или nil, если сессии нет или срок её истёк.
func (s *SessionStore) Load(ctx context.Context, id string) (*security.Session, error) {
	const op = "cache.SessionStore.Load"
	sess := security.NewSession(id)
	found, err := s.cache.Get(ctx, s.key(id), sess)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil, nil
	}
	return sess, nil
}

// Save сохраняет сессию. Сессия, помеченная Invalidate, удаляется.
func (s *SessionStore) Save(ctx context.Context, sess *security.Session) error {
	const op = "cache.SessionStore.Save"
	if sess.Invalidated() {
		return s.Invalidate(ctx, sess.ID)
	}
	if err := s.cache.Set(ctx, s.key(sess.ID), sess, s.ttl); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Invalidate удаляет сессию.
func (s *SessionStore) Invalidate(ctx context.Context, id string) error {
	const op = "cache.SessionStore.Invalidate"
	if err := s.cache.Invalidate(ctx, s.key(id)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
