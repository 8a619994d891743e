// Package middlewarectx содержит HTTP middleware сессий, прав и ограничения
// частоты запросов, а также ключи контекста запроса.
package middlewarectx

import (
	"context"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/vocal/internal/security"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// SessionKey ключ загруженной сессии в контексте.
const SessionKey Key = "session"

// WithSession кладёт сессию в контекст.
func WithSession(ctx context.Context, sess *security.Session) context.Context {
	return context.WithValue(ctx, SessionKey, sess)
}

// SessionFrom возвращает сессию запроса, если она была загружена.
func SessionFrom(ctx context.Context) (*security.Session, bool) {
	sess, ok := ctx.Value(SessionKey).(*security.Session)
	return sess, ok && sess != nil
}

// UserProfileID возвращает профиль пользователя сессии запроса.
func UserProfileID(ctx context.Context) (uuid.UUID, bool) {
	sess, ok := SessionFrom(ctx)
	if !ok || sess.UserProfileID == nil {
		return uuid.Nil, false
	}
	return *sess.UserProfileID, true
}
