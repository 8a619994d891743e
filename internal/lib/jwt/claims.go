// Package jwt подписывает и проверяет токены сессий.
//
// Токен несёт только идентификатор серверной сессии в поле subject;
// состояние сессии хранится в хранилище сессий.
package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Maker описывает интерфейс для выпуска и разбора токенов сессии.
type Maker interface {
	GenerateToken(sessionID string) (string, error)
	ParseToken(tokenStr string) (*SessionClaims, error)
}

// SessionClaims claims токена сессии. В Subject лежит идентификатор сессии.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// MakerImpl реализует Maker на HS256 с секретным ключом и временем жизни токена.
type MakerImpl struct {
	secretKey string        // Секретный ключ для подписи токенов.
	tokenTTL  time.Duration // Время жизни токена.
	issuer    string
}

// NewJWTMaker создаёт MakerImpl на основе секретного ключа и TTL.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
		issuer:    "vocal",
	}
}
