// Package password хеширует и проверяет пароли пользователей с помощью bcrypt.
//
// Соль генерируется bcrypt для каждого хеша, поэтому одинаковые пароли дают разные хеши.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Cost стоимость bcrypt. Тесты понижают её до bcrypt.MinCost.
var Cost = bcrypt.DefaultCost

// Hash принимает пароль пользователя и возвращает его bcrypt-хэш.
func Hash(password string) (string, error) {
	const op = "password.Hash"
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), Cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// Verify сравнивает bcrypt-хэш с введённым паролем.
//
// Неверный пароль не является ошибкой: возвращается false и nil.
// Ошибка возвращается только для повреждённого хэша.
func Verify(hash, password string) (bool, error) {
	const op = "password.Verify"
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%s: %w", op, err)
	}
}
