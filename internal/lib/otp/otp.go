// Package otp генерирует одноразовые коды и маскирует адреса доставки для подсказок.
package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Digits ширина одноразового кода.
const Digits = 6

// phoneVisible количество символов номера телефона, остающихся открытыми.
const phoneVisible = 8

// Generate возвращает случайный числовой код из Digits цифр, включая ведущие нули.
func Generate() (string, error) {
	const op = "otp.Generate"
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(Digits), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Sprintf("%0*d", Digits, n.Int64()), nil
}

// MaskEmail скрывает локальную часть адреса, кроме первого символа: j****@dhillon.com.
func MaskEmail(email string) string {
	local, domain, found := strings.Cut(email, "@")
	r := []rune(local)
	if len(r) == 0 {
		return email
	}
	masked := string(r[:1]) + strings.Repeat("*", len(r)-1)
	if !found {
		return masked
	}
	return masked + "@" + domain
}

// MaskPhone оставляет открытыми первые восемь символов номера, остальные скрывает.
func MaskPhone(phone string) string {
	r := []rune(phone)
	if len(r) <= phoneVisible {
		return phone
	}
	return string(r[:phoneVisible]) + strings.Repeat("*", len(r)-phoneVisible)
}
