// Package sl содержит вспомогательные функции для структурированного логирования через slog.
package sl

import (
	"errors"
	"log/slog"
	"os"

	"github.com/magabrotheeeer/vocal/internal/apperr"
)

// Err возвращает slog.Attr с ключом "error" и текстом ошибки.
//
// Пример:
//
//	log.Error("failed to load session", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}

// Kind возвращает slog.Attr с видом доменной ошибки, чтобы отличать
// ошибки клиента от внутренних сбоев при разборе логов.
func Kind(err error) slog.Attr {
	if errors.Is(err, apperr.ErrDoubleExecution) {
		return slog.String("error_kind", "programming")
	}
	return slog.String("error_kind", string(apperr.KindOf(err)))
}

// Окружения, для которых настраивается логгер.
const (
	EnvLocal = "local"
	EnvProd  = "prod"
)

// New создаёт логгер для окружения env: текстовый с отладкой локально,
// JSON без отладки в prod, JSON с отладкой в остальных случаях.
func New(env string) *slog.Logger {
	switch env {
	case EnvLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case EnvProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
