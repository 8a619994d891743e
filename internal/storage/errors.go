package storage

import (
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/magabrotheeeer/vocal/internal/apperr"
)

// Метки, с которых начинаются сообщения триггеров схемы.
const (
	tagContactMethodVerified   = "[CONTACT_METHOD_VERIFIED]"
	tagPaymentDemandSubscribed = "[PAYMENT_DEMAND_HAS_SUBSCRIBERS]"
	tagTimestampImmutable      = "[TIMESTAMP_IMMUTABLE]"
	tagColumnImmutable         = "[COLUMN_IMMUTABLE]"
	tagIncorrectContactType    = "[INCORRECT_CONTACT_METHOD_TYPE]"
)

// UniqueViolation сообщает, нарушено ли ограничение уникальности, и его имя.
func UniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// IsNoRows сообщает, что запрос не вернул строк.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// Translate переводит ошибки PostgreSQL в доменные ошибки.
// Ошибки вне таксономии и уже переведённые ошибки возвращаются без изменений.
func Translate(err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return &apperr.Error{Kind: apperr.KindConflict, Msg: "record already exists", Err: err}
	case pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
		return &apperr.Error{Kind: apperr.KindValidation, Msg: pgErr.Message, Err: err}
	case pgerrcode.ForeignKeyViolation:
		return &apperr.Error{Kind: apperr.KindValidation, Msg: "referenced record does not exist", Err: err}
	case pgerrcode.RaiseException:
		return translateRaise(pgErr, err)
	}
	return err
}

func translateRaise(pgErr *pgconn.PgError, err error) error {
	msg := pgErr.Message
	switch {
	case strings.HasPrefix(msg, tagContactMethodVerified),
		strings.HasPrefix(msg, tagPaymentDemandSubscribed),
		strings.HasPrefix(msg, tagTimestampImmutable),
		strings.HasPrefix(msg, tagColumnImmutable):
		return apperr.Immutable(msg, err)
	case strings.HasPrefix(msg, tagIncorrectContactType):
		return &apperr.Error{Kind: apperr.KindValidation, Msg: msg, Err: err}
	}
	return err
}
