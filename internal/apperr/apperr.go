// Package apperr описывает таксономию доменных ошибок сервиса.
//
// Операции возвращают *Error с видом (Kind) и человеко-читаемым сообщением.
// Каждому виду соответствует sentinel-ошибка, поэтому вызывающий код
// проверяет вид через errors.Is, а HTTP-граница отображает вид в статус ответа.
package apperr

import (
	"errors"
	"fmt"
)

// Kind вид доменной ошибки.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindBadRequest   Kind = "bad_request"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindStaleVersion Kind = "stale_version"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindImmutable    Kind = "immutable"
	KindInternal     Kind = "internal"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrBadRequest   = errors.New("bad request")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrStaleVersion = errors.New("stale version")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrImmutable    = errors.New("immutable")

	// ErrDoubleExecution ошибка программиста: одноразовая операция выполнена повторно.
	// Не перехватывается и не повторяется.
	ErrDoubleExecution = errors.New("attempted double execution of operation")
)

var sentinels = map[Kind]error{
	KindValidation:   ErrValidation,
	KindBadRequest:   ErrBadRequest,
	KindNotFound:     ErrNotFound,
	KindConflict:     ErrConflict,
	KindStaleVersion: ErrStaleVersion,
	KindUnauthorized: ErrUnauthorized,
	KindForbidden:    ErrForbidden,
	KindImmutable:    ErrImmutable,
}

// Error доменная ошибка с видом и сообщением для пользователя.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Msg == "" {
		return e.Err.Error()
	}
	return e.Msg
}

// Unwrap возвращает sentinel-ошибку вида и исходную причину, если она есть.
func (e *Error) Unwrap() []error {
	var errs []error
	if s, ok := sentinels[e.Kind]; ok {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error   { return newf(KindValidation, format, args...) }
func BadRequest(format string, args ...any) error   { return newf(KindBadRequest, format, args...) }
func NotFound(format string, args ...any) error     { return newf(KindNotFound, format, args...) }
func Conflict(format string, args ...any) error     { return newf(KindConflict, format, args...) }
func StaleVersion(format string, args ...any) error { return newf(KindStaleVersion, format, args...) }
func Unauthorized(format string, args ...any) error { return newf(KindUnauthorized, format, args...) }
func Forbidden(format string, args ...any) error    { return newf(KindForbidden, format, args...) }

// Immutable оборачивает ошибку хранилища о попытке изменить неизменяемые данные.
func Immutable(msg string, cause error) error {
	return &Error{Kind: KindImmutable, Msg: msg, Err: cause}
}

// KindOf возвращает вид ошибки; для ошибок вне таксономии KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	for kind, s := range sentinels {
		if errors.Is(err, s) {
			return kind
		}
	}
	return KindInternal
}

// Message возвращает сообщение доменной ошибки, пригодное для показа клиенту.
// Для внутренних ошибок возвращается пустая строка.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return ""
}
