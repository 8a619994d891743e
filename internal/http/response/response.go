// Package response формирует единый JSON-конверт ответов HTTP-обработчиков
// и отображает доменные ошибки в статусы HTTP.
package response

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/vocal/internal/apperr"
	"github.com/magabrotheeeer/vocal/internal/lib/sl"
)

// ErrorMessage описание одной ошибки.
type ErrorMessage struct {
	Message string `json:"message" example:"invalid request body"`
}

// Status статус ответа. Message содержит текстовую фразу HTTP-статуса.
type Status struct {
	Success bool           `json:"success"`
	Message string         `json:"message" example:"OK"`
	Errors  []ErrorMessage `json:"errors"`
}

// Response конверт ответа.
type Response struct {
	Status Status `json:"status"`
	Data   any    `json:"data"`
}

// New собирает конверт для кода code.
func New(code int, data any, errs ...string) Response {
	messages := make([]ErrorMessage, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, ErrorMessage{Message: e})
	}
	return Response{
		Status: Status{
			Success: code >= 200 && code < 300,
			Message: http.StatusText(code),
			Errors:  messages,
		},
		Data: data,
	}
}

// JSON пишет конверт с данными и кодом code.
func JSON(w http.ResponseWriter, r *http.Request, code int, data any) {
	render.Status(r, code)
	render.JSON(w, r, New(code, data))
}

// OK пишет успешный ответ 200.
func OK(w http.ResponseWriter, r *http.Request, data any) {
	JSON(w, r, http.StatusOK, data)
}

// Error пишет ответ с ошибками.
func Error(w http.ResponseWriter, r *http.Request, code int, msgs ...string) {
	render.Status(r, code)
	render.JSON(w, r, New(code, nil, msgs...))
}

// StatusFor отображает вид доменной ошибки в статус HTTP.
func StatusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindBadRequest:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict, apperr.KindStaleVersion, apperr.KindImmutable:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// FromError пишет ответ для ошибки операции. Текст внутренних ошибок
// клиенту не показывается.
func FromError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	code := StatusFor(err)
	if code == http.StatusInternalServerError {
		log.Error("internal error", sl.Err(err))
		Error(w, r, code, "internal server error")
		return
	}
	log.Info("request rejected", slog.Int("status", code), sl.Err(err))
	msg := apperr.Message(err)
	if msg == "" {
		msg = http.StatusText(code)
	}
	Error(w, r, code, msg)
}

// ValidationError пишет 400 с описанием каждого нарушения.
func ValidationError(w http.ResponseWriter, r *http.Request, errs validator.ValidationErrors) {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			msgs = append(msgs, fmt.Sprintf("field %s must be an email address", err.Field()))
		case "uuid":
			msgs = append(msgs, fmt.Sprintf("field %s can contain only uuid", err.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("field %s must be one of: %s", err.Field(), err.Param()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("field %s must be at least %s", err.Field(), err.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	Error(w, r, http.StatusBadRequest, msgs...)
}

// Validate проверяет структуру и при ошибке пишет ответ. Возвращает false,
// если ответ уже записан.
func Validate(w http.ResponseWriter, r *http.Request, log *slog.Logger, v *validator.Validate, req any) bool {
	err := v.Struct(req)
	if err == nil {
		return true
	}
	log.Info("validation failed", sl.Err(err))
	if verrs, ok := err.(validator.ValidationErrors); ok {
		ValidationError(w, r, verrs)
		return false
	}
	Error(w, r, http.StatusBadRequest, "invalid request body")
	return false
}
