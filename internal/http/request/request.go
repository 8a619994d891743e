// Package request разбирает тело и параметры HTTP-запросов.
package request

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/vocal/internal/http/response"
	"github.com/magabrotheeeer/vocal/internal/lib/sl"
)

// Logger возвращает логгер с op и идентификатором запроса.
func Logger(log *slog.Logger, r *http.Request, op string) *slog.Logger {
	return log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// Decode читает JSON-тело в dst. При ошибке пишет 400 и возвращает false.
func Decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		log.Info("failed to decode request body", sl.Err(err))
		response.Error(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// PathUUID разбирает параметр маршрута name как UUID.
func PathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// QueryUUID разбирает необязательный параметр строки запроса как UUID.
func QueryUUID(w http.ResponseWriter, r *http.Request, name string) (*uuid.UUID, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "invalid "+name)
		return nil, false
	}
	return &id, true
}

// QueryInt разбирает необязательный неотрицательный параметр строки запроса.
func QueryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		response.Error(w, r, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return n, true
}
