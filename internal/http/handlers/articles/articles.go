// Package articles реализует HTTP-обработчики статей.
package articles

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/vocal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/vocal/internal/http/request"
	"github.com/magabrotheeeer/vocal/internal/http/response"
	"github.com/magabrotheeeer/vocal/internal/models"
	"github.com/magabrotheeeer/vocal/internal/storage/repository"
)

// Service описывает операции над статьями.
type Service interface {
	CreateArticle(ctx context.Context, c models.ArticleContent) (repository.ArticleVersion, error)
	GetArticle(ctx context.Context, articleID uuid.UUID, versionKey *uuid.UUID) (*models.Article, error)
	UpdateArticle(ctx context.Context, articleID, versionKey uuid.UUID, c models.ArticleContent) (*models.Article, error)
}

// ArticleRequest содержимое статьи.
type ArticleRequest struct {
	Title    *string              `json:"title"`
	Excerpt  json.RawMessage      `json:"excerpt"`
	Document json.RawMessage      `json:"document"`
	Text     string               `json:"text"`
	Status   models.ArticleStatus `json:"status" validate:"omitempty,oneof=draft published archived"`
}

// UpdateArticleRequest новая версия поверх VersionKey.
type UpdateArticleRequest struct {
	ArticleRequest
	VersionKey uuid.UUID `json:"version_key" validate:"required"`
}

func (a ArticleRequest) content(author uuid.UUID) models.ArticleContent {
	return models.ArticleContent{
		AuthorID: author,
		Title:    a.Title,
		Excerpt:  a.Excerpt,
		Document: a.Document,
		Text:     a.Text,
		Status:   a.Status,
	}
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// Create godoc
// @Summary Создать статью
// @Tags Articles
// @Accept json
// @Produce json
// @Param request body ArticleRequest true "Статья"
// @Success 201 {object} response.Response "Идентификатор и ключ версии"
// @Failure 400 {object} response.Response "Ошибка валидации"
// @Failure 403 {object} response.Response "Нет права article.create"
// @Router /articles [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.articles.Create")
	uid, ok := middlewarectx.UserProfileID(r.Context())
	if !ok {
		response.Error(w, r, http.StatusForbidden, "Forbidden")
		return
	}

	var req ArticleRequest
	if !request.Decode(w, r, log, &req) || !response.Validate(w, r, log, h.validate, req) {
		return
	}

	v, err := h.service.CreateArticle(r.Context(), req.content(uid))
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, v)
}

// Get godoc
// @Summary Получить статью
// @Description Без version_key возвращается последняя версия.
// @Tags Articles
// @Produce json
// @Param article_id path string true "Статья"
// @Param version_key query string false "Ключ версии"
// @Success 200 {object} response.Response "Статья"
// @Failure 404 {object} response.Response "Статья не найдена"
// @Router /articles/{article_id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.articles.Get")
	articleID, ok := request.PathUUID(w, r, "article_id")
	if !ok {
		return
	}
	versionKey, ok := request.QueryUUID(w, r, "version_key")
	if !ok {
		return
	}

	a, err := h.service.GetArticle(r.Context(), articleID, versionKey)
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}
	if a == nil {
		response.Error(w, r, http.StatusNotFound, "article "+articleID.String()+" not found")
		return
	}
	response.OK(w, r, a.Public())
}

// Update godoc
// @Summary Обновить статью
// @Description Добавляет версию поверх version_key. Устаревший ключ даёт 409.
// @Tags Articles
// @Accept json
// @Produce json
// @Param article_id path string true "Статья"
// @Param request body UpdateArticleRequest true "Новая версия"
// @Success 200 {object} response.Response "Новая версия статьи"
// @Failure 404 {object} response.Response "Статья не найдена"
// @Failure 409 {object} response.Response "Устаревшая версия"
// @Router /articles/{article_id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.articles.Update")
	uid, ok := middlewarectx.UserProfileID(r.Context())
	if !ok {
		response.Error(w, r, http.StatusForbidden, "Forbidden")
		return
	}
	articleID, ok := request.PathUUID(w, r, "article_id")
	if !ok {
		return
	}

	var req UpdateArticleRequest
	if !request.Decode(w, r, log, &req) || !response.Validate(w, r, log, h.validate, req) {
		return
	}

	a, err := h.service.UpdateArticle(r.Context(), articleID, req.VersionKey, req.content(uid))
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}
	log.Info("article updated", slog.Int64("revision", a.Revision))
	response.OK(w, r, a.Public())
}
