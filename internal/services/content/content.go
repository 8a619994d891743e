// Package content версионируемые статьи.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/vocal/internal/apperr"
	"github.com/magabrotheeeer/vocal/internal/models"
	"github.com/magabrotheeeer/vocal/internal/storage"
	"github.com/magabrotheeeer/vocal/internal/storage/repository"
)

type Service struct {
	storage *storage.Storage
	log     *slog.Logger
}

func New(st *storage.Storage, log *slog.Logger) *Service {
	return &Service{storage: st, log: log}
}

// CreateArticle сохраняет первую версию статьи.
func (s *Service) CreateArticle(ctx context.Context, c models.ArticleContent) (repository.ArticleVersion, error) {
	const op = "content.CreateArticle"
	if err := validateContent(c); err != nil {
		return repository.ArticleVersion{}, err
	}
	v, err := storage.Do(ctx, s.storage, repository.CreateArticle(c))
	if err != nil {
		return repository.ArticleVersion{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("article created",
		slog.String("op", op),
		slog.String("article_id", v.ArticleID.String()),
		slog.String("version_key", v.VersionKey.String()),
	)
	return v, nil
}

// GetArticle возвращает версию статьи или последнюю версию, если versionKey
// не задан. Возвращает nil, если статьи нет.
func (s *Service) GetArticle(ctx context.Context, articleID uuid.UUID, versionKey *uuid.UUID) (*models.Article, error) {
	const op = "content.GetArticle"
	a, err := storage.Do(ctx, s.storage, repository.GetArticle(articleID, versionKey))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

// UpdateArticle добавляет версию поверх versionKey и возвращает её.
// Устаревший ключ даёт StaleVersion.
func (s *Service) UpdateArticle(ctx context.Context, articleID, versionKey uuid.UUID, c models.ArticleContent) (*models.Article, error) {
	const op = "content.UpdateArticle"
	if err := validateContent(c); err != nil {
		return nil, err
	}

	var article *models.Article
	err := s.storage.Session(ctx, func(ctx context.Context, tx storage.DBTX) error {
		next, err := repository.UpdateArticle(articleID, versionKey, c).Execute(ctx, tx)
		if err != nil {
			return err
		}
		article, err = repository.GetArticle(articleID, &next).Execute(ctx, tx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("article updated",
		slog.String("op", op),
		slog.String("article_id", articleID.String()),
		slog.Int64("revision", article.Revision),
	)
	return article, nil
}

func validateContent(c models.ArticleContent) error {
	if c.AuthorID == uuid.Nil {
		return apperr.Validation("author is required")
	}
	for name, raw := range map[string]json.RawMessage{"excerpt": c.Excerpt, "document": c.Document} {
		if len(raw) > 0 && !json.Valid(raw) {
			return apperr.Validation("%s must be valid JSON", name)
		}
	}
	return nil
}
