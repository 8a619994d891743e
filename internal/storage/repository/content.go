package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/vocal/internal/apperr"
	"github.com/magabrotheeeer/vocal/internal/models"
	"github.com/magabrotheeeer/vocal/internal/storage"
	"github.com/magabrotheeeer/vocal/internal/storage/record"
)

// ArticleVersion идентификатор версии статьи.
type ArticleVersion struct {
	ArticleID  uuid.UUID `json:"article_id"`
	VersionKey uuid.UUID `json:"version_key"`
}

const articleFrom = `
	FROM article a
	JOIN user_profile up ON up.user_profile_id = a.author_id
	WHERE a.article_id = $1`

// CreateArticle создаёт первую версию статьи. Пустой статус означает draft.
func CreateArticle(c models.ArticleContent) *storage.Op[ArticleVersion] {
	return storage.NewOp("repository.CreateArticle", func(ctx context.Context, db storage.DBTX) (ArticleVersion, error) {
		status, err := articleStatus(c.Status)
		if err != nil {
			return ArticleVersion{}, err
		}
		v := ArticleVersion{ArticleID: uuid.New(), VersionKey: uuid.New()}
		_, err = db.Exec(ctx, `
			INSERT INTO article (article_id, version_key, revision, author_id, status,
				title, excerpt, document, text)
			VALUES ($1, $2, 1, $3, $4, $5, $6, $7, $8)`,
			v.ArticleID, v.VersionKey, c.AuthorID, status, c.Title,
			jsonOrEmpty(c.Excerpt), jsonOrEmpty(c.Document), c.Text)
		if err != nil {
			return ArticleVersion{}, err
		}
		return v, nil
	})
}

// GetArticle возвращает версию статьи с ключом versionKey или последнюю
// версию, если ключ не задан. Возвращает nil, если версия не найдена.
func GetArticle(articleID uuid.UUID, versionKey *uuid.UUID) *storage.Op[*models.Article] {
	return storage.NewOp("repository.GetArticle", func(ctx context.Context, db storage.DBTX) (*models.Article, error) {
		sql := "SELECT " + record.ArticleColumns + articleFrom
		args := []any{articleID}
		if versionKey != nil {
			sql += " AND a.version_key = $2"
			args = append(args, *versionKey)
		} else {
			sql += " ORDER BY a.revision DESC LIMIT 1"
		}
		rows, err := query[record.ArticleRow](ctx, db, sql, args...)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, nil
		}
		return rows[0].Model(), nil
	})
}

// UpdateArticle добавляет новую версию поверх последней.
//
// versionKey должен совпадать с ключом последней версии, иначе возвращается
// StaleVersion. Последняя версия блокируется до конца транзакции, а уникальный
// индекс (article_id, revision) отсекает конкурентную запись той же ревизии.
// Возвращает ключ новой версии.
func UpdateArticle(articleID, versionKey uuid.UUID, c models.ArticleContent) *storage.Op[uuid.UUID] {
	return storage.NewOp("repository.UpdateArticle", func(ctx context.Context, db storage.DBTX) (uuid.UUID, error) {
		status, err := articleStatus(c.Status)
		if err != nil {
			return uuid.Nil, err
		}

		var latest uuid.UUID
		var revision int64
		err = db.QueryRow(ctx, `
			SELECT version_key, revision FROM article
			WHERE article_id = $1
			ORDER BY revision DESC
			LIMIT 1
			FOR UPDATE`, articleID).Scan(&latest, &revision)
		if storage.IsNoRows(err) {
			return uuid.Nil, apperr.NotFound("article %s does not exist", articleID)
		}
		if err != nil {
			return uuid.Nil, err
		}
		if latest != versionKey {
			return uuid.Nil, apperr.StaleVersion("attempted to insert over stale version %s", versionKey)
		}

		next := uuid.New()
		_, err = db.Exec(ctx, `
			INSERT INTO article (article_id, version_key, revision, author_id, status,
				title, excerpt, document, text)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			articleID, next, revision+1, c.AuthorID, status, c.Title,
			jsonOrEmpty(c.Excerpt), jsonOrEmpty(c.Document), c.Text)
		if _, ok := storage.UniqueViolation(err); ok {
			return uuid.Nil, apperr.StaleVersion("attempted to insert over stale version %s", versionKey)
		}
		if err != nil {
			return uuid.Nil, err
		}
		return next, nil
	})
}

func articleStatus(s models.ArticleStatus) (models.ArticleStatus, error) {
	if s == "" {
		return models.ArticleDraft, nil
	}
	if !s.Valid() {
		return "", apperr.Validation("unknown article status %q", s)
	}
	return s, nil
}

func jsonOrEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("{}")
	}
	return raw
}
