package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Author автор статьи.
type Author struct {
	UserProfileID uuid.UUID
	DisplayName   string
	Role          UserRole
	CreatedAt     time.Time
}

// Article версия статьи. Ключ версии уникален в пределах статьи.
type Article struct {
	ArticleID  uuid.UUID
	VersionKey uuid.UUID
	Revision   int64
	Author     Author
	Status     ArticleStatus
	Title      *string
	Excerpt    json.RawMessage
	Document   json.RawMessage
	Text       string
	CreatedAt  time.Time
}

// PublicAuthor публичное представление автора.
type PublicAuthor struct {
	ProfileID   uuid.UUID `json:"profile_id"`
	DisplayName string    `json:"display_name"`
}

// PublicArticle публичное представление статьи.
type PublicArticle struct {
	Author     PublicAuthor    `json:"author"`
	ArticleID  uuid.UUID       `json:"article_id"`
	VersionKey uuid.UUID       `json:"version_key"`
	Status     ArticleStatus   `json:"status"`
	Title      *string         `json:"title"`
	Excerpt    json.RawMessage `json:"excerpt"`
	Document   json.RawMessage `json:"document"`
	Text       string          `json:"text"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Public возвращает публичное представление статьи.
func (a *Article) Public() PublicArticle {
	return PublicArticle{
		Author: PublicAuthor{
			ProfileID:   a.Author.UserProfileID,
			DisplayName: a.Author.DisplayName,
		},
		ArticleID:  a.ArticleID,
		VersionKey: a.VersionKey,
		Status:     a.Status,
		Title:      a.Title,
		Excerpt:    a.Excerpt,
		Document:   a.Document,
		Text:       a.Text,
		CreatedAt:  a.CreatedAt,
	}
}

// ArticleContent изменяемое содержимое статьи.
type ArticleContent struct {
	AuthorID uuid.UUID
	Title    *string
	Excerpt  json.RawMessage
	Document json.RawMessage
	Text     string
	Status   ArticleStatus
}
