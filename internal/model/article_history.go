package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ArticleHistory is a snapshot of an article taken right before it was changed.
// Rows are append-only and disappear only when the parent article is deleted.
type ArticleHistory struct {
	ID        uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	ArticleID uuid.UUID `json:"article_id" gorm:"type:char(36);not null;index"`
	Title     string    `json:"title" gorm:"size:255;not null"`
	Content   string    `json:"content" gorm:"not null"`
	AuthorID  uuid.UUID `json:"author_id" gorm:"type:char(36);not null;index"`
	Version   int64     `json:"version" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// BeforeCreate sets UUID before creating the record.
func (h *ArticleHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// SnapshotOf captures the current title and content of an article.
func SnapshotOf(a *Article) *ArticleHistory {
	return &ArticleHistory{
		ArticleID: a.ID,
		Title:     a.Title,
		Content:   a.Content,
		AuthorID:  a.AuthorID,
	}
}
