package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Article is a Wikipedia page saved into a user's personal storage.
// At most one article exists per (author, title).
type Article struct {
	ID        uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Title     string    `json:"title" gorm:"size:255;not null;uniqueIndex:idx_articles_author_title,priority:2"`
	Content   string    `json:"content" gorm:"not null"` // Rendered HTML
	Lang      string    `json:"lang" gorm:"size:16;not null;default:'en'"`
	AuthorID  uuid.UUID `json:"author_id" gorm:"type:char(36);not null;uniqueIndex:idx_articles_author_title,priority:1"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	History []ArticleHistory `json:"-" gorm:"foreignKey:ArticleID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate sets UUID before creating the record.
func (a *Article) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
