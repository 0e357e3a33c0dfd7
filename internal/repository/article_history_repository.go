package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"wikishelf/internal/model"
)

// ArticleHistoryRepository defines history persistence operations. History is
// append-only: there is no update and rows go away only with their article.
type ArticleHistoryRepository interface {
	Append(ctx context.Context, entry *model.ArticleHistory) error
	ListByArticle(ctx context.Context, articleID uuid.UUID) ([]model.ArticleHistory, error)
}

type articleHistoryRepository struct {
	db *gorm.DB
}

// NewArticleHistoryRepository creates a new article history repository.
func NewArticleHistoryRepository(db *gorm.DB) ArticleHistoryRepository {
	return &articleHistoryRepository{db: db}
}

// Append stores a snapshot with the next version number for its article.
func (r *articleHistoryRepository) Append(ctx context.Context, entry *model.ArticleHistory) error {
	var last int64
	if err := r.db.WithContext(ctx).Model(&model.ArticleHistory{}).
		Where("article_id = ?", entry.ArticleID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&last).Error; err != nil {
		return err
	}
	entry.Version = last + 1
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByArticle returns the snapshots of an article, newest first.
func (r *articleHistoryRepository) ListByArticle(ctx context.Context, articleID uuid.UUID) ([]model.ArticleHistory, error) {
	entries := make([]model.ArticleHistory, 0)
	if err := r.db.WithContext(ctx).
		Where("article_id = ?", articleID).
		Order("created_at DESC").
		Order("version DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
