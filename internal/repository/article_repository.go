package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wikishelf/internal/model"
)

// ArticleRepository defines article persistence operations.
type ArticleRepository interface {
	Create(ctx context.Context, article *model.Article) error
	Update(ctx context.Context, article *model.Article) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Article, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Article, error)
	FindByAuthorAndTitle(ctx context.Context, authorID uuid.UUID, title string) (*model.Article, error)
	FindByAuthorAndTitleForUpdate(ctx context.Context, authorID uuid.UUID, title string) (*model.Article, error)
	ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]model.Article, error)
	CountByAuthor(ctx context.Context, authorID uuid.UUID) (int64, error)
	// FindNthByAuthor returns the author's article at position n in a stable order.
	FindNthByAuthor(ctx context.Context, authorID uuid.UUID, n int) (*model.Article, error)
	// WithTransaction executes fn with article and history repositories bound
	// to one database transaction.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, articles ArticleRepository, history ArticleHistoryRepository) error) error
}

type articleRepository struct {
	db *gorm.DB
}

// NewArticleRepository creates a new article repository.
func NewArticleRepository(db *gorm.DB) ArticleRepository {
	return &articleRepository{db: db}
}

// Create creates a new article.
func (r *articleRepository) Create(ctx context.Context, article *model.Article) error {
	return normalize(r.db.WithContext(ctx).Create(article).Error)
}

// Update updates an existing article.
func (r *articleRepository) Update(ctx context.Context, article *model.Article) error {
	return normalize(r.db.WithContext(ctx).Save(article).Error)
}

// Delete removes an article and its history.
func (r *articleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("article_id = ?", id).Delete(&model.ArticleHistory{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.Article{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// FindByID finds an article by ID.
func (r *articleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Article, error) {
	var article model.Article
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&article).Error; err != nil {
		return nil, err
	}
	return &article, nil
}

// FindByIDForUpdate finds an article by ID with a row-level lock.
func (r *articleRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Article, error) {
	var article model.Article
	if err := r.locking(ctx).Where("id = ?", id).First(&article).Error; err != nil {
		return nil, err
	}
	return &article, nil
}

// FindByAuthorAndTitle finds the author's article with an exact title.
func (r *articleRepository) FindByAuthorAndTitle(ctx context.Context, authorID uuid.UUID, title string) (*model.Article, error) {
	var article model.Article
	if err := r.db.WithContext(ctx).
		Where("author_id = ? AND title = ?", authorID, title).
		First(&article).Error; err != nil {
		return nil, err
	}
	return &article, nil
}

// FindByAuthorAndTitleForUpdate is FindByAuthorAndTitle with a row-level lock.
func (r *articleRepository) FindByAuthorAndTitleForUpdate(ctx context.Context, authorID uuid.UUID, title string) (*model.Article, error) {
	var article model.Article
	if err := r.locking(ctx).
		Where("author_id = ? AND title = ?", authorID, title).
		First(&article).Error; err != nil {
		return nil, err
	}
	return &article, nil
}

// ListByAuthor lists all articles owned by an author.
func (r *articleRepository) ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]model.Article, error) {
	articles := make([]model.Article, 0)
	if err := r.db.WithContext(ctx).Where("author_id = ?", authorID).Find(&articles).Error; err != nil {
		return nil, err
	}
	return articles, nil
}

// CountByAuthor counts the articles owned by an author.
func (r *articleRepository) CountByAuthor(ctx context.Context, authorID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Article{}).
		Where("author_id = ?", authorID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindNthByAuthor returns the article at offset n ordered by ID.
func (r *articleRepository) FindNthByAuthor(ctx context.Context, authorID uuid.UUID, n int) (*model.Article, error) {
	var article model.Article
	if err := r.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("id").
		Offset(n).
		Limit(1).
		Take(&article).Error; err != nil {
		return nil, err
	}
	return &article, nil
}

// WithTransaction executes a function within a database transaction.
func (r *articleRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, articles ArticleRepository, history ArticleHistoryRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &articleRepository{db: tx}, &articleHistoryRepository{db: tx})
	})
}

// locking adds SELECT ... FOR UPDATE where the dialect supports row locks.
func (r *articleRepository) locking(ctx context.Context) *gorm.DB {
	q := r.db.WithContext(ctx)
	if q.Dialector.Name() == "sqlite" {
		return q
	}
	return q.Clauses(clause.Locking{Strength: "UPDATE"})
}
