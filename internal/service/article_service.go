package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "wikishelf/internal/errors"
	"wikishelf/internal/model"
	"wikishelf/internal/repository"
	"wikishelf/internal/wikipedia"
)

// ArticleUpdate holds the optional fields of an article edit.
type ArticleUpdate struct {
	Title   *string
	Content *string
}

// ArticleService manages the articles a user saved from Wikipedia.
type ArticleService interface {
	Search(ctx context.Context, query, lang string) ([]wikipedia.SearchResult, error)
	// Download stores title for ownerID. created is false when an existing
	// article was overwritten.
	Download(ctx context.Context, ownerID uuid.UUID, title, lang string, overwrite bool) (article *model.Article, created bool, err error)
	CheckExistence(ctx context.Context, ownerID uuid.UUID, title string) (bool, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]model.Article, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*model.Article, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, update ArticleUpdate) (*model.Article, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	History(ctx context.Context, ownerID, articleID uuid.UUID) ([]model.ArticleHistory, error)
	// Random picks one of the owner's articles uniformly; found is false when
	// the owner has none.
	Random(ctx context.Context, ownerID uuid.UUID) (article *model.Article, found bool, err error)
}

type articleService struct {
	articles repository.ArticleRepository
	history  repository.ArticleHistoryRepository
	source   wikipedia.Source
	logger   *zap.Logger
}

// NewArticleService creates a new article service.
func NewArticleService(
	articles repository.ArticleRepository,
	history repository.ArticleHistoryRepository,
	source wikipedia.Source,
	logger *zap.Logger,
) ArticleService {
	return &articleService{
		articles: articles,
		history:  history,
		source:   source,
		logger:   logger,
	}
}

func (s *articleService) Search(ctx context.Context, query, lang string) ([]wikipedia.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", apperrors.ErrInvalidInput)
	}
	return s.source.Search(ctx, query, lang)
}

func (s *articleService) Download(ctx context.Context, ownerID uuid.UUID, title, lang string, overwrite bool) (*model.Article, bool, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, false, fmt.Errorf("%w: title is required", apperrors.ErrInvalidInput)
	}
	lang, err := wikipedia.NormalizeLang(lang)
	if err != nil {
		return nil, false, err
	}

	// Fetch outside the transaction so no row lock is held across the network call.
	page, err := s.source.FetchArticle(ctx, title, lang)
	if err != nil {
		return nil, false, err
	}

	var (
		article *model.Article
		created bool
	)
	err = s.articles.WithTransaction(ctx, func(ctx context.Context, articles repository.ArticleRepository, history repository.ArticleHistoryRepository) error {
		existing, err := findForDownload(ctx, articles, ownerID, title, page.Title)
		if err != nil {
			return err
		}

		if existing == nil {
			article = &model.Article{
				Title:    page.Title,
				Content:  page.Content,
				Lang:     lang,
				AuthorID: ownerID,
			}
			created = true
			return articles.Create(ctx, article)
		}

		if !overwrite {
			return apperrors.ErrArticleExists
		}
		if err := history.Append(ctx, model.SnapshotOf(existing)); err != nil {
			return fmt.Errorf("snapshot article: %w", err)
		}
		existing.Title = page.Title
		existing.Content = page.Content
		existing.Lang = lang
		article = existing
		return articles.Update(ctx, existing)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, false, apperrors.ErrArticleExists
		}
		if errors.Is(err, apperrors.ErrArticleExists) {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("store article: %w", err)
	}

	s.logger.Info("article downloaded",
		zap.String("article_id", article.ID.String()),
		zap.String("owner_id", ownerID.String()),
		zap.String("lang", lang),
		zap.Bool("created", created),
	)
	return article, created, nil
}

// findForDownload locks the owner's article stored under the requested title,
// falling back to the canonical title Wikipedia resolved it to.
func findForDownload(ctx context.Context, articles repository.ArticleRepository, ownerID uuid.UUID, requested, canonical string) (*model.Article, error) {
	for _, title := range []string{requested, canonical} {
		existing, err := articles.FindByAuthorAndTitleForUpdate(ctx, ownerID, title)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("find article: %w", err)
		}
		if requested == canonical {
			break
		}
	}
	return nil, nil
}

func (s *articleService) CheckExistence(ctx context.Context, ownerID uuid.UUID, title string) (bool, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return false, fmt.Errorf("%w: title is required", apperrors.ErrInvalidInput)
	}
	_, err := s.articles.FindByAuthorAndTitle(ctx, ownerID, title)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("find article: %w", err)
	}
}

func (s *articleService) List(ctx context.Context, ownerID uuid.UUID) ([]model.Article, error) {
	articles, err := s.articles.ListByAuthor(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	return articles, nil
}

func (s *articleService) Get(ctx context.Context, ownerID, id uuid.UUID) (*model.Article, error) {
	article, err := s.articles.FindByID(ctx, id)
	if err != nil {
		return nil, articleLookupError(err)
	}
	if err := checkOwner(article, ownerID); err != nil {
		return nil, err
	}
	return article, nil
}

func (s *articleService) Update(ctx context.Context, ownerID, id uuid.UUID, update ArticleUpdate) (*model.Article, error) {
	if update.Title == nil && update.Content == nil {
		return nil, fmt.Errorf("%w: title or content is required", apperrors.ErrInvalidInput)
	}
	if update.Title != nil && strings.TrimSpace(*update.Title) == "" {
		return nil, fmt.Errorf("%w: title cannot be empty", apperrors.ErrInvalidInput)
	}

	var article *model.Article
	err := s.articles.WithTransaction(ctx, func(ctx context.Context, articles repository.ArticleRepository, history repository.ArticleHistoryRepository) error {
		current, err := articles.FindByIDForUpdate(ctx, id)
		if err != nil {
			return articleLookupError(err)
		}
		if err := checkOwner(current, ownerID); err != nil {
			return err
		}

		if err := history.Append(ctx, model.SnapshotOf(current)); err != nil {
			return fmt.Errorf("snapshot article: %w", err)
		}
		if update.Title != nil {
			current.Title = strings.TrimSpace(*update.Title)
		}
		if update.Content != nil {
			current.Content = *update.Content
		}
		if err := articles.Update(ctx, current); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: another article is titled %q", apperrors.ErrArticleExists, current.Title)
			}
			return fmt.Errorf("update article: %w", err)
		}
		article = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return article, nil
}

func (s *articleService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return s.articles.WithTransaction(ctx, func(ctx context.Context, articles repository.ArticleRepository, _ repository.ArticleHistoryRepository) error {
		current, err := articles.FindByIDForUpdate(ctx, id)
		if err != nil {
			return articleLookupError(err)
		}
		if err := checkOwner(current, ownerID); err != nil {
			return err
		}
		if err := articles.Delete(ctx, id); err != nil {
			return articleLookupError(err)
		}
		return nil
	})
}

func (s *articleService) History(ctx context.Context, ownerID, articleID uuid.UUID) ([]model.ArticleHistory, error) {
	if _, err := s.Get(ctx, ownerID, articleID); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByArticle(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

func (s *articleService) Random(ctx context.Context, ownerID uuid.UUID) (*model.Article, bool, error) {
	count, err := s.articles.CountByAuthor(ctx, ownerID)
	if err != nil {
		return nil, false, fmt.Errorf("count articles: %w", err)
	}
	if count == 0 {
		return nil, false, nil
	}

	article, err := s.articles.FindNthByAuthor(ctx, ownerID, rand.Intn(int(count)))
	if err != nil {
		// the pick was deleted between count and fetch
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("pick article: %w", err)
	}
	return article, true, nil
}

func articleLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrArticleNotFound
	}
	return fmt.Errorf("find article: %w", err)
}

func checkOwner(article *model.Article, ownerID uuid.UUID) error {
	if article.AuthorID != ownerID {
		return fmt.Errorf("%w: article belongs to another user", apperrors.ErrForbidden)
	}
	return nil
}
