package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"wikishelf/internal/db"
	"wikishelf/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gormDB, err := db.Open("sqlite", filepath.Join(t.TempDir(), "repo.db")+"?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))
	t.Cleanup(func() { _ = db.Close(gormDB) })
	return gormDB
}

func createUser(t *testing.T, repo UserRepository, username, email string) *model.User {
	t.Helper()
	user := &model.User{Username: username, Email: email, PasswordHash: "hash"}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestUserRepository_UniqueAndLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	alice := createUser(t, repo, "alice", "alice@example.com")

	found, err := repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, found.ID)

	_, err = repo.FindByEmail(ctx, "ALICE@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	exists, err := repo.ExistsByUsernameOrEmail(ctx, "someone", "alice@example.com", uuid.Nil)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByUsernameOrEmail(ctx, "alice", "other@example.com", alice.ID)
	require.NoError(t, err)
	assert.False(t, exists, "the user itself is excluded")

	err = repo.Create(ctx, &model.User{Username: "alice2", Email: "alice@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestUserRepository_TouchLastLogin(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))
	user := createUser(t, repo, "bob", "bob@example.com")

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, repo.TouchLastLogin(ctx, user.ID, at))

	found, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, found.LastLoginAt)
	assert.True(t, at.Equal(*found.LastLoginAt))
}

func TestUserRepository_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	gormDB := newTestDB(t)
	users := NewUserRepository(gormDB)
	articles := NewArticleRepository(gormDB)
	history := NewArticleHistoryRepository(gormDB)

	owner := createUser(t, users, "carol", "carol@example.com")
	other := createUser(t, users, "dave", "dave@example.com")

	article := &model.Article{Title: "Go", Content: "<p>v1</p>", Lang: "en", AuthorID: owner.ID}
	require.NoError(t, articles.Create(ctx, article))
	require.NoError(t, history.Append(ctx, model.SnapshotOf(article)))
	kept := &model.Article{Title: "Go", Content: "<p>other</p>", Lang: "en", AuthorID: other.ID}
	require.NoError(t, articles.Create(ctx, kept))

	ok, err := users.ExistsByID(ctx, owner.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, users.Delete(ctx, owner.ID))

	ok, err = users.ExistsByID(ctx, owner.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = users.FindByID(ctx, owner.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = articles.FindByID(ctx, article.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	entries, err := history.ListByArticle(ctx, article.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = articles.FindByID(ctx, kept.ID)
	assert.NoError(t, err)

	assert.ErrorIs(t, users.Delete(ctx, owner.ID), gorm.ErrRecordNotFound)
}

func TestArticleRepository_UniquePerAuthorAndTitle(t *testing.T) {
	ctx := context.Background()
	gormDB := newTestDB(t)
	users := NewUserRepository(gormDB)
	articles := NewArticleRepository(gormDB)
	owner := createUser(t, users, "erin", "erin@example.com")

	require.NoError(t, articles.Create(ctx, &model.Article{Title: "Rust", Content: "a", Lang: "en", AuthorID: owner.ID}))
	err := articles.Create(ctx, &model.Article{Title: "Rust", Content: "b", Lang: "en", AuthorID: owner.ID})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	found, err := articles.FindByAuthorAndTitle(ctx, owner.ID, "Rust")
	require.NoError(t, err)
	assert.Equal(t, "a", found.Content)

	_, err = articles.FindByAuthorAndTitle(ctx, owner.ID, "rust")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestArticleRepository_ListCountNth(t *testing.T) {
	ctx := context.Background()
	gormDB := newTestDB(t)
	users := NewUserRepository(gormDB)
	articles := NewArticleRepository(gormDB)
	owner := createUser(t, users, "frank", "frank@example.com")
	other := createUser(t, users, "grace", "grace@example.com")

	list, err := articles.ListByAuthor(ctx, owner.ID)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	for _, title := range []string{"A", "B", "C"} {
		require.NoError(t, articles.Create(ctx, &model.Article{Title: title, Content: title, Lang: "en", AuthorID: owner.ID}))
	}
	require.NoError(t, articles.Create(ctx, &model.Article{Title: "Z", Content: "Z", Lang: "en", AuthorID: other.ID}))

	list, err = articles.ListByAuthor(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	count, err := articles.CountByAuthor(ctx, owner.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	seen := map[uuid.UUID]bool{}
	for i := 0; i < 3; i++ {
		a, err := articles.FindNthByAuthor(ctx, owner.ID, i)
		require.NoError(t, err)
		assert.Equal(t, owner.ID, a.AuthorID)
		seen[a.ID] = true
	}
	assert.Len(t, seen, 3)

	_, err = articles.FindNthByAuthor(ctx, owner.ID, 3)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestArticleRepository_TransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	gormDB := newTestDB(t)
	users := NewUserRepository(gormDB)
	articles := NewArticleRepository(gormDB)
	owner := createUser(t, users, "heidi", "heidi@example.com")

	article := &model.Article{Title: "Before", Content: "old", Lang: "en", AuthorID: owner.ID}
	require.NoError(t, articles.Create(ctx, article))

	boom := errors.New("boom")
	err := articles.WithTransaction(ctx, func(ctx context.Context, txArticles ArticleRepository, txHistory ArticleHistoryRepository) error {
		locked, err := txArticles.FindByIDForUpdate(ctx, article.ID)
		require.NoError(t, err)
		require.NoError(t, txHistory.Append(ctx, model.SnapshotOf(locked)))
		locked.Title = "After"
		require.NoError(t, txArticles.Update(ctx, locked))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	found, err := articles.FindByID(ctx, article.ID)
	require.NoError(t, err)
	assert.Equal(t, "Before", found.Title)

	entries, err := NewArticleHistoryRepository(gormDB).ListByArticle(ctx, article.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestArticleHistoryRepository_NewestFirst(t *testing.T) {
	ctx := context.Background()
	gormDB := newTestDB(t)
	users := NewUserRepository(gormDB)
	articles := NewArticleRepository(gormDB)
	history := NewArticleHistoryRepository(gormDB)
	owner := createUser(t, users, "ivan", "ivan@example.com")

	article := &model.Article{Title: "T", Content: "v1", Lang: "en", AuthorID: owner.ID}
	require.NoError(t, articles.Create(ctx, article))

	for _, content := range []string{"v1", "v2", "v3"} {
		article.Content = content
		require.NoError(t, history.Append(ctx, model.SnapshotOf(article)))
	}

	entries, err := history.ListByArticle(ctx, article.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "v3", entries[0].Content)
	assert.EqualValues(t, 3, entries[0].Version)
	assert.Equal(t, "v1", entries[2].Content)
	assert.EqualValues(t, 1, entries[2].Version)
}

func TestArticleRepository_DeleteMissing(t *testing.T) {
	repo := NewArticleRepository(newTestDB(t))
	assert.ErrorIs(t, repo.Delete(context.Background(), uuid.New()), gorm.ErrRecordNotFound)
}

func TestNormalize(t *testing.T) {
	assert.NoError(t, normalize(nil))
	assert.ErrorIs(t, normalize(errors.New("UNIQUE constraint failed: users.email")), gorm.ErrDuplicatedKey)
	assert.ErrorIs(t, normalize(errors.New("Error 1062: Duplicate entry 'x' for key 'idx'")), gorm.ErrDuplicatedKey)
	other := errors.New("disk full")
	assert.Equal(t, other, normalize(other))
}
