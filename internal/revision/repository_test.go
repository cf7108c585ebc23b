package revision

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vellum/internal/database"
	"vellum/internal/models"
)

func setupRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// An in-memory SQLite database lives and dies with its connection.
	db.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	_, err = db.Exec("INSERT INTO users (username, display_name) VALUES ('alice', 'Alice')")
	require.NoError(t, err)

	return NewRepository(db)
}

func seedArticle(t *testing.T, repo *Repository, title, slug, body string) *models.Article {
	t.Helper()

	article, err := repo.Revise(context.Background(), &models.Article{
		Title:    title,
		Slug:     slug,
		Body:     body,
		AuthorID: 1,
	})
	require.NoError(t, err)
	return article
}

func countRows(t *testing.T, repo *Repository) int {
	t.Helper()

	var count int
	require.NoError(t, repo.DB.QueryRow("SELECT COUNT(*) FROM articles").Scan(&count))
	return count
}

func TestReviseNewArticle(t *testing.T) {
	repo := setupRepo(t)

	article := seedArticle(t, repo, "First", "first", "body")

	assert.NotZero(t, article.VID)
	assert.NotEmpty(t, article.CID)
	assert.Equal(t, 1, countRows(t, repo))
}

func TestReviseAppendsAndNeverMutates(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	first := seedArticle(t, repo, "First", "first", "original body")
	firstVID := first.VID

	edited := *first
	edited.Body = "edited body"
	second, err := repo.Revise(ctx, &edited)
	require.NoError(t, err)

	assert.Equal(t, 2, countRows(t, repo))
	assert.Greater(t, second.VID, firstVID)
	assert.Equal(t, first.CID, second.CID)

	// The original row is untouched.
	original, err := repo.Find(ctx, firstVID)
	require.NoError(t, err)
	assert.Equal(t, "original body", original.Body)
}

func TestRevisionsAreStrictlyOrdered(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	article := seedArticle(t, repo, "First", "first", "v1")
	for i := 0; i < 4; i++ {
		var err error
		article, err = repo.Revise(ctx, article)
		require.NoError(t, err)
	}

	bundle, err := repo.Revisions(ctx, article)
	require.NoError(t, err)
	require.Len(t, bundle.Revisions, 5)

	for i := 1; i < len(bundle.Revisions); i++ {
		assert.Greater(t, bundle.Revisions[i].VID, bundle.Revisions[i-1].VID)
	}
}

func TestRevisionsPrevNext(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	first := seedArticle(t, repo, "First", "first", "v1")

	mid := *first
	mid.Body = "v2"
	second, err := repo.Revise(ctx, &mid)
	require.NoError(t, err)

	newest := *second
	newest.Body = "v3"
	third, err := repo.Revise(ctx, &newest)
	require.NoError(t, err)

	bundle, err := repo.Revisions(ctx, second)
	require.NoError(t, err)
	require.NotNil(t, bundle.Prev)
	require.NotNil(t, bundle.Next)
	assert.Equal(t, first.VID, bundle.Prev.VID)
	assert.Equal(t, third.VID, bundle.Next.VID)

	// Boundaries have no neighbour.
	bundle, err = repo.Revisions(ctx, first)
	require.NoError(t, err)
	assert.Nil(t, bundle.Prev)
	require.NotNil(t, bundle.Next)
	assert.Equal(t, second.VID, bundle.Next.VID)

	bundle, err = repo.Revisions(ctx, third)
	require.NoError(t, err)
	assert.Nil(t, bundle.Next)
	require.NotNil(t, bundle.Prev)
	assert.Equal(t, second.VID, bundle.Prev.VID)
}

func TestRevisionsChangedAtComparator(t *testing.T) {
	repo := setupRepo(t)
	cfg := DefaultConfig()
	cfg.Comparator = "changed_at"
	repo = NewRepositoryWithConfig(repo.DB, cfg)
	ctx := context.Background()

	first := seedArticle(t, repo, "First", "first", "v1")
	time.Sleep(2 * time.Millisecond)

	edited := *first
	edited.Body = "v2"
	second, err := repo.Revise(ctx, &edited)
	require.NoError(t, err)

	bundle, err := repo.Revisions(ctx, second)
	require.NoError(t, err)
	require.Len(t, bundle.Revisions, 2)
	require.NotNil(t, bundle.Prev)
	assert.Equal(t, first.VID, bundle.Prev.VID)
	assert.Nil(t, bundle.Next)
}

func TestLatestRevision(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	first := seedArticle(t, repo, "First", "first", "v1")
	second, err := repo.Revise(ctx, first)
	require.NoError(t, err)

	latest, err := repo.LatestRevision(ctx, first.CID)
	require.NoError(t, err)
	assert.Equal(t, second.VID, latest.VID)

	isLatest, err := repo.IsLatest(ctx, first)
	require.NoError(t, err)
	assert.False(t, isLatest)

	isLatest, err = repo.IsLatest(ctx, second)
	require.NoError(t, err)
	assert.True(t, isLatest)
}

func TestLatestListsOneRevisionPerBundle(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	first := seedArticle(t, repo, "First", "first", "v1")
	_, err := repo.Revise(ctx, first)
	require.NoError(t, err)
	seedArticle(t, repo, "Second", "second", "v1")

	articles, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.Len(t, articles, 2)
}

func TestLatestHidesTrashedBundles(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	first := seedArticle(t, repo, "First", "first", "v1")
	seedArticle(t, repo, "Second", "second", "v1")

	require.NoError(t, repo.Trash(ctx, first))

	articles, err := repo.Latest(ctx)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "second", articles[0].Slug)

	trashed, err := repo.Trashed(ctx)
	require.NoError(t, err)
	require.Len(t, trashed, 1)
	assert.Equal(t, "first", trashed[0].Slug)
}

func TestRevertTo(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	first := seedArticle(t, repo, "First", "first", "good body")

	edited := *first
	edited.Body = "bad body"
	edited.LogMessage = "broke it"
	second, err := repo.Revise(ctx, &edited)
	require.NoError(t, err)

	reverted, err := repo.RevertTo(ctx, second, first.VID)
	require.NoError(t, err)

	assert.Equal(t, 3, countRows(t, repo))
	assert.Equal(t, "good body", reverted.Body)
	assert.Equal(t, first.CID, reverted.CID)
	assert.Empty(t, reverted.LogMessage)

	isLatest, err := repo.IsLatest(ctx, reverted)
	require.NoError(t, err)
	assert.True(t, isLatest)

	// The reverted-to revision itself is untouched.
	target, err := repo.Find(ctx, first.VID)
	require.NoError(t, err)
	assert.Equal(t, "good body", target.Body)
}

func TestRevertToOutsideBundle(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	first := seedArticle(t, repo, "First", "first", "v1")
	other := seedArticle(t, repo, "Second", "second", "v1")

	_, err := repo.RevertTo(ctx, first, other.VID)
	assert.ErrorIs(t, err, ErrNotInBundle)
	assert.Equal(t, 2, countRows(t, repo))
}

func TestRevertToMissingRevision(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	first := seedArticle(t, repo, "First", "first", "v1")

	_, err := repo.RevertTo(ctx, first, 9999)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRevertToDate(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	jan := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	first, err := repo.Revise(ctx, &models.Article{
		Title: "First", Slug: "first", Body: "january", AuthorID: 1, PublishedAt: &jan,
	})
	require.NoError(t, err)

	edited := *first
	edited.Body = "march"
	edited.PublishedAt = &mar
	second, err := repo.Revise(ctx, &edited)
	require.NoError(t, err)

	// A date between the two publications resolves to the January one.
	cutoff := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	reverted, err := repo.RevertToDate(ctx, second, cutoff)
	require.NoError(t, err)
	assert.Equal(t, "january", reverted.Body)

	// A date after both picks the newest qualifying revision.
	reverted, err = repo.RevertToDate(ctx, reverted, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "march", reverted.Body)
}

func TestRevertToDateUnconfigured(t *testing.T) {
	repo := setupRepo(t)
	cfg := DefaultConfig()
	cfg.PublicationDate = ""
	repo = NewRepositoryWithConfig(repo.DB, cfg)
	ctx := context.Background()

	first := seedArticle(t, repo, "First", "first", "v1")

	_, err := repo.RevertToDate(ctx, first, time.Now())
	assert.ErrorIs(t, err, ErrNoPublicationDate)
}

func TestBundleScopedUniqueness(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	first := seedArticle(t, repo, "First", "shared-slug", "v1")

	// The same slug in the same bundle is fine.
	_, err := repo.Revise(ctx, first)
	require.NoError(t, err)

	// The same slug in a different bundle is a conflict.
	_, err = repo.Revise(ctx, &models.Article{
		Title: "Imposter", Slug: "shared-slug", Body: "v1", AuthorID: 1,
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 2, countRows(t, repo))
}

func TestTrashKeepsRows(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	first := seedArticle(t, repo, "First", "first", "v1")
	second, err := repo.Revise(ctx, first)
	require.NoError(t, err)

	require.NoError(t, repo.Trash(ctx, second))

	bundle, err := repo.Revisions(ctx, second)
	require.NoError(t, err)
	require.Len(t, bundle.Revisions, 2)
	for _, rev := range bundle.Revisions {
		assert.True(t, rev.IsTrash)
	}
}

func TestRestore(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	first := seedArticle(t, repo, "First", "first", "v1")
	require.NoError(t, repo.Trash(ctx, first))
	require.NoError(t, repo.Restore(ctx, first))

	articles, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.Len(t, articles, 1)
}

func TestDeletePermanently(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	first := seedArticle(t, repo, "First", "first", "v1")
	_, err := repo.Revise(ctx, first)
	require.NoError(t, err)
	other := seedArticle(t, repo, "Second", "second", "v1")

	require.NoError(t, repo.DeletePermanently(ctx, first))

	// Every revision of the bundle is gone; other bundles survive.
	assert.Equal(t, 1, countRows(t, repo))
	_, err = repo.Find(ctx, other.VID)
	assert.NoError(t, err)
}

func TestAmendRewritesInPlace(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	first := seedArticle(t, repo, "First", "first", "v1")

	first.Body = "v1 with a typo fixed"
	require.NoError(t, repo.Amend(ctx, first))

	assert.Equal(t, 1, countRows(t, repo))

	stored, err := repo.Find(ctx, first.VID)
	require.NoError(t, err)
	assert.Equal(t, "v1 with a typo fixed", stored.Body)
}

func TestAmendUnpersisted(t *testing.T) {
	repo := setupRepo(t)

	err := repo.Amend(context.Background(), &models.Article{Title: "x", Slug: "x"})
	assert.ErrorIs(t, err, ErrNotPersisted)
}

func TestMakeCurrent(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	first := seedArticle(t, repo, "First", "first", "v1")

	edited := *first
	edited.Body = "v2"
	second, err := repo.Revise(ctx, &edited)
	require.NoError(t, err)

	// Already the latest: nothing happens.
	current, err := repo.MakeCurrent(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, second.VID, current.VID)
	assert.Equal(t, 2, countRows(t, repo))

	// Superseded: the old values come back as a new revision.
	current, err = repo.MakeCurrent(ctx, first)
	require.NoError(t, err)
	assert.Greater(t, current.VID, second.VID)
	assert.Equal(t, "v1", current.Body)
	assert.Equal(t, 3, countRows(t, repo))
}

func TestFieldHistory(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	first := seedArticle(t, repo, "Old Title", "first", "v1")

	edited := *first
	edited.Title = "New Title"
	second, err := repo.Revise(ctx, &edited)
	require.NoError(t, err)

	history, err := repo.FieldHistory(ctx, second, "title")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Old Title", history[0].Value)
	assert.Equal(t, "New Title", history[1].Value)
	assert.Equal(t, first.VID, history[0].Revision.VID)
}

func TestFieldHistoryUnknownField(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	first := seedArticle(t, repo, "First", "first", "v1")

	_, err := repo.FieldHistory(ctx, first, "flavour")
	assert.ErrorIs(t, err, models.ErrUnknownField)
}

func TestHistoryJoinsAuthors(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	first := seedArticle(t, repo, "First", "first", "v1")
	_, err := repo.Revise(ctx, first)
	require.NoError(t, err)

	entries, err := repo.History(ctx, first.CID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Newest first.
	assert.Greater(t, entries[0].VID, entries[1].VID)
	assert.Equal(t, "Alice", entries[0].Author)
}
