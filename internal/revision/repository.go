package revision

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"vellum/internal/models"
)

var (
	// ErrNotInBundle is returned when a revert target does not belong to
	// the same content bundle as the current article.
	ErrNotInBundle = errors.New("revision is not part of the content bundle")

	// ErrNoPublicationDate is returned when a date-based revert is
	// attempted without a configured publication date column.
	ErrNoPublicationDate = errors.New("no publication date column configured for date-based revert")

	// ErrConflict is returned when a bundle-scoped unique field holds a
	// value that another bundle already uses. It plays the role of a
	// store-level integrity error for constraints the store cannot check.
	ErrConflict = errors.New("bundle-scoped unique constraint violated")

	// ErrNotPersisted is returned when an operation that needs a stored
	// row is called on an article that has never been saved.
	ErrNotPersisted = errors.New("article has not been persisted")
)

// comparatorColumns are the columns allowed to order revisions within a
// bundle. Both are strictly increasing across revisions of a bundle: vid by
// AUTOINCREMENT, changed_at because every insert stamps it.
var comparatorColumns = map[string]bool{
	"vid":        true,
	"changed_at": true,
}

// fieldColumns maps field names to their columns for bundle-scoped
// uniqueness checks.
var fieldColumns = map[string]string{
	"title":       "title",
	"slug":        "slug",
	"body":        "body",
	"log_message": "log_message",
}

// Config controls how a repository versions its articles.
type Config struct {
	// Comparator is the column that orders revisions within a bundle,
	// either "vid" or "changed_at".
	Comparator string

	// PublicationDate is the column resolved against by date-based
	// reverts. Empty means date-based reverts are not available.
	PublicationDate string

	// UniqueFields are field names whose values must be unique across
	// bundles (revisions within one bundle naturally repeat them).
	UniqueFields []string

	// ClearEachRevision are per-revision fields emptied whenever an
	// existing revision is cloned forward, like an edit summary.
	ClearEachRevision []string
}

// DefaultConfig returns the configuration used by the admin interface.
func DefaultConfig() Config {
	return Config{
		Comparator:        "vid",
		PublicationDate:   "published_at",
		UniqueFields:      []string{"slug"},
		ClearEachRevision: []string{"log_message"},
	}
}

// Bundle is the ordered revision history of one piece of content, seen from
// one of its revisions.
type Bundle struct {
	// Revisions holds every revision of the bundle in comparator order,
	// oldest first.
	Revisions []models.Article

	// Prev is the revision with the greatest comparator strictly below
	// the current one, nil at the start of the history.
	Prev *models.Article

	// Next is the revision with the least comparator strictly above the
	// current one, nil at the end of the history.
	Next *models.Article
}

// FieldVersion is one step in the history of a single field.
type FieldVersion struct {
	Value    string
	Revision models.Article
}

// HistoryEntry pairs a revision with its author's display name.
type HistoryEntry struct {
	models.Article
	Author string
}

// Repository provides access to the article revision storage.
type Repository struct {
	DB     *sql.DB
	Config Config
}

// NewRepository creates a new article repository with the default
// versioning configuration.
func NewRepository(db *sql.DB) *Repository {
	return NewRepositoryWithConfig(db, DefaultConfig())
}

// NewRepositoryWithConfig creates a new article repository. An unknown
// comparator column falls back to the primary key.
func NewRepositoryWithConfig(db *sql.DB, cfg Config) *Repository {
	if !comparatorColumns[cfg.Comparator] {
		cfg.Comparator = "vid"
	}
	return &Repository{DB: db, Config: cfg}
}

const articleColumns = "vid, cid, title, slug, body, log_message, author_id, changed_at, published_at, is_trash"

func scanArticle(row interface{ Scan(...any) error }) (models.Article, error) {
	var a models.Article
	err := row.Scan(&a.VID, &a.CID, &a.Title, &a.Slug, &a.Body, &a.LogMessage,
		&a.AuthorID, &a.ChangedAt, &a.PublishedAt, &a.IsTrash)
	return a, err
}

// Find returns the revision with the given primary key.
func (r *Repository) Find(ctx context.Context, vid int64) (*models.Article, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+articleColumns+" FROM articles WHERE vid = ?", vid)
	a, err := scanArticle(row)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Revisions returns the full revision history of a's bundle in comparator
// order, along with a's immediate neighbours.
func (r *Repository) Revisions(ctx context.Context, a *models.Article) (*Bundle, error) {
	if a.VID == 0 {
		return nil, ErrNotPersisted
	}

	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+articleColumns+" FROM articles WHERE cid = ? ORDER BY "+r.Config.Comparator+" ASC", a.CID)
	if err != nil {
		return nil, fmt.Errorf("error listing revisions: %w", err)
	}
	defer rows.Close()

	bundle := &Bundle{}
	for rows.Next() {
		rev, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		bundle.Revisions = append(bundle.Revisions, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Neighbours: previous is the greatest comparator strictly below the
	// current one, next is the least strictly above it.
	for i := range bundle.Revisions {
		rev := &bundle.Revisions[i]
		if r.less(rev, a) {
			bundle.Prev = rev
		}
		if r.less(a, rev) && bundle.Next == nil {
			bundle.Next = rev
		}
	}

	return bundle, nil
}

// less compares two revisions by the configured comparator.
func (r *Repository) less(a, b *models.Article) bool {
	if r.Config.Comparator == "changed_at" {
		return a.ChangedAt.Before(b.ChangedAt)
	}
	return a.VID < b.VID
}

// LatestRevision returns the newest revision of the given bundle.
func (r *Repository) LatestRevision(ctx context.Context, cid string) (*models.Article, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+articleColumns+" FROM articles WHERE cid = ? ORDER BY "+r.Config.Comparator+" DESC LIMIT 1", cid)
	a, err := scanArticle(row)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// IsLatest reports whether a is the newest revision of its bundle.
func (r *Repository) IsLatest(ctx context.Context, a *models.Article) (bool, error) {
	latest, err := r.LatestRevision(ctx, a.CID)
	if err != nil {
		return false, err
	}
	return latest.VID == a.VID, nil
}

// Latest returns the newest revision of every bundle that is not in the
// trash, most recently changed first.
func (r *Repository) Latest(ctx context.Context) ([]models.Article, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles
		 WHERE is_trash = 0
		   AND `+r.Config.Comparator+` = (SELECT MAX(a2.`+r.Config.Comparator+`) FROM articles a2 WHERE a2.cid = articles.cid)
		 ORDER BY changed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("error listing latest revisions: %w", err)
	}
	defer rows.Close()

	var articles []models.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// Trashed returns the newest revision of every bundle in the trash.
func (r *Repository) Trashed(ctx context.Context) ([]models.Article, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles
		 WHERE is_trash = 1
		   AND `+r.Config.Comparator+` = (SELECT MAX(a2.`+r.Config.Comparator+`) FROM articles a2 WHERE a2.cid = articles.cid)
		 ORDER BY changed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("error listing trashed revisions: %w", err)
	}
	defer rows.Close()

	var articles []models.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// History returns the bundle's revisions newest first, joined with their
// authors, for the revision history view.
func (r *Repository) History(ctx context.Context, cid string) ([]HistoryEntry, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+articleColumns+`, COALESCE(users.display_name, '') FROM articles
		 LEFT JOIN users ON users.id = articles.author_id
		 WHERE cid = ? ORDER BY articles.`+r.Config.Comparator+` DESC`, cid)
	if err != nil {
		return nil, fmt.Errorf("error listing revision history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		err := rows.Scan(&e.VID, &e.CID, &e.Title, &e.Slug, &e.Body, &e.LogMessage,
			&e.AuthorID, &e.ChangedAt, &e.PublishedAt, &e.IsTrash, &e.Author)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// FieldHistory returns every value the named field has held across the
// bundle, oldest first.
func (r *Repository) FieldHistory(ctx context.Context, a *models.Article, field string) ([]FieldVersion, error) {
	if _, err := a.Field(field); err != nil {
		return nil, err
	}

	bundle, err := r.Revisions(ctx, a)
	if err != nil {
		return nil, err
	}

	history := make([]FieldVersion, 0, len(bundle.Revisions))
	for _, rev := range bundle.Revisions {
		value, err := rev.Field(field)
		if err != nil {
			return nil, err
		}
		history = append(history, FieldVersion{Value: value, Revision: rev})
	}
	return history, nil
}

// Revise persists a as a new revision. An article that has never been
// saved gets a fresh bundle id and becomes the first revision of a new
// bundle; a persisted one is appended as the bundle's new latest revision.
// Existing rows are never touched.
func (r *Repository) Revise(ctx context.Context, a *models.Article) (*models.Article, error) {
	if err := r.validateBundle(ctx, a); err != nil {
		return nil, err
	}

	if a.VID == 0 {
		if a.CID == "" {
			a.CID = uuid.NewString()
		}
		return r.insert(ctx, a)
	}

	dup := *a
	dup.VID = 0
	return r.insert(ctx, &dup)
}

// Amend rewrites a's own revision row in place instead of creating a new
// one, for small changes that are not worth a history entry.
func (r *Repository) Amend(ctx context.Context, a *models.Article) error {
	if a.VID == 0 {
		return ErrNotPersisted
	}
	if err := r.validateBundle(ctx, a); err != nil {
		return err
	}

	a.ChangedAt = time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		`UPDATE articles SET title = ?, slug = ?, body = ?, log_message = ?, published_at = ?, changed_at = ?
		 WHERE vid = ?`,
		a.Title, a.Slug, a.Body, a.LogMessage, a.PublishedAt, a.ChangedAt, a.VID)
	if err != nil {
		return fmt.Errorf("error amending revision: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MakeCurrent re-appends a's values as the bundle's latest revision if a
// has been superseded, and does nothing if a is already the latest.
func (r *Repository) MakeCurrent(ctx context.Context, a *models.Article) (*models.Article, error) {
	latest, err := r.IsLatest(ctx, a)
	if err != nil {
		return nil, err
	}
	if latest {
		return a, nil
	}
	return r.clone(ctx, a)
}

// RevertTo makes the revision with the given primary key the bundle's new
// latest revision by cloning it forward. The target must belong to a's
// bundle.
func (r *Repository) RevertTo(ctx context.Context, a *models.Article, vid int64) (*models.Article, error) {
	target, err := r.Find(ctx, vid)
	if err != nil {
		return nil, err
	}
	return r.RevertToRevision(ctx, a, target)
}

// RevertToRevision clones an already-resolved revision forward as the
// bundle's new latest revision.
func (r *Repository) RevertToRevision(ctx context.Context, a, target *models.Article) (*models.Article, error) {
	if target.CID != a.CID || target.CID == "" {
		return nil, ErrNotInBundle
	}
	return r.clone(ctx, target)
}

// RevertToDate reverts to the newest revision of the bundle published on
// or before the given date. It requires a configured publication date
// column.
func (r *Repository) RevertToDate(ctx context.Context, a *models.Article, date time.Time) (*models.Article, error) {
	if r.Config.PublicationDate == "" {
		return nil, ErrNoPublicationDate
	}

	row := r.DB.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles
		 WHERE cid = ? AND `+r.Config.PublicationDate+` IS NOT NULL AND `+r.Config.PublicationDate+` <= ?
		 ORDER BY `+r.Config.Comparator+` DESC LIMIT 1`, a.CID, date)
	target, err := scanArticle(row)
	if err != nil {
		return nil, err
	}
	return r.RevertToRevision(ctx, a, &target)
}

// Trash marks every revision of a's bundle as trashed. No rows are
// removed; the bundle is merely hidden until restored.
func (r *Repository) Trash(ctx context.Context, a *models.Article) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE articles SET is_trash = 1 WHERE cid = ?", a.CID)
	return err
}

// Restore takes every revision of a's bundle back out of the trash.
func (r *Repository) Restore(ctx context.Context, a *models.Article) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE articles SET is_trash = 0 WHERE cid = ?", a.CID)
	return err
}

// DeletePermanently irreversibly removes every revision of a's bundle.
func (r *Repository) DeletePermanently(ctx context.Context, a *models.Article) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM articles WHERE cid = ?", a.CID)
	return err
}

// clone appends a copy of target as the bundle's new latest revision,
// emptying the per-revision fields.
func (r *Repository) clone(ctx context.Context, target *models.Article) (*models.Article, error) {
	dup := *target
	dup.VID = 0
	for _, field := range r.Config.ClearEachRevision {
		if err := dup.SetField(field, ""); err != nil {
			return nil, err
		}
	}
	if err := r.validateBundle(ctx, &dup); err != nil {
		return nil, err
	}
	return r.insert(ctx, &dup)
}

// insert writes a as a fresh row with a new primary key and timestamp.
func (r *Repository) insert(ctx context.Context, a *models.Article) (*models.Article, error) {
	a.ChangedAt = time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO articles (cid, title, slug, body, log_message, author_id, changed_at, published_at, is_trash)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.CID, a.Title, a.Slug, a.Body, a.LogMessage, a.AuthorID, a.ChangedAt, a.PublishedAt, a.IsTrash)
	if err != nil {
		return nil, fmt.Errorf("error creating revision: %w", err)
	}

	vid, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	a.VID = vid
	return a, nil
}

// validateBundle checks the bundle-scoped unique fields. A unique field's
// value may repeat freely within a's own bundle but must not appear in any
// other bundle, which a store-level UNIQUE constraint cannot express.
func (r *Repository) validateBundle(ctx context.Context, a *models.Article) error {
	for _, field := range r.Config.UniqueFields {
		column, ok := fieldColumns[field]
		if !ok {
			return models.ErrUnknownField
		}

		value, err := a.Field(field)
		if err != nil {
			return err
		}

		var count int
		err = r.DB.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM articles WHERE "+column+" = ? AND cid <> ?",
			value, a.CID).Scan(&count)
		if err != nil {
			return fmt.Errorf("error checking bundle uniqueness: %w", err)
		}
		if count > 0 {
			return fmt.Errorf("%w: %s %q is already used by another article", ErrConflict, field, value)
		}
	}
	return nil
}
