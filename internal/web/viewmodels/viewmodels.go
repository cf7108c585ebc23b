package viewmodels

import (
	"html/template"
	"time"

	"vellum/internal/models"
)

// RevisionViewModel combines revision and author information for display.
type RevisionViewModel struct {
	VID        int64
	ChangedAt  time.Time
	Author     string
	LogMessage string
	IsLatest   bool
}

// FieldDiffViewModel is one field's rendered diff on the diff page.
type FieldDiffViewModel struct {
	Name string
	From string
	To   string
	Diff template.HTML
}

// PageData is a unified struct to hold all possible data for any page.
type PageData struct {
	Articles    []models.Article
	Article     models.Article
	Revisions   []RevisionViewModel
	Diffs       []FieldDiffViewModel
	Content     template.HTML
	CurrentUser *models.User
	IsLoggedIn  bool
}
