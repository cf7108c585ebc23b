package models

import (
	"errors"
	"time"
)

// ErrUnknownField is returned when a field accessor is asked for a field
// name that the article does not have.
var ErrUnknownField = errors.New("unknown article field")

// Article represents a single revision of a piece of content. All revisions
// of the same content share a CID; the VID identifies one revision.
type Article struct {
	VID         int64
	CID         string
	Title       string
	Slug        string
	Body        string
	LogMessage  string
	AuthorID    int
	ChangedAt   time.Time
	PublishedAt *time.Time
	IsTrash     bool
}

// DiffableFields lists the field names that can be read through Field,
// diffed between revisions, and tracked through a field history.
var DiffableFields = []string{"title", "slug", "body", "log_message"}

// Field returns the named text field of the article.
func (a *Article) Field(name string) (string, error) {
	switch name {
	case "title":
		return a.Title, nil
	case "slug":
		return a.Slug, nil
	case "body":
		return a.Body, nil
	case "log_message":
		return a.LogMessage, nil
	}
	return "", ErrUnknownField
}

// SetField sets the named text field of the article.
func (a *Article) SetField(name, value string) error {
	switch name {
	case "title":
		a.Title = value
	case "slug":
		a.Slug = value
	case "body":
		a.Body = value
	case "log_message":
		a.LogMessage = value
	default:
		return ErrUnknownField
	}
	return nil
}
