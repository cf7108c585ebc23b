package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArticleField(t *testing.T) {
	a := &Article{Title: "Title", Slug: "slug", Body: "body", LogMessage: "log"}

	for _, field := range DiffableFields {
		value, err := a.Field(field)
		require.NoError(t, err)
		assert.NotEmpty(t, value)
	}

	_, err := a.Field("flavour")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestArticleSetField(t *testing.T) {
	a := &Article{}

	require.NoError(t, a.SetField("title", "New Title"))
	assert.Equal(t, "New Title", a.Title)

	err := a.SetField("flavour", "x")
	assert.ErrorIs(t, err, ErrUnknownField)
}
