package revision

import (
	"bytes"
	"html"

	"github.com/sergi/go-diff/diffmatchpatch"
	"vellum/internal/models"
)

// FieldDiff is the rendered difference of one field between two revisions.
type FieldDiff struct {
	Name string
	From string
	To   string
	Diff string
}

// DiffField computes an inline HTML diff of the named field between two
// revisions. A nil from revision diffs against the empty string, so the
// whole value shows up as an insertion.
func DiffField(from, to *models.Article, field string) (string, error) {
	var fromText string
	if from != nil {
		var err error
		fromText, err = from.Field(field)
		if err != nil {
			return "", err
		}
	}

	toText, err := to.Field(field)
	if err != nil {
		return "", err
	}

	return renderDiff(fromText, toText), nil
}

// FieldDiffs diffs every diffable field between two revisions, for the
// side-by-side diff view.
func FieldDiffs(from, to *models.Article) ([]FieldDiff, error) {
	diffs := make([]FieldDiff, 0, len(models.DiffableFields))
	for _, field := range models.DiffableFields {
		var fromText string
		if from != nil {
			var err error
			fromText, err = from.Field(field)
			if err != nil {
				return nil, err
			}
		}

		toText, err := to.Field(field)
		if err != nil {
			return nil, err
		}

		diffs = append(diffs, FieldDiff{
			Name: field,
			From: fromText,
			To:   toText,
			Diff: renderDiff(fromText, toText),
		})
	}
	return diffs, nil
}

func renderDiff(fromText, toText string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(fromText, toText, true)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var buff bytes.Buffer
	for _, diff := range diffs {
		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			buff.WriteString("<ins>")
			buff.WriteString(html.EscapeString(diff.Text))
			buff.WriteString("</ins>")
		case diffmatchpatch.DiffDelete:
			buff.WriteString("<del>")
			buff.WriteString(html.EscapeString(diff.Text))
			buff.WriteString("</del>")
		case diffmatchpatch.DiffEqual:
			buff.WriteString("<span>")
			buff.WriteString(html.EscapeString(diff.Text))
			buff.WriteString("</span>")
		}
	}
	return buff.String()
}
