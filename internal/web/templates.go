package web

import (
	"embed"
	"html/template"
)

//go:embed templates
var templateFiles embed.FS

// LoadTemplates builds one isolated template set per page, each sharing the
// common layout.
func LoadTemplates() map[string]*template.Template {
	pages := []string{
		"index.html",
		"view.html",
		"new.html",
		"edit.html",
		"history.html",
		"diff.html",
		"trash.html",
		"login.html",
	}

	templates := make(map[string]*template.Template)
	for _, page := range pages {
		templates[page] = template.Must(template.ParseFS(templateFiles,
			"templates/layout.html",
			"templates/"+page,
		))
	}
	return templates
}
