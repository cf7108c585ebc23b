package controller

import (
	"database/sql"
	"errors"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/niklasfasching/go-org/org"
	"vellum/internal/models"
	"vellum/internal/revision"
	"vellum/internal/web/renderer"
	"vellum/internal/web/viewmodels"
)

// Article provides article handlers
type Article struct {
	Repo      *revision.Repository
	Templates map[string]*template.Template
}

// Register registers the article routes
func (a *Article) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", a.index)
	mux.HandleFunc("GET /new", a.new)
	mux.HandleFunc("POST /new", a.create)
	mux.HandleFunc("GET /article/{cid}", a.view)
	mux.HandleFunc("GET /article/{cid}/edit", a.edit)
	mux.HandleFunc("POST /article/{cid}/edit", a.save)
	mux.HandleFunc("GET /article/{cid}/history", a.history)
	mux.HandleFunc("GET /article/{cid}/diff/{vid}", a.diff)
	mux.HandleFunc("POST /article/{cid}/revert/{vid}", a.revert)
	mux.HandleFunc("POST /article/{cid}/trash", a.trash)
	mux.HandleFunc("POST /article/{cid}/restore", a.restore)
	mux.HandleFunc("POST /article/{cid}/destroy", a.destroy)
	mux.HandleFunc("GET /trash", a.trashIndex)
}

func (a *Article) index(w http.ResponseWriter, r *http.Request) {
	articles, err := a.Repo.Latest(r.Context())
	if err != nil {
		log.Println(err)
		http.Error(w, "Internal Server Error", 500)
		return
	}

	user, _ := r.Context().Value("user").(*models.User)
	data := viewmodels.PageData{
		Articles:    articles,
		CurrentUser: user,
		IsLoggedIn:  user != nil,
	}

	err = a.Templates["index.html"].ExecuteTemplate(w, "layout.html", data)
	if err != nil {
		log.Println(err)
	}
}

func (a *Article) view(w http.ResponseWriter, r *http.Request) {
	article, ok := a.latest(w, r)
	if !ok {
		return
	}

	htmlContentString, err := org.New().Parse(strings.NewReader(article.Body), "").Write(renderer.NewHTMLWriterWithChroma())
	if err != nil {
		log.Printf("Error converting org-mode content to HTML: %v", err)
		http.Error(w, "Internal Server Error", 500)
		return
	}

	user, _ := r.Context().Value("user").(*models.User)
	data := viewmodels.PageData{
		Article:     *article,
		Content:     template.HTML(htmlContentString),
		CurrentUser: user,
		IsLoggedIn:  user != nil,
	}

	err = a.Templates["view.html"].ExecuteTemplate(w, "layout.html", data)
	if err != nil {
		log.Println(err)
	}
}

func (a *Article) new(w http.ResponseWriter, r *http.Request) {
	user, _ := r.Context().Value("user").(*models.User)
	data := viewmodels.PageData{
		CurrentUser: user,
		IsLoggedIn:  user != nil,
	}

	err := a.Templates["new.html"].ExecuteTemplate(w, "layout.html", data)
	if err != nil {
		log.Println(err)
	}
}

func (a *Article) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	user, _ := r.Context().Value("user").(*models.User)
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	article := &models.Article{
		Title:      r.PostFormValue("title"),
		Slug:       r.PostFormValue("slug"),
		Body:       r.PostFormValue("body"),
		LogMessage: r.PostFormValue("log_message"),
		AuthorID:   user.ID,
	}
	if published := parseDate(r.PostFormValue("published_at")); published != nil {
		article.PublishedAt = published
	}

	created, err := a.Repo.Revise(r.Context(), article)
	if err != nil {
		if errors.Is(err, revision.ErrConflict) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		log.Printf("Error creating article: %v", err)
		http.Error(w, "Internal Server Error", 500)
		return
	}

	http.Redirect(w, r, "/article/"+created.CID, http.StatusSeeOther)
}

func (a *Article) edit(w http.ResponseWriter, r *http.Request) {
	article, ok := a.latest(w, r)
	if !ok {
		return
	}

	// Per-revision fields start out empty on every edit.
	for _, field := range a.Repo.Config.ClearEachRevision {
		article.SetField(field, "")
	}

	user, _ := r.Context().Value("user").(*models.User)
	data := viewmodels.PageData{
		Article:     *article,
		CurrentUser: user,
		IsLoggedIn:  user != nil,
	}

	err := a.Templates["edit.html"].ExecuteTemplate(w, "layout.html", data)
	if err != nil {
		log.Println(err)
	}
}

func (a *Article) save(w http.ResponseWriter, r *http.Request) {
	article, ok := a.latest(w, r)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	user, _ := r.Context().Value("user").(*models.User)
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	article.Title = r.PostFormValue("title")
	article.Slug = r.PostFormValue("slug")
	article.Body = r.PostFormValue("body")
	article.LogMessage = r.PostFormValue("log_message")
	article.AuthorID = user.ID
	article.PublishedAt = parseDate(r.PostFormValue("published_at"))

	// A small change rewrites the current revision in place; everything
	// else appends a new one.
	var err error
	if r.PostFormValue("small_change") != "" {
		err = a.Repo.Amend(r.Context(), article)
	} else {
		_, err = a.Repo.Revise(r.Context(), article)
	}
	if err != nil {
		if errors.Is(err, revision.ErrConflict) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		log.Printf("Error saving revision: %v", err)
		http.Error(w, "Internal Server Error", 500)
		return
	}

	http.Redirect(w, r, "/article/"+article.CID, http.StatusSeeOther)
}

func (a *Article) history(w http.ResponseWriter, r *http.Request) {
	article, ok := a.latest(w, r)
	if !ok {
		return
	}

	entries, err := a.Repo.History(r.Context(), article.CID)
	if err != nil {
		log.Println(err)
		http.Error(w, "Internal Server Error", 500)
		return
	}

	revisions := make([]viewmodels.RevisionViewModel, 0, len(entries))
	for _, entry := range entries {
		revisions = append(revisions, viewmodels.RevisionViewModel{
			VID:        entry.VID,
			ChangedAt:  entry.ChangedAt,
			Author:     entry.Author,
			LogMessage: entry.LogMessage,
			IsLatest:   entry.VID == article.VID,
		})
	}

	user, _ := r.Context().Value("user").(*models.User)
	data := viewmodels.PageData{
		Article:     *article,
		Revisions:   revisions,
		CurrentUser: user,
		IsLoggedIn:  user != nil,
	}

	err = a.Templates["history.html"].ExecuteTemplate(w, "layout.html", data)
	if err != nil {
		log.Println(err)
	}
}

func (a *Article) diff(w http.ResponseWriter, r *http.Request) {
	cid := r.PathValue("cid")

	vid, err := strconv.ParseInt(r.PathValue("vid"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid revision", http.StatusBadRequest)
		return
	}

	article, err := a.Repo.Find(r.Context(), vid)
	if err != nil || article.CID != cid {
		http.NotFound(w, r)
		return
	}

	bundle, err := a.Repo.Revisions(r.Context(), article)
	if err != nil {
		log.Println(err)
		http.Error(w, "Internal Server Error", 500)
		return
	}

	fieldDiffs, err := revision.FieldDiffs(bundle.Prev, article)
	if err != nil {
		log.Println(err)
		http.Error(w, "Internal Server Error", 500)
		return
	}

	diffs := make([]viewmodels.FieldDiffViewModel, 0, len(fieldDiffs))
	for _, d := range fieldDiffs {
		diffs = append(diffs, viewmodels.FieldDiffViewModel{
			Name: d.Name,
			From: d.From,
			To:   d.To,
			Diff: template.HTML(d.Diff),
		})
	}

	user, _ := r.Context().Value("user").(*models.User)
	data := viewmodels.PageData{
		Article:     *article,
		Diffs:       diffs,
		CurrentUser: user,
		IsLoggedIn:  user != nil,
	}

	err = a.Templates["diff.html"].ExecuteTemplate(w, "layout.html", data)
	if err != nil {
		log.Println(err)
	}
}

func (a *Article) revert(w http.ResponseWriter, r *http.Request) {
	article, ok := a.latest(w, r)
	if !ok {
		return
	}

	vid, err := strconv.ParseInt(r.PathValue("vid"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid revision", http.StatusBadRequest)
		return
	}

	_, err = a.Repo.RevertTo(r.Context(), article, vid)
	if err != nil {
		if errors.Is(err, revision.ErrNotInBundle) || errors.Is(err, sql.ErrNoRows) {
			http.NotFound(w, r)
			return
		}
		log.Printf("Error reverting article: %v", err)
		http.Error(w, "Internal Server Error", 500)
		return
	}

	http.Redirect(w, r, "/article/"+article.CID+"/history", http.StatusSeeOther)
}

func (a *Article) trash(w http.ResponseWriter, r *http.Request) {
	article, ok := a.latest(w, r)
	if !ok {
		return
	}

	if err := a.Repo.Trash(r.Context(), article); err != nil {
		log.Printf("Error trashing article: %v", err)
		http.Error(w, "Internal Server Error", 500)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *Article) restore(w http.ResponseWriter, r *http.Request) {
	article, ok := a.latest(w, r)
	if !ok {
		return
	}

	if err := a.Repo.Restore(r.Context(), article); err != nil {
		log.Printf("Error restoring article: %v", err)
		http.Error(w, "Internal Server Error", 500)
		return
	}

	http.Redirect(w, r, "/trash", http.StatusSeeOther)
}

func (a *Article) destroy(w http.ResponseWriter, r *http.Request) {
	article, ok := a.latest(w, r)
	if !ok {
		return
	}

	if err := a.Repo.DeletePermanently(r.Context(), article); err != nil {
		log.Printf("Error deleting article: %v", err)
		http.Error(w, "Internal Server Error", 500)
		return
	}

	http.Redirect(w, r, "/trash", http.StatusSeeOther)
}

func (a *Article) trashIndex(w http.ResponseWriter, r *http.Request) {
	articles, err := a.Repo.Trashed(r.Context())
	if err != nil {
		log.Println(err)
		http.Error(w, "Internal Server Error", 500)
		return
	}

	user, _ := r.Context().Value("user").(*models.User)
	data := viewmodels.PageData{
		Articles:    articles,
		CurrentUser: user,
		IsLoggedIn:  user != nil,
	}

	err = a.Templates["trash.html"].ExecuteTemplate(w, "layout.html", data)
	if err != nil {
		log.Println(err)
	}
}

// latest resolves the cid path value to the bundle's latest revision,
// writing a 404 when the bundle does not exist.
func (a *Article) latest(w http.ResponseWriter, r *http.Request) (*models.Article, bool) {
	cid := r.PathValue("cid")

	article, err := a.Repo.LatestRevision(r.Context(), cid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.NotFound(w, r)
			return nil, false
		}
		log.Println(err)
		http.Error(w, "Internal Server Error", 500)
		return nil, false
	}
	return article, true
}

func parseDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil
	}
	return &t
}
