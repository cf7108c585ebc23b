package controller

import (
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/niklasfasching/go-org/org"
)

// Misc provides miscellaneous handlers
type Misc struct{}

// Register registers the misc routes
func (m *Misc) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /_preview", m.preview)
}

func (m *Misc) preview(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Error reading request body", http.StatusInternalServerError)
		return
	}
	defer r.Body.Close()

	htmlContentString, err := org.New().Parse(strings.NewReader(string(body)), "").Write(org.NewHTMLWriter())
	if err != nil {
		log.Printf("Error converting org-mode content to HTML: %v", err)
		http.Error(w, "Internal Server Error", 500)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(htmlContentString))
}
