package web

import (
	"net/http"

	"vellum/internal/web/controller"
	"vellum/internal/web/middleware"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/static/", http.StripPrefix("/static/", StaticFileServer()))

	authController := controller.Auth{AuthService: s.authService, Templates: s.templates}
	authController.Register(mux)

	authenticatedMux := http.NewServeMux()
	articleController := controller.Article{Repo: s.articleRepo, Templates: s.templates}
	articleController.Register(authenticatedMux)

	miscController := controller.Misc{}
	miscController.Register(authenticatedMux)

	mux.Handle("/", middleware.WithUser(s.authService)(middleware.Auth(s.authService)(authenticatedMux)))

	return mux
}
