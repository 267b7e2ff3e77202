package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/keepmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/keepmark/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/keepmark/internal/httpserver/mw"
)

func init() { Register(registerBookmarks) }

func registerBookmarks(r chi.Router, d deps.Deps) {
	r.Route("/api/bookmarks", func(r chi.Router) {
		r.Use(mw.RequireIdentity(d.Tokens, d.Logger))

		r.Get("/", handlers.ListBookmarks(d))
		r.With(mw.RateLimit(mw.CreateLimit(d.CreateBurst, d.CreatePerMin, d.TrustProxy))).
			Post("/", handlers.CreateBookmark(d))
		// Registered before /{id} so "search" is never taken for an id.
		r.Get("/search", handlers.SearchBookmarks(d))
		r.Delete("/{id}", handlers.DeleteBookmark(d))
	})
}
