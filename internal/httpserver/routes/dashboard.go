package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/keepmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/keepmark/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/keepmark/internal/httpserver/mw"
)

func init() { Register(registerDashboard) }

func registerDashboard(r chi.Router, d deps.Deps) {
	r.Get("/placeholder.svg", handlers.Placeholder())

	r.Group(func(r chi.Router) {
		r.Use(mw.RequireIdentity(d.Tokens, d.Logger))

		r.Get("/", handlers.Dashboard(d))
		r.With(mw.RateLimit(mw.CreateLimit(d.CreateBurst, d.CreatePerMin, d.TrustProxy))).
			Post("/bookmarks", handlers.DashboardCreate(d))
		r.Post("/bookmarks/{id}/delete", handlers.DashboardDelete(d))
	})
}
