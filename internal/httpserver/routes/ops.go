package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/keepmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/keepmark/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/keepmark/internal/httpserver/mw"
)

func init() { Register(registerOps) }

// Ops endpoints are restricted to the CIDR allow-list.
func registerOps(r chi.Router, d deps.Deps) {
	r.Group(func(r chi.Router) {
		r.Use(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))

		r.Get("/readyz", handlers.Readyz(d))
		r.Get("/infra", handlers.Infra(d))
		r.Post("/reload", handlers.Reload(d))
		r.Method("GET", "/metrics", handlers.Metrics(d))
	})
}
