package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/keepmark/internal/httpserver/deps"
)

// Metrics exposes the Prometheus registry.
func Metrics(d deps.Deps) http.Handler {
	if d.Metrics == nil {
		return http.NotFoundHandler()
	}
	return d.Metrics.Handler()
}
