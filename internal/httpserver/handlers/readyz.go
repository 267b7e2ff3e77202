package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/keepmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/keepmark/internal/logger"
)

const pingTimeout = 2 * time.Second

type readyzResponse struct {
	Ready bool `json:"ready"`
}

// Readyz reports whether the store answers and at least one token is loaded.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ready := true

		if err := pingStore(r.Context(), d); err != nil {
			d.Logger.Warn("readyz: store unreachable", logger.Error(err))
			ready = false
		}
		if tokens, _ := d.Tokens.Count(); tokens == 0 {
			d.Logger.Warn("readyz: no tokens loaded")
			ready = false
		}

		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, readyzResponse{Ready: ready})
	}
}

func pingStore(ctx context.Context, d deps.Deps) error {
	if d.Pinger == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return d.Pinger.Ping(ctx)
}
