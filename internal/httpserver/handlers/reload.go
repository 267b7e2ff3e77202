package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/keepmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/keepmark/internal/logger"
	"github.com/MrSnakeDoc/keepmark/internal/utils"
)

// Reload queues a token file reload. A reload already waiting in the
// channel answers 429.
func Reload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remote := utils.ClientIP(r, d.TrustProxy)

		select {
		case d.ReloadTrigger <- struct{}{}:
			d.Logger.Info("manual token reload triggered via endpoint",
				logger.String("remote_ip", remote))
			writeJSON(w, http.StatusAccepted, messageResponse{Message: "Reload triggered"})
		default:
			d.Logger.Warn("token reload already pending",
				logger.String("remote_ip", remote))
			writeJSON(w, http.StatusTooManyRequests, messageResponse{Message: "Reload already in progress, please wait"})
		}
	}
}
