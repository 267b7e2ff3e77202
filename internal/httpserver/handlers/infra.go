package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/keepmark/internal/httpserver/deps"
)

type componentStatus struct {
	OK         bool   `json:"ok"`
	Backend    string `json:"backend,omitempty"`
	Tokens     *int   `json:"tokens,omitempty"`
	Owners     *int   `json:"owners,omitempty"`
	LastReload string `json:"last_reload,omitempty"`
	Error      string `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

// Infra reports the state of the store and the token table.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := map[string]componentStatus{
			"store":  checkStore(r, d),
			"tokens": checkTokens(d),
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Mode:       determineMode(components),
			Components: components,
		})
	}
}

func determineMode(components map[string]componentStatus) string {
	// Nothing works without the store
	if store, ok := components["store"]; ok && !store.OK {
		return "critical"
	}

	// Store up but nobody can authenticate
	if tokens, ok := components["tokens"]; ok && !tokens.OK {
		return "degraded"
	}

	return "operational"
}

func checkStore(r *http.Request, d deps.Deps) componentStatus {
	if err := pingStore(r.Context(), d); err != nil {
		return componentStatus{
			OK:      false,
			Backend: d.StoreName,
			Error:   err.Error(),
		}
	}
	return componentStatus{OK: true, Backend: d.StoreName}
}

func checkTokens(d deps.Deps) componentStatus {
	tokens, owners := d.Tokens.Count()

	lastReload := "never"
	if t := d.Tokens.LastReload(); !t.IsZero() {
		lastReload = t.Format("2006-01-02 15:04:05")
	}

	return componentStatus{
		OK:         tokens > 0,
		Tokens:     &tokens,
		Owners:     &owners,
		LastReload: lastReload,
	}
}
