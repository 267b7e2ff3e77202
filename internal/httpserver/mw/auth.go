package mw

import (
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/keepmark/internal/identity"
	"github.com/MrSnakeDoc/keepmark/internal/logger"
)

// TokenCookie is read when no Authorization header is sent, so the
// dashboard works from a plain browser session.
const TokenCookie = "keepmark_token"

const (
	msgNoToken     = "Not authorized, no token"
	msgTokenFailed = "Not authorized, token failed"
)

// RequireIdentity resolves the caller's bearer token to an owner id and
// stores it in the request context. Requests without a known token get 401.
func RequireIdentity(tokens *identity.TokenTable, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				unauthorized(w, msgNoToken)
				return
			}

			owner, ok := tokens.Resolve(token)
			if !ok {
				log.Debug("RequireIdentity: unknown token",
					logger.String("path", r.URL.Path),
					logger.String("remote_ip", r.RemoteAddr))
				unauthorized(w, msgTokenFailed)
				return
			}

			next.ServeHTTP(w, r.WithContext(identity.WithOwner(r.Context(), owner)))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, found := strings.Cut(h, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(TokenCookie); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	writeMessage(w, http.StatusUnauthorized, msg)
}
