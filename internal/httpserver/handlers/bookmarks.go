package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/keepmark/internal/domain"
	"github.com/MrSnakeDoc/keepmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/keepmark/internal/identity"
)

const (
	maxBodyBytes = 1 << 20

	msgRemoved     = "Bookmark removed"
	msgInvalidBody = "Invalid request body"
)

type createBookmarkRequest struct {
	URL string `json:"url"`
}

// owner returns the authenticated caller. RequireIdentity guarantees it is
// set on every bookmark route.
func owner(r *http.Request) (string, error) {
	o, ok := identity.OwnerFrom(r.Context())
	if !ok {
		return "", &domain.Error{Kind: domain.ErrUnauthorized, Message: "Not authorized, no token"}
	}
	return o, nil
}

// ListBookmarks returns the caller's bookmarks, newest first.
func ListBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, err := owner(r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		bookmarks, err := d.Service.List(r.Context(), o)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, bookmarks)
	}
}

// CreateBookmark saves {"url"} for the caller with scraped metadata.
func CreateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, err := owner(r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		var req createBookmarkRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, messageResponse{Message: msgInvalidBody})
			return
		}

		b, err := d.Service.Create(r.Context(), o, req.URL)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		if d.Metrics != nil {
			d.Metrics.BookmarkCreated()
		}
		writeJSON(w, http.StatusCreated, b)
	}
}

// DeleteBookmark removes one of the caller's bookmarks.
func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, err := owner(r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		if err := d.Service.Delete(r.Context(), o, chi.URLParam(r, "id")); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		if d.Metrics != nil {
			d.Metrics.BookmarkDeleted()
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: msgRemoved})
	}
}

// SearchBookmarks ranks the caller's bookmarks against ?q=.
func SearchBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, err := owner(r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		results, err := d.Service.Search(r.Context(), o, r.URL.Query().Get("q"))
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, results)
	}
}
