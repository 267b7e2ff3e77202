package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/keepmark/internal/domain"
	"github.com/MrSnakeDoc/keepmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/keepmark/internal/logger"
	"github.com/MrSnakeDoc/keepmark/internal/metrics"
	"github.com/MrSnakeDoc/keepmark/internal/view"
)

const (
	msgAdded     = "Bookmark added"
	msgAddFailed = "Failed to add bookmark"
	msgDelFailed = "Failed to delete bookmark"
	msgDelBusy   = "Delete already in progress"
)

// OwnerDelete is the view's delete callback.
func OwnerDelete(svc *domain.Service, m *metrics.Metrics) view.DeleteFunc {
	return func(ctx context.Context, o, id string) error {
		if err := svc.Delete(ctx, o, id); err != nil {
			return err
		}
		if m != nil {
			m.BookmarkDeleted()
		}
		return nil
	}
}

// Dashboard renders the HTML page with the caller's bookmarks, or the
// ranked results when ?q= is set.
func Dashboard(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, err := owner(r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		q := r.URL.Query()
		page := view.Page{
			Owner:  o,
			Flash:  q.Get("flash"),
			Search: strings.TrimSpace(q.Get("q")),
			Props:  view.Props{Owner: o, Layout: view.ParseLayout(q.Get("view"))},
		}

		if page.Search != "" {
			page.Props.Bookmarks, page.Props.Err = d.Service.Search(r.Context(), o, page.Search)
		} else {
			page.Props.Bookmarks, page.Props.Err = d.Service.List(r.Context(), o)
		}
		if page.Props.Err != nil {
			d.Logger.Warn("dashboard failed to load bookmarks",
				logger.String("owner", o),
				logger.Error(page.Props.Err))
			page.Props.Err = errors.New(domain.Message(page.Props.Err, ""))
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		if err := d.View.RenderPage(w, page); err != nil {
			d.Logger.Error("failed to render dashboard", logger.Error(err))
		}
	}
}

// DashboardCreate handles the add form and redirects back to the page.
func DashboardCreate(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, err := owner(r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			backToDashboard(w, r, msgInvalidBody)
			return
		}

		flash := msgAdded
		if _, err := d.Service.Create(r.Context(), o, r.PostFormValue("url")); err != nil {
			if statusFor(err) == http.StatusInternalServerError {
				d.Logger.Error("dashboard create failed", logger.Error(err))
			}
			flash = domain.Message(err, msgAddFailed)
		} else if d.Metrics != nil {
			d.Metrics.BookmarkCreated()
		}

		backToDashboard(w, r, flash)
	}
}

// DashboardDelete runs a card's delete control and redirects back to the
// page.
func DashboardDelete(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, err := owner(r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		flash := msgRemoved
		if err := d.View.Delete(r.Context(), o, chi.URLParam(r, "id")); err != nil {
			switch {
			case errors.Is(err, view.ErrDeletePending):
				flash = msgDelBusy
			default:
				flash = domain.Message(err, msgDelFailed)
			}
		}

		backToDashboard(w, r, flash)
	}
}

// Placeholder serves the fallback favicon.
func Placeholder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		_, _ = w.Write(view.PlaceholderSVG)
	}
}

func backToDashboard(w http.ResponseWriter, r *http.Request, flash string) {
	q := url.Values{}
	q.Set("view", string(view.ParseLayout(r.FormValue("view"))))
	if flash != "" {
		q.Set("flash", flash)
	}
	http.Redirect(w, r, "/?"+q.Encode(), http.StatusSeeOther)
}
