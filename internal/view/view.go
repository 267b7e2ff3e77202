package view

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strings"

	"github.com/MrSnakeDoc/keepmark/internal/domain"
	"github.com/MrSnakeDoc/keepmark/internal/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/placeholder.svg
var PlaceholderSVG []byte

const (
	// SkeletonCount is the number of placeholder cards shown while loading
	SkeletonCount = 6

	// DefaultErrorMessage is shown when the load error carries no message
	DefaultErrorMessage = "An error occurred while loading your bookmarks. Please try again."

	// PlaceholderIcon replaces a favicon that fails to load
	PlaceholderIcon = "/placeholder.svg?height=32&width=32"

	// DefaultFaviconURL is the favicon service; %s receives the bookmark URL
	DefaultFaviconURL = "https://www.google.com/s2/favicons?domain=%s&sz=64"
)

// ErrDeletePending is returned when a delete of the same card is
// already running.
var ErrDeletePending = errors.New("delete already in progress")

// Layout selects the arrangement of cards. It only changes CSS classes.
type Layout string

const (
	LayoutGrid Layout = "grid"
	LayoutList Layout = "list"
)

// ParseLayout maps a query value to a Layout, defaulting to grid.
func ParseLayout(s string) Layout {
	if Layout(strings.ToLower(strings.TrimSpace(s))) == LayoutList {
		return LayoutList
	}
	return LayoutGrid
}

// LayoutClass returns the grid column classes of a layout.
func LayoutClass(l Layout) string {
	if l == LayoutList {
		return "grid-cols-1"
	}
	return "grid-cols-1 md:grid-cols-2 lg:grid-cols-3"
}

// State is what the list shows.
type State int

const (
	StateLoading State = iota
	StateError
	StateEmpty
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateError:
		return "error"
	case StateEmpty:
		return "empty"
	default:
		return "ready"
	}
}

// Props are the inputs of one render.
type Props struct {
	Owner     string // whose cards are rendered, scopes the deleting flags
	Bookmarks []*domain.Bookmark
	Loading   bool
	Err       error
	Layout    Layout
}

// Resolve picks the state to show. Loading wins over error, error over
// empty.
func Resolve(p Props) State {
	switch {
	case p.Loading:
		return StateLoading
	case p.Err != nil:
		return StateError
	case len(p.Bookmarks) == 0:
		return StateEmpty
	default:
		return StateReady
	}
}

// ErrorMessage is the text of the error panel.
func ErrorMessage(err error) string {
	if err == nil || strings.TrimSpace(err.Error()) == "" {
		return DefaultErrorMessage
	}
	return err.Error()
}

// Card is the view model of one bookmark.
type Card struct {
	ID             string
	URL            string
	Label          string
	Description    string
	HasDescription bool
	FaviconURL     string
	FaviconAlt     string
	Deleting       bool
}

// DeleteFunc removes bookmark id on behalf of owner.
type DeleteFunc func(ctx context.Context, owner, id string) error

type OptFn func(*List)

// WithFaviconURL overrides the favicon service template.
func WithFaviconURL(tpl string) OptFn {
	return func(l *List) {
		if tpl != "" {
			l.faviconURL = tpl
		}
	}
}

// WithDeletions shares a deletion tracker between lists.
func WithDeletions(d *Deletions) OptFn {
	return func(l *List) {
		l.pending = d
	}
}

// List renders bookmark cards and runs card deletions.
type List struct {
	onDelete   DeleteFunc
	pending    *Deletions
	logger     logger.Logger
	tmpl       *template.Template
	faviconURL string
}

// New parses the embedded templates.
func New(onDelete DeleteFunc, log logger.Logger, opts ...OptFn) (*List, error) {
	tmpl, err := template.New("view").Funcs(template.FuncMap{
		"layoutClass": LayoutClass,
		"placeholder": func() string { return PlaceholderIcon },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse view templates: %w", err)
	}

	l := &List{
		onDelete:   onDelete,
		pending:    NewDeletions(),
		logger:     log,
		tmpl:       tmpl,
		faviconURL: DefaultFaviconURL,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

type listData struct {
	State     string
	Layout    Layout
	Skeletons []struct{}
	Message   string
	Cards     []Card
}

func (l *List) data(p Props) listData {
	d := listData{
		State:  Resolve(p).String(),
		Layout: p.Layout,
	}
	if d.Layout == "" {
		d.Layout = LayoutGrid
	}

	switch Resolve(p) {
	case StateLoading:
		d.Skeletons = make([]struct{}, SkeletonCount)
	case StateError:
		d.Message = ErrorMessage(p.Err)
	case StateEmpty, StateReady:
		d.Cards = l.Cards(p.Owner, p.Bookmarks)
	}
	return d
}

// Cards builds owner's card view models in input order.
func (l *List) Cards(owner string, bookmarks []*domain.Bookmark) []Card {
	cards := make([]Card, 0, len(bookmarks))
	rendered := make(map[string]struct{}, len(bookmarks))

	for _, b := range bookmarks {
		if b == nil {
			continue
		}
		rendered[b.ID] = struct{}{}

		c := Card{
			ID:         b.ID,
			URL:        b.URL,
			Label:      b.Label(),
			FaviconURL: fmt.Sprintf(l.faviconURL, url.QueryEscape(b.URL)),
			FaviconAlt: "Favicon",
			Deleting:   l.pending.IsDeleting(owner, b.ID),
		}
		if b.Title != nil && *b.Title != "" {
			c.FaviconAlt = *b.Title
		}
		if b.Description != nil && *b.Description != "" {
			c.Description = *b.Description
			c.HasDescription = true
		}
		cards = append(cards, c)
	}

	l.pending.Prune(owner, rendered)
	return cards
}

// Render writes the list fragment for p.
func (l *List) Render(w io.Writer, p Props) error {
	return l.tmpl.ExecuteTemplate(w, "list", l.data(p))
}

// Page is the full dashboard document.
type Page struct {
	Owner  string
	Flash  string
	Search string
	Props  Props
}

type pageData struct {
	Owner     string
	Flash     string
	Search    string
	Layout    Layout
	OtherView Layout
	List      listData
}

// RenderPage writes the dashboard document around the list.
func (l *List) RenderPage(w io.Writer, p Page) error {
	if p.Props.Owner == "" {
		p.Props.Owner = p.Owner
	}
	list := l.data(p.Props)

	other := LayoutList
	if list.Layout == LayoutList {
		other = LayoutGrid
	}

	return l.tmpl.ExecuteTemplate(w, "page", pageData{
		Owner:     p.Owner,
		Flash:     p.Flash,
		Search:    p.Search,
		Layout:    list.Layout,
		OtherView: other,
		List:      list,
	})
}

// Delete flags owner's card, runs the delete callback and clears the
// flag again on failure. On success the flag stays until the card is no
// longer rendered.
func (l *List) Delete(ctx context.Context, owner, id string) error {
	if !l.pending.Begin(owner, id) {
		return ErrDeletePending
	}

	if err := l.onDelete(ctx, owner, id); err != nil {
		l.pending.Fail(owner, id)
		l.logger.Warn("failed to delete bookmark",
			logger.String("owner", owner),
			logger.String("bookmark_id", id),
			logger.Error(err))
		return err
	}

	l.pending.Settle(owner, id)
	return nil
}
