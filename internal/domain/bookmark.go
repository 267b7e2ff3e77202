package domain

import (
	"net/url"
	"time"
)

// Bookmark is a URL saved by its owner.
//
// Records are immutable once stored: there is no edit path, only
// create and delete.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is generated by the store on insert.
	ID string `json:"id"`

	// URL is the bookmarked address, unique per owner.
	URL string `json:"url"`

	// Owner is the identity that created the bookmark and the only
	// one allowed to delete it.
	Owner string `json:"owner"`

	// ─────────────────────────────
	// Scraped metadata (best effort)
	// ─────────────────────────────

	// Title is the page <title>, nil when it could not be extracted.
	Title *string `json:"title"`

	// Description is the page meta description, nil when absent.
	Description *string `json:"description"`

	// CreatedAt drives the default newest-first ordering.
	CreatedAt time.Time `json:"createdAt"`
}

// Hostname returns the host part of the bookmark URL, or "" when
// the URL does not parse.
func (b *Bookmark) Hostname() string {
	u, err := url.Parse(b.URL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Label is the visible name of a bookmark: its title, or the URL
// hostname when no title was scraped.
func (b *Bookmark) Label() string {
	if b.Title != nil && *b.Title != "" {
		return *b.Title
	}
	if h := b.Hostname(); h != "" {
		return h
	}
	return b.URL
}

// Metadata is what the page scan yields. Either field may be nil.
type Metadata struct {
	Title       *string
	Description *string
}
