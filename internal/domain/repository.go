package domain

import "context"

// Repository is the document store behind the bookmark service.
//
// Implementations must scope every read by owner where an owner is
// given, and must enforce (owner, url) uniqueness atomically in Insert:
// losing a concurrent insert race returns ErrBookmarkExists.
type Repository interface {
	// List returns the owner's bookmarks, newest first.
	List(ctx context.Context, owner string) ([]*Bookmark, error)

	// FindByURL returns the owner's bookmark for url, or ErrBookmarkNotFound.
	FindByURL(ctx context.Context, owner, url string) (*Bookmark, error)

	// Get returns a bookmark by id regardless of owner, or ErrBookmarkNotFound.
	Get(ctx context.Context, id string) (*Bookmark, error)

	// Insert assigns b.ID and persists b.
	Insert(ctx context.Context, b *Bookmark) error

	// Delete removes a bookmark by id, or returns ErrBookmarkNotFound.
	Delete(ctx context.Context, id string) error
}

// Pinger is implemented by repositories backed by a remote server.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MetadataFetcher scrapes page metadata for a URL. It never fails:
// problems degrade to an empty Metadata.
type MetadataFetcher interface {
	Fetch(ctx context.Context, url string) Metadata
}
