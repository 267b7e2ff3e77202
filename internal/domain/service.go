package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrSnakeDoc/keepmark/internal/logger"
)

// DefaultSaveTimeout bounds the store write of a create. The write is
// detached from the caller's deadline so a slow metadata fetch cannot
// cancel it.
const DefaultSaveTimeout = 5 * time.Second

// Service owns the bookmark CRUD contract and per-owner isolation.
//
// It holds no per-request state; the repository is the only shared
// resource between concurrent calls.
type Service struct {
	repo    Repository
	fetcher MetadataFetcher
	logger  logger.Logger
	now     func() time.Time

	saveTimeout time.Duration
}

// NewService creates a bookmark service.
func NewService(repo Repository, fetcher MetadataFetcher, log logger.Logger) *Service {
	return &Service{
		repo:    repo,
		fetcher: fetcher,
		logger:  log,
		now:     time.Now,

		saveTimeout: DefaultSaveTimeout,
	}
}

// WithClock overrides the creation timestamp source. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithSaveTimeout overrides DefaultSaveTimeout.
func (s *Service) WithSaveTimeout(d time.Duration) *Service {
	if d > 0 {
		s.saveTimeout = d
	}
	return s
}

// List returns the owner's bookmarks, most recent first.
func (s *Service) List(ctx context.Context, owner string) ([]*Bookmark, error) {
	bookmarks, err := s.repo.List(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	if bookmarks == nil {
		bookmarks = []*Bookmark{}
	}
	return bookmarks, nil
}

// Create validates rawURL, rejects duplicates, scrapes metadata and
// persists a new bookmark owned by owner.
func (s *Service) Create(ctx context.Context, owner, rawURL string) (*Bookmark, error) {
	u := strings.TrimSpace(rawURL)
	if u == "" {
		return nil, ErrURLRequired
	}

	// Fail fast before the network round-trip. Insert re-checks atomically.
	if _, err := s.repo.FindByURL(ctx, owner, u); err == nil {
		return nil, ErrBookmarkExists
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to check for duplicate bookmark: %w", err)
	}

	meta := s.fetcher.Fetch(ctx, u)

	b := &Bookmark{
		URL:         u,
		Owner:       owner,
		Title:       meta.Title,
		Description: meta.Description,
		CreatedAt:   s.now().UTC(),
	}

	// The fetch may have used up the request deadline; an empty-metadata
	// bookmark is still saved.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.saveTimeout)
	defer cancel()

	if err := s.repo.Insert(saveCtx, b); err != nil {
		if errors.Is(err, ErrConflict) {
			s.logger.Info("duplicate bookmark rejected at insert",
				logger.String("owner", owner),
				logger.String("url", u))
			return nil, ErrBookmarkExists
		}
		return nil, fmt.Errorf("failed to save bookmark: %w", err)
	}

	s.logger.Info("bookmark created",
		logger.String("id", b.ID),
		logger.String("owner", owner),
		logger.String("url", u),
		logger.Bool("has_title", b.Title != nil),
		logger.Bool("has_description", b.Description != nil))

	return b, nil
}

// Delete removes the bookmark id if owner created it.
func (s *Service) Delete(ctx context.Context, owner, id string) error {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrBookmarkNotFound
		}
		return fmt.Errorf("failed to load bookmark: %w", err)
	}

	if b.Owner != owner {
		s.logger.Warn("delete rejected, caller is not the owner",
			logger.String("id", id),
			logger.String("caller", owner))
		return ErrNotBookmarkOwner
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrBookmarkNotFound
		}
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}

	s.logger.Info("bookmark deleted",
		logger.String("id", id),
		logger.String("owner", owner))

	return nil
}

// Search ranks the owner's bookmarks against query, best match first.
func (s *Service) Search(ctx context.Context, owner, query string) ([]*Bookmark, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrQueryRequired
	}

	bookmarks, err := s.List(ctx, owner)
	if err != nil {
		return nil, err
	}

	candidates := RankBookmarkCandidates(query, bookmarks)
	out := make([]*Bookmark, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.Bookmark)
	}
	return out, nil
}
