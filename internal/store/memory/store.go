package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/keepmark/internal/domain"
)

// Store keeps bookmarks in process memory.
// Data does not survive a restart; it backs tests and single-node demos.
type Store struct {
	mu        sync.RWMutex
	bookmarks map[string]*domain.Bookmark    // ID -> Bookmark
	byURL     map[string]map[string]string   // owner -> url -> ID
	byOwner   map[string]map[string]struct{} // owner -> set of IDs
	lastWrite time.Time                      // Timestamp of last insert or delete
}

// New creates an empty memory store
func New() *Store {
	return &Store{
		bookmarks: make(map[string]*domain.Bookmark),
		byURL:     make(map[string]map[string]string),
		byOwner:   make(map[string]map[string]struct{}),
	}
}

// List returns the owner's bookmarks, newest first
func (s *Store) List(_ context.Context, owner string) ([]*domain.Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byOwner[owner]
	out := make([]*domain.Bookmark, 0, len(ids))
	for id := range ids {
		out = append(out, clone(s.bookmarks[id]))
	}

	sortNewestFirst(out)
	return out, nil
}

// FindByURL retrieves the owner's bookmark for url
func (s *Store) FindByURL(_ context.Context, owner, url string) (*domain.Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byURL[owner][url]
	if !ok {
		return nil, domain.ErrBookmarkNotFound
	}
	return clone(s.bookmarks[id]), nil
}

// Get retrieves a bookmark by ID
func (s *Store) Get(_ context.Context, id string) (*domain.Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookmarks[id]
	if !ok {
		return nil, domain.ErrBookmarkNotFound
	}
	return clone(b), nil
}

// Insert assigns an ID to b and stores it. The (owner, url) check and
// the write happen under the same lock.
func (s *Store) Insert(_ context.Context, b *domain.Bookmark) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byURL[b.Owner][b.URL]; exists {
		return domain.ErrBookmarkExists
	}

	b.ID = uuid.NewString()

	if s.byURL[b.Owner] == nil {
		s.byURL[b.Owner] = make(map[string]string)
		s.byOwner[b.Owner] = make(map[string]struct{})
	}
	s.bookmarks[b.ID] = clone(b)
	s.byURL[b.Owner][b.URL] = b.ID
	s.byOwner[b.Owner][b.ID] = struct{}{}
	s.lastWrite = time.Now()

	return nil
}

// Delete removes a bookmark and its indexes
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookmarks[id]
	if !ok {
		return domain.ErrBookmarkNotFound
	}

	delete(s.bookmarks, id)
	delete(s.byURL[b.Owner], b.URL)
	delete(s.byOwner[b.Owner], id)
	if len(s.byOwner[b.Owner]) == 0 {
		delete(s.byOwner, b.Owner)
		delete(s.byURL, b.Owner)
	}
	s.lastWrite = time.Now()

	return nil
}

// Count returns the number of stored bookmarks
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.bookmarks)
}

// LastWrite returns the timestamp of the last insert or delete
func (s *Store) LastWrite() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastWrite
}

func clone(b *domain.Bookmark) *domain.Bookmark {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}

// sortNewestFirst orders by CreatedAt descending, ID breaks ties
func sortNewestFirst(bookmarks []*domain.Bookmark) {
	sort.Slice(bookmarks, func(i, j int) bool {
		if bookmarks[i].CreatedAt.Equal(bookmarks[j].CreatedAt) {
			return bookmarks[i].ID > bookmarks[j].ID
		}
		return bookmarks[i].CreatedAt.After(bookmarks[j].CreatedAt)
	})
}
