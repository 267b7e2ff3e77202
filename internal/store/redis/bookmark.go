package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/keepmark/internal/domain"
	"github.com/MrSnakeDoc/keepmark/internal/logger"
)

// insertScript claims the (owner, url) slot and writes the document and
// the owner index in one atomic step.
//
// KEYS: urls hash, bookmark doc, owner zset
// ARGV: url, id, json, score (createdAt in ms)
var insertScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], ARGV[1], ARGV[2]) == 0 then
	return 0
end
redis.call('SET', KEYS[2], ARGV[3])
redis.call('ZADD', KEYS[3], ARGV[4], ARGV[2])
return 1
`)

// Insert assigns an ID to b and stores it
func (s *Store) Insert(ctx context.Context, b *domain.Bookmark) error {
	b.ID = uuid.NewString()

	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal bookmark: %w", err)
	}

	keys := []string{OwnerURLsKey(b.Owner), BookmarkKey(b.ID), OwnerBookmarksKey(b.Owner)}
	// Milliseconds stay exact as a float64 score; List orders ties by the
	// document's full CreatedAt.
	score := strconv.FormatInt(b.CreatedAt.UnixMilli(), 10)

	ok, err := insertScript.Run(ctx, s.client, keys, b.URL, b.ID, data, score).Int()
	if err != nil {
		return fmt.Errorf("failed to save bookmark: %w", err)
	}
	if ok == 0 {
		return domain.ErrBookmarkExists
	}

	return nil
}

// Get retrieves a bookmark from Redis by ID
func (s *Store) Get(ctx context.Context, id string) (*domain.Bookmark, error) {
	data, err := s.client.Get(ctx, BookmarkKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrBookmarkNotFound
		}
		return nil, fmt.Errorf("failed to get bookmark: %w", err)
	}

	var bookmark domain.Bookmark
	if err := json.Unmarshal(data, &bookmark); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bookmark: %w", err)
	}

	return &bookmark, nil
}

// FindByURL retrieves the owner's bookmark for url
func (s *Store) FindByURL(ctx context.Context, owner, url string) (*domain.Bookmark, error) {
	id, err := s.client.HGet(ctx, OwnerURLsKey(owner), url).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrBookmarkNotFound
		}
		return nil, fmt.Errorf("failed to look up bookmark url: %w", err)
	}

	return s.Get(ctx, id)
}

// List retrieves the owner's bookmarks, newest first
func (s *Store) List(ctx context.Context, owner string) ([]*domain.Bookmark, error) {
	ids, err := s.client.ZRevRange(ctx, OwnerBookmarksKey(owner), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmark IDs: %w", err)
	}

	if len(ids) == 0 {
		return []*domain.Bookmark{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = BookmarkKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmarks: %w", err)
	}

	bookmarks := make([]*domain.Bookmark, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Dangling index entry, the sweeper removes it
			continue
		}

		var bookmark domain.Bookmark
		if err := json.Unmarshal([]byte(raw), &bookmark); err != nil {
			s.logger.Warn("skipping unreadable bookmark",
				logger.String("bookmark_id", ids[i]),
				logger.Error(err))
			continue
		}
		bookmarks = append(bookmarks, &bookmark)
	}

	sortNewestFirst(bookmarks)
	return bookmarks, nil
}

// sortNewestFirst orders by CreatedAt descending, ID breaks ties
func sortNewestFirst(bookmarks []*domain.Bookmark) {
	sort.SliceStable(bookmarks, func(i, j int) bool {
		if bookmarks[i].CreatedAt.Equal(bookmarks[j].CreatedAt) {
			return bookmarks[i].ID > bookmarks[j].ID
		}
		return bookmarks[i].CreatedAt.After(bookmarks[j].CreatedAt)
	})
}

// Delete removes a bookmark document and its index entries
func (s *Store) Delete(ctx context.Context, id string) error {
	bookmark, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	var del *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, BookmarkKey(id))
		pipe.ZRem(ctx, OwnerBookmarksKey(bookmark.Owner), id)
		pipe.HDel(ctx, OwnerURLsKey(bookmark.Owner), bookmark.URL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}

	// Lost a race with a concurrent delete
	if del.Val() == 0 {
		return domain.ErrBookmarkNotFound
	}

	return nil
}
