package redis

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/keepmark/internal/domain"
	"github.com/MrSnakeDoc/keepmark/internal/logger"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, logger.Nop()), mr
}

func mustInsert(t *testing.T, s *Store, owner, url string, at time.Time) *domain.Bookmark {
	t.Helper()
	b := &domain.Bookmark{Owner: owner, URL: url, CreatedAt: at}
	require.NoError(t, s.Insert(context.Background(), b))
	return b
}

func TestInsertAndGet(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	title := "Example"
	b := &domain.Bookmark{Owner: "alice", URL: "https://example.com", Title: &title, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.Insert(ctx, b))
	require.NotEmpty(t, b.ID)

	assert.True(t, mr.Exists(BookmarkKey(b.ID)))
	assert.Equal(t, b.ID, mr.HGet(OwnerURLsKey("alice"), "https://example.com"))

	got, err := s.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.URL, got.URL)
	assert.Equal(t, "alice", got.Owner)
	require.NotNil(t, got.Title)
	assert.Equal(t, "Example", *got.Title)
	assert.Nil(t, got.Description)
	assert.True(t, b.CreatedAt.Equal(got.CreatedAt))
}

func TestInsertDuplicate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	mustInsert(t, s, "alice", "https://example.com", time.Now())

	err := s.Insert(ctx, &domain.Bookmark{Owner: "alice", URL: "https://example.com", CreatedAt: time.Now()})
	assert.ErrorIs(t, err, domain.ErrConflict)

	list, err := s.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// Another owner may save the same URL
	mustInsert(t, s, "bob", "https://example.com", time.Now())
}

func TestConcurrentInsertSameURL(t *testing.T) {
	s, _ := newTestStore(t)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Insert(context.Background(), &domain.Bookmark{Owner: "alice", URL: "https://race.example.com", CreatedAt: time.Now()})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

func TestListNewestFirstAndScoped(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mustInsert(t, s, "alice", "https://a.example.com", base)
	mustInsert(t, s, "alice", "https://b.example.com", base.Add(time.Hour))
	mustInsert(t, s, "bob", "https://c.example.com", base.Add(2*time.Hour))

	list, err := s.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "https://b.example.com", list[0].URL)
	assert.Equal(t, "https://a.example.com", list[1].URL)

	empty, err := s.List(ctx, "carol")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestListOrdersWithinSameMillisecond(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	var want []string
	for i := 0; i < 8; i++ {
		b := mustInsert(t, s, "alice", fmt.Sprintf("https://%d.example.com", i), base.Add(time.Duration(i)*time.Nanosecond))
		want = append([]string{b.URL}, want...)
	}

	score, err := mr.ZScore(OwnerBookmarksKey("alice"), mustFindID(t, s, "alice", "https://0.example.com"))
	require.NoError(t, err)
	assert.Equal(t, float64(base.UnixMilli()), score)

	list, err := s.List(ctx, "alice")
	require.NoError(t, err)
	got := make([]string, 0, len(list))
	for _, b := range list {
		got = append(got, b.URL)
	}
	assert.Equal(t, want, got)
}

func mustFindID(t *testing.T, s *Store, owner, url string) string {
	t.Helper()
	b, err := s.FindByURL(context.Background(), owner, url)
	require.NoError(t, err)
	return b.ID
}

func TestListSkipsDanglingIDs(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	b := mustInsert(t, s, "alice", "https://example.com", time.Now())
	mustInsert(t, s, "alice", "https://other.example.com", time.Now())
	mr.Del(BookmarkKey(b.ID))

	list, err := s.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "https://other.example.com", list[0].URL)
}

func TestFindByURL(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	b := mustInsert(t, s, "alice", "https://example.com", time.Now())

	got, err := s.FindByURL(ctx, "alice", "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	_, err = s.FindByURL(ctx, "bob", "https://example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDelete(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	b := mustInsert(t, s, "alice", "https://example.com", time.Now())

	require.NoError(t, s.Delete(ctx, b.ID))
	assert.False(t, mr.Exists(BookmarkKey(b.ID)))

	_, err := s.Get(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, b.ID), domain.ErrNotFound)

	list, err := s.List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, list)

	// URL claim is released
	mustInsert(t, s, "alice", "https://example.com", time.Now())
}

func TestStoreErrorsWhenRedisIsDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	s := NewStore(client, logger.Nop())
	mr.Close()

	_, err = s.List(context.Background(), "alice")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
	assert.Error(t, s.Ping(context.Background()))
}

func TestSweep(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	kept := mustInsert(t, s, "alice", "https://kept.example.com", time.Now())
	gone := mustInsert(t, s, "alice", "https://gone.example.com", time.Now())
	mustInsert(t, s, "bob", "https://bob.example.com", time.Now())

	mr.Del(BookmarkKey(gone.ID))

	res, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Owners)
	assert.Equal(t, 1, res.Sorted)
	assert.Equal(t, 1, res.URLs)

	// The dangling claim no longer blocks the URL
	mustInsert(t, s, "alice", "https://gone.example.com", time.Now())

	_, err = s.Get(ctx, kept.ID)
	assert.NoError(t, err)
}

func TestExtractOwner(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{key: OwnerBookmarksKey("alice"), want: "alice"},
		{key: OwnerBookmarksKey("user:42"), want: "user:42"},
		{key: OwnerURLsKey("alice"), wantErr: true},
		{key: "keepmark:owner::bookmarks", wantErr: true},
		{key: BookmarkKey("x"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := ExtractOwner(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
