package domain_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/keepmark/internal/domain"
	"github.com/MrSnakeDoc/keepmark/internal/logger"
	"github.com/MrSnakeDoc/keepmark/internal/metadata"
	"github.com/MrSnakeDoc/keepmark/internal/store/memory"
	redisstore "github.com/MrSnakeDoc/keepmark/internal/store/redis"
)

type stubFetcher struct {
	mu    sync.Mutex
	meta  domain.Metadata
	calls int
}

func (f *stubFetcher) Fetch(_ context.Context, _ string) domain.Metadata {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.meta
}

// failingRepo wraps a repository and fails selected operations.
type failingRepo struct {
	domain.Repository
	listErr   error
	insertErr error
}

func (r *failingRepo) List(ctx context.Context, owner string) ([]*domain.Bookmark, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.Repository.List(ctx, owner)
}

func (r *failingRepo) Insert(ctx context.Context, b *domain.Bookmark) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	return r.Repository.Insert(ctx, b)
}

func strPtr(s string) *string { return &s }

func newService(t *testing.T, meta domain.Metadata) (*domain.Service, *stubFetcher) {
	t.Helper()
	fetcher := &stubFetcher{meta: meta}
	return domain.NewService(memory.New(), fetcher, logger.Nop()), fetcher
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	svc, fetcher := newService(t, domain.Metadata{Title: strPtr("Example Domain")})
	svc.WithClock(func() time.Time { return fixed })

	b, err := svc.Create(ctx, "alice", "https://example.com")
	require.NoError(t, err)

	assert.NotEmpty(t, b.ID)
	assert.Equal(t, "https://example.com", b.URL)
	assert.Equal(t, "alice", b.Owner)
	require.NotNil(t, b.Title)
	assert.Equal(t, "Example Domain", *b.Title)
	assert.Nil(t, b.Description)
	assert.Equal(t, fixed, b.CreatedAt)
	assert.Equal(t, 1, fetcher.calls)
}

func TestCreateValidation(t *testing.T) {
	svc, fetcher := newService(t, domain.Metadata{})

	for _, raw := range []string{"", "   "} {
		_, err := svc.Create(context.Background(), "alice", raw)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Equal(t, "Please provide a URL", domain.Message(err, ""))
	}
	assert.Zero(t, fetcher.calls, "no fetch on invalid input")
}

func TestCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	svc, fetcher := newService(t, domain.Metadata{})

	_, err := svc.Create(ctx, "alice", "https://example.com")
	require.NoError(t, err)

	_, err = svc.Create(ctx, "alice", "https://example.com")
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, "Bookmark already exists", domain.Message(err, ""))
	assert.Equal(t, 1, fetcher.calls, "duplicate is rejected before fetching")

	// Uniqueness is per owner
	_, err = svc.Create(ctx, "bob", "https://example.com")
	assert.NoError(t, err)
}

func TestCreateConcurrentDuplicates(t *testing.T) {
	svc, _ := newService(t, domain.Metadata{})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		exists  int
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), "alice", "https://race.example.com")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, domain.ErrConflict):
				exists++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, 19, exists)
}

func TestCreateStoreFailure(t *testing.T) {
	repo := &failingRepo{Repository: memory.New(), insertErr: errors.New("disk full")}
	svc := domain.NewService(repo, &stubFetcher{}, logger.Nop())

	_, err := svc.Create(context.Background(), "alice", "https://example.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, "fallback", domain.Message(err, "fallback"))
}

func TestCreateSavesWhenFetchOutlivesDeadline(t *testing.T) {
	release := make(chan struct{})
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(page.Close)
	t.Cleanup(func() { close(release) })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := redisstore.NewStore(client, logger.Nop())

	// No fetch timeout: only the caller's deadline stops the fetch.
	fetcher := metadata.NewFetcher(metadata.RegexExtractor{}, logger.Nop())
	svc := domain.NewService(repo, fetcher, logger.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	b, err := svc.Create(ctx, "alice", page.URL)
	require.NoError(t, err)
	assert.Nil(t, b.Title)
	assert.Nil(t, b.Description)
	assert.Error(t, ctx.Err(), "the request deadline should have passed")

	list, err := svc.List(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, domain.Metadata{})

	list, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { now = now.Add(time.Second); return now })

	_, err = svc.Create(ctx, "alice", "https://first.example.com")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "alice", "https://second.example.com")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "bob", "https://third.example.com")
	require.NoError(t, err)

	list, err = svc.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "https://second.example.com", list[0].URL)
	assert.Equal(t, "https://first.example.com", list[1].URL)
}

func TestListStoreFailure(t *testing.T) {
	repo := &failingRepo{Repository: memory.New(), listErr: errors.New("connection refused")}
	svc := domain.NewService(repo, &stubFetcher{}, logger.Nop())

	_, err := svc.List(context.Background(), "alice")
	assert.ErrorContains(t, err, "connection refused")
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, domain.Metadata{})

	b, err := svc.Create(ctx, "alice", "https://example.com")
	require.NoError(t, err)

	tests := []struct {
		name    string
		owner   string
		id      string
		wantErr error
		wantMsg string
	}{
		{name: "unknown id", owner: "alice", id: "missing", wantErr: domain.ErrNotFound, wantMsg: "Bookmark not found"},
		{name: "other owner", owner: "bob", id: b.ID, wantErr: domain.ErrUnauthorized, wantMsg: "Not authorized to delete this bookmark"},
		{name: "owner", owner: "alice", id: b.ID},
		{name: "already deleted", owner: "alice", id: b.ID, wantErr: domain.ErrNotFound, wantMsg: "Bookmark not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Delete(ctx, tt.owner, tt.id)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantMsg, domain.Message(err, ""))
		})
	}

	list, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	svc, fetcher := newService(t, domain.Metadata{})

	fetcher.meta = domain.Metadata{Title: strPtr("Go Documentation")}
	_, err := svc.Create(ctx, "alice", "https://go.dev/doc")
	require.NoError(t, err)

	fetcher.meta = domain.Metadata{Title: strPtr("Rust Book")}
	_, err = svc.Create(ctx, "alice", "https://doc.rust-lang.org/book")
	require.NoError(t, err)

	fetcher.meta = domain.Metadata{Title: strPtr("Go by Example")}
	_, err = svc.Create(ctx, "bob", "https://gobyexample.com")
	require.NoError(t, err)

	results, err := svc.Search(ctx, "alice", "go doc")
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "https://go.dev/doc", results[0].URL)
	for _, r := range results {
		assert.Equal(t, "alice", r.Owner, "search is scoped to the owner")
	}

	_, err = svc.Search(ctx, "alice", "  ")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
