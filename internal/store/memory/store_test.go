package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/keepmark/internal/domain"
)

func insert(t *testing.T, s *Store, owner, url string, at time.Time) *domain.Bookmark {
	t.Helper()
	b := &domain.Bookmark{Owner: owner, URL: url, CreatedAt: at}
	if err := s.Insert(context.Background(), b); err != nil {
		t.Fatalf("Insert(%s, %s) error = %v", owner, url, err)
	}
	return b
}

func TestNew(t *testing.T) {
	s := New()
	if s == nil {
		t.Fatal("New() returned nil")
	}
	if s.Count() != 0 {
		t.Errorf("New() should start empty, got %v bookmarks", s.Count())
	}
}

func TestInsertAssignsID(t *testing.T) {
	s := New()
	b := insert(t, s, "alice", "https://example.com", time.Now())

	if b.ID == "" {
		t.Fatal("Insert() should assign an ID")
	}

	got, err := s.Get(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.URL != "https://example.com" || got.Owner != "alice" {
		t.Errorf("Get() = %+v, want alice/https://example.com", got)
	}
}

func TestInsertDuplicate(t *testing.T) {
	s := New()
	insert(t, s, "alice", "https://example.com", time.Now())

	err := s.Insert(context.Background(), &domain.Bookmark{Owner: "alice", URL: "https://example.com"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("Insert() duplicate error = %v, want ErrConflict", err)
	}

	// Another owner may save the same URL
	insert(t, s, "bob", "https://example.com", time.Now())
	if s.Count() != 2 {
		t.Errorf("Count() = %v, want 2", s.Count())
	}
}

func TestListNewestFirstAndScoped(t *testing.T) {
	s := New()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	insert(t, s, "alice", "https://a.example.com", base)
	insert(t, s, "alice", "https://b.example.com", base.Add(time.Minute))
	insert(t, s, "bob", "https://c.example.com", base.Add(2*time.Minute))

	list, err := s.List(context.Background(), "alice")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List() returned %v bookmarks, want 2", len(list))
	}
	if list[0].URL != "https://b.example.com" {
		t.Errorf("List()[0] = %v, want newest first", list[0].URL)
	}

	empty, err := s.List(context.Background(), "carol")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("List() for unknown owner = %v, want empty slice", empty)
	}
}

func TestFindByURL(t *testing.T) {
	s := New()
	b := insert(t, s, "alice", "https://example.com", time.Now())

	got, err := s.FindByURL(context.Background(), "alice", "https://example.com")
	if err != nil {
		t.Fatalf("FindByURL() error = %v", err)
	}
	if got.ID != b.ID {
		t.Errorf("FindByURL() ID = %v, want %v", got.ID, b.ID)
	}

	if _, err := s.FindByURL(context.Background(), "bob", "https://example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("FindByURL() other owner error = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	s := New()
	b := insert(t, s, "alice", "https://example.com", time.Now())

	if err := s.Delete(context.Background(), b.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(context.Background(), b.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(context.Background(), b.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Delete() twice error = %v, want ErrNotFound", err)
	}

	// URL is free again
	insert(t, s, "alice", "https://example.com", time.Now())
}

func TestGetReturnsCopy(t *testing.T) {
	s := New()
	b := insert(t, s, "alice", "https://example.com", time.Now())

	got, _ := s.Get(context.Background(), b.ID)
	got.URL = "https://mutated.example.com"

	again, _ := s.Get(context.Background(), b.ID)
	if again.URL != "https://example.com" {
		t.Errorf("Get() should return a copy, stored URL became %v", again.URL)
	}
}

func TestConcurrentInsertSameURL(t *testing.T) {
	s := New()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Insert(context.Background(), &domain.Bookmark{Owner: "alice", URL: "https://race.example.com"})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	if successes != 1 {
		t.Errorf("concurrent Insert() successes = %v, want 1", successes)
	}
	if s.Count() != 1 {
		t.Errorf("Count() = %v, want 1", s.Count())
	}
}
