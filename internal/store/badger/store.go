package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/MrSnakeDoc/keepmark/internal/domain"
	"github.com/MrSnakeDoc/keepmark/internal/logger"
)

const (
	// maxTxnAttempts bounds retries after a badger.ErrConflict
	maxTxnAttempts = 3
	// gcDiscardRatio is the value log rewrite threshold
	gcDiscardRatio = 0.5
)

var errClosed = errors.New("badger database is closed")

// Store persists bookmarks in an embedded Badger database.
//
// Keys (segments separated by NUL so owner ids may contain any printable byte):
//
//	b\x00{id}               JSON document
//	o\x00{owner}\x00u\x00{url} -> id, the uniqueness claim
//	o\x00{owner}\x00i\x00{id}  -> empty, the owner index
type Store struct {
	db     *badger.DB
	logger logger.Logger
}

// Open opens (or creates) the database in dir.
func Open(dir string, log logger.Logger) (*Store, error) {
	return open(badger.DefaultOptions(dir), log)
}

// OpenInMemory opens a database that lives only in memory.
func OpenInMemory(log logger.Logger) (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true), log)
}

func open(opts badger.Options, log logger.Logger) (*Store, error) {
	opts.Logger = &badgerLogger{logger: log.With(logger.String("component", "badgerdb"))}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db at %q: %w", opts.Dir, err)
	}

	return &Store{db: db, logger: log}, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is open.
func (s *Store) Ping(_ context.Context) error {
	if s.db.IsClosed() {
		return errClosed
	}
	return nil
}

func docKey(id string) []byte { return []byte("b\x00" + id) }

func urlKey(owner, url string) []byte { return []byte("o\x00" + owner + "\x00u\x00" + url) }

func ownerIDPrefix(owner string) []byte { return []byte("o\x00" + owner + "\x00i\x00") }

func ownerIDKey(owner, id string) []byte { return append(ownerIDPrefix(owner), id...) }

// update runs fn in a read-write transaction, retrying on conflicts.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 1; attempt <= maxTxnAttempts; attempt++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.logger.Debug("badger transaction conflict, retrying", logger.Int("attempt", attempt))
	}
	return err
}

// Insert assigns an ID to b and stores it. The url claim and the
// document are written in one serialisable transaction.
func (s *Store) Insert(_ context.Context, b *domain.Bookmark) error {
	b.ID = uuid.NewString()

	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal bookmark: %w", err)
	}

	err = s.update(func(txn *badger.Txn) error {
		_, err := txn.Get(urlKey(b.Owner, b.URL))
		switch {
		case err == nil:
			return domain.ErrBookmarkExists
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		if err := txn.Set(docKey(b.ID), data); err != nil {
			return err
		}
		if err := txn.Set(urlKey(b.Owner, b.URL), []byte(b.ID)); err != nil {
			return err
		}
		return txn.Set(ownerIDKey(b.Owner, b.ID), nil)
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return err
		}
		return fmt.Errorf("failed to save bookmark: %w", err)
	}

	return nil
}

// Get retrieves a bookmark by ID
func (s *Store) Get(_ context.Context, id string) (*domain.Bookmark, error) {
	var bookmark *domain.Bookmark
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		bookmark, err = getDoc(txn, id)
		return err
	})
	if err != nil {
		return nil, wrapRead(err, "failed to get bookmark")
	}
	return bookmark, nil
}

// FindByURL retrieves the owner's bookmark for url
func (s *Store) FindByURL(_ context.Context, owner, url string) (*domain.Bookmark, error) {
	var bookmark *domain.Bookmark
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(urlKey(owner, url))
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		bookmark, err = getDoc(txn, string(id))
		return err
	})
	if err != nil {
		return nil, wrapRead(err, "failed to look up bookmark url")
	}
	return bookmark, nil
}

// List retrieves the owner's bookmarks, newest first
func (s *Store) List(_ context.Context, owner string) ([]*domain.Bookmark, error) {
	bookmarks := []*domain.Bookmark{}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := ownerIDPrefix(owner)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id := string(it.Item().Key()[len(prefix):])
			b, err := getDoc(txn, id)
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				return err
			}
			bookmarks = append(bookmarks, b)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}

	sort.Slice(bookmarks, func(i, j int) bool {
		if bookmarks[i].CreatedAt.Equal(bookmarks[j].CreatedAt) {
			return bookmarks[i].ID > bookmarks[j].ID
		}
		return bookmarks[i].CreatedAt.After(bookmarks[j].CreatedAt)
	})

	return bookmarks, nil
}

// Delete removes a bookmark and its index entries
func (s *Store) Delete(_ context.Context, id string) error {
	err := s.update(func(txn *badger.Txn) error {
		b, err := getDoc(txn, id)
		if err != nil {
			return err
		}
		for _, key := range [][]byte{docKey(id), urlKey(b.Owner, b.URL), ownerIDKey(b.Owner, id)} {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return wrapRead(err, "failed to delete bookmark")
	}
	return nil
}

// RunGC reclaims value log space every interval until ctx is done.
func (s *Store) RunGC(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// One call rewrites at most one file; loop until nothing is left
			for {
				err := s.db.RunValueLogGC(gcDiscardRatio)
				if err == nil {
					continue
				}
				if !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrRejected) &&
					!errors.Is(err, badger.ErrGCInMemoryMode) {
					s.logger.Warn("badger value log gc failed", logger.Error(err))
				}
				break
			}
		case <-ctx.Done():
			return
		}
	}
}

func getDoc(txn *badger.Txn, id string) (*domain.Bookmark, error) {
	item, err := txn.Get(docKey(id))
	if err != nil {
		return nil, err
	}

	var bookmark domain.Bookmark
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &bookmark)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal bookmark %s: %w", id, err)
	}
	return &bookmark, nil
}

func wrapRead(err error, msg string) error {
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.ErrBookmarkNotFound
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// badgerLogger adapts logger.Logger to Badger's logger interface.
type badgerLogger struct {
	logger logger.Logger
}

func (l *badgerLogger) Errorf(f string, v ...interface{})   { l.logger.Errorf(f, v...) }
func (l *badgerLogger) Warningf(f string, v ...interface{}) { l.logger.Warnf(f, v...) }
func (l *badgerLogger) Infof(f string, v ...interface{})    { l.logger.Debugf(f, v...) }
func (l *badgerLogger) Debugf(f string, v ...interface{})   { l.logger.Debugf(f, v...) }
