package redis

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/keepmark/internal/logger"
)

const sweepScanCount = 100

// SweepResult counts index entries removed by Sweep
type SweepResult struct {
	Owners  int // owner indexes visited
	Sorted  int // dangling sorted set members removed
	URLs    int // dangling url hash fields removed
	Checked int // index entries checked
}

// Sweep drops owner index entries whose bookmark document is gone.
// Documents removed by hand or by an interrupted client leave such
// entries behind; a dangling url claim would block re-adding the URL.
func (s *Store) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult

	iter := s.client.Scan(ctx, 0, OwnerBookmarksPattern(), sweepScanCount).Iterator()
	for iter.Next(ctx) {
		owner, err := ExtractOwner(iter.Val())
		if err != nil {
			continue
		}
		res.Owners++

		if err := s.sweepOwner(ctx, owner, &res); err != nil {
			return res, err
		}
	}
	if err := iter.Err(); err != nil {
		return res, fmt.Errorf("failed to scan owner indexes: %w", err)
	}

	return res, nil
}

func (s *Store) sweepOwner(ctx context.Context, owner string, res *SweepResult) error {
	ids, err := s.client.ZRange(ctx, OwnerBookmarksKey(owner), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to read owner index: %w", err)
	}
	for _, id := range ids {
		res.Checked++
		if s.exists(ctx, id) {
			continue
		}
		if err := s.client.ZRem(ctx, OwnerBookmarksKey(owner), id).Err(); err != nil {
			return fmt.Errorf("failed to remove dangling id: %w", err)
		}
		res.Sorted++
		s.logger.Debug("removed dangling bookmark id",
			logger.String("owner", owner),
			logger.String("bookmark_id", id))
	}

	urls, err := s.client.HGetAll(ctx, OwnerURLsKey(owner)).Result()
	if err != nil {
		return fmt.Errorf("failed to read owner url index: %w", err)
	}
	for url, id := range urls {
		res.Checked++
		if s.exists(ctx, id) {
			continue
		}
		if err := s.client.HDel(ctx, OwnerURLsKey(owner), url).Err(); err != nil {
			return fmt.Errorf("failed to remove dangling url: %w", err)
		}
		res.URLs++
		s.logger.Debug("removed dangling url claim",
			logger.String("owner", owner),
			logger.String("url", url))
	}

	return nil
}

func (s *Store) exists(ctx context.Context, id string) bool {
	n, err := s.client.Exists(ctx, BookmarkKey(id)).Result()
	// Keep the entry when unsure
	return err != nil || n > 0
}
