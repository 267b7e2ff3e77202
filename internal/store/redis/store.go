package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/keepmark/internal/logger"
)

// Store persists bookmarks in Redis.
//
// Layout:
//
//	keepmark:bookmark:{id}           JSON document
//	keepmark:owner:{owner}:bookmarks ZSET of IDs scored by createdAt (ms)
//	keepmark:owner:{owner}:urls      HASH url -> ID, the uniqueness claim
type Store struct {
	client *redis.Client
	logger logger.Logger
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client, log logger.Logger) *Store {
	return &Store{
		client: client,
		logger: log,
	}
}

// Ping checks the connection to Redis
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
