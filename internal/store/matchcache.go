package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultMatchTTL is how long a fetched match stays cached.
const DefaultMatchTTL = 24 * time.Hour

// MatchCache keeps raw match-v5 JSON in Redis so repeated collection runs do
// not spend Riot API quota on matches already fetched.
type MatchCache struct {
	rdb RedisClient
	ttl time.Duration
}

func NewMatchCache(rdb RedisClient, ttl time.Duration) *MatchCache {
	if ttl <= 0 {
		ttl = DefaultMatchTTL
	}
	return &MatchCache{rdb: rdb, ttl: ttl}
}

func matchKey(matchID string) string {
	return "riftsage:match:" + matchID
}

// Get returns the cached JSON or ErrNotFound.
func (c *MatchCache) Get(ctx context.Context, matchID string) ([]byte, error) {
	raw, err := c.rdb.Get(ctx, matchKey(matchID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached match %s: %w", matchID, err)
	}
	return raw, nil
}

func (c *MatchCache) Put(ctx context.Context, matchID string, raw []byte) error {
	if err := c.rdb.Set(ctx, matchKey(matchID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache match %s: %w", matchID, err)
	}
	return nil
}
