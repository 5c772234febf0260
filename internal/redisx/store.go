package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store wraps the raw client with the small set of operations the rest
// of the app needs: cache KV, event dedup, and per-user pub/sub fan-out.
// Consumers depend on their own interfaces, so tests use plain fakes.
type Store struct {
	RDB *redis.Client
}

func NewStore(rdb *redis.Client) *Store { return &Store{RDB: rdb} }

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.RDB.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key, val string, ttl time.Duration) error {
	return s.RDB.Set(ctx, key, val, ttl).Err()
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	return s.RDB.Del(ctx, keys...).Err()
}

// Seen marks the event id processed for the given service and reports
// whether it had been processed before (SETNX semantics).
func (s *Store) Seen(ctx context.Context, service, eventID string) (bool, error) {
	key := fmt.Sprintf(KeyDedup, service, eventID)
	set, err := s.RDB.SetNX(ctx, key, "1", TTLDedup).Result()
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Broadcast pushes a payload to the per-user channel. Delivery is
// at-most-once per connected subscriber; nothing is persisted.
func (s *Store) Broadcast(ctx context.Context, userID string, payload []byte) error {
	return s.RDB.Publish(ctx, fmt.Sprintf(ChanUser, userID), payload).Err()
}
