package redisx

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// New builds the shared client. The deadlines cover every path through
// Store (cache KV, dedup, pub/sub publish); a slow Redis must not hold
// up a request or a consumer worker.
func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}
