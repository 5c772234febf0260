package redisx

import "time"

const (
	// Cached category list (JSON array). Invalidated explicitly on any
	// category mutation.
	KeyCategories = "cache:categories"

	// Cache status order: order_status:{order_id} -> {"status": "..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Pub/sub channel per user: user:{user_id}. Connected clients
	// subscribe here for order status pushes.
	ChanUser = "user:%s"
)

var (
	TTLCategories  = time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
