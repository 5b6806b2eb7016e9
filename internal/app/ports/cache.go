package ports

import "time"

// Cache is a best-effort read-through cache for derived values
// (leaderboard counts and ranks). Misses are never errors.
type Cache interface {
	Get(key string) (string, bool)
	SetWithTTL(key string, ttl time.Duration, value string)
}
