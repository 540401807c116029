package cache

import (
	"context"
	"encoding/json"
	"time"
)

// CheckRateLimit applies a sliding-window rate limit for the given client
// identifier. It loads the timestamp window, evicts entries older than
// now-window, and decides allowed = count < limit. The new timestamp is
// appended and persisted only when the request is allowed, so denied
// requests never consume budget. The read-then-write sequence is not
// atomic: a concurrent burst can slip past the limit by a small margin.
func (c *Cache) CheckRateLimit(ctx context.Context, id string, limit int, window time.Duration) (allowed bool, remaining int) {
	now := time.Now()
	key := rateKey(id)

	var timestamps []time.Time
	if b, err := c.store.Get(ctx, key); err == nil {
		// Decode failure falls through to an empty window
		_ = json.Unmarshal(b, &timestamps)
	}

	cutoff := now.Add(-window)
	kept := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= limit {
		return false, 0
	}

	kept = append(kept, now)
	if b, err := json.Marshal(kept); err == nil {
		_ = c.store.Set(ctx, key, b, window)
	}

	return true, limit - len(kept)
}
