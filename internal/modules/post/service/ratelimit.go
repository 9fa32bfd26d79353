package post

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultRateLimitWindow = 30 * time.Second

// CheckAndSetRateLimit takes the per-user lock for an action. Returns false
// when the previous lock is still live.
func CheckAndSetRateLimit(ctx context.Context, rdb *redis.Client, userID uuid.UUID, action string, window time.Duration) (bool, error) {
	if rdb == nil {
		return true, nil
	}
	if window <= 0 {
		window = defaultRateLimitWindow
	}

	key := fmt.Sprintf("rate_limit:user:%s:%s", userID.String(), action)

	wasSet, err := rdb.SetNX(ctx, key, "locked", window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit in redis: %w", err)
	}

	return wasSet, nil
}
