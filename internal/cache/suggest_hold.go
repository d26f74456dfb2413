package cache

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect opens a Redis client from a URL. Empty URL means the cache is
// disabled and callers get a nil client, which every consumer here accepts.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, nil
	}
	// Accept both "redis://..." and host:port formats.
	if !strings.Contains(redisURL, "://") {
		redisURL = "redis://" + redisURL
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// SuggestHold keeps a short-TTL lease on nicknames that were handed out as
// suggestions, so two users asking at the same moment do not see the same
// candidate. It is advisory only: losing Redis loses the nicety, never the
// uniqueness guarantee, which lives in the database constraint.
type SuggestHold struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSuggestHold(rdb *redis.Client, ttl time.Duration) *SuggestHold {
	return &SuggestHold{rdb: rdb, ttl: ttl}
}

// TryHold takes the lease on name. With no Redis configured, or on a Redis
// error, it reports success so suggestions keep flowing.
func (h *SuggestHold) TryHold(ctx context.Context, name string) bool {
	if h == nil || h.rdb == nil {
		return true
	}
	ok, err := h.rdb.SetNX(ctx, "nickname:hold:"+name, 1, h.ttl).Result()
	if err != nil {
		return true
	}
	return ok
}
