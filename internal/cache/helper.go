package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"blogsite/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	UserKeyPrefix = "user:%d"
	PostKeyPrefix = "post:%d"
)

const (
	UserTTL = 5 * time.Minute
	PostTTL = 30 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

// Aside reads key into dest, falling back to fetch on a miss and storing its result for ttl.
// Fetch errors are returned as-is and never cached. Without a client it simply calls fetch.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	if client == nil {
		return fetch()
	}

	raw, err := client.Get(ctx, key).Bytes()
	if err == nil {
		if jsonErr := json.Unmarshal(raw, dest); jsonErr == nil {
			observability.CacheLookups.WithLabelValues("hit").Inc()
			return nil
		}
		// Undecodable entry: drop it and refetch.
		client.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		observability.CacheLookups.WithLabelValues("error").Inc()
		return fetch()
	}

	observability.CacheLookups.WithLabelValues("miss").Inc()
	if err := fetch(); err != nil {
		return err
	}

	if payload, err := json.Marshal(dest); err == nil {
		client.Set(ctx, key, payload, ttl)
	}
	return nil
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
}
