package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"photoshare/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const (
	DenylistKeyPrefix = "denylist:%s"
	CategoriesKey     = "categories:all"
)

const (
	CategoriesTTL = 10 * time.Minute
)

func DenylistKey(jti string) string {
	return fmt.Sprintf(DenylistKeyPrefix, jti)
}

// Aside reads key into dest, calling load and storing its result on a miss.
// A nil client or a Redis failure falls through to load.
func Aside(ctx context.Context, rdb *redis.Client, key string, dest any, ttl time.Duration, load func() error) error {
	if rdb == nil {
		return load()
	}

	raw, err := rdb.Get(ctx, key).Bytes()
	if err == nil {
		if jsonErr := json.Unmarshal(raw, dest); jsonErr == nil {
			return nil
		}
	} else if !errors.Is(err, redis.Nil) {
		middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}

	if err := load(); err != nil {
		return err
	}

	payload, err := json.Marshal(dest)
	if err != nil {
		return nil
	}
	if err := rdb.Set(ctx, key, payload, ttl).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}

func Invalidate(ctx context.Context, rdb *redis.Client, key string) {
	if rdb != nil {
		rdb.Del(ctx, key)
	}
}

// RevokeToken denylists a token id until its expiry.
func RevokeToken(ctx context.Context, rdb *redis.Client, jti string, expiresAt time.Time) error {
	if rdb == nil || jti == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return rdb.Set(ctx, DenylistKey(jti), "1", ttl).Err()
}

// IsRevoked reports whether jti was denylisted.
func IsRevoked(ctx context.Context, rdb *redis.Client, jti string) (bool, error) {
	if rdb == nil || jti == "" {
		return false, nil
	}
	n, err := rdb.Exists(ctx, DenylistKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
