package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"photoshare/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useEnv(t *testing.T, env string) {
	t.Helper()
	InitMiddleware(&config.Config{Env: env})
	t.Cleanup(func() { InitMiddleware(nil) })
}

func TestCheckRateLimit(t *testing.T) {
	tests := []struct {
		name          string
		env           string
		useRedis      bool
		calls         int
		limit         int
		expectedAllow bool
		expectError   bool
	}{
		{name: "Test Environment Bypass", env: "test", calls: 5, limit: 1, expectedAllow: true},
		{name: "Development Environment Bypass", env: "development", calls: 5, limit: 1, expectedAllow: true},
		{name: "Nil Redis In Production", env: "production", calls: 1, limit: 1, expectError: true},
		{name: "Under Limit", env: "production", useRedis: true, calls: 2, limit: 2, expectedAllow: true},
		{name: "Over Limit", env: "production", useRedis: true, calls: 3, limit: 2, expectedAllow: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useEnv(t, tt.env)

			var rdb *redis.Client
			if tt.useRedis {
				mr := miniredis.RunT(t)
				rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})
				defer rdb.Close()
			}

			var (
				allowed bool
				err     error
			)
			for i := 0; i < tt.calls; i++ {
				allowed, err = CheckRateLimit(context.Background(), rdb, "login", "ip:1.2.3.4", tt.limit, time.Minute)
			}

			if tt.expectError {
				assert.Error(t, err)
				assert.False(t, allowed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedAllow, allowed)
		})
	}
}

func TestCheckRateLimit_UsesConfigNotProcessEnv(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	// APP_ENV from config.yml never reaches the process environment
	t.Setenv("APP_ENV", "")
	useEnv(t, "production")

	allowed, err := CheckRateLimit(ctx, rdb, "login", "ip:x", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
	allowed, err = CheckRateLimit(ctx, rdb, "login", "ip:x", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	InitMiddleware(nil)
	allowed, err = CheckRateLimit(ctx, rdb, "login", "ip:x", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestCheckRateLimit_WindowExpires(t *testing.T) {
	useEnv(t, "production")
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	allowed, err := CheckRateLimit(ctx, rdb, "register", "ip:x", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
	allowed, _ = CheckRateLimit(ctx, rdb, "register", "ip:x", 1, time.Minute)
	assert.False(t, allowed)

	mr.FastForward(2 * time.Minute)
	allowed, err = CheckRateLimit(ctx, rdb, "register", "ip:x", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimitMiddleware(t *testing.T) {
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }

	t.Run("Bypass in test mode", func(t *testing.T) {
		useEnv(t, "test")
		app := fiber.New()
		app.Get("/test", RateLimit(nil, 1, time.Minute), ok)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/test", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Unconfigured redis skips limiting even when failing closed", func(t *testing.T) {
		useEnv(t, "production")
		app := fiber.New()
		app.Get("/sensitive", RateLimitWithPolicy(nil, 1, time.Minute, FailClosed), ok)

		for i := 0; i < 3; i++ {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/sensitive", nil))
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		}
	})

	t.Run("Redis outage", func(t *testing.T) {
		useEnv(t, "production")
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
		defer rdb.Close()
		mr.Close()

		app := fiber.New()
		app.Get("/open", RateLimit(rdb, 1, time.Minute), ok)
		app.Get("/closed", RateLimitWithPolicy(rdb, 1, time.Minute, FailClosed), ok)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/open", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/closed", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("Limit exceeded", func(t *testing.T) {
		useEnv(t, "production")
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer rdb.Close()

		app := fiber.New()
		app.Post("/api/auth/login", RateLimit(rdb, 1, time.Minute, "login"), ok)

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	})

	t.Run("Page redirect ignores foreign referer", func(t *testing.T) {
		useEnv(t, "production")
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer rdb.Close()

		app := fiber.New()
		app.Post("/auth/login", RateLimit(rdb, 1, time.Minute, "login"), ok)

		send := func() *http.Response {
			req := httptest.NewRequest(http.MethodPost, "http://example.com/auth/login", nil)
			req.Header.Set(fiber.HeaderReferer, "https://evil.test/phish")
			resp, err := app.Test(req)
			require.NoError(t, err)
			return resp
		}
		assert.Equal(t, http.StatusOK, send().StatusCode)

		resp := send()
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/", resp.Header.Get("Location"))
	})
}
