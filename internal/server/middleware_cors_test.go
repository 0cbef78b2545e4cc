package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"photoshare/internal/config"
	"photoshare/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frontendOrigin = "http://localhost:5173"

func newMiddlewareApp(t *testing.T, origins string) *fiber.App {
	t.Helper()
	srv := &Server{config: &config.Config{AllowedOrigins: origins}}
	app := fiber.New()
	srv.SetupMiddleware(app)
	app.All("/gallery", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func sendFrom(t *testing.T, app *fiber.App, method, origin string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, "/gallery", nil)
	if origin != "" {
		req.Header.Set(fiber.HeaderOrigin, origin)
	}
	if method == http.MethodOptions {
		req.Header.Set(fiber.HeaderAccessControlRequestMethod, http.MethodPost)
		req.Header.Set(fiber.HeaderAccessControlRequestHeaders, "content-type,x-requested-with")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestCORS_Origins(t *testing.T) {
	tests := []struct {
		name        string
		configured  string
		origin      string
		allowOrigin string
		credentials string
	}{
		{"listed origin gets credentials", frontendOrigin, frontendOrigin, frontendOrigin, "true"},
		{"unlisted origin", frontendOrigin, "https://evil.test", "", ""},
		{"default origin", "", "http://localhost:3000", "http://localhost:3000", "true"},
		{"wildcard never sends credentials", "*", "https://anywhere.test", "*", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := sendFrom(t, newMiddlewareApp(t, tt.configured), http.MethodGet, tt.origin)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
			assert.Equal(t, tt.allowOrigin, resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
			assert.Equal(t, tt.credentials, resp.Header.Get(fiber.HeaderAccessControlAllowCredentials))
		})
	}
}

func TestRateLimit_KeepsCORSAndPreflightBypasses(t *testing.T) {
	app := newMiddlewareApp(t, frontendOrigin)

	for i := 0; i < 100; i++ {
		resp := sendFrom(t, app, http.MethodPost, frontendOrigin)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, "request %d", i)
	}

	limited := sendFrom(t, app, http.MethodPost, frontendOrigin)
	assert.Equal(t, fiber.StatusTooManyRequests, limited.StatusCode)
	assert.Equal(t, frontendOrigin, limited.Header.Get(fiber.HeaderAccessControlAllowOrigin))

	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(limited.Body).Decode(&body))
	assert.Equal(t, "RATE_LIMITED", body.Code)
	assert.NotEmpty(t, body.Error)

	preflight := sendFrom(t, app, http.MethodOptions, frontendOrigin)
	assert.Equal(t, fiber.StatusNoContent, preflight.StatusCode)
	assert.Equal(t, frontendOrigin, preflight.Header.Get(fiber.HeaderAccessControlAllowOrigin))
	assert.Contains(t, preflight.Header.Get(fiber.HeaderAccessControlAllowMethods), http.MethodPatch)
}
