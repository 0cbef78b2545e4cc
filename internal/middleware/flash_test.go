package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"photoshare/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetFlash(t *testing.T) {
	InitMiddleware(&config.Config{Env: "production"})
	t.Cleanup(func() { InitMiddleware(nil) })

	app := fiber.New()
	app.Post("/photos", func(c *fiber.Ctx) error {
		SetFlash(c, FlashSuccess, "Photo uploaded successfully!")
		return c.Redirect("/", fiber.StatusFound)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/photos", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	flash := findCookie(resp, FlashSuccess)
	require.NotNil(t, flash)
	assert.Equal(t, "Photo uploaded successfully!", flash.Value)
	assert.True(t, flash.HttpOnly)
	assert.True(t, flash.Secure)
	assert.Equal(t, 5, flash.MaxAge)
}

func TestFlashMiddleware_ReadsAndClears(t *testing.T) {
	app := fiber.New()
	app.Use(FlashMiddleware())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(FlashFrom(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: FlashError, Value: "Photo not found."})

	resp, err := app.Test(req)
	require.NoError(t, err)

	var flash Flash
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&flash))
	assert.Equal(t, "Photo not found.", flash.Error)
	assert.Empty(t, flash.Success)

	cleared := findCookie(resp, FlashError)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
}

func TestBackOr(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(BackOr(c, "/fallback"))
	})

	tests := []struct {
		name    string
		referer string
		want    string
	}{
		{"no referer", "", "/fallback"},
		{"relative", "/photos/3", "/photos/3"},
		{"same site absolute", "http://example.com/profile", "/profile"},
		{"foreign site", "https://evil.test/phish", "/fallback"},
		{"protocol relative", "//evil.test/phish", "/fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
			if tt.referer != "" {
				req.Header.Set(fiber.HeaderReferer, tt.referer)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			buf := make([]byte, 64)
			n, _ := resp.Body.Read(buf)
			assert.Equal(t, tt.want, string(buf[:n]))
		})
	}
}
