package middleware

import (
	"strings"
	"time"

	"photoshare/internal/config"

	"github.com/gofiber/fiber/v2"
)

// Flash cookie names read by page views.
const (
	FlashSuccess = "successMessage"
	FlashError   = "errorMessage"
)

const flashTTL = 5 * time.Second

// Flash holds the one-shot messages carried over from the previous request.
type Flash struct {
	Success string `json:"successMessage,omitempty"`
	Error   string `json:"errorMessage,omitempty"`
}

var cfg *config.Config

// InitMiddleware initializes cookie settings with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

func secureCookies() bool {
	return cfg != nil && cfg.IsProduction()
}

// SetFlash stores a message for the next page render.
func SetFlash(c *fiber.Ctx, name, message string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    message,
		Path:     "/",
		Expires:  time.Now().Add(flashTTL),
		MaxAge:   int(flashTTL / time.Second),
		HTTPOnly: true,
		Secure:   secureCookies(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// FlashMiddleware moves incoming flash cookies into locals and expires them.
func FlashMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		flash := Flash{
			Success: c.Cookies(FlashSuccess),
			Error:   c.Cookies(FlashError),
		}
		if flash.Success != "" {
			c.ClearCookie(FlashSuccess)
		}
		if flash.Error != "" {
			c.ClearCookie(FlashError)
		}
		c.Locals("flash", flash)
		return c.Next()
	}
}

// FlashFrom returns the flash messages for the current request.
func FlashFrom(c *fiber.Ctx) Flash {
	if f, ok := c.Locals("flash").(Flash); ok {
		return f
	}
	return Flash{}
}

// BackOr returns the Referer when it points into this site, otherwise fallback.
func BackOr(c *fiber.Ctx, fallback string) string {
	ref := c.Get(fiber.HeaderReferer)
	if ref == "" {
		return fallback
	}
	if strings.HasPrefix(ref, "/") && !strings.HasPrefix(ref, "//") {
		return ref
	}
	if base := c.BaseURL(); strings.HasPrefix(ref, base+"/") {
		return strings.TrimPrefix(ref, base)
	}
	return fallback
}
