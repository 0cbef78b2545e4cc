// Package middleware provides request context, session, authorization, flash,
// logging, metrics, tracing and rate limiting middleware.
package middleware

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"photoshare/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SessionCookie is the name of the cookie carrying the signed session token.
const SessionCookie = "jwt"

const (
	identityLocalsKey     = "identity"
	sessionErrorLocalsKey = "sessionError"
)

// Identity is the authenticated requester, built from the stored user record.
// It is a value: handlers receive copies and cannot change the session.
type Identity struct {
	UserID uint   `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// IsAdmin reports whether the identity holds the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

// CanModify reports whether the identity owns ownerID's content or is an admin.
func (i Identity) CanModify(ownerID uint) bool {
	return i.UserID != 0 && (i.UserID == ownerID || i.IsAdmin())
}

type identityCtxKey struct{}

// ContextWithIdentity returns ctx carrying id.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	ctx = context.WithValue(ctx, identityCtxKey{}, id)
	return context.WithValue(ctx, UserIDKey, id.UserID)
}

// IdentityFromContext returns the identity stored by ContextWithIdentity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(Identity)
	return id, ok
}

// IdentityFrom returns the identity attached to the request, if any.
func IdentityFrom(c *fiber.Ctx) (Identity, bool) {
	id, ok := c.Locals(identityLocalsKey).(Identity)
	return id, ok
}

// SessionResolver turns a raw session token into an Identity.
// It returns a SESSION_EXPIRED AppError for tokens that are malformed, expired or revoked
// and an UNAUTHORIZED AppError when the token's user no longer exists.
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (Identity, error)
}

// SessionToken reads the token from the session cookie, falling back to a Bearer header.
func SessionToken(c *fiber.Ctx) string {
	if token := c.Cookies(SessionCookie); token != "" {
		return token
	}
	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// SetSessionCookie writes the session cookie.
func SetSessionCookie(c *fiber.Ctx, token string, expiresAt time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   secureCookies(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   secureCookies(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// AttachIdentity establishes the identity for every request without ever rejecting.
// Guests continue with no identity; a bad token clears the cookie and leaves an error flash.
func AttachIdentity(resolver SessionResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := SessionToken(c)
		if token == "" {
			return c.Next()
		}

		id, err := resolver.ResolveSession(c.UserContext(), token)
		if err != nil {
			c.Locals(sessionErrorLocalsKey, err)
			switch {
			case models.HasCode(err, models.CodeSessionExpired):
				ClearSessionCookie(c)
				SetFlash(c, FlashError, models.PublicMessage(err))
			case models.HasCode(err, models.CodeUnauthorized):
				// user deleted after the token was issued
				ClearSessionCookie(c)
			default:
				// the token may still be good; keep the cookie for the next request
				Logger.ErrorContext(c.UserContext(), "session resolution failed", slog.String("error", err.Error()))
			}
			return c.Next()
		}

		c.Locals(identityLocalsKey, id)
		c.Locals("userID", id.UserID)
		c.SetUserContext(ContextWithIdentity(c.UserContext(), id))
		return c.Next()
	}
}

// RequireAuth rejects requests without an identity. It must run after AttachIdentity.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := IdentityFrom(c); ok {
			return c.Next()
		}
		if err := sessionFailure(c); err != nil {
			return models.RespondWithError(c, models.StatusCode(err), err)
		}
		return Deny(c, unauthenticatedError(c), "/auth/login")
	}
}

// RequireRole passes only identities holding role.
func RequireRole(role string) fiber.Handler {
	return requireRole(role, "Access denied. Insufficient permissions.")
}

// RequireAdmin passes only admin identities.
func RequireAdmin() fiber.Handler {
	return requireRole(models.RoleAdmin, "Access denied. Admins only.")
}

func requireRole(role, message string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := IdentityFrom(c)
		if !ok {
			if err := sessionFailure(c); err != nil {
				return models.RespondWithError(c, models.StatusCode(err), err)
			}
			return Deny(c, unauthenticatedError(c), "/auth/login")
		}
		if id.Role != role {
			return Deny(c, models.NewForbiddenError(message), "/")
		}
		return c.Next()
	}
}

// sessionFailure returns the resolver error when the session could not be checked
// at all, as opposed to being rejected.
func sessionFailure(c *fiber.Ctx) error {
	err, ok := c.Locals(sessionErrorLocalsKey).(error)
	if !ok || models.StatusCode(err) < fiber.StatusInternalServerError {
		return nil
	}
	return err
}

func unauthenticatedError(c *fiber.Ctx) error {
	if err, ok := c.Locals(sessionErrorLocalsKey).(error); ok && models.HasCode(err, models.CodeSessionExpired) {
		return err
	}
	return models.NewUnauthorizedError("Unauthorized. Please log in.")
}

// WantsJSON reports whether the caller expects a JSON response rather than a redirect.
func WantsJSON(c *fiber.Ctx) bool {
	if strings.HasPrefix(c.Path(), "/api") {
		return true
	}
	if strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMEApplicationJSON) {
		return true
	}
	return strings.EqualFold(c.Get(fiber.HeaderXRequestedWith), "xmlhttprequest")
}

// Deny answers with err: a JSON error body for API callers, a redirect with an error flash otherwise.
func Deny(c *fiber.Ctx, err error, redirectTo string) error {
	if WantsJSON(c) {
		return models.RespondWithError(c, models.StatusCode(err), err)
	}
	SetFlash(c, FlashError, models.PublicMessage(err))
	return c.Redirect(redirectTo, fiber.StatusFound)
}

