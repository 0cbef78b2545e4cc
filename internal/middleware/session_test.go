package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"photoshare/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resolverFunc func(ctx context.Context, token string) (Identity, error)

func (f resolverFunc) ResolveSession(ctx context.Context, token string) (Identity, error) {
	return f(ctx, token)
}

var (
	alice = Identity{UserID: 1, Email: "alice@example.com", Name: "Alice", Role: models.RoleUser}
	admin = Identity{UserID: 9, Email: "root@example.com", Name: "Root", Role: models.RoleAdmin}
)

func fakeResolver(t *testing.T) SessionResolver {
	t.Helper()
	return resolverFunc(func(_ context.Context, token string) (Identity, error) {
		switch token {
		case "alice-token":
			return alice, nil
		case "admin-token":
			return admin, nil
		case "deleted-token":
			return Identity{}, models.NewUnauthorizedError("Unauthorized. Please log in.")
		case "outage-token":
			return Identity{}, models.NewInternalError(errors.New("database is unreachable"))
		default:
			return Identity{}, models.NewSessionExpiredError()
		}
	})
}

func newGuardedApp(t *testing.T, guards ...fiber.Handler) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Use(AttachIdentity(fakeResolver(t)))
	handler := func(c *fiber.Ctx) error {
		id, _ := IdentityFrom(c)
		return c.JSON(fiber.Map{"id": id.UserID, "role": id.Role})
	}
	chain := append([]fiber.Handler{}, guards...)
	chain = append(chain, handler)
	app.Get("/page", chain...)
	app.Get("/api/page", chain...)
	return app
}

func request(path, token string, headers map[string]string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAttachIdentity_Guest(t *testing.T) {
	app := newGuardedApp(t)

	resp, err := app.Test(request("/page", "", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.EqualValues(t, 0, body["id"])
}

func TestAttachIdentity_ValidToken(t *testing.T) {
	app := newGuardedApp(t)

	resp, err := app.Test(request("/page", "alice-token", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.EqualValues(t, 1, body["id"])
	assert.Equal(t, models.RoleUser, body["role"])
}

func TestAttachIdentity_BearerHeader(t *testing.T) {
	app := newGuardedApp(t, RequireAuth())

	resp, err := app.Test(request("/api/page", "", map[string]string{"Authorization": "Bearer alice-token"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAttachIdentity_ExpiredTokenContinuesAsGuest(t *testing.T) {
	app := newGuardedApp(t)

	resp, err := app.Test(request("/page", "garbage", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cleared := findCookie(resp, SessionCookie)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	flash := findCookie(resp, FlashError)
	require.NotNil(t, flash)
	assert.Equal(t, "Session expired. Please log in again.", flash.Value)
}

func TestAttachIdentity_StoreFailureKeepsCookie(t *testing.T) {
	for _, path := range []string{"/page", "/api/page"} {
		t.Run(path, func(t *testing.T) {
			app := newGuardedApp(t, RequireAuth())

			resp, err := app.Test(request(path, "outage-token", nil))
			require.NoError(t, err)
			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			assert.Nil(t, findCookie(resp, SessionCookie))
			assert.Nil(t, findCookie(resp, FlashError))

			var body models.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, models.CodeInternal, body.Code)
			assert.Equal(t, "Internal server error", body.Error)
		})
	}
}

func TestAttachIdentity_StoreFailureOnOpenRoute(t *testing.T) {
	app := newGuardedApp(t)

	resp, err := app.Test(request("/page", "outage-token", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, findCookie(resp, SessionCookie))
}

func TestRequireAdmin_StoreFailure(t *testing.T) {
	app := newGuardedApp(t, RequireAdmin())

	resp, err := app.Test(request("/page", "outage-token", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Nil(t, findCookie(resp, SessionCookie))
}

func TestRequireAuth(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		token        string
		headers      map[string]string
		wantStatus   int
		wantLocation string
		wantCode     string
	}{
		{name: "page without token redirects to login", path: "/page", wantStatus: http.StatusFound, wantLocation: "/auth/login"},
		{name: "api without token is 401", path: "/api/page", wantStatus: http.StatusUnauthorized, wantCode: models.CodeUnauthorized},
		{name: "accept json without token is 401", path: "/page", headers: map[string]string{"Accept": "application/json"}, wantStatus: http.StatusUnauthorized, wantCode: models.CodeUnauthorized},
		{name: "expired token on api surfaces session expired", path: "/api/page", token: "stale", wantStatus: http.StatusUnauthorized, wantCode: models.CodeSessionExpired},
		{name: "deleted user is unauthenticated", path: "/api/page", token: "deleted-token", wantStatus: http.StatusUnauthorized, wantCode: models.CodeUnauthorized},
		{name: "valid token passes", path: "/page", token: "alice-token", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newGuardedApp(t, RequireAuth())

			resp, err := app.Test(request(tt.path, tt.token, tt.headers))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantLocation != "" {
				assert.Equal(t, tt.wantLocation, resp.Header.Get("Location"))
			}
			if tt.wantCode != "" {
				var body models.ErrorResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, tt.wantCode, body.Code)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	t.Run("user gets 403 on api", func(t *testing.T) {
		app := newGuardedApp(t, RequireAdmin())

		resp, err := app.Test(request("/api/page", "alice-token", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		var body models.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "Access denied. Admins only.", body.Error)
		assert.Equal(t, models.CodeForbidden, body.Code)
	})

	t.Run("user is redirected home on page", func(t *testing.T) {
		app := newGuardedApp(t, RequireAdmin())

		resp, err := app.Test(request("/page", "alice-token", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/", resp.Header.Get("Location"))

		flash := findCookie(resp, FlashError)
		require.NotNil(t, flash)
		assert.Equal(t, "Access denied. Admins only.", flash.Value)
	})

	t.Run("guest is denied without panic", func(t *testing.T) {
		app := newGuardedApp(t, RequireAdmin())

		resp, err := app.Test(request("/api/page", "", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("admin passes", func(t *testing.T) {
		app := newGuardedApp(t, RequireAdmin())

		resp, err := app.Test(request("/api/page", "admin-token", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestRequireRole(t *testing.T) {
	app := newGuardedApp(t, RequireRole(models.RoleUser))

	resp, err := app.Test(request("/api/page", "admin-token", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Access denied. Insufficient permissions.", body.Error)

	resp, err = app.Test(request("/api/page", "alice-token", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIdentity_CanModify(t *testing.T) {
	assert.True(t, alice.CanModify(1))
	assert.False(t, alice.CanModify(2))
	assert.True(t, admin.CanModify(2))
	assert.False(t, Identity{}.CanModify(0))
}

func TestIdentityFromContext(t *testing.T) {
	ctx := ContextWithIdentity(context.Background(), alice)
	got, ok := IdentityFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, alice, got)
	assert.Equal(t, alice.UserID, ctx.Value(UserIDKey))

	_, ok = IdentityFromContext(context.Background())
	assert.False(t, ok)
}

func TestWantsJSON(t *testing.T) {
	app := fiber.New()
	app.Get("/*", func(c *fiber.Ctx) error {
		if WantsJSON(c) {
			return c.SendString("json")
		}
		return c.SendString("page")
	})

	tests := []struct {
		path    string
		headers map[string]string
		want    string
	}{
		{"/api/photos", nil, "json"},
		{"/photos", nil, "page"},
		{"/photos", map[string]string{"Accept": "application/json"}, "json"},
		{"/photos", map[string]string{"X-Requested-With": "XMLHttpRequest"}, "json"},
	}
	for _, tt := range tests {
		resp, err := app.Test(request(tt.path, "", tt.headers))
		require.NoError(t, err)
		buf := make([]byte, 8)
		n, _ := resp.Body.Read(buf)
		assert.Equal(t, tt.want, string(buf[:n]), tt.path)
	}
}
