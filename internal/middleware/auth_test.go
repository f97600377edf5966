package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"snapfeed/internal/cache"
	"snapfeed/internal/models"
	"snapfeed/internal/repository"
	"snapfeed/internal/session"
	"snapfeed/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

type authFixture struct {
	app      *fiber.App
	db       *gorm.DB
	sessions *session.Manager
	user     *models.User
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	db := testutil.NewDB(t)
	store, _ := testutil.NewCache(t)
	sessions := session.NewManager(session.Options{Secret: testSecret, TTL: time.Hour, Store: store})
	users := repository.NewUserRepository(db, cache.New(nil))

	app := fiber.New()
	app.Use(Authenticate(AuthConfig{Sessions: sessions, Users: users}))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		if u := CurrentUser(c); u != nil {
			return c.SendString(u.Email)
		}
		return c.SendString("anonymous")
	})
	app.Get("/private", RequireLogin("/login"), func(c *fiber.Ctx) error {
		return c.SendString("secret")
	})

	return &authFixture{
		app:      app,
		db:       db,
		sessions: sessions,
		user:     testutil.CreateUser(t, db, "ada@example.com", "secret123"),
	}
}

func (f *authFixture) issue(t *testing.T) string {
	t.Helper()
	token, _, err := f.sessions.Issue(session.Identity{UserID: f.user.ID, Email: f.user.Email})
	require.NoError(t, err)
	return token
}

func (f *authFixture) get(t *testing.T, path, token string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp, string(body)
}

func clearsCookie(resp *http.Response) bool {
	for _, v := range resp.Header.Values("Set-Cookie") {
		if strings.HasPrefix(v, SessionCookie+"=;") {
			return true
		}
	}
	return false
}

func TestAuthenticate(t *testing.T) {
	f := newAuthFixture(t)
	valid := f.issue(t)

	tests := []struct {
		name        string
		token       string
		wantBody    string
		wantCleared bool
	}{
		{"no cookie", "", "anonymous", false},
		{"valid token", valid, "ada@example.com", false},
		{"tampered token", valid[:len(valid)-3] + "abc", "anonymous", true},
		{"garbage", "not.a.jwt", "anonymous", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := f.get(t, "/whoami", tt.token)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, tt.wantBody, body)
			assert.Equal(t, tt.wantCleared, clearsCookie(resp))
		})
	}
}

func TestAuthenticateRevokedToken(t *testing.T) {
	f := newAuthFixture(t)
	token := f.issue(t)

	id, err := f.sessions.Verify(context.Background(), token)
	require.NoError(t, err)
	require.NoError(t, f.sessions.Revoke(context.Background(), id))

	resp, body := f.get(t, "/whoami", token)
	assert.Equal(t, "anonymous", body)
	assert.True(t, clearsCookie(resp))
}

func TestAuthenticateDeletedUser(t *testing.T) {
	f := newAuthFixture(t)
	token := f.issue(t)
	require.NoError(t, f.db.Delete(&models.User{}, f.user.ID).Error)

	resp, body := f.get(t, "/whoami", token)
	assert.Equal(t, "anonymous", body)
	assert.True(t, clearsCookie(resp))
}

type unavailableUsers struct{}

func (unavailableUsers) GetByID(context.Context, uint) (*models.User, error) {
	return nil, models.NewInternalError(errors.New("connection refused"))
}

func TestAuthenticateUserStoreUnavailable(t *testing.T) {
	f := newAuthFixture(t)
	token := f.issue(t)

	app := fiber.New()
	app.Use(Authenticate(AuthConfig{Sessions: f.sessions, Users: unavailableUsers{}}))
	app.Get("/about", func(c *fiber.Ctx) error {
		if CurrentUser(c) != nil {
			return c.SendString("signed in")
		}
		return c.SendString("anonymous")
	})
	f.app = app

	resp, body := f.get(t, "/about", token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "anonymous", body)
	assert.False(t, clearsCookie(resp))
}

func TestRequireLogin(t *testing.T) {
	f := newAuthFixture(t)

	resp, _ := f.get(t, "/private", "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp, _ = f.get(t, "/private", "expired-or-bogus")
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	resp, body := f.get(t, "/private", f.issue(t))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "secret", body)
}

func TestSetSessionCookie(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		SetSessionCookie(c, "abc", time.Now().Add(time.Hour), true)
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	cookie := resp.Header.Get("Set-Cookie")
	assert.Contains(t, cookie, "token=abc")
	assert.Contains(t, strings.ToLower(cookie), "httponly")
	assert.Contains(t, strings.ToLower(cookie), "secure")
	assert.Contains(t, strings.ToLower(cookie), "samesite=lax")
}
