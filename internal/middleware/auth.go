// Package middleware provides authentication, logging, rate limiting and
// instrumentation middleware for the application.
package middleware

import (
	"context"
	"log/slog"
	"time"

	"snapfeed/internal/models"
	"snapfeed/internal/observability"
	"snapfeed/internal/session"

	"github.com/gofiber/fiber/v2"
)

// SessionCookie names the cookie that carries the session token.
const SessionCookie = "token"

// Locals keys set by Authenticate.
const (
	LocalsIdentity = "identity"
	LocalsUserID   = "userID"
	LocalsUser     = "user"
)

// TokenVerifier checks a raw session token.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*session.Identity, error)
}

// UserLoader resolves the user behind a verified token.
type UserLoader interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

// AuthConfig wires the auth gate.
type AuthConfig struct {
	Sessions     TokenVerifier
	Users        UserLoader
	CookieSecure bool
	Logger       *slog.Logger
}

// Authenticate resolves the session cookie into a user on every request.
// Requests without a usable token continue anonymously; a token that fails
// verification, or whose user no longer exists, also has its cookie cleared.
// A user that cannot be loaded for another reason is treated as anonymous
// with the cookie left in place.
func Authenticate(cfg AuthConfig) fiber.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return func(c *fiber.Ctx) error {
		raw := c.Cookies(SessionCookie)
		if raw == "" {
			return c.Next()
		}

		ctx := c.UserContext()
		identity, err := cfg.Sessions.Verify(ctx, raw)
		if err != nil {
			observability.AuthEvents.WithLabelValues(observability.AuthInvalidToken).Inc()
			log.DebugContext(ctx, "rejected session token", slog.String("error", err.Error()))
			ClearSessionCookie(c, cfg.CookieSecure)
			return c.Next()
		}

		user, err := cfg.Users.GetByID(ctx, identity.UserID)
		if err != nil {
			if !models.IsNotFound(err) {
				// The token may still be good; keep the cookie for the next request.
				log.WarnContext(ctx, "failed to load session user, continuing anonymously",
					slog.Uint64("user_id", uint64(identity.UserID)),
					slog.String("error", err.Error()))
				return c.Next()
			}
			observability.AuthEvents.WithLabelValues(observability.AuthInvalidToken).Inc()
			ClearSessionCookie(c, cfg.CookieSecure)
			return c.Next()
		}

		c.Locals(LocalsIdentity, identity)
		c.Locals(LocalsUserID, user.ID)
		c.Locals(LocalsUser, user)
		c.SetUserContext(observability.WithUserID(ctx, user.ID))
		return c.Next()
	}
}

// RequireLogin redirects anonymous callers to loginPath.
func RequireLogin(loginPath string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CurrentUser(c) == nil {
			return c.Redirect(loginPath, fiber.StatusFound)
		}
		return c.Next()
	}
}

// CurrentUser returns the authenticated user, or nil for anonymous requests.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(LocalsUser).(*models.User)
	return user
}

// CurrentIdentity returns the verified token identity, or nil.
func CurrentIdentity(c *fiber.Ctx) *session.Identity {
	id, _ := c.Locals(LocalsIdentity).(*session.Identity)
	return id
}

// CurrentUserID returns the authenticated user's id, or 0.
func CurrentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals(LocalsUserID).(uint)
	return id
}

// SetSessionCookie stores token in an HttpOnly cookie that expires with it.
func SetSessionCookie(c *fiber.Ctx, token string, expires time.Time, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie in the browser.
func ClearSessionCookie(c *fiber.Ctx, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
