package server

import (
	"errors"
	"log/slog"

	"snapfeed/internal/middleware"
	"snapfeed/internal/models"
	"snapfeed/internal/observability"
	"snapfeed/internal/service"
	"snapfeed/internal/session"

	"github.com/gofiber/fiber/v2"
)

// ShowIndex handles GET / (registration form).
func (s *Server) ShowIndex(c *fiber.Ctx) error {
	return s.render(c, "index", fiber.Map{"Title": "Create account"})
}

// ShowAbout handles GET /about
func (s *Server) ShowAbout(c *fiber.Ctx) error {
	return s.render(c, "about", fiber.Map{"Title": "About"})
}

// ShowLogin handles GET /login
func (s *Server) ShowLogin(c *fiber.Ctx) error {
	return s.render(c, "login", fiber.Map{"Title": "Log in", "Email": "", "Error": ""})
}

// Register handles POST /register
func (s *Server) Register(c *fiber.Ctx) error {
	var in service.RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid registration form")
	}

	user, err := s.userService.Register(c.UserContext(), in)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			switch appErr.Code {
			case models.CodeConflict:
				return c.Status(fiber.StatusConflict).SendString(appErr.Message)
			case models.CodeValidation:
				return c.Status(fiber.StatusBadRequest).SendString(appErr.Message)
			}
		}
		return err
	}

	if err := s.startSession(c, user); err != nil {
		return err
	}
	return redirect(c, profilePath)
}

// Login handles POST /login
func (s *Server) Login(c *fiber.Ctx) error {
	email := c.FormValue("email")
	user, err := s.userService.Login(c.UserContext(), email, c.FormValue("password"))
	if errors.Is(err, service.ErrInvalidCredentials) {
		return s.render(c, "login", fiber.Map{
			"Title": "Log in",
			"Error": "Invalid email or password",
			"Email": email,
		})
	}
	if err != nil {
		return err
	}

	if err := s.startSession(c, user); err != nil {
		return err
	}
	return redirect(c, profilePath)
}

// Logout handles GET /logout. The current token is revoked so a copied
// cookie stops working too.
func (s *Server) Logout(c *fiber.Ctx) error {
	if id := middleware.CurrentIdentity(c); id != nil {
		if err := s.sessions.Revoke(c.UserContext(), id); err != nil {
			s.log.WarnContext(c.UserContext(), "failed to revoke session", slog.String("error", err.Error()))
		}
		observability.AuthEvents.WithLabelValues(observability.AuthLogout).Inc()
	}
	middleware.ClearSessionCookie(c, s.config.CookieSecure)
	return redirect(c, loginPath)
}

func (s *Server) startSession(c *fiber.Ctx, user *models.User) error {
	token, expiresAt, err := s.sessions.Issue(session.Identity{UserID: user.ID, Email: user.Email})
	if err != nil {
		return err
	}
	middleware.SetSessionCookie(c, token, expiresAt, s.config.CookieSecure)
	return nil
}
