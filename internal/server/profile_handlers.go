package server

import (
	"log/slog"

	"snapfeed/internal/middleware"
	"snapfeed/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Profile handles GET /profile
func (s *Server) Profile(c *fiber.Ctx) error {
	user, err := s.userService.Profile(c.UserContext(), middleware.CurrentUserID(c))
	if models.IsNotFound(err) {
		middleware.ClearSessionCookie(c, s.config.CookieSecure)
		return redirect(c, loginPath)
	}
	if err != nil {
		return err
	}

	return s.render(c, "profile", fiber.Map{
		"Title":    user.Username,
		"Profile":  user,
		"UserID":   user.ID,
		"MaxFiles": s.uploads.MaxFiles(),
	})
}

// ShowProfileUpload handles GET /profile/upload
func (s *Server) ShowProfileUpload(c *fiber.Ctx) error {
	return s.render(c, "profileupload", fiber.Map{"Title": "Profile picture"})
}

// UploadProfilePicture handles POST /upload (multipart field "image").
func (s *Server) UploadProfilePicture(c *fiber.Ctx) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return redirect(c, profilePath)
	}

	_, err = s.userService.UploadProfilePicture(c.UserContext(), middleware.CurrentUserID(c), fh)
	switch {
	case err == nil:
	case models.IsNotFound(err):
		middleware.ClearSessionCookie(c, s.config.CookieSecure)
		return redirect(c, loginPath)
	case isSilentFailure(err):
		s.log.InfoContext(c.UserContext(), "profile picture rejected", slog.String("reason", err.Error()))
	default:
		return err
	}
	return redirect(c, profilePath)
}
