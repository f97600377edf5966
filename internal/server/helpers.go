package server

import (
	"strconv"

	"snapfeed/internal/middleware"
	"snapfeed/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	loginPath   = "/login"
	profilePath = "/profile"
)

// parseID extracts the :id route parameter as a positive uint. Malformed ids
// are reported as absent so callers handle them like a missing record.
func parseID(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// render adds the current user to data and renders view in the main layout.
func (s *Server) render(c *fiber.Ctx, view string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if _, ok := data["CurrentUser"]; !ok {
		data["CurrentUser"] = middleware.CurrentUser(c)
	}
	return c.Render(view, data)
}

func redirect(c *fiber.Ctx, path string) error {
	return c.Redirect(path, fiber.StatusFound)
}

// isSilentFailure reports errors that resource routes answer with a plain
// redirect to the profile page.
func isSilentFailure(err error) bool {
	return models.IsNotFound(err) || models.IsForbidden(err) || models.IsValidation(err)
}
