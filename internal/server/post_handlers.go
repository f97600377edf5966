package server

import (
	"log/slog"
	"mime/multipart"

	"snapfeed/internal/middleware"
	"snapfeed/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePost handles POST /post (multipart "images" plus "content").
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var files []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil {
		files = form.File["images"]
	}

	_, err := s.postService.Create(c.UserContext(), service.CreatePostInput{
		UserID:  middleware.CurrentUserID(c),
		Content: c.FormValue("content"),
		Images:  files,
	})
	if err != nil && !isSilentFailure(err) {
		return err
	}
	if err != nil {
		s.log.InfoContext(c.UserContext(), "post rejected", slog.String("reason", err.Error()))
	}
	return redirect(c, profilePath)
}

// LikePost handles GET /like/:id and toggles the caller's like.
func (s *Server) LikePost(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return redirect(c, profilePath)
	}
	if _, err := s.postService.ToggleLike(c.UserContext(), middleware.CurrentUserID(c), id); err != nil && !isSilentFailure(err) {
		return err
	}
	return redirect(c, profilePath)
}

// EditPost handles GET /edit/:id
func (s *Server) EditPost(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return redirect(c, profilePath)
	}
	post, err := s.postService.GetForEdit(c.UserContext(), middleware.CurrentUserID(c), id)
	if isSilentFailure(err) {
		return redirect(c, profilePath)
	}
	if err != nil {
		return err
	}
	return s.render(c, "edit", fiber.Map{"Title": "Edit post", "Post": post})
}

// UpdatePost handles POST /update/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return redirect(c, profilePath)
	}
	err := s.postService.Update(c.UserContext(), service.UpdatePostInput{
		UserID:  middleware.CurrentUserID(c),
		PostID:  id,
		Content: c.FormValue("content"),
	})
	if err != nil && !isSilentFailure(err) {
		return err
	}
	return redirect(c, profilePath)
}

// DeletePost handles GET /delete/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return redirect(c, profilePath)
	}
	if err := s.postService.Delete(c.UserContext(), middleware.CurrentUserID(c), id); err != nil && !isSilentFailure(err) {
		return err
	}
	return redirect(c, profilePath)
}
