package service

import (
	"context"
	"log/slog"
	"mime/multipart"
	"strings"

	"snapfeed/internal/models"
	"snapfeed/internal/observability"
	"snapfeed/internal/repository"
	"snapfeed/internal/upload"

	"github.com/samber/lo"
)

const maxContentLen = 5000

// PostService creates, likes, edits and deletes posts.
type PostService struct {
	posts   repository.PostRepository
	uploads *upload.Store
	log     *slog.Logger
}

// CreatePostInput carries a new post and its uploaded images.
type CreatePostInput struct {
	UserID  uint
	Content string
	Images  []*multipart.FileHeader
}

// UpdatePostInput replaces the content of PostID on behalf of UserID.
type UpdatePostInput struct {
	UserID  uint
	PostID  uint
	Content string
}

// NewPostService returns a PostService storing images in uploads.
func NewPostService(posts repository.PostRepository, uploads *upload.Store, log *slog.Logger) *PostService {
	if log == nil {
		log = slog.Default()
	}
	return &PostService{posts: posts, uploads: uploads, log: log}
}

// Create stores the images in upload order and creates the post. A post
// needs text or at least one image.
func (s *PostService) Create(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	content := strings.TrimSpace(in.Content)
	files := lo.Filter(in.Images, func(fh *multipart.FileHeader, _ int) bool {
		return fh != nil && fh.Size > 0
	})

	if content == "" && len(files) == 0 {
		return nil, models.NewValidationError("Post needs content or images")
	}
	if len(content) > maxContentLen {
		return nil, models.NewValidationError("Content too long")
	}

	paths, err := s.uploads.SaveAll(files)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		UserID:  in.UserID,
		Content: content,
		Images: lo.Map(paths, func(p string, i int) models.PostImage {
			return models.PostImage{Position: i, Path: p}
		}),
	}
	if err := s.posts.Create(ctx, post); err != nil {
		s.uploads.Remove(paths...)
		return nil, err
	}

	observability.PostMutations.WithLabelValues("create").Inc()
	return post, nil
}

// ToggleLike adds or removes userID from the post's like set and reports the
// resulting membership.
func (s *PostService) ToggleLike(ctx context.Context, userID, postID uint) (bool, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return false, err
	}
	liked, err := s.posts.ToggleLike(ctx, userID, postID)
	if err != nil {
		return false, err
	}
	observability.PostMutations.WithLabelValues(lo.Ternary(liked, "like", "unlike")).Inc()
	return liked, nil
}

// GetForEdit returns the post when userID owns it.
func (s *PostService) GetForEdit(ctx context.Context, userID, postID uint) (*models.Post, error) {
	return s.owned(ctx, userID, postID)
}

// Update replaces the content of a post owned by in.UserID. Empty content
// is allowed and clears the text.
func (s *PostService) Update(ctx context.Context, in UpdatePostInput) error {
	post, err := s.owned(ctx, in.UserID, in.PostID)
	if err != nil {
		return err
	}
	content := strings.TrimSpace(in.Content)
	if len(content) > maxContentLen {
		return models.NewValidationError("Content too long")
	}
	if err := s.posts.UpdateContent(ctx, post.ID, content); err != nil {
		return err
	}
	observability.PostMutations.WithLabelValues("update").Inc()
	return nil
}

// Delete removes a post owned by userID together with its likes and images.
func (s *PostService) Delete(ctx context.Context, userID, postID uint) error {
	post, err := s.owned(ctx, userID, postID)
	if err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, post.ID); err != nil {
		return err
	}
	s.uploads.Remove(post.ImagePaths()...)
	observability.PostMutations.WithLabelValues("delete").Inc()
	s.log.InfoContext(ctx, "post deleted", slog.Uint64("post_id", uint64(post.ID)))
	return nil
}

func (s *PostService) owned(ctx context.Context, userID, postID uint) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !post.IsOwnedBy(userID) {
		return nil, models.NewForbiddenError("You can only modify your own posts")
	}
	return post, nil
}
