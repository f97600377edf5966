package service

import (
	"context"
	"os"
	"testing"

	"snapfeed/internal/models"
	"snapfeed/internal/testutil"
	"snapfeed/internal/upload"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func pngFiles(t *testing.T, n int) []testutil.File {
	t.Helper()
	files := make([]testutil.File, n)
	for i := range files {
		files[i] = testutil.File{Name: "p.png", Content: testutil.PNG(t)}
	}
	return files
}

func dirEntries(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestCreatePost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, f.db, "owner@example.com", "secret123")

	post, err := f.posts.Create(ctx, CreatePostInput{
		UserID:  owner.ID,
		Content: "  first post  ",
		Images:  testutil.FormFiles(t, "images", pngFiles(t, 2)...),
	})
	require.NoError(t, err)
	assert.Equal(t, "first post", post.Content)
	require.Len(t, post.Images, 2)
	assert.Equal(t, 0, post.Images[0].Position)
	assert.Equal(t, 1, post.Images[1].Position)
	assert.Equal(t, 2, dirEntries(t, f.uploadDir))
}

func TestCreatePostImagesOnly(t *testing.T) {
	f := newFixture(t)
	owner := testutil.CreateUser(t, f.db, "owner@example.com", "secret123")

	post, err := f.posts.Create(context.Background(), CreatePostInput{
		UserID: owner.ID,
		Images: testutil.FormFiles(t, "images", pngFiles(t, 1)...),
	})
	require.NoError(t, err)
	assert.Empty(t, post.Content)
	assert.NotEmpty(t, post.Cover())
}

func TestCreatePostRequiresContentOrImages(t *testing.T) {
	f := newFixture(t)
	owner := testutil.CreateUser(t, f.db, "owner@example.com", "secret123")

	_, err := f.posts.Create(context.Background(), CreatePostInput{UserID: owner.ID, Content: "   "})
	assert.True(t, models.IsValidation(err))

	var count int64
	f.db.Model(&models.Post{}).Count(&count)
	assert.Zero(t, count)
}

func TestCreatePostTooManyImages(t *testing.T) {
	f := newFixture(t)
	owner := testutil.CreateUser(t, f.db, "owner@example.com", "secret123")

	_, err := f.posts.Create(context.Background(), CreatePostInput{
		UserID:  owner.ID,
		Content: "too many",
		Images:  testutil.FormFiles(t, "images", pngFiles(t, 7)...),
	})
	assert.ErrorIs(t, err, upload.ErrTooManyFiles)
	assert.Zero(t, dirEntries(t, f.uploadDir))

	var count int64
	f.db.Model(&models.Post{}).Count(&count)
	assert.Zero(t, count)
}

func TestToggleLike(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, f.db, "owner@example.com", "secret123")
	fan := testutil.CreateUser(t, f.db, "fan@example.com", "secret123")
	post := testutil.CreatePost(t, f.db, owner.ID, "hi")

	liked, err := f.posts.ToggleLike(ctx, fan.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	liked, err = f.posts.ToggleLike(ctx, fan.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	_, err = f.posts.ToggleLike(ctx, fan.ID, 999)
	assert.True(t, models.IsNotFound(err))
}

func TestEditUpdateDeleteRequireOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, f.db, "owner@example.com", "secret123")
	other := testutil.CreateUser(t, f.db, "other@example.com", "secret123")
	post := testutil.CreatePost(t, f.db, owner.ID, "mine")

	_, err := f.posts.GetForEdit(ctx, other.ID, post.ID)
	assert.True(t, models.IsForbidden(err))

	err = f.posts.Update(ctx, UpdatePostInput{UserID: other.ID, PostID: post.ID, Content: "hijacked"})
	assert.True(t, models.IsForbidden(err))

	err = f.posts.Delete(ctx, other.ID, post.ID)
	assert.True(t, models.IsForbidden(err))

	var stored models.Post
	require.NoError(t, f.db.First(&stored, post.ID).Error)
	assert.Equal(t, "mine", stored.Content)

	got, err := f.posts.GetForEdit(ctx, owner.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.ID, got.ID)

	require.NoError(t, f.posts.Update(ctx, UpdatePostInput{UserID: owner.ID, PostID: post.ID, Content: "edited"}))
	require.NoError(t, f.db.First(&stored, post.ID).Error)
	assert.Equal(t, "edited", stored.Content)

	require.NoError(t, f.posts.Delete(ctx, owner.ID, post.ID))
	assert.ErrorIs(t, f.db.First(&stored, post.ID).Error, gorm.ErrRecordNotFound)
}

func TestUpdateAllowsEmptyContent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, f.db, "owner@example.com", "secret123")
	post := testutil.CreatePost(t, f.db, owner.ID, "text only")

	require.NoError(t, f.posts.Update(ctx, UpdatePostInput{UserID: owner.ID, PostID: post.ID, Content: "  "}))

	var stored models.Post
	require.NoError(t, f.db.First(&stored, post.ID).Error)
	assert.Empty(t, stored.Content)
}

func TestDeleteRemovesImageFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, f.db, "owner@example.com", "secret123")

	post, err := f.posts.Create(ctx, CreatePostInput{
		UserID: owner.ID,
		Images: testutil.FormFiles(t, "images", pngFiles(t, 2)...),
	})
	require.NoError(t, err)
	require.Equal(t, 2, dirEntries(t, f.uploadDir))

	require.NoError(t, f.posts.Delete(ctx, owner.ID, post.ID))
	assert.Zero(t, dirEntries(t, f.uploadDir))
}

func TestMissingPostIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.posts.GetForEdit(ctx, 1, 42)
	assert.True(t, models.IsNotFound(err))
	assert.True(t, models.IsNotFound(f.posts.Delete(ctx, 1, 42)))
}
