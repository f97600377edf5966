package seed

import (
	"testing"

	"snapfeed/internal/models"
	"snapfeed/internal/testutil"
	"snapfeed/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRunCreatesRequestedData(t *testing.T) {
	db := testutil.NewDB(t)
	f, err := NewFactory(db, Options{Users: 4, PostsPerUser: 3, LikeRatio: 1, SkipBcrypt: true, Seed: 42})
	require.NoError(t, err)

	res, err := f.Run(nil)
	require.NoError(t, err)
	assert.Len(t, res.Users, 4)
	assert.Len(t, res.Posts, 12)
	assert.Equal(t, 48, res.Likes)

	var users, posts, likes int64
	db.Model(&models.User{}).Count(&users)
	db.Model(&models.Post{}).Count(&posts)
	db.Model(&models.Like{}).Count(&likes)
	assert.Equal(t, int64(4), users)
	assert.Equal(t, int64(12), posts)
	assert.Equal(t, int64(48), likes)
}

func TestSeededUsersCanLogIn(t *testing.T) {
	db := testutil.NewDB(t)
	f, err := NewFactory(db, Options{SkipBcrypt: true, Seed: 7})
	require.NoError(t, err)

	user, err := f.CreateUser()
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(DefaultPassword)))
	assert.NoError(t, validation.ValidatePassword(DefaultPassword))
	assert.NotEmpty(t, user.Email)
}

func TestCreateUserOverrides(t *testing.T) {
	db := testutil.NewDB(t)
	f, err := NewFactory(db, Options{SkipBcrypt: true, Seed: 1})
	require.NoError(t, err)

	user, err := f.CreateUser(func(u *models.User) { u.Email = "demo@example.com" })
	require.NoError(t, err)
	assert.Equal(t, "demo@example.com", user.Email)
}

func TestLikeIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	f, err := NewFactory(db, Options{SkipBcrypt: true, Seed: 3})
	require.NoError(t, err)

	user, err := f.CreateUser()
	require.NoError(t, err)
	post := f.BuildPost(user)
	require.NoError(t, f.CreatePosts([]*models.Post{post}))

	require.NoError(t, f.Like(user, post))
	require.NoError(t, f.Like(user, post))

	var n int64
	db.Model(&models.Like{}).Count(&n)
	assert.Equal(t, int64(1), n)
}

func TestClearAll(t *testing.T) {
	db := testutil.NewDB(t)
	f, err := NewFactory(db, Options{Users: 2, PostsPerUser: 2, LikeRatio: 0.5, SkipBcrypt: true, Seed: 9})
	require.NoError(t, err)
	_, err = f.Run(nil)
	require.NoError(t, err)

	require.NoError(t, ClearAll(db))

	for _, m := range []any{&models.User{}, &models.Post{}, &models.Like{}} {
		var n int64
		db.Model(m).Count(&n)
		assert.Zero(t, n)
	}
}
